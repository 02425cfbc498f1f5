package core

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Router applies the chat policy to connection events: it consults and
// updates the registry and emits outbound events through the transport.
// Router holds no chat state of its own and is safe for concurrent use.
type Router struct {
	// presenceMu orders registry changes with their presence broadcasts, so
	// the last connected_users event always matches the registry.
	presenceMu sync.Mutex

	registry  *Registry
	transport Transport
	messages  MessageLog
	now       func() time.Time
	log       *zerolog.Logger
}

// Option customizes a Router.
type Option func(*Router)

// WithClock overrides the clock used to stamp messages.
func WithClock(now func() time.Time) Option {
	return func(r *Router) {
		r.now = now
	}
}

// WithLogger sets the router logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(r *Router) {
		r.log = logger
	}
}

// NewRouter creates a router. messages may be nil, in which case broadcast
// messages are not recorded.
func NewRouter(registry *Registry, transport Transport, messages MessageLog, opts ...Option) *Router {
	nop := zerolog.Nop()
	r := &Router{
		registry:  registry,
		transport: transport,
		messages:  messages,
		now:       time.Now,
		log:       &nop,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry returns the presence registry the router works on.
func (r *Router) Registry() *Registry {
	return r.registry
}

// Connect greets a freshly accepted connection.
func (r *Router) Connect(_ context.Context, id ConnID) {
	r.reply(id, NoticeWelcome)
}

// Login binds username to the connection and announces it. An empty
// username is ignored.
func (r *Router) Login(_ context.Context, id ConnID, username string) {
	if username == "" {
		return
	}

	r.presenceMu.Lock()
	defer r.presenceMu.Unlock()

	r.registry.Put(id, username)
	r.log.Info().Str("conn_id", string(id)).Str("username", username).Msg("user logged in")

	r.transport.Broadcast(SystemNotice(noticeJoined(username)))
	r.broadcastPresence()
}

// SendMessage records and broadcasts a chat message. The sender is taken
// from the client payload as-is.
func (r *Router) SendMessage(ctx context.Context, id ConnID, sender, body string) {
	if sender == "" || body == "" {
		r.reply(id, NoticeInvalidMessage)
		return
	}

	msg := Message{
		Sender:    sender,
		Body:      body,
		CreatedAt: r.now().UTC(),
	}

	if r.messages != nil {
		if err := r.messages.Append(ctx, msg); err != nil {
			r.log.Error().Err(err).Str("conn_id", string(id)).Str("sender", sender).Msg("failed to record message")
		}
	}

	r.transport.Broadcast(&Event{Kind: EventMessage, Message: msg})
}

// SendPrivateMessage delivers body to the connection logged in as
// recipient and echoes it back to the sender. The sender identity comes
// from the registry, not from the client.
func (r *Router) SendPrivateMessage(_ context.Context, id ConnID, recipient, body string) {
	sender, ok := r.registry.UsernameOf(id)
	if !ok || sender == "" || recipient == "" || body == "" {
		r.reply(id, NoticeInvalidPrivateMessage)
		return
	}

	target, found := r.registry.FindConnection(recipient)
	if !found {
		r.reply(id, noticeNotConnected(recipient))
		return
	}

	ts := r.now().UTC()
	r.send(target, &Event{
		Kind:    EventPrivateMessage,
		Message: Message{Sender: sender, Body: body, CreatedAt: ts},
	})
	r.send(id, &Event{
		Kind:    EventPrivateMessage,
		Message: Message{Sender: sender, Body: privateEcho(recipient, body), CreatedAt: ts},
	})
}

// Disconnect forgets the connection and, if it had logged in, tells the
// remaining connections.
func (r *Router) Disconnect(_ context.Context, id ConnID) {
	r.presenceMu.Lock()
	defer r.presenceMu.Unlock()

	username, ok := r.registry.Remove(id)
	if !ok {
		return
	}
	r.log.Info().Str("conn_id", string(id)).Str("username", username).Msg("user left")

	r.transport.Broadcast(SystemNotice(noticeLeft(username)))
	r.broadcastPresence()
}

// Notify sends a System notice to a single connection. Transports use it
// to answer payloads they could not decode.
func (r *Router) Notify(id ConnID, text string) {
	r.reply(id, text)
}

func (r *Router) broadcastPresence() {
	r.transport.Broadcast(&Event{
		Kind:  EventConnectedUsers,
		Users: r.registry.Snapshot(),
	})
}

func (r *Router) reply(id ConnID, text string) {
	r.send(id, SystemNotice(text))
}

func (r *Router) send(id ConnID, event *Event) {
	if err := r.transport.SendTo(id, event); err != nil {
		r.log.Debug().Err(err).Str("conn_id", string(id)).Str("event", event.Kind.String()).Msg("send skipped")
	}
}
