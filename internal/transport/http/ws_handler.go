package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	stdhttp "net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/auth"
	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/proto"
	"github.com/vovakirdan/wirechat-relay/internal/utils"
)

// WSHandler upgrades HTTP connections and feeds their events to the router.
type WSHandler struct {
	router          *core.Router
	conns           *Connections
	auth            *auth.Service
	requireToken    bool
	maxMessageBytes int64
	log             *zerolog.Logger

	// base is cancelled by Shutdown; handlers tracks live connections.
	base       context.Context
	cancelBase context.CancelFunc
	handlers   sync.WaitGroup
}

// WSOptions tunes the WebSocket handler.
type WSOptions struct {
	// MaxMessageBytes caps inbound frames; zero keeps the library default.
	MaxMessageBytes int64
	// RequireToken rejects login events without a valid token for the username.
	RequireToken bool
}

// NewWSHandler builds a new WebSocket handler. authService may be nil when
// tokens are not required.
func NewWSHandler(router *core.Router, conns *Connections, authService *auth.Service, opts WSOptions, logger *zerolog.Logger) *WSHandler {
	base, cancel := context.WithCancel(context.Background())
	return &WSHandler{
		router:          router,
		conns:           conns,
		auth:            authService,
		requireToken:    opts.RequireToken,
		maxMessageBytes: opts.MaxMessageBytes,
		log:             logger,
		base:            base,
		cancelBase:      cancel,
	}
}

// Shutdown closes every open WebSocket connection and waits for their
// handlers to return. http.Server.Shutdown does not track hijacked
// connections, so this runs after it.
func (h *WSHandler) Shutdown(ctx context.Context) error {
	h.cancelBase()

	done := make(chan struct{})
	go func() {
		h.handlers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	if h.base.Err() != nil {
		stdhttp.Error(w, "server shutting down", stdhttp.StatusServiceUnavailable)
		return
	}
	h.handlers.Add(1)
	defer h.handlers.Done()

	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	if h.maxMessageBytes > 0 {
		conn.SetReadLimit(h.maxMessageBytes)
	}

	id := core.ConnID(utils.NewID())
	client := h.conns.add(id)
	h.log.Debug().Str("conn_id", string(id)).Msg("ws connected")

	// The connection leaves the set before the router announces the
	// departure, so "left" only reaches the remaining connections.
	defer func() {
		h.conns.remove(id)
		h.router.Disconnect(context.WithoutCancel(ctx), id)
		h.log.Debug().Str("conn_id", string(id)).Msg("ws disconnected")
	}()

	h.router.Connect(ctx, id)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopOnShutdown := context.AfterFunc(h.base, cancel)
	defer stopOnShutdown()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, id)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if h.base.Err() != nil {
		status = websocket.StatusGoingAway
		reason = "server shutting down"
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("conn_id", string(id)).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, id core.ConnID) error {
	for {
		_, payload, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		// Decoded here rather than with wsjson.Read, which closes the
		// connection on bad JSON.
		var inbound proto.Inbound
		if err := json.Unmarshal(payload, &inbound); err != nil {
			h.log.Debug().Err(err).Str("conn_id", string(id)).Msg("undecodable ws frame")
			h.router.Notify(id, core.NoticeInvalidMessage)
			continue
		}

		h.dispatch(ctx, id, inbound)
	}
}

func (h *WSHandler) dispatch(ctx context.Context, id core.ConnID, inbound proto.Inbound) {
	switch inbound.Type {
	case proto.InboundTypeLogin:
		var data proto.LoginData
		if err := decodeData(inbound.Data, &data); err != nil {
			h.log.Debug().Err(err).Str("conn_id", string(id)).Msg("ignoring malformed login")
			return
		}
		if data.Username != "" && !h.tokenAllows(data) {
			h.router.Notify(id, core.NoticeInvalidCredentials)
			return
		}
		h.router.Login(ctx, id, data.Username)
	case proto.InboundTypeMessage:
		var data proto.MessageData
		if err := decodeData(inbound.Data, &data); err != nil {
			h.router.Notify(id, core.NoticeInvalidMessage)
			return
		}
		h.router.SendMessage(ctx, id, data.Sender, data.Message)
	case proto.InboundTypePrivateMessage:
		var data proto.PrivateMessageData
		if err := decodeData(inbound.Data, &data); err != nil {
			h.router.Notify(id, core.NoticeInvalidPrivateMessage)
			return
		}
		h.router.SendPrivateMessage(ctx, id, data.Recipient, data.Message)
	default:
		h.log.Debug().Str("conn_id", string(id)).Str("type", inbound.Type).Msg("unknown inbound type")
		h.router.Notify(id, core.NoticeUnknownEvent)
	}
}

func (h *WSHandler) tokenAllows(data proto.LoginData) bool {
	if !h.requireToken {
		return true
	}
	if h.auth == nil || data.Token == "" {
		return false
	}
	claims, err := h.auth.ValidateToken(data.Token)
	if err != nil {
		h.log.Debug().Err(err).Str("username", data.Username).Msg("login token rejected")
		return false
	}
	return claims.Username == data.Username
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *connection) error {
	for {
		select {
		case event, ok := <-client.events:
			if !ok {
				return nil
			}
			if err := wsjson.Write(ctx, conn, outboundFromEvent(event)); err != nil {
				h.log.Error().Err(err).Str("conn_id", string(client.id)).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// decodeData unmarshals an envelope payload. A missing payload decodes to
// the zero value so the router's own validation answers it.
func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	return json.Unmarshal(raw, v)
}
