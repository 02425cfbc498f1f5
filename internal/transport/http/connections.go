package http

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-relay/internal/core"
)

var (
	// ErrConnectionClosed is returned when sending to a connection that is gone.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrSendBufferFull is returned when a connection's outbound queue is full.
	ErrSendBufferFull = errors.New("send buffer full")
)

type connection struct {
	id     core.ConnID
	events chan *core.Event
}

// Connections is the set of open WebSocket connections. It implements
// core.Transport by queueing events on each connection's outbound buffer;
// the connection's write loop drains it.
type Connections struct {
	mu     sync.RWMutex
	conns  map[core.ConnID]*connection
	buffer int
	log    *zerolog.Logger
}

var _ core.Transport = (*Connections)(nil)

// NewConnections creates an empty set whose connections queue up to buffer events.
func NewConnections(buffer int, logger *zerolog.Logger) *Connections {
	if buffer <= 0 {
		buffer = 1
	}
	return &Connections{
		conns:  make(map[core.ConnID]*connection),
		buffer: buffer,
		log:    logger,
	}
}

func (c *Connections) add(id core.ConnID) *connection {
	conn := &connection{
		id:     id,
		events: make(chan *core.Event, c.buffer),
	}

	c.mu.Lock()
	c.conns[id] = conn
	c.mu.Unlock()

	return conn
}

// remove drops the connection and closes its queue. Closing happens under
// the write lock so no sender can race it.
func (c *Connections) remove(id core.ConnID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, ok := c.conns[id]
	if !ok {
		return
	}
	delete(c.conns, id)
	close(conn.events)
}

// SendTo queues an event for one connection without blocking.
func (c *Connections) SendTo(id core.ConnID, event *core.Event) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	conn, ok := c.conns[id]
	if !ok {
		return ErrConnectionClosed
	}
	select {
	case conn.events <- event:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Broadcast queues an event for every open connection. Slow consumers
// miss the event.
func (c *Connections) Broadcast(event *core.Event) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for id, conn := range c.conns {
		select {
		case conn.events <- event:
		default:
			c.log.Warn().Str("conn_id", string(id)).Str("event", event.Kind.String()).Msg("dropping event for slow consumer")
		}
	}
}

// Len returns the number of open connections.
func (c *Connections) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.conns)
}
