package core

import "context"

// ConnID is the opaque handle the transport assigns to one live connection.
type ConnID string

// Transport delivers events to connected clients.
// Implementations must tolerate sends to connections that are already gone.
type Transport interface {
	// SendTo delivers an event to a single connection.
	SendTo(id ConnID, event *Event) error
	// Broadcast delivers an event to every connection open at call time.
	Broadcast(event *Event)
}

// MessageLog records broadcast chat messages.
type MessageLog interface {
	Append(ctx context.Context, msg Message) error
}
