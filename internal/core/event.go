package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventMessage carries a broadcast chat message or a System notice.
	EventMessage EventKind = iota
	// EventPrivateMessage carries a directed message or its echo to the sender.
	EventPrivateMessage
	// EventConnectedUsers carries the presence snapshot.
	EventConnectedUsers
)

func (k EventKind) String() string {
	switch k {
	case EventMessage:
		return "message"
	case EventPrivateMessage:
		return "private_message"
	case EventConnectedUsers:
		return "connected_users"
	default:
		return "unknown"
	}
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind    EventKind
	Message Message
	Users   []string // For EventConnectedUsers
}

// SystemNotice builds a message event attributed to the System sender.
func SystemNotice(text string) *Event {
	return &Event{
		Kind:    EventMessage,
		Message: Message{Sender: SystemSender, Body: text},
	}
}
