package core

import "time"

// TimestampLayout is the wire format of message timestamps (UTC).
const TimestampLayout = "2006-01-02 15:04:05"

// Message is the domain model for a chat message.
type Message struct {
	Sender    string
	Body      string
	CreatedAt time.Time
}

// Timestamp renders CreatedAt for the wire. System notices carry no time
// and render as an empty string.
func (m Message) Timestamp() string {
	if m.CreatedAt.IsZero() {
		return ""
	}
	return m.CreatedAt.UTC().Format(TimestampLayout)
}
