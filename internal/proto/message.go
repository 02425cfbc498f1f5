package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	InboundTypeLogin          = "login"
	InboundTypeMessage        = "message"
	InboundTypePrivateMessage = "private_message"

	OutboundTypeMessage        = "message"
	OutboundTypePrivateMessage = "private_message"
	OutboundTypeConnectedUsers = "connected_users"
)

// LoginData binds a username to the connection.
type LoginData struct {
	Username string `json:"username"`
	Token    string `json:"token,omitempty"`
}

// MessageData is a broadcast chat message from the client.
type MessageData struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

// PrivateMessageData is a directed message from the client.
type PrivateMessageData struct {
	Recipient string `json:"recipient"`
	Message   string `json:"message"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ChatMessage is the payload of message and private_message events.
// System notices carry no timestamp.
type ChatMessage struct {
	Sender    string `json:"sender"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp,omitempty"`
}
