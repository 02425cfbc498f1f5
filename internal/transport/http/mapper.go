package http

import (
	"github.com/vovakirdan/wirechat-relay/internal/core"
	"github.com/vovakirdan/wirechat-relay/internal/proto"
)

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventPrivateMessage:
		return proto.Outbound{
			Type: proto.OutboundTypePrivateMessage,
			Data: chatMessageFrom(event.Message),
		}
	case core.EventConnectedUsers:
		users := event.Users
		if users == nil {
			users = []string{}
		}
		return proto.Outbound{
			Type: proto.OutboundTypeConnectedUsers,
			Data: users,
		}
	default:
		return proto.Outbound{
			Type: proto.OutboundTypeMessage,
			Data: chatMessageFrom(event.Message),
		}
	}
}

func chatMessageFrom(msg core.Message) proto.ChatMessage {
	return proto.ChatMessage{
		Sender:    msg.Sender,
		Message:   msg.Body,
		Timestamp: msg.Timestamp(),
	}
}
