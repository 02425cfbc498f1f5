package store

import (
	"context"
	"fmt"

	"github.com/vovakirdan/wirechat-relay/internal/core"
)

// MessageLog adapts a MessageStore to core.MessageLog.
type MessageLog struct {
	store MessageStore
}

// NewMessageLog wraps st for use by the router.
func NewMessageLog(st MessageStore) *MessageLog {
	return &MessageLog{store: st}
}

// Append persists msg.
func (l *MessageLog) Append(ctx context.Context, msg core.Message) error {
	if _, err := l.store.AppendMessage(ctx, msg.Sender, msg.Body, msg.CreatedAt); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}
