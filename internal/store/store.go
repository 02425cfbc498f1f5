package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique constraint would be violated.
	ErrConflict = errors.New("conflict")
)

// User represents a registered account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Message represents a persisted broadcast chat message.
type Message struct {
	ID        int64
	Sender    string
	Body      string
	CreatedAt time.Time
}

// UserStore persists accounts.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// MessageStore persists broadcast messages.
type MessageStore interface {
	AppendMessage(ctx context.Context, sender, body string, at time.Time) (*Message, error)
	// ListRecentMessages returns up to limit of the newest messages, oldest first.
	ListRecentMessages(ctx context.Context, limit int) ([]Message, error)
}

// Store combines all persistence interfaces.
type Store interface {
	UserStore
	MessageStore
	Close() error
}
