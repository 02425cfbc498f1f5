package utils

import "github.com/google/uuid"

// NewID returns a random identifier for a new connection.
func NewID() string {
	return uuid.NewString()
}
