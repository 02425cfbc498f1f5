package core

import (
	"sync"

	"github.com/samber/lo"
)

// Registry maps live connections to the username they logged in with.
// It is the only shared mutable state of the relay; every method takes the
// same lock so readers never observe a half-applied login or disconnect.
//
// A username may be claimed by several connections at once.
type Registry struct {
	mu    sync.RWMutex
	names map[ConnID]string
	order []ConnID // first-login order, drives Snapshot and FindConnection
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		names: make(map[ConnID]string),
	}
}

// Put associates username with the connection, replacing any previous
// association of that connection.
func (r *Registry) Put(id ConnID, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.names[id]; !exists {
		r.order = append(r.order, id)
	}
	r.names[id] = username
}

// Remove deletes the connection's association and returns the username it
// held. ok is false if the connection never logged in.
func (r *Registry) Remove(id ConnID) (username string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	username, ok = r.names[id]
	if !ok {
		return "", false
	}
	delete(r.names, id)
	r.order = lo.Without(r.order, id)
	return username, true
}

// UsernameOf returns the username the connection logged in with.
func (r *Registry) UsernameOf(id ConnID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	username, ok := r.names[id]
	return username, ok
}

// FindConnection returns the first connection, in login order, that claims
// the username.
func (r *Registry) FindConnection(username string) (ConnID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Find(r.order, func(id ConnID) bool {
		return r.names[id] == username
	})
}

// Snapshot returns the usernames of all logged-in connections.
// Duplicates are kept when several connections share a username.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Map(r.order, func(id ConnID, _ int) string {
		return r.names[id]
	})
}

// Len returns the number of logged-in connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.names)
}
