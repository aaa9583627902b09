// Package identity supplies the current user identity and signals login,
// logout, and user switches.
package identity

import (
	"sync"
)

// Identity is the authenticated user, or the anonymous identity when
// UserID is empty.
type Identity struct {
	UserID string `toml:"user_id" json:"user_id"`
}

// Anonymous is the unauthenticated identity.
var Anonymous = Identity{}

// Authenticated reports whether the identity carries a user.
func (id Identity) Authenticated() bool {
	return id.UserID != ""
}

// String returns the user id, or "anonymous".
func (id Identity) String() string {
	if !id.Authenticated() {
		return "anonymous"
	}
	return id.UserID
}

// Provider reports the current identity and its transitions.
type Provider interface {
	// Current returns the identity as of now.
	Current() Identity

	// Changes emits each new identity after a transition. A nil channel
	// means the identity never changes.
	Changes() <-chan Identity
}

// Static is a Provider whose identity never changes.
type Static Identity

// Current implements Provider.
func (s Static) Current() Identity { return Identity(s) }

// Changes implements Provider. It returns nil.
func (s Static) Changes() <-chan Identity { return nil }

// Manual is a Provider driven by explicit Set calls.
type Manual struct {
	mu      sync.Mutex
	current Identity
	changes chan Identity
}

// NewManual creates a Manual provider starting at initial.
func NewManual(initial Identity) *Manual {
	return &Manual{
		current: initial,
		changes: make(chan Identity, 16),
	}
}

// Current implements Provider.
func (m *Manual) Current() Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Changes implements Provider.
func (m *Manual) Changes() <-chan Identity {
	return m.changes
}

// Set switches to id and emits it if it differs from the current identity.
func (m *Manual) Set(id Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == m.current {
		return
	}
	m.current = id
	m.changes <- id
}
