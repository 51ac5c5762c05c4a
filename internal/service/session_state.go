package service

import (
	"errors"
	"sync"

	domainauth "github.com/target/aquaops-console/internal/domain/auth"
)

// ErrInvalidSessionState is returned when an authenticated state lacks a user or access token.
var ErrInvalidSessionState = errors.New("authenticated session requires a user and an access token")

// SessionHolder owns the current SessionState. Every mutation is a full-object replace;
// the last writer wins. Subscribers are notified synchronously, outside the lock.
type SessionHolder struct {
	mu     sync.RWMutex
	state  domainauth.SessionState
	subs   map[uint64]func(domainauth.SessionState)
	nextID uint64
}

// NewSessionHolder returns a holder initialised with the anonymous defaults.
func NewSessionHolder() *SessionHolder {
	return &SessionHolder{
		state: domainauth.AnonymousState(),
		subs:  make(map[uint64]func(domainauth.SessionState)),
	}
}

// Snapshot returns a copy of the current state.
func (h *SessionHolder) Snapshot() domainauth.SessionState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state.Clone()
}

// Replace swaps in next wholesale.
func (h *SessionHolder) Replace(next domainauth.SessionState) error {
	if !next.Valid() {
		return ErrInvalidSessionState
	}
	next = next.Clone()

	h.mu.Lock()
	h.state = next
	subs := h.subscribers()
	h.mu.Unlock()

	h.notify(subs, next)
	return nil
}

// Update applies fn to the current state and replaces it with the result under one lock.
func (h *SessionHolder) Update(fn func(domainauth.SessionState) domainauth.SessionState) error {
	h.mu.Lock()
	next := fn(h.state.Clone())
	if !next.Valid() {
		h.mu.Unlock()
		return ErrInvalidSessionState
	}
	next = next.Clone()
	h.state = next
	subs := h.subscribers()
	h.mu.Unlock()

	h.notify(subs, next)
	return nil
}

// Reset returns to the anonymous defaults, retaining errMsg for display.
func (h *SessionHolder) Reset(errMsg string) {
	next := domainauth.AnonymousState()
	next.Error = errMsg
	// Anonymous state is always valid.
	_ = h.Replace(next)
}

// Subscribe registers fn for every subsequent state change and returns an unsubscribe func.
func (h *SessionHolder) Subscribe(fn func(domainauth.SessionState)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// IsAuthenticated reports the current authenticated flag.
func (h *SessionHolder) IsAuthenticated() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state.IsAuthenticated
}

// User returns a copy of the current user, or nil.
func (h *SessionHolder) User() *domainauth.User {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state.User.Clone()
}

// OrganizationID returns the current user's organization, or "".
func (h *SessionHolder) OrganizationID() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.state.User == nil {
		return ""
	}
	return h.state.User.OrganizationID
}

func (h *SessionHolder) subscribers() []func(domainauth.SessionState) {
	out := make([]func(domainauth.SessionState), 0, len(h.subs))
	for _, fn := range h.subs {
		out = append(out, fn)
	}
	return out
}

func (h *SessionHolder) notify(subs []func(domainauth.SessionState), state domainauth.SessionState) {
	for _, fn := range subs {
		fn(state.Clone())
	}
}
