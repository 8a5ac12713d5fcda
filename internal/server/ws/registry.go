package ws

import "sync"

// Session is one connected price subscriber.
type Session interface {
	ID() string
	IsOpen() bool
	Send(msg []byte) error
	Close() error
}

// Registry tracks open sessions by id. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]Session)}
}

// Register adds s under its id. A session already registered under the same
// id is replaced and returned so the caller can close it.
func (r *Registry) Register(s Session) Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.sessions[s.ID()]
	r.sessions[s.ID()] = s
	if prev == s {
		return nil
	}
	return prev
}

// Unregister removes the session with the given id. It reports whether a
// session was removed; an unknown id is not an error.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	return true
}

// Remove deletes s only if it is still the session registered under its id,
// so a stale connection cannot evict the one that replaced it.
func (r *Registry) Remove(s Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[s.ID()]; !ok || cur != s {
		return false
	}
	delete(r.sessions, s.ID())
	return true
}

// Snapshot returns a copy of the registered sessions.
func (r *Registry) Snapshot() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
