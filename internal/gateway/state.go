package gateway

import (
	"sync"
	"sync/atomic"

	"github.com/GriffinCanCode/tarkov-gateway/internal/protocol"
)

// SessionState is the game session shared by every handle.
// A write is visible to every request dispatched after it returns.
type SessionState struct {
	mu      sync.RWMutex
	queued  bool
	session string
}

// Session returns the current session token.
func (s *SessionState) Session() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// SetSession replaces the session token.
func (s *SessionState) SetSession(session string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
}

// Queued reports whether the session is waiting in the login queue.
func (s *SessionState) Queued() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queued
}

// SetQueued sets the login queue flag.
func (s *SessionState) SetQueued(queued bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queued = queued
}

// RequestCounter numbers outgoing requests that carry GClient-RequestId.
type RequestCounter struct {
	n atomic.Uint64
}

// Next returns the current value and increments the counter.
func (c *RequestCounter) Next() uint64 {
	return c.n.Add(1) - 1
}

// Peek returns the value the next request will get.
func (c *RequestCounter) Peek() uint64 {
	return c.n.Load()
}

// versionStore guards the identity strings read by every request.
type versionStore struct {
	mu   sync.RWMutex
	info protocol.VersionInfo
}

func (v *versionStore) get() protocol.VersionInfo {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.info
}

// update applies fn under the write lock.
func (v *versionStore) update(fn func(*protocol.VersionInfo)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fn(&v.info)
}
