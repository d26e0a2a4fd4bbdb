// Package referral keeps the single pending referral token of a browser and
// extracts referral signals from incoming URLs.
package referral

import (
	"strings"
	"sync"
)

// Slot holds at most one pending referral token. Put overwrites whatever was
// stored before; Clear is idempotent.
type Slot interface {
	Peek() (string, bool)
	Put(token string)
	Clear()
}

type MemorySlot struct {
	mu    sync.Mutex
	token string
	set   bool
}

func NewMemorySlot() *MemorySlot {
	return &MemorySlot{}
}

func (s *MemorySlot) Peek() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.set
}

func (s *MemorySlot) Put(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.set = true
}

func (s *MemorySlot) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.set = false
}

// Take removes the token in one step so that concurrent consumers of the
// same slot cannot both see it.
func (s *MemorySlot) Take() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.token, s.set
	s.token = ""
	s.set = false
	return token, ok
}

// Take consumes the pending token of slot. Slots without an atomic Take are
// peeked and cleared.
func Take(slot Slot) (string, bool) {
	if t, ok := slot.(interface{ Take() (string, bool) }); ok {
		return t.Take()
	}
	token, ok := slot.Peek()
	if ok {
		slot.Clear()
	}
	return token, ok
}

// LinkFor turns a stored token into the referral link the backend expects.
// Tokens that already are links pass through untouched.
func LinkFor(token, publicURL string) string {
	if strings.HasPrefix(token, "http") {
		return token
	}
	return strings.TrimRight(publicURL, "/") + PathPrefix + token
}
