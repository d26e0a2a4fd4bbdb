package oauth

import (
	"sync"
	"time"
)

const DefaultSessionTTL = 10 * time.Minute

// Session is the server-held half of one authorization round-trip.
type Session struct {
	UserID    string
	Verifier  string
	State     string
	CreatedAt time.Time
}

// SessionStore keeps one Session per browser session id. Save replaces an
// earlier unfinished attempt; Take removes the session it returns.
type SessionStore interface {
	Save(sessionID string, s Session)
	Take(sessionID string) (Session, bool)
}

type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemorySessionStore{
		sessions: make(map[string]Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemorySessionStore) Save(sessionID string, s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.evictExpired()
	m.sessions[sessionID] = s
}

func (m *MemorySessionStore) Take(sessionID string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[sessionID]
	if !ok {
		return Session{}, false
	}
	delete(m.sessions, sessionID)

	if m.now().Sub(s.CreatedAt) > m.ttl {
		return Session{}, false
	}
	return s, true
}

func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// caller holds m.mu
func (m *MemorySessionStore) evictExpired() {
	now := m.now()
	for id, s := range m.sessions {
		if now.Sub(s.CreatedAt) > m.ttl {
			delete(m.sessions, id)
		}
	}
}
