package session

import (
	"sync"
)

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]Session
	busy     map[int64]struct{}
}

// NewMemoryStore constructs the in-memory Store used in production.
// Sessions are intentionally volatile: a restart drops all conversations
// and every user starts over from an idle state.
func NewMemoryStore() Store {
	return &memoryStore{
		sessions: make(map[int64]Session),
		busy:     make(map[int64]struct{}),
	}
}

func (m *memoryStore) Get(userID int64) (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	return s, ok
}

func (m *memoryStore) Put(s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.UserID] = s
}

func (m *memoryStore) Phase(userID int64) Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[userID]; ok {
		return s.Phase
	}
	return PhaseIdle
}

func (m *memoryStore) Delete(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

func (m *memoryStore) TryAcquire(userID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.busy[userID]; taken {
		return false
	}
	m.busy[userID] = struct{}{}
	return true
}

func (m *memoryStore) Release(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.busy, userID)
}
