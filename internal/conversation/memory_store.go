package conversation

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. It is the default when no
// external store is configured.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]UserSession
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]UserSession), now: time.Now}
}

func (s *MemoryStore) Find(_ context.Context, userID string) (UserSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return UserSession{}, ErrSessionNotFound
	}
	return sess, nil
}

func (s *MemoryStore) GetOrCreate(_ context.Context, userID string) (UserSession, error) {
	s.mu.RLock()
	sess, ok := s.sessions[userID]
	s.mu.RUnlock()
	if ok {
		return sess, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[userID]; ok {
		return sess, nil
	}
	sess = NewSession(userID)
	sess.UpdatedAt = s.now().UTC()
	s.sessions[userID] = sess
	return sess, nil
}

func (s *MemoryStore) Update(_ context.Context, session UserSession) error {
	session.UpdatedAt = s.now().UTC()
	s.mu.Lock()
	s.sessions[session.UserID] = session
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
