// Package session holds an in-process session store for the memory storage driver.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/demonlist-ranking/internal/domain"
)

type entry struct {
	userID    string
	expiresAt time.Time
}

// MemoryStore keeps sessions in a map. Expired entries are dropped lazily.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]entry
	now      func() time.Time
}

// NewMemoryStore creates an empty session store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]entry),
		now:      time.Now,
	}
}

// Create opens a session for userID and returns its token
func (s *MemoryStore) Create(_ context.Context, userID string, ttl time.Duration) (string, error) {
	token := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = entry{userID: userID, expiresAt: s.now().Add(ttl)}
	return token, nil
}

// Get returns the user ID of a live session
func (s *MemoryStore) Get(_ context.Context, token string) (string, error) {
	s.mu.RLock()
	e, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return "", domain.ErrUnauthenticated
	}
	if !s.now().Before(e.expiresAt) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return "", domain.ErrUnauthenticated
	}
	return e.userID, nil
}

// Delete closes a session
func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

// DeleteUser closes every session of a user
func (s *MemoryStore) DeleteUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, e := range s.sessions {
		if e.userID == userID {
			delete(s.sessions, token)
		}
	}
	return nil
}

// PurgeExpired drops every expired session and returns how many were removed
func (s *MemoryStore) PurgeExpired(context.Context) (int, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	purged := 0
	for token, e := range s.sessions {
		if !now.Before(e.expiresAt) {
			delete(s.sessions, token)
			purged++
		}
	}
	return purged, nil
}
