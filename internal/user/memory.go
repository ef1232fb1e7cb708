package user

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore is an in-memory user store used in local development
// and tests when no database DSN is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]User // keyed by lowercased email
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]User)}
}

// Add inserts or replaces a record.
func (s *MemoryStore) Add(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[strings.ToLower(u.Email)] = u
}

// GetByEmail fetches a record by case-insensitive email match.
func (s *MemoryStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}
