package auth

import (
	"context"
	"sync"

	"obpm/pkg/models"
)

// MemoryTokenStore keeps tokens in process memory. Used by tests and local
// development.
type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]*models.User
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{tokens: make(map[string]*models.User)}
}

func (s *MemoryTokenStore) UserForToken(_ context.Context, token string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.tokens[token]
	if !ok {
		return nil, ErrUnknownToken
	}

	return user, nil
}

func (s *MemoryTokenStore) SaveToken(_ context.Context, token string, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tokens[token] = user

	return nil
}
