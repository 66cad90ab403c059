package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"wastevision-service/internal/domain/account"
)

// MemoryUserStore keeps accounts in process memory. Used when no database is
// configured and in tests.
type MemoryUserStore struct {
	mu      sync.RWMutex
	users   map[uuid.UUID]account.User
	byEmail map[string]uuid.UUID
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users:   make(map[uuid.UUID]account.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (s *MemoryUserStore) Create(ctx context.Context, user *account.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[user.Email]; exists {
		return account.ErrEmailTaken
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	s.users[user.ID] = *user
	s.byEmail[user.Email] = user.ID
	return nil
}

func (s *MemoryUserStore) GetByEmail(ctx context.Context, email string) (*account.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byEmail[email]
	if !exists {
		return nil, account.ErrUserNotFound
	}
	user := s.users[id]
	return &user, nil
}

func (s *MemoryUserStore) GetByID(ctx context.Context, id uuid.UUID) (*account.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[id]
	if !exists {
		return nil, account.ErrUserNotFound
	}
	return &user, nil
}

func (s *MemoryUserStore) Update(ctx context.Context, user *account.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.users[user.ID]
	if !exists {
		return account.ErrUserNotFound
	}
	if current.Email != user.Email {
		if _, taken := s.byEmail[user.Email]; taken {
			return account.ErrEmailTaken
		}
		delete(s.byEmail, current.Email)
		s.byEmail[user.Email] = user.ID
	}
	s.users[user.ID] = *user
	return nil
}

var _ account.UserStore = (*MemoryUserStore)(nil)
