package store

import (
	"context"
	"sync"

	"github.com/wuwenbin0122/vishai/internal/models"
)

type MemoryUsers struct {
	mu      sync.RWMutex
	byID    map[string]*models.User
	byEmail map[string]*models.User
}

func NewMemoryUsers() *MemoryUsers {
	return &MemoryUsers{
		byID:    make(map[string]*models.User),
		byEmail: make(map[string]*models.User),
	}
}

func (s *MemoryUsers) Create(ctx context.Context, user models.User) error {
	_ = ctx

	key := NormalizeEmail(user.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[key]; exists {
		return ErrDuplicate
	}
	if _, exists := s.byID[user.ID]; exists {
		return ErrDuplicate
	}

	stored := user
	s.byID[user.ID] = &stored
	s.byEmail[key] = &stored
	return nil
}

func (s *MemoryUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	found := *user
	return &found, nil
}

func (s *MemoryUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	_ = ctx

	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	found := *user
	return &found, nil
}

// MemoryChats serializes appends with a single mutex.
type MemoryChats struct {
	mu            sync.Mutex
	conversations map[string][]models.Message
}

func NewMemoryChats() *MemoryChats {
	return &MemoryChats{conversations: make(map[string][]models.Message)}
}

func (s *MemoryChats) Append(ctx context.Context, userID string, msgs ...models.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := validateMessages(msgs); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations[userID] = append(s.conversations[userID], msgs...)
	return nil
}

func (s *MemoryChats) History(ctx context.Context, userID string) ([]models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history := make([]models.Message, len(s.conversations[userID]))
	copy(history, s.conversations[userID])
	return history, nil
}
