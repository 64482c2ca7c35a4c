package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/usergate/usergate/internal/model"
)

// MemoryStore keeps users in process memory.
// Used for tests and STORE_DRIVER=memory.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*model.User
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*model.User),
		now:   time.Now,
	}
}

// Ping always succeeds.
func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// FindAll returns copies of every user ordered by creation time, then ID.
func (m *MemoryStore) FindAll(ctx context.Context) ([]*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]*model.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u.Clone())
	}

	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})

	return users, nil
}

// FindByID returns a copy of the user with the given ID.
func (m *MemoryStore) FindByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u.Clone(), nil
}

// Save inserts a new user (empty ID) or overwrites an existing one.
func (m *MemoryStore) Save(ctx context.Context, user *model.User) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	record := user.Clone()
	if record.IsNew() {
		record.ID = newID(now)
		record.CreatedAt = now
	} else if existing, ok := m.users[record.ID]; ok {
		record.CreatedAt = existing.CreatedAt
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	m.users[record.ID] = record
	return record.Clone(), nil
}

// DeleteByID removes a user. Returns ErrUserNotFound if it does not exist.
func (m *MemoryStore) DeleteByID(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}
