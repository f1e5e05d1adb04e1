// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without a database

package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MockStore is an in-memory implementation of ItemStore, AccountStore and
// SessionStore for testing.
type MockStore struct {
	mu         sync.RWMutex
	nextItemID int64
	items      map[int64]*Item     // keyed by item ID
	accounts   map[string]*Account // keyed by account ID
	usernames  map[string]string   // keyed by username -> account ID
	sessions   map[string]*Session // keyed by session ID

	// PingErr is returned by Ping when set
	PingErr error
	closed  bool
}

var _ Store = (*MockStore)(nil)

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		items:     make(map[int64]*Item),
		accounts:  make(map[string]*Account),
		usernames: make(map[string]string),
		sessions:  make(map[string]*Session),
	}
}

// CreateItem stores a new item and assigns its ID.
func (m *MockStore) CreateItem(ctx context.Context, item *Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextItemID++
	item.ID = m.nextItemID
	m.items[item.ID] = copyItem(item)
	return nil
}

// GetItem retrieves an item by ID for its owner.
func (m *MockStore) GetItem(ctx context.Context, ownerID string, id int64) (*Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.items[id]
	if !ok || item.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return copyItem(item), nil
}

// ListItems returns the owner's open or completed items, most recently
// modified first.
func (m *MockStore) ListItems(ctx context.Context, ownerID string, completed bool) ([]*Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []*Item{}
	for _, item := range m.items {
		if item.OwnerID == ownerID && item.Completed() == completed {
			result = append(result, copyItem(item))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].LastModified.Equal(result[j].LastModified) {
			return result[i].LastModified.After(result[j].LastModified)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

// UpdateItem writes title, description and last_modified of an existing item.
func (m *MockStore) UpdateItem(ctx context.Context, item *Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.items[item.ID]
	if !ok || existing.OwnerID != item.OwnerID {
		return ErrNotFound
	}
	existing.Title = item.Title
	existing.Description = item.Description
	existing.LastModified = item.LastModified
	return nil
}

// CompleteItem stamps completed_at and last_modified with at.
func (m *MockStore) CompleteItem(ctx context.Context, ownerID string, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[id]
	if !ok || item.OwnerID != ownerID {
		return ErrNotFound
	}
	at = at.UTC()
	item.CompletedAt = &at
	item.LastModified = at
	return nil
}

// DeleteItem removes an item.
func (m *MockStore) DeleteItem(ctx context.Context, ownerID string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[id]
	if !ok || item.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

// CreateAccount stores a new account.
func (m *MockStore) CreateAccount(ctx context.Context, account *Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.usernames[account.Username]; exists {
		return ErrUsernameTaken
	}
	a := *account
	m.accounts[a.ID] = &a
	m.usernames[a.Username] = a.ID
	return nil
}

// GetAccount retrieves an account by ID.
func (m *MockStore) GetAccount(ctx context.Context, id string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	result := *a
	return &result, nil
}

// GetAccountByUsername retrieves an account by username.
func (m *MockStore) GetAccountByUsername(ctx context.Context, username string) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.usernames[username]
	if !ok {
		return nil, ErrNotFound
	}
	result := *m.accounts[id]
	return &result, nil
}

// CreateSession stores a new session.
func (m *MockStore) CreateSession(ctx context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := *session
	m.sessions[s.ID] = &s
	return nil
}

// GetSession retrieves a non-expired session.
func (m *MockStore) GetSession(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok || !s.ExpiresAt.After(time.Now()) {
		return nil, ErrSessionNotFound
	}
	result := *s
	return &result, nil
}

// DeleteSession removes a session.
func (m *MockStore) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

// DeleteExpiredSessions removes expired sessions.
func (m *MockStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	var n int64
	for id, s := range m.sessions {
		if !s.ExpiresAt.After(now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

// Ping returns PingErr.
func (m *MockStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PingErr
}

// Close marks the store closed.
func (m *MockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MockStore) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

func copyItem(item *Item) *Item {
	c := *item
	if item.CompletedAt != nil {
		t := *item.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
