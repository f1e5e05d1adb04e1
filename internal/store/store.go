// ABOUTME: Store interfaces and data types for todo-list persistence
// ABOUTME: Defines Item, Account, Session and the interfaces backing them

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrUsernameTaken is returned when trying to create an account with an existing username.
var ErrUsernameTaken = errors.New("username already taken")

// ErrSessionNotFound is returned when a session doesn't exist or is expired.
var ErrSessionNotFound = errors.New("session not found")

// Item is a single to-do entry owned by exactly one account.
type Item struct {
	ID           int64
	OwnerID      string
	Title        string
	Description  string
	LastModified time.Time
	CompletedAt  *time.Time // nil while the item is open
}

// Completed reports whether the item has a completion timestamp.
func (i *Item) Completed() bool {
	return i.CompletedAt != nil
}

// Account is a registered user.
type Account struct {
	ID           string
	Username     string
	PasswordHash string // bcrypt hash
	CreatedAt    time.Time
}

// Session is an authenticated browser session.
type Session struct {
	ID        string
	AccountID string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ItemStore persists items. Every lookup and write that targets a single
// item takes the owner as part of its predicate; an item owned by someone
// else is reported as ErrNotFound.
type ItemStore interface {
	CreateItem(ctx context.Context, item *Item) error
	GetItem(ctx context.Context, ownerID string, id int64) (*Item, error)
	ListItems(ctx context.Context, ownerID string, completed bool) ([]*Item, error)
	UpdateItem(ctx context.Context, item *Item) error
	CompleteItem(ctx context.Context, ownerID string, id int64, at time.Time) error
	DeleteItem(ctx context.Context, ownerID string, id int64) error
}

// AccountStore persists accounts.
type AccountStore interface {
	CreateAccount(ctx context.Context, account *Account) error
	GetAccount(ctx context.Context, id string) (*Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*Account, error)
}

// SessionStore persists sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// Store is a complete backend: items, accounts and sessions behind one
// connection.
type Store interface {
	ItemStore
	AccountStore
	SessionStore
	Ping(ctx context.Context) error
	Close() error
}
