// ABOUTME: Browser sessions backed by a SessionStore and a signed cookie
// ABOUTME: A cookie is only honored while its server-side session is live

package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/todo-list/internal/store"
)

// DefaultSessionDuration is how long a sign-in lasts.
const DefaultSessionDuration = 14 * 24 * time.Hour

// ErrNoSession is returned when a cookie doesn't resolve to a live session.
var ErrNoSession = errors.New("no session")

// Sessions issues and resolves signed session cookies.
type Sessions struct {
	store    store.SessionStore
	accounts store.AccountStore
	signer   *CookieSigner
	duration time.Duration
	logger   *slog.Logger
}

// NewSessions creates a session manager. A zero duration uses DefaultSessionDuration.
func NewSessions(sessions store.SessionStore, accounts store.AccountStore, signer *CookieSigner, duration time.Duration) *Sessions {
	if duration <= 0 {
		duration = DefaultSessionDuration
	}
	return &Sessions{
		store:    sessions,
		accounts: accounts,
		signer:   signer,
		duration: duration,
		logger:   slog.Default().With("component", "sessions"),
	}
}

// Duration returns the lifetime of new sessions.
func (s *Sessions) Duration() time.Duration {
	return s.duration
}

// Start creates a session for account and returns the cookie value and
// its expiry.
func (s *Sessions) Start(ctx context.Context, account *store.Account) (string, time.Time, error) {
	id, err := generateSecureToken(32)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generating session id: %w", err)
	}

	now := time.Now().UTC()
	session := &store.Session{
		ID:        id,
		AccountID: account.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.duration),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return "", time.Time{}, fmt.Errorf("storing session: %w", err)
	}

	token, err := s.signer.Sign(account.ID, id, session.ExpiresAt)
	if err != nil {
		_ = s.store.DeleteSession(ctx, id)
		return "", time.Time{}, fmt.Errorf("signing session: %w", err)
	}

	s.logger.Debug("session started", "account_id", account.ID)
	return token, session.ExpiresAt, nil
}

// Resolve maps a cookie value to the caller's identity.
func (s *Sessions) Resolve(ctx context.Context, cookieValue string) (*Identity, error) {
	claims, err := s.signer.Verify(cookieValue)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}

	session, err := s.store.GetSession(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if session.AccountID != claims.AccountID {
		return nil, ErrNoSession
	}

	account, err := s.accounts.GetAccount(ctx, session.AccountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("loading account: %w", err)
	}

	return &Identity{
		AccountID: account.ID,
		Username:  account.Username,
		SessionID: session.ID,
	}, nil
}

// End deletes the session behind a cookie. Invalid cookies are ignored.
func (s *Sessions) End(ctx context.Context, cookieValue string) error {
	claims, err := s.signer.Verify(cookieValue)
	if err != nil {
		return nil
	}
	return s.store.DeleteSession(ctx, claims.SessionID)
}

// Purge removes expired sessions from the store.
func (s *Sessions) Purge(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteExpiredSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("purging sessions: %w", err)
	}
	if n > 0 {
		s.logger.Info("purged expired sessions", "count", n)
	}
	return n, nil
}

// generateSecureToken generates a cryptographically secure random token
func generateSecureToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
