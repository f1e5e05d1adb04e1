package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/todo-list/internal/store"
)

func newTestSessions(t *testing.T, duration time.Duration) (*Sessions, *store.Account, *store.MockStore) {
	t.Helper()
	s := store.NewMockStore()
	account := &store.Account{ID: "acc-1", Username: "alice", PasswordHash: "x", CreatedAt: time.Now()}
	require.NoError(t, s.CreateAccount(context.Background(), account))
	return NewSessions(s, s, NewCookieSigner(testSecret), duration), account, s
}

func TestSessions_StartResolveEnd(t *testing.T) {
	sessions, account, _ := newTestSessions(t, time.Hour)
	ctx := context.Background()

	cookie, expires, err := sessions.Start(ctx, account)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	id, err := sessions.Resolve(ctx, cookie)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", id.AccountID)
	assert.Equal(t, "alice", id.Username)
	assert.NotEmpty(t, id.SessionID)

	require.NoError(t, sessions.End(ctx, cookie))

	_, err = sessions.Resolve(ctx, cookie)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessions_ResolveRejectsForgedCookie(t *testing.T) {
	sessions, _, _ := newTestSessions(t, time.Hour)
	ctx := context.Background()

	forged, err := NewCookieSigner([]byte("attacker")).Sign("acc-1", "whatever", time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = sessions.Resolve(ctx, forged)
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = sessions.Resolve(ctx, "garbage")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessions_ResolveRequiresStoredSession(t *testing.T) {
	sessions, _, _ := newTestSessions(t, time.Hour)

	// Correctly signed but never stored
	token, err := NewCookieSigner(testSecret).Sign("acc-1", "unknown-session", time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = sessions.Resolve(context.Background(), token)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessions_ResolveRejectsAccountMismatch(t *testing.T) {
	sessions, account, _ := newTestSessions(t, time.Hour)
	ctx := context.Background()

	cookie, _, err := sessions.Start(ctx, account)
	require.NoError(t, err)
	claims, err := NewCookieSigner(testSecret).Verify(cookie)
	require.NoError(t, err)

	// Same session id, different subject
	swapped, err := NewCookieSigner(testSecret).Sign("acc-2", claims.SessionID, claims.ExpiresAt)
	require.NoError(t, err)

	_, err = sessions.Resolve(ctx, swapped)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessions_EndIgnoresInvalidCookie(t *testing.T) {
	sessions, _, _ := newTestSessions(t, time.Hour)
	assert.NoError(t, sessions.End(context.Background(), "not-a-token"))
}

func TestSessions_Purge(t *testing.T) {
	sessions, _, s := newTestSessions(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.CreateSession(ctx, &store.Session{
		ID:        "old",
		AccountID: "acc-1",
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}))

	n, err := sessions.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestNewSessions_DefaultDuration(t *testing.T) {
	sessions, _, _ := newTestSessions(t, 0)
	assert.Equal(t, DefaultSessionDuration, sessions.Duration())
}
