// ABOUTME: Account and session persistence for the SQL store
// ABOUTME: Supports username/password sign-in and cookie sessions

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateAccount creates a new account.
// Returns ErrUsernameTaken if the username is already registered.
func (s *SQLStore) CreateAccount(ctx context.Context, account *Account) error {
	query := `
		INSERT INTO accounts (id, username, password_hash, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.exec(ctx, query,
		account.ID,
		account.Username,
		account.PasswordHash,
		formatTime(account.CreatedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("inserting account: %w", err)
	}

	s.logger.Info("created account", "id", account.ID, "username", account.Username)
	return nil
}

// GetAccount retrieves an account by ID.
func (s *SQLStore) GetAccount(ctx context.Context, id string) (*Account, error) {
	return s.getAccount(ctx, "id", id)
}

// GetAccountByUsername retrieves an account by username.
func (s *SQLStore) GetAccountByUsername(ctx context.Context, username string) (*Account, error) {
	return s.getAccount(ctx, "username", username)
}

func (s *SQLStore) getAccount(ctx context.Context, column, value string) (*Account, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM accounts
		WHERE ` + column + ` = ?
	`

	var account Account
	var createdAtStr string

	err := s.queryRow(ctx, query, value).Scan(
		&account.ID,
		&account.Username,
		&account.PasswordHash,
		&createdAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying account by %s: %w", column, err)
	}

	account.CreatedAt, err = parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &account, nil
}

// CreateSession creates a new session.
func (s *SQLStore) CreateSession(ctx context.Context, session *Session) error {
	query := `
		INSERT INTO sessions (id, account_id, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.exec(ctx, query,
		session.ID,
		session.AccountID,
		formatTime(session.CreatedAt),
		formatTime(session.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}

	s.logger.Debug("created session", "id", session.ID, "account_id", session.AccountID)
	return nil
}

// GetSession retrieves a valid (non-expired) session.
func (s *SQLStore) GetSession(ctx context.Context, id string) (*Session, error) {
	query := `
		SELECT id, account_id, created_at, expires_at
		FROM sessions
		WHERE id = ? AND expires_at > ?
	`

	var session Session
	var createdAtStr, expiresAtStr string

	err := s.queryRow(ctx, query, id, formatTime(time.Now())).Scan(
		&session.ID,
		&session.AccountID,
		&createdAtStr,
		&expiresAtStr,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	session.CreatedAt, err = parseTime(createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	session.ExpiresAt, err = parseTime(expiresAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing expires_at: %w", err)
	}

	return &session, nil
}

// DeleteSession deletes a session. Deleting a missing session is not an error.
func (s *SQLStore) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.exec(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes all expired sessions and returns how many
// were removed.
func (s *SQLStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	result, err := s.exec(ctx, "DELETE FROM sessions WHERE expires_at <= ?", formatTime(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		s.logger.Debug("deleted expired sessions", "count", rowsAffected)
	}
	return rowsAffected, nil
}
