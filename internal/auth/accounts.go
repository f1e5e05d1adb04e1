// ABOUTME: Account registration and password authentication
// ABOUTME: Passwords are bcrypt hashed; unknown users cost the same as bad passwords

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/2389/todo-list/internal/store"
)

// Account errors
var (
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrPasswordRequired   = errors.New("password required")
)

// MaxUsernameLength is the longest accepted username.
const MaxUsernameLength = 150

var usernameRegex = regexp.MustCompile(`^[\p{L}\p{N}@.+\-_]+$`)

// dummyHash is compared against when the username doesn't exist so that
// unknown usernames take as long as wrong passwords.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Accounts registers and authenticates accounts.
type Accounts struct {
	store  store.AccountStore
	cost   int
	logger *slog.Logger
}

// NewAccounts creates an Accounts service. A cost of 0 uses bcrypt.DefaultCost.
func NewAccounts(s store.AccountStore, cost int) *Accounts {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Accounts{
		store:  s,
		cost:   cost,
		logger: slog.Default().With("component", "accounts"),
	}
}

// ValidateUsername checks length and character set.
func ValidateUsername(username string) error {
	n := utf8.RuneCountInString(username)
	if n == 0 {
		return fmt.Errorf("%w: required", ErrInvalidUsername)
	}
	if n > MaxUsernameLength {
		return fmt.Errorf("%w: must be at most %d characters", ErrInvalidUsername, MaxUsernameLength)
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("%w: letters, digits and @.+-_ only", ErrInvalidUsername)
	}
	return nil
}

// CreateAccount registers a new account. The password confirmation is
// checked before anything is written. An existing account with the same
// username is left untouched and ErrUsernameTaken is returned.
func (a *Accounts) CreateAccount(ctx context.Context, username, password, confirm string) (*store.Account, error) {
	if password != confirm {
		return nil, ErrPasswordMismatch
	}
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	account := &store.Account{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	if err := a.store.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("creating account: %w", err)
	}

	a.logger.Info("account created", "username", username, "id", account.ID)
	return account, nil
}

// Authenticate returns the account for username if password matches.
func (a *Accounts) Authenticate(ctx context.Context, username, password string) (*store.Account, error) {
	account, err := a.store.GetAccountByUsername(ctx, username)
	if err != nil {
		// Do a dummy bcrypt comparison to maintain constant timing
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return account, nil
}

// Get returns the account with the given ID.
func (a *Accounts) Get(ctx context.Context, id string) (*store.Account, error) {
	return a.store.GetAccount(ctx, id)
}
