// ABOUTME: Redis-backed SessionStore using go-redis
// ABOUTME: Sessions are JSON values whose key TTL matches the session expiry

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultRedisKeyPrefix namespaces session keys.
const DefaultRedisKeyPrefix = "todo:session:"

// RedisSessionStore implements SessionStore on top of Redis.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

var _ SessionStore = (*RedisSessionStore)(nil)

type redisSession struct {
	AccountID string    `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NewRedisSessionStore wraps client. An empty prefix uses DefaultRedisKeyPrefix.
func NewRedisSessionStore(client *redis.Client, prefix string) *RedisSessionStore {
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}
	return &RedisSessionStore{
		client: client,
		prefix: prefix,
		logger: slog.Default().With("component", "redis-sessions"),
	}
}

// CreateSession stores the session with a TTL ending at its expiry.
func (r *RedisSessionStore) CreateSession(ctx context.Context, session *Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", session.ID)
	}

	data, err := json.Marshal(redisSession{
		AccountID: session.AccountID,
		CreatedAt: session.CreatedAt.UTC(),
		ExpiresAt: session.ExpiresAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	if err := r.client.Set(ctx, r.prefix+session.ID, data, ttl).Err(); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}

	r.logger.Debug("created session", "id", session.ID, "account_id", session.AccountID)
	return nil
}

// GetSession retrieves a live session.
func (r *RedisSessionStore) GetSession(ctx context.Context, id string) (*Session, error) {
	val, err := r.client.Get(ctx, r.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	var rs redisSession
	if err := json.Unmarshal(val, &rs); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	if !rs.ExpiresAt.After(time.Now()) {
		return nil, ErrSessionNotFound
	}

	return &Session{
		ID:        id,
		AccountID: rs.AccountID,
		CreatedAt: rs.CreatedAt,
		ExpiresAt: rs.ExpiresAt,
	}, nil
}

// DeleteSession removes a session key.
func (r *RedisSessionStore) DeleteSession(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.prefix+id).Err(); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions is a no-op; Redis expires keys itself.
func (r *RedisSessionStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	return 0, nil
}

// Ping checks that Redis is reachable.
func (r *RedisSessionStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
