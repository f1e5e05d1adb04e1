// ABOUTME: Opens the storage backends named in the configuration
// ABOUTME: SQL or MongoDB for items and accounts, optionally Redis for sessions

package server

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/2389/todo-list/internal/config"
	"github.com/2389/todo-list/internal/store"
)

// OpenStore opens the item and account backend.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (store.Store, error) {
	if cfg.Driver == store.DriverMongo {
		s, err := store.OpenMongo(ctx, cfg.DSN, cfg.Name)
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	s, err := store.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// openSessionStore returns the session backend. With the "database" backend
// sessions live next to the accounts in s and the returned client is nil.
func openSessionStore(ctx context.Context, cfg config.SessionsConfig, s store.Store) (store.SessionStore, *redis.Client, error) {
	if cfg.Backend != "redis" {
		return s, nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	sessions := store.NewRedisSessionStore(client, "")
	if err := sessions.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return sessions, client, nil
}
