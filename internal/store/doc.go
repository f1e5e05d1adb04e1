// Package store provides persistent storage for to-do items, accounts and
// browser sessions.
//
// # Architecture
//
// The store package is built around three small interfaces:
//
//   - ItemStore: owner-scoped CRUD for to-do items
//   - AccountStore: registered accounts with bcrypt password hashes
//   - SessionStore: server-side records behind the session cookie
//
// Store bundles the three with Ping and Close. SQLStore implements Store over
// database/sql and MongoStore implements it over MongoDB. RedisSessionStore
// is an alternative SessionStore that keeps sessions in Redis with a key TTL.
//
// # Drivers
//
// Open accepts one of:
//
//   - "sqlite": modernc.org/sqlite, pure Go (default)
//   - "sqlite3": github.com/mattn/go-sqlite3, requires cgo
//   - "pgx": PostgreSQL through github.com/jackc/pgx/v5/stdlib
//
// OpenMongo connects to MongoDB instead. Item IDs there are allocated from
// a "counters" collection and sessions carry a TTL index on expires_at.
//
// SQLite databases run with:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// Queries are written with ? placeholders and rebound to $n for PostgreSQL.
// Timestamps are stored as fixed-width UTC text so they sort correctly on
// every backend.
//
// # Ownership
//
// Every statement that reads or writes a single item carries
// "id = ? AND owner_id = ?" in its WHERE clause. An item that exists but
// belongs to another account is indistinguishable from a missing one: both
// yield ErrNotFound.
//
// # Error Handling
//
// Common errors:
//
//   - ErrNotFound: Requested item or account does not exist (or is not yours)
//   - ErrUsernameTaken: Username already registered
//   - ErrSessionNotFound: Session missing or expired
//
// # Testing
//
// Use NewMockStore() for unit tests:
//
//	store := store.NewMockStore()
//	// store implements ItemStore, AccountStore and SessionStore
//
// Use NewSQLiteStore(path) with t.TempDir() for integration tests.
package store
