// ABOUTME: database/sql implementation of the stores for SQLite and PostgreSQL
// ABOUTME: Opens the connection, applies pragmas and creates the schema

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite"  // modernc.org/sqlite, pure Go
	DriverSQLite3  = "sqlite3" // github.com/mattn/go-sqlite3, cgo
	DriverPostgres = "pgx"     // github.com/jackc/pgx/v5/stdlib
)

// timeLayout is fixed width so TEXT columns sort chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLStore implements ItemStore, AccountStore and SessionStore over database/sql
type SQLStore struct {
	db       *sql.DB
	driver   string
	postgres bool
	logger   *slog.Logger
}

var _ Store = (*SQLStore)(nil)

// Open connects to the database identified by driver and dsn.
// The schema is created if it doesn't exist. For SQLite file databases
// the parent directory is created if needed.
func Open(driver, dsn string) (*SQLStore, error) {
	logger := slog.Default().With("component", "store")

	switch driver {
	case DriverSQLite, DriverSQLite3, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	postgres := driver == DriverPostgres

	if !postgres && isSQLiteFilePath(dsn) {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open(driver, connPragmas(driver, dsn))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if !postgres {
		// Every pooled connection to :memory: would get its own empty database
		if dsn == ":memory:" {
			db.SetMaxOpenConns(1)
		}

		// Enable WAL mode for better concurrent performance
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling WAL mode: %w", err)
		}

		if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling foreign keys: %w", err)
		}
	}

	s := &SQLStore{
		db:       db,
		driver:   driver,
		postgres: postgres,
		logger:   logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("store initialized", "driver", driver)
	return s, nil
}

// NewSQLiteStore opens a pure-Go SQLite store at path.
func NewSQLiteStore(path string) (*SQLStore, error) {
	return Open(DriverSQLite, path)
}

// busyTimeoutMillis is how long a SQLite connection waits on a locked
// database before failing with SQLITE_BUSY.
const busyTimeoutMillis = 5000

// connPragmas appends DSN parameters that each driver applies to every new
// pooled connection, not just the one that happens to run an Exec.
func connPragmas(driver, dsn string) string {
	if dsn == "" || dsn == ":memory:" {
		return dsn
	}

	var params []string
	switch driver {
	case DriverSQLite:
		params = []string{
			fmt.Sprintf("_pragma=busy_timeout(%d)", busyTimeoutMillis),
			"_pragma=foreign_keys(1)",
		}
	case DriverSQLite3:
		params = []string{
			fmt.Sprintf("_busy_timeout=%d", busyTimeoutMillis),
			"_foreign_keys=on",
		}
	default:
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

func isSQLiteFilePath(dsn string) bool {
	return dsn != "" && dsn != ":memory:" && !strings.HasPrefix(dsn, "file:")
}

// createSchema creates the database tables if they don't exist
func (s *SQLStore) createSchema() error {
	itemID := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.postgres {
		itemID = "BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY"
	}

	schema := `
		CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			created_at TEXT NOT NULL,
			expires_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_account ON sessions(account_id);
		CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);

		CREATE TABLE IF NOT EXISTS items (
			id ` + itemID + `,
			owner_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			last_modified TEXT NOT NULL,
			completed_at TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_items_owner_completed ON items(owner_id, completed_at);
	`

	// Statements run one at a time so every driver accepts them
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Ping checks that the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	s.logger.Info("closing store")
	return s.db.Close()
}

// rebind rewrites ? placeholders into $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(query), args...)
}

func (s *SQLStore) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}

func (s *SQLStore) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(query), args...)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// isUniqueConstraintError checks if the error is a UNIQUE constraint violation
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	// SQLite returns "UNIQUE constraint failed" in the error message
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// affectedOne maps a zero-row result to notFound.
func affectedOne(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
