// Package sqlite implements repository.SignalRepository on SQLite.
//
// The whole registry is one table keyed by (user_id, signal_id), so an
// embedded database file is all the backing store needs. The driver is
// modernc.org/sqlite, a pure Go build of SQLite: no cgo toolchain required.
//
// All access goes through database/sql. Remember that *sql.DB is a pool,
// and every *sql.Rows must be closed.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"

	// The driver registers itself with database/sql as "sqlite" in its init().
	// We also use its Error type to detect constraint violations, so this is a
	// named import rather than the usual blank one.
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// MemoryPath opens a private in-memory database. Handy for tests.
const MemoryPath = ":memory:"

// DB wraps a sql.DB connection pool and provides repository methods.
// It implements repository.SignalRepository (see signal.go).
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/signals.db"  → file-based database (persistent)
//   - ":memory:"         → in-memory database (great for tests, lost on close)
//
// CONNECTION POOL:
// sql.Open only prepares the pool; Ping forces a first connection so a bad
// path fails here rather than on the first request.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every connection to ":memory:" gets its OWN empty database.
	// Pinning the pool to one connection keeps all queries on the same one.
	if dbPath == MemoryPath {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// connPragmas run on EVERY connection the pool opens. PRAGMAs are
// per-connection state, so setting them once with Exec would only reach
// whichever connection happened to run it.
//
//   - journal_mode(WAL): readers do not block the writer and vice versa
//   - busy_timeout(5000): a writer waits up to 5s for the lock instead of
//     failing at once with SQLITE_BUSY
var connPragmas = []string{"journal_mode(WAL)", "busy_timeout(5000)"}

// dsn appends connPragmas to a file path in the driver's
// "?_pragma=name(value)" form. The in-memory database has a single
// connection and no journal, so it is left as is.
func dsn(dbPath string) string {
	if dbPath == MemoryPath {
		return dbPath
	}
	params := url.Values{}
	for _, p := range connPragmas {
		params.Add("_pragma", p)
	}
	return dbPath + "?" + params.Encode()
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by the health check.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// migrate creates the schema.
//
// CREATE TABLE IF NOT EXISTS is safe to run on every start.
//
// The composite PRIMARY KEY (user_id, signal_id) is the storage-level guarantee
// that a pair is never stored twice, even if two creates race past the
// service's existence check.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS signals (
			user_id     TEXT NOT NULL,
			signal_id   INTEGER NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			object_key  TEXT NOT NULL,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, signal_id)
		);
		CREATE INDEX IF NOT EXISTS idx_signals_object_key ON signals(object_key);
		CREATE INDEX IF NOT EXISTS idx_signals_signal_id ON signals(signal_id);
	`)
	if err != nil {
		return fmt.Errorf("creating signals table: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a PRIMARY KEY or UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var sqliteErr *moderncsqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}
