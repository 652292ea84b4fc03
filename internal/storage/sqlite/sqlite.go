// Package sqlite implements the Relational Index (C2): the embedded,
// single-writer tabular store backing authoritative event rows, session
// rows, git-state rows, and the vector-to-event mapping.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/memkit/memoryd/internal/errs"
)

// Store is the Relational Index.
type Store struct {
	db *sql.DB
}

// Options configures connection-level behavior.
type Options struct {
	// BusyTimeout bounds how long a writer waits on SQLITE_BUSY before
	// giving up. Zero uses the sqlite3 driver default.
	BusyTimeout time.Duration
}

// Open creates or opens the database at path (":memory:" for an
// in-process, non-persistent store), enables WAL journaling, applies the
// bootstrap schema, then runs any pending migrations.
func Open(path string, opts Options) (*Store, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errs.Wrap(errs.StoreUnavailable, "sqlite.mkdir", "failed to create database directory", err)
		}
	}

	dsn := path + "?_journal_mode=WAL&_foreign_keys=ON"
	if opts.BusyTimeout > 0 {
		dsn += fmt.Sprintf("&_busy_timeout=%d", opts.BusyTimeout.Milliseconds())
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.StoreUnavailable, "sqlite.open", "failed to open database", err)
	}
	// A single physical writer connection avoids SQLITE_BUSY storms under
	// WAL with concurrent application goroutines; readers still share it
	// but reads are cheap relative to write serialization overhead.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.StoreUnavailable, "sqlite.ping", "failed to ping database", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.Internal, "sqlite.schema", "failed to initialize schema", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.Internal, "sqlite.migrate", "failed to apply migrations", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying connection. Idempotent.
func (s *Store) Close() error {
	return s.db.Close()
}

// execer is satisfied by both *sql.Conn and *sql.Tx, letting Tx wrap
// whichever one a given code path holds.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Tx is a handle passed to Transaction's callback, exposing the
// run/get/all shapes spec'd for C2's transaction() operation.
type Tx struct {
	x execer
}

// Run executes a statement that returns no rows.
func (t *Tx) Run(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return t.x.ExecContext(ctx, query, args...)
}

// Get executes a query expected to return at most one row, scanning it
// into dest. Callers distinguish "no rows" from error using sql.ErrNoRows.
func (t *Tx) Get(ctx context.Context, query string, args []interface{}, dest ...interface{}) error {
	return t.x.QueryRowContext(ctx, query, args...).Scan(dest...)
}

// All executes a query and returns the resulting *sql.Rows for the
// caller to scan and close.
func (t *Tx) All(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return t.x.QueryContext(ctx, query, args...)
}

// Transaction runs fn inside a BEGIN IMMEDIATE transaction, committing on
// success and rolling back on error or panic. IMMEDIATE acquires the
// write lock up front so concurrent writers serialize instead of
// discovering a conflict mid-transaction. Any error returned by fn, or a
// constraint violation in one of its statements, rolls back every write
// made within the callback.
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) (err error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return errs.Wrap(errs.StoreUnavailable, "sqlite.conn", "failed to acquire connection", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return errs.Wrap(errs.StoreUnavailable, "sqlite.begin", "failed to begin immediate transaction", err)
	}

	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	if err := fn(ctx, &Tx{x: conn}); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return errs.Wrap(errs.StoreUnavailable, "sqlite.commit", "failed to commit transaction", err)
	}
	committed = true
	return nil
}
