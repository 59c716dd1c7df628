package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/ordset/internal/querysql"
	"github.com/roach88/ordset/internal/txscope"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (items table)
// 1 - Added subset lookup index on items(list_id, category, idx)
const currentSchemaVersion = 1

// DefaultBusyTimeout is how long a connection waits on a locked database.
const DefaultBusyTimeout = 5 * time.Second

// Options configures Open.
type Options struct {
	// StrictOrdering enforces unique (subset, idx) for active items.
	StrictOrdering bool

	// BusyTimeout bounds waits on a locked database. Zero means
	// DefaultBusyTimeout.
	BusyTimeout time.Duration

	// IDs generates item IDs. Nil means UUIDv7Generator.
	IDs IDGenerator

	// Now returns the creation timestamp for new items. Nil means time.Now.
	Now func() time.Time
}

// Store provides durable storage for ordered items.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db       *sql.DB
	compiler *querysql.SQLCompiler
	strict   bool
	ids      IDGenerator
	now      func() time.Time
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// This function is idempotent - safe to call multiple times.
func Open(path string, opts Options) (*Store, error) {
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = DefaultBusyTimeout
	}
	if opts.IDs == nil {
		opts.IDs = UUIDv7Generator{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	// Open database (creates file if doesn't exist).
	// _txlock=immediate makes BEGIN take the write lock, so two writers
	// serialize at BEGIN instead of failing at their first write.
	db, err := sql.Open("sqlite3", path+"?_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db, opts.BusyTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	if err := applyOrderingConstraint(db, opts.StrictOrdering); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply ordering constraint: %w", err)
	}

	return &Store{
		db:       db,
		compiler: querysql.NewSQLCompiler(),
		strict:   opts.StrictOrdering,
		ids:      opts.IDs,
		now:      opts.Now,
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Strict reports whether the unique ordering constraint is enforced.
func (s *Store) Strict() bool {
	return s.strict
}

// BeginTx starts a transaction. It implements txscope.Beginner.
func (s *Store) BeginTx(ctx context.Context) (txscope.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// querier is the subset of *sql.DB and *sql.Tx the store uses.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns the ambient transaction from ctx, or the database.
func (s *Store) conn(ctx context.Context) querier {
	if tx, ok := txscope.FromContext(ctx, s); ok {
		if sqlTx, ok := tx.(*sql.Tx); ok {
			return sqlTx
		}
	}
	return s.db
}

// IsConflict reports whether err is a uniqueness violation or lock
// contention that a caller may resolve by retrying.
func IsConflict(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code {
	case sqlite3.ErrBusy, sqlite3.ErrLocked:
		return true
	case sqlite3.ErrConstraint:
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB, busyTimeout time.Duration) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the index every subset lookup and shift filters on.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_items_subset
		ON items(list_id, category, idx)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// applyOrderingConstraint creates or drops the partial unique index that
// keeps two active items off the same position. It is not a versioned
// migration because it follows Options on every Open.
func applyOrderingConstraint(db *sql.DB, strict bool) error {
	if !strict {
		_, err := db.Exec(`DROP INDEX IF EXISTS idx_items_position_unique`)
		return err
	}
	_, err := db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_items_position_unique
		ON items(ifnull(list_id, ''), category, idx)
		WHERE idx >= 0
	`)
	return err
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
