package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported values for the database driver setting.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var _ Store = (*SQLStore)(nil)

// Options tunes the connection pool. Zero values keep the driver defaults.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// SQLStore implements Store on top of sqlx, against either an embedded
// SQLite file or a Postgres server. Queries are written with ? placeholders
// and rebound for the active driver.
type SQLStore struct {
	db *sqlx.DB

	// q is db outside a transaction and the *sqlx.Tx inside WithTx.
	q sqlx.ExtContext

	driver string
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLStore, error) {
	return Open(context.Background(), DriverSQLite, dbPath, Options{})
}

// Open connects to the database named by driver and dsn and runs any
// pending schema migrations.
func Open(ctx context.Context, driver, dsn string, opts Options) (*SQLStore, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s db: %w", driver, err)
	}

	if driver == DriverSQLite {
		// A second connection to :memory: would see an empty database, and
		// SQLite serialises writers anyway.
		db.SetMaxOpenConns(1)

		// Enable WAL mode for better concurrent read performance.
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling WAL mode: %w", err)
		}

		// Enable foreign keys.
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling foreign keys: %w", err)
		}
	} else {
		if opts.MaxOpenConns > 0 {
			db.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.MaxIdleConns > 0 {
			db.SetMaxIdleConns(opts.MaxIdleConns)
		}
		if opts.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(opts.ConnMaxLifetime)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("pinging postgres: %w", err)
		}
	}

	s := &SQLStore{db: db, q: db, driver: driver}
	if err := s.runMigrations(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Driver returns the name of the active database driver.
func (s *SQLStore) Driver() string {
	return s.driver
}

// WithTx runs fn inside a transaction. Nested calls reuse the outer
// transaction.
func (s *SQLStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if _, ok := s.q.(*sqlx.Tx); ok {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&SQLStore{db: s.db, q: tx, driver: s.driver}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLStore) runMigrations(ctx context.Context) error {
	migrations := sqliteMigrations
	existsQuery := "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'"
	if s.driver == DriverPostgres {
		migrations = postgresMigrations
		existsQuery = "SELECT COUNT(*) FROM information_schema.tables WHERE table_name = 'schema_version'"
	}

	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	if err := s.db.GetContext(ctx, &tableCount, existsQuery); err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err := s.db.GetContext(ctx, &currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

func (s *SQLStore) get(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.GetContext(ctx, s.q, dest, s.q.Rebind(query), args...)
}

func (s *SQLStore) selectAll(ctx context.Context, dest any, query string, args ...any) error {
	return sqlx.SelectContext(ctx, s.q, dest, s.q.Rebind(query), args...)
}

func (s *SQLStore) exec(ctx context.Context, query string, args ...any) (int64, error) {
	result, err := s.q.ExecContext(ctx, s.q.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}

// isUniqueViolation reports whether err came from a UNIQUE constraint.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// utc normalises timestamps before they are written so that text-encoded
// SQLite times compare in instant order.
func utc(t time.Time) time.Time {
	return t.UTC()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// appendPaging adds LIMIT/OFFSET clauses for positive values.
func appendPaging(query string, limit, offset int) string {
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", offset)
	}
	return query
}
