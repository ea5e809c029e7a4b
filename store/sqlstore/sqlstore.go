/*
Package sqlstore provides a database/sql implementation of the fuel
storage interfaces for SQLite and PostgreSQL.

PURPOSE:
  Implements fuel.TxStore and auth.UserStore with one set of queries.
  Statements are written with "?" placeholders and rebound to "$n" for
  PostgreSQL.

DRIVERS:
  sqlite    github.com/mattn/go-sqlite3   (default, file or ":memory:")
  postgres  github.com/jackc/pgx/v5/stdlib

KEY TABLES:
  fuel_containers:   reservoirs with maintained current_level and genesis initial_level
  fuel_additions:    refill ledger (immutable)
  fuel_transactions: dispense ledger (deletable with credit-back)
  vehicles, vehicle_types, sectors, users

COMPARE-AND-DECREMENT:
  DecrementLevel is a single conditional UPDATE:

    UPDATE fuel_containers SET current_level = current_level - ?
    WHERE id = ? AND current_level >= ?

  PostgreSQL takes the row lock and re-checks the predicate after any
  concurrent writer commits. SQLite serialises writers on its single
  connection. Either way the level cannot go negative.

CONCURRENCY:
  SQLite runs with one open connection (WAL, busy timeout) so a
  transaction owns the database until it commits. PostgreSQL uses the
  pool and relies on row locks.

MIGRATION:
  Schema is versioned with goose; SQL files are embedded per dialect
  under migrations/. Open does not migrate; call Migrate.

USAGE:
  store, err := sqlstore.Open("sqlite", "./data/bidon.db")
  if err != nil {
      return err
  }
  defer store.Close()
  if err := store.Migrate(ctx); err != nil {
      return err
  }
  ledger := fuel.NewLedger(store)

SEE ALSO:
  - ../../fuel/store.go: Interface definitions
  - ../../fuel/store/memory.go: In-memory implementation for testing
*/
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/zoxknez/bidon/auth"
	"github.com/zoxknez/bidon/fuel"
)

// =============================================================================
// DIALECT
// =============================================================================

// Dialect selects the SQL flavour and driver.
type Dialect string

const (
	SQLite   Dialect = "sqlite3"
	Postgres Dialect = "postgres"
)

// ParseDialect maps a configured driver name to a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	}
	return "", fmt.Errorf("unsupported database driver %q", driver)
}

func (d Dialect) driverName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite3"
}

func (d Dialect) migrationsDir() string {
	if d == Postgres {
		return "migrations/postgres"
	}
	return "migrations/sqlite"
}

// lockClause is appended to reads that precede a write of the same row.
// SQLite needs none because a transaction holds the only connection.
func (d Dialect) lockClause() string {
	if d == Postgres {
		return " FOR UPDATE"
	}
	return ""
}

// rebind rewrites "?" placeholders as "$1", "$2", ... for PostgreSQL.
func (d Dialect) rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
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

// =============================================================================
// STORE
// =============================================================================

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries holds every statement; it runs against either the pool or a
// single *sql.Tx.
type queries struct {
	q       querier
	dialect Dialect
}

func (q *queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.q.ExecContext(ctx, q.dialect.rebind(query), args...)
}

func (q *queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.q.QueryContext(ctx, q.dialect.rebind(query), args...)
}

func (q *queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.q.QueryRowContext(ctx, q.dialect.rebind(query), args...)
}

// Store implements fuel.TxStore and auth.UserStore.
type Store struct {
	queries
	db *sql.DB
}

// Open connects to the database. dsn is a file path (or ":memory:") for
// SQLite and a connection URL for PostgreSQL.
func Open(driver, dsn string) (*Store, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}

	if dialect == SQLite && !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dialect == SQLite {
		db.SetMaxOpenConns(1)
	}

	return &Store{queries: queries{q: db, dialect: dialect}, db: db}, nil
}

// Dialect reports which SQL flavour the store speaks.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// DB exposes the pool for health checks.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(fuel.Store) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&queries{q: sqlTx, dialect: s.dialect}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Compile-time interface checks
var (
	_ fuel.TxStore   = (*Store)(nil)
	_ fuel.Store     = (*queries)(nil)
	_ auth.UserStore = (*Store)(nil)
)
