package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver (cgo)
	_ "modernc.org/sqlite"             // SQLite driver (pure Go)

	"github.com/roach88/qset/internal/querysql"
)

// Driver names accepted by Open.
const (
	DriverSQLite3  = "sqlite3"  // github.com/mattn/go-sqlite3
	DriverSQLite   = "sqlite"   // modernc.org/sqlite
	DriverPostgres = "postgres" // github.com/lib/pq
	DriverMySQL    = "mysql"    // github.com/go-sql-driver/mysql
)

// Config selects a driver and data source.
type Config struct {
	// Driver is one of the Driver* constants; DriverSQLite3 when empty.
	Driver string
	DSN    string
}

// Store runs statements over database/sql. It implements the executor
// contract the query-set consumes.
type Store struct {
	db      *sql.DB
	driver  string
	dialect querysql.Dialect
}

// Open connects to the database described by cfg and applies per-driver
// session settings.
//
// SQLite connections are configured with:
//   - WAL mode for concurrent reads during writes
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//   - case_sensitive_like, so LIKE matches case the way the other
//     dialects' LIKE does
//
// SQLite is limited to one connection: a ":memory:" database exists per
// connection, and SQLite only supports one writer at a time anyway.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	driver, err := normalizeDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}
	dialect, err := querysql.DialectFor(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if isSQLite(driver) {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := applyPragmas(ctx, db, driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return &Store{db: db, driver: driver, dialect: dialect}, nil
}

func normalizeDriver(name string) (string, error) {
	switch strings.ToLower(name) {
	case "", DriverSQLite3:
		return DriverSQLite3, nil
	case DriverSQLite:
		return DriverSQLite, nil
	case DriverPostgres, "postgresql":
		return DriverPostgres, nil
	case DriverMySQL:
		return DriverMySQL, nil
	default:
		return "", fmt.Errorf("unsupported driver %q (want sqlite3, sqlite, postgres or mysql)", name)
	}
}

func isSQLite(driver string) bool {
	return driver == DriverSQLite3 || driver == DriverSQLite
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver returns the normalized driver name.
func (s *Store) Driver() string { return s.driver }

// Dialect returns the SQL dialect matching the driver.
func (s *Store) Dialect() querysql.Dialect { return s.dialect }

// Query runs a statement and returns every row as raw driver values in
// column order.
func (s *Store) Query(ctx context.Context, query string, params []any) ([][]any, error) {
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	out := [][]any{}
	for rows.Next() {
		row := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range row {
			dest[i] = &row[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// Exec runs a statement and returns the number of rows it affected.
func (s *Store) Exec(ctx context.Context, query string, params []any) (int64, error) {
	res, err := s.db.ExecContext(ctx, query, params...)
	if err != nil {
		return 0, fmt.Errorf("exec: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// ExecScript runs a script of semicolon-separated statements one at a
// time, for schema and fixture setup. Statements run outside any
// transaction; the first failure stops the script.
func (s *Store) ExecScript(ctx context.Context, script string) error {
	for i, stmt := range SplitStatements(script) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
	}
	return nil
}

// applyPragmas sets required per-driver session configuration.
func applyPragmas(ctx context.Context, db *sql.DB, driver string) error {
	var pragmas []string
	switch driver {
	case DriverSQLite3, DriverSQLite:
		pragmas = []string{
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = NORMAL",
			"PRAGMA busy_timeout = 5000",
			"PRAGMA foreign_keys = ON",
			"PRAGMA case_sensitive_like = ON",
		}
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
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
