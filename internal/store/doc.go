// Package store executes compiled statements against a database.
//
// Store wraps database/sql and supports four drivers:
//   - sqlite3: github.com/mattn/go-sqlite3 (default)
//   - sqlite: modernc.org/sqlite, cgo-free
//   - postgres: github.com/lib/pq
//   - mysql: github.com/go-sql-driver/mysql
//
// PgxExecutor runs on a native jackc/pgx pool instead of database/sql.
// InstrumentedExecutor wraps either with Prometheus metrics.
//
// Rows are returned as raw driver values; decoding into field types is
// the caller's job (see meta.Field.Decode). The store never retries and
// never opens transactions.
//
// # Database Configuration
//
// SQLite connections get:
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//   - case_sensitive_like=ON: LIKE compares case
package store
