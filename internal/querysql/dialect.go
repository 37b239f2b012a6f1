package querysql

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect covers the parts of SQL text that differ between databases:
// identifier quoting, placeholders, LIMIT/OFFSET and pattern matching.
// Everything else the compiler emits is portable.
type Dialect interface {
	// Name is the canonical dialect name: "sqlite", "postgres" or "mysql".
	Name() string

	// Quote quotes an identifier, doubling embedded quote characters.
	Quote(ident string) string

	// Placeholder returns the marker for the n-th bound parameter (1-based).
	Placeholder(n int) string

	// LimitOffset renders the window clause without a leading space, or ""
	// when the window is the whole result.
	LimitOffset(offset, length int, bounded bool) string

	// Like renders a pattern match of column against placeholder. The
	// pattern uses backslash as its escape character.
	Like(column, placeholder string, insensitive bool) string
}

var (
	// SQLite expects connections with PRAGMA case_sensitive_like=ON so
	// that LIKE distinguishes case; store.Open sets it.
	SQLite Dialect = sqliteDialect{}

	Postgres Dialect = postgresDialect{}

	// MySQL assumes the default sql_mode, where backslash escapes inside
	// string literals.
	MySQL Dialect = mysqlDialect{}
)

// DialectFor maps a driver or dialect name to a Dialect.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	default:
		return nil, fmt.Errorf("unsupported dialect %q", name)
	}
}

func quoteWith(ident string, q string) string {
	return q + strings.ReplaceAll(ident, q, q+q) + q
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string              { return "sqlite" }
func (sqliteDialect) Quote(ident string) string { return quoteWith(ident, `"`) }
func (sqliteDialect) Placeholder(int) string    { return "?" }

func (sqliteDialect) LimitOffset(offset, length int, bounded bool) string {
	switch {
	case bounded && offset > 0:
		return "LIMIT " + strconv.Itoa(length) + " OFFSET " + strconv.Itoa(offset)
	case bounded:
		return "LIMIT " + strconv.Itoa(length)
	case offset > 0:
		// SQLite has no OFFSET without LIMIT; -1 means no limit.
		return "LIMIT -1 OFFSET " + strconv.Itoa(offset)
	}
	return ""
}

func (sqliteDialect) Like(column, placeholder string, insensitive bool) string {
	if insensitive {
		return "LOWER(" + column + ") LIKE LOWER(" + placeholder + `) ESCAPE '\'`
	}
	return column + " LIKE " + placeholder + ` ESCAPE '\'`
}

type postgresDialect struct{}

func (postgresDialect) Name() string              { return "postgres" }
func (postgresDialect) Quote(ident string) string { return quoteWith(ident, `"`) }
func (postgresDialect) Placeholder(n int) string  { return "$" + strconv.Itoa(n) }

func (postgresDialect) LimitOffset(offset, length int, bounded bool) string {
	switch {
	case bounded && offset > 0:
		return "LIMIT " + strconv.Itoa(length) + " OFFSET " + strconv.Itoa(offset)
	case bounded:
		return "LIMIT " + strconv.Itoa(length)
	case offset > 0:
		return "OFFSET " + strconv.Itoa(offset)
	}
	return ""
}

func (postgresDialect) Like(column, placeholder string, insensitive bool) string {
	if insensitive {
		return column + " ILIKE " + placeholder + ` ESCAPE '\'`
	}
	return column + " LIKE " + placeholder + ` ESCAPE '\'`
}

type mysqlDialect struct{}

// mysqlNoLimit is the documented way to express OFFSET without LIMIT.
const mysqlNoLimit = "18446744073709551615"

func (mysqlDialect) Name() string              { return "mysql" }
func (mysqlDialect) Quote(ident string) string { return quoteWith(ident, "`") }
func (mysqlDialect) Placeholder(int) string    { return "?" }

func (mysqlDialect) LimitOffset(offset, length int, bounded bool) string {
	switch {
	case bounded && offset > 0:
		return "LIMIT " + strconv.Itoa(length) + " OFFSET " + strconv.Itoa(offset)
	case bounded:
		return "LIMIT " + strconv.Itoa(length)
	case offset > 0:
		return "LIMIT " + mysqlNoLimit + " OFFSET " + strconv.Itoa(offset)
	}
	return ""
}

func (mysqlDialect) Like(column, placeholder string, insensitive bool) string {
	if insensitive {
		return "LOWER(" + column + ") LIKE LOWER(" + placeholder + `) ESCAPE '\\'`
	}
	return column + " LIKE BINARY " + placeholder + ` ESCAPE '\\'`
}

// escapeLike escapes the LIKE wildcards in s so it matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
