package testutil

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/qset/internal/compiler"
	"github.com/roach88/qset/internal/meta"
	"github.com/roach88/qset/internal/store"
)

// Testdata returns the path of a file under the repository's testdata
// directory.
func Testdata(parts ...string) string {
	_, file, _, _ := runtime.Caller(0)
	root := filepath.Join(filepath.Dir(file), "..", "..", "testdata")
	return filepath.Join(append([]string{root}, parts...)...)
}

// OpenFixtureStore opens an in-memory SQLite store loaded with
// testdata/schema/sqlite.sql.
func OpenFixtureStore(t testing.TB) *store.Store {
	t.Helper()
	s := OpenEmptyStore(t)

	script, err := os.ReadFile(Testdata("schema", "sqlite.sql"))
	require.NoError(t, err)
	require.NoError(t, s.ExecScript(context.Background(), string(script)))
	return s
}

// FixtureDB writes testdata/schema/sqlite.sql into a SQLite file under a
// temp dir and returns its path, for code that opens databases by DSN.
func FixtureDB(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.db")

	s, err := store.Open(context.Background(), store.Config{Driver: store.DriverSQLite3, DSN: path})
	require.NoError(t, err)
	defer s.Close()

	script, err := os.ReadFile(Testdata("schema", "sqlite.sql"))
	require.NoError(t, err)
	require.NoError(t, s.ExecScript(context.Background(), string(script)))
	return path
}

// OpenEmptyStore opens an in-memory SQLite store with no tables.
func OpenEmptyStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), store.Config{Driver: store.DriverSQLite3, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// FixtureRegistry loads testdata/models.
func FixtureRegistry(t testing.TB) *meta.Registry {
	t.Helper()
	reg, err := compiler.LoadRegistry(Testdata("models"))
	require.NoError(t, err)
	return reg
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
