package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const peopleSchema = `
CREATE TABLE person (
	id      INTEGER PRIMARY KEY,
	name    TEXT NOT NULL,
	age     INTEGER NOT NULL,
	active  BOOLEAN NOT NULL DEFAULT 1
);
INSERT INTO person (id, name, age) VALUES (1, 'Ann', 34);
INSERT INTO person (id, name, age) VALUES (2, 'Bob; Jr.', 17);
INSERT INTO person (id, name, age) VALUES (3, 'Cy', 51);
`

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(context.Background(), Config{Driver: DriverSQLite3, DSN: path})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// createPeopleStore creates a store holding the person fixture.
func createPeopleStore(t *testing.T) *Store {
	t.Helper()
	s := createTestStore(t)
	require.NoError(t, s.ExecScript(context.Background(), peopleSchema))
	return s
}
