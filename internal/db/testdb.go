package db

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// NewTestDB returns an in-memory database with the schema applied. It is
// closed when the test ends.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	return openTest(t, ":memory:")
}

// NewTestFileDB is NewTestDB backed by a file in a temporary directory, for
// tests that reopen the database. It returns the file path too.
func NewTestFileDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lotbook.sqlite3")
	return openTest(t, path), path
}

func openTest(t *testing.T, path string) *sql.DB {
	t.Helper()

	database, err := Open(path)
	if err != nil {
		t.Fatalf("opening test database %s: %v", path, err)
	}
	if err := EnsureSchema(database); err != nil {
		database.Close()
		t.Fatalf("applying schema to %s: %v", path, err)
	}

	t.Cleanup(func() { database.Close() })
	return database
}
