// Package testutil holds helpers shared by package tests.
package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/lherron/boardq/internal/db"
)

// TempDatabase creates a migrated SQLite database in a temp directory. It is
// closed when the test finishes.
func TempDatabase(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}
	t.Cleanup(func() {
		database.Close()
	})
	return database
}

// TempDB is TempDatabase for callers that only need the *sql.DB and its path.
func TempDB(t *testing.T) (*sql.DB, string) {
	t.Helper()
	database := TempDatabase(t)
	return database.DB, database.Path()
}

// AssertNoError asserts that an error is nil
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}
