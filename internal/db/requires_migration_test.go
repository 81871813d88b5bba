package db_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/lherron/boardq/internal/db"
)

func TestRequiresMigrationError(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("could not open db: %v", err)
	}
	defer database.Close()

	// Fresh database: everything pending, no version yet.
	err = database.RequiresMigrationError()
	if err == nil || !strings.Contains(err.Error(), "version: none") {
		t.Fatalf("expected pending-migration error with no version, got %v", err)
	}

	// Record only the baseline as applied.
	_, err = database.Exec(`
		CREATE TABLE schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
		)
	`)
	if err != nil {
		t.Fatalf("could not create schema_migrations: %v", err)
	}
	if _, err := database.Exec(`INSERT INTO schema_migrations (version) VALUES ('000001_baseline.sql')`); err != nil {
		t.Fatalf("could not insert migration: %v", err)
	}

	errStr := database.RequiresMigrationError().Error()
	for _, want := range []string{dbPath, "000001_baseline.sql", "1 pending migration", "boardq init"} {
		if !strings.Contains(errStr, want) {
			t.Errorf("error should contain %q, got: %s", want, errStr)
		}
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("could not open db: %v", err)
	}
	defer database.Close()

	applied, err := database.MigrateWithInfo()
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if len(applied) != 2 {
		t.Errorf("expected 2 migrations applied, got %v", applied)
	}

	applied, err = database.MigrateWithInfo()
	if err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("expected nothing applied on second run, got %v", applied)
	}
	if err := database.RequiresMigrationError(); err != nil {
		t.Errorf("expected no pending migrations, got %v", err)
	}
}
