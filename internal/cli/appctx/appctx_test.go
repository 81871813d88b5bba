package appctx

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/lherron/boardq/internal/db"
)

// isolate keeps config loading away from the developer's home and any
// .env.local above the working directory.
func isolate(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	for _, key := range []string{"BOARDQ_DB_PATH", "BOARDQ_DB_PATH_FILE", "BOARDQ_LOG_LEVEL", "BOARDQ_OUTPUT", "BOARDQ_BOARD"} {
		t.Setenv(key, "")
	}
	return tmpDir
}

func migratedDB(t *testing.T, path string) {
	t.Helper()
	database, err := db.Open(path)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := database.Migrate(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	database.Close()
}

func testCommand(args ...string) *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().String("db", "", "Database path")
	cmd.Flags().String("board", "", "Board")
	cmd.Flags().String("output", "", "Output format")
	cmd.Flags().String("log-level", "", "Log level")
	cmd.Flags().Bool("porcelain", false, "Porcelain")
	cmd.ParseFlags(args)
	return cmd
}

func TestBootstrap_ConfigOnly(t *testing.T) {
	tmpDir := isolate(t)
	t.Setenv("BOARDQ_DB_PATH", filepath.Join(tmpDir, "test.db"))

	app, err := Bootstrap(testCommand(), Options{NeedsDB: false})
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	defer app.Close()

	if app.Config == nil || app.Log == nil {
		t.Fatal("Config and Log should be set")
	}
	if app.DB != nil || app.Store != nil || app.Coordinator != nil {
		t.Error("DB, Store and Coordinator should be nil when NeedsDB is false")
	}
}

func TestBootstrap_WithDB(t *testing.T) {
	tmpDir := isolate(t)
	dbPath := filepath.Join(tmpDir, "test.db")
	migratedDB(t, dbPath)
	t.Setenv("BOARDQ_DB_PATH", dbPath)

	app, err := Bootstrap(testCommand(), DefaultOptions())
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	defer app.Close()

	if app.DB == nil || app.Store == nil || app.Coordinator == nil {
		t.Fatal("DB, Store and Coordinator should be set when NeedsDB is true")
	}
}

func TestBootstrap_PendingMigrations(t *testing.T) {
	tmpDir := isolate(t)
	t.Setenv("BOARDQ_DB_PATH", filepath.Join(tmpDir, "fresh.db"))

	_, err := Bootstrap(testCommand(), DefaultOptions())
	if err == nil {
		t.Fatal("Expected error for unmigrated database")
	}
	if !strings.Contains(err.Error(), "boardq init") {
		t.Errorf("Error should point at 'boardq init', got %q", err.Error())
	}
}

func TestBootstrap_FlagOverrides(t *testing.T) {
	tmpDir := isolate(t)
	envPath := filepath.Join(tmpDir, "env.db")
	overridePath := filepath.Join(tmpDir, "override.db")
	migratedDB(t, envPath)
	migratedDB(t, overridePath)
	t.Setenv("BOARDQ_DB_PATH", envPath)
	t.Setenv("BOARDQ_BOARD", "B-00001")

	cmd := testCommand("--db", overridePath, "--board", "B-00002", "--output", "json", "--log-level", "debug")
	app, err := Bootstrap(cmd, DefaultOptions())
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	defer app.Close()

	if app.Config.DBPath != overridePath {
		t.Errorf("DBPath should be override path %q, got %q", overridePath, app.Config.DBPath)
	}
	if app.Config.DefaultBoard != "B-00002" {
		t.Errorf("DefaultBoard should be B-00002, got %q", app.Config.DefaultBoard)
	}
	if app.Config.Output != "json" {
		t.Errorf("Output should be json, got %q", app.Config.Output)
	}
	if app.Log.GetLevel().String() != "debug" {
		t.Errorf("log level should be debug, got %s", app.Log.GetLevel())
	}
}

func TestBootstrap_InvalidLogLevel(t *testing.T) {
	isolate(t)
	if _, err := Bootstrap(testCommand("--log-level", "loud"), Options{}); err == nil {
		t.Fatal("Expected error for invalid log level")
	}
}

func TestApp_BoardID(t *testing.T) {
	isolate(t)
	app, err := Bootstrap(testCommand(), Options{})
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}

	if _, err := app.BoardID(""); err == nil || !strings.Contains(err.Error(), "no board selected") {
		t.Errorf("expected no board selected error, got %v", err)
	}
	if got, err := app.BoardID(" B-00003 "); err != nil || got != "B-00003" {
		t.Errorf("BoardID(explicit) = %q, %v", got, err)
	}
	if _, err := app.BoardID("L-00001"); err == nil {
		t.Error("expected a column ID to be rejected as board")
	}

	app.Config.DefaultBoard = "B-00007"
	if got, err := app.BoardID(""); err != nil || got != "B-00007" {
		t.Errorf("BoardID(default) = %q, %v", got, err)
	}
}

func TestApp_Renderer(t *testing.T) {
	isolate(t)
	cmd := testCommand("--output", "yaml")
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	app, err := Bootstrap(cmd, Options{})
	if err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	r, err := app.Renderer(cmd)
	if err != nil {
		t.Fatalf("Renderer failed: %v", err)
	}
	if err := r.RenderYAML(map[string]string{"a": "b"}); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "a: b" {
		t.Errorf("unexpected output %q", buf.String())
	}

	app.Config.Output = "xml"
	if _, err := app.Renderer(cmd); err == nil {
		t.Error("expected unknown format error")
	}
}

func TestApp_Close_Multiple(t *testing.T) {
	app := &App{}
	app.Close()
	app.Close()
}
