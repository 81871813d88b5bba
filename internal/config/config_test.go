package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate points HOME and the working directory at fresh temp dirs and
// clears BOARDQ_* variables for the duration of the test.
func isolate(t *testing.T) (home, cwd string) {
	t.Helper()
	home = t.TempDir()
	cwd = t.TempDir()
	t.Setenv("HOME", home)
	for _, v := range []string{"BOARDQ_DB_PATH", "BOARDQ_DB_PATH_FILE", "BOARDQ_LOG_LEVEL", "BOARDQ_OUTPUT",
		"BOARDQ_ADDR", "BOARDQ_REDIS_URL", "BOARDQ_REDIS_URL_FILE", "BOARDQ_CACHE_TTL", "BOARDQ_BOARD", "BOARDQ_WEBHOOK_URLS"} {
		t.Setenv(v, "")
	}
	chdir(t, cwd)
	return home, cwd
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	oldCwd, _ := os.Getwd()
	t.Cleanup(func() { os.Chdir(oldCwd) })
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	home, _ := isolate(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "info" || cfg.Output != "table" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.CacheTTL != DefaultCacheTTL {
		t.Errorf("CacheTTL = %v", cfg.CacheTTL)
	}
	want := filepath.Join(home, ".local", "share", "boardq", "boardq.db")
	if cfg.DBPath != want {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, want)
	}
}

func TestLoad_ProjectLocalDB(t *testing.T) {
	_, cwd := isolate(t)
	if err := os.MkdirAll(filepath.Join(cwd, ".boardq"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cwd, LocalDBPath), nil, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DBPath != LocalDBPath {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, LocalDBPath)
	}
}

func TestLoad_Precedence(t *testing.T) {
	home, _ := isolate(t)
	dir := filepath.Join(home, ".config", "boardq")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	yamlCfg := "db_path: /from/yaml.db\noutput: json\ncache_ttl: 2m\ndefault_board: B-00007\nwebhook_urls:\n  - http://localhost:9000/{board_id}\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yamlCfg), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BOARDQ_OUTPUT", "yaml")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DBPath != "/from/yaml.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.Output != "yaml" {
		t.Errorf("env should override yaml, got output %q", cfg.Output)
	}
	if cfg.CacheTTL != 2*time.Minute {
		t.Errorf("CacheTTL = %v", cfg.CacheTTL)
	}
	if cfg.DefaultBoard != "B-00007" {
		t.Errorf("DefaultBoard = %q", cfg.DefaultBoard)
	}
	if len(cfg.WebhookURLs) != 1 || cfg.WebhookURLs[0] != "http://localhost:9000/{board_id}" {
		t.Errorf("WebhookURLs = %v", cfg.WebhookURLs)
	}

	t.Setenv("BOARDQ_WEBHOOK_URLS", "http://a.example/hook,http://b.example/hook")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.WebhookURLs) != 2 {
		t.Errorf("env should replace yaml webhook urls, got %v", cfg.WebhookURLs)
	}
}

func TestLoad_FileVariantAndBadTTL(t *testing.T) {
	_, cwd := isolate(t)
	secret := filepath.Join(cwd, "redis-url")
	if err := os.WriteFile(secret, []byte("redis://cache:6379/2\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("BOARDQ_REDIS_URL_FILE", secret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.RedisURL != "redis://cache:6379/2" {
		t.Errorf("RedisURL = %q", cfg.RedisURL)
	}

	t.Setenv("BOARDQ_CACHE_TTL", "soon")
	if _, err := Load(); err == nil {
		t.Error("expected error for unparsable BOARDQ_CACHE_TTL")
	}
}

func TestFindEnvLocal_InParentDir(t *testing.T) {
	tmpDir := t.TempDir()
	childDir := filepath.Join(tmpDir, "parent", "child")
	if err := os.MkdirAll(childDir, 0755); err != nil {
		t.Fatal(err)
	}
	envPath := filepath.Join(tmpDir, "parent", ".env.local")
	if err := os.WriteFile(envPath, []byte("BOARDQ_BOARD=B-00001"), 0644); err != nil {
		t.Fatal(err)
	}
	chdir(t, childDir)

	result := findEnvLocal()
	// Resolve symlinks for comparison (macOS /var -> /private/var)
	expectedResolved, _ := filepath.EvalSymlinks(envPath)
	resultResolved, _ := filepath.EvalSymlinks(result)
	if resultResolved != expectedResolved {
		t.Errorf("expected %s, got %s", expectedResolved, resultResolved)
	}
}

func TestFindEnvLocal_NotFound(t *testing.T) {
	isolate(t)
	if result := findEnvLocal(); result != "" {
		t.Errorf("expected empty string when no .env.local found, got %s", result)
	}
}
