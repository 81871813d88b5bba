package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// LocalDBPath is the project-local database used when it exists.
	LocalDBPath = ".boardq/boardq.db"

	DefaultListenAddr = "127.0.0.1:7181"
	DefaultCacheTTL   = 30 * time.Second
)

// Config represents the application configuration
type Config struct {
	DBPath       string        `yaml:"db_path"`
	LogLevel     string        `yaml:"log_level"`
	Output       string        `yaml:"output"`
	ListenAddr   string        `yaml:"listen_addr"`
	RedisURL     string        `yaml:"redis_url"`
	CacheTTL     time.Duration `yaml:"cache_ttl"`
	DefaultBoard string        `yaml:"default_board"`
	WebhookURLs  []string      `yaml:"webhook_urls"`
}

// Load loads configuration from multiple sources with precedence:
// 1. Environment variables (BOARDQ_*)
// 2. ./.env.local (dotenv) - walks up parent directories to find it
// 3. ~/.config/boardq/config.yaml (YAML)
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:   "info",
		Output:     "table",
		ListenAddr: DefaultListenAddr,
		CacheTTL:   DefaultCacheTTL,
	}

	// godotenv.Load never overrides variables already set in the environment
	if envPath := findEnvLocal(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	if err := loadYAMLConfig(cfg); err != nil {
		return nil, err
	}

	if dbPath := getEnvOrFile("BOARDQ_DB_PATH", "BOARDQ_DB_PATH_FILE"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if logLevel := os.Getenv("BOARDQ_LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if output := os.Getenv("BOARDQ_OUTPUT"); output != "" {
		cfg.Output = output
	}
	if addr := os.Getenv("BOARDQ_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	if redisURL := getEnvOrFile("BOARDQ_REDIS_URL", "BOARDQ_REDIS_URL_FILE"); redisURL != "" {
		cfg.RedisURL = redisURL
	}
	if ttl := os.Getenv("BOARDQ_CACHE_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("invalid BOARDQ_CACHE_TTL: %w", err)
		}
		cfg.CacheTTL = d
	}
	if board := os.Getenv("BOARDQ_BOARD"); board != "" {
		cfg.DefaultBoard = board
	}
	if hooks := os.Getenv("BOARDQ_WEBHOOK_URLS"); hooks != "" {
		cfg.WebhookURLs = strings.Split(hooks, ",")
	}

	if cfg.DBPath == "" {
		if _, err := os.Stat(LocalDBPath); err == nil {
			cfg.DBPath = LocalDBPath
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get home directory: %w", err)
			}
			cfg.DBPath = filepath.Join(homeDir, ".local", "share", "boardq", "boardq.db")
		}
	}

	return cfg, nil
}

// loadYAMLConfig loads ~/.config/boardq/config.yaml. A missing file is not an error.
func loadYAMLConfig(cfg *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil
	}

	configPath := filepath.Join(homeDir, ".config", "boardq", "config.yaml")
	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", configPath, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", configPath, err)
	}
	return nil
}

// getEnvOrFile gets an environment variable value, or reads it from a file
// if the _FILE variant is set
func getEnvOrFile(envVar, fileVar string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}

	if filePath := os.Getenv(fileVar); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(data))
		}
	}

	return ""
}

// findEnvLocal searches for .env.local starting from cwd and walking up
// parent directories. Stops at the user's home directory.
func findEnvLocal() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	homeDir, _ := os.UserHomeDir()
	if homeDir != "" {
		homeDir = filepath.Clean(homeDir)
	}

	for dir := filepath.Clean(cwd); ; {
		envPath := filepath.Join(dir, ".env.local")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
		parent := filepath.Dir(dir)
		if dir == homeDir || parent == dir {
			return ""
		}
		dir = parent
	}
}
