// Package appctx provides a shared bootstrap helper for CLI commands.
// It centralizes config loading, logging, database opening and board
// resolution to reduce boilerplate across commands.
package appctx

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lherron/boardq/internal/config"
	"github.com/lherron/boardq/internal/db"
	"github.com/lherron/boardq/internal/id"
	"github.com/lherron/boardq/internal/logging"
	"github.com/lherron/boardq/internal/optimistic"
	"github.com/lherron/boardq/internal/render"
	"github.com/lherron/boardq/internal/store"
)

// App holds the shared application context for commands.
type App struct {
	// Config is the loaded configuration with flag overrides applied
	Config *config.Config

	Log *log.Logger

	// DB, Store and Coordinator are nil if NeedsDB is false
	DB          *db.DB
	Store       *store.Store
	Coordinator *optimistic.Coordinator
}

// Close releases resources held by the App.
// Safe to call multiple times.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
		a.DB = nil
	}
}

// Options configures the bootstrap behavior.
type Options struct {
	// NeedsDB indicates whether to open the database.
	NeedsDB bool
}

// DefaultOptions returns default options (DB required).
func DefaultOptions() Options {
	return Options{NeedsDB: true}
}

// RunFunc is the signature for command run functions.
type RunFunc func(app *App, cmd *cobra.Command, args []string) error

// WithApp wraps a command's run function with shared bootstrap logic.
// The database is closed automatically when the wrapped function returns.
func WithApp(opts Options, fn RunFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := Bootstrap(cmd, opts)
		if err != nil {
			return err
		}
		defer app.Close()

		return fn(app, cmd, args)
	}
}

// Bootstrap initializes the App according to the given options.
// Callers are responsible for calling App.Close() when done.
func Bootstrap(cmd *cobra.Command, opts Options) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	applyFlags(cmd, cfg)

	logger, err := logging.New(cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	app := &App{Config: cfg, Log: logger}

	if opts.NeedsDB {
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := database.RequiresMigrationError(); err != nil {
			database.Close()
			return nil, err
		}
		app.DB = database
		app.Store = store.New(database)
		app.Coordinator = optimistic.New(app.Store, logger)
	}

	return app, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	override := func(name string, dst *string) {
		if f := cmd.Flag(name); f != nil {
			if v := strings.TrimSpace(f.Value.String()); v != "" {
				*dst = v
			}
		}
	}
	override("db", &cfg.DBPath)
	override("board", &cfg.DefaultBoard)
	override("output", &cfg.Output)
	override("log-level", &cfg.LogLevel)
}

// BoardID returns the board a command operates on: the first of explicit,
// --board and the configured default that is set.
func (a *App) BoardID(explicit string) (string, error) {
	boardID := strings.TrimSpace(explicit)
	if boardID == "" {
		boardID = a.Config.DefaultBoard
	}
	if boardID == "" {
		return "", fmt.Errorf("no board selected (pass a board ID, use --board, or set BOARDQ_BOARD)")
	}
	return id.Expect(boardID, id.TypeBoard)
}

// Renderer returns a renderer for the configured output format.
func (a *App) Renderer(cmd *cobra.Command) (*render.Renderer, error) {
	format, err := render.ParseFormat(a.Config.Output)
	if err != nil {
		return nil, err
	}
	porcelain := false
	if f := cmd.Flag("porcelain"); f != nil {
		porcelain = f.Value.String() == "true"
	}
	return render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: format, Porcelain: porcelain}), nil
}
