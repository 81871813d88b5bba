package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/lherron/boardq/internal/cache"
	"github.com/lherron/boardq/internal/config"
	"github.com/lherron/boardq/internal/db"
	"github.com/lherron/boardq/internal/logging"
	"github.com/lherron/boardq/internal/optimistic"
	"github.com/lherron/boardq/internal/server"
	"github.com/lherron/boardq/internal/store"
	"github.com/lherron/boardq/internal/webhooks"
)

// DaemonOptions configures the boardqd daemon. Empty fields fall back to
// the loaded config.
type DaemonOptions struct {
	Addr     string
	Unix     string
	Token    string
	DBPath   string
	RedisURL string
}

// ServeDaemon starts the boardqd HTTP API and blocks until ctx is cancelled
// or the listener fails.
func ServeDaemon(ctx context.Context, opts DaemonOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.DBPath != "" {
		cfg.DBPath = opts.DBPath
	}
	if opts.Addr != "" {
		cfg.ListenAddr = opts.Addr
	}
	if opts.RedisURL != "" {
		cfg.RedisURL = opts.RedisURL
	}

	logger, err := logging.NewJSON(cfg.LogLevel, os.Stderr)
	if err != nil {
		return err
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()
	if err := database.RequiresMigrationError(); err != nil {
		return err
	}

	st := store.New(database)
	var remote optimistic.Remote = st
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid redis url: %w", err)
		}
		rc := redis.NewClient(redisOpts)
		defer rc.Close()
		if err := rc.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("redis unreachable; board reads fall through to sqlite")
		}
		remote = cache.New(st, rc, cfg.CacheTTL, logger)
	}

	e := server.New(server.Options{
		Directory: st,
		Remote:    remote,
		Token:     opts.Token,
		Notifier:  webhooks.New(cfg.WebhookURLs, logger),
		Logger:    logger,
	})

	var listener net.Listener
	if opts.Unix != "" {
		_ = os.Remove(opts.Unix)
		listener, err = net.Listen("unix", opts.Unix)
	} else {
		listener, err = net.Listen("tcp", cfg.ListenAddr)
	}
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	e.Listener = listener

	logger.WithFields(log.Fields{
		"addr":  listener.Addr().String(),
		"db":    cfg.DBPath,
		"cache": cfg.RedisURL != "",
		"hooks": len(cfg.WebhookURLs),
	}).Info("boardqd listening")

	errc := make(chan error, 1)
	go func() { errc <- e.Start("") }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	return e.Shutdown(shutdownCtx)
}
