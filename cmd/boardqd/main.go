package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lherron/boardq/internal/cli"
)

func main() {
	addr := flag.String("addr", "", "Listen address (default 127.0.0.1:7181, or BOARDQ_ADDR)")
	unixPath := flag.String("unix", os.Getenv("BOARDQD_UNIX"), "Listen on unix socket path")
	token := flag.String("token", os.Getenv("BOARDQD_TOKEN"), "Shared token for local auth")
	dbPath := flag.String("db", "", "Database path override (defaults to config)")
	redisURL := flag.String("redis", "", "Redis URL for the board cache (defaults to BOARDQ_REDIS_URL)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := cli.DaemonOptions{
		Addr:     *addr,
		Unix:     *unixPath,
		Token:    *token,
		DBPath:   *dbPath,
		RedisURL: *redisURL,
	}

	if err := cli.ServeDaemon(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
