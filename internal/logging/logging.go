// Package logging builds the logrus loggers used by the CLI and the daemon.
package logging

import (
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// New returns a text logger writing to w at the named level.
func New(level string, w io.Writer) (*log.Logger, error) {
	return build(level, w, &log.TextFormatter{DisableTimestamp: true})
}

// NewJSON returns a JSON logger writing to w at the named level.
func NewJSON(level string, w io.Writer) (*log.Logger, error) {
	return build(level, w, &log.JSONFormatter{})
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

func build(level string, w io.Writer, f log.Formatter) (*log.Logger, error) {
	lvl := log.InfoLevel
	if level = strings.TrimSpace(level); level != "" {
		var err error
		if lvl, err = log.ParseLevel(level); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}
	l := log.New()
	l.SetOutput(w)
	l.SetLevel(lvl)
	l.SetFormatter(f)
	return l, nil
}
