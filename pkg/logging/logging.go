// Package logging configures the process-wide slog logger from the CLI's
// verbosity flag. Every other package in this module logs through
// log/slog; this package is the single place that decides the handler
// and level, derived once at startup from a flag value rather than per
// package.
package logging

import (
	"io"
	"log/slog"
)

// Init installs a text-handler slog logger as the process default.
// verbosity maps to slog levels: 0 is Info, 1 is Debug, anything negative
// is clamped to Info; Warn/Error are always enabled regardless of
// verbosity.
func Init(out io.Writer, verbosity int) *slog.Logger {
	level := slog.LevelInfo
	if verbosity > 0 {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
