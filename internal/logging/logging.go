// Package logging configures the process-wide default slog logger from
// a level name plus an optional output file, returning the opened file
// so the caller can defer its close.
package logging

import (
	"errors"
	"io"
	"log/slog"
	"os"
)

// ConfigureDefaultLogger installs a new default slog logger for level
// and optionally redirects it to logFile. Valid levels are "none",
// "error", "warn", "info", "debug"; any other value is an error. "none"
// installs a discarding handler — hot-path log statements stay guarded
// by a cheap Enabled predicate, but it is false for everything at this
// level regardless. logFile == "" logs to stdout as text; a non-empty
// path opens (creating/truncating) the file and logs JSON to it.
//
// The returned *os.File is nil when logging goes to stdout or is
// disabled; callers should defer its Close when non-nil.
func ConfigureDefaultLogger(level string, logFile string, opts slog.HandlerOptions) (*os.File, error) {
	if level == "none" {
		slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
		return nil, nil
	}

	switch level {
	case "error":
		opts.Level = slog.LevelError
	case "warn":
		opts.Level = slog.LevelWarn
	case "info":
		opts.Level = slog.LevelInfo
	case "debug":
		opts.Level = slog.LevelDebug
	default:
		return nil, errors.New("logging: unrecognized level " + level)
	}

	if logFile == "" {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &opts)))
		return nil, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(f, &opts)))
	return f, nil
}
