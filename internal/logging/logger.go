// Package logging provides structured logging configuration using log/slog.
//
// The terminal belongs to the TUI, so logs go to a file. Each process run
// gets a session id that is carried through contexts so every entry of a
// run can be correlated.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type sessionKey struct{}

// Setup configures the global slog logger to append to path and returns
// the file so the caller can close it on exit.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
func Setup(level, path string) (io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	SetupWriter(level, f)
	return f, nil
}

// SetupWriter installs a text handler writing to w.
func SetupWriter(level string, w io.Writer) {
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)})
	slog.SetDefault(slog.New(handler))
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithSession returns a context carrying a fresh session id.
func WithSession(ctx context.Context) context.Context {
	return context.WithValue(ctx, sessionKey{}, uuid.NewString())
}

// SessionID returns the session id stored in ctx, if any.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// FromContext returns the default logger, tagged with the session id when
// ctx carries one.
//
// Usage:
//
//	logging.FromContext(ctx).Info("table saved", "table", name)
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if id := SessionID(ctx); id != "" {
		logger = logger.With("session_id", id)
	}
	return logger
}

// WithFields returns a logger with additional structured fields.
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
