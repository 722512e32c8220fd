// Package logger installs the process-wide slog logger used by the
// wormsner commands.
package logger

import (
	"context"
	"io"
	"log/slog"
)

// Setup installs a default logger writing to w at the given level and
// format ("text" or "json").
func Setup(level string, format string, w io.Writer) {
	var handler slog.Handler
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}
	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func WithComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

// DiagnosticsEnabled reports whether the default logger emits debug records.
func DiagnosticsEnabled() bool {
	return slog.Default().Enabled(context.Background(), slog.LevelDebug)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
