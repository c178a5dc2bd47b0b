// Package logger configures structured JSON logging.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Setup returns a JSON slog.Logger writing to w.
// Debug records are kept outside production.
func Setup(w io.Writer, env string) *slog.Logger {
	level := slog.LevelDebug
	if env == "production" {
		level = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}

// SetupDefault installs the JSON logger as the global default and returns it.
// A nil writer means os.Stdout.
func SetupDefault(w io.Writer, env string) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	logger := Setup(w, env)
	slog.SetDefault(logger)
	return logger
}
