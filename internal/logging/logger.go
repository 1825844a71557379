// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Init installs the default slog logger. Production writes JSON for log
// aggregation; everything else gets the text handler. level overrides the
// environment default when it parses ("debug", "info", "warn", "error").
func Init(environment, level string) {
	slog.SetDefault(slog.New(NewHandler(os.Stdout, environment, level)))
}

// NewHandler builds the handler Init installs, writing to w.
func NewHandler(w io.Writer, environment, level string) slog.Handler {
	production := strings.EqualFold(environment, "production")

	lvl := slog.LevelDebug
	if production {
		lvl = slog.LevelInfo
	}
	if level != "" {
		var parsed slog.Level
		if err := parsed.UnmarshalText([]byte(level)); err == nil {
			lvl = parsed
		}
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if production {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// WithSession returns a logger with the session id attached.
// Use this for all logging within one build-generation run.
func WithSession(sessionID string) *slog.Logger {
	return slog.With("session_id", sessionID)
}

// WithPart returns a logger scoped to one category being resolved.
func WithPart(logger *slog.Logger, category, modelName string) *slog.Logger {
	return logger.With(
		"category", category,
		"model_name", modelName,
	)
}
