// Package tlog wraps log/slog the way cesargomez89-navidrums/internal/logger
// wraps it, scaled down to a library's needs: the zero value discards
// everything, so callers that never construct a Logger pay nothing.
package tlog

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger. The zero value is valid and logs nowhere.
type Logger struct {
	s *slog.Logger
}

// Config selects level and output format, mirroring navidrums' logger.Config.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

// New creates a Logger writing to stderr per cfg.
func New(cfg Config) *Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	return &Logger{s: slog.New(h)}
}

// With returns a Logger tagged with a component attribute.
func (l *Logger) With(component string) *Logger {
	if l == nil || l.s == nil {
		return l
	}
	return &Logger{s: l.s.With("component", component)}
}

func (l *Logger) Debug(msg string, args ...any) {
	if l == nil || l.s == nil {
		return
	}
	l.s.Debug(msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	if l == nil || l.s == nil {
		return
	}
	l.s.Warn(msg, args...)
}
