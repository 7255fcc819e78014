// Package logger builds the slog loggers used by the CLI and server.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// ParseLevel maps a level name to a slog.Level. Unknown names yield info
// and ok=false.
func ParseLevel(level string) (lvl slog.Level, ok bool) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// New creates a JSON logger with the specified level and output
func New(level string, output io.Writer) *slog.Logger {
	lvl, _ := ParseLevel(level)
	return slog.New(slog.NewJSONHandler(output, &slog.HandlerOptions{Level: lvl}))
}

// NewText creates a text-formatted logger, easier to read in a terminal
func NewText(level string, output io.Writer) *slog.Logger {
	lvl, _ := ParseLevel(level)
	return slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: lvl}))
}

// Setup builds a logger for the given format ("json" or "text") and
// installs it as the slog default.
func Setup(level, format string, output io.Writer) (*slog.Logger, error) {
	if _, ok := ParseLevel(level); !ok {
		return nil, fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", level)
	}

	var l *slog.Logger
	switch strings.ToLower(format) {
	case "json", "":
		l = New(level, output)
	case "text":
		l = NewText(level, output)
	default:
		return nil, fmt.Errorf("invalid log format %q (must be json or text)", format)
	}

	slog.SetDefault(l)
	return l, nil
}
