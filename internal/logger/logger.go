// Package logger builds the slog logger used by the looper binary and adapts
// it to core.Logger.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Swind/go-periodic-task/core"
)

// Format represents logger output format.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// ParseLevel maps a config string to a slog level (case-insensitive).
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
}

// New creates a slog logger writing to out (os.Stderr when nil).
func New(level slog.Level, format Format, out io.Writer) (*slog.Logger, error) {
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case FormatJSON, "":
		handler = slog.NewJSONHandler(out, opts)
	case FormatText:
		handler = slog.NewTextHandler(out, opts)
	default:
		return nil, fmt.Errorf("invalid log format %q: must be %q or %q", format, FormatJSON, FormatText)
	}
	return slog.New(handler), nil
}

// Setup parses level and format, builds the logger, installs it as the slog
// default and returns the core.Logger wrapping it.
func Setup(level, format string, out io.Writer) (core.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	l, err := New(lvl, Format(strings.ToLower(format)), out)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(l)
	return core.NewSlogLogger(l), nil
}
