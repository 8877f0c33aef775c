// Copyright fmforge, 2026. All rights reserved.

// Package logger configures the process-wide structured logger.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fmforge/fmforge/pkg/types"
)

// Config controls handler construction.
type Config struct {
	Level     slog.Level
	Format    string
	Output    io.Writer
	AddSource bool
}

// DefaultConfig logs info and above as text to stderr.
func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Format:    "text",
		Output:    os.Stderr,
		AddSource: false,
	}
}

// FromTypes maps the application LogConfig onto handler settings.
func FromTypes(cfg types.LogConfig) Config {
	c := DefaultConfig()
	c.Level = ParseLevel(cfg.Level)
	if cfg.Format != "" {
		c.Format = cfg.Format
	}
	return c
}

// ParseLevel maps a level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// Init installs the default logger.
func Init(cfg Config) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	slog.SetDefault(slog.New(handler))
}

func Debug(msg string, args ...any) { slog.Debug(msg, args...) }
func Info(msg string, args ...any)  { slog.Info(msg, args...) }
func Warn(msg string, args ...any)  { slog.Warn(msg, args...) }
func Error(msg string, args ...any) { slog.Error(msg, args...) }

// ForComponent returns a logger tagged with the component name.
func ForComponent(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

// With returns a logger carrying the given attributes.
func With(args ...any) *slog.Logger {
	return slog.Default().With(args...)
}
