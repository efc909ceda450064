// Package logutil builds the process logger from configuration.
package logutil

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LoggerConfig selects level, format and an optional rotating log file.
type LoggerConfig struct {
	Level     string
	Format    string
	File      string
	AddSource bool
}

// New builds a logger writing to stderr and, when cfg.File is set, to a
// rotating file as well. The returned closer releases the file.
func New(cfg LoggerConfig) (*slog.Logger, io.Closer, error) {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter is New with an explicit console writer.
func NewWithWriter(cfg LoggerConfig, console io.Writer) (*slog.Logger, io.Closer, error) {
	level, err := parseSlogLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.AddSource,
	}

	var closer io.Closer = nopCloser{}
	w := console
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		fileLogger := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    50,
			MaxAge:     7,
			MaxBackups: 3,
			Compress:   true,
		}
		w = io.MultiWriter(console, fileLogger)
		closer = fileLogger
	}

	var h slog.Handler
	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return nil, nil, fmt.Errorf("unknown log format: %s", cfg.Format)
	}

	return slog.New(h), closer, nil
}

func parseSlogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", s)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
