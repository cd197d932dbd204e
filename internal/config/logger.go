package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger builds the process logger. LogFile "-" writes to stderr; anything
// else is appended to, since the terminal UI owns stdout.
func NewLogger(cfg Config) (*slog.Logger, io.Closer, error) {
	lo := &slog.HandlerOptions{}
	switch cfg.LogLevel {
	case LogLevelDebug:
		lo.Level = slog.LevelDebug
	case LogLevelInfo:
		lo.Level = slog.LevelInfo
	case LogLevelWarn:
		lo.Level = slog.LevelWarn
	case LogLevelError:
		lo.Level = slog.LevelError
	default:
		return nil, nil, fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}

	if cfg.LogFile == "-" {
		return slog.New(slog.NewTextHandler(os.Stderr, lo)), nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", cfg.LogFile, err)
	}
	return slog.New(slog.NewTextHandler(f, lo)), f, nil
}

func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
