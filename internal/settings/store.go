package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	KeyServerURL       = "SERVER_URL"
	KeyStreamingPort   = "STREAMING_PORT"
	KeyDownloadHistory = "DOWNLOAD_HISTORY"

	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

var ErrNotFound = errors.New("key not found")

// Store is the persisted key/value settings store.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type Options struct {
	Driver   string
	Path     string
	RedisURL string
}

func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", DriverFile:
		return NewFileStore(opts.Path)
	case DriverSQLite:
		return NewSQLiteStore(ctx, opts.Path)
	case DriverRedis:
		return NewRedisStore(ctx, opts.RedisURL)
	default:
		return nil, fmt.Errorf("unknown settings driver %q", opts.Driver)
	}
}
