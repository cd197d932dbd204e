package settings

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const DefaultStreamingPort = "3001"

var (
	ErrConfigMissing    = errors.New("server configuration missing")
	ErrInvalidServerURL = errors.New("server url must start with http:// or https://")
	ErrInvalidPort      = errors.New("streaming port must be a positive integer")

	serverURLPattern = regexp.MustCompile(`^https?://.+`)
)

// PersistedConfig is the server address pair written by the configuration
// screen and read on every session mount.
type PersistedConfig struct {
	ServerURL     string `json:"serverUrl"`
	StreamingPort string `json:"streamingPort"`
}

func (c PersistedConfig) Validate() error {
	if !serverURLPattern.MatchString(strings.TrimSpace(c.ServerURL)) {
		return ErrInvalidServerURL
	}
	port, err := strconv.Atoi(strings.TrimSpace(c.StreamingPort))
	if err != nil || port <= 0 || port > 65535 {
		return ErrInvalidPort
	}
	return nil
}

// StreamingURL returns the server URL with the streaming port substituted.
func (c PersistedConfig) StreamingURL() (string, error) {
	u, err := url.Parse(strings.TrimSpace(c.ServerURL))
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	port := strings.TrimSpace(c.StreamingPort)
	if port == "" {
		port = DefaultStreamingPort
	}
	u.Host = u.Hostname() + ":" + port
	return u.String(), nil
}

// LoadConfig returns ErrConfigMissing when no server URL has been saved. A
// missing port falls back to DefaultStreamingPort.
func LoadConfig(ctx context.Context, store Store) (PersistedConfig, error) {
	serverURL, err := store.Get(ctx, KeyServerURL)
	if errors.Is(err, ErrNotFound) || (err == nil && strings.TrimSpace(serverURL) == "") {
		return PersistedConfig{}, ErrConfigMissing
	}
	if err != nil {
		return PersistedConfig{}, fmt.Errorf("load server url: %w", err)
	}
	if !serverURLPattern.MatchString(strings.TrimSpace(serverURL)) {
		return PersistedConfig{}, ErrInvalidServerURL
	}

	port, err := store.Get(ctx, KeyStreamingPort)
	switch {
	case errors.Is(err, ErrNotFound):
		port = DefaultStreamingPort
	case err != nil:
		return PersistedConfig{}, fmt.Errorf("load streaming port: %w", err)
	case strings.TrimSpace(port) == "":
		port = DefaultStreamingPort
	}

	return PersistedConfig{ServerURL: strings.TrimSpace(serverURL), StreamingPort: strings.TrimSpace(port)}, nil
}

func SaveConfig(ctx context.Context, store Store, cfg PersistedConfig) error {
	cfg.ServerURL = strings.TrimSpace(cfg.ServerURL)
	cfg.StreamingPort = strings.TrimSpace(cfg.StreamingPort)
	if cfg.StreamingPort == "" {
		cfg.StreamingPort = DefaultStreamingPort
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := store.Set(ctx, KeyServerURL, cfg.ServerURL); err != nil {
		return err
	}
	return store.Set(ctx, KeyStreamingPort, cfg.StreamingPort)
}
