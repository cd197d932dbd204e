package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/afero"

	"streamshell/internal/config"
	"streamshell/internal/download"
	"streamshell/internal/model"
	"streamshell/internal/platform"
	"streamshell/internal/settings"
)

const appName = "streamshell"

// appEnv is what every command needs: the loaded config, the logger and the
// settings store.
type appEnv struct {
	cfg      config.Config
	log      *slog.Logger
	logClose io.Closer
	store    settings.Store
}

func openEnv(ctx context.Context, configPath string) (*appEnv, error) {
	cfg, err := config.Load(strings.TrimSpace(configPath))
	if err != nil {
		return nil, err
	}
	log, closer, err := config.NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	store, err := settings.Open(ctx, settings.Options{
		Driver:   cfg.Store.Driver,
		Path:     cfg.Store.Path,
		RedisURL: cfg.Store.RedisURL,
	})
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	return &appEnv{cfg: cfg, log: log, logClose: closer, store: store}, nil
}

func (e *appEnv) Close() {
	if err := e.store.Close(); err != nil {
		e.log.Warn("cannot close settings store", slog.Any("error", err))
	}
	_ = e.logClose.Close()
}

type managerHooks struct {
	notifier download.Notifier
	alerter  download.Alerter
	listener download.Listener
}

func (e *appEnv) newManager(ctx context.Context, hooks managerHooks) (*download.Manager, error) {
	var gallery download.Gallery
	if e.cfg.Gallery.Enabled {
		gallery = platform.NewGallery(afero.NewOsFs(), e.cfg.Gallery.Dir, e.cfg.Gallery.Album)
	}
	return download.NewManager(ctx, download.Options{
		Store:        e.store,
		Dir:          e.cfg.DownloadDir,
		UserAgent:    e.cfg.Identification(),
		HistoryLimit: e.cfg.HistoryLimit,
		RecordFailed: e.cfg.RecordFailed,
		Notifier:     hooks.notifier,
		Sharer:       platform.Opener{},
		Gallery:      gallery,
		Alerter:      hooks.alerter,
		Listener:     hooks.listener,
		Log:          e.log,
	})
}

// stderrAlerter shows alerts outside the interactive session.
type stderrAlerter struct {
	out io.Writer
}

func (a stderrAlerter) Alert(al model.Alert) {
	out := a.out
	if out == nil {
		out = os.Stderr
	}
	fmt.Fprintf(out, "%s: %s\n", al.Title, al.Message)
	for _, action := range al.Actions {
		if action.Kind == model.AlertOpenExternal && action.Target != "" {
			fmt.Fprintf(out, "  %s: %s\n", action.Label, action.Target)
		}
	}
}
