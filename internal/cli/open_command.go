package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"streamshell/internal/browser"
	"streamshell/internal/config"
	"streamshell/internal/devbridge"
	"streamshell/internal/platform"
	"streamshell/internal/settings"
	"streamshell/internal/shell"
)

func runOpen(args []string) error {
	fs := flag.NewFlagSet("open", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultPath(), "config path")
	headless := fs.Bool("headless", false, "run Chrome without a window")
	controlURL := fs.String("control-url", "", "attach to a running Chrome DevTools endpoint")
	bridgeListen := fs.String("bridge-listen", "", "also accept bridge messages over HTTP on this address")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !stdinIsTTY() {
		return errors.New("open requires an interactive terminal (TTY)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env, err := openEnv(ctx, *configPath)
	if err != nil {
		return err
	}
	defer env.Close()
	if *headless {
		env.cfg.Browser.Headless = true
	}
	if v := strings.TrimSpace(*controlURL); v != "" {
		env.cfg.Browser.ControlURL = v
	}
	if v := strings.TrimSpace(*bridgeListen); v != "" {
		env.cfg.BridgeListen = v
	}

	lock, err := settings.AcquireSessionLock(env.cfg.DataDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			env.log.Warn("cannot release session lock", slog.Any("error", err))
		}
	}()

	// The configuration entry point replaces the session; a saved
	// configuration opens a fresh one.
	for {
		redirect, err := runSession(ctx, env)
		if err != nil {
			return err
		}
		if redirect == "" {
			return nil
		}
		saved, err := runConfigForm(ctx, env.store, redirect)
		if err != nil {
			return err
		}
		if !saved {
			if _, err := settings.LoadConfig(ctx, env.store); err == nil {
				return nil
			}
			return configHint(redirect)
		}
	}
}

// runSession mounts one session and runs the terminal UI until the user
// leaves. A non-empty result is the reason the configuration entry point
// was requested.
func runSession(ctx context.Context, env *appEnv) (string, error) {
	pump := newEventPump()
	alerts := &alertQueue{}
	router := &configRouter{}
	notifier := platform.NewNotifier(appName, env.cfg.DisableNotifications)

	mgr, err := env.newManager(ctx, managerHooks{
		notifier: notifier,
		alerter:  alerts,
		listener: pump.DownloadEvent,
	})
	if err != nil {
		return "", err
	}

	var surface *browser.Surface
	session, err := shell.NewSession(shell.Deps{
		Store: env.store,
		OpenBrowser: func(ctx context.Context, url string) (shell.Browser, error) {
			s, err := browser.Open(ctx, url, browser.Options{
				Bin:        env.cfg.Browser.Bin,
				ControlURL: env.cfg.Browser.ControlURL,
				Headless:   env.cfg.Browser.Headless,
				Width:      env.cfg.Browser.Width,
				Height:     env.cfg.Browser.Height,
				UserAgent:  env.cfg.Identification(),
				Events:     pump,
				Log:        env.log,
			})
			if err != nil {
				return nil, err
			}
			surface = s
			return s, nil
		},
		Downloads:           mgr,
		Router:              router,
		Notifier:            notifier,
		Alerter:             alerts,
		External:            platform.Opener{},
		ControlIdleTimeout:  env.cfg.ControlIdleTimeout,
		ControlTrigger:      env.cfg.ControlTrigger,
		InteractionDebounce: env.cfg.InteractionDebounce,
		Log:                 env.log,
	})
	if err != nil {
		mgr.Close()
		return "", err
	}

	if err := session.Mount(ctx); err != nil {
		mgr.Close()
		if reason, ok := router.Requested(); ok {
			return reason, nil
		}
		return "", err
	}
	defer session.Unmount()

	if env.cfg.BridgeListen != "" {
		srv := devbridge.NewServer(env.cfg.BridgeListen, pump, env.log)
		if err := srv.Start(); err != nil {
			return "", err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	var rot rotator
	if surface != nil {
		rot = surface
	}
	p := tea.NewProgram(newSessionModel(session, alerts, router, rot), tea.WithAltScreen())
	stop := make(chan struct{})
	go pump.Run(p.Send, stop)
	finalModel, err := p.Run()
	close(stop)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "tty") {
			return "", errors.New("open requires an interactive terminal (TTY)")
		}
		return "", err
	}
	if fm, ok := finalModel.(sessionModel); ok {
		return fm.redirect, nil
	}
	return "", nil
}

func configHint(reason string) error {
	return fmt.Errorf("%s: run `streamshell config set --server <url> [--port %s]`", reason, settings.DefaultStreamingPort)
}
