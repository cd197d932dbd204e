package cli

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"streamshell/internal/bridge"
	"streamshell/internal/config"
	"streamshell/internal/devbridge"
	"streamshell/internal/download"
)

const defaultBridgeListen = "127.0.0.1:8765"

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultPath(), "config path")
	listen := fs.String("listen", "", "bridge listen address (default bridge_listen or "+defaultBridgeListen+")")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	env, err := openEnv(ctx, *configPath)
	if err != nil {
		return err
	}
	defer env.Close()

	addr := strings.TrimSpace(*listen)
	if addr == "" {
		addr = env.cfg.BridgeListen
	}
	if addr == "" {
		addr = defaultBridgeListen
	}

	mgr, err := env.newManager(ctx, managerHooks{
		alerter:  stderrAlerter{},
		listener: printDownloadEvent,
	})
	if err != nil {
		return err
	}
	defer mgr.Close()

	handler := bridge.NewHandler(loggedOrientation{log: env.log}, mgr, env.log)
	srv := devbridge.NewServer(addr, handlerSink{handler}, env.log)
	if err := srv.Start(); err != nil {
		return err
	}
	fmt.Printf("bridge script: http://%s/bridge.js\n", srv.Addr())

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type handlerSink struct {
	h *bridge.Handler
}

func (s handlerSink) BridgeMessage(raw string) {
	s.h.Handle(raw)
}

// loggedOrientation records page state when there is no screen to rotate.
type loggedOrientation struct {
	log *slog.Logger
}

func (o loggedOrientation) FullscreenChanged(isFullscreen bool) {
	o.log.Info("page fullscreen changed", slog.Bool("fullscreen", isFullscreen))
}

func (o loggedOrientation) VideoStateChanged(isPlaying bool) {
	o.log.Info("page video state changed", slog.Bool("playing", isPlaying))
}

func printDownloadEvent(ev download.Event) {
	switch ev.Kind {
	case download.EventStarted:
		fmt.Printf("started    %s  %s\n", ev.Task.ID, ev.Task.Filename)
	case download.EventCompleted:
		fmt.Printf("completed  %s  %s (%s)\n", ev.Task.ID, ev.Task.Path, formatBytesIEC(ev.Task.Size))
	case download.EventFailed:
		fmt.Printf("%-9s  %s  %s\n", statusLabel(ev.Task), ev.Task.ID, ev.Task.Filename)
	}
}
