package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"streamshell/internal/config"
	"streamshell/internal/download"
	"streamshell/internal/model"
	"streamshell/internal/platform"
	"streamshell/internal/settings"
)

func runDownloads(args []string) error {
	if len(args) == 0 {
		printDownloadsUsage()
		return nil
	}
	switch args[0] {
	case "list":
		return runDownloadsList(args[1:])
	case "get":
		return runDownloadsGet(args[1:])
	case "open":
		return runDownloadsOpen(args[1:])
	case "delete":
		return runDownloadsDelete(args[1:])
	case "clear":
		return runDownloadsClear(args[1:])
	case "help", "-h", "--help":
		printDownloadsUsage()
		return nil
	default:
		printDownloadsUsage()
		return fmt.Errorf("unknown downloads subcommand %q", args[0])
	}
}

func runDownloadsList(args []string) error {
	fs := flag.NewFlagSet("downloads list", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultPath(), "config path")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	env, err := openEnv(ctx, *configPath)
	if err != nil {
		return err
	}
	defer env.Close()

	history, err := settings.LoadHistory(ctx, env.store)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(history)
	}
	if len(history) == 0 {
		fmt.Println("no downloads")
		return nil
	}
	for _, t := range history {
		fmt.Printf("%s  %-9s  %10s  %s\n", t.ID, statusLabel(t), formatBytesIEC(t.Size), t.Filename)
	}
	return nil
}

func runDownloadsGet(args []string) error {
	fs := flag.NewFlagSet("downloads get", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultPath(), "config path")
	name := fs.String("name", "", "file name (default derived from the URL)")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: streamshell downloads get [--name <file>] <url>")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	env, err := openEnv(ctx, *configPath)
	if err != nil {
		return err
	}
	defer env.Close()

	notifier := platform.NewNotifier(appName, env.cfg.DisableNotifications)
	var n download.Notifier
	if err := notifier.Init(); err == nil {
		n = notifier
	}

	done := make(chan download.Event, 1)
	mgr, err := env.newManager(ctx, managerHooks{
		notifier: n,
		alerter:  stderrAlerter{},
		listener: func(ev download.Event) {
			switch ev.Kind {
			case download.EventProgress:
				fmt.Fprintf(os.Stderr, "\r%3d%%  %s", ev.Task.Percent(), formatRate(ev.Task.Speed))
			case download.EventCompleted, download.EventFailed:
				select {
				case done <- ev:
				default:
				}
			}
		},
	})
	if err != nil {
		return err
	}
	defer mgr.Close()

	id, err := mgr.Start(fs.Arg(0), strings.TrimSpace(*name))
	if err != nil {
		return err
	}

	select {
	case ev := <-done:
		fmt.Fprintln(os.Stderr)
		if ev.Kind == download.EventFailed {
			return fmt.Errorf("download failed: %s", ev.Task.Reason)
		}
		fmt.Printf("%s  %s\n", ev.Task.ID, ev.Task.Path)
		return nil
	case <-ctx.Done():
		_ = mgr.Cancel(id)
		fmt.Fprintln(os.Stderr)
		return errors.New("download cancelled")
	}
}

func runDownloadsOpen(args []string) error {
	return withHistoryManager("downloads open", args, func(ctx context.Context, mgr *download.Manager, id string) error {
		return mgr.OpenCompletedFile(id)
	})
}

func runDownloadsDelete(args []string) error {
	return withHistoryManager("downloads delete", args, func(ctx context.Context, mgr *download.Manager, id string) error {
		if err := mgr.DeleteHistoryEntry(ctx, id); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", id)
		return nil
	})
}

func runDownloadsClear(args []string) error {
	fs := flag.NewFlagSet("downloads clear", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultPath(), "config path")
	yes := fs.Bool("yes", false, "skip confirmation prompt")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*yes {
		ok, err := promptConfirm("Delete every downloaded file and clear the history? [y/N]: ")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("aborted")
			return nil
		}
	}

	ctx := context.Background()
	env, err := openEnv(ctx, *configPath)
	if err != nil {
		return err
	}
	defer env.Close()
	mgr, err := env.newManager(ctx, managerHooks{alerter: stderrAlerter{}})
	if err != nil {
		return err
	}
	defer mgr.Close()
	if err := mgr.ClearHistory(ctx); err != nil {
		return err
	}
	fmt.Println("download history cleared")
	return nil
}

func withHistoryManager(name string, args []string, fn func(context.Context, *download.Manager, string) error) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultPath(), "config path")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: streamshell %s <id>", name)
	}

	ctx := context.Background()
	env, err := openEnv(ctx, *configPath)
	if err != nil {
		return err
	}
	defer env.Close()
	mgr, err := env.newManager(ctx, managerHooks{alerter: stderrAlerter{}})
	if err != nil {
		return err
	}
	defer mgr.Close()
	return fn(ctx, mgr, strings.TrimSpace(fs.Arg(0)))
}

func statusLabel(t model.DownloadTask) string {
	switch t.Status {
	case model.StatusDownloading:
		return fmt.Sprintf("%d%%", t.Percent())
	case model.StatusFailed:
		if t.Reason == model.ReasonCancelled {
			return "cancelled"
		}
		return "failed"
	default:
		return t.Status
	}
}

func printDownloadsUsage() {
	fmt.Println("downloads commands:")
	fmt.Println("  streamshell downloads list [--json]")
	fmt.Println("  streamshell downloads get [--name <file>] <url>")
	fmt.Println("  streamshell downloads open <id>")
	fmt.Println("  streamshell downloads delete <id>")
	fmt.Println("  streamshell downloads clear [--yes]")
}
