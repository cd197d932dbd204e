package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"streamshell/internal/config"
	"streamshell/internal/settings"
)

func runConfig(args []string) error {
	if len(args) == 0 {
		printConfigUsage()
		return nil
	}
	switch args[0] {
	case "show":
		return runConfigShow(args[1:])
	case "set":
		return runConfigSet(args[1:])
	case "reset":
		return runConfigReset(args[1:])
	case "edit":
		return runConfigEdit(args[1:])
	case "help", "-h", "--help":
		printConfigUsage()
		return nil
	default:
		printConfigUsage()
		return fmt.Errorf("unknown config subcommand %q", args[0])
	}
}

func runConfigShow(args []string) error {
	fs := flag.NewFlagSet("config show", flag.ContinueOnError)
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

	persisted, err := settings.LoadConfig(ctx, env.store)
	configured := err == nil
	if err != nil && !errors.Is(err, settings.ErrConfigMissing) && !errors.Is(err, settings.ErrInvalidServerURL) {
		return err
	}
	streamingURL := ""
	if configured {
		if streamingURL, err = persisted.StreamingURL(); err != nil {
			return err
		}
	}

	if *jsonOut {
		return printJSON(map[string]any{
			"config_path":   strings.TrimSpace(*configPath),
			"configured":    configured,
			"server":        persisted,
			"streaming_url": streamingURL,
			"store_driver":  env.cfg.Store.Driver,
			"download_dir":  env.cfg.DownloadDir,
			"user_agent":    env.cfg.Identification(),
		})
	}

	fmt.Printf("config: %s\n", strings.TrimSpace(*configPath))
	fmt.Printf("store: %s (%s)\n", env.cfg.Store.Driver, storeLocation(env.cfg))
	fmt.Printf("download_dir: %s\n", env.cfg.DownloadDir)
	if !configured {
		fmt.Println("server: (not configured)")
		return nil
	}
	fmt.Printf("server: %s\n", persisted.ServerURL)
	fmt.Printf("streaming_port: %s\n", persisted.StreamingPort)
	fmt.Printf("streaming_url: %s\n", streamingURL)
	return nil
}

func runConfigSet(args []string) error {
	fs := flag.NewFlagSet("config set", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultPath(), "config path")
	server := fs.String("server", "", "server URL (http:// or https://)")
	port := fs.String("port", "", "streaming port (empty keeps current, default "+settings.DefaultStreamingPort+")")
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

	current, err := settings.LoadConfig(ctx, env.store)
	if err != nil && !errors.Is(err, settings.ErrConfigMissing) && !errors.Is(err, settings.ErrInvalidServerURL) {
		return err
	}

	next := current
	if v := strings.TrimSpace(*server); v != "" {
		next.ServerURL = v
	}
	if strings.TrimSpace(next.ServerURL) == "" {
		v, err := promptRequired("Server URL")
		if err != nil {
			return err
		}
		next.ServerURL = v
	}
	if v := strings.TrimSpace(*port); v != "" {
		next.StreamingPort = v
	}

	if err := settings.SaveConfig(ctx, env.store, next); err != nil {
		switch {
		case errors.Is(err, settings.ErrInvalidServerURL):
			return errors.New("--server must start with http:// or https://")
		case errors.Is(err, settings.ErrInvalidPort):
			return errors.New("--port must be a number between 1 and 65535")
		}
		return err
	}
	saved, err := settings.LoadConfig(ctx, env.store)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(saved)
	}
	fmt.Printf("server: %s\n", saved.ServerURL)
	fmt.Printf("streaming_port: %s\n", saved.StreamingPort)
	return nil
}

func runConfigReset(args []string) error {
	fs := flag.NewFlagSet("config reset", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultPath(), "config path")
	yes := fs.Bool("yes", false, "skip confirmation prompt")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*yes {
		ok, err := promptConfirm("Forget the saved server address? [y/N]: ")
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

	for _, key := range []string{settings.KeyServerURL, settings.KeyStreamingPort} {
		if err := env.store.Delete(ctx, key); err != nil && !errors.Is(err, settings.ErrNotFound) {
			return err
		}
	}
	fmt.Println("server address cleared")
	return nil
}

func runConfigEdit(args []string) error {
	fs := flag.NewFlagSet("config edit", flag.ContinueOnError)
	configPath := fs.String("config", config.DefaultPath(), "config path")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !stdinIsTTY() {
		return errors.New("config edit requires an interactive terminal (TTY); use config set")
	}

	ctx := context.Background()
	env, err := openEnv(ctx, *configPath)
	if err != nil {
		return err
	}
	defer env.Close()

	saved, err := runConfigForm(ctx, env.store, "")
	if err != nil {
		return err
	}
	if saved {
		fmt.Println("configuration saved")
	}
	return nil
}

func storeLocation(cfg config.Config) string {
	if cfg.Store.Driver == config.StoreDriverRedis {
		return cfg.Store.RedisURL
	}
	return cfg.Store.Path
}

func printConfigUsage() {
	fmt.Println("config commands:")
	fmt.Println("  streamshell config show [--json]")
	fmt.Println("  streamshell config set --server <url> [--port <n>] [--json]")
	fmt.Println("  streamshell config edit")
	fmt.Println("  streamshell config reset [--yes]")
}
