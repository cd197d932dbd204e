package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"streamshell/internal/model"
	"streamshell/internal/settings"
)

func writeTestConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := strings.Join([]string{
		"data_dir: " + dir,
		"log_file: " + filepath.Join(dir, "streamshell.log"),
		"disable_notifications: true",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path, dir
}

func openTestStore(t *testing.T, dir string) settings.Store {
	t.Helper()
	store, err := settings.NewFileStore(filepath.Join(dir, "settings.json"))
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestRunUnknownCommand(t *testing.T) {
	if err := Run([]string{"bogus"}); err == nil {
		t.Fatalf("expected unknown command error")
	}
}

func TestConfigSetPersistsServer(t *testing.T) {
	cfgPath, dir := writeTestConfig(t)

	if err := Run([]string{"config", "set", "--config", cfgPath, "--server", "http://pay.example.com", "--port", "3002"}); err != nil {
		t.Fatalf("config set failed: %v", err)
	}

	got, err := settings.LoadConfig(context.Background(), openTestStore(t, dir))
	if err != nil {
		t.Fatal(err)
	}
	if got.ServerURL != "http://pay.example.com" || got.StreamingPort != "3002" {
		t.Fatalf("unexpected persisted config: %+v", got)
	}

	// A later set without --port keeps the saved port.
	if err := Run([]string{"config", "set", "--config", cfgPath, "--server", "https://other.example.com"}); err != nil {
		t.Fatalf("second config set failed: %v", err)
	}
	got, err = settings.LoadConfig(context.Background(), openTestStore(t, dir))
	if err != nil {
		t.Fatal(err)
	}
	if got.ServerURL != "https://other.example.com" || got.StreamingPort != "3002" {
		t.Fatalf("unexpected persisted config: %+v", got)
	}
}

func TestConfigSetRejectsInvalidValues(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	if err := Run([]string{"config", "set", "--config", cfgPath, "--server", "http://pay.example.com", "--port", "70000"}); err == nil {
		t.Fatalf("expected invalid port error")
	}
	if err := Run([]string{"config", "set", "--config", cfgPath, "--server", "pay.example.com"}); err == nil {
		t.Fatalf("expected invalid server error")
	}
}

func TestConfigResetClearsServer(t *testing.T) {
	cfgPath, dir := writeTestConfig(t)
	if err := Run([]string{"config", "set", "--config", cfgPath, "--server", "http://pay.example.com"}); err != nil {
		t.Fatal(err)
	}
	if err := Run([]string{"config", "reset", "--config", cfgPath, "--yes"}); err != nil {
		t.Fatalf("config reset failed: %v", err)
	}
	if _, err := settings.LoadConfig(context.Background(), openTestStore(t, dir)); !errors.Is(err, settings.ErrConfigMissing) {
		t.Fatalf("expected missing config after reset, got %v", err)
	}
	if err := Run([]string{"config", "show", "--config", cfgPath, "--json"}); err != nil {
		t.Fatalf("config show failed: %v", err)
	}
}

func TestDownloadsDeleteRemovesFileAndEntry(t *testing.T) {
	cfgPath, dir := writeTestConfig(t)
	file := filepath.Join(dir, "downloads", "movie.mp4")
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(file, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	store := openTestStore(t, dir)
	seed := []model.DownloadTask{
		{ID: "t1", URL: "http://pay.example.com/movie.mp4", Filename: "movie.mp4", Path: file, Status: model.StatusCompleted, Progress: 1, CreatedAt: time.Now()},
	}
	if err := settings.SaveHistory(context.Background(), store, seed); err != nil {
		t.Fatal(err)
	}

	if err := Run([]string{"downloads", "list", "--config", cfgPath}); err != nil {
		t.Fatalf("downloads list failed: %v", err)
	}
	if err := Run([]string{"downloads", "delete", "--config", cfgPath, "t1"}); err != nil {
		t.Fatalf("downloads delete failed: %v", err)
	}
	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, stat err=%v", err)
	}
	history, err := settings.LoadHistory(context.Background(), openTestStore(t, dir))
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %d", len(history))
	}

	if err := Run([]string{"downloads", "delete", "--config", cfgPath, "t1"}); err == nil {
		t.Fatalf("expected unknown id error")
	}
}

func TestDownloadsOpenRequiresID(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)
	if err := Run([]string{"downloads", "open", "--config", cfgPath}); err == nil {
		t.Fatalf("expected usage error")
	}
}
