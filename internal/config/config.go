package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	StoreDriverFile   = "file"
	StoreDriverSQLite = "sqlite"
	StoreDriverRedis  = "redis"

	ControlTriggerEdge        = "edge"
	ControlTriggerInteraction = "interaction"

	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"

	DefaultDirName             = ".streamshell"
	DefaultConfigFileName      = "config.yaml"
	DefaultHistoryLimit        = 50
	DefaultControlIdleTimeout  = 3 * time.Second
	DefaultInteractionDebounce = 300 * time.Millisecond
	DefaultGalleryAlbum        = "StreamPay"
	DefaultUserAgent           = "Mozilla/5.0 (Linux; Android 12) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36"
	DefaultUserAgentSuffix     = "StreamPayAPK/2.0"
	DefaultBrowserWidth        = 412
	DefaultBrowserHeight       = 915

	envPrefix = "STREAMSHELL_"
)

type StoreConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	RedisURL string `yaml:"redis_url"`
}

type GalleryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	Album   string `yaml:"album"`
}

type BrowserConfig struct {
	Bin        string `yaml:"bin"`
	ControlURL string `yaml:"control_url"`
	Headless   bool   `yaml:"headless"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
}

type Config struct {
	DataDir              string        `yaml:"data_dir"`
	DownloadDir          string        `yaml:"download_dir"`
	LogLevel             string        `yaml:"log_level"`
	LogFile              string        `yaml:"log_file"`
	Store                StoreConfig   `yaml:"store"`
	UserAgent            string        `yaml:"user_agent"`
	UserAgentSuffix      string        `yaml:"user_agent_suffix"`
	HistoryLimit         int           `yaml:"history_limit"`
	RecordFailed         bool          `yaml:"record_failed"`
	ControlIdleTimeout   time.Duration `yaml:"control_idle_timeout"`
	ControlTrigger       string        `yaml:"control_trigger"`
	InteractionDebounce  time.Duration `yaml:"interaction_debounce"`
	Gallery              GalleryConfig `yaml:"gallery"`
	Browser              BrowserConfig `yaml:"browser"`
	DisableNotifications bool          `yaml:"disable_notifications"`
	BridgeListen         string        `yaml:"bridge_listen"`
}

// Identification is the user agent sent by the browser surface and by every
// download request.
func (c Config) Identification() string {
	ua := strings.TrimSpace(c.UserAgent)
	suffix := strings.TrimSpace(c.UserAgentSuffix)
	if suffix == "" {
		return ua
	}
	return ua + " " + suffix
}

func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return DefaultDirName
	}
	return filepath.Join(home, DefaultDirName)
}

func DefaultPath() string {
	return filepath.Join(DefaultDataDir(), DefaultConfigFileName)
}

func Default() Config {
	return normalize(Config{})
}

// Load reads the YAML config at path. A missing file yields defaults. A .env
// file in the working directory and STREAMSHELL_* variables override file values.
func Load(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	_ = godotenv.Load()
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	cfg = normalize(cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"DATA_DIR":            &cfg.DataDir,
		"DOWNLOAD_DIR":        &cfg.DownloadDir,
		"LOG_LEVEL":           &cfg.LogLevel,
		"LOG_FILE":            &cfg.LogFile,
		"STORE_DRIVER":        &cfg.Store.Driver,
		"STORE_PATH":          &cfg.Store.Path,
		"REDIS_URL":           &cfg.Store.RedisURL,
		"USER_AGENT_SUFFIX":   &cfg.UserAgentSuffix,
		"BROWSER_BIN":         &cfg.Browser.Bin,
		"BROWSER_CONTROL_URL": &cfg.Browser.ControlURL,
		"BRIDGE_LISTEN":       &cfg.BridgeListen,
		"CONTROL_TRIGGER":     &cfg.ControlTrigger,
	}
	for name, dst := range str {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	boolean := map[string]*bool{
		"RECORD_FAILED":         &cfg.RecordFailed,
		"HEADLESS":              &cfg.Browser.Headless,
		"GALLERY":               &cfg.Gallery.Enabled,
		"DISABLE_NOTIFICATIONS": &cfg.DisableNotifications,
	}
	for name, dst := range boolean {
		v, ok := os.LookupEnv(envPrefix + name)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s%s must be a boolean: %w", envPrefix, name, err)
		}
		*dst = b
	}

	if v, ok := os.LookupEnv(envPrefix + "HISTORY_LIMIT"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sHISTORY_LIMIT must be an integer: %w", envPrefix, err)
		}
		cfg.HistoryLimit = n
	}
	return nil
}

func normalize(raw Config) Config {
	norm := raw
	if strings.TrimSpace(norm.DataDir) == "" {
		norm.DataDir = DefaultDataDir()
	}
	if strings.TrimSpace(norm.DownloadDir) == "" {
		norm.DownloadDir = filepath.Join(norm.DataDir, "downloads")
	}
	norm.LogLevel = strings.ToLower(strings.TrimSpace(norm.LogLevel))
	if norm.LogLevel == "" {
		norm.LogLevel = LogLevelInfo
	}
	if strings.TrimSpace(norm.LogFile) == "" {
		norm.LogFile = filepath.Join(norm.DataDir, "streamshell.log")
	}

	norm.Store.Driver = strings.ToLower(strings.TrimSpace(norm.Store.Driver))
	if norm.Store.Driver == "" {
		norm.Store.Driver = StoreDriverFile
	}
	if strings.TrimSpace(norm.Store.Path) == "" {
		switch norm.Store.Driver {
		case StoreDriverSQLite:
			norm.Store.Path = filepath.Join(norm.DataDir, "settings.db")
		default:
			norm.Store.Path = filepath.Join(norm.DataDir, "settings.json")
		}
	}

	if strings.TrimSpace(norm.UserAgent) == "" {
		norm.UserAgent = DefaultUserAgent
		if strings.TrimSpace(norm.UserAgentSuffix) == "" {
			norm.UserAgentSuffix = DefaultUserAgentSuffix
		}
	}
	if norm.HistoryLimit <= 0 {
		norm.HistoryLimit = DefaultHistoryLimit
	}
	if norm.ControlIdleTimeout <= 0 {
		norm.ControlIdleTimeout = DefaultControlIdleTimeout
	}
	if norm.InteractionDebounce <= 0 {
		norm.InteractionDebounce = DefaultInteractionDebounce
	}
	switch strings.ToLower(strings.TrimSpace(norm.ControlTrigger)) {
	case ControlTriggerInteraction:
		norm.ControlTrigger = ControlTriggerInteraction
	default:
		norm.ControlTrigger = ControlTriggerEdge
	}

	if strings.TrimSpace(norm.Gallery.Album) == "" {
		norm.Gallery.Album = DefaultGalleryAlbum
	}
	if strings.TrimSpace(norm.Gallery.Dir) == "" {
		norm.Gallery.Dir = defaultGalleryDir()
	}
	if norm.Browser.Width <= 0 {
		norm.Browser.Width = DefaultBrowserWidth
	}
	if norm.Browser.Height <= 0 {
		norm.Browser.Height = DefaultBrowserHeight
	}
	return norm
}

func validate(cfg Config) error {
	switch cfg.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return fmt.Errorf("unknown log level %q (expected debug, info, warn, or error)", cfg.LogLevel)
	}
	switch cfg.Store.Driver {
	case StoreDriverFile, StoreDriverSQLite:
	case StoreDriverRedis:
		if strings.TrimSpace(cfg.Store.RedisURL) == "" {
			return fmt.Errorf("store driver %q requires store.redis_url", StoreDriverRedis)
		}
	default:
		return fmt.Errorf("unknown store driver %q (expected file, sqlite, or redis)", cfg.Store.Driver)
	}
	return nil
}

func defaultGalleryDir() string {
	home, err := os.UserHomeDir()
	if err != nil || strings.TrimSpace(home) == "" {
		return "Videos"
	}
	return filepath.Join(home, "Videos")
}
