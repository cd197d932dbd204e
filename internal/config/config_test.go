package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenConfigMissing(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("STREAMSHELL_DATA_DIR", tmp)

	cfg, err := Load(filepath.Join(tmp, "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, tmp, cfg.DataDir)
	assert.Equal(t, filepath.Join(tmp, "downloads"), cfg.DownloadDir)
	assert.Equal(t, StoreDriverFile, cfg.Store.Driver)
	assert.Equal(t, filepath.Join(tmp, "settings.json"), cfg.Store.Path)
	assert.Equal(t, DefaultHistoryLimit, cfg.HistoryLimit)
	assert.Equal(t, DefaultControlIdleTimeout, cfg.ControlIdleTimeout)
	assert.Equal(t, ControlTriggerEdge, cfg.ControlTrigger)
	assert.Equal(t, LogLevelInfo, cfg.LogLevel)
	assert.Equal(t, DefaultUserAgent+" "+DefaultUserAgentSuffix, cfg.Identification())
}

func TestLoadReadsYAMLAndEnvOverrides(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	body := `data_dir: ` + tmp + `
log_level: DEBUG
store:
  driver: sqlite
history_limit: 10
record_failed: true
control_idle_timeout: 5s
control_trigger: interaction
gallery:
  enabled: true
  album: Clips
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv("STREAMSHELL_HISTORY_LIMIT", "20")
	t.Setenv("STREAMSHELL_USER_AGENT_SUFFIX", "Shell/1.0")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, LogLevelDebug, cfg.LogLevel)
	assert.Equal(t, StoreDriverSQLite, cfg.Store.Driver)
	assert.Equal(t, filepath.Join(tmp, "settings.db"), cfg.Store.Path)
	assert.Equal(t, 20, cfg.HistoryLimit)
	assert.True(t, cfg.RecordFailed)
	assert.Equal(t, 5*time.Second, cfg.ControlIdleTimeout)
	assert.Equal(t, ControlTriggerInteraction, cfg.ControlTrigger)
	assert.True(t, cfg.Gallery.Enabled)
	assert.Equal(t, "Clips", cfg.Gallery.Album)
	assert.Equal(t, DefaultUserAgent+" Shell/1.0", cfg.Identification())
}

func TestLoadRejectsUnknownLogLevel(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: loud\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRedisRequiresURL(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  driver: redis\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
