package settings

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamshell/internal/model"
)

func newMemStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStoreWithFS(afero.NewMemMapFs(), "/data/settings.json")
	require.NoError(t, err)
	return s
}

func TestFileStoreRoundTripAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t)

	_, err := s.Get(ctx, KeyServerURL)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, KeyServerURL, "https://pay.example.com"))
	v, err := s.Get(ctx, KeyServerURL)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example.com", v)

	require.NoError(t, s.Delete(ctx, KeyServerURL))
	require.NoError(t, s.Delete(ctx, KeyServerURL))
	_, err = s.Get(ctx, KeyServerURL)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/settings.json", []byte("{not json"), 0o600))
	s, err := NewFileStoreWithFS(fs, "/data/settings.json")
	require.NoError(t, err)

	_, err = s.Get(context.Background(), KeyServerURL)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Get(ctx, KeyStreamingPort)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, KeyStreamingPort, "3001"))
	require.NoError(t, s.Set(ctx, KeyStreamingPort, "8443"))
	v, err := s.Get(ctx, KeyStreamingPort)
	require.NoError(t, err)
	assert.Equal(t, "8443", v)

	require.NoError(t, s.Delete(ctx, KeyStreamingPort))
	_, err = s.Get(ctx, KeyStreamingPort)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "etcd"})
	require.Error(t, err)
}

func TestNewRedisStoreRejectsBadURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "not-a-url")
	require.Error(t, err)
}

func TestRedisKeyJoinsParts(t *testing.T) {
	assert.Equal(t, "streamshell:settings", redisKey(RedisKeyPrefix, RedisKeyHash))
}

func TestLoadConfigMissingServerURL(t *testing.T) {
	_, err := LoadConfig(context.Background(), newMemStore(t))
	require.ErrorIs(t, err, ErrConfigMissing)
}

func TestLoadConfigDefaultsPort(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t)
	require.NoError(t, s.Set(ctx, KeyServerURL, "http://10.0.0.5"))

	cfg, err := LoadConfig(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, DefaultStreamingPort, cfg.StreamingPort)

	u, err := cfg.StreamingURL()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:3001", u)
}

func TestSaveConfigValidates(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t)

	err := SaveConfig(ctx, s, PersistedConfig{ServerURL: "ftp://host", StreamingPort: "3001"})
	require.ErrorIs(t, err, ErrInvalidServerURL)

	err = SaveConfig(ctx, s, PersistedConfig{ServerURL: "https://host", StreamingPort: "-4"})
	require.ErrorIs(t, err, ErrInvalidPort)

	err = SaveConfig(ctx, s, PersistedConfig{ServerURL: "https://host", StreamingPort: "abc"})
	require.ErrorIs(t, err, ErrInvalidPort)

	require.NoError(t, SaveConfig(ctx, s, PersistedConfig{ServerURL: " https://host:8080/app ", StreamingPort: "9000"}))
	cfg, err := LoadConfig(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, "https://host:8080/app", cfg.ServerURL)
	u, err := cfg.StreamingURL()
	require.NoError(t, err)
	assert.Equal(t, "https://host:9000/app", u)
}

func TestHistoryRoundTripAndClear(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t)

	tasks, err := LoadHistory(ctx, s)
	require.NoError(t, err)
	assert.Empty(t, tasks)

	done := model.DownloadTask{
		ID:          "a",
		URL:         "https://x/a.mp4",
		Filename:    "a.mp4",
		Progress:    1,
		Status:      model.StatusCompleted,
		CompletedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, SaveHistory(ctx, s, []model.DownloadTask{done}))

	tasks, err = LoadHistory(ctx, s)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, done.ID, tasks[0].ID)
	assert.True(t, done.CompletedAt.Equal(tasks[0].CompletedAt))

	require.NoError(t, SaveHistory(ctx, s, nil))
	tasks, err = LoadHistory(ctx, s)
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}

func TestLoadHistoryCorruptValueIsEmpty(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t)
	require.NoError(t, s.Set(ctx, KeyDownloadHistory, "[{broken"))

	tasks, err := LoadHistory(ctx, s)
	require.Error(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}
