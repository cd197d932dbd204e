package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"streamshell/internal/model"
)

// LoadHistory always returns a usable slice. A corrupt value yields an empty
// history alongside the decode error so callers can log and carry on.
func LoadHistory(ctx context.Context, store Store) ([]model.DownloadTask, error) {
	raw, err := store.Get(ctx, KeyDownloadHistory)
	if errors.Is(err, ErrNotFound) {
		return []model.DownloadTask{}, nil
	}
	if err != nil {
		return []model.DownloadTask{}, fmt.Errorf("load download history: %w", err)
	}
	if raw == "" {
		return []model.DownloadTask{}, nil
	}
	var tasks []model.DownloadTask
	if err := json.Unmarshal([]byte(raw), &tasks); err != nil {
		return []model.DownloadTask{}, fmt.Errorf("decode download history: %w", err)
	}
	if tasks == nil {
		tasks = []model.DownloadTask{}
	}
	return tasks, nil
}

func SaveHistory(ctx context.Context, store Store, tasks []model.DownloadTask) error {
	if tasks == nil {
		tasks = []model.DownloadTask{}
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("encode download history: %w", err)
	}
	return store.Set(ctx, KeyDownloadHistory, string(data))
}
