package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	sessionLockDirName   = ".session.lock"
	sessionLockOwnerFile = "owner.json"
)

// SessionLock guards a data directory so two shells never share one
// settings store and download history.
type SessionLock struct {
	lockDir string
}

type sessionLockOwner struct {
	PID       int    `json:"pid"`
	CreatedAt string `json:"created_at"`
	Hostname  string `json:"hostname,omitempty"`
}

func AcquireSessionLock(dataDir string) (SessionLock, error) {
	target := strings.TrimSpace(dataDir)
	if target == "" {
		return SessionLock{}, fmt.Errorf("data directory is required")
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return SessionLock{}, fmt.Errorf("create data directory %s: %w", target, err)
	}

	lockDir := filepath.Join(target, sessionLockDirName)
	ownerPath := filepath.Join(lockDir, sessionLockOwnerFile)
	if err := os.Mkdir(lockDir, 0o755); err != nil {
		if os.IsExist(err) {
			var owner sessionLockOwner
			if data, readErr := os.ReadFile(ownerPath); readErr == nil && json.Unmarshal(data, &owner) == nil && owner.PID > 0 {
				return SessionLock{}, fmt.Errorf(
					"session already running for %s (pid=%d since=%s host=%s)",
					target, owner.PID, owner.CreatedAt, owner.Hostname,
				)
			}
			return SessionLock{}, fmt.Errorf("session already running for %s", target)
		}
		return SessionLock{}, fmt.Errorf("acquire session lock for %s: %w", target, err)
	}

	owner := sessionLockOwner{
		PID:       os.Getpid(),
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Hostname:  hostnameOrUnknown(),
	}
	data, err := json.Marshal(owner)
	if err == nil {
		err = os.WriteFile(ownerPath, data, 0o644)
	}
	if err != nil {
		_ = os.Remove(lockDir)
		return SessionLock{}, fmt.Errorf("write session lock owner for %s: %w", target, err)
	}
	return SessionLock{lockDir: lockDir}, nil
}

func (l SessionLock) Release() error {
	if strings.TrimSpace(l.lockDir) == "" {
		return nil
	}
	_ = os.Remove(filepath.Join(l.lockDir, sessionLockOwnerFile))
	if err := os.Remove(l.lockDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("release session lock %s: %w", l.lockDir, err)
	}
	return nil
}

func hostnameOrUnknown() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return "unknown"
	}
	return host
}
