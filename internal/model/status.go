package model

import (
	"errors"
	"fmt"
)

const (
	StatusDownloading = "downloading"
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
)

const (
	ReasonCancelled = "cancelled"
	ReasonTransfer  = "transfer_error"
)

var ErrInvalidTransition = errors.New("invalid task status transition")

// A task moves one way: downloading -> completed or downloading -> failed.
var allowedTransitions = map[string]map[string]bool{
	"": {
		StatusDownloading: true,
	},
	StatusDownloading: {
		StatusDownloading: true,
		StatusCompleted:   true,
		StatusFailed:      true,
	},
	StatusCompleted: {},
	StatusFailed:    {},
}

func IsKnownStatus(status string) bool {
	_, ok := allowedTransitions[status]
	return ok
}

func CanTransition(from, to string) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}

func TransitionTaskStatus(task *DownloadTask, toStatus string, reason string) error {
	from := task.Status
	if !CanTransition(from, toStatus) {
		return fmt.Errorf("%w: %q -> %q (task_id=%s)", ErrInvalidTransition, from, toStatus, task.ID)
	}
	task.Status = toStatus
	task.Reason = reason
	return nil
}
