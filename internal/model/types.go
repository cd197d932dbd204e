package model

import (
	"math"
	"time"
)

// DownloadTask is one download attempt. The same shape is persisted in the
// download history, newest first.
type DownloadTask struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Filename    string    `json:"filename"`
	Path        string    `json:"path,omitempty"`
	Progress    float64   `json:"progress"`
	Speed       float64   `json:"speed,omitempty"`
	Size        int64     `json:"size,omitempty"`
	Written     int64     `json:"written,omitempty"`
	Status      string    `json:"status"`
	Reason      string    `json:"reason,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	CompletedAt time.Time `json:"completedAt,omitempty"`
}

// Percent reports progress as a whole number in [0,100].
func (t DownloadTask) Percent() int {
	p := int(math.Floor(t.Progress * 100))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

type AlertActionKind string

const (
	AlertDismiss      AlertActionKind = "dismiss"
	AlertOpenExternal AlertActionKind = "open_external"
)

type AlertAction struct {
	Label  string
	Kind   AlertActionKind
	Target string
}

// Alert is the single user-visible failure surface.
type Alert struct {
	Title   string
	Message string
	Actions []AlertAction
}

func DismissAlert(title, message string) Alert {
	return Alert{
		Title:   title,
		Message: message,
		Actions: []AlertAction{{Label: "OK", Kind: AlertDismiss}},
	}
}
