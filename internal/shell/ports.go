package shell

import (
	"context"

	"streamshell/internal/model"
)

// Browser is the embedded browser surface opened by Mount.
type Browser interface {
	GoBack() error
	Reload() error
	ClearCache() error
	RequestFullscreen() error
	ExitFullscreen() error
	Close() error
}

// BrowserFactory opens the embedded browser at url.
type BrowserFactory func(ctx context.Context, url string) (Browser, error)

// Router moves the user to the configuration entry point.
type Router interface {
	ToConfig(reason string)
}

// Notifier is the system notification service. Init is called once while
// the session is built; a failure disables notifications for the session.
type Notifier interface {
	Init() error
	Notify(title, body string) error
}

type Alerter interface {
	Alert(a model.Alert)
}

// ExternalOpener opens a URL outside the embedded browser.
type ExternalOpener interface {
	OpenURL(url string) error
}

type Downloads interface {
	Start(url, filename string) (string, error)
	Cancel(id string) error
	Active() []model.DownloadTask
	History() []model.DownloadTask
	DeleteHistoryEntry(ctx context.Context, id string) error
	ClearHistory(ctx context.Context) error
	OpenCompletedFile(id string) error
	Close()
}
