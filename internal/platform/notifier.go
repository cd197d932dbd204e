package platform

import (
	"errors"
	"sync"

	"github.com/gen2brain/beeep"
)

var ErrNotificationsDisabled = errors.New("notifications are disabled")

// Notifier posts desktop notifications. Until Init succeeds every Notify
// returns ErrNotificationsDisabled.
type Notifier struct {
	appName  string
	disabled bool
	send     func(title, body string) error

	mu    sync.Mutex
	ready bool
}

func NewNotifier(appName string, disabled bool) *Notifier {
	return &Notifier{
		appName:  appName,
		disabled: disabled,
		send: func(title, body string) error {
			return beeep.Notify(title, body, "")
		},
	}
}

func (n *Notifier) Init() error {
	if n.disabled {
		return ErrNotificationsDisabled
	}
	if n.appName != "" {
		beeep.AppName = n.appName
	}
	n.mu.Lock()
	n.ready = true
	n.mu.Unlock()
	return nil
}

func (n *Notifier) Notify(title, body string) error {
	n.mu.Lock()
	ready := n.ready
	n.mu.Unlock()
	if !ready {
		return ErrNotificationsDisabled
	}
	return n.send(title, body)
}
