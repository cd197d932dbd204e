package cli

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"streamshell/internal/download"
	"streamshell/internal/model"
)

type bridgeMsg struct{ raw string }

type navigationMsg struct{ canGoBack bool }

type interceptMsg struct{ url string }

type downloadEventMsg struct{ ev download.Event }

// eventPump hands events from browser, download and HTTP goroutines to the
// UI loop in arrival order. Push never blocks, so it may also be called from
// inside Update.
type eventPump struct {
	mu     sync.Mutex
	queue  []tea.Msg
	signal chan struct{}
}

func newEventPump() *eventPump {
	return &eventPump{signal: make(chan struct{}, 1)}
}

func (p *eventPump) Push(msg tea.Msg) {
	p.mu.Lock()
	p.queue = append(p.queue, msg)
	p.mu.Unlock()
	select {
	case p.signal <- struct{}{}:
	default:
	}
}

// Run delivers queued messages with send until stop is closed.
func (p *eventPump) Run(send func(tea.Msg), stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-p.signal:
		}
		for {
			p.mu.Lock()
			if len(p.queue) == 0 {
				p.mu.Unlock()
				break
			}
			msg := p.queue[0]
			p.queue = p.queue[1:]
			p.mu.Unlock()
			send(msg)
		}
	}
}

func (p *eventPump) BridgeMessage(raw string) {
	p.Push(bridgeMsg{raw: raw})
}

func (p *eventPump) NavigationChanged(canGoBack bool) {
	p.Push(navigationMsg{canGoBack: canGoBack})
}

func (p *eventPump) DownloadIntercepted(url string) {
	p.Push(interceptMsg{url: url})
}

func (p *eventPump) DownloadEvent(ev download.Event) {
	p.Push(downloadEventMsg{ev: ev})
}

// alertQueue collects alerts raised by the session and the download manager
// until the view drains them.
type alertQueue struct {
	mu     sync.Mutex
	alerts []model.Alert
}

func (q *alertQueue) Alert(a model.Alert) {
	q.mu.Lock()
	q.alerts = append(q.alerts, a)
	q.mu.Unlock()
}

func (q *alertQueue) Drain() []model.Alert {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.alerts
	q.alerts = nil
	return out
}

// configRouter records a request to leave for the configuration entry point.
type configRouter struct {
	mu     sync.Mutex
	reason string
}

func (r *configRouter) ToConfig(reason string) {
	r.mu.Lock()
	if reason == "" {
		reason = "configuration requested"
	}
	r.reason = reason
	r.mu.Unlock()
}

func (r *configRouter) Requested() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reason, r.reason != ""
}
