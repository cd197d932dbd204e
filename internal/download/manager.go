package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"streamshell/internal/model"
	"streamshell/internal/settings"
)

const DefaultHistoryLimit = 50

var (
	ErrUnknownTask    = errors.New("unknown download task")
	ErrNotCompleted   = errors.New("download is not completed")
	ErrClosed         = errors.New("download manager closed")
	ErrUnsupportedURL = errors.New("download url must be http or https")
)

type Notifier interface {
	Notify(title, body string) error
}

type Sharer interface {
	OpenFile(path string) error
}

type Gallery interface {
	Register(ctx context.Context, path string) error
}

type Alerter interface {
	Alert(a model.Alert)
}

type EventKind string

const (
	EventStarted        EventKind = "started"
	EventProgress       EventKind = "progress"
	EventCompleted      EventKind = "completed"
	EventFailed         EventKind = "failed"
	EventHistoryChanged EventKind = "history_changed"
)

type Event struct {
	Kind EventKind
	Task model.DownloadTask
}

// Listener receives manager events from transfer goroutines. It must not
// block and must not call back into the manager synchronously.
type Listener func(Event)

type Options struct {
	Store        settings.Store
	Fs           afero.Fs
	Dir          string
	Client       *http.Client
	UserAgent    string
	HistoryLimit int
	RecordFailed bool

	Notifier Notifier
	Sharer   Sharer
	Gallery  Gallery
	Alerter  Alerter
	Listener Listener
	Log      *slog.Logger
	Now      func() time.Time
}

type activeTask struct {
	task     model.DownloadTask
	cancel   context.CancelFunc
	meter    RateMeter
	lastStep int
	reason   string
}

// Manager owns concurrent download tasks and the persisted history. Tasks
// are always addressed by id.
type Manager struct {
	log  *slog.Logger
	opts Options

	http *httpTransfer
	hls  *hlsTransfer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// persistMu orders history writes; each write snapshots the history
	// while holding it.
	persistMu sync.Mutex

	mu      sync.Mutex
	closed  bool
	active  map[string]*activeTask
	order   []string
	history []model.DownloadTask
}

func NewManager(ctx context.Context, opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, errors.New("settings store is required")
	}
	if strings.TrimSpace(opts.Dir) == "" {
		return nil, errors.New("download directory is required")
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	if opts.Log == nil {
		opts.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	log := opts.Log.With(slog.String("item", "DownloadManager"))

	history, err := settings.LoadHistory(ctx, opts.Store)
	if err != nil {
		log.Warn("cannot load download history, starting empty", slog.Any("error", err))
	}
	if len(history) > opts.HistoryLimit {
		history = history[:opts.HistoryLimit]
	}

	runCtx, cancel := context.WithCancel(context.Background())
	h := newHTTPTransfer(opts.Client, opts.Fs, opts.UserAgent)
	return &Manager{
		log:     log,
		opts:    opts,
		http:    h,
		hls:     &hlsTransfer{http: h},
		ctx:     runCtx,
		cancel:  cancel,
		active:  map[string]*activeTask{},
		history: history,
	}, nil
}

// Start creates a task in the downloading state and begins the transfer in
// the background. Duplicate URLs produce independent tasks.
func (m *Manager) Start(rawURL, filename string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", ErrUnsupportedURL
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate task id: %w", err)
	}

	name := SanitizeFilename(rawURL, filename)
	if IsHLS(rawURL) && strings.EqualFold(path.Ext(name), ".m3u8") {
		name = strings.TrimSuffix(name, path.Ext(name)) + ".ts"
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", ErrClosed
	}
	target := filepath.Join(m.opts.Dir, name)
	if m.pathTakenLocked(target) {
		name = WithSuffix(name, id.String())
		target = filepath.Join(m.opts.Dir, name)
	}

	task := model.DownloadTask{
		ID:        id.String(),
		URL:       rawURL,
		Filename:  name,
		Path:      target,
		CreatedAt: m.opts.Now().UTC(),
	}
	if err := model.TransitionTaskStatus(&task, model.StatusDownloading, ""); err != nil {
		m.mu.Unlock()
		return "", err
	}

	ctx, cancel := context.WithCancel(m.ctx)
	m.active[task.ID] = &activeTask{task: task, cancel: cancel}
	m.order = append(m.order, task.ID)
	m.wg.Add(1)
	m.mu.Unlock()

	m.log.Info("download started", slog.String("id", task.ID), slog.String("url", rawURL), slog.String("file", name))
	m.emit(Event{Kind: EventStarted, Task: task})

	go m.run(ctx, task)
	return task.ID, nil
}

func (m *Manager) pathTakenLocked(target string) bool {
	for _, a := range m.active {
		if a.task.Path == target {
			return true
		}
	}
	if _, err := m.opts.Fs.Stat(target); err == nil {
		return true
	}
	return false
}

func (m *Manager) run(ctx context.Context, task model.DownloadTask) {
	defer m.wg.Done()

	m.notify("Downloading", task.Filename)
	var transfer Transfer = m.http
	if IsHLS(task.URL) {
		transfer = m.hls
	}
	size, err := transfer.Fetch(ctx, task.URL, task.Path, func(written, expected int64) {
		m.onProgress(task.ID, written, expected)
	})
	if err != nil {
		m.fail(task.ID, err)
		return
	}
	m.complete(ctx, task.ID, size)
}

func (m *Manager) onProgress(id string, written, expected int64) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	a, ok := m.active[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	if f := Fraction(written, expected); f > a.task.Progress {
		a.task.Progress = f
	}
	a.task.Speed = a.meter.Observe(m.opts.Now(), written)
	a.task.Written = written
	if expected > 0 {
		a.task.Size = expected
	}
	snapshot := a.task
	step := snapshot.Percent() / 10
	notifyStep := step > a.lastStep && snapshot.Percent() < 100
	if notifyStep {
		a.lastStep = step
	}
	m.mu.Unlock()

	if notifyStep {
		m.notify("Downloading", fmt.Sprintf("%s - %d%%", snapshot.Filename, snapshot.Percent()))
	}
	m.emit(Event{Kind: EventProgress, Task: snapshot})
}

func (m *Manager) complete(ctx context.Context, id string, size int64) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	a, ok := m.active[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	task := a.task
	m.removeActiveLocked(id)
	task.Progress = 1
	task.Size = size
	task.Written = size
	task.Speed = 0
	task.CompletedAt = m.opts.Now().UTC()
	if err := model.TransitionTaskStatus(&task, model.StatusCompleted, ""); err != nil {
		m.mu.Unlock()
		m.log.Error("cannot complete task", slog.String("id", id), slog.Any("error", err))
		return
	}
	m.prependHistoryLocked(task)
	m.mu.Unlock()

	m.persist(ctx)
	m.log.Info("download completed", slog.String("id", id), slog.String("path", task.Path), slog.Int64("size", size))

	if m.opts.Gallery != nil {
		if err := m.opts.Gallery.Register(ctx, task.Path); err != nil {
			m.log.Warn("cannot register file in gallery", slog.String("path", task.Path), slog.Any("error", err))
		}
	}

	m.notify("Download complete", task.Filename)
	m.emit(Event{Kind: EventCompleted, Task: task})
	m.emit(Event{Kind: EventHistoryChanged})
}

func (m *Manager) fail(id string, cause error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	a, ok := m.active[id]
	if !ok {
		m.mu.Unlock()
		return
	}
	task := a.task
	reason := a.reason
	if reason == "" {
		reason = model.ReasonTransfer
	}
	m.removeActiveLocked(id)
	task.Speed = 0
	task.CompletedAt = m.opts.Now().UTC()
	if err := model.TransitionTaskStatus(&task, model.StatusFailed, reason); err != nil {
		m.mu.Unlock()
		m.log.Error("cannot fail task", slog.String("id", id), slog.Any("error", err))
		return
	}
	recorded := m.opts.RecordFailed
	if recorded {
		m.prependHistoryLocked(task)
	}
	m.mu.Unlock()

	if recorded {
		m.persist(m.ctx)
	}

	if reason == model.ReasonCancelled {
		m.log.Info("download cancelled", slog.String("id", id))
		m.emit(Event{Kind: EventFailed, Task: task})
		if recorded {
			m.emit(Event{Kind: EventHistoryChanged})
		}
		return
	}

	m.log.Error("download failed", slog.String("id", id), slog.String("url", task.URL), slog.Any("error", cause))
	m.notify("Download failed", task.Filename)
	m.alert(model.Alert{
		Title:   "Download failed",
		Message: fmt.Sprintf("%s could not be downloaded: %v", task.Filename, cause),
		Actions: []model.AlertAction{
			{Label: "Open in browser", Kind: model.AlertOpenExternal, Target: task.URL},
			{Label: "Dismiss", Kind: model.AlertDismiss},
		},
	})
	m.emit(Event{Kind: EventFailed, Task: task})
	if recorded {
		m.emit(Event{Kind: EventHistoryChanged})
	}
}

// Cancel stops an in-flight transfer. The task ends failed with the
// cancelled reason once its transfer returns.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.active[id]
	if !ok {
		return ErrUnknownTask
	}
	a.reason = model.ReasonCancelled
	a.cancel()
	return nil
}

// Active returns a snapshot of in-flight tasks in start order.
func (m *Manager) Active() []model.DownloadTask {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.DownloadTask, 0, len(m.order))
	for _, id := range m.order {
		if a, ok := m.active[id]; ok {
			out = append(out, a.task)
		}
	}
	return out
}

// History returns a snapshot of the history, newest first.
func (m *Manager) History() []model.DownloadTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.historyLocked()
}

// DeleteHistoryEntry drops one record and its file. A file that is already
// gone is not an error.
func (m *Manager) DeleteHistoryEntry(ctx context.Context, id string) error {
	m.mu.Lock()
	idx := -1
	for i, t := range m.history {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		m.mu.Unlock()
		return ErrUnknownTask
	}
	task := m.history[idx]
	m.history = append(m.history[:idx], m.history[idx+1:]...)
	m.mu.Unlock()

	if err := m.persistErr(ctx); err != nil {
		return err
	}
	m.emit(Event{Kind: EventHistoryChanged})

	if err := m.removeFile(task.Path); err != nil {
		m.alert(model.DismissAlert("Unable to delete file", fmt.Sprintf("%s: %v", task.Filename, err)))
		return err
	}
	return nil
}

// ClearHistory removes every recorded file best-effort and empties the
// persisted history.
func (m *Manager) ClearHistory(ctx context.Context) error {
	m.mu.Lock()
	old := m.history
	m.history = []model.DownloadTask{}
	m.mu.Unlock()

	if err := m.persistErr(ctx); err != nil {
		return err
	}
	m.emit(Event{Kind: EventHistoryChanged})

	var errs []error
	for _, t := range old {
		if err := m.removeFile(t.Path); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Filename, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		m.alert(model.DismissAlert("Unable to delete some files", err.Error()))
		return err
	}
	return nil
}

// OpenCompletedFile hands a completed download to the sharing service.
func (m *Manager) OpenCompletedFile(id string) error {
	m.mu.Lock()
	var (
		task  model.DownloadTask
		found bool
	)
	for _, t := range m.history {
		if t.ID == id {
			task, found = t, true
			break
		}
	}
	m.mu.Unlock()

	if !found {
		return ErrUnknownTask
	}
	if task.Status != model.StatusCompleted {
		return ErrNotCompleted
	}

	err := m.openFile(task.Path)
	if err != nil {
		m.log.Warn("cannot open completed file", slog.String("path", task.Path), slog.Any("error", err))
		m.alert(model.DismissAlert("Unable to open file", fmt.Sprintf("%s: %v", task.Filename, err)))
	}
	return err
}

func (m *Manager) openFile(p string) error {
	if _, err := m.opts.Fs.Stat(p); err != nil {
		return fmt.Errorf("stat %s: %w", p, err)
	}
	if m.opts.Sharer == nil {
		return errors.New("sharing is not available")
	}
	return m.opts.Sharer.OpenFile(p)
}

// Close cancels in-flight transfers and stops event delivery. Tasks still
// active are dropped without a terminal event.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
}

func (m *Manager) removeActiveLocked(id string) {
	delete(m.active, id)
	for i, v := range m.order {
		if v == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *Manager) prependHistoryLocked(task model.DownloadTask) {
	m.history = append([]model.DownloadTask{task}, m.history...)
	if len(m.history) > m.opts.HistoryLimit {
		m.history = m.history[:m.opts.HistoryLimit]
	}
}

func (m *Manager) historyLocked() []model.DownloadTask {
	out := make([]model.DownloadTask, len(m.history))
	copy(out, m.history)
	return out
}

func (m *Manager) persist(ctx context.Context) {
	if err := m.persistErr(ctx); err != nil {
		m.log.Error("cannot persist download history", slog.Any("error", err))
	}
}

// persistErr writes the current history. Writes are serialized and each one
// snapshots the history after the previous write finished, so the store
// always ends with the latest state.
func (m *Manager) persistErr(ctx context.Context) error {
	if ctx.Err() != nil {
		ctx = context.Background()
	}
	m.persistMu.Lock()
	defer m.persistMu.Unlock()

	m.mu.Lock()
	history := m.historyLocked()
	m.mu.Unlock()
	return settings.SaveHistory(ctx, m.opts.Store, history)
}

func (m *Manager) removeFile(p string) error {
	if strings.TrimSpace(p) == "" {
		return nil
	}
	if err := m.opts.Fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", p, err)
	}
	return nil
}

func (m *Manager) notify(title, body string) {
	if m.opts.Notifier == nil {
		return
	}
	if err := m.opts.Notifier.Notify(title, body); err != nil {
		m.log.Debug("notification dropped", slog.String("title", title), slog.Any("error", err))
	}
}

func (m *Manager) alert(a model.Alert) {
	if m.opts.Alerter != nil {
		m.opts.Alerter.Alert(a)
	}
}

func (m *Manager) emit(ev Event) {
	if m.opts.Listener != nil {
		m.opts.Listener(ev)
	}
}
