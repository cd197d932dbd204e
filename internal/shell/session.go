package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"streamshell/internal/bridge"
	"streamshell/internal/inject"
	"streamshell/internal/model"
	"streamshell/internal/orientation"
	"streamshell/internal/settings"
)

const (
	TriggerEdge        = "edge"
	TriggerInteraction = "interaction"

	DefaultControlIdleTimeout  = 3 * time.Second
	DefaultInteractionDebounce = 300 * time.Millisecond
)

var (
	ErrRedirected = errors.New("redirected to configuration")
	ErrNotMounted = errors.New("session is not mounted")
)

// UIState is the transient screen state. It is never persisted.
type UIState struct {
	Mounted        bool
	ServerURL      string
	Fullscreen     bool
	CanGoBack      bool
	ControlVisible bool
	MenuOpen       bool
	DownloadsOpen  bool
	Notifications  bool
}

type Deps struct {
	Store       settings.Store
	OpenBrowser BrowserFactory
	Downloads   Downloads
	Router      Router
	Notifier    Notifier
	Alerter     Alerter
	External    ExternalOpener
	// Device overrides the orientation lock service. When nil the mounted
	// browser is used if it implements orientation.Device.
	Device orientation.Device

	ControlIdleTimeout  time.Duration
	ControlTrigger      string
	InteractionDebounce time.Duration

	Clock func() time.Time
	Log   *slog.Logger
}

// Session is the screen controller around the embedded browser. All methods
// must be called from one event loop goroutine; the fields below are the
// authoritative values read by the back handler and the rotation listener.
type Session struct {
	log  *slog.Logger
	deps Deps

	orientation *orientation.Coordinator
	bridge      *bridge.Handler

	browser       Browser
	mounted       bool
	serverURL     string
	canGoBack     bool
	notifications bool

	control control
	menu    bool
	panel   bool
}

func NewSession(deps Deps) (*Session, error) {
	if deps.Store == nil {
		return nil, errors.New("settings store is required")
	}
	if deps.OpenBrowser == nil {
		return nil, errors.New("browser factory is required")
	}
	if deps.Router == nil {
		return nil, errors.New("router is required")
	}
	if deps.Log == nil {
		deps.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.ControlIdleTimeout <= 0 {
		deps.ControlIdleTimeout = DefaultControlIdleTimeout
	}
	if deps.InteractionDebounce <= 0 {
		deps.InteractionDebounce = DefaultInteractionDebounce
	}
	if deps.ControlTrigger == "" {
		deps.ControlTrigger = TriggerEdge
	}

	s := &Session{
		log:  deps.Log.With(slog.String("item", "Session")),
		deps: deps,
		control: control{
			idle:     deps.ControlIdleTimeout,
			debounce: deps.InteractionDebounce,
		},
	}

	if deps.Notifier != nil {
		if err := deps.Notifier.Init(); err != nil {
			s.log.Warn("notifications disabled", slog.Any("error", err))
		} else {
			s.notifications = true
		}
	}

	s.orientation = orientation.NewCoordinator(deviceProxy{s}, pageProxy{s}, deps.Log)

	var starter bridge.DownloadStarter
	if deps.Downloads != nil {
		starter = deps.Downloads
	}
	s.bridge = bridge.NewHandler(s.orientation, starter, deps.Log).WithNowPlaying(s)
	s.bridge.OnInteraction(func() {
		s.UserInteraction(s.deps.Clock())
	})
	return s, nil
}

// Mount reads the persisted configuration and opens the browser. Missing or
// invalid configuration redirects to the configuration entry point and the
// browser is never opened.
func (s *Session) Mount(ctx context.Context) error {
	if s.mounted {
		return nil
	}
	cfg, err := settings.LoadConfig(ctx, s.deps.Store)
	if err != nil {
		s.log.Info("configuration unavailable, redirecting", slog.Any("error", err))
		s.deps.Router.ToConfig(redirectReason(err))
		return fmt.Errorf("%w: %v", ErrRedirected, err)
	}

	b, err := s.deps.OpenBrowser(ctx, cfg.ServerURL)
	if err != nil {
		s.alert(model.DismissAlert("Unable to open page", err.Error()))
		return fmt.Errorf("open browser: %w", err)
	}
	s.browser = b
	s.serverURL = cfg.ServerURL
	s.mounted = true
	s.orientation.Start()
	s.log.Info("session mounted", slog.String("url", cfg.ServerURL))
	return nil
}

func redirectReason(err error) string {
	switch {
	case errors.Is(err, settings.ErrConfigMissing):
		return "server address is not configured"
	case errors.Is(err, settings.ErrInvalidServerURL):
		return "server address is invalid"
	default:
		return "configuration could not be read"
	}
}

// Unmount restores portrait, stops download event delivery and closes the
// browser. It is safe to call more than once.
func (s *Session) Unmount() {
	if !s.mounted {
		return
	}
	s.orientation.Teardown()
	if s.deps.Downloads != nil {
		s.deps.Downloads.Close()
	}
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			s.log.Warn("cannot close browser", slog.Any("error", err))
		}
	}
	s.browser = nil
	s.mounted = false
	s.menu = false
	s.panel = false
	s.control.hide()
	s.log.Info("session unmounted")
}

// HandleBack reports whether the press was consumed; false means the
// platform default applies. Priority: in-page history, downloads panel,
// fullscreen, overlay menu, floating control.
func (s *Session) HandleBack() bool {
	now := s.deps.Clock()
	switch {
	case s.canGoBack && s.browser != nil:
		if err := s.browser.GoBack(); err != nil {
			s.log.Warn("cannot navigate back", slog.Any("error", err))
		}
	case s.panel:
		s.CloseDownloads()
	case s.orientation.Fullscreen():
		s.orientation.ExitFullscreen()
	case s.menu:
		s.menu = false
		s.control.show(now)
	case s.control.visible:
		s.control.hide()
	default:
		return false
	}
	return true
}

func (s *Session) NavigationChanged(canGoBack bool) {
	s.canGoBack = canGoBack
}

func (s *Session) Rotated(o orientation.Orientation) {
	s.orientation.Rotated(o)
}

// HandleBridge decodes and dispatches one payload from the page. Malformed
// payloads are dropped.
func (s *Session) HandleBridge(raw string) {
	s.bridge.Handle(raw)
}

// DivertNavigation starts a download for navigations that target a
// downloadable file and reports whether the navigation was consumed.
func (s *Session) DivertNavigation(url string) bool {
	if !inject.ShouldIntercept(url) || s.deps.Downloads == nil {
		return false
	}
	if _, err := s.deps.Downloads.Start(url, ""); err != nil {
		s.log.Warn("cannot start intercepted download", slog.String("url", url), slog.Any("error", err))
		return false
	}
	return true
}

// HandleAlertAction runs the choice made on an alert.
func (s *Session) HandleAlertAction(a model.AlertAction) {
	if a.Kind != model.AlertOpenExternal || a.Target == "" {
		return
	}
	if s.deps.External == nil {
		return
	}
	if err := s.deps.External.OpenURL(a.Target); err != nil {
		s.log.Warn("cannot open external browser", slog.String("url", a.Target), slog.Any("error", err))
		s.alert(model.DismissAlert("Unable to open browser", err.Error()))
	}
}

func (s *Session) NowPlaying(title, artist string) {
	if !s.notifications || s.deps.Notifier == nil {
		return
	}
	body := title
	if body == "" {
		body = "Audio"
	}
	if artist != "" {
		body += " - " + artist
	}
	if err := s.deps.Notifier.Notify("Now playing", body); err != nil {
		s.log.Debug("notification dropped", slog.Any("error", err))
	}
}

func (s *Session) Downloads() Downloads {
	return s.deps.Downloads
}

func (s *Session) State() UIState {
	return UIState{
		Mounted:        s.mounted,
		ServerURL:      s.serverURL,
		Fullscreen:     s.orientation.Fullscreen(),
		CanGoBack:      s.canGoBack,
		ControlVisible: s.control.visible,
		MenuOpen:       s.menu,
		DownloadsOpen:  s.panel,
		Notifications:  s.notifications,
	}
}

func (s *Session) alert(a model.Alert) {
	if s.deps.Alerter != nil {
		s.deps.Alerter.Alert(a)
	}
}

type pageProxy struct{ s *Session }

func (p pageProxy) RequestFullscreen() error {
	if p.s.browser == nil {
		return ErrNotMounted
	}
	return p.s.browser.RequestFullscreen()
}

func (p pageProxy) ExitFullscreen() error {
	if p.s.browser == nil {
		return ErrNotMounted
	}
	return p.s.browser.ExitFullscreen()
}

type deviceProxy struct{ s *Session }

func (d deviceProxy) target() orientation.Device {
	if d.s.deps.Device != nil {
		return d.s.deps.Device
	}
	if dev, ok := d.s.browser.(orientation.Device); ok {
		return dev
	}
	return nil
}

func (d deviceProxy) LockPortrait() error {
	if t := d.target(); t != nil {
		return t.LockPortrait()
	}
	return nil
}

func (d deviceProxy) Unlock() error {
	if t := d.target(); t != nil {
		return t.Unlock()
	}
	return nil
}
