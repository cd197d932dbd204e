package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"streamshell/internal/inject"
	"streamshell/internal/orientation"
)

var ErrClosed = errors.New("browser surface closed")

// Events receives what happens inside the page. Calls arrive on rod's event
// goroutines, so implementations must hand them to the UI loop.
type Events interface {
	BridgeMessage(raw string)
	NavigationChanged(canGoBack bool)
	DownloadIntercepted(url string)
}

type Options struct {
	Bin        string
	ControlURL string
	Headless   bool
	Width      int
	Height     int
	UserAgent  string
	Binding    string
	Events     Events
	Log        *slog.Logger
}

// Surface is a Chrome tab driven over the DevTools protocol standing in for
// the embedded mobile browser. It also acts as the device orientation
// service through viewport emulation.
type Surface struct {
	log  *slog.Logger
	opts Options

	ctx    context.Context
	cancel context.CancelFunc

	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	router   *rod.HijackRouter

	mu     sync.Mutex
	closed bool
	screen screen
}

// Open starts or attaches to Chrome and loads url with the bridge script
// installed on every new document.
func Open(ctx context.Context, url string, opts Options) (*Surface, error) {
	if opts.Binding == "" {
		opts.Binding = inject.DefaultBinding
	}
	if opts.Log == nil {
		opts.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	runCtx, cancel := context.WithCancel(context.Background())
	s := &Surface{
		log:    opts.Log.With(slog.String("item", "BrowserSurface")),
		opts:   opts,
		ctx:    runCtx,
		cancel: cancel,
		screen: newScreen(opts.Width, opts.Height),
	}
	if err := s.start(ctx, url); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Surface) start(ctx context.Context, url string) error {
	controlURL := s.opts.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(s.opts.Headless)
		if s.opts.Bin != "" {
			l = l.Bin(s.opts.Bin)
		}
		u, err := l.Context(ctx).Launch()
		if err != nil {
			return fmt.Errorf("launch chrome: %w", err)
		}
		s.launcher = l
		controlURL = u
	}

	b := rod.New().ControlURL(controlURL).Context(s.ctx)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}
	s.browser = b

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	s.page = page

	if s.opts.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: s.opts.UserAgent}); err != nil {
			return fmt.Errorf("set user agent: %w", err)
		}
	}
	if err := s.applyScreen(); err != nil {
		return err
	}
	if err := (proto.RuntimeAddBinding{Name: s.opts.Binding}).Call(page); err != nil {
		return fmt.Errorf("add bridge binding: %w", err)
	}
	if _, err := page.EvalOnNewDocument(inject.Script(s.opts.Binding)); err != nil {
		return fmt.Errorf("install bridge script: %w", err)
	}

	s.listen()
	if err := s.interceptDownloads(); err != nil {
		return err
	}

	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

func (s *Surface) listen() {
	wait := s.page.Context(s.ctx).EachEvent(
		func(ev *proto.RuntimeBindingCalled) {
			if ev.Name != s.opts.Binding || s.opts.Events == nil {
				return
			}
			s.opts.Events.BridgeMessage(ev.Payload)
		},
		func(ev *proto.PageFrameNavigated) {
			if ev.Frame == nil || ev.Frame.ParentID != "" {
				return
			}
			s.log.Debug("navigated", slog.String("url", ev.Frame.URL))
			go s.refreshHistory()
		},
		func(ev *proto.PageNavigatedWithinDocument) {
			go s.refreshHistory()
		},
	)
	go wait()
}

func (s *Surface) refreshHistory() {
	if s.opts.Events == nil {
		return
	}
	canGoBack, err := s.CanGoBack()
	if err != nil {
		if !s.isClosed() {
			s.log.Debug("cannot read navigation history", slog.Any("error", err))
		}
		return
	}
	s.opts.Events.NavigationChanged(canGoBack)
}

// interceptDownloads diverts document navigations to downloadable files
// away from the page.
func (s *Surface) interceptDownloads() error {
	router := s.page.HijackRequests()
	err := router.Add("*", proto.NetworkResourceTypeDocument, func(h *rod.Hijack) {
		target := h.Request.URL().String()
		if !inject.ShouldIntercept(target) {
			h.ContinueRequest(&proto.FetchContinueRequest{})
			return
		}
		s.log.Info("navigation diverted to downloads", slog.String("url", target))
		h.Response.Fail(proto.NetworkErrorReasonAborted)
		if s.opts.Events != nil {
			s.opts.Events.DownloadIntercepted(target)
		}
	})
	if err != nil {
		return fmt.Errorf("install download interception: %w", err)
	}
	s.router = router
	go router.Run()
	return nil
}

func (s *Surface) CanGoBack() (bool, error) {
	page, err := s.livePage()
	if err != nil {
		return false, err
	}
	res, err := proto.PageGetNavigationHistory{}.Call(page)
	if err != nil {
		return false, fmt.Errorf("get navigation history: %w", err)
	}
	return res.CurrentIndex > 0, nil
}

func (s *Surface) GoBack() error {
	page, err := s.livePage()
	if err != nil {
		return err
	}
	if err := page.NavigateBack(); err != nil {
		return fmt.Errorf("navigate back: %w", err)
	}
	return nil
}

func (s *Surface) Reload() error {
	page, err := s.livePage()
	if err != nil {
		return err
	}
	if err := page.Reload(); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	return nil
}

func (s *Surface) ClearCache() error {
	page, err := s.livePage()
	if err != nil {
		return err
	}
	if err := (proto.NetworkClearBrowserCache{}).Call(page); err != nil {
		return fmt.Errorf("clear browser cache: %w", err)
	}
	return nil
}

func (s *Surface) RequestFullscreen() error {
	return s.eval(inject.RequestFullscreenScript)
}

func (s *Surface) ExitFullscreen() error {
	return s.eval(inject.ExitFullscreenScript)
}

func (s *Surface) eval(js string) error {
	page, err := s.livePage()
	if err != nil {
		return err
	}
	if _, err := page.Evaluate(rod.Eval(js).ByUser()); err != nil {
		return fmt.Errorf("evaluate: %w", err)
	}
	return nil
}

func (s *Surface) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	var errs []error
	if s.router != nil {
		if err := s.router.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop hijack router: %w", err))
		}
	}
	s.cancel()
	if s.browser != nil {
		if s.launcher != nil {
			if err := s.browser.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close browser: %w", err))
			}
			s.launcher.Cleanup()
		} else if s.page != nil {
			if err := s.page.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close page: %w", err))
			}
		}
	}
	return errors.Join(errs...)
}

func (s *Surface) livePage() (*rod.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.page == nil {
		return nil, ErrClosed
	}
	return s.page, nil
}

func (s *Surface) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

var _ orientation.Device = (*Surface)(nil)
