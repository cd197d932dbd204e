package shell

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streamshell/internal/model"
	"streamshell/internal/orientation"
	"streamshell/internal/settings"
)

type fakeBrowser struct {
	url         string
	backs       int
	reloads     int
	cacheClears int
	fsRequests  int
	fsExits     int
	closed      int
	locks       int
	unlocks     int
	reloadErr   error
	clearErr    error
}

func (b *fakeBrowser) GoBack() error            { b.backs++; return nil }
func (b *fakeBrowser) Reload() error            { b.reloads++; return b.reloadErr }
func (b *fakeBrowser) ClearCache() error        { b.cacheClears++; return b.clearErr }
func (b *fakeBrowser) RequestFullscreen() error { b.fsRequests++; return nil }
func (b *fakeBrowser) ExitFullscreen() error    { b.fsExits++; return nil }
func (b *fakeBrowser) Close() error             { b.closed++; return nil }
func (b *fakeBrowser) LockPortrait() error      { b.locks++; return nil }
func (b *fakeBrowser) Unlock() error            { b.unlocks++; return nil }

type fakeRouter struct{ reasons []string }

func (r *fakeRouter) ToConfig(reason string) { r.reasons = append(r.reasons, reason) }

type fakeNotifier struct {
	initErr error
	sent    []string
}

func (n *fakeNotifier) Init() error { return n.initErr }
func (n *fakeNotifier) Notify(title, body string) error {
	n.sent = append(n.sent, title+": "+body)
	return nil
}

type fakeAlerter struct{ alerts []model.Alert }

func (a *fakeAlerter) Alert(al model.Alert) { a.alerts = append(a.alerts, al) }

type fakeOpener struct {
	urls []string
	err  error
}

func (o *fakeOpener) OpenURL(url string) error {
	o.urls = append(o.urls, url)
	return o.err
}

type fakeDownloads struct {
	started [][2]string
	closed  int
	err     error
}

func (d *fakeDownloads) Start(url, filename string) (string, error) {
	d.started = append(d.started, [2]string{url, filename})
	return "task", d.err
}
func (d *fakeDownloads) Cancel(string) error                              { return nil }
func (d *fakeDownloads) Active() []model.DownloadTask                     { return nil }
func (d *fakeDownloads) History() []model.DownloadTask                    { return nil }
func (d *fakeDownloads) DeleteHistoryEntry(context.Context, string) error { return nil }
func (d *fakeDownloads) ClearHistory(context.Context) error               { return nil }
func (d *fakeDownloads) OpenCompletedFile(string) error                   { return nil }
func (d *fakeDownloads) Close()                                           { d.closed++ }

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	s         *Session
	store     settings.Store
	browser   *fakeBrowser
	opened    int
	router    *fakeRouter
	notifier  *fakeNotifier
	alerter   *fakeAlerter
	opener    *fakeOpener
	downloads *fakeDownloads
	clock     *fakeClock
}

func newFixture(t *testing.T, configured bool, mutate func(*Deps)) *fixture {
	t.Helper()
	store, err := settings.NewFileStoreWithFS(afero.NewMemMapFs(), "/data/settings.json")
	require.NoError(t, err)
	if configured {
		require.NoError(t, settings.SaveConfig(context.Background(), store, settings.PersistedConfig{
			ServerURL:     "https://pay.example.com",
			StreamingPort: "3001",
		}))
	}

	f := &fixture{
		store:     store,
		browser:   &fakeBrowser{},
		router:    &fakeRouter{},
		notifier:  &fakeNotifier{},
		alerter:   &fakeAlerter{},
		opener:    &fakeOpener{},
		downloads: &fakeDownloads{},
		clock:     &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	deps := Deps{
		Store: store,
		OpenBrowser: func(_ context.Context, url string) (Browser, error) {
			f.opened++
			f.browser.url = url
			return f.browser, nil
		},
		Downloads: f.downloads,
		Router:    f.router,
		Notifier:  f.notifier,
		Alerter:   f.alerter,
		External:  f.opener,
		Clock:     f.clock.Now,
	}
	if mutate != nil {
		mutate(&deps)
	}
	f.s, err = NewSession(deps)
	require.NoError(t, err)
	return f
}

func mounted(t *testing.T, mutate func(*Deps)) *fixture {
	t.Helper()
	f := newFixture(t, true, mutate)
	require.NoError(t, f.s.Mount(context.Background()))
	return f
}

func TestMountWithoutConfigRedirects(t *testing.T) {
	f := newFixture(t, false, nil)

	err := f.s.Mount(context.Background())
	require.ErrorIs(t, err, ErrRedirected)
	assert.Equal(t, 0, f.opened)
	assert.Equal(t, []string{"server address is not configured"}, f.router.reasons)
	assert.False(t, f.s.State().Mounted)
}

func TestMountWithInvalidConfigRedirects(t *testing.T) {
	f := newFixture(t, false, nil)
	require.NoError(t, f.store.Set(context.Background(), settings.KeyServerURL, "pay.example.com"))

	err := f.s.Mount(context.Background())
	require.ErrorIs(t, err, ErrRedirected)
	assert.Equal(t, 0, f.opened)
	assert.Len(t, f.router.reasons, 1)
}

func TestMountOpensConfiguredURLAndLocksPortrait(t *testing.T) {
	f := mounted(t, nil)

	assert.Equal(t, 1, f.opened)
	assert.Equal(t, "https://pay.example.com", f.browser.url)
	st := f.s.State()
	assert.True(t, st.Mounted)
	assert.Equal(t, "https://pay.example.com", st.ServerURL)
	assert.Equal(t, 1, f.browser.locks)

	require.NoError(t, f.s.Mount(context.Background()))
	assert.Equal(t, 1, f.opened)
}

func TestMountBrowserFailureAlerts(t *testing.T) {
	f := newFixture(t, true, func(d *Deps) {
		d.OpenBrowser = func(context.Context, string) (Browser, error) {
			return nil, errors.New("chrome not found")
		}
	})

	require.Error(t, f.s.Mount(context.Background()))
	require.Len(t, f.alerter.alerts, 1)
	assert.False(t, f.s.State().Mounted)
}

func TestUnmountTearsDown(t *testing.T) {
	f := mounted(t, nil)
	f.s.HandleBridge(`{"type":"fullscreenchange","isFullscreen":true}`)

	f.s.Unmount()
	f.s.Unmount()

	assert.Equal(t, 1, f.browser.closed)
	assert.Equal(t, 1, f.downloads.closed)
	assert.Equal(t, 2, f.browser.locks)
	assert.False(t, f.s.State().Mounted)
	assert.False(t, f.s.State().Fullscreen)
}

func TestBackPriority(t *testing.T) {
	type setup struct {
		canGoBack  bool
		panel      bool
		menu       bool
		fullscreen bool
		control    bool
	}
	cases := []struct {
		name    string
		setup   setup
		handled bool
		check   func(t *testing.T, f *fixture)
	}{
		{
			name:    "history first",
			setup:   setup{canGoBack: true, panel: true, menu: false, fullscreen: true, control: true},
			handled: true,
			check: func(t *testing.T, f *fixture) {
				assert.Equal(t, 1, f.browser.backs)
				assert.True(t, f.s.State().DownloadsOpen)
				assert.True(t, f.s.State().Fullscreen)
			},
		},
		{
			name:    "downloads panel",
			setup:   setup{panel: true, fullscreen: true},
			handled: true,
			check: func(t *testing.T, f *fixture) {
				assert.False(t, f.s.State().DownloadsOpen)
				assert.True(t, f.s.State().Fullscreen)
			},
		},
		{
			name:    "fullscreen before menu",
			setup:   setup{menu: true, fullscreen: true},
			handled: true,
			check: func(t *testing.T, f *fixture) {
				assert.False(t, f.s.State().Fullscreen)
				assert.True(t, f.s.State().MenuOpen)
				assert.Equal(t, 1, f.browser.fsExits)
			},
		},
		{
			name:    "menu",
			setup:   setup{menu: true},
			handled: true,
			check: func(t *testing.T, f *fixture) {
				st := f.s.State()
				assert.False(t, st.MenuOpen)
				assert.True(t, st.ControlVisible)
				assert.Equal(t, f.clock.now.Add(DefaultControlIdleTimeout), f.s.HideAt())
			},
		},
		{
			name:    "control",
			setup:   setup{control: true},
			handled: true,
			check: func(t *testing.T, f *fixture) {
				assert.False(t, f.s.State().ControlVisible)
			},
		},
		{
			name:    "nothing to handle",
			handled: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := mounted(t, nil)
			f.s.NavigationChanged(tc.setup.canGoBack)
			if tc.setup.control {
				f.s.ShowControl(f.clock.now)
			}
			if tc.setup.menu {
				f.s.ToggleMenu()
			}
			if tc.setup.panel {
				f.s.OpenDownloads()
			}
			if tc.setup.fullscreen {
				f.s.HandleBridge(`{"type":"fullscreenchange","isFullscreen":true}`)
			}

			assert.Equal(t, tc.handled, f.s.HandleBack())
			if tc.check != nil {
				tc.check(t, f)
			}
		})
	}
}

func TestBackWithoutMountIsNotHandled(t *testing.T) {
	f := newFixture(t, true, nil)
	f.s.NavigationChanged(true)
	assert.False(t, f.s.HandleBack())
}

func TestControlAutoHides(t *testing.T) {
	f := mounted(t, nil)
	f.s.ShowControl(f.clock.now)

	f.clock.Advance(2 * time.Second)
	f.s.Tick(f.clock.now)
	assert.True(t, f.s.State().ControlVisible)

	f.clock.Advance(time.Second)
	f.s.Tick(f.clock.now)
	assert.False(t, f.s.State().ControlVisible)
}

func TestControlTimerSuspendedWhileMenuOrPanelOpen(t *testing.T) {
	f := mounted(t, nil)
	f.s.ShowControl(f.clock.now)
	f.s.ToggleMenu()

	f.clock.Advance(10 * time.Second)
	f.s.Tick(f.clock.now)
	assert.True(t, f.s.State().ControlVisible)
	assert.True(t, f.s.HideAt().IsZero())

	f.s.MenuAction(MenuDownloads)
	assert.False(t, f.s.State().MenuOpen)
	assert.True(t, f.s.State().DownloadsOpen)

	f.clock.Advance(10 * time.Second)
	f.s.Tick(f.clock.now)
	assert.True(t, f.s.State().ControlVisible)

	f.s.CloseDownloads()
	f.clock.Advance(2 * time.Second)
	f.s.Tick(f.clock.now)
	assert.True(t, f.s.State().ControlVisible)
	f.clock.Advance(time.Second)
	f.s.Tick(f.clock.now)
	assert.False(t, f.s.State().ControlVisible)
}

func TestMenuNeverOpensAbovePanel(t *testing.T) {
	f := mounted(t, nil)
	f.s.OpenDownloads()
	f.s.ToggleMenu()
	assert.False(t, f.s.State().MenuOpen)

	f.s.CloseDownloads()
	f.s.ToggleMenu()
	assert.True(t, f.s.State().MenuOpen)
	f.s.OpenDownloads()
	assert.False(t, f.s.State().MenuOpen)
	assert.True(t, f.s.State().DownloadsOpen)
}

func TestInteractionTriggerIsDebounced(t *testing.T) {
	f := mounted(t, func(d *Deps) { d.ControlTrigger = TriggerInteraction })

	f.s.HandleBridge(`{"type":"userInteraction"}`)
	assert.True(t, f.s.State().ControlVisible)
	first := f.s.HideAt()

	f.clock.Advance(100 * time.Millisecond)
	f.s.HandleBridge(`{"type":"userInteraction"}`)
	assert.Equal(t, first, f.s.HideAt())

	f.clock.Advance(300 * time.Millisecond)
	f.s.HandleBridge(`{"type":"userInteraction"}`)
	assert.Equal(t, f.clock.now.Add(DefaultControlIdleTimeout), f.s.HideAt())
}

func TestEdgeTriggerIgnoresInteraction(t *testing.T) {
	f := mounted(t, nil)
	f.s.UserInteraction(f.clock.now)
	assert.False(t, f.s.State().ControlVisible)

	f.s.EdgeSwipe(f.clock.now)
	assert.True(t, f.s.State().ControlVisible)
}

func TestRotationWhilePlayingEntersFullscreen(t *testing.T) {
	f := mounted(t, nil)
	f.s.HandleBridge(`{"type":"videoState","isPlaying":true}`)
	f.s.Rotated(orientation.Landscape)

	assert.True(t, f.s.State().Fullscreen)
	assert.Equal(t, 1, f.browser.unlocks)
	assert.Equal(t, 1, f.browser.fsRequests)
}

func TestBridgeDownloadReachesManager(t *testing.T) {
	f := mounted(t, nil)
	f.s.HandleBridge(`{"type":"download","url":"https://x/a.mp4","filename":""}`)
	f.s.HandleBridge(`{"type":"download"`)
	assert.Equal(t, [][2]string{{"https://x/a.mp4", ""}}, f.downloads.started)
}

func TestDivertNavigation(t *testing.T) {
	f := mounted(t, nil)
	assert.True(t, f.s.DivertNavigation("https://pay.example.com/files/movie.mp4"))
	assert.False(t, f.s.DivertNavigation("https://pay.example.com/stream/movie.mp4"))
	assert.False(t, f.s.DivertNavigation("https://pay.example.com/home"))
	assert.Len(t, f.downloads.started, 1)
}

func TestMenuActions(t *testing.T) {
	f := mounted(t, nil)

	f.s.MenuAction(MenuReload)
	assert.Equal(t, 1, f.browser.reloads)

	f.s.MenuAction(MenuClearCache)
	assert.Equal(t, 1, f.browser.cacheClears)
	require.Len(t, f.alerter.alerts, 1)
	assert.Equal(t, "Cache cleared", f.alerter.alerts[0].Title)

	f.s.MenuAction(MenuSettings)
	assert.Equal(t, []string{"settings requested"}, f.router.reasons)

	f.browser.reloadErr = errors.New("detached")
	f.s.MenuAction(MenuReload)
	assert.Len(t, f.alerter.alerts, 2)
}

func TestAlertActionOpensExternal(t *testing.T) {
	f := mounted(t, nil)
	f.s.HandleAlertAction(model.AlertAction{Kind: model.AlertDismiss})
	f.s.HandleAlertAction(model.AlertAction{Kind: model.AlertOpenExternal, Target: "https://x/a.mp4"})
	assert.Equal(t, []string{"https://x/a.mp4"}, f.opener.urls)

	f.opener.err = errors.New("no browser")
	f.s.HandleAlertAction(model.AlertAction{Kind: model.AlertOpenExternal, Target: "https://x/b.mp4"})
	assert.Len(t, f.alerter.alerts, 1)
}

func TestNotificationsDegradeWhenInitFails(t *testing.T) {
	f := newFixture(t, true, nil)
	f.s.HandleBridge(`{"type":"audio","action":"playing","title":"Song","artist":"Band"}`)
	assert.Equal(t, []string{"Now playing: Song - Band"}, f.notifier.sent)

	denied := &fakeNotifier{initErr: errors.New("permission denied")}
	g := newFixture(t, true, func(d *Deps) { d.Notifier = denied })
	g.s.HandleBridge(`{"type":"audio","action":"playing","title":"Song"}`)
	assert.Empty(t, denied.sent)
	assert.False(t, g.s.State().Notifications)
}
