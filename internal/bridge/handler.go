package bridge

import (
	"errors"
	"io"
	"log/slog"
)

type OrientationSink interface {
	FullscreenChanged(isFullscreen bool)
	VideoStateChanged(isPlaying bool)
}

type DownloadStarter interface {
	Start(url, filename string) (string, error)
}

type NowPlayingSink interface {
	NowPlaying(title, artist string)
}

// Handler dispatches decoded bridge messages. Handle never fails: a payload
// that cannot be decoded is dropped without touching any sink.
type Handler struct {
	log           *slog.Logger
	orientation   OrientationSink
	downloads     DownloadStarter
	nowPlaying    NowPlayingSink
	onInteraction func()
}

func NewHandler(orientation OrientationSink, downloads DownloadStarter, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{
		log:         log.With(slog.String("item", "BridgeHandler")),
		orientation: orientation,
		downloads:   downloads,
	}
}

func (h *Handler) OnInteraction(fn func()) {
	h.onInteraction = fn
}

func (h *Handler) WithNowPlaying(np NowPlayingSink) *Handler {
	h.nowPlaying = np
	return h
}

func (h *Handler) Handle(raw string) {
	msg, err := Decode(raw)
	if err != nil {
		if errors.Is(err, ErrUnknownKind) {
			h.log.Debug("ignoring bridge message", slog.Any("error", err))
		} else {
			h.log.Debug("dropping bridge message", slog.Any("error", err))
		}
		return
	}
	h.Dispatch(msg)
}

func (h *Handler) Dispatch(msg Message) {
	switch m := msg.(type) {
	case FullscreenChange:
		if h.orientation != nil {
			h.orientation.FullscreenChanged(m.IsFullscreen)
		}
	case VideoState:
		if h.orientation != nil {
			h.orientation.VideoStateChanged(m.IsPlaying)
		}
	case Download:
		if h.downloads == nil {
			return
		}
		if _, err := h.downloads.Start(m.URL, m.Filename); err != nil {
			h.log.Warn("cannot start download", slog.String("url", m.URL), slog.Any("error", err))
		}
	case UserInteraction:
		if h.onInteraction != nil {
			h.onInteraction()
		}
	case Audio:
		if !m.Playing {
			// Desktop notifications cannot be withdrawn once shown.
			h.log.Debug("audio paused, now-playing notification left in place")
			return
		}
		if h.nowPlaying != nil {
			h.nowPlaying.NowPlaying(m.Title, m.Artist)
		}
	}
}
