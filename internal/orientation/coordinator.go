package orientation

import (
	"fmt"
	"io"
	"log/slog"
)

type Orientation int

const (
	Portrait Orientation = iota
	Landscape
)

func (o Orientation) String() string {
	switch o {
	case Portrait:
		return "portrait"
	case Landscape:
		return "landscape"
	default:
		return fmt.Sprintf("orientation(%d)", int(o))
	}
}

// Device is the orientation lock service.
type Device interface {
	LockPortrait() error
	Unlock() error
}

// Page runs fullscreen commands inside the embedded content.
type Page interface {
	RequestFullscreen() error
	ExitFullscreen() error
}

// Coordinator folds fullscreen messages, video playback state and device
// rotation into one fullscreen flag and a lock policy. It is driven from a
// single event loop and is not safe for concurrent use.
type Coordinator struct {
	log    *slog.Logger
	device Device
	page   Page

	fullscreen   bool
	videoPlaying bool
	locked       bool
	known        bool
}

func NewCoordinator(device Device, page Page, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Coordinator{
		log:    log.With(slog.String("item", "OrientationCoordinator")),
		device: device,
		page:   page,
	}
}

// Start applies the initial portrait lock.
func (c *Coordinator) Start() {
	c.lockPortrait()
}

func (c *Coordinator) FullscreenChanged(isFullscreen bool) {
	c.fullscreen = isFullscreen
	if isFullscreen {
		c.unlock()
		return
	}
	c.lockPortrait()
}

func (c *Coordinator) VideoStateChanged(isPlaying bool) {
	c.videoPlaying = isPlaying
	if isPlaying {
		c.unlock()
	}
}

// Rotated reacts to a device rotation. Landscape with a playing video forces
// fullscreen; portrait only clears the local flag and leaves the page's own
// fullscreen element alone.
func (c *Coordinator) Rotated(o Orientation) {
	switch o {
	case Landscape:
		if !c.videoPlaying || c.fullscreen {
			return
		}
		if c.page != nil {
			if err := c.page.RequestFullscreen(); err != nil {
				c.log.Warn("cannot request fullscreen", slog.Any("error", err))
			}
		}
		c.fullscreen = true
		c.unlock()
	case Portrait:
		c.fullscreen = false
	}
}

// ExitFullscreen leaves fullscreen from the native side and restores the
// portrait lock.
func (c *Coordinator) ExitFullscreen() {
	if c.page != nil {
		if err := c.page.ExitFullscreen(); err != nil {
			c.log.Warn("cannot exit fullscreen", slog.Any("error", err))
		}
	}
	c.fullscreen = false
	c.lockPortrait()
}

// Teardown always attempts the portrait lock, whatever the tracked state.
func (c *Coordinator) Teardown() {
	if c.device != nil {
		_ = c.device.LockPortrait()
	}
	c.locked = true
	c.known = true
	c.fullscreen = false
	c.videoPlaying = false
}

func (c *Coordinator) Fullscreen() bool {
	return c.fullscreen
}

func (c *Coordinator) Locked() bool {
	return c.locked
}

func (c *Coordinator) VideoPlaying() bool {
	return c.videoPlaying
}

func (c *Coordinator) unlock() {
	if c.known && !c.locked {
		return
	}
	c.locked = false
	c.known = true
	if c.device == nil {
		return
	}
	if err := c.device.Unlock(); err != nil {
		c.log.Warn("cannot unlock orientation", slog.Any("error", err))
	}
}

func (c *Coordinator) lockPortrait() {
	if c.known && c.locked {
		return
	}
	c.locked = true
	c.known = true
	if c.device == nil {
		return
	}
	if err := c.device.LockPortrait(); err != nil {
		c.log.Warn("cannot lock portrait orientation", slog.Any("error", err))
	}
}
