package browser

import (
	"fmt"

	"github.com/go-rod/rod/lib/proto"

	"streamshell/internal/orientation"
)

const (
	DefaultWidth  = 412
	DefaultHeight = 915
)

// screen models the emulated handset: the physical device orientation and
// whether the app holds a portrait lock.
type screen struct {
	width  int
	height int
	device orientation.Orientation
	locked bool
}

func newScreen(width, height int) screen {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	if width > height {
		width, height = height, width
	}
	return screen{width: width, height: height, locked: true}
}

// effective is the orientation the content is rendered in.
func (sc screen) effective() orientation.Orientation {
	if sc.locked {
		return orientation.Portrait
	}
	return sc.device
}

func (sc screen) metrics() proto.EmulationSetDeviceMetricsOverride {
	m := proto.EmulationSetDeviceMetricsOverride{
		Width:             sc.width,
		Height:            sc.height,
		DeviceScaleFactor: 1,
		Mobile:            true,
		ScreenOrientation: &proto.EmulationScreenOrientation{
			Type:  proto.EmulationScreenOrientationTypePortraitPrimary,
			Angle: 0,
		},
	}
	if sc.effective() == orientation.Landscape {
		m.Width, m.Height = sc.height, sc.width
		m.ScreenOrientation = &proto.EmulationScreenOrientation{
			Type:  proto.EmulationScreenOrientationTypeLandscapePrimary,
			Angle: 90,
		}
	}
	return m
}

func (s *Surface) LockPortrait() error {
	s.mu.Lock()
	s.screen.locked = true
	s.mu.Unlock()
	return s.applyScreen()
}

func (s *Surface) Unlock() error {
	s.mu.Lock()
	s.screen.locked = false
	s.mu.Unlock()
	return s.applyScreen()
}

// Rotate simulates the handset being turned. Content follows only while the
// orientation is unlocked.
func (s *Surface) Rotate(o orientation.Orientation) error {
	s.mu.Lock()
	s.screen.device = o
	s.mu.Unlock()
	return s.applyScreen()
}

func (s *Surface) applyScreen() error {
	page, err := s.livePage()
	if err != nil {
		return err
	}
	s.mu.Lock()
	m := s.screen.metrics()
	s.mu.Unlock()
	if err := m.Call(page); err != nil {
		return fmt.Errorf("apply device metrics: %w", err)
	}
	return nil
}
