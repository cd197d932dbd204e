package orientation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeDevice struct {
	locks   int
	unlocks int
	err     error
}

func (d *fakeDevice) LockPortrait() error { d.locks++; return d.err }
func (d *fakeDevice) Unlock() error       { d.unlocks++; return d.err }

type fakePage struct {
	requests int
	exits    int
}

func (p *fakePage) RequestFullscreen() error { p.requests++; return nil }
func (p *fakePage) ExitFullscreen() error    { p.exits++; return nil }

func newStarted() (*Coordinator, *fakeDevice, *fakePage) {
	d, p := &fakeDevice{}, &fakePage{}
	c := NewCoordinator(d, p, nil)
	c.Start()
	return c, d, p
}

func TestStartLocksPortrait(t *testing.T) {
	c, d, _ := newStarted()
	assert.True(t, c.Locked())
	assert.Equal(t, 1, d.locks)
}

func TestFullscreenMessagesToggleLock(t *testing.T) {
	c, d, _ := newStarted()

	c.FullscreenChanged(true)
	assert.True(t, c.Fullscreen())
	assert.False(t, c.Locked())
	assert.Equal(t, 1, d.unlocks)

	c.FullscreenChanged(false)
	assert.False(t, c.Fullscreen())
	assert.True(t, c.Locked())
	assert.Equal(t, 2, d.locks)
}

func TestLandscapeWhilePlayingForcesFullscreenOnce(t *testing.T) {
	c, d, p := newStarted()

	c.VideoStateChanged(true)
	c.Rotated(Landscape)

	assert.True(t, c.Fullscreen())
	assert.Equal(t, 1, p.requests)
	assert.Equal(t, 1, d.unlocks)

	c.Rotated(Landscape)
	assert.Equal(t, 1, p.requests)
	assert.Equal(t, 1, d.unlocks)
}

func TestLandscapeWithoutVideoDoesNothing(t *testing.T) {
	c, d, p := newStarted()

	c.Rotated(Landscape)
	assert.False(t, c.Fullscreen())
	assert.Equal(t, 0, p.requests)
	assert.Equal(t, 0, d.unlocks)

	c.VideoStateChanged(true)
	c.VideoStateChanged(false)
	c.Rotated(Landscape)
	assert.False(t, c.Fullscreen())
	assert.Equal(t, 0, p.requests)
}

func TestPortraitClearsFlagWithoutExitingPage(t *testing.T) {
	c, _, p := newStarted()
	c.VideoStateChanged(true)
	c.Rotated(Landscape)

	c.Rotated(Portrait)
	assert.False(t, c.Fullscreen())
	assert.Equal(t, 0, p.exits)
}

func TestExitFullscreenRestoresPortrait(t *testing.T) {
	c, d, p := newStarted()
	c.FullscreenChanged(true)

	c.ExitFullscreen()
	assert.False(t, c.Fullscreen())
	assert.True(t, c.Locked())
	assert.Equal(t, 1, p.exits)
	assert.Equal(t, 2, d.locks)
}

func TestTeardownAlwaysLocksAndIgnoresErrors(t *testing.T) {
	c, d, _ := newStarted()
	d.err = errors.New("not supported")

	assert.NotPanics(t, c.Teardown)
	assert.NotPanics(t, c.Teardown)
	assert.Equal(t, 3, d.locks)
	assert.True(t, c.Locked())
}

func TestNilCollaborators(t *testing.T) {
	c := NewCoordinator(nil, nil, nil)
	assert.NotPanics(t, func() {
		c.Start()
		c.VideoStateChanged(true)
		c.Rotated(Landscape)
		c.ExitFullscreen()
		c.Teardown()
	})
}

func TestOrientationString(t *testing.T) {
	assert.Equal(t, "portrait", Portrait.String())
	assert.Equal(t, "landscape", Landscape.String())
}
