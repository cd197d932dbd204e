package shell

import "time"

// control tracks the floating control and its idle auto-hide deadline.
type control struct {
	idle     time.Duration
	debounce time.Duration

	visible         bool
	hideAt          time.Time
	lastInteraction time.Time
}

func (c *control) show(now time.Time) {
	c.visible = true
	c.hideAt = now.Add(c.idle)
}

func (c *control) hide() {
	c.visible = false
	c.hideAt = time.Time{}
}

func (c *control) expired(now time.Time) bool {
	return c.visible && !c.hideAt.IsZero() && !now.Before(c.hideAt)
}

// ShowControl shows the floating control and restarts its idle timer.
func (s *Session) ShowControl(now time.Time) {
	s.control.show(now)
}

// Tick hides the control once idle. The timer is suspended while the menu or
// the downloads panel is open.
func (s *Session) Tick(now time.Time) {
	if s.menu || s.panel {
		return
	}
	if s.control.expired(now) {
		s.control.hide()
	}
}

// HideAt reports when the control will auto-hide, zero when it will not.
func (s *Session) HideAt() time.Time {
	if !s.control.visible || s.menu || s.panel {
		return time.Time{}
	}
	return s.control.hideAt
}

// UserInteraction shows the control under the interaction trigger,
// debounced.
func (s *Session) UserInteraction(now time.Time) {
	if s.deps.ControlTrigger != TriggerInteraction {
		return
	}
	if !s.control.lastInteraction.IsZero() && now.Sub(s.control.lastInteraction) < s.control.debounce {
		return
	}
	s.control.lastInteraction = now
	s.control.show(now)
}

// EdgeSwipe shows the control for a swipe from the screen edge.
func (s *Session) EdgeSwipe(now time.Time) {
	s.control.show(now)
}
