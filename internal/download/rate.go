package download

import "time"

// RateMeter derives an instantaneous transfer rate from successive progress
// callbacks.
type RateMeter struct {
	started   bool
	lastAt    time.Time
	lastBytes int64
	rate      float64
}

// Observe records written bytes at now and returns bytes per second. A zero
// or negative time delta keeps the previous rate.
func (m *RateMeter) Observe(now time.Time, written int64) float64 {
	if !m.started {
		m.started = true
		m.lastAt = now
		m.lastBytes = written
		return 0
	}
	dt := now.Sub(m.lastAt).Seconds()
	if dt <= 0 {
		return m.rate
	}
	delta := written - m.lastBytes
	if delta < 0 {
		delta = 0
	}
	m.rate = float64(delta) / dt
	m.lastAt = now
	m.lastBytes = written
	return m.rate
}

func (m *RateMeter) Rate() float64 {
	return m.rate
}

// Fraction converts a written/expected pair into [0,1]. Unknown totals
// report 0.
func Fraction(written, expected int64) float64 {
	if expected <= 0 || written <= 0 {
		return 0
	}
	f := float64(written) / float64(expected)
	if f > 1 {
		return 1
	}
	return f
}
