package world

import "time"

// Clock is the sandbox simulation clock. It only moves when Advance is called,
// stretches with Scale and stands still while paused.
type Clock struct {
	now    time.Duration
	scale  float64
	paused bool
}

// NewClock returns a clock at zero running at real speed.
func NewClock() *Clock {
	return &Clock{scale: 1}
}

// Now implements host.Clock.
func (c *Clock) Now() time.Duration { return c.now }

// Advance moves simulation time by dt of wall time and returns the
// simulation step actually applied.
func (c *Clock) Advance(dt time.Duration) time.Duration {
	if c.paused || dt <= 0 {
		return 0
	}
	step := time.Duration(float64(dt) * c.scale)
	c.now += step
	return step
}

// SetScale changes the time multiplier. Non-positive values pause the clock.
func (c *Clock) SetScale(scale float64) {
	if scale <= 0 {
		c.paused = true
		return
	}
	c.scale = scale
}

func (c *Clock) Scale() float64 { return c.scale }
func (c *Clock) Pause()         { c.paused = true }
func (c *Clock) Resume()        { c.paused = false }
func (c *Clock) Paused() bool   { return c.paused }
