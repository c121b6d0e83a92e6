package animate

import (
	"time"

	"github.com/matt-g-everett/ledtween/transition"
)

// Channel is the animation state of one number. It is Resting when it has no
// updator and Animating otherwise.
type Channel struct {
	Value    float64
	Velocity float64

	target  float64
	updator transition.Updator
	started time.Time
}

// Animating reports whether the channel is moving towards a target.
func (c *Channel) Animating() bool { return c.updator != nil }

// Target returns the current target, if any.
func (c *Channel) Target() (float64, bool) { return c.target, c.updator != nil }

// SetTarget starts a transition from the channel's present value and
// velocity, which may be mid-flight. A zero-distance move from rest leaves the
// channel resting.
func (c *Channel) SetTarget(b *transition.Builder, target float64, now time.Time) {
	if target == c.Value && c.Velocity == 0 {
		c.rest(target)
		return
	}
	c.target = target
	c.updator = b.Build(c.Value, c.Velocity, target)
	c.started = now
}

// Advance moves the channel to elapsed time since its transition started and
// reports whether it is still animating. On completion the value snaps to the
// target and the velocity to zero.
func (c *Channel) Advance(elapsed time.Duration) bool {
	if c.updator == nil {
		return false
	}
	s, ok := c.updator.Update(elapsed)
	if !ok {
		c.rest(c.target)
		return false
	}
	c.Value = s.Value
	c.Velocity = s.Velocity
	return true
}

func (c *Channel) rest(value float64) {
	c.Value = value
	c.Velocity = 0
	c.target = 0
	c.updator = nil
	c.started = time.Time{}
}
