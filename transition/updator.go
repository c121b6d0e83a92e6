package transition

import (
	"math"
	"time"

	"github.com/charmbracelet/harmonica"
)

// firstStep is the interval assumed before the first sample of a spring.
const firstStep = time.Second / 60

// State is an interpolated value and its velocity in units per second.
type State struct {
	Value    float64
	Velocity float64
}

// An Updator produces the state of one animated number from the time elapsed
// since it was built. Update returns false once the transition has finished;
// the caller then snaps to the target.
type Updator interface {
	Update(elapsed time.Duration) (State, bool)
	// Settle is the expected time to rest, used for scheduling and cleanup.
	Settle() time.Duration
}

// SpringUpdator integrates a spring step by step from its previous sample, so
// a new target or new parameters mid-flight never cause a jump.
type SpringUpdator struct {
	spring Spring
	target float64

	w0, zeta float64

	tolerance float64
	settle    time.Duration
	cutoff    time.Duration

	started  bool
	prevTime time.Duration
	prev     State
}

// Target returns the value the spring is pulled towards.
func (u *SpringUpdator) Target() float64 { return u.target }

// Previous returns the last computed sample and its time since the delay ended.
func (u *SpringUpdator) Previous() (time.Duration, State) { return u.prevTime, u.prev }

func (u *SpringUpdator) Settle() time.Duration { return u.spring.Delay + u.settle }

func (u *SpringUpdator) Update(elapsed time.Duration) (State, bool) {
	if elapsed < u.spring.Delay {
		// Held still; the initial velocity applies from the first step.
		return State{Value: u.prev.Value}, true
	}
	t := elapsed - u.spring.Delay

	if !u.started {
		u.prevTime = t - firstStep
		u.started = true
	}
	if t <= u.prevTime {
		return u.prev, true
	}
	if t > u.cutoff {
		return State{Value: u.target}, false
	}

	dt := (t - u.prevTime).Seconds()
	next := u.step(dt)
	u.prevTime = t
	u.prev = next

	if math.Abs(next.Value-u.target) < u.tolerance {
		return next, false
	}
	return next, true
}

func (u *SpringUpdator) step(dt float64) State {
	p := u.prev
	if u.spring.Integrator == Exact {
		pos, vel := harmonica.NewSpring(dt, u.w0, u.zeta).Update(p.Value, p.Velocity, u.target)
		return State{Value: pos, Velocity: vel}
	}

	// Forward Euler
	acc := ((u.target-p.Value)*u.spring.Tension - u.spring.Friction*p.Velocity) / u.spring.Mass
	return State{
		Value:    p.Value + dt*p.Velocity,
		Velocity: p.Velocity + dt*acc,
	}
}

// CurveUpdator interpolates along an easing curve. It is a pure function of elapsed time.
type CurveUpdator struct {
	curve    Curve
	from, to float64
}

func (u *CurveUpdator) Settle() time.Duration { return u.curve.Delay + u.curve.Duration }

func (u *CurveUpdator) Update(elapsed time.Duration) (State, bool) {
	if elapsed < u.curve.Delay {
		return State{Value: u.from}, true
	}
	if elapsed >= u.curve.Delay+u.curve.Duration {
		return State{Value: u.to}, false
	}

	p := float64(elapsed-u.curve.Delay) / float64(u.curve.Duration)
	d, v := u.curve.Easing.At(p)
	diff := u.to - u.from
	return State{
		Value:    u.from + d*diff,
		Velocity: diff * v / u.curve.Duration.Seconds(),
	}, true
}
