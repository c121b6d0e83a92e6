// Package transition turns a transition specification into updators: per
// retarget state objects that produce the next value and velocity of an
// animated number from the time elapsed since the retarget.
package transition

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/matt-g-everett/ledtween/easing"
)

var (
	// ErrUnknownKind is returned for a transition type that is neither a spring nor a known curve.
	ErrUnknownKind = errors.New("transition: unknown transition kind")

	// ErrInvalidSpec is returned for a recognised transition with out of range parameters.
	ErrInvalidSpec = errors.New("transition: invalid transition")
)

const (
	defaultMass      = 1.0
	defaultTolerance = 1e-3
	defaultDuration  = time.Second
)

// Kind discriminates the Spec variants.
type Kind int

const (
	KindSpring Kind = iota
	KindCurve
)

func (k Kind) String() string {
	switch k {
	case KindSpring:
		return "spring"
	case KindCurve:
		return "curve"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Spec is implemented by Spring and Curve only.
type Spec interface {
	Kind() Kind
	validate() error
}

// Integrator selects how spring updators step between ticks.
type Integrator int

const (
	// Euler is first-order forward Euler on the previous sample.
	Euler Integrator = iota
	// Exact applies the closed-form step of the oscillator over each interval.
	Exact
)

func (i Integrator) String() string {
	if i == Exact {
		return "exact"
	}
	return "euler"
}

// Spring is a physical spring transition. Mass and Tolerance default to 1 and 1e-3.
type Spring struct {
	Tension    float64
	Friction   float64
	Mass       float64
	Tolerance  float64
	Delay      time.Duration
	Integrator Integrator
}

func (Spring) Kind() Kind { return KindSpring }

func (s Spring) withDefaults() Spring {
	if s.Mass == 0 {
		s.Mass = defaultMass
	}
	if s.Tolerance == 0 {
		s.Tolerance = defaultTolerance
	}
	return s
}

func (s Spring) validate() error {
	switch {
	case !(s.Tension > 0) || math.IsInf(s.Tension, 0):
		return fmt.Errorf("%w: spring tension %v must be positive", ErrInvalidSpec, s.Tension)
	case !(s.Friction >= 0) || math.IsInf(s.Friction, 0):
		return fmt.Errorf("%w: spring friction %v must not be negative", ErrInvalidSpec, s.Friction)
	case !(s.Mass > 0):
		return fmt.Errorf("%w: spring mass %v must be positive", ErrInvalidSpec, s.Mass)
	case !(s.Tolerance > 0):
		return fmt.Errorf("%w: spring tolerance %v must be positive", ErrInvalidSpec, s.Tolerance)
	case s.Delay < 0:
		return fmt.Errorf("%w: negative delay %v", ErrInvalidSpec, s.Delay)
	case s.Integrator != Euler && s.Integrator != Exact:
		return fmt.Errorf("%w: integrator %d", ErrInvalidSpec, int(s.Integrator))
	}
	return nil
}

// Curve is a bounded-duration transition shaped by an easing curve.
type Curve struct {
	Easing   easing.Curve
	Delay    time.Duration
	Duration time.Duration
}

func (Curve) Kind() Kind { return KindCurve }

func (c Curve) validate() error {
	switch {
	case c.Easing.Displacement == nil || c.Easing.Velocity == nil:
		return fmt.Errorf("%w: curve %q has no easing functions", ErrInvalidSpec, c.Easing.Name)
	case c.Delay < 0:
		return fmt.Errorf("%w: negative delay %v", ErrInvalidSpec, c.Delay)
	case c.Duration < 0:
		return fmt.Errorf("%w: negative duration %v", ErrInvalidSpec, c.Duration)
	}
	return nil
}

// NewCurve looks up a named easing curve.
func NewCurve(name string, delay, duration time.Duration) (Curve, error) {
	e, ok := easing.Lookup(name)
	if !ok {
		return Curve{}, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
	return Curve{Easing: e, Delay: delay, Duration: duration}, nil
}
