package transition

import (
	"fmt"
	"math"

	"github.com/matt-g-everett/ledtween/spring"
)

// A Builder makes updators for one transition spec. It is immutable and may be
// shared by any number of properties.
type Builder struct {
	spec Spec
}

// NewBuilder validates spec. Every configuration error surfaces here rather than
// when an updator is built or advanced.
func NewBuilder(spec Spec) (*Builder, error) {
	switch s := spec.(type) {
	case Spring:
		s = s.withDefaults()
		if err := s.validate(); err != nil {
			return nil, err
		}
		spec = s
	case Curve:
		if err := s.validate(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKind, spec)
	}
	return &Builder{spec: spec}, nil
}

// NewBuilderFromConfig resolves and validates a serialised transition.
func NewBuilderFromConfig(c Config) (*Builder, error) {
	spec, err := c.Spec()
	if err != nil {
		return nil, err
	}
	return NewBuilder(spec)
}

// Spec returns the validated spec, with defaults applied.
func (b *Builder) Spec() Spec { return b.spec }

// Build starts a transition from the current value and velocity towards target.
// Curves ignore the current velocity.
func (b *Builder) Build(current, velocity, target float64) Updator {
	switch s := b.spec.(type) {
	case Spring:
		return newSpringUpdator(s, current, velocity, target)
	case Curve:
		return &CurveUpdator{curve: s, from: current, to: target}
	}
	panic(fmt.Sprintf("transition: builder holds unknown spec %T", b.spec))
}

func newSpringUpdator(s Spring, current, velocity, target float64) *SpringUpdator {
	params := spring.Params{
		InitialDisplacement: current - target,
		InitialVelocity:     velocity,
		Mass:                s.Mass,
		Stiffness:           s.Tension,
		Damping:             s.Friction,
	}
	sol, err := spring.Solve(params)
	if err != nil {
		// The spec was validated by NewBuilder; only non-finite values get here.
		panic(fmt.Sprintf("transition: %v", err))
	}

	opts := spring.DefaultSettleOptions()
	opts.Tolerance = s.Tolerance
	settle, _ := spring.SettleTime(sol, opts)

	tolerance := math.Abs(current-target) * s.Tolerance
	if tolerance == 0 {
		tolerance = s.Tolerance
	}

	return &SpringUpdator{
		spring:    s,
		target:    target,
		w0:        params.NaturalFrequency(),
		zeta:      params.DampingRatio(),
		tolerance: tolerance,
		settle:    settle,
		cutoff:    2 * settle,
		prev:      State{Value: current, Velocity: velocity},
	}
}
