// Package spring solves the damped harmonic oscillator m·x'' + c·x' + k·x = 0
// in closed form and estimates how long its motion takes to come to rest.
package spring

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNegativeDiscriminant is returned when a quadratic has no real roots.
	ErrNegativeDiscriminant = errors.New("spring: negative discriminant")

	// ErrInvalidParams indicates a mass, stiffness or damping value outside its valid range.
	ErrInvalidParams = errors.New("spring: invalid oscillator parameters")
)

// criticalBand is how close the damping ratio must be to 1 to use the critical branch.
const criticalBand = 1e-9

// Regime is one of the three qualitative solutions of the oscillator.
type Regime int

const (
	UnderDamped Regime = iota
	CriticallyDamped
	OverDamped
)

func (r Regime) String() string {
	switch r {
	case UnderDamped:
		return "under-damped"
	case CriticallyDamped:
		return "critically-damped"
	case OverDamped:
		return "over-damped"
	}
	return fmt.Sprintf("Regime(%d)", int(r))
}

// Params are the physical parameters and boundary conditions of an oscillator.
type Params struct {
	InitialDisplacement float64
	InitialVelocity     float64
	Mass                float64
	Stiffness           float64
	Damping             float64
}

// NaturalFrequency returns w0 = sqrt(k/m).
func (p Params) NaturalFrequency() float64 {
	return math.Sqrt(p.Stiffness / p.Mass)
}

// DampingRatio returns c / (2·sqrt(m·k)).
func (p Params) DampingRatio() float64 {
	return 0.5 * p.Damping / math.Sqrt(p.Mass*p.Stiffness)
}

// Regime classifies the parameters by damping ratio.
func (p Params) Regime() Regime {
	zeta := p.DampingRatio()
	switch {
	case math.Abs(zeta-1) <= criticalBand:
		return CriticallyDamped
	case zeta > 1:
		return OverDamped
	default:
		return UnderDamped
	}
}

// Validate checks mass > 0, stiffness > 0, damping >= 0 and finite boundary conditions.
func (p Params) Validate() error {
	for _, v := range []float64{p.InitialDisplacement, p.InitialVelocity, p.Mass, p.Stiffness, p.Damping} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value in %+v", ErrInvalidParams, p)
		}
	}
	if p.Mass <= 0 {
		return fmt.Errorf("%w: mass %v must be positive", ErrInvalidParams, p.Mass)
	}
	if p.Stiffness <= 0 {
		return fmt.Errorf("%w: stiffness %v must be positive", ErrInvalidParams, p.Stiffness)
	}
	if p.Damping < 0 {
		return fmt.Errorf("%w: damping %v must not be negative", ErrInvalidParams, p.Damping)
	}
	return nil
}

// SolveQuadratic returns the roots of a·x² + b·x + c = 0, larger root first.
func SolveQuadratic(a, b, c float64) (plus, minus float64, err error) {
	disc := b*b - 4*a*c
	if disc < 0 {
		return 0, 0, fmt.Errorf("%w: %v", ErrNegativeDiscriminant, disc)
	}
	delta := math.Sqrt(disc)
	plus = 0.5 * (-b + delta) / a
	minus = 0.5 * (-b - delta) / a
	return plus, minus, nil
}

// Solution holds the closed-form displacement and velocity of one oscillator.
// Both functions take time in seconds and are exact for any t >= 0.
type Solution struct {
	Params Params
	Regime Regime

	x func(t float64) float64
	v func(t float64) float64
}

// X returns the displacement at t seconds.
func (s Solution) X(t float64) float64 { return s.x(t) }

// V returns the velocity at t seconds.
func (s Solution) V(t float64) float64 { return s.v(t) }

// Solve derives the closed-form solution for p. The regime is recomputed on every call.
func Solve(p Params) (Solution, error) {
	if err := p.Validate(); err != nil {
		return Solution{}, err
	}

	x0 := p.InitialDisplacement
	v0 := p.InitialVelocity
	w0 := p.NaturalFrequency()
	zeta := p.DampingRatio()

	s := Solution{Params: p, Regime: p.Regime()}
	switch s.Regime {
	case OverDamped:
		// gamma² + 2·zeta·w0·gamma + w0² = 0
		gp, gm, err := SolveQuadratic(1, 2*zeta*w0, w0*w0)
		if err != nil {
			return Solution{}, err
		}
		a := x0 + (gp*x0-v0)/(gm-gp)
		b := -(gp*x0 - v0) / (gm - gp)
		s.x = func(t float64) float64 {
			return a*math.Exp(gp*t) + b*math.Exp(gm*t)
		}
		s.v = func(t float64) float64 {
			return a*gp*math.Exp(gp*t) + b*gm*math.Exp(gm*t)
		}

	case CriticallyDamped:
		a := x0
		b := v0 + w0*x0
		s.x = func(t float64) float64 {
			return (a + b*t) * math.Exp(-w0*t)
		}
		s.v = func(t float64) float64 {
			e := math.Exp(-w0 * t)
			return b*e - (a+b*t)*w0*e
		}

	default:
		wd := w0 * math.Sqrt(1-zeta*zeta)
		a := x0
		b := (zeta*w0*x0 + v0) / wd
		s.x = func(t float64) float64 {
			return math.Exp(-zeta*w0*t) * (a*math.Cos(wd*t) + b*math.Sin(wd*t))
		}
		s.v = func(t float64) float64 {
			e := math.Exp(-zeta * w0 * t)
			c, sn := math.Cos(wd*t), math.Sin(wd*t)
			return e*(-zeta*w0)*(a*c+b*sn) + e*(-a*sn*wd+b*c*wd)
		}
	}

	return s, nil
}
