// Package easing is a catalogue of named easing curves. Every curve maps
// normalised time t in [0, 1] to normalised displacement with d(0) = 0 and
// d(1) = 1, and provides the derivative of that displacement.
package easing

import (
	"math"
	"sort"

	"github.com/fogleman/ease"
)

// Func maps normalised time to a normalised quantity.
type Func func(t float64) float64

// A Curve is a displacement function and its derivative.
type Curve struct {
	Name         string
	Displacement Func
	Velocity     Func
}

// At evaluates the curve with t clamped to [0, 1].
func (c Curve) At(t float64) (d, v float64) {
	t = clamp(t)
	return c.Displacement(t), c.Velocity(t)
}

func clamp(t float64) float64 {
	return math.Max(0, math.Min(1, t))
}

// derivativeStep is the half-width of the central difference used for curves without an analytic derivative.
const derivativeStep = 1e-6

// numeric returns a central-difference derivative of f, one-sided at the ends of [0, 1].
func numeric(f Func) Func {
	return func(t float64) float64 {
		lo := math.Max(0, t-derivativeStep)
		hi := math.Min(1, t+derivativeStep)
		return (f(hi) - f(lo)) / (hi - lo)
	}
}

var catalogue = map[string]Curve{}

func register(name string, d, v Func) {
	if v == nil {
		v = numeric(d)
	}
	catalogue[name] = Curve{Name: name, Displacement: d, Velocity: v}
}

func init() {
	register("linear", ease.Linear, func(float64) float64 { return 1 })

	register("easeInQuad", ease.InQuad, func(t float64) float64 { return 2 * t })
	register("easeOutQuad", ease.OutQuad, func(t float64) float64 { return 2 - 2*t })
	register("easeInOutQuad", ease.InOutQuad, func(t float64) float64 {
		if t < 0.5 {
			return 4 * t
		}
		return 4 - 4*t
	})

	register("easeInCubic", ease.InCubic, func(t float64) float64 { return 3 * t * t })
	register("easeOutCubic", ease.OutCubic, func(t float64) float64 { return 3 * (t - 1) * (t - 1) })
	register("easeInOutCubic", ease.InOutCubic, func(t float64) float64 {
		if t < 0.5 {
			return 12 * t * t
		}
		return 12 * (1 - t) * (1 - t)
	})

	register("easeInQuart", ease.InQuart, func(t float64) float64 { return 4 * t * t * t })
	register("easeOutQuart", ease.OutQuart, func(t float64) float64 { return -4 * (t - 1) * (t - 1) * (t - 1) })
	register("easeInOutQuart", ease.InOutQuart, func(t float64) float64 {
		if t < 0.5 {
			return 32 * t * t * t
		}
		return -32 * (t - 1) * (t - 1) * (t - 1)
	})

	register("easeInQuint", ease.InQuint, func(t float64) float64 { return 5 * math.Pow(t, 4) })
	register("easeOutQuint", ease.OutQuint, func(t float64) float64 { return 5 * math.Pow(t-1, 4) })
	register("easeInOutQuint", ease.InOutQuint, func(t float64) float64 {
		if t < 0.5 {
			return 80 * math.Pow(t, 4)
		}
		return 80 * math.Pow(1-t, 4)
	})

	register("easeInSine", ease.InSine, nil)
	register("easeOutSine", ease.OutSine, nil)
	register("easeInOutSine", ease.InOutSine, nil)
	register("easeInExpo", ease.InExpo, nil)
	register("easeOutExpo", ease.OutExpo, nil)
	register("easeInOutExpo", ease.InOutExpo, nil)
	register("easeInCirc", ease.InCirc, nil)
	register("easeOutCirc", ease.OutCirc, nil)
	register("easeInOutCirc", ease.InOutCirc, nil)
	register("easeInBack", ease.InBack, nil)
	register("easeOutBack", ease.OutBack, nil)
	register("easeInOutBack", ease.InOutBack, nil)
	register("easeInBounce", ease.InBounce, nil)
	register("easeOutBounce", ease.OutBounce, nil)
	register("easeInOutBounce", ease.InOutBounce, nil)
	register("easeInElastic", ease.InElastic, nil)
	register("easeOutElastic", ease.OutElastic, nil)
	register("easeInOutElastic", ease.InOutElastic, nil)

	// CSS timing function presets.
	registerBezier("ease", 0.25, 0.1, 0.25, 1)
	registerBezier("easeIn", 0.42, 0, 1, 1)
	registerBezier("easeOut", 0, 0, 0.58, 1)
	registerBezier("easeInOut", 0.42, 0, 0.58, 1)
}

// Lookup returns the named curve.
func Lookup(name string) (Curve, bool) {
	c, ok := catalogue[name]
	return c, ok
}

// Names lists every registered curve in sorted order.
func Names() []string {
	names := make([]string, 0, len(catalogue))
	for name := range catalogue {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
