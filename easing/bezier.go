package easing

import (
	"fmt"
	"math"
)

const (
	newtonIterations = 8
	newtonMinSlope   = 1e-3
	bisectPrecision  = 1e-12
	bisectIterations = 64
)

// bezier is a CSS-style cubic bezier from (0,0) to (1,1) with control points (x1,y1) and (x2,y2).
type bezier struct {
	x1, y1, x2, y2 float64
}

func cubic(p1, p2, s float64) float64 {
	u := 1 - s
	return 3*u*u*s*p1 + 3*u*s*s*p2 + s*s*s
}

func cubicSlope(p1, p2, s float64) float64 {
	u := 1 - s
	return 3*u*u*p1 + 6*u*s*(p2-p1) + 3*s*s*(1-p2)
}

// param finds the curve parameter s with x(s) = t.
func (b bezier) param(t float64) float64 {
	s := t
	for i := 0; i < newtonIterations; i++ {
		slope := cubicSlope(b.x1, b.x2, s)
		if math.Abs(slope) < newtonMinSlope {
			break
		}
		x := cubic(b.x1, b.x2, s) - t
		if math.Abs(x) < bisectPrecision {
			return s
		}
		s -= x / slope
	}
	if s >= 0 && s <= 1 && math.Abs(cubic(b.x1, b.x2, s)-t) < bisectPrecision {
		return s
	}

	lo, hi := 0.0, 1.0
	s = t
	for i := 0; i < bisectIterations; i++ {
		x := cubic(b.x1, b.x2, s)
		if math.Abs(x-t) < bisectPrecision {
			break
		}
		if x < t {
			lo = s
		} else {
			hi = s
		}
		s = (lo + hi) / 2
	}
	return s
}

func (b bezier) displacement(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return cubic(b.y1, b.y2, b.param(t))
}

func (b bezier) velocity(t float64) float64 {
	s := b.param(clamp(t))
	dx := cubicSlope(b.x1, b.x2, s)
	if math.Abs(dx) < newtonMinSlope {
		return numeric(b.displacement)(t)
	}
	return cubicSlope(b.y1, b.y2, s) / dx
}

// CubicBezier builds a curve from CSS cubic-bezier control points. The x
// coordinates must lie in [0, 1] so the curve is a function of time.
func CubicBezier(x1, y1, x2, y2 float64) (Curve, error) {
	if x1 < 0 || x1 > 1 || x2 < 0 || x2 > 1 {
		return Curve{}, fmt.Errorf("easing: bezier x coordinates %v, %v outside [0, 1]", x1, x2)
	}
	b := bezier{x1, y1, x2, y2}
	return Curve{
		Name:         fmt.Sprintf("cubicBezier(%g,%g,%g,%g)", x1, y1, x2, y2),
		Displacement: b.displacement,
		Velocity:     b.velocity,
	}, nil
}

func registerBezier(name string, x1, y1, x2, y2 float64) {
	b := bezier{x1, y1, x2, y2}
	catalogue[name] = Curve{Name: name, Displacement: b.displacement, Velocity: b.velocity}
}
