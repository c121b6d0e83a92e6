package spring

import (
	"math"
	"time"
)

// positionFloor keeps the position tolerance positive when the initial displacement is zero.
const positionFloor = 1e-9

// SettleOptions controls the linear search performed by SettleTime.
type SettleOptions struct {
	Seed      time.Duration
	Step      time.Duration
	Tolerance float64
	MaxIter   int
}

// DefaultSettleOptions returns a 1 ms step, 1e-4 tolerance and 10000 iteration cap.
func DefaultSettleOptions() SettleOptions {
	return SettleOptions{
		Seed:      0,
		Step:      time.Millisecond,
		Tolerance: 1e-4,
		MaxIter:   10000,
	}
}

func (o SettleOptions) withDefaults() SettleOptions {
	d := DefaultSettleOptions()
	if o.Step <= 0 {
		o.Step = d.Step
	}
	if o.Tolerance <= 0 {
		o.Tolerance = d.Tolerance
	}
	if o.MaxIter <= 0 {
		o.MaxIter = d.MaxIter
	}
	if o.Seed < 0 {
		o.Seed = 0
	}
	return o
}

// SettleTime steps forward from opts.Seed until the displacement is within
// |x0|·Tolerance and the velocity within Tolerance (absolute). The second
// result is false when the iteration cap was hit first; the returned time is
// then the last time examined. The solution itself stays exact past this point.
func SettleTime(sol Solution, opts SettleOptions) (time.Duration, bool) {
	opts = opts.withDefaults()

	xTol := math.Max(math.Abs(sol.Params.InitialDisplacement)*opts.Tolerance, positionFloor)
	vTol := opts.Tolerance

	t := opts.Seed
	for i := 0; i < opts.MaxIter; i++ {
		secs := t.Seconds()
		if math.Abs(sol.X(secs)) < xTol && math.Abs(sol.V(secs)) < vTol {
			return t, true
		}
		t += opts.Step
	}
	return t, false
}
