package transition

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/matt-g-everett/ledtween/easing"
)

// Config is the serialised form of a transition. Times are in milliseconds.
//
//	{type: spring, tension: 170, friction: 26, tolerance: 0.001, delay: 0}
//	{type: easeOutQuad, delay: 0, duration: 500}
//	{type: cubicBezier, points: [0.25, 0.1, 0.25, 1], duration: 300}
type Config struct {
	Type       string    `yaml:"type" json:"type"`
	Tension    float64   `yaml:"tension,omitempty" json:"tension,omitempty"`
	Friction   float64   `yaml:"friction,omitempty" json:"friction,omitempty"`
	Mass       float64   `yaml:"mass,omitempty" json:"mass,omitempty"`
	Tolerance  float64   `yaml:"tolerance,omitempty" json:"tolerance,omitempty"`
	Integrator string    `yaml:"integrator,omitempty" json:"integrator,omitempty"`
	Delay      float64   `yaml:"delay,omitempty" json:"delay,omitempty"`
	Duration   float64   `yaml:"duration,omitempty" json:"duration,omitempty"`
	Points     []float64 `yaml:"points,omitempty" json:"points,omitempty"`
}

func millis(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond))
}

// Spec resolves the type tag once and returns the matching variant.
func (c Config) Spec() (Spec, error) {
	var spec Spec
	switch {
	case strings.EqualFold(c.Type, "spring"):
		integrator, err := parseIntegrator(c.Integrator)
		if err != nil {
			return nil, err
		}
		spec = Spring{
			Tension:    c.Tension,
			Friction:   c.Friction,
			Mass:       c.Mass,
			Tolerance:  c.Tolerance,
			Delay:      millis(c.Delay),
			Integrator: integrator,
		}.withDefaults()

	case c.Type == "cubicBezier":
		if len(c.Points) != 4 {
			return nil, fmt.Errorf("%w: cubicBezier needs 4 points, got %d", ErrInvalidSpec, len(c.Points))
		}
		e, err := easing.CubicBezier(c.Points[0], c.Points[1], c.Points[2], c.Points[3])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
		}
		spec = Curve{Easing: e, Delay: millis(c.Delay), Duration: c.duration()}

	default:
		curve, err := NewCurve(c.Type, millis(c.Delay), c.duration())
		if err != nil {
			return nil, err
		}
		spec = curve
	}

	if err := spec.validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

func (c Config) duration() time.Duration {
	if c.Duration == 0 {
		return defaultDuration
	}
	return millis(c.Duration)
}

func parseIntegrator(name string) (Integrator, error) {
	switch strings.ToLower(name) {
	case "", "euler":
		return Euler, nil
	case "exact":
		return Exact, nil
	}
	return Euler, fmt.Errorf("%w: integrator %q", ErrInvalidSpec, name)
}

// Parse decodes a YAML (or JSON) transition config.
func Parse(data []byte) (Spec, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("transition: decoding config: %w", err)
	}
	return c.Spec()
}
