package stream

import (
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/matt-g-everett/ledtween/animate"
)

// A Fixture draws one segment of the strip from its animated properties.
type Fixture interface {
	// Properties lists the fixture's animatable properties with their
	// default initial values. Transitions are left for the caller.
	Properties() []animate.Property

	// Render draws the current property values into f.
	Render(props map[string]interface{}, f *Frame)
}

type segment struct {
	start  int
	length int
}

// each calls fn for every pixel of the segment that lies inside f, passing
// the offset within the segment and the frame index.
func (s segment) each(f *Frame, fn func(offset, i int)) {
	for offset := 0; offset < s.length; offset++ {
		i := s.start + offset
		if i >= f.Len() {
			return
		}
		fn(offset, i)
	}
}

// blend mixes c into the pixel at offset within the segment.
func (s segment) blend(f *Frame, offset int, c colorful.Color, t float64) {
	if offset < 0 || offset >= s.length {
		return
	}
	f.Blend(s.start+offset, c, t)
}

var colourCodec = animate.ColorCodec{Space: animate.Lab}

// NewFixture creates the fixture described by c.
func NewFixture(c FixtureConfig) (Fixture, error) {
	seg := segment{start: c.Start, length: c.Length}
	switch c.Kind {
	case "", "fill":
		return &fill{seg}, nil
	case "streak":
		return &streak{seg}, nil
	case "gradient":
		g := c.Gradient
		if len(g) == 0 {
			g = DefaultGradient
		}
		return &gradient{segment: seg, table: g}, nil
	case "markers":
		return &markers{seg}, nil
	}
	return nil, fmt.Errorf("%w: fixture %q has unknown kind %q", ErrInvalidConfig, c.Name, c.Kind)
}

func number(props map[string]interface{}, name string) float64 {
	f, _ := props[name].(float64)
	if math.IsNaN(f) {
		return 0
	}
	return f
}

func colour(props map[string]interface{}, name string) colorful.Color {
	c, _ := props[name].(colorful.Color)
	return c.Clamped()
}

// fill paints the whole segment one colour.
type fill struct {
	segment
}

func (*fill) Properties() []animate.Property {
	return []animate.Property{
		{Name: "colour", Initial: "#000000", Codec: colourCodec},
		{Name: "brightness", Initial: 1.0},
	}
}

func (x *fill) Render(props map[string]interface{}, f *Frame) {
	c := colorful.Color{}.BlendRgb(colour(props, "colour"), clamp01(number(props, "brightness")))
	x.each(f, func(_, i int) {
		f.Set(i, c)
	})
}

// markers draws anti-aliased dots. Each point's X is a pixel offset within the
// segment and its Y the dot's intensity.
type markers struct {
	segment
}

func (*markers) Properties() []animate.Property {
	return []animate.Property{
		{Name: "colour", Initial: "#ffffff", Codec: colourCodec},
		{Name: "points", Initial: []animate.Point{}, Codec: animate.Points},
	}
}

func (m *markers) Render(props map[string]interface{}, f *Frame) {
	c := colour(props, "colour")
	points, _ := props["points"].([]animate.Point)
	for _, p := range points {
		intensity := clamp01(p.Y)
		i := math.Floor(p.X)
		frac := p.X - i
		m.blend(f, int(i), c, intensity*(1-frac))
		m.blend(f, int(i)+1, c, intensity*frac)
	}
}
