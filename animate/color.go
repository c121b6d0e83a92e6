package animate

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// ColorSpace selects the channels a ColorCodec animates in.
type ColorSpace int

const (
	// RGB animates r, g and b directly.
	RGB ColorSpace = iota
	// Lab animates CIE L*a*b*, which blends without muddy midpoints.
	Lab
)

// ColorCodec animates a colorful.Color. Encode also accepts "#rrggbb" strings.
type ColorCodec struct {
	Space ColorSpace
}

func (c ColorCodec) Encode(v interface{}) (map[string]float64, error) {
	col, err := toColor(v)
	if err != nil {
		return nil, err
	}
	if c.Space == Lab {
		l, a, b := col.Lab()
		return map[string]float64{"l": l, "a": a, "b": b}, nil
	}
	return map[string]float64{"r": col.R, "g": col.G, "b": col.B}, nil
}

func (c ColorCodec) Decode(channels map[string]float64) (interface{}, error) {
	keys := []string{"r", "g", "b"}
	if c.Space == Lab {
		keys = []string{"l", "a", "b"}
	}
	var v [3]float64
	for i, k := range keys {
		f, ok := channels[k]
		if !ok {
			return nil, fmt.Errorf("%w: colour missing %q channel", ErrUnsupportedValue, k)
		}
		v[i] = f
	}
	if c.Space == Lab {
		return colorful.Lab(v[0], v[1], v[2]), nil
	}
	return colorful.Color{R: v[0], G: v[1], B: v[2]}, nil
}

func toColor(v interface{}) (colorful.Color, error) {
	switch c := v.(type) {
	case nil:
		return colorful.Color{}, nil
	case colorful.Color:
		for _, f := range []float64{c.R, c.G, c.B} {
			if _, err := toFloat(f); err != nil {
				return colorful.Color{}, err
			}
		}
		return c, nil
	case string:
		col, err := colorful.Hex(c)
		if err != nil {
			return colorful.Color{}, fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
		}
		return col, nil
	}
	return colorful.Color{}, fmt.Errorf("%w: %T is not a colour", ErrUnsupportedValue, v)
}
