package stream

import (
	"math"

	"github.com/matt-g-everett/ledtween/animate"
)

// A gradient lays a GradientTable along the segment. Animating offset cycles
// the gradient along the strip; one unit of offset is one full segment.
type gradient struct {
	segment
	table GradientTable
}

func (*gradient) Properties() []animate.Property {
	return []animate.Property{
		{Name: "offset", Initial: 0.0},
		{Name: "saturation", Initial: 1.0},
		{Name: "luminance", Initial: 0.05},
	}
}

func (g *gradient) Render(props map[string]interface{}, f *Frame) {
	length := float64(g.length)
	shift := number(props, "offset") * length
	saturation := number(props, "saturation")
	luminance := clamp01(number(props, "luminance"))
	g.each(f, func(offset, i int) {
		pos := math.Mod(float64(offset)-shift, length)
		if pos < 0 {
			pos += length
		}
		f.Set(i, g.table.GetColor(pos/length, saturation, luminance).Clamped())
	})
}
