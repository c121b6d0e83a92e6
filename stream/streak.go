package stream

import (
	"math"

	"github.com/fogleman/ease"

	"github.com/matt-g-everett/ledtween/animate"
)

// A streak is a bar of colour whose head sits at a pixel offset and whose tail
// fades out behind it. Animating head moves it along the segment.
type streak struct {
	segment
}

func (*streak) Properties() []animate.Property {
	return []animate.Property{
		{Name: "colour", Initial: "#ffffff", Codec: colourCodec},
		{Name: "head", Initial: 0.0},
		{Name: "length", Initial: 10.0},
	}
}

// gain is the intensity at distance d behind the head, 1 at the head and 0 at
// the end of the tail.
func (*streak) gain(d, length float64) float64 {
	if d < 0 || d > length {
		return 0
	}
	return ease.InOutQuad(1 - d/length)
}

func (s *streak) Render(props map[string]interface{}, f *Frame) {
	length := number(props, "length")
	if length <= 0 {
		return
	}
	c := colour(props, "colour")
	head := number(props, "head")
	tail := head - length

	start := int(math.Max(math.Ceil(tail), 0))
	end := int(math.Min(math.Floor(head), float64(s.length-1)))
	for i := start; i <= end; i++ {
		s.blend(f, i, c, s.gain(head-float64(i), length))
	}
}
