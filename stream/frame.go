package stream

import (
	"encoding/binary"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

const maxPixels = math.MaxUint16

// Frame represents a frame of RGB pixels to display on an ledrx device.
type Frame struct {
	pixels []colorful.Color
}

// NewFrame creates a black Frame of n pixels.
func NewFrame(n int) *Frame {
	f := new(Frame)
	f.pixels = make([]colorful.Color, n)
	return f
}

// Len returns the number of pixels.
func (f *Frame) Len() int { return len(f.pixels) }

// At returns pixel i.
func (f *Frame) At(i int) colorful.Color { return f.pixels[i] }

// Set replaces pixel i. Out of range indices are ignored.
func (f *Frame) Set(i int, c colorful.Color) {
	if i >= 0 && i < len(f.pixels) {
		f.pixels[i] = c
	}
}

// Blend mixes c into pixel i by t in [0, 1]. Out of range indices are ignored.
func (f *Frame) Blend(i int, c colorful.Color, t float64) {
	if i < 0 || i >= len(f.pixels) {
		return
	}
	f.pixels[i] = f.pixels[i].BlendLab(c, clamp01(t)).Clamped()
}

// Clear sets every pixel to black.
func (f *Frame) Clear() {
	for i := range f.pixels {
		f.pixels[i] = colorful.Color{}
	}
}

// MarshalBinary converts a Frame into binary data: a little endian uint16
// pixel count followed by one RGB triple per pixel.
func (f *Frame) MarshalBinary() (data []byte, err error) {
	data = make([]byte, 2, (len(f.pixels)*3)+2)
	binary.LittleEndian.PutUint16(data, uint16(len(f.pixels)))
	for _, p := range f.pixels {
		r, g, b := p.Clamped().RGB255()
		data = append(data, r, g, b)
	}

	return data, nil
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
