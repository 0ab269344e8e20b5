// Package dmd holds the value types shared by the device, palette and test packages.
package dmd

import (
	"bytes"
	"fmt"
	"image/color"
)

// Color is an 8-bit RGB triple.
type Color struct{ R, G, B uint8 }

var (
	Black = Color{}
	White = Color{R: 0xff, G: 0xff, B: 0xff}
)

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xff}.RGBA()
}

func (c Color) String() string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

// FromColor converts any color.Color, dropping alpha.
func FromColor(c color.Color) Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return Color{R: n.R, G: n.G, B: n.B}
}

type Dimensions struct{ Width, Height int }

func (d Dimensions) Area() int { return d.Width * d.Height }

func (d Dimensions) String() string { return fmt.Sprintf("%dx%d", d.Width, d.Height) }

// Frame is one DMD frame. Gray frames carry one byte per pixel, 24-bit frames three.
type Frame struct {
	Data       []byte
	BitLength  int
	Dimensions Dimensions
}

// NewFrame allocates a zeroed frame sized for bitLength.
func NewFrame(dim Dimensions, bitLength int) Frame {
	return Frame{
		Data:       make([]byte, dim.Area()*BytesPerPixel(bitLength)),
		BitLength:  bitLength,
		Dimensions: dim,
	}
}

// BytesPerPixel is 3 for 24-bit frames and 1 for everything else.
func BytesPerPixel(bitLength int) int {
	if bitLength == 24 {
		return 3
	}
	return 1
}

// Equal compares content, bit length and dimensions.
func (f Frame) Equal(o Frame) bool {
	return f.BitLength == o.BitLength && f.Dimensions == o.Dimensions && bytes.Equal(f.Data, o.Data)
}

// Clone returns a frame with its own copy of Data.
func (f Frame) Clone() Frame {
	f.Data = append([]byte(nil), f.Data...)
	return f
}

func (f Frame) String() string {
	return fmt.Sprintf("Frame{%s, %d bit, %d bytes}", f.Dimensions, f.BitLength, len(f.Data))
}
