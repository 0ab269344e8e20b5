package dmd

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrameEqual(t *testing.T) {
	dim := Dimensions{Width: 128, Height: 32}
	a := NewFrame(dim, 2)
	b := NewFrame(dim, 2)
	assert.True(t, a.Equal(b))

	b.Data[10] = 3
	assert.False(t, a.Equal(b), "content differs")

	c := NewFrame(dim, 4)
	assert.False(t, a.Equal(c), "bit length differs")

	d := NewFrame(Dimensions{Width: 32, Height: 128}, 2)
	assert.False(t, a.Equal(d), "dimensions differ")
}

func TestNewFrameSize(t *testing.T) {
	dim := Dimensions{Width: 128, Height: 32}
	assert.Len(t, NewFrame(dim, 2).Data, 4096)
	assert.Len(t, NewFrame(dim, 24).Data, 4096*3)
}

func TestCloneIsIndependent(t *testing.T) {
	f := NewFrame(Dimensions{Width: 2, Height: 2}, 4)
	c := f.Clone()
	c.Data[0] = 9
	assert.Equal(t, byte(0), f.Data[0])
}

func TestFromColor(t *testing.T) {
	got := FromColor(color.RGBA{R: 10, G: 20, B: 30, A: 255})
	assert.Equal(t, Color{R: 10, G: 20, B: 30}, got)
	assert.Equal(t, "#0a141e", got.String())
}
