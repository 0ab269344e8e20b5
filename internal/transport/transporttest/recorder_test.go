package transporttest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/dmdlink/internal/dmd"
	"github.com/coreman2200/dmdlink/internal/palette"
)

func TestRecorderFramesUseLastFrameSize(t *testing.T) {
	r := New()
	var got []dmd.Frame
	r.OnFrame = func(f dmd.Frame) { got = append(got, f) }

	require.NoError(t, r.SetFrameSize(4, 1))
	in := []byte{0, 1, 2, 3}
	require.NoError(t, r.RenderGray2(in))
	in[0] = 9

	require.Len(t, got, 1)
	assert.Equal(t, dmd.Frame{Data: []byte{0, 1, 2, 3}, BitLength: 2, Dimensions: dmd.Dimensions{Width: 4, Height: 1}}, got[0])
	assert.Equal(t, []string{"SetFrameSize", "RenderGray2"}, r.Ops())
}

func TestRecorderPalettesAndErr(t *testing.T) {
	r := New()
	r.Err = errors.New("boom")
	var buf palette.Buffer
	buf[3] = 7
	assert.EqualError(t, r.SetPalette(buf, 4), "boom")

	p := r.Palettes()
	require.Len(t, p, 1)
	assert.Equal(t, 4, p[0].NumColors)
	assert.Equal(t, byte(7), p[0].Buffer[3])

	r.Reset()
	assert.Empty(t, r.Calls())
	assert.Empty(t, r.Palettes())
}
