package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/dmdlink/internal/dmd"
)

var panel = dmd.Dimensions{Width: 128, Height: 32}

func drain(r *Runner) []dmd.Frame {
	var out []dmd.Frame
	for {
		f, ok := r.Next()
		if !ok {
			return out
		}
		out = append(out, f)
	}
}

func TestRGBChannels(t *testing.T) {
	frames := drain(NewRunner(Plan{Kind: RGBTest, Dim: panel, BitLength: 2}))
	require.Len(t, frames, 3)
	for ch, f := range frames {
		assert.Equal(t, 24, f.BitLength)
		require.Len(t, f.Data, panel.Area()*3)
		assert.Equal(t, byte(255), f.Data[ch])
		assert.Equal(t, byte(0), f.Data[(ch+1)%3])
	}
}

func TestGrayRamp(t *testing.T) {
	frames := drain(NewRunner(Plan{Kind: GrayRamp, Dim: panel, BitLength: 4}))
	require.Len(t, frames, 1)
	f := frames[0]
	require.Len(t, f.Data, panel.Area())
	assert.Equal(t, byte(0), f.Data[0])
	assert.Equal(t, byte(15), f.Data[panel.Width-1])
	assert.Equal(t, byte(8), f.Data[64])
}

func TestSweeps(t *testing.T) {
	rows := drain(NewRunner(Plan{Kind: RowSweep, Dim: panel, BitLength: 2}))
	require.Len(t, rows, panel.Height)
	assert.Equal(t, byte(3), rows[1].Data[panel.Width])
	assert.Equal(t, byte(0), rows[1].Data[0])

	cols := drain(NewRunner(Plan{Kind: ColumnSweep, Dim: panel}))
	require.Len(t, cols, panel.Width)
	last := cols[panel.Width-1]
	assert.Equal(t, 24, last.BitLength)
	assert.Equal(t, byte(255), last.Data[(panel.Width-1)*3])
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("row_sweep")
	require.NoError(t, err)
	assert.Equal(t, RowSweep, k)

	_, err = ParseKind("plane_z")
	assert.Error(t, err)

	_, ok := NewRunner(Plan{Dim: panel}).Next()
	assert.False(t, ok)
}
