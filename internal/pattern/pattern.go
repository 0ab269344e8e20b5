// Package pattern generates panel test frames.
package pattern

import (
	"fmt"

	"github.com/coreman2200/dmdlink/internal/dmd"
)

type Kind string

const (
	None        Kind = ""
	RGBTest     Kind = "rgb_channels"
	GrayRamp    Kind = "gray_ramp"
	RowSweep    Kind = "row_sweep"
	ColumnSweep Kind = "column_sweep"
)

// Kinds lists every pattern dmdctl accepts.
var Kinds = []Kind{RGBTest, GrayRamp, RowSweep, ColumnSweep}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return None, fmt.Errorf("pattern: unknown kind %q", s)
}

// Plan describes one run. BitLength is 2, 4 or 24; RGBTest always emits 24.
type Plan struct {
	Kind      Kind
	Dim       dmd.Dimensions
	BitLength int
}

type Runner struct {
	plan Plan
	step int
}

func NewRunner(plan Plan) *Runner {
	if plan.BitLength == 0 {
		plan.BitLength = 24
	}
	if plan.Kind == RGBTest {
		plan.BitLength = 24
	}
	return &Runner{plan: plan}
}

func (r *Runner) Kind() Kind { return r.plan.Kind }

// Steps is the number of frames the run emits.
func (r *Runner) Steps() int {
	switch r.plan.Kind {
	case RGBTest:
		return 3
	case GrayRamp:
		return 1
	case RowSweep:
		return r.plan.Dim.Height
	case ColumnSweep:
		return r.plan.Dim.Width
	}
	return 0
}

// Next returns the next frame; false when the run is complete.
func (r *Runner) Next() (dmd.Frame, bool) {
	if r.step >= r.Steps() {
		return dmd.Frame{}, false
	}
	f := dmd.NewFrame(r.plan.Dim, r.plan.BitLength)
	w, h := r.plan.Dim.Width, r.plan.Dim.Height

	switch r.plan.Kind {
	case RGBTest:
		for i := 0; i < w*h; i++ {
			f.Data[i*3+r.step] = 255
		}
	case GrayRamp:
		top := maxLevel(r.plan.BitLength)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r.set(f, x, y, x*(top+1)/w)
			}
		}
	case RowSweep:
		for x := 0; x < w; x++ {
			r.set(f, x, r.step, maxLevel(r.plan.BitLength))
		}
	case ColumnSweep:
		for y := 0; y < h; y++ {
			r.set(f, r.step, y, maxLevel(r.plan.BitLength))
		}
	}
	r.step++
	return f, true
}

// set writes level at (x, y). 24-bit frames get a gray of that level.
func (r *Runner) set(f dmd.Frame, x, y, level int) {
	i := y*f.Dimensions.Width + x
	if f.BitLength != 24 {
		f.Data[i] = byte(level)
		return
	}
	f.Data[i*3], f.Data[i*3+1], f.Data[i*3+2] = byte(level), byte(level), byte(level)
}

func maxLevel(bitLength int) int {
	if bitLength == 24 {
		return 255
	}
	return 1<<bitLength - 1
}
