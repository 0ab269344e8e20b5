// Package transporttest provides a Transport that records calls instead of
// talking to hardware.
package transporttest

import (
	"fmt"
	"sync"

	"github.com/coreman2200/dmdlink/internal/dmd"
	"github.com/coreman2200/dmdlink/internal/palette"
	"github.com/coreman2200/dmdlink/internal/transport"
)

var _ transport.Transport = (*Recorder)(nil)

// Call is one recorded Transport call.
type Call struct {
	Op   string
	Args []any
}

func (c Call) String() string { return fmt.Sprintf("%s%v", c.Op, c.Args) }

// PaletteCall is one recorded SetPalette.
type PaletteCall struct {
	Buffer    palette.Buffer
	NumColors int
}

// Recorder implements transport.Transport.
type Recorder struct {
	mu       sync.Mutex
	calls    []Call
	palettes []PaletteCall
	size     dmd.Dimensions
	closed   bool

	// Err, when set, is returned by every call after it is recorded.
	Err error

	// OnFrame receives every rendered frame, sized by the last SetFrameSize.
	OnFrame func(dmd.Frame)
}

func New() *Recorder { return &Recorder{} }

func (r *Recorder) String() string { return "recorder" }

func (r *Recorder) record(op string, args ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Op: op, Args: args})
	return r.Err
}

// Calls returns a copy of every call so far.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Ops returns the op names of every call so far.
func (r *Recorder) Ops() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = c.Op
	}
	return out
}

// Palettes returns every SetPalette in call order.
func (r *Recorder) Palettes() []PaletteCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PaletteCall(nil), r.palettes...)
}

// Reset forgets recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
	r.palettes = nil
}

func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return r.record("Close")
}

func (r *Recorder) SetDebug(on bool) error          { return r.record("SetDebug", on) }
func (r *Recorder) SetPreDownscaling(on bool) error { return r.record("SetPreDownscaling", on) }
func (r *Recorder) SetPreUpscaling(on bool) error   { return r.record("SetPreUpscaling", on) }
func (r *Recorder) SetUpscaling(on bool) error      { return r.record("SetUpscaling", on) }
func (r *Recorder) EnforceStreaming() error         { return r.record("EnforceStreaming") }
func (r *Recorder) SetBrightness(level int) error   { return r.record("SetBrightness", level) }
func (r *Recorder) SetRGBOrder(order int) error     { return r.record("SetRGBOrder", order) }
func (r *Recorder) SetWiFiSSID(ssid string) error   { return r.record("SetWiFiSSID", ssid) }
func (r *Recorder) SetWiFiPassword(pw string) error { return r.record("SetWiFiPassword", pw) }
func (r *Recorder) SetWiFiPort(port int) error      { return r.record("SetWiFiPort", port) }
func (r *Recorder) SaveSettings() error             { return r.record("SaveSettings") }
func (r *Recorder) ClearScreen() error              { return r.record("ClearScreen") }

func (r *Recorder) SetFrameSize(width, height int) error {
	r.mu.Lock()
	r.size = dmd.Dimensions{Width: width, Height: height}
	r.mu.Unlock()
	return r.record("SetFrameSize", width, height)
}

func (r *Recorder) SetPalette(buf palette.Buffer, numColors int) error {
	r.mu.Lock()
	r.palettes = append(r.palettes, PaletteCall{Buffer: buf, NumColors: numColors})
	r.mu.Unlock()
	return r.record("SetPalette", numColors)
}

func (r *Recorder) RenderGray2(frame []byte) error { return r.render("RenderGray2", 2, frame) }
func (r *Recorder) RenderGray4(frame []byte) error { return r.render("RenderGray4", 4, frame) }
func (r *Recorder) RenderRgb24(frame []byte) error { return r.render("RenderRgb24", 24, frame) }

func (r *Recorder) RenderColoredGray6(frame, rotations []byte) error {
	return r.render("RenderColoredGray6", 6, frame, append([]byte(nil), rotations...))
}

func (r *Recorder) render(op string, bitLength int, frame []byte, extra ...any) error {
	f := dmd.Frame{Data: append([]byte(nil), frame...), BitLength: bitLength}
	r.mu.Lock()
	f.Dimensions = r.size
	r.mu.Unlock()
	if err := r.record(op, append([]any{f.Data}, extra...)...); err != nil {
		return err
	}
	if r.OnFrame != nil {
		r.OnFrame(f)
	}
	return nil
}
