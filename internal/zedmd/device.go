// Package zedmd is the facade for one ZeDMD board: it keeps the device
// configuration and turns palette, clear and render requests into Transport
// calls.
//
// A Device is not safe for concurrent use.
package zedmd

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/display"

	"github.com/coreman2200/dmdlink/internal/dmd"
	"github.com/coreman2200/dmdlink/internal/palette"
	"github.com/coreman2200/dmdlink/internal/transport"
)

// Errors
var (
	ErrEmptyPalette     = errors.New("zedmd: empty palette")
	ErrInvalidFrame     = errors.New("zedmd: invalid frame")
	ErrAlreadyConnected = errors.New("zedmd: already connected")
	ErrNoDevice         = errors.New("zedmd: device not found")
	ErrOutOfRange       = errors.New("zedmd: value out of range")
)

// Status tells a sent request apart from one skipped because no board is attached.
type Status int

const (
	Sent Status = iota + 1
	SkippedNotConnected
)

func (s Status) String() string {
	switch s {
	case Sent:
		return "sent"
	case SkippedNotConnected:
		return "skipped: not connected"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

var _ display.Drawer = (*Device)(nil)

// session is the handle of an attached board.
type session struct {
	t    transport.Transport
	size dmd.Dimensions // last frame size sent
}

type Device struct {
	cfg     Config
	session *session
	last    *dmd.Frame
	log     zerolog.Logger
}

// New returns a disconnected device. Brightness and RGBOrder are sent as
// given, so a Config built from scratch rather than from DefaultConfig sets
// both to 0 on Connect; use -1 to keep the board's values.
func New(cfg Config) *Device {
	if cfg.Model == "" {
		cfg.Model = ModelZeDMD
	}
	if cfg.Name == "" {
		cfg.Name = cfg.Model.String()
	}
	return &Device{
		cfg: cfg,
		log: log.With().Str("device", cfg.Name).Logger(),
	}
}

func (d *Device) Name() string { return d.cfg.Name }

// Config returns a copy of the current configuration.
func (d *Device) Config() Config { return d.cfg }

// FixedSize is the panel resolution.
func (d *Device) FixedSize() dmd.Dimensions { return d.cfg.Model.FixedSize() }

// IsAvailable reports whether a board is attached.
func (d *Device) IsAvailable() bool { return d.session != nil }

// LastFrame returns the last frame sent to the board.
func (d *Device) LastFrame() (dmd.Frame, bool) {
	if d.last == nil {
		return dmd.Frame{}, false
	}
	return d.last.Clone(), true
}

// Connect opens the configured transport and initialises the board.
func (d *Device) Connect(ctx context.Context) error {
	if d.session != nil {
		return ErrAlreadyConnected
	}
	t, err := d.dial(ctx)
	if err != nil {
		d.log.Info().Err(err).Msg("device not found")
		return fmt.Errorf("%w: %w", ErrNoDevice, err)
	}
	d.log.Info().Str("transport", t.String()).Msg("device found")
	return d.Attach(t)
}

func (d *Device) dial(ctx context.Context) (transport.Transport, error) {
	if d.cfg.Dial != nil {
		return d.cfg.Dial(ctx)
	}
	var (
		l   *transport.Link
		err error
	)
	switch {
	case d.cfg.Host != "":
		l, err = transport.DialNetwork(ctx, d.cfg.Host, d.cfg.NetworkPort)
	case d.cfg.Port != "":
		l, err = transport.OpenSerial(transport.SerialConfig{Port: d.cfg.Port, Speed: d.cfg.Speed})
	default:
		l, err = transport.ProbeSerial(ctx, transport.SerialConfig{Speed: d.cfg.Speed})
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Attach takes ownership of an open transport and runs the init sequence. The
// transport is closed if initialisation fails.
func (d *Device) Attach(t transport.Transport) error {
	if d.session != nil {
		return ErrAlreadyConnected
	}
	size := d.FixedSize()
	if err := d.initialise(t, size); err != nil {
		_ = t.Close()
		return fmt.Errorf("zedmd: init %s: %w", d.cfg.Name, err)
	}
	d.session = &session{t: t, size: size}
	return nil
}

func (d *Device) initialise(t transport.Transport, size dmd.Dimensions) error {
	if d.cfg.Debug {
		if err := t.SetDebug(true); err != nil {
			return err
		}
	}
	steps := []func() error{
		func() error { return t.SetFrameSize(size.Width, size.Height) },
		func() error { return t.SetPreDownscaling(d.cfg.ScaleRGB24) },
		func() error { return t.SetPreUpscaling(d.cfg.AllowHDScaling && d.cfg.Model == ModelZeDMDHD) },
		func() error { return t.SetUpscaling(d.cfg.AllowHDScaling) },
	}
	if inRange(d.cfg.Brightness, MaxBrightness) {
		steps = append(steps, func() error { return t.SetBrightness(d.cfg.Brightness) })
	}
	if inRange(d.cfg.RGBOrder, MaxRGBOrder) {
		steps = append(steps, func() error { return t.SetRGBOrder(d.cfg.RGBOrder) })
	}
	if d.cfg.WiFi.SSID != "" {
		steps = append(steps, func() error { return writeWiFi(t, d.cfg.WiFi) })
	}
	steps = append(steps, t.EnforceStreaming)
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the transport and releases the handle.
func (d *Device) Close() error {
	if d.session == nil {
		return nil
	}
	err := d.session.t.Close()
	d.session = nil
	d.log.Debug().Msg("closed")
	return err
}

// ClearDisplay blanks the panel.
func (d *Device) ClearDisplay() (Status, error) {
	if d.session == nil {
		return SkippedNotConnected, nil
	}
	if err := d.session.t.ClearScreen(); err != nil {
		return 0, fmt.Errorf("zedmd: clear screen: %w", err)
	}
	return Sent, nil
}

// Dispose clears the display. The handle stays open; use Close to release it.
func (d *Device) Dispose() (Status, error) { return d.ClearDisplay() }

// SetPalette transmits colors once per tier, starting at the tier that holds
// them and ending at 64. Each tier is interpolated from the original colours.
func (d *Device) SetPalette(colors []dmd.Color) (Status, error) {
	if len(colors) == 0 {
		return 0, ErrEmptyPalette
	}
	if d.session == nil {
		return SkippedNotConnected, nil
	}
	for _, tier := range palette.Tiers(len(colors)) {
		if err := d.session.t.SetPalette(palette.Build(colors, tier), tier); err != nil {
			return 0, fmt.Errorf("zedmd: set %d-colour palette: %w", tier, err)
		}
	}
	d.log.Debug().Int("colors", len(colors)).Msg("palette set")
	return Sent, nil
}

// SetColor tints the panel: a black-to-c ramp.
func (d *Device) SetColor(c dmd.Color) (Status, error) {
	return d.SetPalette([]dmd.Color{dmd.Black, c})
}

// ClearPalette does nothing on ZeDMD.
func (d *Device) ClearPalette() {}

// ClearColor does nothing on ZeDMD.
func (d *Device) ClearColor() {}

// SetBrightness stores level and sends it when a board is attached.
func (d *Device) SetBrightness(level int) (Status, error) {
	if !inRange(level, MaxBrightness) {
		return 0, fmt.Errorf("%w: brightness %d", ErrOutOfRange, level)
	}
	d.cfg.Brightness = level
	if d.session == nil {
		return SkippedNotConnected, nil
	}
	if err := d.session.t.SetBrightness(level); err != nil {
		return 0, fmt.Errorf("zedmd: set brightness: %w", err)
	}
	return Sent, nil
}

// SetRGBOrder stores order and sends it when a board is attached.
func (d *Device) SetRGBOrder(order int) (Status, error) {
	if !inRange(order, MaxRGBOrder) {
		return 0, fmt.Errorf("%w: rgb order %d", ErrOutOfRange, order)
	}
	d.cfg.RGBOrder = order
	if d.session == nil {
		return SkippedNotConnected, nil
	}
	if err := d.session.t.SetRGBOrder(order); err != nil {
		return 0, fmt.Errorf("zedmd: set rgb order: %w", err)
	}
	return Sent, nil
}

// ConfigureWiFi writes credentials and persists them on the board.
func (d *Device) ConfigureWiFi(w WiFi) (Status, error) {
	if w.Port < 0 || w.Port > 0xffff {
		return 0, fmt.Errorf("%w: wifi port %d", ErrOutOfRange, w.Port)
	}
	d.cfg.WiFi = w
	if d.session == nil {
		return SkippedNotConnected, nil
	}
	if err := writeWiFi(d.session.t, w); err != nil {
		return 0, fmt.Errorf("zedmd: configure wifi: %w", err)
	}
	d.log.Info().Str("ssid", w.SSID).Int("port", w.Port).Msg("wifi settings saved")
	return Sent, nil
}

func writeWiFi(t transport.Transport, w WiFi) error {
	if err := t.SetWiFiSSID(w.SSID); err != nil {
		return err
	}
	if err := t.SetWiFiPassword(w.Password); err != nil {
		return err
	}
	if err := t.SetWiFiPort(w.Port); err != nil {
		return err
	}
	return t.SaveSettings()
}

// Render sends a 2-bit, 4-bit or 24-bit frame.
func (d *Device) Render(f dmd.Frame) (Status, error) {
	if err := validate(f); err != nil {
		return 0, err
	}
	return d.send(f, func(t transport.Transport) error {
		switch f.BitLength {
		case 2:
			return t.RenderGray2(f.Data)
		case 4:
			return t.RenderGray4(f.Data)
		default:
			return t.RenderRgb24(f.Data)
		}
	})
}

// RenderColoredGray6 sends a 6-bit frame with its palette rotation table.
// nil rotations means no rotation.
func (d *Device) RenderColoredGray6(f dmd.Frame, rotations []byte) (Status, error) {
	if f.BitLength != 6 {
		return 0, fmt.Errorf("%w: %d-bit frame on the 6-bit path", ErrInvalidFrame, f.BitLength)
	}
	if err := checkLen(f); err != nil {
		return 0, err
	}
	if rotations == nil {
		rotations = make([]byte, RotationBytes)
	}
	if len(rotations) != RotationBytes {
		return 0, fmt.Errorf("%w: %d rotation bytes", ErrInvalidFrame, len(rotations))
	}
	return d.send(f, func(t transport.Transport) error { return t.RenderColoredGray6(f.Data, rotations) })
}

func (d *Device) send(f dmd.Frame, render func(transport.Transport) error) (Status, error) {
	if d.session == nil {
		return SkippedNotConnected, nil
	}
	s := d.session
	if f.Dimensions != s.size {
		if err := s.t.SetFrameSize(f.Dimensions.Width, f.Dimensions.Height); err != nil {
			return 0, fmt.Errorf("zedmd: set frame size: %w", err)
		}
		s.size = f.Dimensions
	}
	if err := render(s.t); err != nil {
		return 0, fmt.Errorf("zedmd: render %d-bit frame: %w", f.BitLength, err)
	}
	last := f.Clone()
	d.last = &last
	return Sent, nil
}

func validate(f dmd.Frame) error {
	switch f.BitLength {
	case 2, 4, 24:
	default:
		return fmt.Errorf("%w: unsupported bit length %d", ErrInvalidFrame, f.BitLength)
	}
	return checkLen(f)
}

func checkLen(f dmd.Frame) error {
	if f.Dimensions.Width <= 0 || f.Dimensions.Height <= 0 {
		return fmt.Errorf("%w: dimensions %s", ErrInvalidFrame, f.Dimensions)
	}
	if want := f.Dimensions.Area() * dmd.BytesPerPixel(f.BitLength); len(f.Data) != want {
		return fmt.Errorf("%w: %d bytes for %s at %d bit, want %d", ErrInvalidFrame, len(f.Data), f.Dimensions, f.BitLength, want)
	}
	return nil
}

func inRange(v, hi int) bool { return v >= 0 && v <= hi }

// display.Drawer

func (d *Device) String() string {
	return fmt.Sprintf("%s{%s}", d.cfg.Name, d.FixedSize())
}

func (d *Device) Bounds() image.Rectangle {
	s := d.FixedSize()
	return image.Rect(0, 0, s.Width, s.Height)
}

func (d *Device) ColorModel() color.Model { return color.NRGBAModel }

// Draw renders src as a 24-bit frame. Pixels outside r keep the last 24-bit frame.
func (d *Device) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	b := d.Bounds()
	img := image.NewNRGBA(b)
	if d.last != nil && d.last.BitLength == 24 && d.last.Dimensions == d.FixedSize() {
		for i, j := 0, 0; i < len(d.last.Data); i, j = i+3, j+4 {
			img.Pix[j], img.Pix[j+1], img.Pix[j+2], img.Pix[j+3] = d.last.Data[i], d.last.Data[i+1], d.last.Data[i+2], 0xff
		}
	}
	draw.Draw(img, r.Intersect(b), src, sp, draw.Src)

	f := dmd.NewFrame(d.FixedSize(), 24)
	for i, j := 0, 0; i < len(f.Data); i, j = i+3, j+4 {
		f.Data[i], f.Data[i+1], f.Data[i+2] = img.Pix[j], img.Pix[j+1], img.Pix[j+2]
	}
	_, err := d.Render(f)
	return err
}

// Halt blanks the panel.
func (d *Device) Halt() error {
	_, err := d.ClearDisplay()
	return err
}
