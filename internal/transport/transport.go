// Package transport is the device-control boundary between frame production
// and the ZeDMD hardware. Everything the facade asks of a board goes through
// Transport; the serial and network links encode those calls with package wire.
package transport

import (
	"errors"

	"github.com/coreman2200/dmdlink/internal/palette"
)

// Errors
var (
	ErrClosed     = errors.New("transport: link closed")
	ErrNoSerial   = errors.New("transport: no serial device found")
	ErrBadPayload = errors.New("transport: bad payload")
)

// Transport is one open session with a board.
type Transport interface {
	String() string

	// Close ends the session.
	Close() error

	SetDebug(on bool) error
	SetPreDownscaling(on bool) error
	SetPreUpscaling(on bool) error
	SetUpscaling(on bool) error
	EnforceStreaming() error

	SetBrightness(level int) error
	SetRGBOrder(order int) error

	// WiFi settings only persist on the board after SaveSettings.
	SetWiFiSSID(ssid string) error
	SetWiFiPassword(password string) error
	SetWiFiPort(port int) error
	SaveSettings() error

	SetFrameSize(width, height int) error
	SetPalette(buf palette.Buffer, numColors int) error
	ClearScreen() error

	RenderGray2(frame []byte) error
	RenderGray4(frame []byte) error
	RenderColoredGray6(frame, rotations []byte) error
	RenderRgb24(frame []byte) error
}
