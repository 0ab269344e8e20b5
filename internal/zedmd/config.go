package zedmd

import (
	"context"
	"time"

	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/dmdlink/internal/dmd"
	"github.com/coreman2200/dmdlink/internal/transport"
)

// Model selects the panel the board drives.
type Model string

const (
	ModelZeDMD   Model = "zedmd"    // 128x32
	ModelZeDMDHD Model = "zedmd-hd" // 256x64
)

// FixedSize is the panel resolution.
func (m Model) FixedSize() dmd.Dimensions {
	if m == ModelZeDMDHD {
		return dmd.Dimensions{Width: 256, Height: 64}
	}
	return dmd.Dimensions{Width: 128, Height: 32}
}

func (m Model) String() string {
	if m == ModelZeDMDHD {
		return "ZeDMD HD"
	}
	return "ZeDMD"
}

// Device ranges accepted by the board. Values outside are left unset.
const (
	MaxBrightness = 15
	MaxRGBOrder   = 5
	RotationBytes = 24
)

// WiFi holds the credentials written to the board's flash.
type WiFi struct {
	SSID     string
	Password string
	Port     int
}

// Config is the device configuration.
type Config struct {
	// Name shows up in logs; the model name by default.
	Name  string
	Model Model

	// Brightness 0..15 and RGBOrder 0..5; -1 keeps the board's value.
	Brightness int
	RGBOrder   int

	// Port is the serial device. Empty means probe.
	Port  string
	Speed physic.Frequency

	// Host and NetworkPort select the network link instead of serial.
	Host        string
	NetworkPort int

	Debug          bool
	ScaleRGB24     bool
	AllowHDScaling bool

	// Delay between frames when the caller paces output.
	Delay time.Duration

	WiFi WiFi

	// Dial overrides how the transport is opened.
	Dial func(ctx context.Context) (transport.Transport, error)
}

// DefaultConfig leaves brightness and channel order to the board.
var DefaultConfig = Config{
	Model:      ModelZeDMD,
	Brightness: -1,
	RGBOrder:   -1,
}
