package transport

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tarm/serial"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
)

// SerialConfig describes a USB-serial board.
type SerialConfig struct {
	// Port is the device path, e.g. /dev/ttyUSB0 or COM3.
	Port string

	// Speed is the UART speed; 921.6kHz (baud) by default.
	Speed physic.Frequency

	ReadTimeout time.Duration
}

// DefaultSerialConfig are the default configuration values.
var DefaultSerialConfig = SerialConfig{
	Speed:       921600 * physic.Hertz,
	ReadTimeout: time.Second,
}

// SerialPatterns are globbed by ProbeSerial when no port is configured.
var SerialPatterns = []string{"/dev/ttyUSB*", "/dev/ttyACM*", "/dev/cu.usbserial*", "/dev/cu.wchusbserial*"}

// OpenSerial opens the port and returns a link speaking the wire protocol.
func OpenSerial(cfg SerialConfig) (*Link, error) {
	if cfg.Speed == 0 {
		cfg.Speed = DefaultSerialConfig.Speed
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultSerialConfig.ReadTimeout
	}
	p, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Port,
		Baud:        int(cfg.Speed / physic.Hertz),
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", cfg.Port, err)
	}
	return NewLink(&streamConn{name: cfg.Port, rw: p}, p), nil
}

// ProbeSerial tries every port matching SerialPatterns in order and returns
// the first one that opens.
func ProbeSerial(ctx context.Context, cfg SerialConfig) (*Link, error) {
	var ports []string
	for _, pattern := range SerialPatterns {
		m, _ := filepath.Glob(pattern)
		sort.Strings(m)
		ports = append(ports, m...)
	}
	for _, port := range ports {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := cfg
		c.Port = port
		l, err := OpenSerial(c)
		if err != nil {
			log.Debug().Err(err).Str("port", port).Msg("probe failed")
			continue
		}
		return l, nil
	}
	return nil, ErrNoSerial
}

// streamConn adapts a byte stream to conn.Conn.
type streamConn struct {
	name string
	rw   io.ReadWriter
}

func (c *streamConn) String() string { return c.name }

func (c *streamConn) Duplex() conn.Duplex { return conn.Full }

func (c *streamConn) Tx(w, r []byte) error {
	for len(w) > 0 {
		n, err := c.rw.Write(w)
		if err != nil {
			return err
		}
		w = w[n:]
	}
	if len(r) > 0 {
		if _, err := io.ReadFull(c.rw, r); err != nil {
			return err
		}
	}
	return nil
}
