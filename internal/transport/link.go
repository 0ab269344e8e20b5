package transport

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3"

	"github.com/coreman2200/dmdlink/internal/palette"
	"github.com/coreman2200/dmdlink/internal/transport/wire"
)

// Link implements Transport by writing wire packets to a periph conn.Conn.
type Link struct {
	mu     sync.Mutex
	c      conn.Conn
	closer io.Closer
	closed bool
	log    zerolog.Logger
}

// NewLink wraps c. closer is called once by Close and may be nil.
func NewLink(c conn.Conn, closer io.Closer) *Link {
	return &Link{
		c:      c,
		closer: closer,
		log:    log.With().Str("component", "link").Str("conn", c.String()).Logger(),
	}
}

func (l *Link) String() string { return "zedmd{" + l.c.String() + "}" }

func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

func (l *Link) send(cmd wire.Command, payload []byte) error {
	b, err := wire.Encode(cmd, payload)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	l.log.Trace().Stringer("cmd", cmd).Int("len", len(payload)).Msg("tx")
	if err := l.c.Tx(b, nil); err != nil {
		return fmt.Errorf("transport: %s: %w", cmd, err)
	}
	return nil
}

func (l *Link) SetDebug(on bool) error {
	return l.send(wire.Toggle(on, wire.CmdEnableDebug, wire.CmdDisableDebug), nil)
}

func (l *Link) SetPreDownscaling(on bool) error {
	return l.send(wire.Toggle(on, wire.CmdEnablePreDownscale, wire.CmdDisablePreDownscale), nil)
}

func (l *Link) SetPreUpscaling(on bool) error {
	return l.send(wire.Toggle(on, wire.CmdEnablePreUpscale, wire.CmdDisablePreUpscale), nil)
}

func (l *Link) SetUpscaling(on bool) error {
	return l.send(wire.Toggle(on, wire.CmdEnableUpscaling, wire.CmdDisableUpscaling), nil)
}

func (l *Link) EnforceStreaming() error { return l.send(wire.CmdEnforceStreaming, nil) }

func (l *Link) SetBrightness(level int) error {
	return l.send(wire.CmdBrightness, []byte{byte(level)})
}

func (l *Link) SetRGBOrder(order int) error {
	return l.send(wire.CmdRGBOrder, []byte{byte(order)})
}

func (l *Link) SetWiFiSSID(ssid string) error {
	return l.send(wire.CmdWiFiSSID, []byte(ssid))
}

func (l *Link) SetWiFiPassword(password string) error {
	return l.send(wire.CmdWiFiPassword, []byte(password))
}

func (l *Link) SetWiFiPort(port int) error {
	return l.send(wire.CmdWiFiPort, wire.Uint16s(port))
}

func (l *Link) SaveSettings() error { return l.send(wire.CmdSaveSettings, nil) }

func (l *Link) SetFrameSize(width, height int) error {
	return l.send(wire.CmdFrameSize, wire.Uint16s(width, height))
}

func (l *Link) SetPalette(buf palette.Buffer, numColors int) error {
	if numColors <= 0 || numColors > palette.Slots {
		return fmt.Errorf("%w: %d palette colours", ErrBadPayload, numColors)
	}
	payload := make([]byte, 1+palette.BufferLen)
	payload[0] = byte(numColors)
	copy(payload[1:], buf[:])
	return l.send(wire.CmdPalette, payload)
}

func (l *Link) ClearScreen() error { return l.send(wire.CmdClearScreen, nil) }

func (l *Link) RenderGray2(frame []byte) error { return l.send(wire.CmdGray2, frame) }

func (l *Link) RenderGray4(frame []byte) error { return l.send(wire.CmdGray4, frame) }

func (l *Link) RenderColoredGray6(frame, rotations []byte) error {
	payload := make([]byte, 0, len(frame)+len(rotations))
	payload = append(payload, frame...)
	payload = append(payload, rotations...)
	return l.send(wire.CmdColGray6, payload)
}

func (l *Link) RenderRgb24(frame []byte) error { return l.send(wire.CmdRGB24, frame) }
