// Package wire frames ZeDMD commands for the serial and network links.
//
// Every packet is
//
//	"ZeDMD" | command (1 byte) | payload length (uint16, big endian) | payload
//
// Multi-byte integers in payloads are big endian as well.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Errors
var (
	ErrBadMagic        = errors.New("wire: bad packet magic")
	ErrShortPacket     = errors.New("wire: short packet")
	ErrPayloadTooLarge = errors.New("wire: payload too large")
)

// Magic starts every packet.
var Magic = []byte("ZeDMD")

const (
	HeaderLen     = 8
	MaxPayloadLen = 0xffff
)

// Command identifies a packet.
type Command byte

// Commands understood by the board.
const (
	CmdFrameSize           Command = 0x02
	CmdRGB24               Command = 0x03
	CmdGray2               Command = 0x08
	CmdGray4               Command = 0x09
	CmdClearScreen         Command = 0x0a
	CmdColGray6            Command = 0x0b
	CmdPalette             Command = 0x0c
	CmdEnablePreDownscale  Command = 0x10
	CmdDisablePreDownscale Command = 0x11
	CmdEnablePreUpscale    Command = 0x12
	CmdDisablePreUpscale   Command = 0x13
	CmdEnableUpscaling     Command = 0x14
	CmdDisableUpscaling    Command = 0x15
	CmdBrightness          Command = 0x16
	CmdRGBOrder            Command = 0x17
	CmdWiFiSSID            Command = 0x1b
	CmdWiFiPassword        Command = 0x1c
	CmdWiFiPort            Command = 0x1d
	CmdSaveSettings        Command = 0x1e
	CmdEnforceStreaming    Command = 0x1f
	CmdEnableDebug         Command = 0x63
	CmdDisableDebug        Command = 0x64
)

var commandNames = map[Command]string{
	CmdFrameSize:           "FrameSize",
	CmdRGB24:               "RGB24",
	CmdGray2:               "Gray2",
	CmdGray4:               "Gray4",
	CmdClearScreen:         "ClearScreen",
	CmdColGray6:            "ColGray6",
	CmdPalette:             "Palette",
	CmdEnablePreDownscale:  "EnablePreDownscale",
	CmdDisablePreDownscale: "DisablePreDownscale",
	CmdEnablePreUpscale:    "EnablePreUpscale",
	CmdDisablePreUpscale:   "DisablePreUpscale",
	CmdEnableUpscaling:     "EnableUpscaling",
	CmdDisableUpscaling:    "DisableUpscaling",
	CmdBrightness:          "Brightness",
	CmdRGBOrder:            "RGBOrder",
	CmdWiFiSSID:            "WiFiSSID",
	CmdWiFiPassword:        "WiFiPassword",
	CmdWiFiPort:            "WiFiPort",
	CmdSaveSettings:        "SaveSettings",
	CmdEnforceStreaming:    "EnforceStreaming",
	CmdEnableDebug:         "EnableDebug",
	CmdDisableDebug:        "DisableDebug",
}

func (c Command) String() string {
	if s, ok := commandNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Command(%#02x)", byte(c))
}

// Toggle picks the enable or disable variant.
func Toggle(on bool, enable, disable Command) Command {
	if on {
		return enable
	}
	return disable
}

type Packet struct {
	Cmd     Command
	Payload []byte
}

// Encode serialises a packet.
func Encode(cmd Command, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLen {
		return nil, fmt.Errorf("%w: %s carries %d bytes", ErrPayloadTooLarge, cmd, len(payload))
	}
	b := make([]byte, HeaderLen+len(payload))
	copy(b, Magic)
	b[5] = byte(cmd)
	binary.BigEndian.PutUint16(b[6:8], uint16(len(payload)))
	copy(b[HeaderLen:], payload)
	return b, nil
}

// Parse decodes exactly one packet. The payload aliases b.
func Parse(b []byte) (Packet, error) {
	if len(b) < HeaderLen {
		return Packet{}, ErrShortPacket
	}
	if !bytes.Equal(b[:len(Magic)], Magic) {
		return Packet{}, ErrBadMagic
	}
	n := int(binary.BigEndian.Uint16(b[6:8]))
	if len(b) < HeaderLen+n {
		return Packet{}, fmt.Errorf("%w: want %d payload bytes, have %d", ErrShortPacket, n, len(b)-HeaderLen)
	}
	return Packet{Cmd: Command(b[5]), Payload: b[HeaderLen : HeaderLen+n]}, nil
}

// Uint16s packs values as big-endian uint16s.
func Uint16s(vals ...int) []byte {
	b := make([]byte, 2*len(vals))
	for i, v := range vals {
		binary.BigEndian.PutUint16(b[2*i:], uint16(v))
	}
	return b
}

// Uint16At reads the i-th big-endian uint16 of a payload.
func Uint16At(p []byte, i int) (int, error) {
	if len(p) < 2*i+2 {
		return 0, ErrShortPacket
	}
	return int(binary.BigEndian.Uint16(p[2*i:])), nil
}
