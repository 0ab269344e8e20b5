package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeLayout(t *testing.T) {
	b, err := Encode(CmdBrightness, []byte{7})
	require.NoError(t, err)
	assert.Equal(t, []byte{'Z', 'e', 'D', 'M', 'D', 0x16, 0x00, 0x01, 0x07}, b)
}

func TestParseEncoded(t *testing.T) {
	payload := bytes.Repeat([]byte{0xab}, 300)
	b, err := Encode(CmdRGB24, payload)
	require.NoError(t, err)

	p, err := Parse(b)
	require.NoError(t, err)
	assert.Equal(t, CmdRGB24, p.Cmd)
	assert.Equal(t, payload, p.Payload)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("ZeD"))
	assert.ErrorIs(t, err, ErrShortPacket)

	_, err = Parse([]byte("XXXXX\x0a\x00\x00"))
	assert.ErrorIs(t, err, ErrBadMagic)

	_, err = Parse([]byte("ZeDMD\x03\x00\x10abc"))
	assert.ErrorIs(t, err, ErrShortPacket)
}

func TestEncodeTooLarge(t *testing.T) {
	_, err := Encode(CmdRGB24, make([]byte, MaxPayloadLen+1))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestUint16s(t *testing.T) {
	p := Uint16s(256, 64)
	assert.Equal(t, []byte{0x01, 0x00, 0x00, 0x40}, p)
	w, err := Uint16At(p, 0)
	require.NoError(t, err)
	h, err := Uint16At(p, 1)
	require.NoError(t, err)
	assert.Equal(t, 256, w)
	assert.Equal(t, 64, h)

	_, err = Uint16At(p, 2)
	assert.ErrorIs(t, err, ErrShortPacket)
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "Palette", CmdPalette.String())
	assert.Equal(t, "Command(0x7f)", Command(0x7f).String())
	assert.Equal(t, CmdEnableDebug, Toggle(true, CmdEnableDebug, CmdDisableDebug))
	assert.Equal(t, CmdDisableDebug, Toggle(false, CmdEnableDebug, CmdDisableDebug))
}
