package transport

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/conntest"

	"github.com/coreman2200/dmdlink/internal/palette"
	"github.com/coreman2200/dmdlink/internal/transport/wire"
)

func packets(t *testing.T, rec *conntest.Record) []wire.Packet {
	t.Helper()
	out := make([]wire.Packet, 0, len(rec.Ops))
	for _, op := range rec.Ops {
		p, err := wire.Parse(op.W)
		require.NoError(t, err)
		out = append(out, p)
	}
	return out
}

func TestLinkCommands(t *testing.T) {
	rec := &conntest.Record{}
	l := NewLink(rec, nil)

	var buf palette.Buffer
	buf[0], buf[191] = 0x11, 0x22

	require.NoError(t, l.SetDebug(true))
	require.NoError(t, l.SetPreDownscaling(false))
	require.NoError(t, l.SetPreUpscaling(true))
	require.NoError(t, l.SetUpscaling(false))
	require.NoError(t, l.EnforceStreaming())
	require.NoError(t, l.SetBrightness(9))
	require.NoError(t, l.SetRGBOrder(3))
	require.NoError(t, l.SetWiFiSSID("pinball"))
	require.NoError(t, l.SetWiFiPassword("secret"))
	require.NoError(t, l.SetWiFiPort(3333))
	require.NoError(t, l.SaveSettings())
	require.NoError(t, l.SetFrameSize(128, 32))
	require.NoError(t, l.SetPalette(buf, 16))
	require.NoError(t, l.ClearScreen())
	require.NoError(t, l.RenderGray2([]byte{0, 1, 2, 3}))
	require.NoError(t, l.RenderGray4([]byte{15}))
	require.NoError(t, l.RenderColoredGray6([]byte{63, 1}, []byte{9, 9}))
	require.NoError(t, l.RenderRgb24([]byte{1, 2, 3}))

	got := packets(t, rec)
	want := []wire.Packet{
		{Cmd: wire.CmdEnableDebug, Payload: []byte{}},
		{Cmd: wire.CmdDisablePreDownscale, Payload: []byte{}},
		{Cmd: wire.CmdEnablePreUpscale, Payload: []byte{}},
		{Cmd: wire.CmdDisableUpscaling, Payload: []byte{}},
		{Cmd: wire.CmdEnforceStreaming, Payload: []byte{}},
		{Cmd: wire.CmdBrightness, Payload: []byte{9}},
		{Cmd: wire.CmdRGBOrder, Payload: []byte{3}},
		{Cmd: wire.CmdWiFiSSID, Payload: []byte("pinball")},
		{Cmd: wire.CmdWiFiPassword, Payload: []byte("secret")},
		{Cmd: wire.CmdWiFiPort, Payload: []byte{0x0d, 0x05}},
		{Cmd: wire.CmdSaveSettings, Payload: []byte{}},
		{Cmd: wire.CmdFrameSize, Payload: []byte{0, 128, 0, 32}},
		{Cmd: wire.CmdPalette, Payload: append([]byte{16}, buf[:]...)},
		{Cmd: wire.CmdClearScreen, Payload: []byte{}},
		{Cmd: wire.CmdGray2, Payload: []byte{0, 1, 2, 3}},
		{Cmd: wire.CmdGray4, Payload: []byte{15}},
		{Cmd: wire.CmdColGray6, Payload: []byte{63, 1, 9, 9}},
		{Cmd: wire.CmdRGB24, Payload: []byte{1, 2, 3}},
	}
	assert.Equal(t, want, got)
}

func TestLinkRejectsBadPaletteCount(t *testing.T) {
	rec := &conntest.Record{}
	l := NewLink(rec, nil)
	assert.ErrorIs(t, l.SetPalette(palette.Buffer{}, 0), ErrBadPayload)
	assert.ErrorIs(t, l.SetPalette(palette.Buffer{}, 65), ErrBadPayload)
	assert.Empty(t, rec.Ops)
}

type countingCloser struct{ n int }

func (c *countingCloser) Close() error { c.n++; return nil }

func TestLinkClose(t *testing.T) {
	rec := &conntest.Record{}
	cc := &countingCloser{}
	l := NewLink(rec, cc)

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	assert.Equal(t, 1, cc.n)
	assert.ErrorIs(t, l.ClearScreen(), ErrClosed)
	assert.Empty(t, rec.Ops)
}

func TestStreamConnWritesWholePackets(t *testing.T) {
	var out bytes.Buffer
	l := NewLink(&streamConn{name: "buf", rw: &out}, nil)
	require.NoError(t, l.SetBrightness(15))
	require.NoError(t, l.ClearScreen())

	assert.Equal(t, "zedmd{buf}", l.String())
	assert.Equal(t, []byte("ZeDMD\x16\x00\x01\x0fZeDMD\x0a\x00\x00"), out.Bytes())
}
