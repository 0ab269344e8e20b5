package zedmd_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coreman2200/dmdlink/internal/dmd"
	"github.com/coreman2200/dmdlink/internal/frametest"
	"github.com/coreman2200/dmdlink/internal/transport"
	"github.com/coreman2200/dmdlink/internal/transport/transporttest"
	"github.com/coreman2200/dmdlink/internal/zedmd"
)

// source -> Device.Render -> transport -> destination
func devicePipe(t *testing.T) (*frametest.TestSource, *frametest.TestDestination) {
	t.Helper()
	rec := transporttest.New()
	cfg := zedmd.DefaultConfig
	cfg.Dial = func(context.Context) (transport.Transport, error) { return rec, nil }
	d := zedmd.New(cfg)
	require.NoError(t, d.Connect(context.Background()))
	t.Cleanup(func() { _ = d.Close() })

	src, dst := frametest.NewSource(), frametest.NewDestination()
	rec.OnFrame = dst.Receive
	src.Connect(func(f dmd.Frame) {
		_, err := d.Render(f)
		require.NoError(t, err)
	})
	return src, dst
}

func TestFramesReachTransportUnchanged(t *testing.T) {
	src, dst := devicePipe(t)
	dim := dmd.Dimensions{Width: 128, Height: 32}
	in := dmd.Frame{Data: make([]byte, 128*32), BitLength: 2, Dimensions: dim}
	frametest.AssertFrame(t, src, dst, in, in.Clone())
}

func TestConsecutiveFramesThroughDevice(t *testing.T) {
	src, dst := devicePipe(t)
	dim := dmd.Dimensions{Width: 128, Height: 32}

	first := dmd.NewFrame(dim, 4)
	for i := range first.Data {
		first.Data[i] = byte(i % 16)
	}
	second := dmd.NewFrame(dim, 4)
	for i := range second.Data {
		second.Data[i] = byte(15 - i%16)
	}

	frametest.AssertFrame(t, src, dst, first, first.Clone())
	src.AddFrame(second)
	got, err := dst.Frame(context.Background())
	require.NoError(t, err)
	require.True(t, got.Equal(second))

	hd := dmd.NewFrame(dmd.Dimensions{Width: 256, Height: 64}, 24)
	frametest.AssertFrame(t, src, dst, hd, hd.Clone())
}
