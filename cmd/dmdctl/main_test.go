package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/dmdlink/internal/config"
	"github.com/coreman2200/dmdlink/internal/dmd"
	"github.com/coreman2200/dmdlink/internal/transport/transporttest"
	"github.com/coreman2200/dmdlink/internal/zedmd"
)

func attached(t *testing.T) (*zedmd.Device, *transporttest.Recorder) {
	t.Helper()
	rec := transporttest.New()
	d := zedmd.New(zedmd.DefaultConfig)
	require.NoError(t, d.Attach(rec))
	rec.Reset()
	return d, rec
}

func TestRunReportsFailures(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()

	for _, args := range [][]string{
		{"nope"},
		{"color"},
		{"color", "zzzzzz"},
		{"palette"},
		{"brightness", "16"},
		{"brightness", "x"},
		{"wifi"},
		{"test", "plane_z"},
		{"draw", "/nonexistent.png"},
	} {
		d, _ := attached(t)
		assert.Error(t, run(ctx, d, cfg, 24, args), "%v", args)
	}

	d, rec := attached(t)
	rec.Err = errors.New("link down")
	assert.ErrorIs(t, run(ctx, d, cfg, 24, []string{"palette", "ff0000", "00ff00"}), rec.Err)
}

func TestRunPaletteAndColor(t *testing.T) {
	ctx := context.Background()
	d, rec := attached(t)

	require.NoError(t, run(ctx, d, config.Default(), 24, []string{"color", "#ff8000"}))
	require.Len(t, rec.Palettes(), 3)
	assert.Equal(t, 4, rec.Palettes()[0].NumColors)

	c, err := parseColor("00ff00")
	require.NoError(t, err)
	assert.Equal(t, dmd.Color{G: 255}, c)
}

func TestRunPatternRendersEveryFrame(t *testing.T) {
	d, rec := attached(t)
	var frames int
	rec.OnFrame = func(dmd.Frame) { frames++ }

	require.NoError(t, run(context.Background(), d, config.Default(), 2, []string{"test", "rgb_channels"}))
	assert.Equal(t, 3, frames)
}
