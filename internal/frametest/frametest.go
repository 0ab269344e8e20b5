// Package frametest checks that frames pushed into a source come out of a
// destination unchanged.
package frametest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/dmdlink/internal/dmd"
)

// DefaultTimeout bounds the wait in AssertFrame.
var DefaultTimeout = 5 * time.Second

// Source accepts frames to emit.
type Source interface {
	AddFrame(dmd.Frame)
}

// Destination hands out the frames it receives, one at a time.
type Destination interface {
	// Reset drops any frame not yet taken.
	Reset()
	// Frame waits for the next frame.
	Frame(ctx context.Context) (dmd.Frame, error)
}

// TestSource passes each added frame to every connected sink.
type TestSource struct {
	mu    sync.Mutex
	sinks []func(dmd.Frame)
}

func NewSource() *TestSource { return &TestSource{} }

// Connect adds a sink. Sinks run on the AddFrame goroutine.
func (s *TestSource) Connect(sink func(dmd.Frame)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sinks = append(s.sinks, sink)
}

func (s *TestSource) AddFrame(f dmd.Frame) {
	s.mu.Lock()
	sinks := append([]func(dmd.Frame){}, s.sinks...)
	s.mu.Unlock()
	for _, sink := range sinks {
		sink(f.Clone())
	}
}

// TestDestination holds at most one frame. A frame arriving before the last
// one was taken replaces it, so a waiter never sees stale data.
type TestDestination struct {
	ch chan dmd.Frame
}

func NewDestination() *TestDestination {
	return &TestDestination{ch: make(chan dmd.Frame, 1)}
}

// Receive stores f for the next Frame call.
func (d *TestDestination) Receive(f dmd.Frame) {
	for {
		select {
		case d.ch <- f:
			return
		default:
		}
		select {
		case <-d.ch:
		default:
		}
	}
}

func (d *TestDestination) Reset() {
	select {
	case <-d.ch:
	default:
	}
}

func (d *TestDestination) Frame(ctx context.Context) (dmd.Frame, error) {
	select {
	case f := <-d.ch:
		return f, nil
	case <-ctx.Done():
		return dmd.Frame{}, ctx.Err()
	}
}

// AssertFrame resets dst, adds in to src and asserts the next frame dst
// receives equals expected. It waits at most DefaultTimeout.
func AssertFrame(t testing.TB, src Source, dst Destination, in, expected dmd.Frame) dmd.Frame {
	t.Helper()
	return AssertFrameWithin(t, DefaultTimeout, src, dst, in, expected)
}

// AssertFrameWithin is AssertFrame with an explicit timeout.
func AssertFrameWithin(t testing.TB, timeout time.Duration, src Source, dst Destination, in, expected dmd.Frame) dmd.Frame {
	t.Helper()
	t.Log(in)

	dst.Reset()
	src.AddFrame(in)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	got, err := dst.Frame(ctx)
	require.NoError(t, err, "no frame within %s", timeout)
	t.Log(got)

	assert.Equal(t, expected.Data, got.Data, "data")
	assert.Equal(t, expected.BitLength, got.BitLength, "bit length")
	assert.Equal(t, expected.Dimensions, got.Dimensions, "dimensions")
	return got
}
