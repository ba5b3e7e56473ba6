package player

import (
	"testing"
	"time"

	"github.com/dnorman/domcorder/internal/clock"
	"github.com/dnorman/domcorder/pkg/protocol"
)

// fakeTimer is a manually-fireable clock.Timer.
type fakeTimer struct {
	stopped bool
	fire    func()
}

func (t *fakeTimer) Stop() bool {
	wasRunning := !t.stopped
	t.stopped = true
	return wasRunning
}

// fakeClock gives deterministic control over Now() and lets the test fire
// the most recently armed timer explicitly.
type fakeClock struct {
	now   time.Time
	timer *fakeTimer
}

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	t := &fakeTimer{fire: f}
	c.timer = t
	return t
}

func (c *fakeClock) advanceAndFire(d time.Duration) {
	c.now = c.now.Add(d)
	t := c.timer
	if t != nil && !t.stopped {
		t.fire()
	}
}

func tsFrame(millis int64) protocol.Frame {
	return protocol.Frame{Type: protocol.FrameTimestamp, Payload: protocol.EncodeTimestamp(&protocol.TimestampPayload{TimestampMillis: millis})}
}

func viewportFrame(w, h uint32) protocol.Frame {
	return protocol.Frame{Type: protocol.FrameViewportResized, Payload: protocol.EncodeViewportResized(&protocol.ViewportResizedPayload{Width: w, Height: h})}
}

func TestLiveModeDispatchesImmediatelyWhenIdle(t *testing.T) {
	var got []protocol.Frame
	q := NewQueue(ModeLive, func(f protocol.Frame) { got = append(got, f) }, nil, nil)
	q.Enqueue(viewportFrame(1, 1))
	if len(got) != 1 {
		t.Fatalf("expected immediate dispatch, got %d frames", len(got))
	}
}

func TestLiveModePreservesOrderAcrossBuckets(t *testing.T) {
	var got []uint32
	done := make(chan struct{})
	var count int
	q := NewQueue(ModeLive, func(f protocol.Frame) {
		vp, _ := protocol.DecodeViewportResized(f.Payload)
		got = append(got, vp.Width)
		count++
		if count == 3 {
			close(done)
		}
	}, nil, nil)

	q.Enqueue(tsFrame(0))
	q.Enqueue(viewportFrame(1, 0))
	q.Enqueue(viewportFrame(2, 0))
	q.Enqueue(viewportFrame(3, 0))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for all frames to dispatch")
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("expected [1 2 3] in order, got %v", got)
	}
}

func TestScheduledModeWaitsForVirtualTime(t *testing.T) {
	var got []uint32
	q := NewQueue(ModeScheduled, func(f protocol.Frame) {
		vp, _ := protocol.DecodeViewportResized(f.Payload)
		got = append(got, vp.Width)
	}, nil, nil)
	clk := &fakeClock{now: time.Unix(0, 0)}
	q.clk = clk

	q.Start(clk.now, 1)
	q.Enqueue(tsFrame(1000))
	q.Enqueue(viewportFrame(7, 0))

	if len(got) != 0 {
		t.Fatalf("expected nothing dispatched before virtual time reaches the bucket, got %v", got)
	}

	clk.advanceAndFire(1000 * time.Millisecond)

	if len(got) != 1 || got[0] != 7 {
		t.Fatalf("expected the bucket to drain once virtual time caught up, got %v", got)
	}
}

func TestStopCancelsScheduledTimer(t *testing.T) {
	var called bool
	q := NewQueue(ModeScheduled, func(f protocol.Frame) { called = true }, nil, nil)
	clk := &fakeClock{now: time.Unix(0, 0)}
	q.clk = clk
	q.Start(clk.now, 1)
	q.Enqueue(tsFrame(1000))
	q.Enqueue(viewportFrame(1, 0))

	q.Stop()
	clk.advanceAndFire(2000 * time.Millisecond)

	if called {
		t.Fatal("expected Stop to cancel the pending timer before it fired")
	}
}
