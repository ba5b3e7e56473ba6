package player

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dnorman/domcorder/internal/clock"
	"github.com/dnorman/domcorder/pkg/protocol"
)

// Handler receives one dispatched wire frame. PlaybackQueue never invokes
// Handler concurrently with itself (spec.md §4.11).
type Handler func(protocol.Frame)

// Mode selects which of PlaybackQueue's two scheduling disciplines is active.
type Mode int

const (
	// ModeLive dispatches frames as fast as they can be drained, ignoring
	// bucket timestamps, to minimize latency.
	ModeLive Mode = iota
	// ModeScheduled paces dispatch against a virtual clock derived from an
	// epoch and a playback speed multiplier.
	ModeScheduled
)

type bucket struct {
	timestamp int64
	frames    []protocol.Frame
}

// Queue is PlaybackQueue (spec.md §4.11): an ordered list of time buckets
// plus a single in-flight dispatch guard, shared between live and scheduled
// playback. It needs two independent producers (the transport's read loop
// feeding Enqueue, and a timer goroutine in scheduled mode) to serialize
// against each other without a single owning goroutine, so it uses an explicit
// mutex plus "draining"/"in flight" flags instead.
type Queue struct {
	mu      sync.Mutex
	mode    Mode
	handler Handler
	clk     clock.Clock
	log     *slog.Logger

	buckets       []*bucket
	lastTimestamp int64
	draining      bool
	inFlight      bool
	stopped       bool

	epoch time.Time
	speed float64
	timer clock.Timer
}

// NewQueue creates a PlaybackQueue in the given mode. clk defaults to the
// real wall clock if nil.
func NewQueue(mode Mode, handler Handler, clk clock.Clock, logger *slog.Logger) *Queue {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{mode: mode, handler: handler, clk: clk, log: logger.With("component", "playback_queue"), speed: 1}
}

// Start arms scheduled-mode playback against the given virtual-time epoch
// and speed multiplier. A no-op in live mode.
func (q *Queue) Start(epoch time.Time, speed float64) {
	if speed <= 0 {
		speed = 1
	}
	q.mu.Lock()
	q.epoch = epoch
	q.speed = speed
	q.mu.Unlock()
	if q.mode == ModeScheduled {
		q.armTimer()
	}
}

// Enqueue admits one wire frame. A Timestamp frame opens a new bucket and
// is never itself forwarded to Handler; every other frame is appended to
// the latest open bucket (live mode may instead dispatch it immediately).
func (q *Queue) Enqueue(f protocol.Frame) {
	if f.Type == protocol.FrameTimestamp {
		q.openBucket(f)
		return
	}

	q.mu.Lock()
	if q.mode == ModeLive && len(q.buckets) == 0 && !q.inFlight && !q.draining {
		q.inFlight = true
		q.mu.Unlock()
		q.handler(f)
		q.mu.Lock()
		q.inFlight = false
		q.mu.Unlock()
		return
	}
	q.appendLocked(f)
	q.mu.Unlock()

	switch q.mode {
	case ModeLive:
		q.ensureDrain()
	case ModeScheduled:
		q.armTimer()
	}
}

// appendLocked must be called with mu held.
func (q *Queue) appendLocked(f protocol.Frame) {
	if len(q.buckets) == 0 {
		q.buckets = append(q.buckets, &bucket{timestamp: q.lastTimestamp})
	}
	b := q.buckets[len(q.buckets)-1]
	b.frames = append(b.frames, f)
}

func (q *Queue) openBucket(f protocol.Frame) {
	ts, err := protocol.DecodeTimestamp(f.Payload)
	if err != nil {
		q.log.Error("malformed timestamp frame, dropping", "err", err)
		return
	}
	q.mu.Lock()
	q.buckets = append(q.buckets, &bucket{timestamp: ts.TimestampMillis})
	q.mu.Unlock()
	if q.mode == ModeScheduled {
		q.armTimer()
	}
}

// ensureDrain starts a drain goroutine unless one is already running.
func (q *Queue) ensureDrain() {
	q.mu.Lock()
	if q.draining {
		q.mu.Unlock()
		return
	}
	q.draining = true
	q.mu.Unlock()
	go q.drainLoop()
}

func (q *Queue) drainLoop() {
	for {
		q.mu.Lock()
		if q.stopped || q.inFlight || len(q.buckets) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		b := q.buckets[0]
		if len(b.frames) == 0 {
			q.buckets = q.buckets[1:]
			q.mu.Unlock()
			continue
		}
		f := b.frames[0]
		b.frames = b.frames[1:]
		if len(b.frames) == 0 {
			q.lastTimestamp = b.timestamp
			q.buckets = q.buckets[1:]
		}
		q.inFlight = true
		q.mu.Unlock()

		q.handler(f)

		q.mu.Lock()
		q.inFlight = false
		q.mu.Unlock()
	}
}

// elapsedMillis returns the current virtual-clock position. Must be called
// with mu held.
func (q *Queue) elapsedMillisLocked() int64 {
	if q.epoch.IsZero() {
		return 0
	}
	real := q.clk.Now().Sub(q.epoch)
	return int64(float64(real) / q.speed / float64(time.Millisecond))
}

func (q *Queue) armTimer() {
	q.mu.Lock()
	if q.stopped || len(q.buckets) == 0 {
		q.mu.Unlock()
		return
	}
	target := q.buckets[0].timestamp
	now := q.elapsedMillisLocked()
	delayMillis := target - now
	if delayMillis < 0 {
		delayMillis = 0
	}
	delay := time.Duration(float64(delayMillis)*q.speed) * time.Millisecond
	if q.timer != nil {
		q.timer.Stop()
	}
	q.timer = q.clk.AfterFunc(delay, q.onTimerFire)
	q.mu.Unlock()
}

func (q *Queue) onTimerFire() {
	for {
		q.mu.Lock()
		if q.stopped || len(q.buckets) == 0 {
			q.mu.Unlock()
			return
		}
		elapsed := q.elapsedMillisLocked()
		if q.buckets[0].timestamp > elapsed {
			q.mu.Unlock()
			q.armTimer()
			return
		}
		b := q.buckets[0]
		q.buckets = q.buckets[1:]
		q.lastTimestamp = b.timestamp
		frames := b.frames
		q.mu.Unlock()

		for _, f := range frames {
			q.mu.Lock()
			if q.stopped {
				q.mu.Unlock()
				return
			}
			q.inFlight = true
			q.mu.Unlock()

			q.handler(f)

			q.mu.Lock()
			q.inFlight = false
			q.mu.Unlock()
		}
		// loop re-checks: draining may have taken long enough that more
		// buckets are now also ready (spec.md §4.11).
	}
}

// Stop cancels any pending scheduled timer. In-flight handler invocations
// run to completion; there is no resume beyond continuing to Enqueue.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	if q.timer != nil {
		q.timer.Stop()
	}
	q.mu.Unlock()
}
