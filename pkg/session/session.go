// Package session identifies recordings and retains a short backlog of
// recently-sent wire frames so a reconnecting player can resync instead of
// forcing a fresh keyframe (SPEC_FULL.md §12).
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ID is a recording's stable identity, assigned once when a
// RecordingClient is created. The resync frames do not carry it.
type ID string

// NewID mints a fresh recording id.
func NewID() ID {
	return ID(uuid.NewString())
}

// HistoryEntry is one previously-sent frame retained for resync.
type HistoryEntry struct {
	Seq    uint64
	Frame  []byte // pre-encoded wire bytes, ready to resend verbatim
	SentAt time.Time
}

// History is a fixed-capacity ring buffer of recently sent frames, keyed
// by monotonically increasing sequence number: a ring-buffer-overwrites-
// oldest shape generalized from "patch frame" to "any wire frame".
type History struct {
	mu       sync.Mutex
	entries  []*HistoryEntry
	head     int
	count    int
	capacity int
	minSeq   uint64
	maxSeq   uint64
}

// DefaultHistoryCapacity is the default number of frames retained.
const DefaultHistoryCapacity = 200

// NewHistory creates a History with the given capacity (DefaultHistoryCapacity if <= 0).
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{entries: make([]*HistoryEntry, capacity), capacity: capacity}
}

// Add records frame under seq, evicting the oldest entry if full. Callers
// must use strictly increasing seq values.
func (h *History) Add(seq uint64, frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	cp := make([]byte, len(frame))
	copy(cp, frame)

	h.entries[h.head] = &HistoryEntry{Seq: seq, Frame: cp, SentAt: time.Now()}
	h.head = (h.head + 1) % h.capacity
	if h.count < h.capacity {
		h.count++
	}

	h.maxSeq = seq
	if h.count == 1 {
		h.minSeq = seq
	} else if h.count == h.capacity {
		if oldest := h.entries[h.head]; oldest != nil {
			h.minSeq = oldest.Seq
		}
	}
}

// FramesSince returns the retained frames for (afterSeq, maxSeq] in order,
// or nil if any sequence in that range has already been evicted.
func (h *History) FramesSince(afterSeq uint64) [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 {
		return nil
	}
	if afterSeq+1 < h.minSeq || afterSeq > h.maxSeq {
		return nil
	}

	bySeq := make(map[uint64][]byte, h.count)
	for i := 0; i < h.count; i++ {
		idx := (h.head - h.count + i + h.capacity) % h.capacity
		if e := h.entries[idx]; e != nil {
			bySeq[e.Seq] = e.Frame
		}
	}

	frames := make([][]byte, 0, h.maxSeq-afterSeq)
	for seq := afterSeq + 1; seq <= h.maxSeq; seq++ {
		f, ok := bySeq[seq]
		if !ok {
			return nil
		}
		frames = append(frames, f)
	}
	return frames
}

// CanRecover reports whether FramesSince(lastSeq) would return a usable
// (possibly empty) replay rather than a gap.
func (h *History) CanRecover(lastSeq uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.count == 0 {
		return false
	}
	return lastSeq+1 >= h.minSeq && lastSeq <= h.maxSeq
}

// MaxSeq returns the highest sequence currently retained.
func (h *History) MaxSeq() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.maxSeq
}
