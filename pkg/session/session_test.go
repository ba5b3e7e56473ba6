package session

import "testing"

func TestHistoryReplaysRetainedRange(t *testing.T) {
	h := NewHistory(4)
	for seq := uint64(1); seq <= 4; seq++ {
		h.Add(seq, []byte{byte(seq)})
	}
	frames := h.FramesSince(2)
	if len(frames) != 2 || frames[0][0] != 3 || frames[1][0] != 4 {
		t.Fatalf("expected frames [3 4], got %v", frames)
	}
}

func TestHistoryReportsGapOnceEvicted(t *testing.T) {
	h := NewHistory(2)
	for seq := uint64(1); seq <= 4; seq++ {
		h.Add(seq, []byte{byte(seq)})
	}
	if h.CanRecover(0) {
		t.Fatal("expected seq 1 to have been evicted from a capacity-2 history after 4 adds")
	}
	if !h.CanRecover(2) {
		t.Fatal("expected a resume after seq 2 (seqs 3-4 retained) to be recoverable")
	}
	if got := h.FramesSince(0); got != nil {
		t.Fatalf("expected nil for an evicted range, got %v", got)
	}
}

func TestNewIDIsUnique(t *testing.T) {
	a, b := NewID(), NewID()
	if a == b {
		t.Fatal("expected distinct recording ids")
	}
}
