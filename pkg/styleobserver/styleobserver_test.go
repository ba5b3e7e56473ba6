package styleobserver

import "testing"

func TestRuleMutationQueuedUntilOwnerEmitted(t *testing.T) {
	var events []Event
	w := New(func(e Event) { events = append(events, e) })

	owner := new(int)
	w.MarkNodePendingNew(owner, 42)
	w.SheetRuleInserted(owner, 0, ".a{color:red}", 0)
	if len(events) != 0 {
		t.Fatalf("expected rule mutation to be queued, got %d events", len(events))
	}

	w.MarkNodeEmitted(owner)
	if len(events) != 1 {
		t.Fatalf("expected queue to flush on emit, got %d events", len(events))
	}
	if events[0].SheetID != 42 {
		t.Fatalf("expected flushed event to carry owner id 42, got %d", events[0].SheetID)
	}
}

func TestRuleMutationEmitsImmediatelyOnceOwnerKnownAndEmitted(t *testing.T) {
	var events []Event
	w := New(func(e Event) { events = append(events, e) })

	owner := new(int)
	w.MarkNodePendingNew(owner, 7)
	w.MarkNodeEmitted(owner)

	w.SheetRuleInserted(owner, 0, ".b{color:blue}", 1)
	if len(events) != 1 || events[0].SheetID != 7 {
		t.Fatalf("expected immediate emission with owner id 7, got %+v", events)
	}
}

func TestRuleMutationDiscardedOnNodeRemoved(t *testing.T) {
	var events []Event
	w := New(func(e Event) { events = append(events, e) })

	owner := new(int)
	w.MarkNodePendingNew(owner, 1)
	w.SheetRuleInserted(owner, 0, ".c{}", 0)
	w.MarkNodeRemoved(owner)
	w.MarkNodeEmitted(owner)

	if len(events) != 0 {
		t.Fatalf("expected discarded queue to never emit, got %d events", len(events))
	}
}

func TestAdoptedSheetRuleMutationEmitsImmediately(t *testing.T) {
	var events []Event
	w := New(func(e Event) { events = append(events, e) })

	w.SheetRuleInserted(nil, 99, ".d{}", 0)
	if len(events) != 1 || events[0].SheetID != 99 {
		t.Fatalf("expected adopted-sheet mutation to emit immediately with its own id, got %+v", events)
	}
}
