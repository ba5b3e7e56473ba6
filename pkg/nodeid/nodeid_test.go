package nodeid

import "testing"

type fakeNode struct {
	children []Node
}

func (f *fakeNode) ChildNodes() []Node { return f.children }

func TestAssignIfAbsentIdempotent(t *testing.T) {
	m := New()
	n := &fakeNode{}
	id1 := m.AssignIfAbsent(n)
	id2 := m.AssignIfAbsent(n)
	if id1 != id2 {
		t.Fatalf("expected idempotent assignment, got %d and %d", id1, id2)
	}
}

func TestRootAssignedZero(t *testing.T) {
	m := New()
	root := &fakeNode{}
	if id := m.AssignIfAbsent(root); id != 0 {
		t.Fatalf("expected first id 0, got %d", id)
	}
}

func TestAdoptSubtreeDocumentOrder(t *testing.T) {
	m := New()
	leaf1 := &fakeNode{}
	leaf2 := &fakeNode{}
	root := &fakeNode{children: []Node{leaf1, leaf2}}

	rootID := m.AdoptSubtree(root)
	id1, ok1 := m.GetID(leaf1)
	id2, ok2 := m.GetID(leaf2)
	if !ok1 || !ok2 {
		t.Fatal("expected both leaves to be assigned ids")
	}
	if !(rootID < id1 && id1 < id2) {
		t.Fatalf("expected document order assignment, got root=%d leaf1=%d leaf2=%d", rootID, id1, id2)
	}
}

func TestAdoptSubtreeSkipsExisting(t *testing.T) {
	m := New()
	leaf := &fakeNode{}
	existingID := m.AssignIfAbsent(leaf)
	root := &fakeNode{children: []Node{leaf}}
	m.AdoptSubtree(root)
	if id, _ := m.GetID(leaf); id != existingID {
		t.Fatalf("expected existing id %d preserved, got %d", existingID, id)
	}
}

func TestRemoveSubtreeRetiresAll(t *testing.T) {
	m := New()
	leaf1 := &fakeNode{}
	leaf2 := &fakeNode{}
	root := &fakeNode{children: []Node{leaf1, leaf2}}
	rootID := m.AdoptSubtree(root)

	m.RemoveSubtree(root)

	for _, n := range []Node{root, leaf1, leaf2} {
		if _, ok := m.GetID(n); ok {
			t.Fatalf("expected node retired after RemoveSubtree")
		}
	}
	if _, ok := m.GetNode(rootID); ok {
		t.Fatalf("expected GetNode to fail for retired id %d", rootID)
	}
}

func TestBindAdoptsExplicitID(t *testing.T) {
	m := New()
	n := &fakeNode{}
	m.Bind(n, 42)
	if id, ok := m.GetID(n); !ok || id != 42 {
		t.Fatalf("expected bound id 42, got %d (ok=%v)", id, ok)
	}
	if node, ok := m.GetNode(42); !ok || node != n {
		t.Fatal("expected GetNode(42) to return the bound node")
	}
	// subsequent auto-assignment must not collide with a bound high id
	other := &fakeNode{}
	if id := m.AssignIfAbsent(other); id == 42 {
		t.Fatalf("expected fresh assignment to avoid bound id 42")
	}
}

func TestIdsNeverReused(t *testing.T) {
	m := New()
	a := &fakeNode{}
	b := &fakeNode{}
	idA := m.AssignIfAbsent(a)
	m.RemoveSubtree(a)
	idB := m.AssignIfAbsent(b)
	if idA == idB {
		t.Fatalf("expected ids to never be reused, got %d twice", idA)
	}
}
