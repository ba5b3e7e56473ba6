package recorder

import (
	"context"
	"testing"

	"github.com/dnorman/domcorder/pkg/domtree"
	"github.com/dnorman/domcorder/pkg/nodeid"
	"github.com/dnorman/domcorder/pkg/vdom"
)

func newTestDetector() (*Detector, *domtree.Document, *nodeid.Map) {
	doc := domtree.NewDocument()
	ids := nodeid.New()
	ids.AssignIfAbsent(doc.Root)
	doc.TakeRecords() // discard any implicit creation records
	d := NewDetector(ids, NewInliner(), nil, nil)
	return d, doc, ids
}

func TestDetectorEmitsAdditionWithAssignedParentID(t *testing.T) {
	d, doc, ids := newTestDetector()
	body := doc.NewElement("body")
	doc.AppendChild(doc.Root, body)

	ops := d.Flush(context.Background(), doc)
	if len(ops) != 1 || ops[0].Op != vdom.OpNodeAdded {
		t.Fatalf("expected one DomNodeAdded op, got %+v", ops)
	}
	rootID, _ := ids.GetID(doc.Root)
	if ops[0].ParentID != vdom.NodeID(rootID) {
		t.Fatalf("expected parent id %d, got %d", rootID, ops[0].ParentID)
	}
	if ops[0].Index != 0 {
		t.Fatalf("expected index 0, got %d", ops[0].Index)
	}
}

func TestDetectorOrdersRemovalsBeforeAdditions(t *testing.T) {
	d, doc, _ := newTestDetector()
	a := doc.NewElement("a")
	doc.AppendChild(doc.Root, a)
	d.Flush(context.Background(), doc)

	doc.RemoveChild(doc.Root, a)
	b := doc.NewElement("b")
	doc.AppendChild(doc.Root, b)

	ops := d.Flush(context.Background(), doc)
	if len(ops) != 2 {
		t.Fatalf("expected 2 ops, got %d", len(ops))
	}
	if ops[0].Op != vdom.OpNodeRemoved || ops[1].Op != vdom.OpNodeAdded {
		t.Fatalf("expected [removed, added], got %+v", ops)
	}
}

func TestDetectorDropsAddWhenParentNeverObserved(t *testing.T) {
	d, doc, _ := newTestDetector()
	detachedParent := doc.NewElement("div")
	child := doc.NewElement("span")
	doc.AppendChild(detachedParent, child) // parent never attached to the tracked document

	ops := d.Flush(context.Background(), doc)
	if len(ops) != 0 {
		t.Fatalf("expected dropped add to produce no ops, got %+v", ops)
	}
}

func TestDetectorEmitsAttributeChangeAndRemoval(t *testing.T) {
	d, doc, ids := newTestDetector()
	el := doc.NewElement("div")
	doc.AppendChild(doc.Root, el)
	d.Flush(context.Background(), doc)

	doc.SetAttribute(el, "class", "a")
	doc.SetAttribute(el, "class", "b")
	doc.RemoveAttribute(el, "id")

	ops := d.Flush(context.Background(), doc)
	id, _ := ids.GetID(el)
	foundChanged, foundRemoved := false, false
	for _, op := range ops {
		if op.NodeID != vdom.NodeID(id) {
			continue
		}
		if op.Op == vdom.OpAttributeChanged && op.Name == "class" && op.Value == "b" {
			foundChanged = true
		}
		if op.Op == vdom.OpAttributeRemoved && op.Name == "id" {
			foundRemoved = true
		}
	}
	if !foundChanged {
		t.Error("expected a class attribute change to b")
	}
	if !foundRemoved {
		t.Error("expected an id attribute removal")
	}
}

func TestDetectorEmitsTextDiff(t *testing.T) {
	d, doc, ids := newTestDetector()
	text := doc.NewText("hello")
	doc.AppendChild(doc.Root, text)
	d.Flush(context.Background(), doc)

	doc.SetTextData(text, "hello world")

	ops := d.Flush(context.Background(), doc)
	id, _ := ids.GetID(text)
	if len(ops) != 1 || ops[0].Op != vdom.OpTextChanged || ops[0].NodeID != vdom.NodeID(id) {
		t.Fatalf("expected one text-change op, got %+v", ops)
	}
}

func TestDetectorDropsAddThenRemoveWithinOneBatch(t *testing.T) {
	d, doc, _ := newTestDetector()
	el := doc.NewElement("div")
	doc.AppendChild(doc.Root, el)  // added and removed before any flush observes it:
	doc.RemoveChild(doc.Root, el) // neither op has a stable id to reference, per spec.md §4.6.

	ops := d.Flush(context.Background(), doc)
	if len(ops) != 0 {
		t.Fatalf("expected both the transient add and remove to be dropped, got %+v", ops)
	}
}
