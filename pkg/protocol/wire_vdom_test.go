package protocol

import (
	"errors"
	"testing"

	"github.com/dnorman/domcorder/pkg/vdom"
)

func TestVNodeRoundTripsNestedElement(t *testing.T) {
	n := &vdom.VNode{
		Kind: vdom.KindElement,
		ID:   1,
		Tag:  "div",
		Attrs: map[string]string{
			"class": "card",
		},
		Children: []*vdom.VNode{
			{Kind: vdom.KindText, ID: 2, Text: "hello"},
		},
	}

	e := NewEncoder()
	EncodeVNode(e, n)

	got, err := DecodeVNode(NewDecoder(e.Bytes()))
	if err != nil {
		t.Fatalf("DecodeVNode: %v", err)
	}
	if got.Tag != "div" || got.Attrs["class"] != "card" {
		t.Fatalf("element fields lost in round trip: %+v", got)
	}
	if len(got.Children) != 1 || got.Children[0].Text != "hello" {
		t.Fatalf("child text lost in round trip: %+v", got.Children)
	}
}

func TestDecodeVNodeRejectsExcessiveNesting(t *testing.T) {
	n := &vdom.VNode{Kind: vdom.KindText, ID: 1, Text: "leaf"}
	for i := 0; i < MaxVNodeDepth+10; i++ {
		n = &vdom.VNode{Kind: vdom.KindElement, ID: vdom.NodeID(i + 2), Tag: "div", Children: []*vdom.VNode{n}}
	}

	e := NewEncoder()
	EncodeVNode(e, n)

	_, err := DecodeVNode(NewDecoder(e.Bytes()))
	if !errors.Is(err, ErrMaxDepthExceeded) {
		t.Fatalf("got err %v, want ErrMaxDepthExceeded", err)
	}
}
