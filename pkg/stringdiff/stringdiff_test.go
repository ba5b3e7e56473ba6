package stringdiff

import "testing"

func TestApplyDiffRoundTrip(t *testing.T) {
	cases := []struct{ old, new string }{
		{"", ""},
		{"hello", "hello"},
		{"", "hello"},
		{"hello", ""},
		{"hello", "hello world"},
		{"hello world", "world"},
		{"abc", "xbc"},
		{"日本語", "日本"},
		{"日本", "日本語です"},
	}
	for _, c := range cases {
		ops := Diff(c.old, c.new)
		got := Apply(c.old, ops)
		if got != c.new {
			t.Errorf("Diff(%q,%q) then Apply = %q, want %q (ops=%v)", c.old, c.new, got, c.new, ops)
		}
	}
}

func TestDiffIdenticalIsEmpty(t *testing.T) {
	if ops := Diff("same", "same"); len(ops) != 0 {
		t.Fatalf("expected no ops for identical strings, got %v", ops)
	}
}

func TestInsertIndexBounds(t *testing.T) {
	ops := Diff("", "x")
	if len(ops) != 1 || ops[0].Kind != OpInsert || ops[0].Index != 0 {
		t.Fatalf("unexpected ops for empty->x: %v", ops)
	}
}

func TestRemoveIndexPlusCountBound(t *testing.T) {
	ops := Diff("hello", "")
	if len(ops) != 1 || ops[0].Kind != OpRemove {
		t.Fatalf("unexpected ops for hello->empty: %v", ops)
	}
	if ops[0].Index+ops[0].Count > len([]rune("hello")) {
		t.Fatalf("remove op exceeds pre-image bounds: %+v", ops[0])
	}
}

func TestApplySequentialOps(t *testing.T) {
	// From spec.md §8 scenario (b): insert then remove against a live text node.
	text := "hello"
	text = Apply(text, []Op{{Kind: OpInsert, Index: 5, Content: " world"}})
	if text != "hello world" {
		t.Fatalf("after insert, got %q", text)
	}
	text = Apply(text, []Op{{Kind: OpRemove, Index: 0, Count: 6}})
	if text != "world" {
		t.Fatalf("after remove, got %q", text)
	}
}
