package vdom

import "github.com/dnorman/domcorder/pkg/stringdiff"

// Op identifies a structural DOM operation. Each value corresponds to one
// of the DomNodeAdded..DomTextChanged frame types of spec.md §4.9, but the
// numbering differs (Op values 0-4, frame tags 10-14).
// Per spec.md §9 Open Questions, domcorder does not implement a Replace
// op — the canonical player always decomposes a replace into Remove then
// Insert, so that choice is made once here rather than at every call site.
type Op uint8

const (
	OpNodeAdded Op = iota
	OpNodeRemoved
	OpAttributeChanged
	OpAttributeRemoved
	OpTextChanged
)

// Operation is one structural change emitted by DomChangeDetector and
// consumed by DomMutator (spec.md §4.6, §4.8).
type Operation struct {
	Op       Op
	NodeID   NodeID
	ParentID NodeID // OpNodeAdded only
	Index    int    // OpNodeAdded only: target child index among living children
	Node     *VNode // OpNodeAdded only
	Name     string // OpAttributeChanged / OpAttributeRemoved
	Value    string // OpAttributeChanged
	TextOps  []stringdiff.Op // OpTextChanged
	AssetCount int // OpNodeAdded only: number of Asset/AssetReference frames gating this op
}
