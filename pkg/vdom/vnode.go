// Package vdom defines the serialization-ready virtual document types of
// spec.md §3: VDocument, VNode (a tagged union), and VStyleSheet. These
// are what DomMaterializer (pkg/player) builds real DOM from, and what
// AssetInliner (pkg/recorder) produces when it walks a live subtree.
//
// The tagged-union shape is a Kind discriminator plus one struct with
// fields used per-kind, rather than a Go-idiomatic interface hierarchy —
// spec.md's design notes (§9) are explicit that
// the frame and virtual-node types are closed tagged unions meant to be
// pattern-matched on, not extended via open polymorphism.
package vdom

// Kind discriminates a VNode's variant.
type Kind uint8

const (
	KindElement Kind = iota
	KindText
	KindCData
	KindComment
	KindProcessingInstruction
	KindDocumentType
)

// String returns the kind's label, used in logging and wire debugging.
func (k Kind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindCData:
		return "CData"
	case KindComment:
		return "Comment"
	case KindProcessingInstruction:
		return "ProcessingInstruction"
	case KindDocumentType:
		return "DocumentType"
	default:
		return "Unknown"
	}
}

// NodeID is re-exported at the vdom level as a plain int64 so wire types
// don't need to import pkg/nodeid; pkg/protocol maps between them.
type NodeID int64

// StyleSheetID identifies a stylesheet. For non-adopted sheets it equals
// the owner node's NodeID; for adopted sheets it is independently
// allocated (spec.md §3).
type StyleSheetID int64

// VNode is the tagged union over element/text/cdata/comment/processing
// instruction/doctype described in spec.md §3.
type VNode struct {
	Kind Kind
	ID   NodeID

	// KindElement
	Tag       string
	Namespace string
	Attrs     map[string]string
	Children  []*VNode
	Shadow    []*VNode // present only when the element has an attached shadow root

	// KindText, KindCData, KindComment
	Text string

	// KindProcessingInstruction
	PITarget string
	PIData   string

	// KindDocumentType
	DoctypeName     string
	DoctypePublicID string
	DoctypeSystemID string
}

// VStyleSheet is the wire description of a tracked stylesheet (spec.md §3).
type VStyleSheet struct {
	ID    StyleSheetID
	Media string
	Text  string
}

// VDocument is the full virtual document a Keyframe carries (spec.md §3).
type VDocument struct {
	ID                 NodeID
	Children           []*VNode
	AdoptedStyleSheets []*VStyleSheet
}

// Element constructs a KindElement VNode.
func Element(id NodeID, tag string, attrs map[string]string, children ...*VNode) *VNode {
	return &VNode{Kind: KindElement, ID: id, Tag: tag, Attrs: attrs, Children: children}
}

// Text constructs a KindText VNode.
func Text(id NodeID, text string) *VNode {
	return &VNode{Kind: KindText, ID: id, Text: text}
}

// Comment constructs a KindComment VNode.
func Comment(id NodeID, text string) *VNode {
	return &VNode{Kind: KindComment, ID: id, Text: text}
}

// CData constructs a KindCData VNode.
func CData(id NodeID, text string) *VNode {
	return &VNode{Kind: KindCData, ID: id, Text: text}
}
