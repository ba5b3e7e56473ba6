// Package domtree is the in-memory "live DOM" the recorder observes.
//
// spec.md treats the source DOM as an external collaborator: a real
// browser supplies MutationObserver records, document.styleSheets, and
// CSSOM events. domcorder's core is a protocol engine, not a browser
// binding, so this package supplies the minimal drivable DOM a caller
// (an embedder with real browser access, or a test) mutates through an
// explicit API; every mutating method appends a MutationRecord to the
// Document's pending queue, standing in for the platform's own mutation
// observer callback. DomChangeDetector (pkg/recorder) drains that queue
// on Flush, exactly as it would drain a real MutationObserver's queued
// records at end-of-microtask (spec.md §4.6).
package domtree

import "github.com/dnorman/domcorder/pkg/nodeid"

// Kind discriminates the DOM node types spec.md §3 requires the virtual
// document to be able to represent.
type Kind uint8

const (
	KindElement Kind = iota
	KindText
	KindCData
	KindComment
	KindProcessingInstruction
	KindDocumentType
	KindDocument
)

// Node is a live DOM node. Elements may carry a Shadow subtree (a nested
// Node of KindDocument-like grouping, unowned by NodeIdMap as a document
// but tracked like any other node for id purposes).
type Node struct {
	Kind      Kind
	Tag       string // element / processing-instruction target
	Namespace string
	Attrs     map[string]string
	Data      string // text / cdata / comment content, or doctype name
	Children  []*Node
	Parent    *Node
	Shadow    *Node // present only for elements with an attached shadow root

	doc *Document
}

// ChildNodes implements nodeid.Node.
func (n *Node) ChildNodes() []nodeid.Node {
	out := make([]nodeid.Node, 0, len(n.Children)+1)
	for _, c := range n.Children {
		out = append(out, c)
	}
	if n.Shadow != nil {
		out = append(out, n.Shadow)
	}
	return out
}

// MutationType identifies the kind of change a MutationRecord describes.
type MutationType uint8

const (
	MutationChildList MutationType = iota
	MutationAttributes
	MutationCharacterData
)

// MutationRecord mirrors the fields of a platform MutationObserver
// record that DomChangeDetector needs.
type MutationRecord struct {
	Type           MutationType
	Target         *Node
	AddedNodes     []*Node
	RemovedNodes   []*Node
	AttributeName  string
	OldAttrValue   string
	OldCharacter   string
}

// Document is the root container. NewDocument returns a KindDocument node
// with an empty child list; callers build the tree under it.
type Document struct {
	Root    *Node
	pending []MutationRecord
}

// NewDocument creates an empty live document.
func NewDocument() *Document {
	d := &Document{}
	d.Root = &Node{Kind: KindDocument, doc: d}
	return d
}

// NewElement creates a detached element node bound to this document.
func (d *Document) NewElement(tag string) *Node {
	return &Node{Kind: KindElement, Tag: tag, Attrs: map[string]string{}, doc: d}
}

// NewText creates a detached text node bound to this document.
func (d *Document) NewText(text string) *Node {
	return &Node{Kind: KindText, Data: text, doc: d}
}

// NewComment creates a detached comment node bound to this document.
func (d *Document) NewComment(text string) *Node {
	return &Node{Kind: KindComment, Data: text, doc: d}
}

// NewCData creates a detached CDATA section node bound to this document.
func (d *Document) NewCData(text string) *Node {
	return &Node{Kind: KindCData, Data: text, doc: d}
}

// NewProcessingInstruction creates a detached processing-instruction node;
// Tag holds the target and Data holds the instruction body.
func (d *Document) NewProcessingInstruction(target, data string) *Node {
	return &Node{Kind: KindProcessingInstruction, Tag: target, Data: data, doc: d}
}

// NewDocumentType creates a detached doctype node. Tag holds the doctype
// name; publicID and systemID are stored in Attrs under those keys since
// doctype nodes have no attribute semantics of their own to collide with.
func (d *Document) NewDocumentType(name, publicID, systemID string) *Node {
	return &Node{
		Kind: KindDocumentType,
		Tag:  name,
		Attrs: map[string]string{
			"publicId": publicID,
			"systemId": systemID,
		},
		doc: d,
	}
}

// AppendChild appends child to parent's children, recording a child-list
// mutation. child must not already be attached elsewhere in this tree.
func (d *Document) AppendChild(parent, child *Node) {
	d.InsertBefore(parent, child, -1)
}

// InsertBefore inserts child into parent's children at index (append if
// index < 0 or >= len(parent.Children)).
func (d *Document) InsertBefore(parent, child *Node, index int) {
	if child.Parent != nil {
		d.RemoveChild(child.Parent, child)
	}
	if index < 0 || index > len(parent.Children) {
		index = len(parent.Children)
	}
	parent.Children = append(parent.Children, nil)
	copy(parent.Children[index+1:], parent.Children[index:])
	parent.Children[index] = child
	child.Parent = parent

	d.pending = append(d.pending, MutationRecord{
		Type:       MutationChildList,
		Target:     parent,
		AddedNodes: []*Node{child},
	})
}

// RemoveChild detaches child from parent, recording a child-list mutation.
func (d *Document) RemoveChild(parent, child *Node) {
	for i, c := range parent.Children {
		if c == child {
			parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
			child.Parent = nil
			d.pending = append(d.pending, MutationRecord{
				Type:         MutationChildList,
				Target:       parent,
				RemovedNodes: []*Node{child},
			})
			return
		}
	}
}

// SetAttribute sets an attribute on an element, recording an attribute
// mutation with the prior value for observers that care.
func (d *Document) SetAttribute(el *Node, name, value string) {
	old := el.Attrs[name]
	if el.Attrs == nil {
		el.Attrs = map[string]string{}
	}
	el.Attrs[name] = value
	d.pending = append(d.pending, MutationRecord{
		Type:          MutationAttributes,
		Target:        el,
		AttributeName: name,
		OldAttrValue:  old,
	})
}

// RemoveAttribute removes an attribute, recording the mutation.
func (d *Document) RemoveAttribute(el *Node, name string) {
	old := el.Attrs[name]
	delete(el.Attrs, name)
	d.pending = append(d.pending, MutationRecord{
		Type:          MutationAttributes,
		Target:        el,
		AttributeName: name,
		OldAttrValue:  old,
	})
}

// SetTextData replaces a text/comment/cdata node's content, recording a
// character-data mutation with the prior content.
func (d *Document) SetTextData(n *Node, text string) {
	old := n.Data
	n.Data = text
	d.pending = append(d.pending, MutationRecord{
		Type:         MutationCharacterData,
		Target:       n,
		OldCharacter: old,
	})
}

// AttachShadow attaches a closed shadow root to el, recording it as a
// child-list addition so the recorder assigns it an id like any other
// newly observed subtree.
func (d *Document) AttachShadow(el *Node) *Node {
	shadow := &Node{Kind: KindDocument, Parent: el, doc: d}
	el.Shadow = shadow
	d.pending = append(d.pending, MutationRecord{
		Type:       MutationChildList,
		Target:     el,
		AddedNodes: []*Node{shadow},
	})
	return shadow
}

// TakeRecords drains and returns all mutation records queued since the
// last call, standing in for MutationObserver.takeRecords() at the
// recorder's flush point.
func (d *Document) TakeRecords() []MutationRecord {
	recs := d.pending
	d.pending = nil
	return recs
}
