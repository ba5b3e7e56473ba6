// Package player implements the replay half of the protocol engine:
// DomMaterializer (spec.md §4.7), DomMutator (spec.md §4.8), PlaybackQueue
// (spec.md §4.11), and PagePlayer's open-frame state machine (spec.md
// §4.12).
package player

import (
	"log/slog"

	"github.com/dnorman/domcorder/pkg/asset"
	"github.com/dnorman/domcorder/pkg/domtree"
	"github.com/dnorman/domcorder/pkg/nodeid"
	"github.com/dnorman/domcorder/pkg/vdom"
)

// Materializer is DomMaterializer (spec.md §4.7).
type Materializer struct {
	doc      *domtree.Document
	ids      *nodeid.Map
	registry *asset.Registry
	sheets   *SheetStore
	log      *slog.Logger
}

// NewMaterializer creates a Materializer that builds into doc, restoring
// ids into ids and binding asset references through registry/sheets.
func NewMaterializer(doc *domtree.Document, ids *nodeid.Map, registry *asset.Registry, sheets *SheetStore, logger *slog.Logger) *Materializer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Materializer{doc: doc, ids: ids, registry: registry, sheets: sheets, log: logger.With("component", "dom_materializer")}
}

// MaterializeDocument clears the target document and rebuilds it from v,
// returning the newly created top-level nodes (spec.md §4.7).
func (m *Materializer) MaterializeDocument(v *vdom.VDocument) []*domtree.Node {
	for _, existing := range append([]*domtree.Node(nil), m.doc.Root.Children...) {
		m.doc.RemoveChild(m.doc.Root, existing)
	}
	m.ids.Bind(m.doc.Root, nodeid.ID(v.ID))

	var created []*domtree.Node
	for _, child := range v.Children {
		n := m.MaterializeNode(child)
		m.doc.AppendChild(m.doc.Root, n)
		created = append(created, n)
	}

	for _, sheet := range v.AdoptedStyleSheets {
		id := int64(sheet.ID)
		m.sheets.Put(id, sheet.Media, sheet.Text)
		m.registry.BindAssetsToStyleSheet(m.sheets.Host(id), sheet.Text)
	}

	m.doc.TakeRecords() // materialization is not itself an observed mutation
	return created
}

// MaterializeNode builds a single real node (and its descendants) from v,
// restoring every node's id into the NodeIdMap as it is constructed
// (spec.md §4.7). Panics are never used; an unknown kind logs and yields a
// comment placeholder, since spec.md calls out unknown node types as a
// hard error for that node specifically, not the whole materialization.
func (m *Materializer) MaterializeNode(v *vdom.VNode) *domtree.Node {
	switch v.Kind {
	case vdom.KindElement:
		return m.materializeElement(v)
	case vdom.KindText:
		n := m.doc.NewText(v.Text)
		m.ids.Bind(n, nodeid.ID(v.ID))
		return n
	case vdom.KindCData:
		n := m.doc.NewCData(v.Text)
		m.ids.Bind(n, nodeid.ID(v.ID))
		return n
	case vdom.KindComment:
		n := m.doc.NewComment(v.Text)
		m.ids.Bind(n, nodeid.ID(v.ID))
		return n
	case vdom.KindProcessingInstruction:
		n := m.doc.NewProcessingInstruction(v.PITarget, v.PIData)
		m.ids.Bind(n, nodeid.ID(v.ID))
		return n
	case vdom.KindDocumentType:
		n := m.doc.NewDocumentType(v.DoctypeName, v.DoctypePublicID, v.DoctypeSystemID)
		m.ids.Bind(n, nodeid.ID(v.ID))
		return n
	default:
		m.log.Error("unknown VNode kind, materializing placeholder comment", "kind", v.Kind)
		n := m.doc.NewComment("")
		m.ids.Bind(n, nodeid.ID(v.ID))
		return n
	}
}

func (m *Materializer) materializeElement(v *vdom.VNode) *domtree.Node {
	n := m.doc.NewElement(v.Tag)
	n.Namespace = v.Namespace
	m.ids.Bind(n, nodeid.ID(v.ID))

	for name, value := range v.Attrs {
		m.doc.SetAttribute(n, name, value)
	}
	for name := range v.Attrs {
		m.registry.BindAssetToElementAttribute(&ElementHost{Doc: m.doc, Node: n}, name)
	}

	for _, c := range v.Children {
		child := m.MaterializeNode(c)
		m.doc.AppendChild(n, child)
	}

	if n.Tag == "style" {
		if textChild := firstTextChild(n); textChild != nil {
			m.registry.BindAssetsToStyleSheet(&StyleElementHost{Doc: m.doc, TextNode: textChild}, textChild.Data)
		}
	}

	if len(v.Shadow) > 0 {
		shadow := m.doc.AttachShadow(n)
		for _, c := range v.Shadow {
			child := m.MaterializeNode(c)
			m.doc.AppendChild(shadow, child)
		}
	}

	return n
}

func firstTextChild(n *domtree.Node) *domtree.Node {
	for _, c := range n.Children {
		if c.Kind == domtree.KindText {
			return c
		}
	}
	return nil
}
