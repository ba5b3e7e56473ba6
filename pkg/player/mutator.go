package player

import (
	"log/slog"

	"github.com/dnorman/domcorder/pkg/asset"
	"github.com/dnorman/domcorder/pkg/domtree"
	"github.com/dnorman/domcorder/pkg/metrics"
	"github.com/dnorman/domcorder/pkg/nodeid"
	"github.com/dnorman/domcorder/pkg/stringdiff"
	"github.com/dnorman/domcorder/pkg/vdom"
)

// Mutator is DomMutator (spec.md §4.8): it applies structural operations
// to the target DOM, logging and skipping any operation whose required
// state is missing rather than aborting the whole batch.
type Mutator struct {
	doc          *domtree.Document
	ids          *nodeid.Map
	registry     *asset.Registry
	materializer *Materializer
	log          *slog.Logger

	// Metrics, if set, receives a counter bump every time an operation is
	// skipped for missing state. nil is a valid no-op.
	Metrics *metrics.Collector
}

// NewMutator creates a Mutator. A Materializer must already exist (spec.md
// §4.12: a keyframe must have landed before any mutator exists).
func NewMutator(doc *domtree.Document, ids *nodeid.Map, registry *asset.Registry, materializer *Materializer, logger *slog.Logger) *Mutator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mutator{doc: doc, ids: ids, registry: registry, materializer: materializer, log: logger.With("component", "dom_mutator")}
}

func (m *Mutator) drop(reason string) {
	if m.Metrics != nil {
		m.Metrics.DroppedOperations.WithLabelValues(reason).Inc()
	}
}

// Apply dispatches op to the matching handler (spec.md §4.8's table).
func (m *Mutator) Apply(op vdom.Operation) {
	switch op.Op {
	case vdom.OpNodeAdded:
		m.insert(op)
	case vdom.OpNodeRemoved:
		m.remove(op)
	case vdom.OpAttributeChanged:
		m.updateAttribute(op)
	case vdom.OpAttributeRemoved:
		m.removeAttribute(op)
	case vdom.OpTextChanged:
		m.updateText(op)
	}
}

func (m *Mutator) insert(op vdom.Operation) {
	parentNode, ok := m.ids.GetNode(nodeid.ID(op.ParentID))
	if !ok {
		m.log.Error("insert: parent not present", "parentId", op.ParentID)
		m.drop("insert_parent_missing")
		return
	}
	parent, ok := parentNode.(*domtree.Node)
	if !ok {
		m.log.Error("insert: parent has wrong node type", "parentId", op.ParentID)
		m.drop("insert_parent_wrong_type")
		return
	}
	if op.Index < 0 || op.Index > len(parent.Children) {
		m.log.Error("insert: index out of bounds", "index", op.Index, "childCount", len(parent.Children))
		m.drop("insert_index_out_of_bounds")
		return
	}
	node := m.materializer.MaterializeNode(op.Node)
	m.doc.InsertBefore(parent, node, op.Index)
}

func (m *Mutator) remove(op vdom.Operation) {
	n, ok := m.ids.GetNode(nodeid.ID(op.NodeID))
	if !ok {
		m.log.Error("remove: node not present", "nodeId", op.NodeID)
		m.drop("remove_node_missing")
		return
	}
	node, ok := n.(*domtree.Node)
	if !ok {
		m.log.Error("remove: node has wrong type", "nodeId", op.NodeID)
		m.drop("remove_node_wrong_type")
		return
	}
	if node.Parent != nil {
		m.doc.RemoveChild(node.Parent, node)
	}
	m.ids.RemoveSubtree(node)
}

func (m *Mutator) resolveElement(id vdom.NodeID) *domtree.Node {
	n, ok := m.ids.GetNode(nodeid.ID(id))
	if !ok {
		return nil
	}
	node, ok := n.(*domtree.Node)
	if !ok || node.Kind != domtree.KindElement {
		return nil // attribute ops silently skip non-element nodes, per spec.md §4.8
	}
	return node
}

func (m *Mutator) updateAttribute(op vdom.Operation) {
	node := m.resolveElement(op.NodeID)
	if node == nil {
		return
	}
	m.doc.SetAttribute(node, op.Name, op.Value)
	m.registry.BindAssetToElementAttribute(&ElementHost{Doc: m.doc, Node: node}, op.Name)
}

func (m *Mutator) removeAttribute(op vdom.Operation) {
	node := m.resolveElement(op.NodeID)
	if node == nil {
		return
	}
	m.doc.RemoveAttribute(node, op.Name)
}

func (m *Mutator) updateText(op vdom.Operation) {
	n, ok := m.ids.GetNode(nodeid.ID(op.NodeID))
	if !ok {
		m.log.Error("updateText: node not present", "nodeId", op.NodeID)
		m.drop("update_text_node_missing")
		return
	}
	node, ok := n.(*domtree.Node)
	if !ok || (node.Kind != domtree.KindText && node.Kind != domtree.KindComment && node.Kind != domtree.KindCData) {
		m.log.Error("updateText: node is not text-like", "nodeId", op.NodeID)
		m.drop("update_text_wrong_kind")
		return
	}
	m.doc.SetTextData(node, stringdiff.Apply(node.Data, op.TextOps))
}
