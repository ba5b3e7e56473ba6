package recorder

import (
	"context"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dnorman/domcorder/pkg/domtree"
	"github.com/dnorman/domcorder/pkg/metrics"
	"github.com/dnorman/domcorder/pkg/nodeid"
	"github.com/dnorman/domcorder/pkg/stringdiff"
	"github.com/dnorman/domcorder/pkg/styleobserver"
	"github.com/dnorman/domcorder/pkg/vdom"
)

var tracer = otel.Tracer("domcorder/recorder")

// Detector is DomChangeDetector (spec.md §4.6): it drains a Document's
// queued mutation records and emits an ordered batch of structural
// operations, owning NodeIdMap assignment and retirement as it goes.
type Detector struct {
	ids     *nodeid.Map
	inliner *Inliner
	watcher *styleobserver.Watcher // nil if stylesheet observation is not wired
	log     *slog.Logger

	// Metrics, if set, receives a counter bump every time a mutation
	// record is dropped instead of turned into an operation. nil is a
	// valid no-op.
	Metrics *metrics.Collector
}

// NewDetector creates a Detector. watcher may be nil when the caller does
// not need stylesheet causal-ordering support.
func NewDetector(ids *nodeid.Map, inliner *Inliner, watcher *styleobserver.Watcher, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Detector{ids: ids, inliner: inliner, watcher: watcher, log: logger.With("component", "dom_change_detector")}
}

type pendingAdd struct {
	parent *domtree.Node
	child  *domtree.Node
}

// Flush drains doc's queued mutation records and returns the ordered batch
// of operations: removals, then additions, then attribute changes, then
// text changes (spec.md §4.6).
func (d *Detector) Flush(ctx context.Context, doc *domtree.Document) (ops []vdom.Operation) {
	_, span := tracer.Start(ctx, "dom_change_detector.flush", trace.WithSpanKind(trace.SpanKindInternal))
	defer func() {
		span.SetAttributes(attribute.Int("domcorder.operation_count", len(ops)))
		span.SetStatus(codes.Ok, "")
		span.End()
	}()

	records := doc.TakeRecords()
	if len(records) == 0 {
		return nil
	}

	var adds []pendingAdd
	var removedRoots []*domtree.Node
	attrSeen := map[*domtree.Node]map[string]struct{}{}
	attrOrder := map[*domtree.Node][]string{}
	var attrTargetOrder []*domtree.Node
	textChanges := map[*domtree.Node]string{} // node -> oldest OldCharacter seen
	var textTargetOrder []*domtree.Node

	for _, rec := range records {
		switch rec.Type {
		case domtree.MutationChildList:
			for _, r := range rec.RemovedNodes {
				removedRoots = append(removedRoots, r)
			}
			for _, a := range rec.AddedNodes {
				adds = append(adds, pendingAdd{parent: rec.Target, child: a})
			}
		case domtree.MutationAttributes:
			if attrSeen[rec.Target] == nil {
				attrSeen[rec.Target] = map[string]struct{}{}
				attrTargetOrder = append(attrTargetOrder, rec.Target)
			}
			if _, seen := attrSeen[rec.Target][rec.AttributeName]; !seen {
				attrSeen[rec.Target][rec.AttributeName] = struct{}{}
				attrOrder[rec.Target] = append(attrOrder[rec.Target], rec.AttributeName)
			}
		case domtree.MutationCharacterData:
			if _, seen := textChanges[rec.Target]; !seen {
				textChanges[rec.Target] = rec.OldCharacter
				textTargetOrder = append(textTargetOrder, rec.Target)
			}
		}
	}

	ops = append(ops, d.processRemovals(removedRoots)...)
	ops = append(ops, d.processAdditions(adds)...)
	ops = append(ops, d.processAttributeChanges(attrTargetOrder, attrOrder)...)
	ops = append(ops, d.processTextChanges(textTargetOrder, textChanges)...)
	return ops
}

func (d *Detector) processRemovals(roots []*domtree.Node) []vdom.Operation {
	var ops []vdom.Operation
	for _, root := range roots {
		id, ok := d.ids.GetID(root)
		if !ok {
			continue // never observed: skip silently, per spec.md §4.6 step 1
		}
		ops = append(ops, vdom.Operation{Op: vdom.OpNodeRemoved, NodeID: vdom.NodeID(id)})
		d.ids.RemoveSubtree(root)
		if d.watcher != nil {
			walkDomtree(root, func(n *domtree.Node) { d.watcher.MarkNodeRemoved(n) })
		}
	}
	return ops
}

func (d *Detector) processAdditions(adds []pendingAdd) []vdom.Operation {
	if len(adds) == 0 {
		return nil
	}

	byParent := map[*domtree.Node][]*domtree.Node{}
	var parentOrder []*domtree.Node
	for _, a := range adds {
		if _, ok := byParent[a.parent]; !ok {
			parentOrder = append(parentOrder, a.parent)
		}
		byParent[a.parent] = append(byParent[a.parent], a.child)
	}

	var ops []vdom.Operation
	for _, parent := range parentOrder {
		parentID, ok := d.ids.GetID(parent)
		if !ok {
			d.log.Error("dropping add: parent has no node id", "op", "DomNodeAdded")
			if d.Metrics != nil {
				d.Metrics.DroppedOperations.WithLabelValues("parent_no_node_id").Inc()
			}
			continue
		}
		children := byParent[parent]
		sort.Slice(children, func(i, j int) bool {
			return indexOf(parent, children[i]) < indexOf(parent, children[j])
		})
		for _, child := range children {
			index := indexOf(parent, child)
			if index < 0 {
				continue // detached again before flush; nothing to emit
			}
			vnode, assetIDs := d.inliner.Inline(child, d.ids)
			if d.watcher != nil {
				walkDomtree(child, func(n *domtree.Node) {
					if id, ok := d.ids.GetID(n); ok {
						d.watcher.MarkNodePendingNew(n, id)
					}
				})
			}
			ops = append(ops, vdom.Operation{
				Op:         vdom.OpNodeAdded,
				ParentID:   vdom.NodeID(parentID),
				Index:      index,
				Node:       vnode,
				AssetCount: len(assetIDs),
			})
			if d.watcher != nil {
				walkDomtree(child, func(n *domtree.Node) { d.watcher.MarkNodeEmitted(n) })
			}
		}
	}
	return ops
}

func (d *Detector) processAttributeChanges(targetOrder []*domtree.Node, order map[*domtree.Node][]string) []vdom.Operation {
	var ops []vdom.Operation
	for _, target := range targetOrder {
		id, ok := d.ids.GetID(target)
		if !ok {
			continue
		}
		for _, name := range order[target] {
			if value, present := target.Attrs[name]; present {
				ops = append(ops, vdom.Operation{Op: vdom.OpAttributeChanged, NodeID: vdom.NodeID(id), Name: name, Value: value})
			} else {
				ops = append(ops, vdom.Operation{Op: vdom.OpAttributeRemoved, NodeID: vdom.NodeID(id), Name: name})
			}
		}
	}
	return ops
}

func (d *Detector) processTextChanges(targetOrder []*domtree.Node, changes map[*domtree.Node]string) []vdom.Operation {
	var ops []vdom.Operation
	for _, target := range targetOrder {
		id, ok := d.ids.GetID(target)
		if !ok {
			continue
		}
		old := changes[target]
		diffOps := stringdiff.Diff(old, target.Data)
		if len(diffOps) == 0 {
			continue
		}
		ops = append(ops, vdom.Operation{Op: vdom.OpTextChanged, NodeID: vdom.NodeID(id), TextOps: diffOps})
	}
	return ops
}

func indexOf(parent, child *domtree.Node) int {
	for i, c := range parent.Children {
		if c == child {
			return i
		}
	}
	return -1
}

func walkDomtree(n *domtree.Node, fn func(*domtree.Node)) {
	fn(n)
	for _, c := range n.Children {
		walkDomtree(c, fn)
	}
	if n.Shadow != nil {
		walkDomtree(n.Shadow, fn)
	}
}
