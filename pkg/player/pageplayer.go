package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dnorman/domcorder/pkg/asset"
	"github.com/dnorman/domcorder/pkg/domtree"
	"github.com/dnorman/domcorder/pkg/metrics"
	"github.com/dnorman/domcorder/pkg/nodeid"
	"github.com/dnorman/domcorder/pkg/protocol"
	"github.com/dnorman/domcorder/pkg/vdom"
)

var tracer = otel.Tracer("domcorder/player")

// errNoMutator is returned when a mutation frame arrives before any
// keyframe has landed (spec.md §4.12: DomMutator requires a prior keyframe).
var errNoMutator = errors.New("player: mutation frame received before a keyframe has landed")

type openFrameKind uint8

const (
	openKeyframe openFrameKind = iota
	openAddNode
	openAdoptedSheetAdded
	openAdoptedSheetsChanged
)

// openFrame is one entry of PagePlayer's open-frame stack (spec.md §4.12).
// Only the fields relevant to Kind are populated.
type openFrame struct {
	kind     openFrameKind
	received map[uint32]struct{}

	// keyframe
	assetCount     int
	keyframeDoc    *vdom.VDocument
	viewportWidth  uint32
	viewportHeight uint32

	// add-node (also uses assetCount above)
	parentID uint32
	index    uint32
	node     *vdom.VNode

	// adopted-style-sheet-added (also uses assetCount above)
	sheet *vdom.VStyleSheet

	// adopted-style-sheets-changed
	rootID        uint32
	styleSheetIDs []uint32
	addedCount    int
	receivedSheets []*vdom.VStyleSheet

	pushedAt time.Time
}

func (k openFrameKind) String() string {
	switch k {
	case openKeyframe:
		return "keyframe"
	case openAddNode:
		return "add_node"
	case openAdoptedSheetAdded:
		return "adopted_sheet_added"
	case openAdoptedSheetsChanged:
		return "adopted_sheets_changed"
	default:
		return "unknown"
	}
}

func (of *openFrame) isComplete() bool {
	switch of.kind {
	case openKeyframe, openAddNode, openAdoptedSheetAdded:
		return len(of.received) >= of.assetCount
	case openAdoptedSheetsChanged:
		return len(of.receivedSheets) >= of.addedCount
	default:
		return true
	}
}

// PagePlayer drives the open-frame state machine of spec.md §4.12: events
// that require assets before they can safely be applied sit on a stack
// until their gating asset count is satisfied, then pop and apply in
// order, cascading into any parent frame waiting on them. While the stack
// is non-empty (Open), every other structural frame — a later
// DomNodeAdded/DomNodeRemoved/attribute or text change, even one with
// nothing left to wait on itself — is held in a FIFO instead of applied,
// so nothing jumps ahead of a still-gated keyframe or subtree add (spec.md
// §3's asset-completeness invariant, §8 property 5). The queue drains in
// order once the stack empties back to Closed.
type PagePlayer struct {
	doc          *domtree.Document
	ids          *nodeid.Map
	registry     *asset.Registry
	sheets       *SheetStore
	materializer *Materializer
	mutator      *Mutator

	// CacheLookup, if set, resolves an AssetReference's SHA-256 digest to
	// previously-seen bytes and a MIME type (spec.md §4.10's cache-hit
	// path); nil means AssetReference frames resolve by URL alone, with no
	// bytes, which AssetRegistry treats as already-available content.
	CacheLookup func(sha256 string) (bytes []byte, mime string, ok bool)

	// Metrics, if set, receives open-frame and dropped-operation
	// counters. nil is a valid no-op.
	Metrics *metrics.Collector

	stack   []*openFrame
	pending []protocol.Frame

	viewportWidth  uint32
	viewportHeight uint32
	adoptedByRoot  map[uint32][]int64

	log *slog.Logger
}

// NewPagePlayer creates a PagePlayer targeting doc, reusing ids/registry so
// materialization and asset binding line up with whatever the caller has
// already wired.
func NewPagePlayer(doc *domtree.Document, ids *nodeid.Map, registry *asset.Registry, sheets *SheetStore, logger *slog.Logger) *PagePlayer {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "page_player")
	return &PagePlayer{
		doc:           doc,
		ids:           ids,
		registry:      registry,
		sheets:        sheets,
		materializer:  NewMaterializer(doc, ids, registry, sheets, logger),
		adoptedByRoot: make(map[uint32][]int64),
		log:           logger,
	}
}

// Viewport returns the most recently applied viewport dimensions.
func (p *PagePlayer) Viewport() (width, height uint32) {
	return p.viewportWidth, p.viewportHeight
}

// HandleFrame routes one decoded wire frame per spec.md §4.12's transition
// table. Intended as the Handler passed to a Queue.
func (p *PagePlayer) HandleFrame(f protocol.Frame) {
	if err := p.handle(f); err != nil {
		p.log.Error("frame handling failed", "type", f.Type, "err", err)
	}
}

func (p *PagePlayer) dropped(reason string) error {
	if p.Metrics != nil {
		p.Metrics.DroppedOperations.WithLabelValues(reason).Inc()
	}
	return errNoMutator
}

// handle routes one decoded frame. Asset/AssetReference frames are the
// gate itself, so they're never deferred; every other structural frame
// type is deferred (see shouldDefer) while the open-frame stack is
// non-empty, rather than being applied out of turn.
func (p *PagePlayer) handle(f protocol.Frame) error {
	switch f.Type {
	case protocol.FrameAsset:
		return p.onAsset(f.Payload)
	case protocol.FrameAssetReference:
		return p.onAssetReference(f.Payload)
	case protocol.FrameKeyframe, protocol.FrameDomNodeAdded, protocol.FrameAdoptedStyleSheetsChanged,
		protocol.FrameAdoptedStyleSheetAdded, protocol.FrameDomNodeRemoved, protocol.FrameDomAttributeChanged,
		protocol.FrameDomAttributeRemoved, protocol.FrameDomTextChanged, protocol.FrameViewportResized:
		if p.shouldDefer(f) {
			p.pending = append(p.pending, f)
			return nil
		}
		return p.dispatch(f)
	default:
		// mouse/key/scroll/focus/selection and anything else: out of scope
		// (spec.md §4.12's last transition row), dropped silently. Never
		// touches tree state, so it has no ordering to preserve.
		return nil
	}
}

// shouldDefer reports whether f must wait in the pending FIFO for the
// open-frame stack to drain. The one frame type allowed to push while the
// stack is already non-empty is an AdoptedStyleSheetAdded arriving directly
// under its own AdoptedStyleSheetsChanged — that's the expected cascade
// (spec.md §4.12), not an unrelated frame racing ahead of a gated one.
func (p *PagePlayer) shouldDefer(f protocol.Frame) bool {
	if len(p.stack) == 0 {
		return false
	}
	if f.Type == protocol.FrameAdoptedStyleSheetAdded {
		if top := p.topFrame(); top != nil && top.kind == openAdoptedSheetsChanged {
			return false
		}
	}
	return true
}

func (p *PagePlayer) dispatch(f protocol.Frame) error {
	switch f.Type {
	case protocol.FrameKeyframe:
		return p.onKeyframe(f.Payload)
	case protocol.FrameDomNodeAdded:
		return p.onDomNodeAdded(f.Payload)
	case protocol.FrameAdoptedStyleSheetsChanged:
		return p.onAdoptedStyleSheetsChanged(f.Payload)
	case protocol.FrameAdoptedStyleSheetAdded:
		return p.onAdoptedStyleSheetAdded(f.Payload)
	case protocol.FrameDomNodeRemoved:
		return p.onDomNodeRemoved(f.Payload)
	case protocol.FrameDomAttributeChanged:
		return p.onDomAttributeChanged(f.Payload)
	case protocol.FrameDomAttributeRemoved:
		return p.onDomAttributeRemoved(f.Payload)
	case protocol.FrameDomTextChanged:
		return p.onDomTextChanged(f.Payload)
	case protocol.FrameViewportResized:
		return p.onViewportResized(f.Payload)
	default:
		return nil
	}
}

func (p *PagePlayer) onKeyframe(payload []byte) error {
	kp, err := protocol.DecodeKeyframe(payload)
	if err != nil {
		return err
	}
	of := &openFrame{
		kind:           openKeyframe,
		received:       map[uint32]struct{}{},
		assetCount:     int(kp.AssetCount),
		keyframeDoc:    kp.Document,
		viewportWidth:  kp.ViewportWidth,
		viewportHeight: kp.ViewportHeight,
	}
	p.pushAndMaybeComplete(of)
	return nil
}

func (p *PagePlayer) onDomNodeAdded(payload []byte) error {
	dp, err := protocol.DecodeDomNodeAdded(payload)
	if err != nil {
		return err
	}
	of := &openFrame{
		kind:       openAddNode,
		received:   map[uint32]struct{}{},
		assetCount: int(dp.AssetCount),
		parentID:   dp.ParentNodeID,
		index:      dp.Index,
		node:       dp.Node,
	}
	p.pushAndMaybeComplete(of)
	return nil
}

func (p *PagePlayer) onAdoptedStyleSheetAdded(payload []byte) error {
	sp, err := protocol.DecodeAdoptedStyleSheetAdded(payload)
	if err != nil {
		return err
	}
	of := &openFrame{
		kind:       openAdoptedSheetAdded,
		received:   map[uint32]struct{}{},
		assetCount: int(sp.AssetCount),
		sheet:      sp.StyleSheet,
	}
	p.pushAndMaybeComplete(of)
	return nil
}

func (p *PagePlayer) onAdoptedStyleSheetsChanged(payload []byte) error {
	cp, err := protocol.DecodeAdoptedStyleSheetsChanged(payload)
	if err != nil {
		return err
	}
	of := &openFrame{
		kind:          openAdoptedSheetsChanged,
		rootID:        cp.RootNodeID,
		styleSheetIDs: cp.StyleSheetIDs,
		addedCount:    int(cp.AddedCount),
	}
	p.pushAndMaybeComplete(of)
	return nil
}

func (p *PagePlayer) onAsset(payload []byte) error {
	ap, err := protocol.DecodeAsset(payload)
	if err != nil {
		return err
	}
	p.registry.Receive(&asset.Asset{ID: asset.ID(ap.AssetID), SourceURL: ap.URL, Bytes: ap.Bytes, MIME: derefString(ap.MIME)})
	return p.deliverAsset(asset.ID(ap.AssetID))
}

func (p *PagePlayer) onAssetReference(payload []byte) error {
	rp, err := protocol.DecodeAssetReference(payload)
	if err != nil {
		return err
	}
	var bytes []byte
	mime := derefString(rp.MIME)
	if p.CacheLookup != nil {
		if b, m, ok := p.CacheLookup(rp.SHA256); ok {
			bytes = b
			if m != "" {
				mime = m
			}
			if p.Metrics != nil {
				p.Metrics.AssetCacheHits.Inc()
			}
		}
	}
	p.registry.Receive(&asset.Asset{ID: asset.ID(rp.AssetID), SourceURL: rp.URL, Bytes: bytes, MIME: mime})
	return p.deliverAsset(asset.ID(rp.AssetID))
}

// deliverAsset credits the received asset id to the top open frame, per
// spec.md §4.12's Asset/AssetReference transition row.
func (p *PagePlayer) deliverAsset(id asset.ID) error {
	top := p.topFrame()
	if top == nil {
		if p.registry.IsResolved(id) {
			return nil // idempotent receive of an already-materialized asset
		}
		return fmt.Errorf("player: asset %d arrived with no open frame", id)
	}
	top.received[uint32(id)] = struct{}{}
	p.tryCompleteTop()
	return nil
}

func (p *PagePlayer) onDomNodeRemoved(payload []byte) error {
	if p.mutator == nil {
		return p.dropped("no_mutator")
	}
	dp, err := protocol.DecodeDomNodeRemoved(payload)
	if err != nil {
		return err
	}
	p.mutator.Apply(vdom.Operation{Op: vdom.OpNodeRemoved, NodeID: vdom.NodeID(dp.NodeID)})
	return nil
}

func (p *PagePlayer) onDomAttributeChanged(payload []byte) error {
	if p.mutator == nil {
		return p.dropped("no_mutator")
	}
	dp, err := protocol.DecodeDomAttributeChanged(payload)
	if err != nil {
		return err
	}
	p.mutator.Apply(vdom.Operation{Op: vdom.OpAttributeChanged, NodeID: vdom.NodeID(dp.NodeID), Name: dp.AttributeName, Value: dp.AttributeValue})
	return nil
}

func (p *PagePlayer) onDomAttributeRemoved(payload []byte) error {
	if p.mutator == nil {
		return p.dropped("no_mutator")
	}
	dp, err := protocol.DecodeDomAttributeRemoved(payload)
	if err != nil {
		return err
	}
	p.mutator.Apply(vdom.Operation{Op: vdom.OpAttributeRemoved, NodeID: vdom.NodeID(dp.NodeID), Name: dp.AttributeName})
	return nil
}

func (p *PagePlayer) onDomTextChanged(payload []byte) error {
	if p.mutator == nil {
		return p.dropped("no_mutator")
	}
	dp, err := protocol.DecodeDomTextChanged(payload)
	if err != nil {
		return err
	}
	p.mutator.Apply(vdom.Operation{Op: vdom.OpTextChanged, NodeID: vdom.NodeID(dp.NodeID), TextOps: dp.Operations})
	return nil
}

func (p *PagePlayer) onViewportResized(payload []byte) error {
	vp, err := protocol.DecodeViewportResized(payload)
	if err != nil {
		return err
	}
	p.viewportWidth, p.viewportHeight = vp.Width, vp.Height
	return nil
}

func (p *PagePlayer) topFrame() *openFrame {
	if len(p.stack) == 0 {
		return nil
	}
	return p.stack[len(p.stack)-1]
}

func (p *PagePlayer) pushAndMaybeComplete(of *openFrame) {
	of.pushedAt = time.Now()
	p.stack = append(p.stack, of)
	if p.Metrics != nil {
		p.Metrics.OpenFramesActive.Set(float64(len(p.stack)))
	}
	p.tryCompleteTop()
}

// tryCompleteTop pops and applies the top open frame for as long as it
// (and whatever frame is newly exposed beneath it) is complete, cascading
// an applied adopted-style-sheet-added into its parent
// adopted-style-sheets-changed frame's receivedSheets (spec.md §4.12).
// Once the stack empties back to Closed, it drains whatever arrived while
// it was Open.
func (p *PagePlayer) tryCompleteTop() {
	for {
		top := p.topFrame()
		if top == nil || !top.isComplete() {
			break
		}
		p.stack = p.stack[:len(p.stack)-1]
		if p.Metrics != nil {
			p.Metrics.OpenFramesActive.Set(float64(len(p.stack)))
		}
		p.apply(top)

		if top.kind == openAdoptedSheetAdded {
			if parent := p.topFrame(); parent != nil && parent.kind == openAdoptedSheetsChanged {
				parent.receivedSheets = append(parent.receivedSheets, top.sheet)
			}
		}
	}
	p.drainPending()
}

// drainPending replays frames that arrived while the open-frame stack was
// non-empty, in the order they were received, now that it has emptied.
// A replayed frame can itself reopen the stack (it pushes a new gated
// frame via dispatch -> pushAndMaybeComplete -> tryCompleteTop, which
// recursively drains whatever of the remaining queue it can); draining
// stops the moment the stack is non-empty again, leaving the rest queued
// for the next time it drains.
func (p *PagePlayer) drainPending() {
	for len(p.stack) == 0 && len(p.pending) > 0 {
		f := p.pending[0]
		p.pending = p.pending[1:]
		if err := p.dispatch(f); err != nil {
			p.log.Error("deferred frame handling failed", "type", f.Type, "err", err)
		}
	}
}

// apply resolves a fully-gated open frame into a real document mutation,
// spanned so a slow materialization step (a large keyframe, a big
// stylesheet) shows up in traces distinctly from the network/dispatch
// time that got it onto the stack.
func (p *PagePlayer) apply(of *openFrame) {
	_, span := tracer.Start(context.Background(), "page_player.apply_open_frame",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("domcorder.open_frame_kind", of.kind.String())),
	)
	defer span.End()

	if p.Metrics != nil && !of.pushedAt.IsZero() {
		p.Metrics.OpenFrameStallSeconds.Observe(time.Since(of.pushedAt).Seconds())
	}

	switch of.kind {
	case openKeyframe:
		p.applyKeyframe(of)
	case openAddNode:
		p.applyAddNode(of)
	case openAdoptedSheetAdded:
		p.applyAdoptedSheetAdded(of)
	case openAdoptedSheetsChanged:
		p.applyAdoptedSheetsChanged(of)
	}
}

func (p *PagePlayer) applyKeyframe(of *openFrame) {
	p.materializer.MaterializeDocument(of.keyframeDoc)
	p.mutator = NewMutator(p.doc, p.ids, p.registry, p.materializer, p.log)
	p.mutator.Metrics = p.Metrics
	p.viewportWidth, p.viewportHeight = of.viewportWidth, of.viewportHeight
	p.adoptedByRoot = make(map[uint32][]int64)
}

func (p *PagePlayer) applyAddNode(of *openFrame) {
	if p.mutator == nil {
		p.log.Error("add-node applied with no mutator", "parentId", of.parentID)
		return
	}
	p.mutator.Apply(vdom.Operation{
		Op:       vdom.OpNodeAdded,
		ParentID: vdom.NodeID(of.parentID),
		Index:    int(of.index),
		Node:     of.node,
	})
}

func (p *PagePlayer) applyAdoptedSheetAdded(of *openFrame) {
	id := int64(of.sheet.ID)
	p.sheets.Put(id, of.sheet.Media, of.sheet.Text)
	p.registry.BindAssetsToStyleSheet(p.sheets.Host(id), of.sheet.Text)
}

// applyAdoptedSheetsChanged recomputes the adopted set on of.rootID,
// preserving declared order, and drops any sheet no longer present
// (spec.md §4.12). Newly added sheets were already bound to the registry
// by their own adopted-style-sheet-added apply step.
func (p *PagePlayer) applyAdoptedSheetsChanged(of *openFrame) {
	newOrder := make([]int64, len(of.styleSheetIDs))
	newSet := make(map[int64]bool, len(of.styleSheetIDs))
	for i, id := range of.styleSheetIDs {
		newOrder[i] = int64(id)
		newSet[int64(id)] = true
	}
	for _, id := range p.adoptedByRoot[of.rootID] {
		if !newSet[id] {
			p.sheets.Remove(id)
		}
	}
	p.adoptedByRoot[of.rootID] = newOrder
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
