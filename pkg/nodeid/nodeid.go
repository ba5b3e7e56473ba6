// Package nodeid implements the bidirectional association between opaque
// numeric node identities and live DOM-like nodes described in spec §4.1.
//
// It is the single source of identity truth shared by the recorder's
// DomChangeDetector and the player's DomMaterializer/DomMutator. Both
// sides run single-threaded cooperative event loops (spec §5), so the map
// only needs a belt-and-suspenders mutex against incidental concurrent
// access, not real contention.
package nodeid

import "sync"

// ID is an opaque, non-negative, monotonically assigned node identity.
// Once assigned it never changes for the lifetime of the node and is
// never reused after removal.
type ID int64

// Node is the minimal shape a live or materialized DOM node must satisfy
// to be trackable by Map. Implementations are expected to be pointer
// types so identity comparisons (map keys) are stable.
type Node interface {
	// ChildNodes returns the node's children in document order, for
	// AdoptSubtree/RemoveSubtree traversal. Leaf node kinds return nil.
	ChildNodes() []Node
}

// Map is a bidirectional NodeId <-> Node association. The zero value is
// not usable; construct with New.
type Map struct {
	mu      sync.Mutex
	next    ID
	byNode  map[Node]ID
	byID    map[ID]Node
}

// New creates an empty Map. The first assigned id is 0, so that a
// document root observed first always receives id 0 (spec §3).
func New() *Map {
	return &Map{
		byNode: make(map[Node]ID),
		byID:   make(map[ID]Node),
	}
}

// AssignIfAbsent returns node's existing id if it has one, otherwise
// assigns and returns a fresh one. Idempotent, per spec §4.1.
func (m *Map) AssignIfAbsent(node Node) ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assignLocked(node)
}

func (m *Map) assignLocked(node Node) ID {
	if id, ok := m.byNode[node]; ok {
		return id
	}
	id := m.next
	m.next++
	m.byNode[node] = id
	m.byID[id] = node
	return id
}

// Bind explicitly associates node with id, overwriting any prior
// association for either. The player side uses this to adopt the exact
// ids a VDocument/VNode declares on the wire, rather than minting fresh
// ones the way the recorder's AssignIfAbsent does.
func (m *Map) Bind(node Node, id ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byNode[node] = id
	m.byID[id] = node
	if id >= m.next {
		m.next = id + 1
	}
}

// GetID returns the id bound to node, if any.
func (m *Map) GetID(node Node) (ID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byNode[node]
	return id, ok
}

// GetNode returns the node bound to id, if any.
func (m *Map) GetNode(id ID) (Node, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.byID[id]
	return n, ok
}

// AdoptSubtree assigns ids to root and all of its descendants, in
// document order, skipping any node that already has an id. It returns
// the id assigned (or already held) by root.
func (m *Map) AdoptSubtree(root Node) ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.adoptLocked(root)
}

func (m *Map) adoptLocked(n Node) ID {
	id := m.assignLocked(n)
	for _, c := range n.ChildNodes() {
		m.adoptLocked(c)
	}
	return id
}

// RemoveSubtree retires the ids of root and all of its descendants. After
// this call GetID/GetNode return false for every affected node.
func (m *Map) RemoveSubtree(root Node) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(root)
}

func (m *Map) removeLocked(n Node) {
	if id, ok := m.byNode[n]; ok {
		delete(m.byNode, n)
		delete(m.byID, id)
	}
	for _, c := range n.ChildNodes() {
		m.removeLocked(c)
	}
}

// Len returns the number of currently tracked nodes.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}
