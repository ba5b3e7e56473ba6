// Package xerrors provides the structured error type shared by domcorder's
// recorder and player packages: a category label plus an optionally wrapped
// cause, so callers can attach log fields and metrics labels uniformly.
package xerrors

import "fmt"

// Category classifies where in the record/replay pipeline an error originated.
type Category string

const (
	CategoryDOM      Category = "dom"
	CategoryAsset    Category = "asset"
	CategoryStyle    Category = "style"
	CategoryProtocol Category = "protocol"
	CategoryPlayback Category = "playback"
)

// Error is a structured error carrying a category, an operation name, and
// an optional wrapped cause. It is returned by components that must keep
// operating after a single failure (per spec.md §7: log and drop).
type Error struct {
	Category Category
	Op       string
	NodeID   int64 // -1 when not applicable
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.NodeID >= 0 {
		return fmt.Sprintf("%s: %s: node %d: %v", e.Category, e.Op, e.NodeID, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Category, e.Op, e.Err)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates an Error not tied to a particular node.
func New(cat Category, op string, err error) *Error {
	return &Error{Category: cat, Op: op, NodeID: -1, Err: err}
}

// NewNode creates an Error tied to a specific NodeID.
func NewNode(cat Category, op string, nodeID int64, err error) *Error {
	return &Error{Category: cat, Op: op, NodeID: nodeID, Err: err}
}
