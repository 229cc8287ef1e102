package phonograph

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState is returned if method cannot be executed at this moment.
	ErrInvalidState = errors.New("invalid state")
	// ErrInvalidIndex is returned when port index is out of range.
	ErrInvalidIndex = errors.New("invalid port index")
	// ErrChannelMismatch is returned when source channel count can't be
	// accepted by destination input.
	ErrChannelMismatch = errors.New("channel count mismatch")
	// ErrNilNode is returned when nil node is passed where node is required.
	ErrNilNode = errors.New("nil node")
	// ErrNilParam is returned when nil param is passed.
	ErrNilParam = errors.New("nil param")
	// ErrInvalidConfig is returned when context can't be created with
	// provided device config or options.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrForeignNode is returned when node belongs to another context.
	ErrForeignNode = errors.New("node belongs to another context")
	// ErrClosed is returned when context is already closed.
	ErrClosed = errors.New("context closed")
)

// NodeError is the fault a node reported during render.
type NodeError struct {
	Node string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %v", e.Node, e.Err)
}

// Unwrap returns the underlying error.
func (e *NodeError) Unwrap() error {
	return e.Err
}
