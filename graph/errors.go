// Package graph provides the core state-graph execution engine.
package graph

import (
	"errors"
	"fmt"
)

// ErrMaxStepsExceeded indicates that the graph execution reached the
// maximum allowed step count without completing. This prevents infinite
// loops and runaway executions.
var ErrMaxStepsExceeded = errors.New("execution exceeded maximum steps limit")

// ErrBackpressure indicates that downstream processing cannot keep up with
// the current execution rate.
var ErrBackpressure = errors.New("downstream backpressure exceeded threshold")

// ErrCheckpointNotFound is returned by a CheckpointStore when a lookup by
// (thread_id, id) finds nothing.
var ErrCheckpointNotFound = errors.New("checkpoint not found")

// ErrFrontierEmpty is the internal invariant error raised when the executor
// finds an empty frontier mid-run (spec §4.4 step 1).
var ErrFrontierEmpty = errors.New("frontier is empty")

// errMultipleDirectives is raised when a node output carries more than one
// reserved marker key.
var errMultipleDirectives = errors.New("node output carries more than one directive marker")
var errNotAppendable = errors.New("write to an append channel must be a sequence")

// ErrorKind tags which of the six error classes in spec §7 an error
// belongs to, so callers can branch on kind without string matching.
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindNodeExecution    ErrorKind = "node_execution"
	KindRecursionLimit   ErrorKind = "recursion_limit"
	KindCheckpointNotFnd ErrorKind = "checkpoint_not_found"
	KindStore            ErrorKind = "store"
	KindRouter           ErrorKind = "router"
)

// GraphError is the common shape for every typed error the engine raises.
// It wraps an optional cause and carries enough diagnostic context (node
// name, kind) for a caller to match on programmatically via errors.As.
type GraphError struct {
	Kind    ErrorKind
	Message string
	NodeID  string
	Cause   error
}

func (e *GraphError) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("%s: %s (node=%s)", e.Kind, e.Message, e.NodeID)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *GraphError) Unwrap() error { return e.Cause }

func newValidationError(format string, args ...any) *GraphError {
	return &GraphError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func newNodeExecutionError(nodeID string, cause error) *GraphError {
	return &GraphError{Kind: KindNodeExecution, Message: "node execution failed", NodeID: nodeID, Cause: cause}
}

func newRecursionLimitError(limit int) *GraphError {
	return &GraphError{Kind: KindRecursionLimit, Message: fmt.Sprintf("recursion limit of %d exceeded", limit)}
}

func newCheckpointNotFoundError(threadID, checkpointID string) *GraphError {
	return &GraphError{
		Kind:    KindCheckpointNotFnd,
		Message: fmt.Sprintf("checkpoint %q not found for thread %q", checkpointID, threadID),
		Cause:   ErrCheckpointNotFound,
	}
}

func newStoreError(cause error) *GraphError {
	return &GraphError{Kind: KindStore, Message: "checkpoint store operation failed", Cause: cause}
}

func newRouterError(from, key string) *GraphError {
	return &GraphError{
		Kind:    KindRouter,
		Message: fmt.Sprintf("router on node %q resolved to unknown target %q", from, key),
		NodeID:  from,
	}
}
