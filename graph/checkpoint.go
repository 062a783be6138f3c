// Package graph provides the core state-graph execution engine.
package graph

import (
	"context"
	"time"
)

// Source tags why a checkpoint was written.
type Source string

const (
	SourceLoop       Source = "loop"
	SourceInterrupt  Source = "interrupt"
	SourceFork       Source = "fork"
	SourceBreakpoint Source = "breakpoint"
)

// Metadata carries the provenance of a checkpoint.
type Metadata struct {
	Source   Source `json:"source"`
	Step     int    `json:"step"`
	NodeName string `json:"node_name,omitempty"`
}

// Checkpoint is a durable snapshot of one step of one thread's execution.
// Checkpoints are keyed by (ThreadID, ID); listing a thread returns them
// strictly sorted by Step ascending (spec §4.5).
type Checkpoint struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id"`

	// ParentID links to the previous checkpoint in the same thread, or to
	// the source checkpoint when Metadata.Source == SourceFork.
	ParentID string `json:"parent_id,omitempty"`

	// Step is monotonically non-decreasing within a thread.
	Step int `json:"step"`

	// ChannelValues is the materialized state at this checkpoint.
	ChannelValues State `json:"channel_values"`

	// PendingNodes is the frontier that executes next if this checkpoint
	// is resumed from.
	PendingNodes []string `json:"pending_nodes"`

	Metadata Metadata `json:"metadata"`

	CreatedAt time.Time `json:"created_at"`
}

// CheckpointStore persists checkpoints keyed by thread. Implementations live
// under graph/store; the interface is declared here (rather than there) so
// that graph/store can import graph for the Checkpoint type without a cycle.
type CheckpointStore interface {
	// Put persists a checkpoint. A repeated write with an ID that is
	// already stored replaces that record in place.
	Put(ctx context.Context, cp Checkpoint) error

	// Get retrieves one checkpoint by thread and id.
	Get(ctx context.Context, threadID, id string) (Checkpoint, error)

	// GetLatest retrieves the highest-Step checkpoint for a thread.
	GetLatest(ctx context.Context, threadID string) (Checkpoint, error)

	// List returns every checkpoint for a thread, sorted by Step ascending.
	List(ctx context.Context, threadID string) ([]Checkpoint, error)

	// DeleteThread removes every checkpoint belonging to a thread.
	DeleteThread(ctx context.Context, threadID string) error
}
