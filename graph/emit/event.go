package emit

// Event represents an observability event emitted during graph execution.
//
// Events are emitted to an Emitter which can log to stdout/stderr, send to
// OpenTelemetry, buffer for batch delivery, or discard.
type Event struct {
	// ThreadID identifies the thread that emitted this event.
	ThreadID string

	// Step is the super-step number in the run, counted from zero. Run-level
	// events (complete, error) carry the executor's step counter at the
	// moment they are emitted.
	Step int

	// NodeID identifies which node emitted this event. Empty for run-level
	// events.
	NodeID string

	// Kind is the event type tag. See the Kind* constants below.
	Kind string

	// Meta contains additional structured data specific to this event. Key
	// conventions by Kind:
	//   - KindNodeEnd: "state" holds the post-step State snapshot.
	//   - KindGraphComplete: "output" holds the final State.
	//   - KindInterrupted: "value" holds the interrupt payload, "checkpoint_id"
	//     the checkpoint to resume from.
	//   - KindError: "error" holds the error message.
	Meta map[string]interface{}
}

// Event kind tags, corresponding to the streaming vocabulary in spec §4.7.
const (
	KindNodeStart     = "node_start"
	KindNodeEnd       = "node_end"
	KindGraphComplete = "graph_complete"
	KindInterrupted   = "interrupted"
	KindError         = "error"
)
