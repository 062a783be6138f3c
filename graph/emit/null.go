package emit

import "context"

// NullEmitter discards every event. Useful for production deployments where
// the observability overhead of event emission is unwanted, or for tests
// that don't care about the event stream.
type NullEmitter struct{}

// NewNullEmitter creates a NullEmitter.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

func (n *NullEmitter) Emit(event Event) {}

func (n *NullEmitter) EmitBatch(_ context.Context, events []Event) error { return nil }

func (n *NullEmitter) Flush(_ context.Context) error { return nil }
