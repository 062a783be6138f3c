package graph

import (
	"context"

	"github.com/google/uuid"
)

// GetStateHistory returns every checkpoint recorded for threadID, sorted by
// Step ascending — the full audit trail a caller can step through or
// diff, ground truth: ayas-graph's time_travel.rs.
func GetStateHistory(ctx context.Context, store CheckpointStore, threadID string) ([]Checkpoint, error) {
	history, err := store.List(ctx, threadID)
	if err != nil {
		return nil, newStoreError(err)
	}
	return history, nil
}

// ForkFromCheckpoint copies the channel state and pending nodes of
// (sourceThreadID, checkpointID) into a brand-new thread newThreadID,
// stamped as Step 0 with Metadata.Source = SourceFork and ParentID set to
// the source checkpoint. The source thread is left untouched; the fork is
// a fully independent thread from here on.
func ForkFromCheckpoint(ctx context.Context, store CheckpointStore, sourceThreadID, checkpointID, newThreadID string) error {
	source, err := store.Get(ctx, sourceThreadID, checkpointID)
	if err != nil {
		return newStoreError(err)
	}

	forked := Checkpoint{
		ID:            uuid.NewString(),
		ThreadID:      newThreadID,
		ParentID:      source.ID,
		Step:          0,
		ChannelValues: source.ChannelValues.Clone(),
		PendingNodes:  append([]string(nil), source.PendingNodes...),
		Metadata: Metadata{
			Source:   SourceFork,
			Step:     0,
			NodeName: source.Metadata.NodeName,
		},
		CreatedAt: source.CreatedAt,
	}
	if err := store.Put(ctx, forked); err != nil {
		return newStoreError(err)
	}
	return nil
}

// ReplayToStep returns the checkpoint recorded at exactly step in threadID's
// history, the way a debugger's "step back" would — useful for inspecting
// intermediate state without resuming execution there.
func ReplayToStep(ctx context.Context, store CheckpointStore, threadID string, step int) (*Checkpoint, error) {
	history, err := store.List(ctx, threadID)
	if err != nil {
		return nil, newStoreError(err)
	}

	for i := range history {
		if history[i].Step == step {
			return &history[i], nil
		}
	}
	return nil, newCheckpointNotFoundError(threadID, "")
}
