package graph

import "testing"

func TestCheckpointStoreInterfaceSatisfiedByFakeStore(t *testing.T) {
	var _ CheckpointStore = (*fakeStore)(nil)
}

func TestSourceConstants(t *testing.T) {
	sources := []Source{SourceLoop, SourceInterrupt, SourceFork, SourceBreakpoint}
	seen := make(map[Source]bool)
	for _, s := range sources {
		if seen[s] {
			t.Fatalf("duplicate Source value: %q", s)
		}
		seen[s] = true
	}
}
