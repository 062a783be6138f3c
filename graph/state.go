package graph

import "encoding/json"

// State is the materialized, read-through view of every declared channel at
// a point in the graph's execution. Nodes receive a State and return a
// State-shaped delta; the executor never exposes a channel in isolation.
type State map[string]any

// Clone returns a shallow copy of s. Node bodies receive a clone so that
// mutating the returned map never leaks into another concurrently running
// node's view of the same step.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Overlay returns a new State equal to s with every key in patch applied on
// top. Used to build a node's input view when a Send directive attached a
// per-target payload to a frontier entry.
func (s State) Overlay(patch State) State {
	out := s.Clone()
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// ChannelKind tags how a channel reduces concurrent writes within a step.
type ChannelKind int

const (
	// LastValue channels hold a single value; the last write in
	// frontier-insertion order within a step overwrites it.
	LastValue ChannelKind = iota
	// Append channels hold an ordered sequence; every write in
	// frontier-insertion order is appended to it.
	Append
)

func (k ChannelKind) String() string {
	switch k {
	case LastValue:
		return "last_value"
	case Append:
		return "append"
	default:
		return "unknown"
	}
}

// ChannelSpec declares a single channel: its reduction law and its default
// value (used both as the initial materialized value and, for LastValue
// channels, as the value a run ends with if nothing ever wrote to it).
type ChannelSpec struct {
	Name    string
	Kind    ChannelKind
	Default any
}

// channelTable holds the materialized values for every declared channel
// during one invocation. It is owned exclusively by the invocation that
// created it; no other invocation observes it.
type channelTable struct {
	specs  map[string]ChannelSpec
	values State
}

func newChannelTable(specs map[string]ChannelSpec) *channelTable {
	values := make(State, len(specs))
	for name, spec := range specs {
		values[name] = cloneDefault(spec.Default, spec.Kind)
	}
	return &channelTable{specs: specs, values: values}
}

func cloneDefault(v any, kind ChannelKind) any {
	if kind == Append && v == nil {
		return []any{}
	}
	return v
}

// materialize returns the current state as a read-through map.
func (t *channelTable) materialize() State {
	return t.values.Clone()
}

// update applies a set of proposed writes (delta) to the channel table,
// using each channel's reduction law. writes is visited by the caller in
// frontier-insertion order; update itself does not reorder anything, so the
// caller is responsible for the ordering guarantee in spec §5. It returns
// the first offending channel name if a write is shaped wrong for its
// channel's reduction law (e.g. a non-sequence written to an Append
// channel), so the executor can attribute the failure to the node that
// produced it.
func (t *channelTable) update(delta State) (badChannel string, err error) {
	for key, val := range delta {
		spec, ok := t.specs[key]
		if !ok {
			// A key that names no declared channel is skipped; neither the
			// builder nor the executor rejects such keys.
			continue
		}
		switch spec.Kind {
		case Append:
			seq, _ := t.values[key].([]any)
			items, ok := toSlice(val)
			if !ok {
				return key, errNotAppendable
			}
			t.values[key] = append(append([]any{}, seq...), items...)
		default: // LastValue
			t.values[key] = val
		}
	}
	return "", nil
}

func toSlice(v any) ([]any, bool) {
	switch x := v.(type) {
	case []any:
		return x, true
	case nil:
		return nil, true
	default:
		return nil, false
	}
}

// snapshot returns a JSON-marshalable copy of the current channel values,
// suitable for embedding in a Checkpoint.
func (t *channelTable) snapshot() (State, error) {
	raw, err := json.Marshal(t.values)
	if err != nil {
		return nil, err
	}
	var out State
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// restore replaces the channel table's values with a previously snapshotted
// state, filling in defaults for any channel absent from the snapshot.
func (t *channelTable) restore(snap State) {
	values := make(State, len(t.specs))
	for name, spec := range t.specs {
		if v, ok := snap[name]; ok {
			values[name] = v
		} else {
			values[name] = cloneDefault(spec.Default, spec.Kind)
		}
	}
	t.values = values
}
