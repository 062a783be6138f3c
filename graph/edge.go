// Package graph provides the core state-graph execution engine.
package graph

// Predicate inspects materialized state and returns a routing key. Used by
// ConditionalEdge.
type Predicate func(state State) string

// FanOutPredicate inspects materialized state and returns zero or more
// routing keys for dynamic multi-target routing.
type FanOutPredicate func(state State) []string

// Edge is a static edge connecting two nodes (or a sentinel).
type Edge struct {
	From string
	To   string
}

// NewEdge builds a static edge.
func NewEdge(from, to string) Edge {
	return Edge{From: from, To: to}
}

// ConditionalEdge routes from a single node to exactly one target, chosen
// by evaluating Router on the freshly-merged state.
//
// If PathMap is non-nil, the router's returned key is looked up in it; a
// key absent from PathMap falls through to the key itself (ground truth:
// ayas-graph's edge.rs — a deliberate fallback, not an error). If PathMap
// is nil, the router's return value is used directly as the target.
type ConditionalEdge struct {
	From    string
	Router  Predicate
	PathMap map[string]string
}

// NewConditionalEdge builds a conditional edge. pathMap may be nil.
func NewConditionalEdge(from string, router Predicate, pathMap map[string]string) ConditionalEdge {
	return ConditionalEdge{From: from, Router: router, PathMap: pathMap}
}

// Resolve computes the single target node name for the given state.
func (c ConditionalEdge) Resolve(state State) string {
	key := c.Router(state)
	if c.PathMap == nil {
		return key
	}
	if target, ok := c.PathMap[key]; ok {
		return target
	}
	return key
}

// ConditionalFanOutEdge routes from a single node to a set of targets.
// Unlike ConditionalEdge, a key absent from TargetMap is silently dropped
// rather than falling back to itself (ground truth:
// fan_out_edge_unknown_keys_ignored in ayas-graph's edge.rs test suite).
type ConditionalFanOutEdge struct {
	From      string
	Router    FanOutPredicate
	TargetMap map[string]string
}

// NewConditionalFanOutEdge builds a fan-out conditional edge. targetMap is
// mandatory (spec §4.3): there is no fallback-to-key-itself behavior here.
func NewConditionalFanOutEdge(from string, router FanOutPredicate, targetMap map[string]string) ConditionalFanOutEdge {
	return ConditionalFanOutEdge{From: from, Router: router, TargetMap: targetMap}
}

// Resolve computes the target node names for the given state, dropping any
// routing key absent from TargetMap.
func (c ConditionalFanOutEdge) Resolve(state State) []string {
	keys := c.Router(state)
	targets := make([]string, 0, len(keys))
	for _, k := range keys {
		if t, ok := c.TargetMap[k]; ok {
			targets = append(targets, t)
		}
	}
	return targets
}
