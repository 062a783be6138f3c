package graph

import "context"

// SubGraphNode embeds inner as a node of an outer graph. The outer state is
// translated through inputMapping before inner.Invoke runs and the inner
// result is translated back through outputMapping afterward; a nil or
// empty mapping is a passthrough (outer and inner share key names), per
// ayas-graph's subgraph.rs.
//
// inputMapping and outputMapping are outer-key -> inner-key and
// inner-key -> outer-key respectively.
func SubGraphNode(name string, inner *CompiledGraph, inputMapping, outputMapping map[string]string) Node {
	return func(ctx context.Context, state State, config *RunnableConfig) (State, error) {
		innerInput := translate(state, inputMapping)

		innerConfig := config
		if config != nil {
			innerConfig = config.forSubGraph()
		} else {
			innerConfig = NewRunnableConfig().forSubGraph()
		}

		innerOutput, err := inner.Invoke(ctx, innerInput, innerConfig)
		if err != nil {
			return nil, &NodeError{Message: "sub-graph invocation failed", NodeID: name, Cause: err}
		}

		return translate(innerOutput, outputMapping), nil
	}
}

// translate renames state's keys according to mapping. A key absent from
// mapping passes through under its original name.
func translate(state State, mapping map[string]string) State {
	if len(mapping) == 0 {
		return state.Clone()
	}
	out := make(State, len(state))
	for k, v := range state {
		if renamed, ok := mapping[k]; ok {
			out[renamed] = v
		} else {
			out[k] = v
		}
	}
	return out
}
