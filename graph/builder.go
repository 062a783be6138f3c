package graph

// Start and End are the two reserved sentinel node names (spec §3). They
// participate only in adjacency, never in the node table.
const (
	Start = "__start__"
	End   = "__end__"
)

// GraphBuilder is the mutable assembly surface for channels, nodes, and
// edges. Call Compile to validate and freeze it into a CompiledGraph.
type GraphBuilder struct {
	channels map[string]ChannelSpec
	nodes    map[string]Node
	policies map[string]*NodePolicy

	staticEdges  []Edge
	condEdges    []ConditionalEdge
	fanOutEdges  []ConditionalFanOutEdge
	entryPoint   string
	finishPoints map[string]bool

	err error
}

// NewGraph creates an empty GraphBuilder. The resume-value channel is
// implicitly declared (spec §4.6) so every graph can read resume_value like
// any other channel without the caller declaring it by hand.
func NewGraph() *GraphBuilder {
	b := &GraphBuilder{
		channels:     make(map[string]ChannelSpec),
		nodes:        make(map[string]Node),
		policies:     make(map[string]*NodePolicy),
		finishPoints: make(map[string]bool),
	}
	b.channels[resumeValueChannel] = ChannelSpec{Name: resumeValueChannel, Kind: LastValue, Default: nil}
	return b
}

func (b *GraphBuilder) fail(format string, args ...any) *GraphBuilder {
	if b.err == nil {
		b.err = newValidationError(format, args...)
	}
	return b
}

// AddChannel declares a channel. Duplicate declarations fail at Compile.
func (b *GraphBuilder) AddChannel(name string, kind ChannelKind, defaultValue any) *GraphBuilder {
	if _, exists := b.channels[name]; exists {
		return b.fail("duplicate channel declaration: %q", name)
	}
	for _, reserved := range reservedKeys {
		if name == reserved {
			return b.fail("channel name %q collides with a reserved key", name)
		}
	}
	b.channels[name] = ChannelSpec{Name: name, Kind: kind, Default: defaultValue}
	return b
}

// AddLastValueChannel is sugar for AddChannel(name, LastValue, defaultValue).
func (b *GraphBuilder) AddLastValueChannel(name string, defaultValue any) *GraphBuilder {
	return b.AddChannel(name, LastValue, defaultValue)
}

// AddAppendChannel is sugar for AddChannel(name, Append, []any{}).
func (b *GraphBuilder) AddAppendChannel(name string) *GraphBuilder {
	return b.AddChannel(name, Append, []any{})
}

// AddNode registers a node under name. Using a sentinel name, or a name
// already registered, fails at Compile.
func (b *GraphBuilder) AddNode(name string, node Node, policy ...*NodePolicy) *GraphBuilder {
	if name == Start || name == End {
		return b.fail("node name %q collides with a reserved sentinel", name)
	}
	if _, exists := b.nodes[name]; exists {
		return b.fail("duplicate node id: %q", name)
	}
	b.nodes[name] = node
	if len(policy) > 0 {
		b.policies[name] = policy[0]
	}
	return b
}

// AddEdge adds a static edge. Either endpoint may be Start or End.
func (b *GraphBuilder) AddEdge(from, to string) *GraphBuilder {
	b.staticEdges = append(b.staticEdges, NewEdge(from, to))
	return b
}

// AddConditionalEdge adds a single-target conditional edge from a node.
func (b *GraphBuilder) AddConditionalEdge(from string, router Predicate, pathMap map[string]string) *GraphBuilder {
	b.condEdges = append(b.condEdges, NewConditionalEdge(from, router, pathMap))
	return b
}

// AddConditionalFanOutEdge adds a multi-target conditional edge from a node.
func (b *GraphBuilder) AddConditionalFanOutEdge(from string, router FanOutPredicate, targetMap map[string]string) *GraphBuilder {
	b.fanOutEdges = append(b.fanOutEdges, NewConditionalFanOutEdge(from, router, targetMap))
	return b
}

// SetEntryPoint is shorthand for AddEdge(Start, name).
func (b *GraphBuilder) SetEntryPoint(name string) *GraphBuilder {
	if b.entryPoint != "" {
		return b.fail("entry point already set to %q", b.entryPoint)
	}
	b.entryPoint = name
	return b.AddEdge(Start, name)
}

// AddFinishPoint is shorthand for AddEdge(name, End).
func (b *GraphBuilder) AddFinishPoint(name string) *GraphBuilder {
	b.finishPoints[name] = true
	return b.AddEdge(name, End)
}

// Compile validates the builder and returns an immutable CompiledGraph.
// Validation runs in the deterministic order from spec §4.3; the first
// failure is reported.
func (b *GraphBuilder) Compile(opts ...Option) (*CompiledGraph, error) {
	if b.err != nil {
		return nil, b.err
	}

	// 1. Schema version check: this in-process builder API has no document
	// form, so there is nothing to check here; a future declarative loader
	// would validate its schema version before calling into this builder.

	// 2. No node uses a reserved sentinel name — already enforced by AddNode.

	// 3. No duplicate node ids — already enforced by AddNode.

	// 4. Every edge endpoint names a declared node or a sentinel.
	isKnown := func(name string) bool {
		if name == Start || name == End {
			return true
		}
		_, ok := b.nodes[name]
		return ok
	}
	for _, e := range b.staticEdges {
		if !isKnown(e.From) {
			return nil, newValidationError("edge references unknown node %q", e.From)
		}
		if !isKnown(e.To) {
			return nil, newValidationError("edge references unknown node %q", e.To)
		}
	}
	for _, e := range b.condEdges {
		if !isKnown(e.From) {
			return nil, newValidationError("conditional edge references unknown node %q", e.From)
		}
	}
	for _, e := range b.fanOutEdges {
		if !isKnown(e.From) {
			return nil, newValidationError("fan-out edge references unknown node %q", e.From)
		}
	}

	// 5. Every conditional-edge target in its path map names a declared
	// node or the terminal sentinel.
	for _, e := range b.condEdges {
		for _, target := range e.PathMap {
			if !isKnown(target) {
				return nil, newValidationError("conditional edge path map targets unknown node %q", target)
			}
		}
	}
	for _, e := range b.fanOutEdges {
		for _, target := range e.TargetMap {
			if !isKnown(target) {
				return nil, newValidationError("fan-out edge target map targets unknown node %q", target)
			}
		}
	}

	// 6. A start edge exists (entry point is defined).
	if b.entryPoint == "" {
		return nil, newValidationError("no entry point defined")
	}

	// 7. No conditional edge has an empty condition list: applies only to
	// a declarative document form not exercised by this in-process API.

	adjacency := make(map[string][]Edge)
	for _, e := range b.staticEdges {
		adjacency[e.From] = append(adjacency[e.From], e)
	}
	condByFrom := make(map[string][]ConditionalEdge)
	for _, e := range b.condEdges {
		condByFrom[e.From] = append(condByFrom[e.From], e)
	}
	fanOutByFrom := make(map[string][]ConditionalFanOutEdge)
	for _, e := range b.fanOutEdges {
		fanOutByFrom[e.From] = append(fanOutByFrom[e.From], e)
	}

	if !reachesFinish(b.entryPoint, adjacency, condByFrom, fanOutByFrom, b.finishPoints) {
		return nil, newValidationError("no path from entry point %q to a finish point", b.entryPoint)
	}

	cfg := defaultEngineConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	nodes := make(map[string]Node, len(b.nodes))
	for k, v := range b.nodes {
		nodes[k] = v
	}
	channels := make(map[string]ChannelSpec, len(b.channels))
	for k, v := range b.channels {
		channels[k] = v
	}

	return &CompiledGraph{
		channels:     channels,
		nodes:        nodes,
		policies:     b.policies,
		staticEdges:  adjacency,
		condEdges:    condByFrom,
		fanOutEdges:  fanOutByFrom,
		entryPoint:   b.entryPoint,
		finishPoints: b.finishPoints,
		cfg:          cfg,
	}, nil
}

// reachesFinish does a simple reachability walk over every adjacency kind,
// treating conditional edges as reaching every one of their possible
// targets (a conservative over-approximation, since the actual target is
// only known at run time).
func reachesFinish(
	entry string,
	static map[string][]Edge,
	cond map[string][]ConditionalEdge,
	fanOut map[string][]ConditionalFanOutEdge,
	finish map[string]bool,
) bool {
	visited := map[string]bool{}
	var walk func(string) bool
	walk = func(node string) bool {
		if node == End {
			return true
		}
		if visited[node] {
			return false
		}
		visited[node] = true
		for _, e := range static[node] {
			if walk(e.To) {
				return true
			}
		}
		for _, e := range cond[node] {
			if e.PathMap == nil {
				return true // unresolvable statically; not a hard failure
			}
			for _, target := range e.PathMap {
				if walk(target) {
					return true
				}
			}
		}
		for _, e := range fanOut[node] {
			for _, target := range e.TargetMap {
				if walk(target) {
					return true
				}
			}
		}
		if finish[node] {
			return true
		}
		return false
	}
	return walk(entry)
}
