package graph

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/stategraph-go/graph/emit"
)

// CompiledGraph is the immutable, runnable form of a GraphBuilder. It is
// safe to call Invoke and its siblings concurrently from multiple
// goroutines; every call gets its own channel table, frontier, and step
// counter (spec §5).
type CompiledGraph struct {
	channels map[string]ChannelSpec
	nodes    map[string]Node
	policies map[string]*NodePolicy

	staticEdges  map[string][]Edge
	condEdges    map[string][]ConditionalEdge
	fanOutEdges  map[string][]ConditionalFanOutEdge
	entryPoint   string
	finishPoints map[string]bool

	cfg engineConfig
}

// BreakpointConfig names nodes the executor should pause before and/or
// after, persisting a checkpoint instead of advancing further.
type BreakpointConfig struct {
	BreakBefore []string
	BreakAfter  []string
}

// InterruptResult is returned in place of a final State when a run pauses,
// either because a node requested a cooperative interrupt or because
// execution hit a configured breakpoint.
type InterruptResult struct {
	CheckpointID string
	Value        any
}

// RunResult is the outcome of a resumable or breakpoint-aware invocation:
// exactly one of Output and Interrupted is set.
type RunResult struct {
	Output      State
	Interrupted *InterruptResult
}

// frontierItem is one entry of the pending-work list between super-steps:
// a node name plus the Send payload (if any) overlaying its input view.
type frontierItem struct {
	NodeID string
	Arg    State
}

// itemKind classifies how a frontier item's output was resolved, so the
// next-frontier computation pass knows whether to consult edges or follow
// an explicit command/send directive instead.
type itemKind int

const (
	itemDelta itemKind = iota
	itemCommand
	itemSend
)

type processedItem struct {
	item    frontierItem
	kind    itemKind
	command commandDirective
	targets []SendTarget
}

// Invoke runs the graph to completion from input and returns the final
// state. It fails if the run pauses on an interrupt or breakpoint — use
// InvokeResumable or InvokeWithBreakpoints when the graph may do that.
func (g *CompiledGraph) Invoke(ctx context.Context, input State, config *RunnableConfig) (State, error) {
	result, err := g.run(ctx, input, config, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	if result.Interrupted != nil {
		return nil, newValidationError("graph paused on an interrupt; call InvokeResumable with a CheckpointStore instead")
	}
	return result.Output, nil
}

// InvokeResumable runs the graph, persisting a checkpoint after every
// super-step to store. If config names a ThreadID with an existing
// checkpoint, execution resumes from it instead of starting over from
// input. The returned RunResult's Interrupted field is set when a node
// requested a pause; resume by calling InvokeResumable again with the same
// ThreadID and a ResumeValue.
func (g *CompiledGraph) InvokeResumable(ctx context.Context, input State, config *RunnableConfig, store CheckpointStore) (*RunResult, error) {
	if store == nil {
		return nil, newValidationError("InvokeResumable requires a non-nil CheckpointStore")
	}
	return g.run(ctx, input, config, store, nil, nil)
}

// InvokeWithStreaming runs the graph to completion, emitting NodeStart,
// NodeEnd, GraphComplete, and Error events to sink as execution proceeds.
func (g *CompiledGraph) InvokeWithStreaming(ctx context.Context, input State, config *RunnableConfig, sink emit.Emitter) (State, error) {
	result, err := g.run(ctx, input, config, nil, sink, nil)
	if err != nil {
		return nil, err
	}
	if result.Interrupted != nil {
		return nil, newValidationError("graph paused on an interrupt; call InvokeResumable with a CheckpointStore instead")
	}
	return result.Output, nil
}

// InvokeWithBreakpoints runs the graph under store, pausing before/after the
// nodes named in bp the same way a node-requested interrupt would.
func (g *CompiledGraph) InvokeWithBreakpoints(ctx context.Context, input State, config *RunnableConfig, store CheckpointStore, bp BreakpointConfig) (*RunResult, error) {
	if store == nil {
		return nil, newValidationError("InvokeWithBreakpoints requires a non-nil CheckpointStore")
	}
	return g.run(ctx, input, config, store, nil, &bp)
}

func (g *CompiledGraph) run(
	ctx context.Context,
	input State,
	config *RunnableConfig,
	store CheckpointStore,
	sink emit.Emitter,
	bp *BreakpointConfig,
) (*RunResult, error) {
	if config == nil {
		config = NewRunnableConfig()
	}
	if g.cfg.runWallClockBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.runWallClockBudget)
		defer cancel()
	}

	table := newChannelTable(g.channels)
	step := 0
	frontier := []frontierItem{{NodeID: g.entryPoint}}

	if store != nil && config.ThreadID != "" {
		restored, restoredStep, err := g.restoreCheckpoint(ctx, store, config)
		if err != nil {
			return nil, err
		}
		if restored != nil {
			table.restore(restored.ChannelValues)
			if config.ResumeValue != nil {
				table.values[resumeValueChannel] = config.ResumeValue
			}
			step = restoredStep
			frontier = make([]frontierItem, len(restored.PendingNodes))
			for i, n := range restored.PendingNodes {
				frontier[i] = frontierItem{NodeID: n}
			}
		} else if badChannel, err := table.update(input); err != nil {
			return nil, newValidationError("input seeds channel %q: %v", badChannel, err)
		}
	} else if badChannel, err := table.update(input); err != nil {
		return nil, newValidationError("input seeds channel %q: %v", badChannel, err)
	}

	for {
		if len(frontier) == 0 {
			return nil, &GraphError{Kind: KindValidation, Message: "internal invariant violated: " + ErrFrontierEmpty.Error()}
		}
		if step >= config.RecursionLimit {
			return nil, newRecursionLimitError(config.RecursionLimit)
		}

		if bp != nil && anyNodeIn(frontier, bp.BreakBefore) {
			pausedOn := firstNodeIn(frontier, bp.BreakBefore)
			cp, err := g.persistCheckpoint(ctx, store, config, table, step, []string{pausedOn}, SourceBreakpoint, "")
			if err != nil {
				return nil, err
			}
			return &RunResult{Interrupted: &InterruptResult{CheckpointID: cp.ID}}, nil
		}

		outputs, errs := g.dispatchStep(ctx, frontier, table, config, sink, step)

		// Pass A: classify every item without mutating table, so that if any
		// item signals an interrupt, the concurrently produced outputs of
		// every other item in this step can be discarded entirely rather
		// than partially merged.
		type classified struct {
			item    frontierItem
			kind    directiveKind
			payload any
			idx     int
		}
		classifiedItems := make([]classified, len(frontier))
		var interruptIdx = -1
		for i, it := range frontier {
			if errs[i] != nil {
				if sink != nil {
					sink.Emit(emit.Event{ThreadID: config.ThreadID, Step: step, NodeID: it.NodeID, Kind: emit.KindError,
						Meta: map[string]interface{}{"error": errs[i].Error()}})
				}
				return nil, newNodeExecutionError(it.NodeID, errs[i])
			}

			kind, payload, err := classify(outputs[i])
			if err != nil {
				return nil, newNodeExecutionError(it.NodeID, err)
			}
			classifiedItems[i] = classified{item: it, kind: kind, payload: payload, idx: i}
			if kind == directiveInterrupt && interruptIdx == -1 {
				interruptIdx = i
			}
		}

		if interruptIdx != -1 {
			it := classifiedItems[interruptIdx].item
			payload := classifiedItems[interruptIdx].payload
			cp, err := g.persistCheckpoint(ctx, store, config, table, step, []string{it.NodeID}, SourceInterrupt, it.NodeID)
			if err != nil {
				return nil, err
			}
			if sink != nil {
				sink.Emit(emit.Event{ThreadID: config.ThreadID, Step: step, NodeID: it.NodeID, Kind: emit.KindInterrupted,
					Meta: map[string]interface{}{"value": payload, "checkpoint_id": cp.ID}})
			}
			if g.cfg.metrics != nil {
				g.cfg.metrics.IncrementInterrupts(config.ThreadID, it.NodeID)
			}
			return &RunResult{Interrupted: &InterruptResult{CheckpointID: cp.ID, Value: payload}}, nil
		}

		// Pass B: no item interrupted, so apply every item's channel writes.
		processed := make([]processedItem, 0, len(frontier))
		for _, c := range classifiedItems {
			it, kind, payload := c.item, c.kind, c.payload

			switch kind {
			case directiveCommand:
				cmd := payload.(commandDirective)
				if badChannel, err := table.update(cmd.Update); err != nil {
					if g.cfg.metrics != nil {
						g.cfg.metrics.IncrementMergeConflicts(config.ThreadID, "reducer_error")
					}
					return nil, newNodeExecutionError(it.NodeID, errors.New("command update writes channel "+badChannel+": "+err.Error()))
				}
				processed = append(processed, processedItem{item: it, kind: itemCommand, command: cmd})
			case directiveSend:
				processed = append(processed, processedItem{item: it, kind: itemSend, targets: payload.([]SendTarget)})
			default:
				if badChannel, err := table.update(outputs[c.idx]); err != nil {
					if g.cfg.metrics != nil {
						g.cfg.metrics.IncrementMergeConflicts(config.ThreadID, "reducer_error")
					}
					return nil, newNodeExecutionError(it.NodeID, errors.New("output writes channel "+badChannel+": "+err.Error()))
				}
				processed = append(processed, processedItem{item: it, kind: itemDelta})
			}
		}

		if sink != nil {
			finalView := table.materialize()
			for _, p := range processed {
				sink.Emit(emit.Event{ThreadID: config.ThreadID, Step: step, NodeID: p.item.NodeID, Kind: emit.KindNodeEnd,
					Meta: map[string]interface{}{"state": finalView}})
			}
		}

		next, reachedEnd, err := g.computeNextFrontier(processed, table.materialize())
		if err != nil {
			return nil, err
		}

		if bp != nil && anyNodeIn(frontier, bp.BreakAfter) {
			cp, err := g.persistCheckpoint(ctx, store, config, table, step+1, frontierNodeNames(next), SourceBreakpoint, "")
			if err != nil {
				return nil, err
			}
			return &RunResult{Interrupted: &InterruptResult{CheckpointID: cp.ID}}, nil
		}

		step++
		if len(next) == 0 {
			if !reachedEnd {
				return nil, &GraphError{Kind: KindValidation, Message: "internal invariant violated: " + ErrFrontierEmpty.Error()}
			}
			final := table.materialize()
			if store != nil {
				if _, err := g.persistCheckpoint(ctx, store, config, table, step, nil, SourceLoop, ""); err != nil {
					return nil, err
				}
			}
			if sink != nil {
				sink.Emit(emit.Event{ThreadID: config.ThreadID, Step: step, Kind: emit.KindGraphComplete,
					Meta: map[string]interface{}{"output": final}})
			}
			return &RunResult{Output: final}, nil
		}

		if store != nil {
			if _, err := g.persistCheckpoint(ctx, store, config, table, step, frontierNodeNames(next), SourceLoop, ""); err != nil {
				return nil, err
			}
		}
		frontier = next
	}
}

// restoreCheckpoint loads the checkpoint named by config, if any. It
// returns (nil, 0, nil) when config asks for GetLatest and the thread is
// new — callers then seed the table from input instead.
func (g *CompiledGraph) restoreCheckpoint(ctx context.Context, store CheckpointStore, config *RunnableConfig) (*Checkpoint, int, error) {
	var cp Checkpoint
	var err error
	if config.CheckpointID != "" {
		cp, err = store.Get(ctx, config.ThreadID, config.CheckpointID)
		if errors.Is(err, ErrCheckpointNotFound) {
			return nil, 0, newCheckpointNotFoundError(config.ThreadID, config.CheckpointID)
		}
	} else {
		cp, err = store.GetLatest(ctx, config.ThreadID)
		if errors.Is(err, ErrCheckpointNotFound) {
			return nil, 0, nil
		}
	}
	if err != nil {
		return nil, 0, newStoreError(err)
	}
	return &cp, cp.Step, nil
}

func (g *CompiledGraph) persistCheckpoint(
	ctx context.Context,
	store CheckpointStore,
	config *RunnableConfig,
	table *channelTable,
	step int,
	pendingNodes []string,
	source Source,
	nodeName string,
) (Checkpoint, error) {
	snap, err := table.snapshot()
	if err != nil {
		return Checkpoint{}, newStoreError(err)
	}
	cp := Checkpoint{
		ID:           uuid.NewString(),
		ThreadID:     config.ThreadID,
		Step:         step,
		ChannelValues: snap,
		PendingNodes: pendingNodes,
		Metadata:     Metadata{Source: source, Step: step, NodeName: nodeName},
		CreatedAt:    time.Now(),
	}
	if store == nil {
		return cp, nil
	}
	if config.ThreadID == "" {
		return cp, nil
	}
	if err := store.Put(ctx, cp); err != nil {
		return Checkpoint{}, newStoreError(err)
	}
	if g.cfg.metrics != nil {
		g.cfg.metrics.IncrementCheckpoints(config.ThreadID, source)
	}
	return cp, nil
}

// computeNextFrontier resolves what runs after processed, using edges for
// plain-delta nodes and the explicit goto/targets for command/send nodes.
// finalState is the fully-merged state after every item in this step has
// applied its delta, per ConditionalEdge's freshly-merged-state contract.
func (g *CompiledGraph) computeNextFrontier(processed []processedItem, finalState State) ([]frontierItem, bool, error) {
	var next []frontierItem
	reachedEnd := false

	push := func(name string, arg State) bool {
		if name == End {
			reachedEnd = true
			return true
		}
		if name != Start {
			if _, ok := g.nodes[name]; !ok {
				return false
			}
		}
		next = append(next, frontierItem{NodeID: name, Arg: arg})
		return true
	}

	for _, p := range processed {
		switch p.kind {
		case itemCommand:
			if !push(p.command.Goto, nil) {
				return nil, false, &GraphError{Kind: KindRouter, Message: "command directive targets unknown node", NodeID: p.item.NodeID}
			}
		case itemSend:
			for _, t := range p.targets {
				if !push(t.Node, t.Arg) {
					return nil, false, &GraphError{Kind: KindRouter, Message: "send directive targets unknown node", NodeID: p.item.NodeID}
				}
			}
		default:
			for _, e := range g.staticEdges[p.item.NodeID] {
				if !push(e.To, nil) {
					return nil, false, newRouterError(p.item.NodeID, e.To)
				}
			}
			for _, e := range g.condEdges[p.item.NodeID] {
				target := e.Resolve(finalState)
				if !push(target, nil) {
					return nil, false, newRouterError(p.item.NodeID, target)
				}
			}
			for _, e := range g.fanOutEdges[p.item.NodeID] {
				for _, target := range e.Resolve(finalState) {
					if !push(target, nil) {
						return nil, false, newRouterError(p.item.NodeID, target)
					}
				}
			}
		}
	}
	return next, reachedEnd, nil
}

// dispatchStep invokes every frontier item concurrently, bounded by
// cfg.maxConcurrentNodes, and returns per-item outputs/errors indexed by
// the item's position in frontier — the sole ordering the rest of the step
// relies on (spec §5).
func (g *CompiledGraph) dispatchStep(
	ctx context.Context,
	frontier []frontierItem,
	table *channelTable,
	config *RunnableConfig,
	sink emit.Emitter,
	step int,
) ([]State, []error) {
	n := len(frontier)
	outputs := make([]State, n)
	errs := make([]error, n)

	work := NewFrontier(g.cfg.queueDepth)
	enqCtx := ctx
	if g.cfg.backpressureTimeout > 0 {
		var cancel context.CancelFunc
		enqCtx, cancel = context.WithTimeout(ctx, g.cfg.backpressureTimeout)
		defer cancel()
	}
	for i, it := range frontier {
		if err := work.Enqueue(enqCtx, WorkItem{NodeID: it.NodeID, Arg: it.Arg, Seq: i}); err != nil {
			errs[i] = err
			if g.cfg.metrics != nil {
				g.cfg.metrics.IncrementBackpressure(config.ThreadID, "queue_full")
			}
		}
	}

	if g.cfg.metrics != nil {
		g.cfg.metrics.UpdateQueueDepth(n)
	}

	base := table.materialize()
	concurrency := g.cfg.maxConcurrentNodes
	if concurrency < 1 || concurrency > n {
		concurrency = n
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var inflight int32
	for i := 0; i < n; i++ {
		item, err := work.Dequeue(ctx)
		if err != nil {
			continue
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(wi WorkItem) {
			defer wg.Done()
			defer func() { <-sem }()

			view := base.Clone()
			if wi.Arg != nil {
				view = base.Overlay(wi.Arg)
			}
			if sink != nil {
				sink.Emit(emit.Event{ThreadID: config.ThreadID, Step: step, NodeID: wi.NodeID, Kind: emit.KindNodeStart})
			}
			if g.cfg.metrics != nil {
				cur := atomic.AddInt32(&inflight, 1)
				g.cfg.metrics.UpdateInflightNodes(int(cur))
			}
			start := time.Now()
			out, err := runNodeWithPolicy(ctx, g.nodes[wi.NodeID], wi.NodeID, view, g.policies[wi.NodeID], g.cfg.defaultNodeTimeout, config, g.cfg.metrics, config.ThreadID)
			if g.cfg.metrics != nil {
				status := "success"
				if err != nil {
					status = "error"
				}
				g.cfg.metrics.RecordStepLatency(config.ThreadID, wi.NodeID, time.Since(start), status)
				cur := atomic.AddInt32(&inflight, -1)
				g.cfg.metrics.UpdateInflightNodes(int(cur))
			}
			outputs[wi.Seq] = out
			errs[wi.Seq] = err
		}(item)
	}
	wg.Wait()
	return outputs, errs
}

// runNodeWithPolicy executes one node under its timeout, retrying per its
// RetryPolicy when the error is retryable. metrics/runID may be nil/empty
// when no PrometheusMetrics collector is attached to the compiled graph.
func runNodeWithPolicy(ctx context.Context, node Node, nodeID string, state State, policy *NodePolicy, defaultTimeout time.Duration, config *RunnableConfig, metrics *PrometheusMetrics, runID string) (State, error) {
	out, err := executeNodeWithTimeout(ctx, node, nodeID, state, policy, defaultTimeout, config)
	if err == nil || policy == nil || policy.RetryPolicy == nil || policy.RetryPolicy.Retryable == nil {
		return out, err
	}
	rp := policy.RetryPolicy
	if !rp.Retryable(err) {
		return out, err
	}
	for attempt := 1; attempt < rp.MaxAttempts; attempt++ {
		if metrics != nil {
			metrics.IncrementRetries(runID, nodeID, "error")
		}
		delay := computeBackoff(attempt-1, rp.BaseDelay, rp.MaxDelay, nil)
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		case <-time.After(delay):
		}
		out, err = executeNodeWithTimeout(ctx, node, nodeID, state, policy, defaultTimeout, config)
		if err == nil || !rp.Retryable(err) {
			return out, err
		}
	}
	return out, &GraphError{Kind: KindNodeExecution, Message: "max retry attempts exceeded", NodeID: nodeID, Cause: ErrMaxAttemptsExceeded}
}

func frontierNodeNames(items []frontierItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.NodeID
	}
	return out
}

func anyNodeIn(items []frontierItem, names []string) bool {
	if len(names) == 0 {
		return false
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	for _, it := range items {
		if set[it.NodeID] {
			return true
		}
	}
	return false
}

// firstNodeIn returns the NodeID of the first frontier item that appears in
// names, preserving frontier order — used to identify the single node a
// break-before pause should report as pending when several names match.
func firstNodeIn(items []frontierItem, names []string) string {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	for _, it := range items {
		if set[it.NodeID] {
			return it.NodeID
		}
	}
	return ""
}
