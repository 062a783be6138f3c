// Package graph provides the core state-graph execution engine.
package graph

import "time"

// Option is a functional option for configuring a CompiledGraph's executor.
//
// Example:
//
//	compiled, err := builder.Compile(
//	    graph.WithMaxConcurrent(16),
//	    graph.WithQueueDepth(2048),
//	    graph.WithDefaultNodeTimeout(10*time.Second),
//	)
type Option func(*engineConfig) error

// engineConfig collects options before they are applied to a CompiledGraph's
// executor.
type engineConfig struct {
	maxConcurrentNodes  int
	queueDepth          int
	backpressureTimeout time.Duration
	defaultNodeTimeout  time.Duration
	runWallClockBudget  time.Duration
	metrics             *PrometheusMetrics
	costTracker         *CostTracker
}

func defaultEngineConfig() engineConfig {
	return engineConfig{
		maxConcurrentNodes:  8,
		queueDepth:          1024,
		backpressureTimeout: 30 * time.Second,
		defaultNodeTimeout:  30 * time.Second,
		runWallClockBudget:  10 * time.Minute,
	}
}

// WithMaxConcurrent sets the maximum number of frontier nodes dispatched
// concurrently within a single super-step.
//
// Default: 8.
func WithMaxConcurrent(n int) Option {
	return func(cfg *engineConfig) error {
		cfg.maxConcurrentNodes = n
		return nil
	}
}

// WithQueueDepth sets the capacity of the per-step frontier queue.
//
// Default: 1024.
func WithQueueDepth(n int) Option {
	return func(cfg *engineConfig) error {
		cfg.queueDepth = n
		return nil
	}
}

// WithBackpressureTimeout sets the maximum time Enqueue waits for frontier
// queue capacity before the run fails.
//
// Default: 30s.
func WithBackpressureTimeout(d time.Duration) Option {
	return func(cfg *engineConfig) error {
		cfg.backpressureTimeout = d
		return nil
	}
}

// WithDefaultNodeTimeout sets the execution timeout applied to nodes without
// an explicit NodePolicy.Timeout.
//
// Default: 30s. Timeouts are a caller-side concern per spec §4.4 ("callers
// may wrap invoke externally"); this option is kept because the teacher's
// per-node timeout wrapper composes cleanly with that and callers who don't
// want it can set it to 0.
func WithDefaultNodeTimeout(d time.Duration) Option {
	return func(cfg *engineConfig) error {
		cfg.defaultNodeTimeout = d
		return nil
	}
}

// WithRunWallClockBudget sets the maximum total wall-clock time for one
// Invoke/InvokeResumable/InvokeWithStreaming/InvokeWithBreakpoints call.
//
// Default: 10m. Set to 0 to disable.
func WithRunWallClockBudget(d time.Duration) Option {
	return func(cfg *engineConfig) error {
		cfg.runWallClockBudget = d
		return nil
	}
}

// WithMetrics attaches a PrometheusMetrics collector to the executor.
func WithMetrics(metrics *PrometheusMetrics) Option {
	return func(cfg *engineConfig) error {
		cfg.metrics = metrics
		return nil
	}
}

// WithCostTracker attaches an LLM cost tracker to the engine configuration.
// The executor neither reads nor updates it.
func WithCostTracker(tracker *CostTracker) Option {
	return func(cfg *engineConfig) error {
		cfg.costTracker = tracker
		return nil
	}
}
