package graph

import (
	"container/heap"
	"context"
	"sync"
	"sync/atomic"
)

// WorkItem represents a schedulable unit of work in the execution frontier:
// one node, plus the payload overlay (if any) a Send directive attached to
// it, plus the sequence number recording its position in frontier-insertion
// order — the sole authoritative tiebreak for deterministic channel merging
// (spec §5), independent of goroutine completion order.
type WorkItem struct {
	NodeID string

	// Arg overlays the step's materialized state when non-nil, the way a
	// Send directive's per-target payload does (spec §4.4 step 3).
	Arg State

	// Seq is this item's position in frontier-insertion order.
	Seq int
}

// workHeap implements heap.Interface, ordering by Seq so Dequeue always
// yields items in frontier-insertion order regardless of enqueue timing.
type workHeap []WorkItem

func (h workHeap) Len() int            { return len(h) }
func (h workHeap) Less(i, j int) bool  { return h[i].Seq < h[j].Seq }
func (h workHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *workHeap) Push(x interface{}) { *h = append(*h, x.(WorkItem)) }
func (h *workHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[0 : n-1]
	return item
}

// Frontier manages the pending work queue for one super-step's concurrent
// dispatch, combining a priority queue (ordered by Seq) with a buffered
// channel for bounded capacity and backpressure.
//
// When the channel is full, Enqueue blocks until capacity frees up or the
// context is cancelled — this is the scheduler's sole flow-control
// mechanism. Streaming events do not pass through the Frontier; the
// executor hands them to the emitter directly.
type Frontier struct {
	heap     workHeap
	queue    chan WorkItem
	capacity int
	mu       sync.Mutex

	totalEnqueued      atomic.Int64
	totalDequeued       atomic.Int64
	backpressureEvents atomic.Int32
	peakQueueDepth     atomic.Int32
}

// NewFrontier creates a Frontier with the given bounded capacity.
func NewFrontier(capacity int) *Frontier {
	f := &Frontier{
		heap:     make(workHeap, 0),
		queue:    make(chan WorkItem, capacity),
		capacity: capacity,
	}
	heap.Init(&f.heap)
	return f
}

// Enqueue adds a work item to the frontier. Blocks under backpressure when
// the channel is at capacity.
func (f *Frontier) Enqueue(ctx context.Context, item WorkItem) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	f.mu.Lock()
	heap.Push(&f.heap, item)
	depth := int32(f.heap.Len())
	f.mu.Unlock()

	for {
		oldPeak := f.peakQueueDepth.Load()
		if depth <= oldPeak || f.peakQueueDepth.CompareAndSwap(oldPeak, depth) {
			break
		}
	}
	if depth >= int32(f.capacity) {
		f.backpressureEvents.Add(1)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case f.queue <- item:
		f.totalEnqueued.Add(1)
		return nil
	}
}

// Dequeue returns the work item with the smallest Seq, blocking until one is
// available or the context is cancelled.
func (f *Frontier) Dequeue(ctx context.Context) (WorkItem, error) {
	var zero WorkItem
	if ctx.Err() != nil {
		return zero, ctx.Err()
	}
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-f.queue:
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.heap.Len() == 0 {
			return zero, context.Canceled
		}
		item := heap.Pop(&f.heap).(WorkItem)
		f.totalDequeued.Add(1)
		return item, nil
	}
}

// Len returns the current number of queued work items.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.heap.Len()
}

// SchedulerMetrics is a point-in-time snapshot of frontier activity. The
// executor does not feed it into PrometheusMetrics.
type SchedulerMetrics struct {
	QueueDepth         int32
	QueueCapacity      int32
	TotalEnqueued      int64
	TotalDequeued      int64
	BackpressureEvents int32
	PeakQueueDepth     int32
}

// Metrics returns a snapshot of frontier activity.
func (f *Frontier) Metrics() SchedulerMetrics {
	f.mu.Lock()
	depth := int32(f.heap.Len())
	f.mu.Unlock()

	return SchedulerMetrics{
		QueueDepth:         depth,
		QueueCapacity:      int32(f.capacity),
		TotalEnqueued:      f.totalEnqueued.Load(),
		TotalDequeued:      f.totalDequeued.Load(),
		BackpressureEvents: f.backpressureEvents.Load(),
		PeakQueueDepth:     f.peakQueueDepth.Load(),
	}
}
