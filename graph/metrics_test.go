package graph

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gatherMetric(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func TestPrometheusMetricsRecordStepLatency(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetrics(reg)

	pm.RecordStepLatency("run-1", "nodeA", 50*time.Millisecond, "success")

	f := gatherMetric(t, reg, "langgraph_step_latency_ms")
	if f == nil || len(f.GetMetric()) != 1 {
		t.Fatalf("expected one step_latency_ms sample, got %+v", f)
	}
	if got := f.GetMetric()[0].GetHistogram().GetSampleSum(); got != 50 {
		t.Errorf("sample sum = %v, want 50", got)
	}
}

func TestPrometheusMetricsIncrementCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetrics(reg)

	pm.IncrementRetries("run-1", "nodeA", "timeout")
	pm.IncrementMergeConflicts("run-1", "reducer_error")
	pm.IncrementBackpressure("run-1", "queue_full")
	pm.IncrementInterrupts("thread-1", "nodeA")
	pm.IncrementCheckpoints("thread-1", SourceLoop)

	for _, name := range []string{
		"langgraph_retries_total",
		"langgraph_merge_conflicts_total",
		"langgraph_backpressure_events_total",
		"langgraph_interrupts_total",
		"langgraph_checkpoints_total",
	} {
		f := gatherMetric(t, reg, name)
		if f == nil || len(f.GetMetric()) != 1 || f.GetMetric()[0].GetCounter().GetValue() != 1 {
			t.Errorf("expected %s to have one increment, got %+v", name, f)
		}
	}
}

func TestPrometheusMetricsGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetrics(reg)

	pm.UpdateQueueDepth(7)
	pm.UpdateInflightNodes(3)

	if f := gatherMetric(t, reg, "langgraph_queue_depth"); f == nil || f.GetMetric()[0].GetGauge().GetValue() != 7 {
		t.Errorf("expected queue_depth=7, got %+v", f)
	}
	if f := gatherMetric(t, reg, "langgraph_inflight_nodes"); f == nil || f.GetMetric()[0].GetGauge().GetValue() != 3 {
		t.Errorf("expected inflight_nodes=3, got %+v", f)
	}

	pm.Reset()
	if f := gatherMetric(t, reg, "langgraph_queue_depth"); f == nil || f.GetMetric()[0].GetGauge().GetValue() != 0 {
		t.Errorf("expected queue_depth reset to 0, got %+v", f)
	}
}

func TestPrometheusMetricsDisableSuppressesRecording(t *testing.T) {
	reg := prometheus.NewRegistry()
	pm := NewPrometheusMetrics(reg)

	pm.Disable()
	pm.IncrementRetries("run-1", "nodeA", "error")
	pm.UpdateQueueDepth(5)

	if f := gatherMetric(t, reg, "langgraph_retries_total"); f != nil && len(f.GetMetric()) != 0 {
		t.Errorf("expected no retries recorded while disabled, got %+v", f)
	}
	if f := gatherMetric(t, reg, "langgraph_queue_depth"); f != nil && f.GetMetric()[0].GetGauge().GetValue() != 0 {
		t.Errorf("expected queue_depth untouched while disabled, got %+v", f)
	}

	pm.Enable()
	pm.UpdateQueueDepth(5)
	if f := gatherMetric(t, reg, "langgraph_queue_depth"); f == nil || f.GetMetric()[0].GetGauge().GetValue() != 5 {
		t.Errorf("expected queue_depth=5 after Enable, got %+v", f)
	}
}
