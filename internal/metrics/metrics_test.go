package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kireeti123/skyarclog/internal/dispatch"
)

func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewCollector("test", reg), reg
}

func TestObserveBatchCountsTasks(t *testing.T) {
	c, _ := newTestCollector(t)
	c.ObserveBatch(10*time.Millisecond, 3)
	c.ObserveBatch(20*time.Millisecond, 2)
	if got := testutil.ToFloat64(c.tasksProcessed); got != 5 {
		t.Fatalf("tasks_processed_total = %v, want 5", got)
	}
}

func TestObserveDropByReason(t *testing.T) {
	c, _ := newTestCollector(t)
	c.ObserveDrop(dispatch.DropBufferFull)
	c.ObserveDrop(dispatch.DropBufferFull)
	c.ObserveDrop(dispatch.DropBreakerOpen)
	full := testutil.ToFloat64(c.tasksDropped.WithLabelValues(string(dispatch.DropBufferFull)))
	open := testutil.ToFloat64(c.tasksDropped.WithLabelValues(string(dispatch.DropBreakerOpen)))
	if full != 2 || open != 1 {
		t.Fatalf("drops = (%v, %v), want (2, 1)", full, open)
	}
}

func TestGauges(t *testing.T) {
	c, _ := newTestCollector(t)
	c.ObservePoolSize(6)
	c.SetPendingLogs(42)
	if got := testutil.ToFloat64(c.poolSize); got != 6 {
		t.Fatalf("worker_pool_size = %v, want 6", got)
	}
	if got := testutil.ToFloat64(c.pendingLogs); got != 42 {
		t.Fatalf("pending_logs = %v, want 42", got)
	}
}

func TestUpdateWorkerStats(t *testing.T) {
	c, _ := newTestCollector(t)
	c.UpdateWorkerStats(dispatch.Stats{Active: 3, BreakerOpen: true})
	if got := testutil.ToFloat64(c.activeTasks); got != 3 {
		t.Fatalf("worker_active_tasks = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.breakerOpen); got != 1 {
		t.Fatalf("breaker_open = %v, want 1", got)
	}
	c.UpdateWorkerStats(dispatch.Stats{})
	if got := testutil.ToFloat64(c.breakerOpen); got != 0 {
		t.Fatalf("breaker_open = %v, want 0 after close", got)
	}
}

func TestSealAndStoreCounters(t *testing.T) {
	c, _ := newTestCollector(t)
	c.ObserveSeal(5 * time.Millisecond)
	c.ObserveCommit(time.Millisecond, 128)
	c.ObserveRead(time.Millisecond, 64)
	if got := testutil.ToFloat64(c.blocksSealed); got != 1 {
		t.Fatalf("blocks_sealed_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.storeCommits); got != 1 {
		t.Fatalf("store_commits_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.storeReads); got != 1 {
		t.Fatalf("store_reads_total = %v, want 1", got)
	}
}

func TestCollectorRegistersUnderNamespace(t *testing.T) {
	c, reg := newTestCollector(t)
	c.ObserveTaskError()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "test_task_errors_total" {
			found = true
		}
	}
	if !found {
		t.Fatal("test_task_errors_total not registered")
	}
}

// Compile-time checks that the collector satisfies the hook surfaces.
var _ dispatch.MetricsHook = (*Collector)(nil)
