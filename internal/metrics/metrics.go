// Package metrics registers Prometheus collectors for the dispatch engine,
// the chain sealer, and the storage layer. The Collector satisfies the hook
// interfaces those packages expose, so wiring is a single Options field.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kireeti123/skyarclog/internal/dispatch"
)

// Collector holds every metric the framework exports. Construct one per
// registry; registering the same namespace twice panics, as Prometheus
// collectors do.
type Collector struct {
	tasksProcessed prometheus.Counter
	tasksDropped   *prometheus.CounterVec
	taskErrors     prometheus.Counter
	batchSize      prometheus.Histogram
	batchDuration  prometheus.Histogram
	poolSize       prometheus.Gauge
	activeTasks    prometheus.Gauge
	breakerOpen    prometheus.Gauge

	blocksSealed prometheus.Counter
	sealDuration prometheus.Histogram
	pendingLogs  prometheus.Gauge

	storeCommits       prometheus.Counter
	storeCommitSeconds prometheus.Histogram
	storeReads         prometheus.Counter
}

// NewCollector builds and registers the collectors on reg. A nil reg uses
// the process-wide default registry.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if namespace == "" {
		namespace = "skyarclog"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		tasksProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_processed_total",
			Help:      "Total number of tasks executed by the dispatch pool.",
		}),
		tasksDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_dropped_total",
			Help:      "Total number of tasks shed at enqueue time, by reason.",
		}, []string{"reason"}),
		taskErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_errors_total",
			Help:      "Total number of task executions that panicked or failed.",
		}),
		batchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Distribution of flushed batch sizes.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		batchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall-clock time spent executing a batch.",
			Buckets:   prometheus.DefBuckets,
		}),
		poolSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "worker_pool_size",
			Help:      "Current number of executor goroutines.",
		}),
		activeTasks: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "worker_active_tasks",
			Help:      "Tasks currently executing on the pool.",
		}),
		breakerOpen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "breaker_open",
			Help:      "1 while the enqueue circuit breaker is open.",
		}),
		blocksSealed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_sealed_total",
			Help:      "Total number of chain blocks sealed.",
		}),
		sealDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "seal_duration_seconds",
			Help:      "Time spent building the Merkle tree and finding the proof.",
			Buckets:   prometheus.DefBuckets,
		}),
		pendingLogs: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_logs",
			Help:      "Entries buffered in the unsealed block.",
		}),
		storeCommits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_commits_total",
			Help:      "Total number of batches committed to the archive store.",
		}),
		storeCommitSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_commit_duration_seconds",
			Help:      "Archive store batch commit latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		storeReads: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_reads_total",
			Help:      "Total number of point reads from the archive store.",
		}),
	}
}

// ObserveBatch implements dispatch.MetricsHook.
func (c *Collector) ObserveBatch(elapsed time.Duration, tasks int) {
	c.tasksProcessed.Add(float64(tasks))
	c.batchSize.Observe(float64(tasks))
	c.batchDuration.Observe(elapsed.Seconds())
}

// ObserveDrop implements dispatch.MetricsHook.
func (c *Collector) ObserveDrop(reason dispatch.DropReason) {
	c.tasksDropped.WithLabelValues(string(reason)).Inc()
}

// ObserveTaskError implements dispatch.MetricsHook.
func (c *Collector) ObserveTaskError() { c.taskErrors.Inc() }

// ObservePoolSize implements dispatch.MetricsHook.
func (c *Collector) ObservePoolSize(size int) { c.poolSize.Set(float64(size)) }

// UpdateWorkerStats records the gauges a hook call cannot carry: in-flight
// task count and breaker state.
func (c *Collector) UpdateWorkerStats(s dispatch.Stats) {
	c.activeTasks.Set(float64(s.Active))
	if s.BreakerOpen {
		c.breakerOpen.Set(1)
	} else {
		c.breakerOpen.Set(0)
	}
}

// ObserveSeal records one sealed block and how long sealing took.
func (c *Collector) ObserveSeal(elapsed time.Duration) {
	c.blocksSealed.Inc()
	c.sealDuration.Observe(elapsed.Seconds())
}

// SetPendingLogs records the current unsealed entry count.
func (c *Collector) SetPendingLogs(n int) { c.pendingLogs.Set(float64(n)) }

// ObserveCommit implements the storage layer's MetricsHook.
func (c *Collector) ObserveCommit(elapsed time.Duration, bytes int) {
	c.storeCommits.Inc()
	c.storeCommitSeconds.Observe(elapsed.Seconds())
}

// ObserveRead implements the storage layer's MetricsHook.
func (c *Collector) ObserveRead(elapsed time.Duration, bytes int) {
	c.storeReads.Inc()
}

// Handler returns the scrape handler for the given gatherer. A nil gatherer
// serves the process-wide default registry.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
