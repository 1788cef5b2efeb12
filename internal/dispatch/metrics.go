package dispatch

import "time"

// DropReason distinguishes the two paths on which Enqueue sheds a task.
type DropReason string

const (
	DropBreakerOpen DropReason = "breaker_open"
	DropBufferFull  DropReason = "buffer_full"
)

// MetricsHook is a minimal hook surface for dispatch observations.
type MetricsHook interface {
	ObserveBatch(elapsed time.Duration, tasks int)
	ObserveDrop(reason DropReason)
	ObserveTaskError()
	ObservePoolSize(size int)
}

// NoopMetrics is used when no metrics hook is provided.
type NoopMetrics struct{}

func (NoopMetrics) ObserveBatch(time.Duration, int) {}
func (NoopMetrics) ObserveDrop(DropReason)          {}
func (NoopMetrics) ObserveTaskError()               {}
func (NoopMetrics) ObservePoolSize(int)             {}
