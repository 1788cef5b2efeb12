// Package dispatch implements SkyArcLog's asynchronous dispatch engine.
//
// # Overview
//
// A Worker decouples log emission from potentially slow sink adapters. Each
// Worker owns a fixed-capacity RingBuffer of pending tasks, a
// BatchAccumulator that groups dequeued tasks by count or elapsed time, a
// CircuitBreaker that sheds load after sustained capacity failures, and a
// resizable pool of executor goroutines bounded by [MinWorkers, MaxWorkers].
//
// API surface (internal)
//
//	w := dispatch.NewWorker(dispatch.Options{Capacity: 10000, BatchSize: 1000})
//	// Fire and forget; never blocks, never returns an error.
//	w.Enqueue(func() { sink.Emit(payload) })
//	// Blocking: drains the buffer and waits for in-flight batches.
//	w.Stop()
//	st := w.Stats()
//	_ = st.Dropped
//
// # Failure semantics
//
// Enqueue is best effort. When the breaker is open or the buffer is full the
// task is dropped and counted; only buffer-full drops feed the breaker. A task
// that panics is logged and discarded without retry and without affecting the
// breaker. Loss is observable exclusively through Stats counters and the
// optional MetricsHook.
//
// # Ordering
//
// Tasks are dequeued in insertion order and batches start in FIFO order, but
// execution within a batch is concurrent and therefore unordered. The control
// loop waits for a batch to complete before draining the next one.
package dispatch
