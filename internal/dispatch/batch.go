package dispatch

import (
	"sync"
	"time"
)

// BatchAccumulator groups tasks into batches bounded by count or elapsed
// time since the last flush. The flush signal is level-triggered: Add reports
// that the batch should be drained, it does not cap the batch itself.
type BatchAccumulator struct {
	mu        sync.Mutex
	batch     []Task
	maxSize   int
	maxWait   time.Duration
	lastFlush time.Time
}

// NewBatchAccumulator creates an accumulator flushing at maxSize tasks or
// maxWait since the previous flush, whichever comes first.
func NewBatchAccumulator(maxSize int, maxWait time.Duration) *BatchAccumulator {
	if maxSize < 1 {
		maxSize = 1
	}
	return &BatchAccumulator{
		maxSize:   maxSize,
		maxWait:   maxWait,
		lastFlush: time.Now(),
	}
}

// Add appends a task and reports whether the batch should be flushed.
func (a *BatchAccumulator) Add(t Task) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.batch = append(a.batch, t)
	return len(a.batch) >= a.maxSize || time.Since(a.lastFlush) >= a.maxWait
}

// Due reports whether a non-empty batch has waited past maxWait. The control
// loop uses it to flush stragglers while the buffer is idle.
func (a *BatchAccumulator) Due() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.batch) > 0 && time.Since(a.lastFlush) >= a.maxWait
}

// Drain returns the accumulated batch and resets the flush timer.
func (a *BatchAccumulator) Drain() []Task {
	a.mu.Lock()
	defer a.mu.Unlock()
	batch := a.batch
	a.batch = nil
	a.lastFlush = time.Now()
	return batch
}

// Len returns the number of accumulated tasks.
func (a *BatchAccumulator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.batch)
}
