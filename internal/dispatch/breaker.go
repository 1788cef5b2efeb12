package dispatch

import (
	"sync"
	"time"
)

// CircuitBreaker tracks consecutive enqueue capacity failures and opens to
// shed load. There is no half-open probe: once the reset timeout elapses the
// breaker closes unconditionally, regardless of whether the underlying
// pressure recovered. The failure counter is not cleared on close, so a
// single further capacity failure reopens it immediately.
type CircuitBreaker struct {
	mu           sync.Mutex
	threshold    int
	resetTimeout time.Duration
	failures     int
	lastFailure  time.Time
	open         bool
}

// NewCircuitBreaker creates a breaker opening after threshold consecutive
// failures and closing resetTimeout after the last failure.
func NewCircuitBreaker(threshold int, resetTimeout time.Duration) *CircuitBreaker {
	if threshold < 1 {
		threshold = 1
	}
	return &CircuitBreaker{threshold: threshold, resetTimeout: resetTimeout}
}

// Allow reports whether work may be offered. While open it closes once the
// reset timeout has elapsed since the last recorded failure.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if !cb.open {
		return true
	}
	if time.Since(cb.lastFailure) > cb.resetTimeout {
		cb.open = false
		return true
	}
	return false
}

// RecordFailure counts a capacity failure and opens the breaker when the
// threshold is reached.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures++
	cb.lastFailure = time.Now()
	if cb.failures >= cb.threshold {
		cb.open = true
	}
}

// State returns the open flag and the cumulative failure count.
func (cb *CircuitBreaker) State() (open bool, failures int) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.open, cb.failures
}
