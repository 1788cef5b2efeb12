package dispatch

import (
	"testing"
	"time"
)

func TestBreakerOpensAtThreshold(t *testing.T) {
	cb := NewCircuitBreaker(3, time.Hour)
	for i := 0; i < 2; i++ {
		cb.RecordFailure()
		if open, _ := cb.State(); open {
			t.Fatalf("breaker open after %d failures", i+1)
		}
	}
	cb.RecordFailure()
	if open, failures := cb.State(); !open || failures != 3 {
		t.Fatalf("breaker state = (%v, %d), want open with 3 failures", open, failures)
	}
	if cb.Allow() {
		t.Fatalf("open breaker allowed work")
	}
}

func TestBreakerClosesAfterTimeout(t *testing.T) {
	cb := NewCircuitBreaker(1, 30*time.Millisecond)
	cb.RecordFailure()
	if cb.Allow() {
		t.Fatalf("breaker did not open")
	}
	time.Sleep(60 * time.Millisecond)
	if !cb.Allow() {
		t.Fatalf("breaker did not close after reset timeout")
	}
	if open, _ := cb.State(); open {
		t.Fatalf("breaker still open after Allow closed it")
	}
}

// The failure counter survives a timeout close, so one more capacity
// failure reopens the breaker immediately.
func TestBreakerReopensOnNextFailure(t *testing.T) {
	cb := NewCircuitBreaker(2, 10*time.Millisecond)
	cb.RecordFailure()
	cb.RecordFailure()
	time.Sleep(30 * time.Millisecond)
	if !cb.Allow() {
		t.Fatalf("breaker did not close")
	}
	cb.RecordFailure()
	if open, _ := cb.State(); !open {
		t.Fatalf("breaker did not reopen on next failure")
	}
}
