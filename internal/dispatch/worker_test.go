package dispatch

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	logpkg "github.com/kireeti123/skyarclog/pkg/log"
)

func quietLogger() logpkg.Logger {
	return logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
}

// recordingMetrics captures hook invocations for assertions.
type recordingMetrics struct {
	mu      sync.Mutex
	batches []int
	drops   map[DropReason]int
	errors  int
	pools   []int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{drops: map[DropReason]int{}}
}

func (m *recordingMetrics) ObserveBatch(_ time.Duration, tasks int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, tasks)
}

func (m *recordingMetrics) ObserveDrop(reason DropReason) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drops[reason]++
}

func (m *recordingMetrics) ObserveTaskError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors++
}

func (m *recordingMetrics) ObservePoolSize(size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pools = append(m.pools, size)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func TestDrainOnStop(t *testing.T) {
	w := NewWorker(Options{Capacity: 64, BatchSize: 8, MaxWait: time.Hour, Logger: quietLogger()})
	var counter atomic.Int64
	const k = 20
	for i := 0; i < k; i++ {
		w.Enqueue(func() { counter.Add(1) })
	}
	w.Stop()
	if got := counter.Load(); got != k {
		t.Fatalf("executed %d tasks before Stop returned, want %d", got, k)
	}
	if st := w.Stats(); st.Processed != k || st.Dropped != 0 {
		t.Fatalf("stats = %+v, want %d processed and no drops", st, k)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	w := NewWorker(Options{Logger: quietLogger()})
	w.Enqueue(func() {})
	w.Stop()
	w.Stop()
}

func TestSingleBatchOfFive(t *testing.T) {
	metrics := newRecordingMetrics()
	w := NewWorker(Options{
		Capacity: 64, BatchSize: 5, MaxWait: time.Hour,
		Logger: quietLogger(), Metrics: metrics,
	})
	defer w.Stop()
	var counter atomic.Int64
	for i := 0; i < 5; i++ {
		w.Enqueue(func() { counter.Add(1) })
	}
	waitFor(t, 2*time.Second, func() bool { return counter.Load() == 5 })

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	if len(metrics.batches) != 1 || metrics.batches[0] != 5 {
		t.Fatalf("batches = %v, want a single flush of 5", metrics.batches)
	}
}

func TestTimedFlushOfStraggler(t *testing.T) {
	metrics := newRecordingMetrics()
	w := NewWorker(Options{
		Capacity: 64, BatchSize: 100, MaxWait: 50 * time.Millisecond,
		Logger: quietLogger(), Metrics: metrics,
	})
	defer w.Stop()
	var counter atomic.Int64
	w.Enqueue(func() { counter.Add(1) })
	waitFor(t, 2*time.Second, func() bool { return counter.Load() == 1 })

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	if len(metrics.batches) != 1 || metrics.batches[0] != 1 {
		t.Fatalf("batches = %v, want a single flush of 1", metrics.batches)
	}
}

func TestEnqueueDropsWhenBufferFull(t *testing.T) {
	metrics := newRecordingMetrics()
	w := NewWorker(Options{
		Capacity: 4, BatchSize: 1, MaxWait: time.Millisecond,
		InitialWorkers: 1, MinWorkers: 1, MaxWorkers: 1,
		FailureThreshold: 3, ResetTimeout: time.Hour,
		Logger: quietLogger(), Metrics: metrics,
	})
	gate := make(chan struct{})
	started := make(chan struct{})
	w.Enqueue(func() { close(started); <-gate })
	<-started // control loop is now blocked inside the in-flight batch

	// Fill the ring, then overflow it until the breaker opens.
	for i := 0; i < 4; i++ {
		w.Enqueue(func() {})
	}
	for i := 0; i < 3; i++ {
		w.Enqueue(func() {})
	}
	st := w.Stats()
	if st.Dropped != 3 {
		t.Fatalf("dropped = %d, want 3", st.Dropped)
	}
	if !st.BreakerOpen || st.BreakerFailures != 3 {
		t.Fatalf("breaker = (%v, %d), want open with 3 failures", st.BreakerOpen, st.BreakerFailures)
	}

	// Breaker-open drops are counted but do not grow the failure count.
	w.Enqueue(func() {})
	st = w.Stats()
	if st.Dropped != 4 || st.BreakerFailures != 3 {
		t.Fatalf("stats after shed = %+v", st)
	}
	metrics.mu.Lock()
	if metrics.drops[DropBufferFull] != 3 || metrics.drops[DropBreakerOpen] != 1 {
		t.Fatalf("drop reasons = %v", metrics.drops)
	}
	metrics.mu.Unlock()

	close(gate)
	w.Stop()
}

func TestBreakerRecoversOnEnqueue(t *testing.T) {
	w := NewWorker(Options{
		Capacity: 2, BatchSize: 1, MaxWait: time.Millisecond,
		InitialWorkers: 1, MinWorkers: 1, MaxWorkers: 1,
		FailureThreshold: 1, ResetTimeout: 40 * time.Millisecond,
		Logger: quietLogger(),
	})
	gate := make(chan struct{})
	started := make(chan struct{})
	w.Enqueue(func() { close(started); <-gate })
	<-started
	w.Enqueue(func() {})
	w.Enqueue(func() {})
	w.Enqueue(func() {}) // buffer full: opens breaker
	if st := w.Stats(); !st.BreakerOpen {
		t.Fatalf("breaker did not open: %+v", st)
	}

	close(gate) // let the pipeline drain
	time.Sleep(80 * time.Millisecond)

	var ran atomic.Bool
	w.Enqueue(func() { ran.Store(true) }) // closes the breaker, then applies
	if st := w.Stats(); st.BreakerOpen {
		t.Fatalf("breaker still open after reset timeout: %+v", st)
	}
	waitFor(t, 2*time.Second, func() bool { return ran.Load() })
	w.Stop()
}

func TestTaskPanicIsContainedAndNotRetried(t *testing.T) {
	metrics := newRecordingMetrics()
	w := NewWorker(Options{
		Capacity: 8, BatchSize: 1, MaxWait: time.Millisecond,
		Logger: quietLogger(), Metrics: metrics,
	})
	var after atomic.Bool
	w.Enqueue(func() { panic("sink exploded") })
	w.Enqueue(func() { after.Store(true) })
	waitFor(t, 2*time.Second, func() bool { return after.Load() })
	w.Stop()

	st := w.Stats()
	if st.Processed != 2 {
		t.Fatalf("processed = %d, want 2 (panicking task still counts)", st.Processed)
	}
	if st.BreakerFailures != 0 {
		t.Fatalf("execution failure fed the breaker: %+v", st)
	}
	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	if metrics.errors != 1 {
		t.Fatalf("task errors = %d, want 1", metrics.errors)
	}
}

func TestScaleUpUnderBacklog(t *testing.T) {
	w := NewWorker(Options{
		Capacity: 16, BatchSize: 1, MaxWait: time.Millisecond,
		InitialWorkers: 1, MinWorkers: 1, MaxWorkers: 4,
		ScaleInterval: time.Nanosecond,
		Logger:        quietLogger(),
	})
	gate := make(chan struct{})
	started := make(chan struct{})
	w.Enqueue(func() { close(started); <-gate })
	<-started // the only executor is saturated; the control loop is waiting on it

	w.ring.Push(func() {}) // backlog behind the in-flight batch
	w.maybeScale()
	if st := w.Stats(); st.PoolSize != 2 {
		t.Fatalf("pool size = %d, want 2 after scale up", st.PoolSize)
	}
	close(gate)
	w.Stop()
}

func TestScaleDownWhenIdle(t *testing.T) {
	w := NewWorker(Options{
		Capacity: 16, BatchSize: 4, MaxWait: time.Hour,
		InitialWorkers: 3, MinWorkers: 1, MaxWorkers: 4,
		ScaleInterval: time.Nanosecond,
		Logger:        quietLogger(),
	})
	w.Start()
	defer w.Stop()

	w.maybeScale()
	if st := w.Stats(); st.PoolSize != 2 {
		t.Fatalf("pool size = %d, want 2 after scale down", st.PoolSize)
	}
	w.maybeScale()
	w.maybeScale() // bounded below by MinWorkers
	if st := w.Stats(); st.PoolSize != 1 {
		t.Fatalf("pool size = %d, want MinWorkers floor of 1", st.PoolSize)
	}
}

func TestRestartAfterStop(t *testing.T) {
	w := NewWorker(Options{Capacity: 8, BatchSize: 1, MaxWait: time.Millisecond, Logger: quietLogger()})
	var counter atomic.Int64
	w.Enqueue(func() { counter.Add(1) })
	w.Stop()
	w.Enqueue(func() { counter.Add(1) })
	w.Stop()
	if got := counter.Load(); got != 2 {
		t.Fatalf("executed %d tasks across restart, want 2", got)
	}
}
