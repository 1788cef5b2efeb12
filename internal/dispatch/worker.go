package dispatch

import (
	"sync"
	"sync/atomic"
	"time"

	logpkg "github.com/kireeti123/skyarclog/pkg/log"
)

const (
	defaultCapacity      = 10000
	defaultBatchSize     = 1000
	defaultMaxWait       = 100 * time.Millisecond
	defaultInitialPool   = 4
	defaultMinPool       = 2
	defaultMaxPool       = 8
	defaultFailThreshold = 5
	defaultResetTimeout  = 60 * time.Second
	defaultScaleInterval = 5 * time.Second

	// pollSleep bounds the idle cost of the control loop's empty-buffer poll.
	pollSleep = 10 * time.Millisecond

	// durationWindow is the number of batch durations kept for the rolling
	// average reported by Stats.
	durationWindow = 100
)

// Options configures a Worker. Zero fields fall back to defaults.
type Options struct {
	// Capacity is the ring buffer slot count.
	Capacity int
	// BatchSize and MaxWait bound a batch by count and by elapsed time.
	BatchSize int
	MaxWait   time.Duration
	// InitialWorkers is the executor pool's starting size; adaptive scaling
	// keeps the size within [MinWorkers, MaxWorkers].
	InitialWorkers int
	MinWorkers     int
	MaxWorkers     int
	// FailureThreshold and ResetTimeout configure the circuit breaker.
	FailureThreshold int
	ResetTimeout     time.Duration
	// ScaleInterval rate-limits adaptive scaling decisions.
	ScaleInterval time.Duration

	Logger  logpkg.Logger
	Metrics MetricsHook
}

func (o *Options) withDefaults() {
	if o.Capacity <= 0 {
		o.Capacity = defaultCapacity
	}
	if o.BatchSize <= 0 {
		o.BatchSize = defaultBatchSize
	}
	if o.MaxWait <= 0 {
		o.MaxWait = defaultMaxWait
	}
	if o.InitialWorkers <= 0 {
		o.InitialWorkers = defaultInitialPool
	}
	if o.MinWorkers <= 0 {
		o.MinWorkers = defaultMinPool
	}
	if o.MaxWorkers <= 0 {
		o.MaxWorkers = defaultMaxPool
	}
	if o.MinWorkers > o.MaxWorkers {
		o.MinWorkers = o.MaxWorkers
	}
	if o.InitialWorkers < o.MinWorkers {
		o.InitialWorkers = o.MinWorkers
	}
	if o.InitialWorkers > o.MaxWorkers {
		o.InitialWorkers = o.MaxWorkers
	}
	if o.FailureThreshold <= 0 {
		o.FailureThreshold = defaultFailThreshold
	}
	if o.ResetTimeout <= 0 {
		o.ResetTimeout = defaultResetTimeout
	}
	if o.ScaleInterval <= 0 {
		o.ScaleInterval = defaultScaleInterval
	}
	if o.Logger == nil {
		o.Logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	}
	if o.Metrics == nil {
		o.Metrics = NoopMetrics{}
	}
}

// Stats is a point-in-time snapshot of a Worker.
type Stats struct {
	Capacity        int
	Pending         int
	Batched         int
	Dropped         uint64
	Active          int
	PoolSize        int
	Processed       uint64
	AvgBatch        time.Duration
	BreakerOpen     bool
	BreakerFailures int
}

// Worker drains a RingBuffer through a BatchAccumulator and executes batches
// concurrently on a resizable goroutine pool. See the package documentation
// for the failure and ordering semantics.
type Worker struct {
	opts    Options
	logger  logpkg.Logger
	metrics MetricsHook

	ring    *RingBuffer
	batch   *BatchAccumulator
	breaker *CircuitBreaker

	execCh chan func()

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	loopWG  sync.WaitGroup
	poolWG  sync.WaitGroup
	quits   []chan struct{}

	active    atomic.Int64
	dropped   atomic.Uint64
	processed atomic.Uint64

	statsMu   sync.Mutex
	durations []time.Duration
	durNext   int
	lastScale time.Time
}

// NewWorker creates a Worker. The control loop starts lazily on the first
// Enqueue, or explicitly via Start.
func NewWorker(opts Options) *Worker {
	opts.withDefaults()
	return &Worker{
		opts:    opts,
		logger:  opts.Logger.WithComponent("dispatch"),
		metrics: opts.Metrics,
		ring:    NewRingBuffer(opts.Capacity),
		batch:   NewBatchAccumulator(opts.BatchSize, opts.MaxWait),
		breaker: NewCircuitBreaker(opts.FailureThreshold, opts.ResetTimeout),
		execCh:  make(chan func()),
	}
}

// Start launches the control loop and the executor pool. It is idempotent
// and may be called again after Stop.
func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})
	for i := 0; i < w.opts.InitialWorkers; i++ {
		w.spawnLocked()
	}
	w.metrics.ObservePoolSize(len(w.quits))
	w.loopWG.Add(1)
	go w.run()
}

// Stop signals the control loop to exit, joins it, synchronously executes any
// tasks still buffered, then shuts the executor pool down after in-flight
// batches finish. It blocks and is idempotent.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	w.loopWG.Wait()

	// The loop exits once the ring is empty, but tasks may remain in the
	// accumulator; anything pushed between the loop's last pop and the
	// stop signal is drained here.
	for {
		t, ok := w.ring.Pop()
		if !ok {
			break
		}
		if w.batch.Add(t) {
			w.flushBatch()
		}
	}
	w.flushBatch()

	w.mu.Lock()
	for _, q := range w.quits {
		close(q)
	}
	w.quits = nil
	w.mu.Unlock()
	w.poolWG.Wait()
}

// Enqueue offers a task for asynchronous execution. It never blocks and
// never surfaces an error: when the breaker is open or the buffer is full
// the task is dropped and counted.
func (w *Worker) Enqueue(t Task) {
	if t == nil {
		return
	}
	w.Start()

	if !w.breaker.Allow() {
		w.dropped.Add(1)
		w.metrics.ObserveDrop(DropBreakerOpen)
		return
	}
	if !w.ring.Push(t) {
		w.dropped.Add(1)
		w.breaker.RecordFailure()
		w.metrics.ObserveDrop(DropBufferFull)
	}
}

// Stats returns a snapshot of the worker's counters and breaker state.
func (w *Worker) Stats() Stats {
	open, failures := w.breaker.State()

	w.statsMu.Lock()
	var avg time.Duration
	if n := len(w.durations); n > 0 {
		var sum time.Duration
		for _, d := range w.durations {
			sum += d
		}
		avg = sum / time.Duration(n)
	}
	w.statsMu.Unlock()

	w.mu.Lock()
	pool := len(w.quits)
	w.mu.Unlock()

	return Stats{
		Capacity:        w.ring.Cap(),
		Pending:         w.ring.Len(),
		Batched:         w.batch.Len(),
		Dropped:         w.dropped.Load(),
		Active:          int(w.active.Load()),
		PoolSize:        pool,
		Processed:       w.processed.Load(),
		AvgBatch:        avg,
		BreakerOpen:     open,
		BreakerFailures: failures,
	}
}

func (w *Worker) isRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// run is the control loop: pop, accumulate, flush, scale.
func (w *Worker) run() {
	defer w.loopWG.Done()
	for {
		t, ok := w.ring.Pop()
		if !ok {
			if !w.isRunning() {
				return
			}
			// Flush stragglers whose wait deadline passed while the
			// buffer sat empty.
			if w.batch.Due() {
				w.flushBatch()
			}
			w.sleep(pollSleep)
			continue
		}
		if w.batch.Add(t) {
			w.flushBatch()
		}
		w.maybeScale()
	}
}

// sleep waits for d but returns early on stop.
func (w *Worker) sleep(d time.Duration) {
	w.mu.Lock()
	stopCh := w.stopCh
	w.mu.Unlock()
	select {
	case <-stopCh:
	case <-time.After(d):
	}
}

// flushBatch submits every task in the current batch to the pool and waits
// for all of them before returning.
func (w *Worker) flushBatch() {
	tasks := w.batch.Drain()
	if len(tasks) == 0 {
		return
	}
	start := time.Now()
	var wg sync.WaitGroup
	for _, t := range tasks {
		t := t
		wg.Add(1)
		w.execCh <- func() {
			defer wg.Done()
			w.runTask(t)
		}
	}
	wg.Wait()
	elapsed := time.Since(start)

	w.processed.Add(uint64(len(tasks)))
	w.recordDuration(elapsed)
	w.metrics.ObserveBatch(elapsed, len(tasks))
}

// runTask executes a single task. Panics are caught, logged, and discarded;
// they do not feed the circuit breaker.
func (w *Worker) runTask(t Task) {
	w.active.Add(1)
	defer w.active.Add(-1)
	defer func() {
		if r := recover(); r != nil {
			w.metrics.ObserveTaskError()
			w.logger.Error("task panicked", logpkg.Any("panic", r))
		}
	}()
	t()
}

func (w *Worker) recordDuration(d time.Duration) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	if len(w.durations) < durationWindow {
		w.durations = append(w.durations, d)
		return
	}
	w.durations[w.durNext] = d
	w.durNext = (w.durNext + 1) % durationWindow
}

// maybeScale resizes the pool by one, at most once per ScaleInterval.
// Utilization above 0.8 with a backlog grows the pool; below 0.5 with an
// empty buffer shrinks it.
func (w *Worker) maybeScale() {
	w.statsMu.Lock()
	if time.Since(w.lastScale) < w.opts.ScaleInterval {
		w.statsMu.Unlock()
		return
	}
	w.lastScale = time.Now()
	w.statsMu.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	pool := len(w.quits)
	if pool == 0 {
		return
	}
	utilization := float64(w.active.Load()) / float64(pool)

	switch {
	case utilization > 0.8 && !w.ring.Empty() && pool < w.opts.MaxWorkers:
		w.spawnLocked()
		w.metrics.ObservePoolSize(len(w.quits))
		w.logger.Debug("scaled pool up", logpkg.Int("pool", len(w.quits)))
	case utilization < 0.5 && w.ring.Empty() && pool > w.opts.MinWorkers:
		last := w.quits[len(w.quits)-1]
		w.quits = w.quits[:len(w.quits)-1]
		close(last)
		w.metrics.ObservePoolSize(len(w.quits))
		w.logger.Debug("scaled pool down", logpkg.Int("pool", len(w.quits)))
	}
}

// spawnLocked starts one executor goroutine. Caller holds w.mu.
func (w *Worker) spawnLocked() {
	quit := make(chan struct{})
	w.quits = append(w.quits, quit)
	w.poolWG.Add(1)
	go func() {
		defer w.poolWG.Done()
		for {
			select {
			case <-quit:
				return
			case f := <-w.execCh:
				f()
			}
		}
	}()
}
