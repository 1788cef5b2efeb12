package manager

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kireeti123/skyarclog/internal/archive"
	"github.com/kireeti123/skyarclog/internal/chain"
	"github.com/kireeti123/skyarclog/internal/config"
	"github.com/kireeti123/skyarclog/internal/dispatch"
	"github.com/kireeti123/skyarclog/internal/metrics"
	"github.com/kireeti123/skyarclog/internal/sink"
	pebblestore "github.com/kireeti123/skyarclog/internal/storage/pebble"
	logpkg "github.com/kireeti123/skyarclog/pkg/log"
)

// Options configures a Manager. Config is validated on Open.
type Options struct {
	Config config.Config
	Logger logpkg.Logger

	// Signer and Encryptor default to no-ops.
	Signer    Signer
	Encryptor Encryptor

	// SealHook, when set, observes sealed blocks alongside the archiver.
	SealHook chain.SealHook

	// Collector, when set, receives dispatch and chain observations. Open
	// builds one from Config.Metrics when nil and metrics are enabled.
	Collector *metrics.Collector
}

// Manager owns the chain, the dispatch pool, the sinks, and the optional
// archive, and shuts them down in dependency order.
type Manager struct {
	cfg       config.Config
	logger    logpkg.Logger
	signer    Signer
	encryptor Encryptor
	collector *metrics.Collector

	chain    *chain.Chain
	worker   *dispatch.Worker
	sinks    []sink.Sink
	archiver *archive.Archiver
	db       *pebblestore.DB

	enqueued atomic.Uint64

	closeOnce sync.Once
	closeErr  error
}

// sealHooks fans a sealed block out to every registered observer in order.
type sealHooks []chain.SealHook

func (h sealHooks) BlockSealed(index int, block *chain.Block) {
	for _, hook := range h {
		hook.BlockSealed(index, block)
	}
}

// Open validates cfg and brings up the pipeline. On error, everything
// already opened is torn down.
func Open(opts Options) (*Manager, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = logpkg.NewLogger(logpkg.WithLevel(logpkg.InfoLevel))
	}
	if opts.Signer == nil {
		opts.Signer = NoopSigner{}
	}
	if opts.Encryptor == nil {
		opts.Encryptor = NoopEncryptor{}
	}
	if opts.Collector == nil && opts.Config.Metrics.Enabled {
		opts.Collector = metrics.NewCollector(opts.Config.Metrics.Namespace, nil)
	}

	m := &Manager{
		cfg:       opts.Config,
		logger:    opts.Logger.WithComponent("manager"),
		signer:    opts.Signer,
		encryptor: opts.Encryptor,
		collector: opts.Collector,
	}

	if opts.Config.Archive.Enabled {
		db, err := pebblestore.Open(storeOptions(opts.Config.Archive, opts.Collector))
		if err != nil {
			return nil, err
		}
		archiver, err := archive.NewArchiver(db, opts.Logger)
		if err != nil {
			db.Close()
			return nil, err
		}
		m.db = db
		m.archiver = archiver
	}

	var hooks sealHooks
	if m.archiver != nil {
		hooks = append(hooks, m.archiver)
	}
	if opts.SealHook != nil {
		hooks = append(hooks, opts.SealHook)
	}
	var hook chain.SealHook
	if len(hooks) > 0 {
		hook = hooks
	}

	m.chain = chain.New(chain.Options{
		ChainSize:  opts.Config.Chain.ChainSize,
		Difficulty: opts.Config.Chain.Difficulty,
		SealHook:   hook,
		Logger:     opts.Logger,
	})

	sinks, err := sink.BuildAll(opts.Config.Sinks)
	if err != nil {
		if m.db != nil {
			m.db.Close()
		}
		return nil, err
	}
	m.sinks = sinks

	var metricsHook dispatch.MetricsHook
	if opts.Collector != nil {
		metricsHook = opts.Collector
	}
	m.worker = dispatch.NewWorker(dispatch.Options{
		Capacity:         opts.Config.Worker.QueueCapacity,
		BatchSize:        opts.Config.Worker.BatchSize,
		MaxWait:          opts.Config.Worker.BatchMaxWait.Std(),
		InitialWorkers:   opts.Config.Worker.InitialWorkers,
		MinWorkers:       opts.Config.Worker.MinWorkers,
		MaxWorkers:       opts.Config.Worker.MaxWorkers,
		FailureThreshold: opts.Config.Worker.BreakerThreshold,
		ResetTimeout:     opts.Config.Worker.BreakerReset.Std(),
		Logger:           opts.Logger,
		Metrics:          metricsHook,
	})
	m.worker.Start()
	return m, nil
}

func storeOptions(cfg config.ArchiveConfig, collector *metrics.Collector) pebblestore.Options {
	opts := pebblestore.Options{DataDir: cfg.DataDir}
	switch cfg.Fsync {
	case "always":
		opts.Fsync = pebblestore.FsyncModeAlways
	case "never":
		opts.Fsync = pebblestore.FsyncModeNever
	default:
		opts.Fsync = pebblestore.FsyncModeInterval
	}
	if collector != nil {
		opts.Metrics = collector
	}
	return opts
}

// Log records one entry: chain append on this goroutine, sink writes on the
// dispatch pool.
func (m *Manager) Log(level logpkg.Level, msg string, fields logpkg.Fields) {
	e := &logpkg.Entry{
		Level:     level,
		Message:   msg,
		Fields:    fields,
		Timestamp: time.Now().UTC(),
	}
	m.process(e)
}

func (m *Manager) process(e *logpkg.Entry) {
	entry := chain.Entry{
		"level":   e.Level.String(),
		"message": e.Message,
	}
	if !e.Timestamp.IsZero() {
		entry["timestamp"] = e.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	if len(e.Fields) > 0 {
		entry["fields"] = map[string]any(e.Fields)
	}
	if e.Error != nil {
		entry["error"] = e.Error.Error()
	}
	entry = m.encryptor.Encrypt(m.signer.Sign(entry))

	start := time.Now()
	if block := m.chain.AddLog(entry); block != nil {
		if m.collector != nil {
			m.collector.ObserveSeal(time.Since(start))
		}
		// Rotation is safe here: the seal hook has already archived the
		// block, and we are outside the chain's seal path.
		if m.archiver != nil && m.cfg.Archive.RotateKeep > 0 {
			m.chain.Rotate(m.cfg.Archive.RotateKeep)
		}
	}
	if m.collector != nil {
		m.collector.SetPendingLogs(m.chain.PendingLen())
		m.collector.UpdateWorkerStats(m.worker.Stats())
	}

	for _, s := range m.sinks {
		s := s
		copied := *e
		m.enqueued.Add(1)
		m.worker.Enqueue(func() {
			if err := s.Write(&copied); err != nil {
				m.logger.Warn("sink write failed",
					logpkg.Str("sink", s.Name()),
					logpkg.Err(err))
			}
		})
	}
}

// Chain exposes the underlying chain for verification and export.
func (m *Manager) Chain() *chain.Chain { return m.chain }

// Archiver returns the block archiver, or nil when archiving is disabled.
func (m *Manager) Archiver() *archive.Archiver { return m.archiver }

// Stats returns a snapshot of the dispatch pool.
func (m *Manager) Stats() dispatch.Stats { return m.worker.Stats() }

// Flush blocks until every task enqueued so far has been executed or
// dropped, bounded by timeout.
func (m *Manager) Flush(timeout time.Duration) error {
	target := m.enqueued.Load()
	deadline := time.Now().Add(timeout)
	for {
		s := m.worker.Stats()
		if s.Processed+s.Dropped >= target {
			return nil
		}
		if time.Now().After(deadline) {
			return errors.New("manager: flush timed out")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// Close drains the worker, closes every sink, and releases the archive.
// Safe to call more than once.
func (m *Manager) Close() error {
	m.closeOnce.Do(func() {
		m.worker.Stop()
		var errs []error
		for _, s := range m.sinks {
			if err := s.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if m.db != nil {
			if err := m.db.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		m.closeErr = errors.Join(errs...)
	})
	return m.closeErr
}

// output adapts the manager into a pkg/log Output so a BaseLogger can feed
// the pipeline directly. Closing the output does not close the manager.
type output struct{ m *Manager }

// Output returns an adapter for use with log.WithOutput.
func (m *Manager) Output() logpkg.Output { return output{m} }

func (o output) Write(e *logpkg.Entry, _ []byte) error {
	o.m.process(e)
	return nil
}

func (o output) Close() error { return nil }
