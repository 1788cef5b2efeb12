package manager

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/kireeti123/skyarclog/internal/chain"
	"github.com/kireeti123/skyarclog/internal/config"
	logpkg "github.com/kireeti123/skyarclog/pkg/log"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Chain.ChainSize = 3
	cfg.Worker.BatchSize = 4
	cfg.Worker.BatchMaxWait = config.Duration(10 * time.Millisecond)
	cfg.Sinks = []config.SinkConfig{{Name: "mem", Type: "memory"}}
	return cfg
}

func openManager(t *testing.T, cfg config.Config) *Manager {
	t.Helper()
	m, err := Open(Options{
		Config: cfg,
		Logger: logpkg.NewLogger(
			logpkg.WithLevel(logpkg.ErrorLevel),
			logpkg.WithOutput(logpkg.NullOutput{}),
		),
	})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Worker.BatchSize = 0
	if _, err := Open(Options{Config: cfg}); err == nil {
		t.Fatal("Open() accepted an invalid config")
	}
}

func TestLogAppendsToChainAndSealsAtSize(t *testing.T) {
	m := openManager(t, testConfig())
	for i := 0; i < 7; i++ {
		m.Log(logpkg.InfoLevel, "event", logpkg.Fields{"seq": i})
	}
	if got := len(m.Chain().Blocks()); got != 2 {
		t.Fatalf("sealed blocks = %d, want 2", got)
	}
	if got := m.Chain().PendingLen(); got != 1 {
		t.Fatalf("pending entries = %d, want 1", got)
	}
	if !m.Chain().VerifyChain() {
		t.Fatal("chain does not verify")
	}
}

func TestLogReachesSinkExactlyOnce(t *testing.T) {
	m := openManager(t, testConfig())
	for i := 0; i < 5; i++ {
		m.Log(logpkg.InfoLevel, "event", logpkg.Fields{"seq": i})
	}
	waitFor(t, 2*time.Second, func() bool {
		return len(memSink(t, m).Entries()) == 5
	})
}

func TestOutputAdapterFeedsPipeline(t *testing.T) {
	m := openManager(t, testConfig())
	logger := logpkg.NewLogger(
		logpkg.WithLevel(logpkg.DebugLevel),
		logpkg.WithOutput(m.Output()),
	)
	logger.Info("via facade", logpkg.Str("k", "v"))

	if got := m.Chain().PendingLen(); got != 1 {
		t.Fatalf("pending entries = %d, want 1", got)
	}
	waitFor(t, 2*time.Second, func() bool {
		entries := memSink(t, m).Entries()
		return len(entries) == 1 && entries[0].Message == "via facade"
	})
}

func TestSignerRunsBeforeChaining(t *testing.T) {
	cfg := testConfig()
	cfg.Chain.ChainSize = 1
	logger := logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	m, err := Open(Options{Config: cfg, Logger: logger, Signer: stampSigner{}})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer m.Close()

	m.Log(logpkg.InfoLevel, "event", nil)
	blocks := m.Chain().Blocks()
	if len(blocks) != 1 {
		t.Fatalf("sealed blocks = %d, want 1", len(blocks))
	}
	if blocks[0].Logs[0]["signature"] != "stamped" {
		t.Fatal("signer output missing from the chained entry")
	}
}

func TestArchiveAndRotation(t *testing.T) {
	cfg := testConfig()
	cfg.Chain.ChainSize = 2
	cfg.Archive.Enabled = true
	cfg.Archive.DataDir = filepath.Join(t.TempDir(), "archive")
	cfg.Archive.RotateKeep = 1
	m := openManager(t, cfg)

	for i := 0; i < 8; i++ {
		m.Log(logpkg.InfoLevel, "event", logpkg.Fields{"seq": i})
	}
	// 4 blocks sealed; memory keeps only the newest one.
	if got := len(m.Chain().Blocks()); got != 1 {
		t.Fatalf("in-memory blocks = %d, want 1", got)
	}
	if got := m.Archiver().NextIndex(); got != 4 {
		t.Fatalf("archived blocks = %d, want 4", got)
	}
	loaded, err := m.Archiver().LoadBlocks(0, 0)
	if err != nil {
		t.Fatalf("LoadBlocks() error: %v", err)
	}
	if len(loaded) != 4 {
		t.Fatalf("LoadBlocks() returned %d, want 4", len(loaded))
	}
	if !m.Chain().VerifyChain() {
		t.Fatal("rotated chain does not verify")
	}
}

func TestSealHookObservesBlocks(t *testing.T) {
	cfg := testConfig()
	cfg.Chain.ChainSize = 2
	rec := &recordingHook{}
	logger := logpkg.NewLogger(logpkg.WithOutput(logpkg.NullOutput{}))
	m, err := Open(Options{Config: cfg, Logger: logger, SealHook: rec})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer m.Close()

	for i := 0; i < 4; i++ {
		m.Log(logpkg.InfoLevel, "event", nil)
	}
	if len(rec.blocks) != 2 {
		t.Fatalf("hook saw %d blocks, want 2", len(rec.blocks))
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	m := openManager(t, testConfig())
	if err := m.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}
}

func TestFlushDrainsPending(t *testing.T) {
	m := openManager(t, testConfig())
	for i := 0; i < 20; i++ {
		m.Log(logpkg.InfoLevel, "event", nil)
	}
	if err := m.Flush(2 * time.Second); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}
}

func memSink(t *testing.T, m *Manager) interface{ Entries() []logpkg.Entry } {
	t.Helper()
	s, ok := m.sinks[0].(interface{ Entries() []logpkg.Entry })
	if !ok {
		t.Fatalf("sink %T does not retain entries", m.sinks[0])
	}
	return s
}

type stampSigner struct{}

func (stampSigner) Sign(e chain.Entry) chain.Entry {
	e["signature"] = "stamped"
	return e
}

type recordingHook struct {
	blocks []*chain.Block
}

func (r *recordingHook) BlockSealed(index int, block *chain.Block) {
	r.blocks = append(r.blocks, block)
}
