package sink

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/kireeti123/skyarclog/internal/config"
	logpkg "github.com/kireeti123/skyarclog/pkg/log"
)

const defaultMemoryCapacity = 1024

// MemorySink retains the most recent matched entries in memory, evicting
// the oldest past capacity. It exists for tests and for the CLI demo, where
// the retained entries are dumped on exit.
type MemorySink struct {
	name     string
	filter   Filter
	capacity int

	mu      sync.Mutex
	entries []logpkg.Entry
}

func buildMemory(cfg config.SinkConfig) (Sink, error) {
	filter, err := NewFilter(cfg.Filter)
	if err != nil {
		return nil, err
	}
	capacity := defaultMemoryCapacity
	if v := cfg.Settings["capacity"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("memory sink: bad capacity %q", v)
		}
		capacity = n
	}
	return &MemorySink{name: cfg.Name, filter: filter, capacity: capacity}, nil
}

func (s *MemorySink) Name() string { return s.name }

func (s *MemorySink) Write(e *logpkg.Entry) error {
	if !s.filter.Match(e) {
		return nil
	}
	s.mu.Lock()
	s.entries = append(s.entries, *e)
	if len(s.entries) > s.capacity {
		s.entries = append(s.entries[:0], s.entries[len(s.entries)-s.capacity:]...)
	}
	s.mu.Unlock()
	return nil
}

// Entries returns a copy of everything written so far.
func (s *MemorySink) Entries() []logpkg.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]logpkg.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *MemorySink) Close() error { return nil }
