package sink

import (
	"fmt"

	"github.com/kireeti123/skyarclog/internal/config"
	logpkg "github.com/kireeti123/skyarclog/pkg/log"
)

// Sink consumes routed log entries. Write runs on the dispatch pool and may
// be called from multiple goroutines; implementations must be safe for
// concurrent use.
type Sink interface {
	Name() string
	Write(e *logpkg.Entry) error
	Close() error
}

// Builder constructs a sink from its configuration.
type Builder func(cfg config.SinkConfig) (Sink, error)

var builders = map[string]Builder{
	"console": buildConsole,
	"file":    buildFile,
	"memory":  buildMemory,
	"redis":   buildRedis,
}

// Register adds a sink type to the registry. Call at init time, before any
// Build; the registry is not synchronized.
func Register(sinkType string, b Builder) {
	builders[sinkType] = b
}

// Build constructs the sink described by cfg, compiling its filter.
func Build(cfg config.SinkConfig) (Sink, error) {
	builder, ok := builders[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("sink %q: unknown type %q", cfg.Name, cfg.Type)
	}
	s, err := builder(cfg)
	if err != nil {
		return nil, fmt.Errorf("sink %q: %w", cfg.Name, err)
	}
	return s, nil
}

// BuildAll constructs every configured sink, closing the ones already built
// when a later one fails.
func BuildAll(cfgs []config.SinkConfig) ([]Sink, error) {
	sinks := make([]Sink, 0, len(cfgs))
	for _, cfg := range cfgs {
		s, err := Build(cfg)
		if err != nil {
			for _, built := range sinks {
				built.Close()
			}
			return nil, err
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}

func formatterFor(format string) logpkg.Formatter {
	if format == "text" {
		return &logpkg.TextFormatter{}
	}
	return &logpkg.JSONFormatter{}
}

// outputSink adapts a pkg/log Output into a Sink: filter, format, write.
type outputSink struct {
	name      string
	filter    Filter
	formatter logpkg.Formatter
	out       logpkg.Output
}

func newOutputSink(cfg config.SinkConfig, out logpkg.Output) (*outputSink, error) {
	filter, err := NewFilter(cfg.Filter)
	if err != nil {
		return nil, err
	}
	return &outputSink{
		name:      cfg.Name,
		filter:    filter,
		formatter: formatterFor(cfg.Format),
		out:       out,
	}, nil
}

func (s *outputSink) Name() string { return s.name }

func (s *outputSink) Write(e *logpkg.Entry) error {
	if !s.filter.Match(e) {
		return nil
	}
	formatted, err := s.formatter.Format(e)
	if err != nil {
		return err
	}
	return s.out.Write(e, formatted)
}

func (s *outputSink) Close() error { return s.out.Close() }

func buildConsole(cfg config.SinkConfig) (Sink, error) {
	return newOutputSink(cfg, logpkg.NewConsoleOutput())
}

func buildFile(cfg config.SinkConfig) (Sink, error) {
	path := cfg.Settings["path"]
	if path == "" {
		return nil, fmt.Errorf("file sink requires a %q setting", "path")
	}
	out, err := logpkg.NewFileOutput(path)
	if err != nil {
		return nil, err
	}
	return newOutputSink(cfg, out)
}
