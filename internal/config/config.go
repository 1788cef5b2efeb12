package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	logpkg "github.com/kireeti123/skyarclog/pkg/log"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	Worker  WorkerConfig  `json:"worker" yaml:"worker"`
	Chain   ChainConfig   `json:"chain" yaml:"chain"`
	Archive ArchiveConfig `json:"archive" yaml:"archive"`
	Log     LogConfig     `json:"log" yaml:"log"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`
	Sinks   []SinkConfig  `json:"sinks" yaml:"sinks" validate:"dive"`
}

// WorkerConfig sizes the async dispatch engine.
type WorkerConfig struct {
	QueueCapacity    int      `json:"queueCapacity" yaml:"queueCapacity" validate:"min=1"`
	BatchSize        int      `json:"batchSize" yaml:"batchSize" validate:"min=1"`
	BatchMaxWait     Duration `json:"batchMaxWait" yaml:"batchMaxWait" validate:"min=1"`
	InitialWorkers   int      `json:"initialWorkers" yaml:"initialWorkers" validate:"min=1"`
	MinWorkers       int      `json:"minWorkers" yaml:"minWorkers" validate:"min=1"`
	MaxWorkers       int      `json:"maxWorkers" yaml:"maxWorkers" validate:"min=1,gtefield=MinWorkers"`
	BreakerThreshold int      `json:"breakerThreshold" yaml:"breakerThreshold" validate:"min=1"`
	BreakerReset     Duration `json:"breakerReset" yaml:"breakerReset" validate:"min=1"`
}

// ChainConfig sizes the tamper-evident chain.
type ChainConfig struct {
	ChainSize  int `json:"chainSize" yaml:"chainSize" validate:"min=1"`
	Difficulty int `json:"difficulty" yaml:"difficulty" validate:"min=1,max=6"`
}

// ArchiveConfig controls the opt-in block archive. When disabled, sealed
// blocks live in memory for the process lifetime.
type ArchiveConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	DataDir    string `json:"dataDir" yaml:"dataDir" validate:"required_if=Enabled true"`
	Fsync      string `json:"fsync" yaml:"fsync" validate:"omitempty,oneof=always interval never"`
	RotateKeep int    `json:"rotateKeep" yaml:"rotateKeep" validate:"min=0"`
}

// LogConfig configures the framework's own diagnostic logger.
type LogConfig struct {
	Level    string   `json:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error fatal"`
	Format   string   `json:"format" yaml:"format" validate:"omitempty,oneof=json text"`
	FilePath string   `json:"filePath" yaml:"filePath"`
	Redact   []string `json:"redact" yaml:"redact"`
}

// LoggerConfig converts the section into the log facade's declarative form.
// Console output is always present; a file output is added when FilePath is
// set.
func (l LogConfig) LoggerConfig() *logpkg.Config {
	out := &logpkg.Config{
		Level:    l.Level,
		Format:   l.Format,
		FilePath: l.FilePath,
		Redact:   l.Redact,
		Outputs:  []string{"console"},
	}
	if l.FilePath != "" {
		out.Outputs = append(out.Outputs, "file")
	}
	return out
}

// MetricsConfig toggles Prometheus collector registration.
type MetricsConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Namespace string `json:"namespace" yaml:"namespace"`
}

// SinkConfig declares one output sink. Settings carries sink-specific keys,
// e.g. "path" for file sinks or "addr" and "key" for redis.
type SinkConfig struct {
	Name     string            `json:"name" yaml:"name" validate:"required"`
	Type     string            `json:"type" yaml:"type" validate:"required,oneof=console file memory redis"`
	Filter   string            `json:"filter" yaml:"filter"`
	Format   string            `json:"format" yaml:"format" validate:"omitempty,oneof=json text"`
	Settings map[string]string `json:"settings" yaml:"settings"`
}

// Default returns built-in defaults: one console sink, archive off.
func Default() Config {
	return Config{
		Worker: WorkerConfig{
			QueueCapacity:    10000,
			BatchSize:        1000,
			BatchMaxWait:     Duration(100 * time.Millisecond),
			InitialWorkers:   4,
			MinWorkers:       2,
			MaxWorkers:       8,
			BreakerThreshold: 5,
			BreakerReset:     Duration(60 * time.Second),
		},
		Chain: ChainConfig{
			ChainSize:  100,
			Difficulty: 1,
		},
		Archive: ArchiveConfig{
			Fsync: "interval",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Sinks: []SinkConfig{
			{Name: "console", Type: "console", Format: "text"},
		},
	}
}

// Load reads configuration from a JSON or YAML file (by extension), layered
// over Default(). If path is empty, returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Validate checks the configuration against its struct constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
