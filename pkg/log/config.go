package log

import (
	"fmt"
	"strings"
)

// Config declares a logger in data form, suitable for embedding in the
// runtime configuration file.
type Config struct {
	Level   string   `json:"level" yaml:"level"`
	Format  string   `json:"format" yaml:"format"` // "json" or "text"
	Outputs []string `json:"outputs" yaml:"outputs"`
	// FilePath is required when Outputs contains "file".
	FilePath string   `json:"filePath" yaml:"filePath"`
	Redact   []string `json:"redact" yaml:"redact"`
	Sampling struct {
		Initial    int `json:"initial" yaml:"initial"`
		Thereafter int `json:"thereafter" yaml:"thereafter"`
	} `json:"sampling" yaml:"sampling"`
}

// ParseLevel converts a level name to a Level. Empty input is an error so
// callers can distinguish "unset" from "debug".
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("log: unknown level %q", s)
	}
}

// ApplyConfig builds a Logger from a declarative Config. Unset fields fall
// back to info/text/console.
func ApplyConfig(cfg *Config) (Logger, error) {
	if cfg == nil {
		return NewLogger(), nil
	}

	opts := []LoggerOption{}

	if cfg.Level != "" {
		lvl, err := ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithLevel(lvl))
	}

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		opts = append(opts, WithFormatter(&TextFormatter{}))
	case "json":
		opts = append(opts, WithFormatter(&JSONFormatter{}))
	default:
		return nil, fmt.Errorf("log: unknown format %q", cfg.Format)
	}

	for _, name := range cfg.Outputs {
		switch strings.ToLower(name) {
		case "console":
			opts = append(opts, WithOutput(NewConsoleOutput()))
		case "file":
			if cfg.FilePath == "" {
				return nil, fmt.Errorf("log: output %q requires filePath", name)
			}
			fo, err := NewFileOutput(cfg.FilePath)
			if err != nil {
				return nil, err
			}
			opts = append(opts, WithOutput(fo))
		case "null":
			opts = append(opts, WithOutput(NullOutput{}))
		default:
			return nil, fmt.Errorf("log: unknown output %q", name)
		}
	}

	if len(cfg.Redact) > 0 {
		opts = append(opts, WithRedaction(cfg.Redact...))
	}
	if cfg.Sampling.Thereafter > 0 {
		opts = append(opts, WithSampling(cfg.Sampling.Initial, cfg.Sampling.Thereafter))
	}

	return NewLogger(opts...), nil
}
