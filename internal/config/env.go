package config

import (
	"os"
	"strconv"
	"time"
)

// FromEnv overlays SKYARCLOG_* environment variables onto cfg. Malformed
// values are ignored; the file/default value stays in effect.
func FromEnv(cfg *Config) {
	envInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	envDur := func(key string, dst *Duration) {
		if v := os.Getenv(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = Duration(d)
			}
		}
	}
	envBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	envInt("SKYARCLOG_WORKER_QUEUE_CAPACITY", &cfg.Worker.QueueCapacity)
	envInt("SKYARCLOG_WORKER_BATCH_SIZE", &cfg.Worker.BatchSize)
	envDur("SKYARCLOG_WORKER_BATCH_MAX_WAIT", &cfg.Worker.BatchMaxWait)
	envInt("SKYARCLOG_WORKER_INITIAL_WORKERS", &cfg.Worker.InitialWorkers)
	envInt("SKYARCLOG_WORKER_MIN_WORKERS", &cfg.Worker.MinWorkers)
	envInt("SKYARCLOG_WORKER_MAX_WORKERS", &cfg.Worker.MaxWorkers)
	envInt("SKYARCLOG_WORKER_BREAKER_THRESHOLD", &cfg.Worker.BreakerThreshold)
	envDur("SKYARCLOG_WORKER_BREAKER_RESET", &cfg.Worker.BreakerReset)

	envInt("SKYARCLOG_CHAIN_SIZE", &cfg.Chain.ChainSize)
	envInt("SKYARCLOG_CHAIN_DIFFICULTY", &cfg.Chain.Difficulty)

	envBool("SKYARCLOG_ARCHIVE_ENABLED", &cfg.Archive.Enabled)
	envStr("SKYARCLOG_ARCHIVE_DATA_DIR", &cfg.Archive.DataDir)
	envStr("SKYARCLOG_ARCHIVE_FSYNC", &cfg.Archive.Fsync)
	envInt("SKYARCLOG_ARCHIVE_ROTATE_KEEP", &cfg.Archive.RotateKeep)

	envStr("SKYARCLOG_LOG_LEVEL", &cfg.Log.Level)
	envStr("SKYARCLOG_LOG_FORMAT", &cfg.Log.Format)
	envStr("SKYARCLOG_LOG_FILE", &cfg.Log.FilePath)

	envBool("SKYARCLOG_METRICS_ENABLED", &cfg.Metrics.Enabled)
	envStr("SKYARCLOG_METRICS_NAMESPACE", &cfg.Metrics.Namespace)
}
