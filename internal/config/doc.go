// Package config provides loading and environment overlay for skyarclog
// runtime configuration. It exposes a Default() baseline, file loading from
// JSON or YAML, and a SKYARCLOG_* environment overlay.
//
// Example:
//
//	cfg := config.Default()
//	// Optionally load from file and overlay env vars
//	if fileCfg, err := config.Load("/etc/skyarclog.yaml"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg)
//	if err := cfg.Validate(); err != nil {
//	    return err
//	}
//	mgr, _ := manager.Open(manager.Options{Config: cfg})
//	defer mgr.Close()
package config
