package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kireeti123/skyarclog/internal/archive"
	"github.com/kireeti123/skyarclog/internal/chain"
	cfgpkg "github.com/kireeti123/skyarclog/internal/config"
	"github.com/kireeti123/skyarclog/internal/manager"
	"github.com/kireeti123/skyarclog/internal/metrics"
	pebblestore "github.com/kireeti123/skyarclog/internal/storage/pebble"
	logpkg "github.com/kireeti123/skyarclog/pkg/log"
)

var version = "dev"

func main() {
	// Respect SKYARCLOG_LOG_LEVEL for CLI output
	level := os.Getenv("SKYARCLOG_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)

	// Redirect standard library logs (used by Pebble) to our logger
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:   "skyarclog",
		Short: "skyarclog logging framework CLI",
		Long:  "skyarclog runs and inspects the tamper-evident logging pipeline.",
	}

	// version
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("skyarclog", version)
		},
	}
	rootCmd.AddCommand(versionCmd)

	// demo
	demoCmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the pipeline against generated entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			count, _ := cmd.Flags().GetInt("count")
			metricsAddr, _ := cmd.Flags().GetString("metrics")

			cfg, err := cfgpkg.Load(configPath)
			if err != nil {
				return err
			}
			cfgpkg.FromEnv(&cfg)
			if lg, err := logpkg.ApplyConfig(cfg.Log.LoggerConfig()); err == nil {
				logger = lg
			}

			opts := manager.Options{Config: cfg, Logger: logger}
			if metricsAddr != "" {
				cfg.Metrics.Enabled = true
				opts.Config = cfg
				opts.Collector = metrics.NewCollector(cfg.Metrics.Namespace, nil)
				go func() {
					http.Handle("/metrics", metrics.Handler(nil))
					if err := http.ListenAndServe(metricsAddr, nil); err != nil {
						logger.Warn("metrics server stopped", logpkg.Err(err))
					}
				}()
			}

			m, err := manager.Open(opts)
			if err != nil {
				return err
			}
			defer m.Close()

			start := time.Now()
			for i := 0; i < count; i++ {
				m.Log(logpkg.InfoLevel, "demo event", logpkg.Fields{"seq": i, "source": "demo"})
			}
			if err := m.Flush(30 * time.Second); err != nil {
				return err
			}
			stats := m.Stats()
			fmt.Printf("logged %d entries in %s\n", count, time.Since(start).Round(time.Millisecond))
			fmt.Printf("processed=%d dropped=%d pool=%d avg_batch=%s\n",
				stats.Processed, stats.Dropped, stats.PoolSize, stats.AvgBatch)
			fmt.Printf("blocks=%d pending=%d verified=%t\n",
				len(m.Chain().Blocks()), m.Chain().PendingLen(), m.Chain().VerifyChain())
			return nil
		},
	}
	demoCmd.Flags().String("config", "", "Config file (JSON or YAML); defaults when empty")
	demoCmd.Flags().Int("count", 1000, "Number of entries to generate")
	demoCmd.Flags().String("metrics", "", "Expose Prometheus metrics on this address (e.g. :9090)")
	rootCmd.AddCommand(demoCmd)

	// chain commands
	chainCmd := &cobra.Command{Use: "chain", Short: "Chain operations"}

	chainVerifyCmd := &cobra.Command{
		Use:   "verify <snapshot.json>",
		Short: "Verify a chain snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			difficulty, _ := cmd.Flags().GetInt("difficulty")
			c := chain.New(chain.Options{Difficulty: difficulty, Logger: logger})
			if !c.ImportChain(args[0]) {
				fmt.Println("chain: TAMPERED or unreadable")
				os.Exit(1)
			}
			fmt.Printf("chain: OK (%d blocks, %d pending entries)\n",
				len(c.Blocks()), c.PendingLen())
			return nil
		},
	}
	chainVerifyCmd.Flags().Int("difficulty", 1, "Proof difficulty the snapshot was sealed with")
	chainCmd.AddCommand(chainVerifyCmd)

	chainExportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export the block archive as a snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("data-dir")
			out, _ := cmd.Flags().GetString("out")
			a, closeDB, err := openArchive(dataDir, logger)
			if err != nil {
				return err
			}
			defer closeDB()
			if err := a.ExportSnapshot(out); err != nil {
				return err
			}
			fmt.Printf("exported %d blocks to %s\n", a.NextIndex(), out)
			return nil
		},
	}
	chainExportCmd.Flags().String("data-dir", cfgpkg.DefaultDataDir(), "Archive data directory")
	chainExportCmd.Flags().String("out", "chain.json", "Snapshot output path")
	chainCmd.AddCommand(chainExportCmd)

	chainInspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print archived block summaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("data-dir")
			a, closeDB, err := openArchive(dataDir, logger)
			if err != nil {
				return err
			}
			defer closeDB()
			blocks, err := a.LoadBlocks(0, 0)
			if err != nil {
				return err
			}
			for i, b := range blocks {
				fmt.Printf("block %d: sealed=%s entries=%d nonce=%d hash=%.12s root=%.12s\n",
					i, b.Timestamp, len(b.Logs), b.Nonce, b.Hash(), b.MerkleRoot)
			}
			if len(blocks) == 0 {
				fmt.Println("archive is empty")
			}
			return nil
		},
	}
	chainInspectCmd.Flags().String("data-dir", cfgpkg.DefaultDataDir(), "Archive data directory")
	chainCmd.AddCommand(chainInspectCmd)

	rootCmd.AddCommand(chainCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func openArchive(dataDir string, logger logpkg.Logger) (*archive.Archiver, func(), error) {
	db, err := pebblestore.Open(pebblestore.Options{DataDir: dataDir})
	if err != nil {
		return nil, nil, err
	}
	a, err := archive.NewArchiver(db, logger)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return a, func() { db.Close() }, nil
}
