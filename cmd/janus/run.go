package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"mercator-hq/janus/pkg/audit"
	auditstorage "mercator-hq/janus/pkg/audit/storage"
	"mercator-hq/janus/pkg/cli"
	"mercator-hq/janus/pkg/config"
	"mercator-hq/janus/pkg/engine"
	"mercator-hq/janus/pkg/evaluator"
	"mercator-hq/janus/pkg/events"
	"mercator-hq/janus/pkg/hitl"
	hitlstorage "mercator-hq/janus/pkg/hitl/storage"
	"mercator-hq/janus/pkg/hitl/sweep"
	"mercator-hq/janus/pkg/rules"
	"mercator-hq/janus/pkg/server"
	"mercator-hq/janus/pkg/telemetry/logging"
	"mercator-hq/janus/pkg/telemetry/metrics"
	"mercator-hq/janus/pkg/trace"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Janus admin server",
	Long: `Start the Janus admin server with the specified configuration.

The server listens on the configured address and exposes the evaluation,
approval, and audit verification API backed by the governance engine.

Examples:
  # Start with default config
  janus run

  # Start with custom config
  janus run --config /etc/janus/config.yaml

  # Override listen address
  janus run --listen 0.0.0.0:8080

  # Validate config without starting server
  janus run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	logger, err := logging.Setup(logging.Config{
		Level:  cfg.Telemetry.Logging.Level,
		Format: cfg.Telemetry.Logging.Format,
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Janus v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Rule store
	logger.Info("loading rule document", "path", cfg.Rules.FilePath)
	source := rules.NewFileSource(cfg.Rules.FilePath)
	snapshot, err := source.LoadSnapshot()
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to load rules: %w", err))
	}
	store := rules.NewStore(snapshot)
	fmt.Printf("✓ Rules loaded (version %s, %d rules)\n", snapshot.Version, snapshot.Len())

	if cfg.Rules.Watch {
		watcher, err := rules.NewWatcher(source, store, &rules.WatcherConfig{
			DebounceInterval: cfg.Rules.DebounceDelay,
		})
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to create rule watcher: %w", err))
		}
		if err := watcher.Start(ctx); err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to start rule watcher: %w", err))
		}
		defer watcher.Stop()
		fmt.Println("✓ Rule hot reload enabled")
	}

	// Audit ledger
	logger.Info("initializing audit ledger", "backend", cfg.Audit.Backend)
	auditBackend, err := openAuditStorage(cfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer auditBackend.Close()
	fmt.Println("✓ Audit ledger initialized")

	// Approval queue
	logger.Info("initializing approval queue", "backend", cfg.HITL.Backend)
	hitlBackend, err := openHITLStorage(cfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer hitlBackend.Close()
	fmt.Println("✓ Approval queue initialized")

	dispatcher := events.NewDispatcher(cfg.Events.BufferSize)
	registry := hitl.NewRegistry(hitlBackend, cfg.HITL.Directory(), cfg.HITL.DurationTable(), dispatcher)
	sweeper := sweep.NewSweeper(registry, &sweep.Config{
		Schedule:   cfg.HITL.SweepSchedule,
		Thresholds: cfg.HITL.ThresholdTable(),
	})
	collector := metrics.NewCollector(cfg.Telemetry.Metrics.Enabled, nil)

	eng := engine.New(engine.Options{
		Store:      store,
		Evaluator:  evaluator.New(logger),
		Registry:   registry,
		Sweeper:    sweeper,
		Chain:      audit.NewChain(auditBackend),
		Recorder:   trace.NewRecorder(logger),
		Dispatcher: dispatcher,
		Metrics:    collector,
	})
	defer eng.Close()

	if err := eng.Start(ctx); err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to start engine: %w", err))
	}
	if cfg.HITL.SweepSchedule != "" {
		fmt.Printf("✓ Sweep scheduler started (%s)\n", cfg.HITL.SweepSchedule)
	}

	srv := server.NewServer(&cfg.Server, &cfg.Telemetry.Metrics, eng, collector)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("starting admin server", "address", cfg.Server.ListenAddress)
		if err := srv.Start(ctx); err != nil {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/healthz\n", cfg.Server.ListenAddress)
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	sigChan := cli.WaitForShutdown()

	select {
	case err := <-errChan:
		return cli.NewCommandError("run", err)
	case sig := <-sigChan:
		fmt.Printf("\nReceived signal %s, shutting down gracefully...\n", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
			return cli.NewCommandError("run", err)
		}

		fmt.Println("✓ Server stopped")
		return nil
	}
}

func openAuditStorage(cfg *config.Config) (audit.Storage, error) {
	switch cfg.Audit.Backend {
	case "sqlite":
		backend, err := auditstorage.NewSQLiteStorage(&auditstorage.SQLiteConfig{
			Path:         cfg.Audit.SQLite.Path,
			MaxOpenConns: cfg.Audit.SQLite.MaxOpenConns,
			WALMode:      true,
			BusyTimeout:  cfg.Audit.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open audit store: %w", err)
		}
		return backend, nil
	case "memory":
		return auditstorage.NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unsupported audit backend: %s", cfg.Audit.Backend)
	}
}

func openHITLStorage(cfg *config.Config) (hitl.Storage, error) {
	switch cfg.HITL.Backend {
	case "sqlite":
		backend, err := hitlstorage.NewSQLiteStorage(&hitlstorage.SQLiteConfig{
			Path:         cfg.HITL.SQLite.Path,
			MaxOpenConns: cfg.HITL.SQLite.MaxOpenConns,
			BusyTimeout:  cfg.HITL.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open approval store: %w", err)
		}
		return backend, nil
	case "memory":
		return hitlstorage.NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("unsupported hitl backend: %s", cfg.HITL.Backend)
	}
}
