package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	// Rules defaults
	DefaultRulesFilePath = "./rules.yaml"
	DefaultRulesWatch    = false
	DefaultDebounceDelay = 500 * time.Millisecond

	// Storage defaults
	DefaultAuditBackend      = "sqlite"
	DefaultAuditSQLitePath   = "data/audit.db"
	DefaultHITLBackend       = "sqlite"
	DefaultHITLSQLitePath    = "data/approvals.db"
	DefaultSQLiteMaxConns    = 10
	DefaultSQLiteBusyTimeout = 5 * time.Second

	// HITL defaults
	DefaultSweepSchedule = "0 * * * *"

	// Events defaults
	DefaultEventBufferSize = 256

	// Telemetry defaults
	DefaultLoggingLevel   = "info"
	DefaultLoggingFormat  = "json"
	DefaultMetricsEnabled = true
	DefaultMetricsPath    = "/metrics"
)

// ApplyDefaults fills in default values for unset configuration
// fields. It modifies the configuration in place and never overwrites
// explicitly set values.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}

	// Rules defaults
	if cfg.Rules.FilePath == "" {
		cfg.Rules.FilePath = DefaultRulesFilePath
	}
	if cfg.Rules.DebounceDelay == 0 {
		cfg.Rules.DebounceDelay = DefaultDebounceDelay
	}

	// Audit defaults
	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = DefaultAuditBackend
	}
	if cfg.Audit.SQLite.Path == "" {
		cfg.Audit.SQLite.Path = DefaultAuditSQLitePath
	}
	applySQLiteDefaults(&cfg.Audit.SQLite)

	// HITL defaults
	if cfg.HITL.Backend == "" {
		cfg.HITL.Backend = DefaultHITLBackend
	}
	if cfg.HITL.SQLite.Path == "" {
		cfg.HITL.SQLite.Path = DefaultHITLSQLitePath
	}
	applySQLiteDefaults(&cfg.HITL.SQLite)
	if cfg.HITL.SweepSchedule == "" {
		cfg.HITL.SweepSchedule = DefaultSweepSchedule
	}

	// Events defaults
	if cfg.Events.BufferSize == 0 {
		cfg.Events.BufferSize = DefaultEventBufferSize
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
}

func applySQLiteDefaults(cfg *SQLiteConfig) {
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = DefaultSQLiteMaxConns
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = DefaultSQLiteBusyTimeout
	}
}

// NewDefaultConfig returns a configuration populated entirely with
// default values. Metrics are enabled by default.
func NewDefaultConfig() *Config {
	cfg := &Config{}
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	ApplyDefaults(cfg)
	return cfg
}
