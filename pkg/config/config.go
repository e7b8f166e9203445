package config

import (
	"time"

	"mercator-hq/janus/pkg/hitl"
	"mercator-hq/janus/pkg/hitl/sweep"
	"mercator-hq/janus/pkg/rules"
)

// Config is the root configuration structure for Janus. It contains
// all configuration sections for the admin server, rule store, audit
// ledger, approval workflow, and telemetry.
type Config struct {
	// Server contains admin HTTP server configuration including listen
	// address and timeouts.
	Server ServerConfig `yaml:"server"`

	// Rules contains configuration for the rule store including the
	// rule document path and watch mode.
	Rules RulesConfig `yaml:"rules"`

	// Audit contains configuration for the hash-chained audit ledger
	// including backend selection.
	Audit AuditConfig `yaml:"audit"`

	// HITL contains configuration for the approval workflow including
	// expiration windows, SLA thresholds, and the sweep schedule.
	HITL HITLConfig `yaml:"hitl"`

	// Events contains configuration for the notification dispatcher.
	Events EventsConfig `yaml:"events"`

	// Telemetry contains configuration for observability including
	// logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the admin HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port".
	// Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire
	// request, including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of
	// the response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum amount of time to wait for the next
	// request when keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful
	// shutdown before in-flight requests are dropped.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// RulesConfig contains configuration for the rule store.
type RulesConfig struct {
	// FilePath is the path to the tiered rule document.
	// Default: "./rules.yaml"
	FilePath string `yaml:"file_path"`

	// Watch enables hot reload of the rule document on file change.
	// Invalid documents keep the last good snapshot.
	// Default: false
	Watch bool `yaml:"watch"`

	// DebounceDelay is how long the watcher waits after the last file
	// event before reloading, absorbing editor write bursts.
	// Default: 500ms
	DebounceDelay time.Duration `yaml:"debounce_delay"`
}

// AuditConfig contains configuration for the audit ledger.
type AuditConfig struct {
	// Backend selects the storage backend.
	// Options: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite backend settings.
	SQLite SQLiteConfig `yaml:"sqlite"`
}

// SQLiteConfig contains settings shared by the SQLite backends.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// HITLConfig contains configuration for the approval workflow.
type HITLConfig struct {
	// Backend selects the approval queue storage backend.
	// Options: "memory", "sqlite"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite backend settings.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Durations are the per-mode expiration windows for approval
	// requests.
	Durations ModeDurations `yaml:"durations"`

	// SLAThresholds are the per-mode pending ages past which a request
	// is escalated one level on the next sweep.
	SLAThresholds ModeDurations `yaml:"sla_thresholds"`

	// SweepSchedule is the cron expression for recurring SLA and
	// expiration sweeps. Empty disables scheduled sweeps.
	// Default: "0 * * * *" (hourly)
	SweepSchedule string `yaml:"sweep_schedule"`

	// Reviewers is the static reviewer roster for assignment. Empty
	// leaves new requests unassigned until a directory is wired in.
	Reviewers []ReviewerConfig `yaml:"reviewers"`
}

// ReviewerConfig is one entry in the static reviewer roster.
type ReviewerConfig struct {
	// ID is the reviewer identifier.
	ID string `yaml:"id"`

	// Level is the reviewer's escalation rank, 1 through 4.
	Level int `yaml:"level"`

	// Unavailable removes the reviewer from assignment without
	// deleting the entry.
	Unavailable bool `yaml:"unavailable"`
}

// ModeDurations is a per-HITL-mode duration table as it appears in
// the configuration file.
type ModeDurations struct {
	Inform   time.Duration `yaml:"inform"`
	Draft    time.Duration `yaml:"draft"`
	Execute  time.Duration `yaml:"execute"`
	Escalate time.Duration `yaml:"escalate"`
}

// Table converts the configured durations to the workflow's runtime
// table, dropping unset (zero) entries so package defaults apply.
func (d ModeDurations) Table() map[rules.HITLMode]time.Duration {
	table := make(map[rules.HITLMode]time.Duration)
	if d.Inform > 0 {
		table[rules.ModeInform] = d.Inform
	}
	if d.Draft > 0 {
		table[rules.ModeDraft] = d.Draft
	}
	if d.Execute > 0 {
		table[rules.ModeExecute] = d.Execute
	}
	if d.Escalate > 0 {
		table[rules.ModeEscalate] = d.Escalate
	}
	return table
}

// DurationTable returns the configured expiration windows merged over
// the workflow defaults.
func (c *HITLConfig) DurationTable() hitl.DurationTable {
	table := hitl.DefaultDurations()
	for mode, d := range c.Durations.Table() {
		table[mode] = d
	}
	return table
}

// Directory builds the static reviewer directory from the configured
// roster.
func (c *HITLConfig) Directory() *hitl.StaticDirectory {
	rows := make([]hitl.Reviewer, 0, len(c.Reviewers))
	for _, r := range c.Reviewers {
		rows = append(rows, hitl.Reviewer{
			ID:        r.ID,
			Level:     hitl.Level(r.Level),
			Available: !r.Unavailable,
		})
	}
	return hitl.NewStaticDirectory(rows)
}

// ThresholdTable returns the configured SLA thresholds merged over the
// sweep defaults.
func (c *HITLConfig) ThresholdTable() sweep.ThresholdTable {
	table := sweep.DefaultThresholds()
	for mode, d := range c.SLAThresholds.Table() {
		table[mode] = d
	}
	return table
}

// EventsConfig contains configuration for the notification
// dispatcher.
type EventsConfig struct {
	// BufferSize is the dispatch channel capacity. Events published
	// while the buffer is full are dropped, never blocking a state
	// transition.
	// Default: 256
	BufferSize int `yaml:"buffer_size"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format selects the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether the /metrics endpoint is served.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`
}
