package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"mercator-hq/janus/pkg/hitl"
)

// FieldError represents a validation error for a specific
// configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field
	// (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a
// configuration. It implements the error interface and provides
// access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a
// ValidationError if any validation rules fail. All validation errors
// are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateRules(&cfg.Rules)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateHITL(&cfg.HITL)...)
	errs = append(errs, validateEvents(&cfg.Events)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: "listen address is required",
		})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	if cfg.ShutdownTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "server.shutdown_timeout",
			Message: "shutdown timeout must be positive",
		})
	}
	return errs
}

func validateRules(cfg *RulesConfig) []FieldError {
	var errs []FieldError

	if cfg.FilePath == "" {
		errs = append(errs, FieldError{
			Field:   "rules.file_path",
			Message: "rule document path is required",
		})
	}
	if cfg.DebounceDelay < 0 {
		errs = append(errs, FieldError{
			Field:   "rules.debounce_delay",
			Message: "debounce delay must be positive",
		})
	}
	return errs
}

func validateAudit(cfg *AuditConfig) []FieldError {
	return validateBackend("audit", cfg.Backend, &cfg.SQLite)
}

func validateHITL(cfg *HITLConfig) []FieldError {
	errs := validateBackend("hitl", cfg.Backend, &cfg.SQLite)

	errs = append(errs, validateModeDurations("hitl.durations", cfg.Durations)...)
	errs = append(errs, validateModeDurations("hitl.sla_thresholds", cfg.SLAThresholds)...)

	if cfg.SweepSchedule != "" {
		if _, err := cron.ParseStandard(cfg.SweepSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "hitl.sweep_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}

	for i, r := range cfg.Reviewers {
		if r.ID == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("hitl.reviewers[%d].id", i),
				Message: "reviewer id is required",
			})
		}
		if r.Level < int(hitl.LevelL1) || r.Level > int(hitl.MaxLevel) {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("hitl.reviewers[%d].level", i),
				Message: fmt.Sprintf("level must be between %d and %d, got %d", hitl.LevelL1, hitl.MaxLevel, r.Level),
			})
		}
	}
	return errs
}

func validateBackend(section, backend string, sqlite *SQLiteConfig) []FieldError {
	var errs []FieldError

	switch backend {
	case "memory":
	case "sqlite":
		if sqlite.Path == "" {
			errs = append(errs, FieldError{
				Field:   section + ".sqlite.path",
				Message: "sqlite path is required for the sqlite backend",
			})
		}
		if sqlite.MaxOpenConns < 0 {
			errs = append(errs, FieldError{
				Field:   section + ".sqlite.max_open_conns",
				Message: "max open connections must be positive",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   section + ".backend",
			Message: fmt.Sprintf("unknown backend %q (must be \"memory\" or \"sqlite\")", backend),
		})
	}
	return errs
}

func validateModeDurations(field string, d ModeDurations) []FieldError {
	var errs []FieldError
	for name, value := range map[string]int64{
		"inform":   int64(d.Inform),
		"draft":    int64(d.Draft),
		"execute":  int64(d.Execute),
		"escalate": int64(d.Escalate),
	} {
		if value < 0 {
			errs = append(errs, FieldError{
				Field:   field + "." + name,
				Message: "duration must be positive",
			})
		}
	}
	return errs
}

func validateEvents(cfg *EventsConfig) []FieldError {
	var errs []FieldError
	if cfg.BufferSize < 0 {
		errs = append(errs, FieldError{
			Field:   "events.buffer_size",
			Message: "buffer size must be positive",
		})
	}
	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("unknown log level %q", cfg.Logging.Level),
		})
	}

	switch cfg.Logging.Format {
	case "json", "text", "console":
	default:
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("unknown log format %q", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}
	return errs
}
