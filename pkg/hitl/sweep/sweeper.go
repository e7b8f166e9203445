package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/janus/pkg/hitl"
	"mercator-hq/janus/pkg/rules"
)

// ThresholdTable maps HITL modes to SLA breach thresholds. A pending
// request whose SLA clock is older than its mode's threshold gets
// escalated one level on the next sweep.
type ThresholdTable map[rules.HITLMode]time.Duration

// DefaultThresholds returns the default per-mode breach thresholds.
func DefaultThresholds() ThresholdTable {
	return ThresholdTable{
		rules.ModeInform:   24 * time.Hour,
		rules.ModeDraft:    12 * time.Hour,
		rules.ModeExecute:  8 * time.Hour,
		rules.ModeEscalate: 1 * time.Hour,
	}
}

// For returns the threshold for a mode, falling back to the EXECUTE
// threshold for unlisted modes.
func (t ThresholdTable) For(mode rules.HITLMode) time.Duration {
	if d, ok := t[mode]; ok {
		return d
	}
	return t[rules.ModeExecute]
}

// Config contains configuration for the approval sweeper.
type Config struct {
	// Schedule is the cron expression for recurring sweeps. Empty
	// disables scheduled sweeps; sweeps can still be run manually.
	Schedule string

	// Thresholds are the per-mode SLA breach thresholds.
	Thresholds ThresholdTable
}

// DefaultConfig returns the default sweeper configuration: sweeps at
// the top of every hour.
func DefaultConfig() *Config {
	return &Config{
		Schedule:   "0 * * * *",
		Thresholds: DefaultThresholds(),
	}
}

// Sweeper runs the recurring SLA-breach and expiration sweeps over the
// approval queue. Each sweep escalates a breaching request at most one
// level; the escalation restarts the request's SLA clock, so the same
// breach is never escalated twice.
type Sweeper struct {
	registry *hitl.Registry
	config   *Config
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewSweeper creates a sweeper over the given registry.
func NewSweeper(registry *hitl.Registry, config *Config) *Sweeper {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Thresholds == nil {
		config.Thresholds = DefaultThresholds()
	}
	return &Sweeper{
		registry: registry,
		config:   config,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "hitl.sweeper"),
	}
}

// Start begins scheduled sweeps based on the cron expression. If the
// schedule is empty, Start does nothing.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.config.Schedule == "" {
		s.logger.Info("sweep schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.config.Schedule); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.config.Schedule, err)
	}

	_, err := s.cron.AddFunc(s.config.Schedule, func() {
		s.runSweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("approval sweeper started", "schedule", s.config.Schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

func (s *Sweeper) runSweep(ctx context.Context) {
	expired, err := s.ProcessExpirations(ctx)
	if err != nil {
		s.logger.Error("expiration sweep failed", "error", err)
	}
	escalated, err := s.ProcessSLAViolations(ctx)
	if err != nil {
		s.logger.Error("sla sweep failed", "error", err)
	}
	if expired > 0 || escalated > 0 {
		s.logger.Info("sweep completed", "expired", expired, "escalated", escalated)
	} else {
		s.logger.Debug("sweep completed, queue within sla")
	}
}

// ProcessSLAViolations escalates every PENDING request whose SLA clock
// (creation or last escalation) is older than its mode's breach
// threshold. Returns the number of requests escalated. Requests
// already flagged max_escalated are left alone.
func (s *Sweeper) ProcessSLAViolations(ctx context.Context) (int, error) {
	pending, err := s.registry.List(ctx, hitl.Filter{Status: hitl.StatusPending})
	if err != nil {
		return 0, fmt.Errorf("list pending approvals: %w", err)
	}

	now := time.Now().UTC()
	escalated := 0
	for _, request := range pending {
		if request.MaxEscalated {
			continue
		}
		threshold := s.config.Thresholds.For(request.Mode)
		elapsed := now.Sub(request.SLAClock())
		if elapsed <= threshold {
			continue
		}

		reason := fmt.Sprintf("sla breach: %s pending for %s, threshold %s",
			request.Mode, elapsed.Round(time.Minute), threshold)
		if _, err := s.registry.Escalate(ctx, request.ID, reason, "scheduler"); err != nil {
			s.logger.Error("escalation failed",
				"request_id", request.ID,
				"error", err,
			)
			continue
		}
		escalated++
	}
	return escalated, nil
}

// ProcessExpirations transitions PENDING requests past their deadline
// to EXPIRED. Returns the number of requests expired.
func (s *Sweeper) ProcessExpirations(ctx context.Context) (int, error) {
	pending, err := s.registry.List(ctx, hitl.Filter{Status: hitl.StatusPending})
	if err != nil {
		return 0, fmt.Errorf("list pending approvals: %w", err)
	}

	now := time.Now().UTC()
	expired := 0
	for _, request := range pending {
		if now.Before(request.ExpiresAt) {
			continue
		}
		if _, err := s.registry.Expire(ctx, request.ID); err != nil {
			s.logger.Error("expiration failed",
				"request_id", request.ID,
				"error", err,
			)
			continue
		}
		expired++
	}
	return expired, nil
}

// Stop stops the scheduler and waits for a running sweep to complete.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("approval sweeper stopped")
	}
}

// IsRunning returns true if scheduled sweeps are active.
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// NextRun returns the next scheduled sweep time.
func (s *Sweeper) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return nil
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
