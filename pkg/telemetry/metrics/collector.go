package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector manages the Prometheus metrics for all Janus subsystems:
// policy evaluation, the approval workflow, the audit ledger, and
// decision traces. Metric instances are pre-allocated at construction
// and registered on a dedicated registry.
type Collector struct {
	enabled  bool
	registry *prometheus.Registry

	// Evaluation metrics
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	matchedRules       prometheus.Histogram

	// Approval workflow metrics
	approvalEvents *prometheus.CounterVec
	approvalsOpen  prometheus.Gauge
	escalations    *prometheus.CounterVec

	// Audit ledger metrics
	auditAppends       *prometheus.CounterVec
	auditVerifications *prometheus.CounterVec

	// Trace metrics
	tracesFinalized prometheus.Counter
}

// NewCollector creates a metrics collector on the given registry. If
// registry is nil a new one is created. A disabled collector keeps all
// Record methods as no-ops.
func NewCollector(enabled bool, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		enabled:  enabled,
		registry: registry,

		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "janus",
				Name:      "evaluations_total",
				Help:      "Total number of policy evaluations by resulting mode",
			},
			[]string{"mode"},
		),
		evaluationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "janus",
				Name:      "evaluation_duration_seconds",
				Help:      "Duration of policy evaluations in seconds",
				Buckets:   []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05},
			},
		),
		matchedRules: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "janus",
				Name:      "evaluation_matched_rules",
				Help:      "Number of rules matched per evaluation",
				Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
			},
		),

		approvalEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "janus",
				Name:      "approval_events_total",
				Help:      "Approval lifecycle transitions by event and mode",
			},
			[]string{"event", "mode"},
		),
		approvalsOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "janus",
				Name:      "approvals_open",
				Help:      "Number of approval requests currently pending",
			},
		),
		escalations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "janus",
				Name:      "escalations_total",
				Help:      "Approval escalations by destination level",
			},
			[]string{"to_level"},
		),

		auditAppends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "janus",
				Name:      "audit_appends_total",
				Help:      "Audit records appended by event type",
			},
			[]string{"event_type"},
		),
		auditVerifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "janus",
				Name:      "audit_verifications_total",
				Help:      "Audit chain verifications by result",
			},
			[]string{"result"},
		),

		tracesFinalized: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "janus",
				Name:      "traces_finalized_total",
				Help:      "Decision traces finalized",
			},
		),
	}

	registry.MustRegister(
		c.evaluationsTotal,
		c.evaluationDuration,
		c.matchedRules,
		c.approvalEvents,
		c.approvalsOpen,
		c.escalations,
		c.auditAppends,
		c.auditVerifications,
		c.tracesFinalized,
	)

	return c
}

// RecordEvaluation records a completed policy evaluation.
func (c *Collector) RecordEvaluation(mode string, matched int, duration time.Duration) {
	if !c.enabled {
		return
	}
	c.evaluationsTotal.WithLabelValues(mode).Inc()
	c.evaluationDuration.Observe(duration.Seconds())
	c.matchedRules.Observe(float64(matched))
}

// RecordApprovalEvent records an approval lifecycle transition
// ("created", "approved", "rejected", "escalated", "expired",
// "cancelled").
func (c *Collector) RecordApprovalEvent(event, mode string) {
	if !c.enabled {
		return
	}
	c.approvalEvents.WithLabelValues(event, mode).Inc()
}

// SetOpenApprovals updates the pending-approvals gauge.
func (c *Collector) SetOpenApprovals(count int) {
	if !c.enabled {
		return
	}
	c.approvalsOpen.Set(float64(count))
}

// RecordEscalation records an escalation to the given level.
func (c *Collector) RecordEscalation(toLevel string) {
	if !c.enabled {
		return
	}
	c.escalations.WithLabelValues(toLevel).Inc()
}

// RecordAuditAppend records an appended audit record.
func (c *Collector) RecordAuditAppend(eventType string) {
	if !c.enabled {
		return
	}
	c.auditAppends.WithLabelValues(eventType).Inc()
}

// RecordAuditVerification records a chain verification outcome.
func (c *Collector) RecordAuditVerification(valid bool) {
	if !c.enabled {
		return
	}
	result := "valid"
	if !valid {
		result = "broken"
	}
	c.auditVerifications.WithLabelValues(result).Inc()
}

// RecordTraceFinalized records a finalized decision trace.
func (c *Collector) RecordTraceFinalized() {
	if !c.enabled {
		return
	}
	c.tracesFinalized.Inc()
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
