package engine

import (
	"context"
	"log/slog"
	"time"

	"mercator-hq/janus/pkg/audit"
	"mercator-hq/janus/pkg/evaluator"
	"mercator-hq/janus/pkg/events"
	"mercator-hq/janus/pkg/hitl"
	"mercator-hq/janus/pkg/hitl/sweep"
	"mercator-hq/janus/pkg/rules"
	"mercator-hq/janus/pkg/telemetry/metrics"
	"mercator-hq/janus/pkg/trace"
)

// Engine wires the governance subsystems together: the rule store and
// evaluator, the approval registry and its sweeper, the audit chain,
// the trace recorder, the event dispatcher, and metrics. All
// dependencies are injected explicitly; there are no package-level
// singletons.
type Engine struct {
	store      *rules.Store
	evaluator  *evaluator.Evaluator
	registry   *hitl.Registry
	sweeper    *sweep.Sweeper
	chain      *audit.Chain
	recorder   *trace.Recorder
	dispatcher *events.Dispatcher
	metrics    *metrics.Collector
	logger     *slog.Logger
}

// Options collects the engine's dependencies. Store, Evaluator,
// Registry, and Chain are required; the rest may be nil (sweeping,
// tracing, notifications, and metrics are then disabled).
type Options struct {
	Store      *rules.Store
	Evaluator  *evaluator.Evaluator
	Registry   *hitl.Registry
	Sweeper    *sweep.Sweeper
	Chain      *audit.Chain
	Recorder   *trace.Recorder
	Dispatcher *events.Dispatcher
	Metrics    *metrics.Collector
}

// New creates an engine and subscribes it to the event dispatcher so
// every approval lifecycle transition lands in the audit ledger,
// wherever it was initiated (reviewer call or scheduler sweep).
func New(opts Options) *Engine {
	e := &Engine{
		store:      opts.Store,
		evaluator:  opts.Evaluator,
		registry:   opts.Registry,
		sweeper:    opts.Sweeper,
		chain:      opts.Chain,
		recorder:   opts.Recorder,
		dispatcher: opts.Dispatcher,
		metrics:    opts.Metrics,
		logger:     slog.Default().With("component", "engine"),
	}
	if e.metrics == nil {
		e.metrics = metrics.NewCollector(false, nil)
	}
	if e.dispatcher != nil {
		e.dispatcher.Subscribe(e.consumeEvent)
	}
	return e
}

// Start begins background work: the scheduled SLA and expiration
// sweeps, if a sweeper was provided.
func (e *Engine) Start(ctx context.Context) error {
	if e.sweeper != nil {
		if err := e.sweeper.Start(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close stops background work and the event dispatcher. Storage
// backends are owned and closed by the caller that opened them.
func (e *Engine) Close() {
	if e.sweeper != nil {
		e.sweeper.Stop()
	}
	if e.dispatcher != nil {
		e.dispatcher.Close()
	}
}

// Evaluate runs the policy evaluation for the given context against
// the current rule snapshot and appends a decision_evaluated record to
// the tenant's audit chain.
func (e *Engine) Evaluate(ctx context.Context, ec *evaluator.Context) (evaluator.Decision, error) {
	snapshot := e.store.Snapshot()
	decision := e.evaluator.Evaluate(ctx, ec, snapshot)

	e.metrics.RecordEvaluation(string(decision.Mode), len(decision.TriggeredRuleIDs), decision.EvaluationTime)

	_, err := e.chain.Append(ctx, ec.TenantID, audit.Event{
		Type:    audit.EventDecisionEvaluated,
		ActorID: "system",
		Payload: map[string]interface{}{
			"agent_id":           ec.AgentID,
			"intent":             ec.Intent,
			"risk":               ec.Risk,
			"mode":               string(decision.Mode),
			"tools_allowed":      decision.ToolsAllowed,
			"approval_required":  decision.ApprovalRequired,
			"local_only":         decision.LocalOnly,
			"triggered_rule_ids": decision.TriggeredRuleIDs,
			"snapshot_version":   decision.SnapshotVersion,
		},
	})
	if err != nil {
		return decision, err
	}
	e.metrics.RecordAuditAppend(string(audit.EventDecisionEvaluated))

	return decision, nil
}

// CreateApproval opens an approval request for a decision that
// requires human sign-off.
func (e *Engine) CreateApproval(ctx context.Context, tenantID string, mode rules.HITLMode, payload map[string]interface{}) (*hitl.ApprovalRequest, error) {
	return e.registry.Create(ctx, tenantID, mode, payload)
}

// Approve resolves a pending approval request positively.
func (e *Engine) Approve(ctx context.Context, id, reviewerID, notes string) (*hitl.ApprovalRequest, error) {
	return e.registry.Approve(ctx, id, reviewerID, notes)
}

// Reject resolves a pending approval request negatively.
func (e *Engine) Reject(ctx context.Context, id, reviewerID, reason string) (*hitl.ApprovalRequest, error) {
	return e.registry.Reject(ctx, id, reviewerID, reason)
}

// Escalate advances a pending approval request one reviewer level.
func (e *Engine) Escalate(ctx context.Context, id, reason, actorID string) (*hitl.ApprovalRequest, error) {
	return e.registry.Escalate(ctx, id, reason, actorID)
}

// Cancel terminates a pending approval request without resolution.
func (e *Engine) Cancel(ctx context.Context, id, actorID string) (*hitl.ApprovalRequest, error) {
	return e.registry.Cancel(ctx, id, actorID)
}

// GetApproval returns an approval request by ID.
func (e *Engine) GetApproval(ctx context.Context, id string) (*hitl.ApprovalRequest, error) {
	return e.registry.Get(ctx, id)
}

// ListApprovals returns approval requests matching the filter.
func (e *Engine) ListApprovals(ctx context.Context, filter hitl.Filter) ([]*hitl.ApprovalRequest, error) {
	return e.registry.List(ctx, filter)
}

// AppendAudit appends an arbitrary event to a tenant's audit chain.
func (e *Engine) AppendAudit(ctx context.Context, tenantID string, event audit.Event) (*audit.Record, error) {
	record, err := e.chain.Append(ctx, tenantID, event)
	if err != nil {
		return nil, err
	}
	e.metrics.RecordAuditAppend(string(event.Type))
	return record, nil
}

// VerifyChain verifies a tenant's audit chain end to end.
func (e *Engine) VerifyChain(ctx context.Context, tenantID string) (*audit.VerificationResult, error) {
	result, err := e.chain.Verify(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	e.metrics.RecordAuditVerification(result.Valid)
	return result, nil
}

// RecordTrace captures an evaluation as a finalized decision trace and
// appends a trace_finalized record to the tenant's audit chain.
func (e *Engine) RecordTrace(ctx context.Context, inputs trace.Inputs, decision evaluator.Decision, resolutionRef string, outcome trace.Outcome) (*trace.DecisionTrace, error) {
	t := e.recorder.Record(inputs, decision, resolutionRef, outcome)
	if err := t.Finalize(); err != nil {
		return nil, err
	}
	e.metrics.RecordTraceFinalized()

	_, err := e.chain.Append(ctx, inputs.TenantID, audit.Event{
		Type:    audit.EventTraceFinalized,
		ActorID: "system",
		Payload: map[string]interface{}{
			"trace_id":       t.ID,
			"trace_hash":     t.TraceHash,
			"outcome":        string(t.Outcome),
			"resolution_ref": t.ResolutionRef,
		},
	})
	if err != nil {
		return nil, err
	}
	e.metrics.RecordAuditAppend(string(audit.EventTraceFinalized))

	return t, nil
}

// ProcessSweeps runs one SLA sweep and one expiration sweep on demand,
// outside the cron schedule.
func (e *Engine) ProcessSweeps(ctx context.Context) (escalated, expired int, err error) {
	if e.sweeper == nil {
		return 0, 0, nil
	}
	expired, err = e.sweeper.ProcessExpirations(ctx)
	if err != nil {
		return 0, expired, err
	}
	escalated, err = e.sweeper.ProcessSLAViolations(ctx)
	return escalated, expired, err
}

// eventAudit maps workflow event types to audit event types.
var eventAudit = map[events.Type]audit.EventType{
	events.TypeApprovalCreated:   audit.EventApprovalCreated,
	events.TypeApprovalApproved:  audit.EventApprovalApproved,
	events.TypeApprovalRejected:  audit.EventApprovalRejected,
	events.TypeApprovalEscalated: audit.EventApprovalEscalated,
	events.TypeApprovalExpired:   audit.EventApprovalExpired,
	events.TypeApprovalCancelled: audit.EventApprovalCancelled,
}

// consumeEvent turns one approval lifecycle event into an audit record
// and metrics. The registry publishes exactly one event per committed
// transition, so the ledger never records idempotent retries.
func (e *Engine) consumeEvent(event events.Event) {
	eventType, ok := eventAudit[event.Type]
	if !ok {
		return
	}

	e.metrics.RecordApprovalEvent(shortEventName(event.Type), event.Mode)
	if event.Type == events.TypeApprovalEscalated {
		if to, ok := event.Detail["to_level"].(string); ok {
			e.metrics.RecordEscalation(to)
		}
	}

	payload := map[string]interface{}{
		"request_id": event.RequestID,
		"mode":       event.Mode,
	}
	for k, v := range event.Detail {
		payload[k] = v
	}

	if _, err := e.chain.Append(context.Background(), event.TenantID, audit.Event{
		Type:    eventType,
		ActorID: event.ActorID,
		Payload: payload,
	}); err != nil {
		e.logger.Error("audit append for lifecycle event failed",
			"event_type", event.Type,
			"request_id", event.RequestID,
			"error", err,
		)
		return
	}
	e.metrics.RecordAuditAppend(string(eventType))
}

// shortEventName strips the "approval_" prefix for metric labels.
func shortEventName(t events.Type) string {
	const prefix = "approval_"
	s := string(t)
	if len(s) > len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):]
	}
	return s
}

// RefreshOpenApprovals recounts pending requests and updates the
// open-approvals gauge. Intended to be called periodically or after
// bursts of transitions.
func (e *Engine) RefreshOpenApprovals(ctx context.Context) error {
	pending, err := e.registry.List(ctx, hitl.Filter{Status: hitl.StatusPending})
	if err != nil {
		return err
	}
	e.metrics.SetOpenApprovals(len(pending))
	return nil
}

// WaitForEvents gives in-flight dispatcher deliveries a chance to
// drain, bounded by the timeout. Useful before shutdown and in tests;
// delivery remains asynchronous and unordered.
func (e *Engine) WaitForEvents(timeout time.Duration) {
	if e.dispatcher == nil {
		return
	}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if e.dispatcher.Pending() == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
}
