package trace

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/janus/pkg/audit"
	"mercator-hq/janus/pkg/evaluator"
)

// ErrFinalized is returned by any attempt to mutate a finalized trace.
var ErrFinalized = errors.New("trace: already finalized")

// Outcome labels how a governed computation ended.
type Outcome string

const (
	OutcomeReleased Outcome = "released"
	OutcomeBlocked  Outcome = "blocked"
	OutcomeApproved Outcome = "approved"
	OutcomeRejected Outcome = "rejected"
	OutcomeExpired  Outcome = "expired"
	OutcomePending  Outcome = "pending"
)

// Inputs captures the classification labels and context a decision was
// computed from.
type Inputs struct {
	TenantID string                 `json:"tenant_id"`
	Intent   string                 `json:"intent,omitempty"`
	Risk     string                 `json:"risk,omitempty"`
	Context  map[string]interface{} `json:"context,omitempty"`
}

// DecisionTrace is one full governance computation: inputs, the merged
// decision with its provenance, an optional link to the approval
// request that resolved it, and the outcome. Once finalized the trace
// is immutable and carries a deterministic hash.
//
// The trace hash is stricter than the audit chain's: every
// timestamp-bearing field is excluded from the hashed payload, so two
// traces built from logically identical inputs at different wall-clock
// times hash identically.
type DecisionTrace struct {
	ID            string             `json:"id"`
	Inputs        Inputs             `json:"inputs"`
	Decision      evaluator.Decision `json:"decision"`
	ResolutionRef string             `json:"resolution_ref,omitempty"`
	Outcome       Outcome            `json:"outcome"`
	CreatedAt     time.Time          `json:"created_at"`
	FinalizedAt   *time.Time         `json:"finalized_at,omitempty"`
	TraceHash     string             `json:"trace_hash,omitempty"`

	mu        sync.Mutex
	finalized bool
}

// ComputeHash returns the deterministic hash of the trace content.
// Timestamps (and the hash field itself) are not part of the hashed
// payload.
func (t *DecisionTrace) ComputeHash() (string, error) {
	return audit.Hash(t.hashableView(), audit.CanonicalOptions{ExcludeTimestamps: true})
}

// hashableView builds the canonical payload. The trace ID is excluded
// along with timestamps: identity and timing are storage concerns,
// not part of the logical computation.
func (t *DecisionTrace) hashableView() map[string]interface{} {
	return map[string]interface{}{
		"inputs":         t.Inputs,
		"decision":       t.Decision,
		"resolution_ref": t.ResolutionRef,
		"outcome":        string(t.Outcome),
	}
}

// SetResolution links the trace to the approval request that resolved
// it. Fails on a finalized trace.
func (t *DecisionTrace) SetResolution(ref string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.finalized {
		return ErrFinalized
	}
	t.ResolutionRef = ref
	return nil
}

// SetOutcome records how the computation ended. Fails on a finalized
// trace.
func (t *DecisionTrace) SetOutcome(outcome Outcome) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.finalized {
		return ErrFinalized
	}
	t.Outcome = outcome
	return nil
}

// Finalize computes the trace hash and locks the trace. A second
// Finalize, like any other mutation, fails with ErrFinalized.
func (t *DecisionTrace) Finalize() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.finalized {
		return ErrFinalized
	}

	hash, err := t.ComputeHash()
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	t.TraceHash = hash
	t.FinalizedAt = &now
	t.finalized = true
	return nil
}

// Finalized reports whether the trace has been locked.
func (t *DecisionTrace) Finalized() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.finalized
}

// Recorder builds decision traces.
type Recorder struct {
	logger *slog.Logger
}

// NewRecorder creates a trace recorder.
func NewRecorder(logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		logger: logger.With("component", "trace.recorder"),
	}
}

// Record captures one evaluation as a mutable (until finalized) trace.
func (r *Recorder) Record(inputs Inputs, decision evaluator.Decision, resolutionRef string, outcome Outcome) *DecisionTrace {
	t := &DecisionTrace{
		ID:            uuid.NewString(),
		Inputs:        inputs,
		Decision:      decision,
		ResolutionRef: resolutionRef,
		Outcome:       outcome,
		CreatedAt:     time.Now().UTC(),
	}

	r.logger.Debug("decision trace recorded",
		"trace_id", t.ID,
		"tenant_id", inputs.TenantID,
		"outcome", outcome,
	)
	return t
}
