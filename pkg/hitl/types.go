package hitl

import (
	"context"
	"time"

	"mercator-hq/janus/pkg/rules"
)

// Status is the lifecycle state of an approval request.
// PENDING is the only non-terminal state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusExpired   Status = "EXPIRED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s != StatusPending
}

// Level is a reviewer escalation rank.
type Level int

const (
	LevelL1 Level = 1
	LevelL2 Level = 2
	LevelL3 Level = 3
	LevelL4 Level = 4

	// MaxLevel is the highest escalation rank; past it a breaching
	// request is flagged max_escalated instead of escalating further.
	MaxLevel = LevelL4
)

func (l Level) String() string {
	switch l {
	case LevelL1:
		return "L1"
	case LevelL2:
		return "L2"
	case LevelL3:
		return "L3"
	case LevelL4:
		return "L4"
	default:
		return "L?"
	}
}

// LevelForMode returns the minimum reviewer level a mode requires at
// creation. ESCALATE-mode requests enter the queue already elevated.
func LevelForMode(mode rules.HITLMode) Level {
	switch mode {
	case rules.ModeExecute:
		return LevelL2
	case rules.ModeEscalate:
		return LevelL3
	default:
		return LevelL1
	}
}

// EscalationStep is one entry in a request's escalation history.
type EscalationStep struct {
	FromLevel Level     `json:"from_level"`
	ToLevel   Level     `json:"to_level"`
	Reason    string    `json:"reason"`
	At        time.Time `json:"at"`
}

// ApprovalRequest is one item in the human-approval queue.
type ApprovalRequest struct {
	ID       string         `json:"id"`
	TenantID string         `json:"tenant_id"`
	Mode     rules.HITLMode `json:"mode"`
	Status   Status         `json:"status"`

	// Payload summarizes what is being approved (decision provenance,
	// request context extract). Opaque to the registry.
	Payload map[string]interface{} `json:"payload,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	AssignedReviewerID string `json:"assigned_reviewer_id,omitempty"`

	EscalationLevel   Level            `json:"escalation_level"`
	EscalationHistory []EscalationStep `json:"escalation_history,omitempty"`

	// LastEscalatedAt anchors the SLA clock after an escalation; zero
	// until the first escalation.
	LastEscalatedAt time.Time `json:"last_escalated_at,omitempty"`

	// MaxEscalated is set when an SLA breach at MaxLevel had nowhere
	// left to go. The request stays PENDING and visible for manual
	// intervention.
	MaxEscalated bool `json:"max_escalated,omitempty"`

	ResolvedBy      string     `json:"resolved_by,omitempty"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	ResolutionNotes string     `json:"resolution_notes,omitempty"`
}

// SLAClock returns the reference instant for SLA-breach measurement:
// the last escalation if there was one, otherwise creation.
func (a *ApprovalRequest) SLAClock() time.Time {
	if !a.LastEscalatedAt.IsZero() {
		return a.LastEscalatedAt
	}
	return a.CreatedAt
}

// Reviewer is a read-only snapshot row from the external reviewer
// directory.
type Reviewer struct {
	ID              string `json:"id"`
	Level           Level  `json:"level"`
	CurrentWorkload int    `json:"current_workload"`
	Available       bool   `json:"available"`
}

// Directory supplies reviewer snapshots. The directory is owned by an
// external system; the registry only ever reads it.
type Directory interface {
	Reviewers(ctx context.Context) ([]Reviewer, error)
}

// StaticDirectory is a fixed in-memory Directory for tests and
// single-node deployments.
type StaticDirectory struct {
	rows []Reviewer
}

// NewStaticDirectory creates a directory over a fixed reviewer list.
func NewStaticDirectory(rows []Reviewer) *StaticDirectory {
	return &StaticDirectory{rows: rows}
}

// Reviewers returns the fixed snapshot.
func (d *StaticDirectory) Reviewers(ctx context.Context) ([]Reviewer, error) {
	out := make([]Reviewer, len(d.rows))
	copy(out, d.rows)
	return out, nil
}

// DurationTable maps HITL modes to expiration windows. It is
// configuration, not hardcoded business policy.
type DurationTable map[rules.HITLMode]time.Duration

// DefaultDurations returns the default per-mode expiration windows.
func DefaultDurations() DurationTable {
	return DurationTable{
		rules.ModeInform:   72 * time.Hour,
		rules.ModeDraft:    48 * time.Hour,
		rules.ModeExecute:  48 * time.Hour,
		rules.ModeEscalate: 4 * time.Hour,
	}
}

// For returns the window for a mode, falling back to the EXECUTE
// window for unlisted modes.
func (t DurationTable) For(mode rules.HITLMode) time.Duration {
	if d, ok := t[mode]; ok {
		return d
	}
	return t[rules.ModeExecute]
}

// Filter selects approval requests by the queue's secondary index.
type Filter struct {
	Status Status         // "" matches all statuses
	Mode   rules.HITLMode // "" matches all modes
}

// Storage is the persistence interface for the approval queue, keyed
// by id and indexed by (status, mode).
type Storage interface {
	Create(ctx context.Context, request *ApprovalRequest) error
	Get(ctx context.Context, id string) (*ApprovalRequest, error)
	Update(ctx context.Context, request *ApprovalRequest) error
	List(ctx context.Context, filter Filter) ([]*ApprovalRequest, error)
	Close() error
}
