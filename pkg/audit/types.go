package audit

import (
	"context"
	"time"
)

// EventType classifies an audit event.
type EventType string

const (
	EventDecisionEvaluated EventType = "decision_evaluated"
	EventApprovalCreated   EventType = "approval_created"
	EventApprovalApproved  EventType = "approval_approved"
	EventApprovalRejected  EventType = "approval_rejected"
	EventApprovalEscalated EventType = "approval_escalated"
	EventApprovalExpired   EventType = "approval_expired"
	EventApprovalCancelled EventType = "approval_cancelled"
	EventTraceFinalized    EventType = "trace_finalized"
	EventSnapshotReloaded  EventType = "snapshot_reloaded"
)

// Event is the caller-supplied part of an audit record. The chain
// fills in identity, sequencing, hashing, and timestamps.
type Event struct {
	// Type classifies the event.
	Type EventType `json:"type"`

	// ActorID identifies who caused the event (reviewer ID, "system",
	// "scheduler", ...).
	ActorID string `json:"actor_id"`

	// Payload carries event-specific detail. It must be JSON
	// serializable; unserializable payloads are rejected before any
	// hash is computed.
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// Record is one entry in the per-tenant hash-chained audit ledger.
type Record struct {
	// ID uniquely identifies the record.
	ID string `json:"id"`

	// TenantID scopes the chain; sequence numbers and hash linkage are
	// per tenant.
	TenantID string `json:"tenant_id"`

	// SequenceNumber is monotonic per tenant, starting at 1.
	SequenceNumber uint64 `json:"sequence_number"`

	// EventType classifies the event.
	EventType EventType `json:"event_type"`

	// ActorID identifies who caused the event.
	ActorID string `json:"actor_id"`

	// Payload is the canonicalizable event detail.
	Payload map[string]interface{} `json:"payload,omitempty"`

	// Timestamp is when the record was appended. It is part of the
	// stored record and included in the record hash.
	Timestamp time.Time `json:"timestamp"`

	// PreviousHash is the prior record's RecordHash, or GenesisHash for
	// sequence 1.
	PreviousHash string `json:"previous_hash"`

	// RecordHash is the SHA-256 of the canonicalized record excluding
	// this field.
	RecordHash string `json:"record_hash"`
}

// VerificationResult reports the outcome of a chain verification walk.
type VerificationResult struct {
	// Valid is true when every record's hash and linkage check out.
	Valid bool `json:"valid"`

	// BreakAt is the sequence number of the first record that fails
	// verification; nil when the chain is intact.
	BreakAt *uint64 `json:"break_at,omitempty"`

	// Records is the number of records walked.
	Records int `json:"records"`

	// Reason describes the first failure, if any.
	Reason string `json:"reason,omitempty"`
}

// Storage is the persistence interface for audit records. Backends
// must return records in ascending sequence order from List.
type Storage interface {
	// Append persists a fully populated record.
	Append(ctx context.Context, record *Record) error

	// Latest returns the highest-sequence record for a tenant, or nil
	// if the tenant has no records.
	Latest(ctx context.Context, tenantID string) (*Record, error)

	// List returns all records for a tenant in ascending sequence order.
	List(ctx context.Context, tenantID string) ([]*Record, error)

	// Close releases backend resources.
	Close() error
}
