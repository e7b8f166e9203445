package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Chain is the append-only, hash-linked audit ledger. Appends are
// strictly serialized per tenant to preserve unbroken sequence
// numbering; different tenants append independently and in parallel.
type Chain struct {
	storage Storage
	logger  *slog.Logger

	mu      sync.Mutex
	tenants map[string]*sync.Mutex
}

// NewChain creates a chain over the given storage backend.
func NewChain(storage Storage) *Chain {
	return &Chain{
		storage: storage,
		logger:  slog.Default().With("component", "audit.chain"),
		tenants: make(map[string]*sync.Mutex),
	}
}

// tenantLock returns the per-tenant append lock, creating it on first use.
func (c *Chain) tenantLock(tenantID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock, ok := c.tenants[tenantID]
	if !ok {
		lock = &sync.Mutex{}
		c.tenants[tenantID] = lock
	}
	return lock
}

// Append writes the event to the tenant's chain. It reads the latest
// record, links the new record to it (or to the genesis sentinel),
// computes the record hash over the canonicalized content, and
// persists it.
//
// An unserializable payload is rejected with a PayloadError before any
// hash is computed. Append never inspects earlier records beyond the
// chain tail, so prior corruption cannot make appends fail; append and
// verify are independent operations.
func (c *Chain) Append(ctx context.Context, tenantID string, event Event) (*Record, error) {
	if tenantID == "" {
		return nil, ErrEmptyTenant
	}
	if event.Type == "" {
		return nil, fmt.Errorf("audit: event type must not be empty")
	}

	// Validate serializability up front, before taking the tenant lock
	// and before anything is hashed.
	if event.Payload != nil {
		if _, err := json.Marshal(event.Payload); err != nil {
			return nil, &PayloadError{TenantID: tenantID, Cause: err}
		}
	}

	lock := c.tenantLock(tenantID)
	lock.Lock()
	defer lock.Unlock()

	latest, err := c.storage.Latest(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	record := &Record{
		ID:             uuid.NewString(),
		TenantID:       tenantID,
		SequenceNumber: 1,
		EventType:      event.Type,
		ActorID:        event.ActorID,
		Payload:        event.Payload,
		Timestamp:      time.Now().UTC(),
		PreviousHash:   GenesisHash,
	}
	if latest != nil {
		record.SequenceNumber = latest.SequenceNumber + 1
		record.PreviousHash = latest.RecordHash
	}

	hash, err := hashRecord(record)
	if err != nil {
		return nil, err
	}
	record.RecordHash = hash

	if err := c.storage.Append(ctx, record); err != nil {
		return nil, err
	}

	c.logger.Debug("audit record appended",
		"tenant_id", tenantID,
		"sequence", record.SequenceNumber,
		"event_type", record.EventType,
	)

	return record, nil
}

// Verify walks the tenant's full chain in sequence order, recomputing
// every hash and checking linkage and sequence continuity. On the
// first mismatch it reports the exact sequence number where the chain
// breaks.
func (c *Chain) Verify(ctx context.Context, tenantID string) (*VerificationResult, error) {
	if tenantID == "" {
		return nil, ErrEmptyTenant
	}

	records, err := c.storage.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	prevHash := GenesisHash
	var prevSeq uint64

	for _, record := range records {
		if record.SequenceNumber != prevSeq+1 {
			return breakAt(record.SequenceNumber, len(records),
				fmt.Sprintf("sequence gap: got %d after %d", record.SequenceNumber, prevSeq)), nil
		}
		if record.PreviousHash != prevHash {
			return breakAt(record.SequenceNumber, len(records),
				fmt.Sprintf("previous_hash mismatch at sequence %d", record.SequenceNumber)), nil
		}

		recomputed, err := hashRecord(record)
		if err != nil {
			return breakAt(record.SequenceNumber, len(records),
				fmt.Sprintf("record %d not canonicalizable: %v", record.SequenceNumber, err)), nil
		}
		if recomputed != record.RecordHash {
			return breakAt(record.SequenceNumber, len(records),
				fmt.Sprintf("record_hash mismatch at sequence %d", record.SequenceNumber)), nil
		}

		prevHash = record.RecordHash
		prevSeq = record.SequenceNumber
	}

	return &VerificationResult{Valid: true, Records: len(records)}, nil
}

func breakAt(seq uint64, total int, reason string) *VerificationResult {
	return &VerificationResult{
		Valid:   false,
		BreakAt: &seq,
		Records: total,
		Reason:  reason,
	}
}

// hashRecord computes the record hash over the canonicalized record
// content, excluding the RecordHash field itself. The timestamp is
// part of the hashed content.
func hashRecord(record *Record) (string, error) {
	view := map[string]interface{}{
		"id":              record.ID,
		"tenant_id":       record.TenantID,
		"sequence_number": record.SequenceNumber,
		"event_type":      string(record.EventType),
		"actor_id":        record.ActorID,
		"payload":         record.Payload,
		"timestamp":       record.Timestamp.UTC().Format(time.RFC3339Nano),
		"previous_hash":   record.PreviousHash,
	}
	return Hash(view, CanonicalOptions{})
}
