package audit_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"mercator-hq/janus/pkg/audit"
	"mercator-hq/janus/pkg/audit/storage"
)

func appendN(t *testing.T, chain *audit.Chain, tenantID string, n int) []*audit.Record {
	t.Helper()
	var out []*audit.Record
	for i := 0; i < n; i++ {
		record, err := chain.Append(context.Background(), tenantID, audit.Event{
			Type:    audit.EventDecisionEvaluated,
			ActorID: "system",
			Payload: map[string]interface{}{"step": i, "cost": 0.125},
		})
		if err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
		out = append(out, record)
	}
	return out
}

func TestAppendSequencesAndLinks(t *testing.T) {
	store := storage.NewMemoryStorage()
	chain := audit.NewChain(store)

	records := appendN(t, chain, "tenant-a", 3)

	if records[0].SequenceNumber != 1 {
		t.Errorf("first sequence = %d, want 1", records[0].SequenceNumber)
	}
	if records[0].PreviousHash != audit.GenesisHash {
		t.Errorf("first previous_hash = %q, want genesis", records[0].PreviousHash)
	}
	for i := 1; i < len(records); i++ {
		if records[i].SequenceNumber != records[i-1].SequenceNumber+1 {
			t.Errorf("sequence gap at %d", i)
		}
		if records[i].PreviousHash != records[i-1].RecordHash {
			t.Errorf("link broken at %d", i)
		}
	}
}

func TestVerifyRoundTrip(t *testing.T) {
	store := storage.NewMemoryStorage()
	chain := audit.NewChain(store)

	appendN(t, chain, "tenant-a", 10)

	result, err := chain.Verify(context.Background(), "tenant-a")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !result.Valid {
		t.Fatalf("chain invalid: %s", result.Reason)
	}
	if result.Records != 10 {
		t.Errorf("records walked = %d, want 10", result.Records)
	}
}

func TestVerifyReportsExactBreakPoint(t *testing.T) {
	store := storage.NewMemoryStorage()
	chain := audit.NewChain(store)

	appendN(t, chain, "tenant-a", 5)

	if !store.Tamper("tenant-a", 3, func(r *audit.Record) {
		r.Payload["step"] = "tampered"
	}) {
		t.Fatal("tamper target not found")
	}

	result, err := chain.Verify(context.Background(), "tenant-a")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if result.Valid {
		t.Fatal("tampered chain verified as valid")
	}
	if result.BreakAt == nil || *result.BreakAt != 3 {
		t.Errorf("break_at = %v, want 3", result.BreakAt)
	}
}

func TestAppendAfterCorruptionStillWorks(t *testing.T) {
	// Append and verify are independent: tail appends keep working even
	// when an earlier record is corrupt.
	store := storage.NewMemoryStorage()
	chain := audit.NewChain(store)

	appendN(t, chain, "tenant-a", 3)
	store.Tamper("tenant-a", 1, func(r *audit.Record) {
		r.ActorID = "intruder"
	})

	if _, err := chain.Append(context.Background(), "tenant-a", audit.Event{
		Type:    audit.EventApprovalCreated,
		ActorID: "system",
	}); err != nil {
		t.Fatalf("append after corruption failed: %v", err)
	}

	result, err := chain.Verify(context.Background(), "tenant-a")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if result.Valid || result.BreakAt == nil || *result.BreakAt != 1 {
		t.Errorf("expected break at 1, got %+v", result)
	}
}

func TestUnserializablePayloadRejected(t *testing.T) {
	store := storage.NewMemoryStorage()
	chain := audit.NewChain(store)

	_, err := chain.Append(context.Background(), "tenant-a", audit.Event{
		Type:    audit.EventDecisionEvaluated,
		ActorID: "system",
		Payload: map[string]interface{}{"bad": make(chan int)},
	})
	if err == nil {
		t.Fatal("expected payload rejection")
	}

	// Nothing entered the chain.
	latest, err := store.Latest(context.Background(), "tenant-a")
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if latest != nil {
		t.Error("rejected payload still produced a record")
	}
}

func TestTenantsAppendIndependently(t *testing.T) {
	store := storage.NewMemoryStorage()
	chain := audit.NewChain(store)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		tenant := fmt.Sprintf("tenant-%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				if _, err := chain.Append(context.Background(), tenant, audit.Event{
					Type:    audit.EventDecisionEvaluated,
					ActorID: "system",
					Payload: map[string]interface{}{"j": j},
				}); err != nil {
					t.Errorf("append failed for %s: %v", tenant, err)
					return
				}
			}
		}()
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		tenant := fmt.Sprintf("tenant-%d", i)
		result, err := chain.Verify(context.Background(), tenant)
		if err != nil {
			t.Fatalf("Verify %s failed: %v", tenant, err)
		}
		if !result.Valid || result.Records != 25 {
			t.Errorf("%s: valid=%v records=%d, want intact chain of 25", tenant, result.Valid, result.Records)
		}
	}
}

func TestVerifyEmptyChainIsValid(t *testing.T) {
	chain := audit.NewChain(storage.NewMemoryStorage())

	result, err := chain.Verify(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !result.Valid || result.Records != 0 {
		t.Errorf("empty chain should verify clean, got %+v", result)
	}
}
