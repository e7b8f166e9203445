package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/janus/pkg/audit"
)

func sampleRecord(seq uint64, prev string) *audit.Record {
	return &audit.Record{
		ID:             "rec-" + time.Now().Format("150405.000000000"),
		TenantID:       "tenant-a",
		SequenceNumber: seq,
		EventType:      audit.EventDecisionEvaluated,
		ActorID:        "system",
		Payload:        map[string]interface{}{"step": float64(seq), "label": "x"},
		Timestamp:      time.Now().UTC(),
		PreviousHash:   prev,
		RecordHash:     "hash-of-record",
	}
}

func testBackend(t *testing.T, backend audit.Storage) {
	t.Helper()
	ctx := context.Background()

	// Empty tenant
	latest, err := backend.Latest(ctx, "tenant-a")
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if latest != nil {
		t.Fatal("expected nil latest for empty tenant")
	}

	first := sampleRecord(1, audit.GenesisHash)
	if err := backend.Append(ctx, first); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	second := sampleRecord(2, first.RecordHash)
	second.ID = first.ID + "-2"
	if err := backend.Append(ctx, second); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	latest, err = backend.Latest(ctx, "tenant-a")
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if latest == nil || latest.SequenceNumber != 2 {
		t.Fatalf("latest = %+v, want sequence 2", latest)
	}

	records, err := backend.List(ctx, "tenant-a")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("list length = %d, want 2", len(records))
	}
	if records[0].SequenceNumber != 1 || records[1].SequenceNumber != 2 {
		t.Error("records not in ascending sequence order")
	}
	if records[0].Payload["label"] != "x" {
		t.Errorf("payload lost on round trip: %v", records[0].Payload)
	}
	if !records[0].Timestamp.Equal(first.Timestamp) {
		t.Errorf("timestamp changed on round trip: %v vs %v", records[0].Timestamp, first.Timestamp)
	}

	// Other tenants are isolated.
	other, err := backend.List(ctx, "tenant-b")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(other) != 0 {
		t.Error("tenant isolation violated")
	}
}

func TestMemoryStorage(t *testing.T) {
	backend := NewMemoryStorage()
	defer backend.Close()
	testBackend(t, backend)
}

func TestSQLiteStorage(t *testing.T) {
	cfg := DefaultSQLiteConfig()
	cfg.Path = filepath.Join(t.TempDir(), "audit.db")

	backend, err := NewSQLiteStorage(cfg)
	if err != nil {
		t.Fatalf("NewSQLiteStorage failed: %v", err)
	}
	defer backend.Close()

	testBackend(t, backend)
}

func TestSQLiteRejectsDuplicateSequence(t *testing.T) {
	cfg := DefaultSQLiteConfig()
	cfg.Path = filepath.Join(t.TempDir(), "audit.db")

	backend, err := NewSQLiteStorage(cfg)
	if err != nil {
		t.Fatalf("NewSQLiteStorage failed: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()
	first := sampleRecord(1, audit.GenesisHash)
	if err := backend.Append(ctx, first); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	dup := sampleRecord(1, audit.GenesisHash)
	dup.ID = first.ID + "-dup"
	if err := backend.Append(ctx, dup); err == nil {
		t.Fatal("expected unique constraint violation for duplicate sequence")
	}
}
