package sweep

import (
	"context"
	"testing"
	"time"

	"mercator-hq/janus/pkg/hitl"
	"mercator-hq/janus/pkg/hitl/storage"
	"mercator-hq/janus/pkg/rules"
)

// backdate rewrites a request's timestamps so a sweep sees it as aged.
func backdate(t *testing.T, backend hitl.Storage, id string, age time.Duration, expiry time.Duration) {
	t.Helper()
	ctx := context.Background()

	request, err := backend.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	request.CreatedAt = time.Now().UTC().Add(-age)
	request.ExpiresAt = request.CreatedAt.Add(expiry)
	if err := backend.Update(ctx, request); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
}

func newTestRegistry(t *testing.T) (*hitl.Registry, hitl.Storage) {
	t.Helper()
	backend := storage.NewMemoryStorage()
	t.Cleanup(func() { backend.Close() })
	directory := hitl.NewStaticDirectory([]hitl.Reviewer{
		{ID: "rev-l1", Level: hitl.LevelL1, Available: true},
		{ID: "rev-l2", Level: hitl.LevelL2, Available: true},
		{ID: "rev-l3", Level: hitl.LevelL3, Available: true},
		{ID: "rev-l4", Level: hitl.LevelL4, Available: true},
	})
	return hitl.NewRegistry(backend, directory, nil, nil), backend
}

func TestProcessSLAViolationsEscalatesBreaches(t *testing.T) {
	ctx := context.Background()
	registry, backend := newTestRegistry(t)

	// EXECUTE request 9 hours old against an 8 hour threshold, well
	// inside its 48 hour expiry.
	request, err := registry.Create(ctx, "tenant-a", rules.ModeExecute, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	backdate(t, backend, request.ID, 9*time.Hour, 48*time.Hour)

	// A fresh request must be left alone.
	fresh, err := registry.Create(ctx, "tenant-a", rules.ModeExecute, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	sweeper := NewSweeper(registry, &Config{Thresholds: DefaultThresholds()})

	escalated, err := sweeper.ProcessSLAViolations(ctx)
	if err != nil {
		t.Fatalf("ProcessSLAViolations failed: %v", err)
	}
	if escalated != 1 {
		t.Fatalf("escalated = %d, want 1", escalated)
	}

	got, err := registry.Get(ctx, request.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != hitl.StatusPending {
		t.Fatalf("status = %s, want PENDING", got.Status)
	}
	if got.EscalationLevel != hitl.LevelL3 {
		t.Fatalf("level = %s, want L3", got.EscalationLevel)
	}
	if len(got.EscalationHistory) != 1 {
		t.Fatalf("history = %d entries, want 1", len(got.EscalationHistory))
	}

	untouched, err := registry.Get(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if untouched.EscalationLevel != hitl.LevelL2 {
		t.Fatalf("fresh request escalated to %s", untouched.EscalationLevel)
	}

	// The escalation restarted the SLA clock, so an immediate re-sweep
	// of the same breach is a no-op.
	escalated, err = sweeper.ProcessSLAViolations(ctx)
	if err != nil {
		t.Fatalf("ProcessSLAViolations failed: %v", err)
	}
	if escalated != 0 {
		t.Fatalf("re-sweep escalated = %d, want 0", escalated)
	}
}

func TestProcessSLAViolationsSkipsMaxEscalated(t *testing.T) {
	ctx := context.Background()
	registry, backend := newTestRegistry(t)

	request, err := registry.Create(ctx, "tenant-a", rules.ModeEscalate, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	stored, err := backend.Get(ctx, request.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	stored.EscalationLevel = hitl.MaxLevel
	stored.MaxEscalated = true
	stored.CreatedAt = time.Now().UTC().Add(-10 * time.Hour)
	if err := backend.Update(ctx, stored); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	sweeper := NewSweeper(registry, nil)
	escalated, err := sweeper.ProcessSLAViolations(ctx)
	if err != nil {
		t.Fatalf("ProcessSLAViolations failed: %v", err)
	}
	if escalated != 0 {
		t.Fatalf("escalated = %d, want 0", escalated)
	}
}

func TestProcessExpirations(t *testing.T) {
	ctx := context.Background()
	registry, backend := newTestRegistry(t)

	overdue, err := registry.Create(ctx, "tenant-a", rules.ModeDraft, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	backdate(t, backend, overdue.ID, 50*time.Hour, 48*time.Hour)

	live, err := registry.Create(ctx, "tenant-a", rules.ModeDraft, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	sweeper := NewSweeper(registry, nil)
	expired, err := sweeper.ProcessExpirations(ctx)
	if err != nil {
		t.Fatalf("ProcessExpirations failed: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expired = %d, want 1", expired)
	}

	got, err := registry.Get(ctx, overdue.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status != hitl.StatusExpired {
		t.Fatalf("status = %s, want EXPIRED", got.Status)
	}

	stillLive, err := registry.Get(ctx, live.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stillLive.Status != hitl.StatusPending {
		t.Fatalf("live request status = %s", stillLive.Status)
	}
}

func TestStartRejectsInvalidSchedule(t *testing.T) {
	registry, _ := newTestRegistry(t)
	sweeper := NewSweeper(registry, &Config{Schedule: "not a cron expr"})

	if err := sweeper.Start(context.Background()); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
}

func TestStartWithoutScheduleIsNoOp(t *testing.T) {
	registry, _ := newTestRegistry(t)
	sweeper := NewSweeper(registry, &Config{})

	if err := sweeper.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if sweeper.IsRunning() {
		t.Fatal("sweeper running without a schedule")
	}
}
