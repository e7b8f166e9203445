package hitl

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/janus/pkg/events"
	"mercator-hq/janus/pkg/rules"
)

// Registry owns the approval request lifecycle. Every mutation is an
// atomic check-then-transition under a per-request lock: a reviewer
// action and a concurrent escalation sweep can both run, but exactly
// one transition wins and the other observes the result.
type Registry struct {
	storage   Storage
	directory Directory
	durations DurationTable
	publisher events.Publisher
	logger    *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRegistry creates a registry. directory and publisher may be nil
// (requests stay unassigned, notifications are skipped).
func NewRegistry(storage Storage, directory Directory, durations DurationTable, publisher events.Publisher) *Registry {
	if durations == nil {
		durations = DefaultDurations()
	}
	return &Registry{
		storage:   storage,
		directory: directory,
		durations: durations,
		publisher: publisher,
		logger:    slog.Default().With("component", "hitl.registry"),
		locks:     make(map[string]*sync.Mutex),
	}
}

// requestLock returns the per-request mutex, creating it on first use.
func (r *Registry) requestLock(id string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	lock, ok := r.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[id] = lock
	}
	return lock
}

// Create opens a PENDING approval request for the given tenant and
// mode. Expiration is taken from the duration table; the initial
// reviewer is the least-loaded available reviewer at the mode's
// minimum level.
func (r *Registry) Create(ctx context.Context, tenantID string, mode rules.HITLMode, payload map[string]interface{}) (*ApprovalRequest, error) {
	now := time.Now().UTC()
	level := LevelForMode(mode)

	request := &ApprovalRequest{
		ID:                 uuid.NewString(),
		TenantID:           tenantID,
		Mode:               mode,
		Status:             StatusPending,
		Payload:            payload,
		CreatedAt:          now,
		ExpiresAt:          now.Add(r.durations.For(mode)),
		AssignedReviewerID: pickReviewer(ctx, r.directory, level, r.logger),
		EscalationLevel:    level,
	}

	if err := r.storage.Create(ctx, request); err != nil {
		return nil, err
	}

	r.logger.Info("approval request created",
		"request_id", request.ID,
		"tenant_id", tenantID,
		"mode", mode,
		"level", level.String(),
		"reviewer", request.AssignedReviewerID,
		"expires_at", request.ExpiresAt,
	)
	r.publish(events.TypeApprovalCreated, request, "system", nil)

	return request, nil
}

// Get returns the request with the given ID.
func (r *Registry) Get(ctx context.Context, id string) (*ApprovalRequest, error) {
	return r.storage.Get(ctx, id)
}

// List returns requests matching the filter.
func (r *Registry) List(ctx context.Context, filter Filter) ([]*ApprovalRequest, error) {
	return r.storage.List(ctx, filter)
}

// Approve resolves a PENDING request. Calling it on an already
// terminal request is an idempotent no-op that returns the existing
// state, tolerating retried and racing calls.
func (r *Registry) Approve(ctx context.Context, id, reviewerID, notes string) (*ApprovalRequest, error) {
	return r.resolve(ctx, id, reviewerID, notes, StatusApproved, events.TypeApprovalApproved)
}

// Reject resolves a PENDING request negatively. Idempotent on
// terminal requests, like Approve.
func (r *Registry) Reject(ctx context.Context, id, reviewerID, reason string) (*ApprovalRequest, error) {
	return r.resolve(ctx, id, reviewerID, reason, StatusRejected, events.TypeApprovalRejected)
}

func (r *Registry) resolve(ctx context.Context, id, reviewerID, notes string, target Status, eventType events.Type) (*ApprovalRequest, error) {
	lock := r.requestLock(id)
	lock.Lock()
	defer lock.Unlock()

	request, err := r.storage.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Status.Terminal() {
		// Double resolution or retry: hand back what already happened.
		return request, nil
	}

	now := time.Now().UTC()
	request.Status = target
	request.ResolvedBy = reviewerID
	request.ResolvedAt = &now
	request.ResolutionNotes = notes

	if err := r.storage.Update(ctx, request); err != nil {
		return nil, err
	}

	r.logger.Info("approval request resolved",
		"request_id", id,
		"status", target,
		"reviewer", reviewerID,
	)
	r.publish(eventType, request, reviewerID, map[string]interface{}{"notes": notes})

	return request, nil
}

// Escalate advances a PENDING request one level (L1→L2→L3→L4),
// reassigns it to an available reviewer at the new level, and appends
// to the escalation history. At the maximum level the request stays
// PENDING and is flagged max_escalated; that is a reported condition,
// not an error. Escalating a terminal request is a no-op returning the
// terminal state.
func (r *Registry) Escalate(ctx context.Context, id, reason, actorID string) (*ApprovalRequest, error) {
	lock := r.requestLock(id)
	lock.Lock()
	defer lock.Unlock()

	request, err := r.storage.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Status.Terminal() {
		return request, nil
	}

	now := time.Now().UTC()

	if request.EscalationLevel >= MaxLevel {
		if !request.MaxEscalated {
			request.MaxEscalated = true
			// Restart the SLA clock so the sweeper reports the
			// exhaustion once per breach window, not every sweep.
			request.LastEscalatedAt = now
			if err := r.storage.Update(ctx, request); err != nil {
				return nil, err
			}
			r.logger.Warn("escalation exhausted, request flagged for manual intervention",
				"request_id", id,
				"level", request.EscalationLevel.String(),
				"reason", reason,
			)
		}
		return request, nil
	}

	from := request.EscalationLevel
	to := from + 1

	request.EscalationLevel = to
	request.AssignedReviewerID = pickReviewer(ctx, r.directory, to, r.logger)
	request.LastEscalatedAt = now
	request.EscalationHistory = append(request.EscalationHistory, EscalationStep{
		FromLevel: from,
		ToLevel:   to,
		Reason:    reason,
		At:        now,
	})

	if err := r.storage.Update(ctx, request); err != nil {
		return nil, err
	}

	r.logger.Info("approval request escalated",
		"request_id", id,
		"from", from.String(),
		"to", to.String(),
		"reviewer", request.AssignedReviewerID,
		"reason", reason,
	)
	r.publish(events.TypeApprovalEscalated, request, actorID, map[string]interface{}{
		"from_level": from.String(),
		"to_level":   to.String(),
		"reason":     reason,
	})

	return request, nil
}

// Cancel terminates a PENDING request without resolution. Cancelling
// an already cancelled request is idempotent; cancelling any other
// terminal request returns ErrNotPending.
func (r *Registry) Cancel(ctx context.Context, id, actorID string) (*ApprovalRequest, error) {
	lock := r.requestLock(id)
	lock.Lock()
	defer lock.Unlock()

	request, err := r.storage.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Status == StatusCancelled {
		return request, nil
	}
	if request.Status.Terminal() {
		return request, ErrNotPending
	}

	now := time.Now().UTC()
	request.Status = StatusCancelled
	request.ResolvedBy = actorID
	request.ResolvedAt = &now

	if err := r.storage.Update(ctx, request); err != nil {
		return nil, err
	}

	r.logger.Info("approval request cancelled", "request_id", id, "actor", actorID)
	r.publish(events.TypeApprovalCancelled, request, actorID, nil)

	return request, nil
}

// Expire transitions a PENDING request past its deadline to EXPIRED.
// Used by the expiration sweep; a no-op on terminal requests.
func (r *Registry) Expire(ctx context.Context, id string) (*ApprovalRequest, error) {
	lock := r.requestLock(id)
	lock.Lock()
	defer lock.Unlock()

	request, err := r.storage.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Status.Terminal() {
		return request, nil
	}

	now := time.Now().UTC()
	request.Status = StatusExpired
	request.ResolvedBy = "scheduler"
	request.ResolvedAt = &now

	if err := r.storage.Update(ctx, request); err != nil {
		return nil, err
	}

	r.logger.Info("approval request expired",
		"request_id", id,
		"expired_at", request.ExpiresAt,
	)
	r.publish(events.TypeApprovalExpired, request, "scheduler", nil)

	return request, nil
}

func (r *Registry) publish(eventType events.Type, request *ApprovalRequest, actorID string, detail map[string]interface{}) {
	if r.publisher == nil {
		return
	}
	r.publisher.Publish(events.Event{
		Type:      eventType,
		TenantID:  request.TenantID,
		RequestID: request.ID,
		Mode:      string(request.Mode),
		ActorID:   actorID,
		Detail:    detail,
	})
}
