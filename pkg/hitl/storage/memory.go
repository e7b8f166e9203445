package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"mercator-hq/janus/pkg/hitl"
)

// MemoryStorage implements hitl.Storage using an in-memory map.
// Intended for tests and ephemeral deployments.
type MemoryStorage struct {
	mu       sync.RWMutex
	requests map[string]*hitl.ApprovalRequest
	order    []string // creation order, for stable listings
}

// NewMemoryStorage creates a new in-memory approval queue backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		requests: make(map[string]*hitl.ApprovalRequest),
	}
}

// Create persists a new request.
func (s *MemoryStorage) Create(ctx context.Context, request *hitl.ApprovalRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[request.ID]; exists {
		return hitl.NewStorageError("memory", "create", fmt.Errorf("duplicate id %q", request.ID))
	}
	s.requests[request.ID] = copyRequest(request)
	s.order = append(s.order, request.ID)
	return nil
}

// Get returns the request with the given ID.
func (s *MemoryStorage) Get(ctx context.Context, id string) (*hitl.ApprovalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	request, ok := s.requests[id]
	if !ok {
		return nil, hitl.ErrNotFound
	}
	return copyRequest(request), nil
}

// Update overwrites an existing request.
func (s *MemoryStorage) Update(ctx context.Context, request *hitl.ApprovalRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[request.ID]; !ok {
		return hitl.ErrNotFound
	}
	s.requests[request.ID] = copyRequest(request)
	return nil
}

// List returns requests matching the filter in creation order.
func (s *MemoryStorage) List(ctx context.Context, filter hitl.Filter) ([]*hitl.ApprovalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*hitl.ApprovalRequest
	for _, id := range s.order {
		request := s.requests[id]
		if filter.Status != "" && request.Status != filter.Status {
			continue
		}
		if filter.Mode != "" && request.Mode != filter.Mode {
			continue
		}
		out = append(out, copyRequest(request))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Close releases nothing for the memory backend.
func (s *MemoryStorage) Close() error {
	return nil
}

func copyRequest(request *hitl.ApprovalRequest) *hitl.ApprovalRequest {
	out := *request
	if request.EscalationHistory != nil {
		out.EscalationHistory = make([]hitl.EscalationStep, len(request.EscalationHistory))
		copy(out.EscalationHistory, request.EscalationHistory)
	}
	if request.Payload != nil {
		out.Payload = make(map[string]interface{}, len(request.Payload))
		for k, v := range request.Payload {
			out.Payload[k] = v
		}
	}
	if request.ResolvedAt != nil {
		ts := *request.ResolvedAt
		out.ResolvedAt = &ts
	}
	return &out
}
