package storage

import (
	"context"
	"sync"

	"mercator-hq/janus/pkg/audit"
)

// MemoryStorage implements audit.Storage using an in-memory map.
// Intended for tests and ephemeral deployments.
type MemoryStorage struct {
	mu      sync.RWMutex
	records map[string][]*audit.Record // tenantID -> ascending sequence
}

// NewMemoryStorage creates a new in-memory audit storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string][]*audit.Record),
	}
}

// Append persists a record to memory.
func (s *MemoryStorage) Append(ctx context.Context, record *audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recordCopy := *record
	s.records[record.TenantID] = append(s.records[record.TenantID], &recordCopy)
	return nil
}

// Latest returns the highest-sequence record for the tenant, or nil.
func (s *MemoryStorage) Latest(ctx context.Context, tenantID string) (*audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := s.records[tenantID]
	if len(chain) == 0 {
		return nil, nil
	}
	recordCopy := *chain[len(chain)-1]
	return &recordCopy, nil
}

// List returns all records for the tenant in ascending sequence order.
func (s *MemoryStorage) List(ctx context.Context, tenantID string) ([]*audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := s.records[tenantID]
	out := make([]*audit.Record, len(chain))
	for i, record := range chain {
		recordCopy := *record
		out[i] = &recordCopy
	}
	return out, nil
}

// Tamper overwrites the stored record at the given sequence. Test-only
// hook for exercising chain verification.
func (s *MemoryStorage) Tamper(tenantID string, sequence uint64, mutate func(*audit.Record)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.records[tenantID] {
		if record.SequenceNumber == sequence {
			mutate(record)
			return true
		}
	}
	return false
}

// Close releases nothing for the memory backend.
func (s *MemoryStorage) Close() error {
	return nil
}
