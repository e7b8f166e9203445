package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Source abstracts the backing store for rule snapshots. The engine
// only ever sees snapshots; whether they come from a file, a database,
// or a config service is a backend detail.
type Source interface {
	// LoadSnapshot reads and validates the current rule document.
	LoadSnapshot() (*Snapshot, error)

	// SaveSnapshot persists the given snapshot as the new rule document.
	SaveSnapshot(snapshot *Snapshot) error
}

// document is the on-disk YAML layout: one versioned document
// partitioned by tier. Tier membership is implied by the group a rule
// appears under; rule order within the document is insertion order.
type document struct {
	Version string `yaml:"version"`
	Tiers   struct {
		Constitutional []PolicyRule `yaml:"constitutional,omitempty"`
		Organization   []PolicyRule `yaml:"organization,omitempty"`
		Department     []PolicyRule `yaml:"department,omitempty"`
	} `yaml:"tiers"`
}

// FileSource loads and saves rule snapshots as a single YAML document.
type FileSource struct {
	path string
	mu   sync.Mutex
}

// NewFileSource creates a file-backed snapshot source.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Path returns the document path.
func (f *FileSource) Path() string {
	return f.path
}

// LoadSnapshot reads the YAML document, assigns tiers from the group
// each rule appears under, and validates the full set. Invalid
// documents are rejected wholesale.
func (f *FileSource) LoadSnapshot() (*Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, NewSourceError("file", "load", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, NewSourceError("file", "load", fmt.Errorf("parse %q: %w", f.path, err))
	}

	ruleset := flatten(&doc)
	snapshot, err := NewSnapshot(doc.Version, ruleset)
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// SaveSnapshot writes the snapshot back as a tier-partitioned YAML
// document. The write is atomic (temp file + rename) so a concurrent
// reader never observes a torn document.
func (f *FileSource) SaveSnapshot(snapshot *Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var doc document
	doc.Version = snapshot.Version
	doc.Tiers.Constitutional = snapshot.TierRules(TierConstitutional)
	doc.Tiers.Organization = snapshot.TierRules(TierOrganization)
	doc.Tiers.Department = snapshot.TierRules(TierDepartment)

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return NewSourceError("file", "save", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return NewSourceError("file", "save", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return NewSourceError("file", "save", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return NewSourceError("file", "save", err)
	}
	return nil
}

// flatten orders rules by descending tier authority, preserving
// document order within each tier, and stamps the tier onto each rule.
func flatten(doc *document) []PolicyRule {
	groups := []struct {
		tier  Tier
		rules []PolicyRule
	}{
		{TierConstitutional, doc.Tiers.Constitutional},
		{TierOrganization, doc.Tiers.Organization},
		{TierDepartment, doc.Tiers.Department},
	}

	var out []PolicyRule
	for _, g := range groups {
		for _, r := range g.rules {
			r.Tier = g.tier
			out = append(out, r)
		}
	}
	return out
}

// MemorySource is an in-memory snapshot source for tests and embedding.
type MemorySource struct {
	mu       sync.Mutex
	snapshot *Snapshot
}

// NewMemorySource creates a memory-backed source seeded with the given
// snapshot (may be nil).
func NewMemorySource(snapshot *Snapshot) *MemorySource {
	return &MemorySource{snapshot: snapshot}
}

// LoadSnapshot returns the stored snapshot.
func (m *MemorySource) LoadSnapshot() (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.snapshot == nil {
		return nil, NewSourceError("memory", "load", fmt.Errorf("no snapshot stored"))
	}
	return m.snapshot, nil
}

// SaveSnapshot replaces the stored snapshot.
func (m *MemorySource) SaveSnapshot(snapshot *Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshot = snapshot
	return nil
}
