package index

import (
	"context"
	"slices"
	"sync"

	"go.trai.ch/rocks/internal/core/domain"
	"go.trai.ch/rocks/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.PackageIndex = (*Memory)(nil)

// Memory is an index held in memory. Entries keep the order they were added.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]domain.IndexEntry
}

// NewMemory creates an index holding entries.
func NewMemory(entries ...domain.IndexEntry) *Memory {
	m := &Memory{entries: make(map[string][]domain.IndexEntry)}
	m.Add(entries...)
	return m
}

// Add appends entries to the index.
func (m *Memory) Add(entries ...domain.IndexEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.entries[e.Name] = append(m.entries[e.Name], e)
	}
}

// Names returns every package name in sorted order.
func (m *Memory) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.entries))
	for name := range m.entries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Query implements ports.PackageIndex.
func (m *Memory) Query(_ context.Context, name string) ([]domain.IndexEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries, ok := m.entries[name]
	if !ok {
		return nil, zerr.With(zerr.Wrap(domain.ErrPackageNotFound, name), "package", name)
	}
	return slices.Clone(entries), nil
}
