package cache

import (
	"context"
	"sync"

	"github.com/danrygg/wovenflow/internal/fingerprint"
)

type MemoryStore struct {
	mu      sync.RWMutex
	entries map[fingerprint.Fingerprint]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[fingerprint.Fingerprint]Entry)}
}

func (m *MemoryStore) Get(_ context.Context, key fingerprint.Fingerprint) (*Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	return &e, true, nil
}

func (m *MemoryStore) Put(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[entry.Key]; !exists {
		m.entries[entry.Key] = entry
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }
