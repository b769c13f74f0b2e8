package querycache

import (
	"context"
	"sync"
)

// Memory is an in-process Cache guarded by a single RWMutex. It backs tests
// and single-node deployments that run without Redis.
type Memory struct {
	mu      sync.RWMutex
	gen     uint64
	entries map[string][]byte
}

// NewMemory returns an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]byte)}
}

// Get returns the cached value for key, if present, and the current
// generation.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.entries[key]
	if !ok {
		return nil, false, m.gen, nil
	}
	copied := make([]byte, len(value))
	copy(copied, value)
	return copied, true, m.gen, nil
}

// Set stores value under key. A write carrying a stale generation is
// discarded; the eviction that advanced the generation already invalidated
// whatever the writer read.
func (m *Memory) Set(_ context.Context, key string, value []byte, gen uint64) error {
	copied := make([]byte, len(value))
	copy(copied, value)
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return nil
	}
	m.entries[key] = copied
	return nil
}

// EvictAll advances the generation and replaces the map so every cached
// entry disappears at once.
func (m *Memory) EvictAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.entries = make(map[string][]byte)
	return nil
}
