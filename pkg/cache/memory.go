package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is the in-process cache backend. Expired entries count as misses at
// read time and are additionally swept during Stats to bound memory.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	hits    uint64
	misses  uint64

	// now is overridable for expiry tests.
	now func() time.Time
}

// NewMemory returns an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok || m.now().After(entry.expiresAt) {
		if ok {
			delete(m.entries, key)
		}
		m.misses++
		return nil, false
	}

	value, ok := decodeValue(entry.value)
	if !ok {
		delete(m.entries, key)
		m.misses++
		return nil, false
	}
	m.hits++
	return value, true
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	stored := encodeValue(value)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{value: stored, expiresAt: m.now().Add(ttl)}
}

func (m *Memory) Delete(_ context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

func (m *Memory) DeletePattern(_ context.Context, pattern string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if matchPattern(pattern, key) {
			delete(m.entries, key)
		}
	}
}

func (m *Memory) Clear(_ context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]memoryEntry)
	m.hits = 0
	m.misses = 0
}

func (m *Memory) Stats(_ context.Context) Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Sweep expired entries so an idle cache does not hold dead payloads.
	now := m.now()
	for key, entry := range m.entries {
		if now.After(entry.expiresAt) {
			delete(m.entries, key)
		}
	}

	return Stats{
		Hits:    m.hits,
		Misses:  m.misses,
		Size:    len(m.entries),
		Backend: BackendLocal,
	}
}
