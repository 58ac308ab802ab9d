package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps snapshots in process memory. Entries are stored CBOR
// encoded so reads never alias a caller's buffers.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
	metrics *Metrics
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// NewMemoryStore creates a MemoryStore. ttl <= 0 selects DefaultTTL.
func NewMemoryStore(ttl time.Duration, metrics *Metrics) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
		metrics: metrics,
	}
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, key string) (*Snapshot, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || !m.now().Before(entry.expires) {
		m.observe(OpGet, OutcomeMiss)
		return nil, ErrMiss
	}
	snap, err := Decode(entry.data)
	if err != nil {
		m.observe(OpGet, OutcomeError)
		return nil, err
	}
	m.observe(OpGet, OutcomeHit)
	return snap, nil
}

// Put implements Store.
func (m *MemoryStore) Put(_ context.Context, key string, s *Snapshot) error {
	data, err := Encode(s)
	if err != nil {
		m.observe(OpPut, OutcomeError)
		return err
	}

	m.mu.Lock()
	m.entries[key] = memoryEntry{data: data, expires: m.now().Add(m.ttl)}
	m.mu.Unlock()

	m.observe(OpPut, OutcomeStored)
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryStore) observe(op, outcome string) {
	if m.metrics != nil {
		m.metrics.Observe(op, outcome)
	}
}
