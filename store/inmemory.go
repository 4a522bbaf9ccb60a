package store

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// InMemory is a Store for local development and tests. Expiry is evaluated
// lazily on read against an injectable clock.
type InMemory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	nowTime func() time.Time
}

var _ Store = (*InMemory)(nil)

// InMemoryOption modifies an InMemory instance.
type InMemoryOption func(*InMemory)

// WithNowTime sets the clock (primarily for testing)
func WithNowTime(nowFunc func() time.Time) InMemoryOption {
	return func(m *InMemory) {
		m.nowTime = nowFunc
	}
}

func NewInMemory(options ...InMemoryOption) *InMemory {
	m := &InMemory{
		entries: make(map[string]memoryEntry),
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *InMemory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Copy so later caller mutations don't leak into the store.
	stored := make([]byte, len(value))
	copy(stored, value)

	m.entries[key] = memoryEntry{
		value:     stored,
		expiresAt: m.nowTime().Add(ttl),
	}
	return nil
}

func (m *InMemory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if !m.nowTime().Before(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, ErrNotFound
	}

	value := make([]byte, len(entry.value))
	copy(value, entry.value)
	return value, nil
}

func (m *InMemory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
