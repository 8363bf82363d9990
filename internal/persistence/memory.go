package persistence

import (
	"context"
	"time"

	"github.com/maypok86/otter"
)

// Memory is the in-process adapter, backed by otter's contention-free
// S3-FIFO cache. The capacity bound is a hard cap against unbounded
// growth; the TTL is a safety net so stale snapshots eventually age
// out even if nothing overwrites them.
type Memory struct {
	store otter.Cache[string, []byte]
}

var _ Adapter = (*Memory)(nil)

// NewMemory initializes the in-memory adapter.
func NewMemory(capacity int, ttl time.Duration) (*Memory, error) {
	builder := otter.MustBuilder[string, []byte](capacity).
		WithTTL(ttl)

	cache, err := builder.Build()
	if err != nil {
		return nil, err
	}

	return &Memory{store: cache}, nil
}

// Get retrieves a value. Missing keys return (nil, nil).
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	value, ok := m.store.Get(key)
	if !ok {
		return nil, nil
	}
	return value, nil
}

// Set adds or replaces a value. The configured TTL applies
// automatically.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.store.Set(key, value)
	return nil
}

// Remove deletes a key. Removing a missing key is a no-op.
func (m *Memory) Remove(_ context.Context, key string) error {
	m.store.Delete(key)
	return nil
}

// Close shuts down the cache and its background cleanup goroutines.
func (m *Memory) Close() {
	m.store.Close()
}
