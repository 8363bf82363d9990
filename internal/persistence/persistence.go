// Package persistence provides the storage adapters the evaluation
// cache persists through: an in-memory adapter for tests and local
// mode, Redis for shared deployments, and PostgreSQL for durable
// single-writer setups. All adapters speak the same byte-string
// contract; callers never see which backend is wired.
package persistence

import (
	"context"
)

// Adapter is the byte-string storage contract. Get returns (nil, nil)
// for a missing key. Last-write-wins semantics are sufficient.
type Adapter interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}
