package config

import (
	"fmt"
	"time"
)

// Storage backends for the persisted evaluation cache.
const (
	StorageBackendMemory   = "memory"
	StorageBackendRedis    = "redis"
	StorageBackendPostgres = "postgres"
)

// StorageConfig selects the adapter the multi-user cache persists
// through. Memory is the default: snapshots survive user switches
// within a process but not restarts.
type StorageConfig struct {
	Backend string `envconfig:"BACKEND" default:"memory" validate:"oneof=memory redis postgres"`

	// Memory backend tuning. The capacity bounds distinct adapter keys,
	// not user records; the store bounds those itself.
	MemoryCapacity int           `envconfig:"MEMORY_CAPACITY" default:"1024" validate:"min=1"`
	MemoryTTL      time.Duration `envconfig:"MEMORY_TTL" default:"24h" validate:"min=1m"`
}

// Validate checks the storage configuration.
func (c *StorageConfig) Validate() error {
	switch c.Backend {
	case StorageBackendMemory, StorageBackendRedis, StorageBackendPostgres:
		return nil
	default:
		return fmt.Errorf("unknown storage backend %q", c.Backend)
	}
}
