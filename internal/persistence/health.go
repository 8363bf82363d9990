package persistence

import (
	"context"
	"fmt"
)

// RedisChecker implements the observability.Checker interface for the
// Redis adapter.
type RedisChecker struct {
	adapter *Redis
}

// NewRedisChecker creates a health checker for the given Redis adapter.
func NewRedisChecker(adapter *Redis) *RedisChecker {
	return &RedisChecker{adapter: adapter}
}

// Name returns the component name.
func (c *RedisChecker) Name() string {
	return "redis"
}

// Check verifies the Redis connection using Ping.
func (c *RedisChecker) Check(ctx context.Context) error {
	if c.adapter == nil {
		return fmt.Errorf("redis adapter is nil")
	}
	return c.adapter.HealthCheck(ctx)
}

// PostgresChecker implements the observability.Checker interface for
// the Postgres adapter.
type PostgresChecker struct {
	adapter *Postgres
}

// NewPostgresChecker creates a health checker for the given Postgres adapter.
func NewPostgresChecker(adapter *Postgres) *PostgresChecker {
	return &PostgresChecker{adapter: adapter}
}

// Name returns the component name.
func (c *PostgresChecker) Name() string {
	return "postgres"
}

// Check verifies database connectivity.
func (c *PostgresChecker) Check(ctx context.Context) error {
	if c.adapter == nil {
		return fmt.Errorf("postgres adapter is nil")
	}
	return c.adapter.HealthCheck(ctx)
}
