package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the durable adapter, storing snapshots in a small
// key/value table. It suits single-writer deployments where the cache
// must survive Redis flushes and process restarts.
type Postgres struct {
	db *pgxpool.Pool
}

var _ Adapter = (*Postgres)(nil)

// NewPostgresPool initializes a PostgreSQL connection pool.
// It returns the pool directly, allowing the caller to manage the lifecycle.
func NewPostgresPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	config, parseErr := pgxpool.ParseConfig(connString)
	if parseErr != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", parseErr)
	}

	// MaxConns prevents the app from starving the DB; MinConns keeps
	// some connections warm.
	config.MaxConns = 25
	config.MinConns = 2
	config.MaxConnLifetime = 1 * time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	initCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(initCtx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(initCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// NewPostgres creates the adapter with the given connection pool and
// ensures the backing table exists.
func NewPostgres(ctx context.Context, db *pgxpool.Pool) (*Postgres, error) {
	if db == nil {
		panic("persistence: database pool cannot be nil")
	}

	query := `
		CREATE TABLE IF NOT EXISTS vordr_snapshots (
			key        TEXT PRIMARY KEY,
			value      BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`
	if _, err := db.Exec(ctx, query); err != nil {
		return nil, fmt.Errorf("failed to ensure snapshots table: %w", err)
	}

	return &Postgres{db: db}, nil
}

// Get retrieves a value. A missing key returns (nil, nil).
func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM vordr_snapshots WHERE key = $1`

	var value []byte
	err := p.db.QueryRow(ctx, query, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot %q: %w", key, err)
	}
	return value, nil
}

// Set upserts a value. The RETURNING-free upsert keeps this a single
// round trip.
func (p *Postgres) Set(ctx context.Context, key string, value []byte) error {
	query := `
		INSERT INTO vordr_snapshots (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = now()
	`

	if _, err := p.db.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to store snapshot %q: %w", key, err)
	}
	return nil
}

// Remove deletes a key. Removing a missing key is a no-op.
func (p *Postgres) Remove(ctx context.Context, key string) error {
	query := `DELETE FROM vordr_snapshots WHERE key = $1`

	if _, err := p.db.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete snapshot %q: %w", key, err)
	}
	return nil
}

// HealthCheck verifies database connectivity.
func (p *Postgres) HealthCheck(ctx context.Context) error {
	return p.db.Ping(ctx)
}
