// Package testsupport provides helper functions for spinning up ephemeral
// Docker containers (PostgreSQL, Redis) for integration testing.
package testsupport

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vordr-io/vordr-go/internal/persistence"
)

// PostgresContainer holds the references to the running Docker container
// and the initialized storage adapter.
type PostgresContainer struct {
	Container        testcontainers.Container
	DB               *pgxpool.Pool
	Adapter          *persistence.Postgres
	ConnectionString string
}

// Terminate stops and removes the docker container.
func (c *PostgresContainer) Terminate(ctx context.Context) error {
	c.DB.Close()
	return c.Container.Terminate(ctx)
}

// StartPostgresContainer spins up a PostgreSQL 15-alpine container.
// No init scripts are needed: the adapter creates its own snapshot
// table on construction.
func StartPostgresContainer(ctx context.Context) (*PostgresContainer, error) {
	dbName := "vordr_test"
	dbUser := "testuser"
	dbPassword := "testpassword"

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(10*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := persistence.NewPostgresPool(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	adapter, err := persistence.NewPostgres(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create postgres adapter: %w", err)
	}

	return &PostgresContainer{
		Container:        pgContainer,
		DB:               pool,
		Adapter:          adapter,
		ConnectionString: connStr,
	}, nil
}
