// Package dbtest starts a throwaway PostgreSQL container for integration tests.
package dbtest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-registration/internal/database"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var (
	sharedOnce    sync.Once
	sharedInitErr error
	sharedPool    *pgxpool.Pool
	sharedDBURL   string
)

// Setup returns a pool connected to a migrated, emptied database. The
// container is shared by every test in the package binary. Skipped with -short.
func Setup(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	sharedOnce.Do(initShared)
	require.NoError(t, sharedInitErr)

	Reset(t, sharedPool)
	return sharedPool
}

// URL returns the connection string of the shared container.
func URL() string {
	return sharedDBURL
}

func initShared() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := postgres.Run(
		ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("eventdb"),
		postgres.WithUsername("event"),
		postgres.WithPassword("event"),
		testcontainers.WithEnv(map[string]string{"TZ": "UTC", "PGTZ": "UTC"}),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		sharedInitErr = err
		return
	}

	dbURL, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		sharedInitErr = err
		return
	}
	sharedDBURL = dbURL

	if err := database.MigrateUp(dbURL); err != nil {
		sharedInitErr = err
		return
	}

	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		sharedInitErr = err
		return
	}
	cfg.MaxConns = 50

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		sharedInitErr = err
		return
	}
	sharedPool = pool
}

// Reset truncates every table.
func Reset(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := pool.Exec(ctx, `TRUNCATE sessions, registrations, events, users`)
	require.NoError(t, err)
}
