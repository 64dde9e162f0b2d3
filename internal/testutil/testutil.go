//go:build integration

// Package testutil provides helpers for tests running against a real
// PostgreSQL server.
package testutil

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"go.inout.gg/passport/passportmigrate"
)

// PostgresImage is the image used for test databases.
const PostgresImage = "postgres:16-alpine"

// MustDB starts a PostgreSQL container, applies the passport migrations and
// returns a connection pool to it.
//
// The container and the pool are released when the test finishes.
func MustDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		PostgresImage,
		postgres.WithDatabase("passport"),
		postgres.WithUsername("passport"),
		postgres.WithPassword("passport"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	migrator, err := passportmigrate.NewFromPool(pool)
	require.NoError(t, err)

	_, err = migrator.Up(ctx, nil)
	require.NoError(t, err)

	return pool
}
