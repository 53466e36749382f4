package history

import (
	"context"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/lab-report-normalizer/internal/domain"
)

func TestPostgresHistoryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("labnorm"),
		postgres.WithUsername("labnorm"),
		postgres.WithPassword("labnorm"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Skipf("PostgreSQL container unavailable: %v", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	}()

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := Open(ctx, domain.HistoryConfig{Driver: "postgres", PostgresDSN: dsn, Migrate: true}, nil)
	require.NoError(t, err)
	defer store.Close()

	rec := NewRecord("5a0e8a43-3a3e-4a55-9c1f-7f2a3b4c5d6e", "text", sampleResult())
	require.NoError(t, store.Save(ctx, rec))

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Result.Tests, got.Result.Tests)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	runner, err := NewMigrationRunner(dsn, nil)
	require.NoError(t, err)
	defer runner.Close()
	version, dirty, err := runner.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	store.Close()
	require.NoError(t, runner.Down(ctx))
	_, _, err = runner.Version()
	assert.ErrorIs(t, err, migrate.ErrNilVersion)
}
