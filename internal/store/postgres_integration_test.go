//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/donaldgifford/marketplace-sync/internal/credential"
	"github.com/donaldgifford/marketplace-sync/internal/store"
)

func setupPostgres(t *testing.T) *store.PostgresStore {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("mps_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	s, err := store.NewPostgresStore(ctx, connStr)
	require.NoError(t, err)

	t.Cleanup(func() {
		s.Close()
	})

	require.NoError(t, s.Migrate(ctx))

	return s
}

func TestPostgresStore_Ping(t *testing.T) {
	s := setupPostgres(t)
	require.NoError(t, s.Ping(context.Background()))
}

func TestPostgresStore_MigrateIdempotent(t *testing.T) {
	s := setupPostgres(t)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestPostgresStore_Credentials(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	// Loading an unknown platform persists an empty credential.
	c, err := s.Load(ctx, credential.Shopee)
	require.NoError(t, err)
	assert.Equal(t, credential.Shopee, c.Platform)
	assert.Empty(t, c.AccessToken)

	expiry := time.Now().Add(4 * time.Hour).UTC().Truncate(time.Second)
	c.AccessToken = "access-1"
	c.RefreshToken = "refresh-1"
	c.AccessExpiry = &expiry
	c.PartnerID = "2001"
	c.ShopID = "3001"
	require.NoError(t, s.Save(ctx, c))

	got, err := s.Load(ctx, credential.Shopee)
	require.NoError(t, err)
	assert.Equal(t, "access-1", got.AccessToken)
	assert.Equal(t, "refresh-1", got.RefreshToken)
	require.NotNil(t, got.AccessExpiry)
	assert.True(t, expiry.Equal(*got.AccessExpiry))
	assert.Equal(t, "2001", got.PartnerID)

	// Upsert overwrites.
	got.AccessToken = "access-2"
	require.NoError(t, s.Save(ctx, got))
	again, err := s.Load(ctx, credential.Shopee)
	require.NoError(t, err)
	assert.Equal(t, "access-2", again.AccessToken)

	require.NoError(t, s.Delete(ctx, credential.Shopee))
	require.NoError(t, s.Delete(ctx, credential.Shopee))

	fresh, err := s.Load(ctx, credential.Shopee)
	require.NoError(t, err)
	assert.Empty(t, fresh.AccessToken)
}

func TestPostgresStore_JobRuns(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	id, err := s.InsertJobRun(ctx, "sync_orders")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, s.CompleteJobRun(ctx, id, store.JobSucceeded, "", 42))

	failedID, err := s.InsertJobRun(ctx, "validate_tokens")
	require.NoError(t, err)
	require.NoError(t, s.CompleteJobRun(ctx, failedID, store.JobFailed, "reauth required", 0))

	name := "sync_orders"
	runs, err := s.ListJobRuns(ctx, &store.JobRunQuery{JobName: &name})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, store.JobSucceeded, runs[0].Status)
	require.NotNil(t, runs[0].RowsAffected)
	assert.Equal(t, 42, *runs[0].RowsAffected)
	assert.NotNil(t, runs[0].CompletedAt)

	latest, err := s.ListJobRuns(ctx, &store.JobRunQuery{LatestOnly: true})
	require.NoError(t, err)
	assert.Len(t, latest, 2)

	status := store.JobFailed
	failed, err := s.ListJobRuns(ctx, &store.JobRunQuery{Status: &status})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, "reauth required", failed[0].ErrorText)
}

func TestPostgresStore_RecoverStaleJobRuns(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	_, err := s.InsertJobRun(ctx, "sync_orders")
	require.NoError(t, err)

	n, err := s.RecoverStaleJobRuns(ctx, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	status := store.JobCrashed
	runs, err := s.ListJobRuns(ctx, &store.JobRunQuery{Status: &status})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestPostgresStore_SchedulerLock(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()

	ok, err := s.AcquireSchedulerLock(ctx, "sync_orders", "host-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.AcquireSchedulerLock(ctx, "sync_orders", "host-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.ReleaseSchedulerLock(ctx, "sync_orders", "host-a"))

	ok, err = s.AcquireSchedulerLock(ctx, "sync_orders", "host-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
