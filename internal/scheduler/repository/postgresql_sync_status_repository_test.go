package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/snpvault/enclave-core/internal/scheduler/domain"
	"github.com/snpvault/enclave-core/internal/testutil"
)

func newTestSyncStatus() *domain.SyncStatus {
	return &domain.SyncStatus{
		State:     domain.StateRunning,
		StartedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestPostgreSQLSyncStatusRepository_CreateAndGetLatest(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLSyncStatusRepository(db)

	status := newTestSyncStatus()
	require.NoError(t, repo.Create(context.Background(), status))

	latest, err := repo.GetLatest(context.Background())
	require.NoError(t, err)
	require.Equal(t, status.ID, latest.ID)
	require.Equal(t, domain.StateRunning, latest.State)
}

func TestPostgreSQLSyncStatusRepository_Update(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLSyncStatusRepository(db)

	status := newTestSyncStatus()
	require.NoError(t, repo.Create(context.Background(), status))

	finishedAt := time.Now().UTC().Truncate(time.Microsecond)
	durationMS := int64(4200)
	status.State = domain.StateCompleted
	status.FinishedAt = &finishedAt
	status.DurationMS = &durationMS
	status.SnapshotsSaved = 12
	status.UsersAborted = 1

	require.NoError(t, repo.Update(context.Background(), status))

	fetched, err := repo.Get(context.Background(), status.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StateCompleted, fetched.State)
	require.Equal(t, 12, fetched.SnapshotsSaved)
	require.Equal(t, 1, fetched.UsersAborted)
	require.NotNil(t, fetched.DurationMS)
	require.Equal(t, durationMS, *fetched.DurationMS)
}

func TestPostgreSQLSyncStatusRepository_Get_NotFound(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLSyncStatusRepository(db)

	_, err := repo.Get(context.Background(), uuid.Must(uuid.NewV7()))
	require.ErrorIs(t, err, domain.ErrSyncStatusNotFound)
}

func TestPostgreSQLSyncStatusRepository_List(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLSyncStatusRepository(db)

	for i := 0; i < 3; i++ {
		s := newTestSyncStatus()
		s.StartedAt = s.StartedAt.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(context.Background(), s))
	}

	results, err := repo.List(context.Background(), 0, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
}
