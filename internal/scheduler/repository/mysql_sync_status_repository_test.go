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

func TestMySQLSyncStatusRepository_CreateAndGetLatest(t *testing.T) {
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupMySQLDB(t, db)

	repo := NewMySQLSyncStatusRepository(db)

	status := newTestSyncStatus()
	require.NoError(t, repo.Create(context.Background(), status))

	latest, err := repo.GetLatest(context.Background())
	require.NoError(t, err)
	require.Equal(t, status.ID, latest.ID)
}

func TestMySQLSyncStatusRepository_Update(t *testing.T) {
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupMySQLDB(t, db)

	repo := NewMySQLSyncStatusRepository(db)

	status := newTestSyncStatus()
	require.NoError(t, repo.Create(context.Background(), status))

	finishedAt := time.Now().UTC().Truncate(time.Microsecond)
	durationMS := int64(1500)
	status.State = domain.StateFailed
	status.FinishedAt = &finishedAt
	status.DurationMS = &durationMS
	status.UsersAborted = 2

	require.NoError(t, repo.Update(context.Background(), status))

	fetched, err := repo.Get(context.Background(), status.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StateFailed, fetched.State)
	require.Equal(t, 2, fetched.UsersAborted)
}

func TestMySQLSyncStatusRepository_Get_NotFound(t *testing.T) {
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupMySQLDB(t, db)

	repo := NewMySQLSyncStatusRepository(db)

	_, err := repo.Get(context.Background(), uuid.Must(uuid.NewV7()))
	require.ErrorIs(t, err, domain.ErrSyncStatusNotFound)
}
