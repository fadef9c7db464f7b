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

func TestMySQLSnapshotRepository_CreateBatch(t *testing.T) {
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupMySQLDB(t, db)

	repo := NewMySQLSnapshotRepository(db)

	ts := time.Now().UTC().Truncate(time.Microsecond)
	snapshots := []*domain.Snapshot{
		newTestSnapshot("user-1", ts),
		newTestSnapshot("user-2", ts),
	}

	err := repo.CreateBatch(context.Background(), snapshots)
	require.NoError(t, err)

	for _, snap := range snapshots {
		require.NotEqual(t, uuid.Nil, snap.ID)
	}

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM snapshot_data").Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestMySQLSnapshotRepository_CreateBatch_DuplicateIdentityFails(t *testing.T) {
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupMySQLDB(t, db)

	repo := NewMySQLSnapshotRepository(db)

	ts := time.Now().UTC().Truncate(time.Microsecond)
	first := newTestSnapshot("user-1", ts)
	require.NoError(t, repo.CreateBatch(context.Background(), []*domain.Snapshot{first}))

	dup := newTestSnapshot("user-1", ts)
	err := repo.CreateBatch(context.Background(), []*domain.Snapshot{dup})
	require.Error(t, err)
}
