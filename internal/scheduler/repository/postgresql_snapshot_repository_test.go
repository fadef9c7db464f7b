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

func newTestSnapshot(userUID string, ts time.Time) *domain.Snapshot {
	return &domain.Snapshot{
		UserUID:         userUID,
		Exchange:        "binance",
		Label:           "main",
		Timestamp:       ts,
		TotalEquity:     "10000.500000000000000000",
		RealizedBalance: "9800.000000000000000000",
		UnrealizedPnL:   "200.500000000000000000",
		Deposits:        "1000.000000000000000000",
		Withdrawals:     "0.000000000000000000",
		BreakdownByMarket: map[string]any{
			"BTC-USDT": "5000.00",
			"ETH-USDT": "5000.50",
		},
		CreatedAt: time.Now().UTC(),
	}
}

func TestPostgreSQLSnapshotRepository_CreateBatch(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLSnapshotRepository(db)

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

func TestPostgreSQLSnapshotRepository_CreateBatch_Empty(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLSnapshotRepository(db)
	err := repo.CreateBatch(context.Background(), nil)
	require.NoError(t, err)
}

func TestPostgreSQLSnapshotRepository_CreateBatch_DuplicateIdentityFails(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLSnapshotRepository(db)

	ts := time.Now().UTC().Truncate(time.Microsecond)
	first := newTestSnapshot("user-1", ts)
	require.NoError(t, repo.CreateBatch(context.Background(), []*domain.Snapshot{first}))

	dup := newTestSnapshot("user-1", ts)
	err := repo.CreateBatch(context.Background(), []*domain.Snapshot{dup})
	require.Error(t, err)
}
