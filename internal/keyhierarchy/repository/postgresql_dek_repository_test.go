package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snpvault/enclave-core/internal/keyhierarchy/domain"
	"github.com/snpvault/enclave-core/internal/testutil"
)

func TestNewPostgreSQLDekRepository(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewPostgreSQLDekRepository(db)
	assert.NotNil(t, repo)
	assert.IsType(t, &PostgreSQLDekRepository{}, repo)
}

func TestPostgreSQLDekRepository_CreateAndGetActive(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLDekRepository(db)
	ctx := context.Background()

	dek := &domain.Dek{
		WrappedKey:  []byte("wrapped-dek-bytes"),
		IV:          []byte("123456789012"),
		AuthTag:     []byte("1234567890123456"),
		KeyVersion:  1,
		MasterKeyID: "master-v1",
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}

	err := repo.Create(ctx, dek)
	require.NoError(t, err)
	assert.NotEmpty(t, dek.ID)

	active, err := repo.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, dek.ID, active.ID)
	assert.Equal(t, dek.WrappedKey, active.WrappedKey)
	assert.Equal(t, dek.IV, active.IV)
	assert.Equal(t, dek.AuthTag, active.AuthTag)
	assert.Equal(t, dek.MasterKeyID, active.MasterKeyID)
	assert.True(t, active.IsActive)
}

func TestPostgreSQLDekRepository_GetActive_NoneExists(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLDekRepository(db)

	_, err := repo.GetActive(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoActiveDEK)
}

func TestPostgreSQLDekRepository_DeactivateAll(t *testing.T) {
	db := testutil.SetupPostgresDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupPostgresDB(t, db)

	repo := NewPostgreSQLDekRepository(db)
	ctx := context.Background()

	first := &domain.Dek{
		WrappedKey:  []byte("wrapped-v1"),
		IV:          []byte("123456789012"),
		AuthTag:     []byte("1234567890123456"),
		KeyVersion:  1,
		MasterKeyID: "master-v1",
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, first))

	require.NoError(t, repo.DeactivateAll(ctx))

	_, err := repo.GetActive(ctx)
	assert.ErrorIs(t, err, domain.ErrNoActiveDEK)

	second := &domain.Dek{
		WrappedKey:  []byte("wrapped-v2"),
		IV:          []byte("abcdefghijkl"),
		AuthTag:     []byte("abcdefghijklmnop"),
		KeyVersion:  2,
		MasterKeyID: "master-v2",
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, repo.Create(ctx, second))

	active, err := repo.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
}
