package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snpvault/enclave-core/internal/testutil"
	"github.com/snpvault/enclave-core/internal/vault/domain"
)

func TestNewMySQLConnectionRepository(t *testing.T) {
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)

	repo := NewMySQLConnectionRepository(db)
	assert.NotNil(t, repo)
	assert.IsType(t, &MySQLConnectionRepository{}, repo)
}

func TestMySQLConnectionRepository_CreateAndGet(t *testing.T) {
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupMySQLDB(t, db)

	repo := NewMySQLConnectionRepository(db)
	ctx := context.Background()

	conn := newTestConnection("user-1")
	require.NoError(t, repo.Create(ctx, conn))
	assert.NotEqual(t, uuid.Nil, conn.ID)

	fetched, err := repo.Get(ctx, conn.ID)
	require.NoError(t, err)
	assert.Equal(t, conn.ID, fetched.ID)
	assert.Equal(t, conn.UserUID, fetched.UserUID)
	assert.Equal(t, conn.CredentialsHash, fetched.CredentialsHash)
	assert.Nil(t, fetched.EncryptedPassphrase)
}

func TestMySQLConnectionRepository_CreateWithPassphrase(t *testing.T) {
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupMySQLDB(t, db)

	repo := NewMySQLConnectionRepository(db)
	ctx := context.Background()

	conn := newTestConnection("user-2")
	conn.EncryptedPassphrase = &domain.EncryptedField{
		Ciphertext: []byte("ct-pass"), IV: []byte("iv-pass123456"), AuthTag: []byte("tag-pass-1234567"),
	}
	require.NoError(t, repo.Create(ctx, conn))

	fetched, err := repo.Get(ctx, conn.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched.EncryptedPassphrase)
	assert.Equal(t, conn.EncryptedPassphrase.Ciphertext, fetched.EncryptedPassphrase.Ciphertext)
}

func TestMySQLConnectionRepository_Create_DuplicateIdentity(t *testing.T) {
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupMySQLDB(t, db)

	repo := NewMySQLConnectionRepository(db)
	ctx := context.Background()

	conn := newTestConnection("user-3")
	require.NoError(t, repo.Create(ctx, conn))

	dup := newTestConnection("user-3")
	err := repo.Create(ctx, dup)
	require.ErrorIs(t, err, domain.ErrDuplicateConnection)
}

func TestMySQLConnectionRepository_ListActiveByUser(t *testing.T) {
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupMySQLDB(t, db)

	repo := NewMySQLConnectionRepository(db)
	ctx := context.Background()

	c1 := newTestConnection("user-5")
	c2 := newTestConnection("user-5")
	c2.Label = "secondary"
	require.NoError(t, repo.Create(ctx, c1))
	require.NoError(t, repo.Create(ctx, c2))
	require.NoError(t, repo.Deactivate(ctx, c2.ID))

	conns, err := repo.ListActiveByUser(ctx, "user-5")
	require.NoError(t, err)
	require.Len(t, conns, 1)
	assert.Equal(t, c1.ID, conns[0].ID)
}

func TestMySQLConnectionRepository_Update(t *testing.T) {
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupMySQLDB(t, db)

	repo := NewMySQLConnectionRepository(db)
	ctx := context.Background()

	conn := newTestConnection("user-6")
	require.NoError(t, repo.Create(ctx, conn))

	conn.EncryptedAPIKey.Ciphertext = []byte("new-ct-key")
	conn.CredentialsHash = "newhash"
	conn.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.Update(ctx, conn))

	fetched, err := repo.Get(ctx, conn.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("new-ct-key"), fetched.EncryptedAPIKey.Ciphertext)
	assert.Equal(t, "newhash", fetched.CredentialsHash)
}

func TestMySQLConnectionRepository_DeactivateAndDelete(t *testing.T) {
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupMySQLDB(t, db)

	repo := NewMySQLConnectionRepository(db)
	ctx := context.Background()

	conn := newTestConnection("user-7")
	require.NoError(t, repo.Create(ctx, conn))

	require.NoError(t, repo.Deactivate(ctx, conn.ID))
	fetched, err := repo.Get(ctx, conn.ID)
	require.NoError(t, err)
	assert.False(t, fetched.IsActive)

	require.NoError(t, repo.Delete(ctx, conn.ID))
	_, err = repo.Get(ctx, conn.ID)
	require.ErrorIs(t, err, domain.ErrConnectionNotFound)
}

func TestMySQLConnectionRepository_CountActive(t *testing.T) {
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupMySQLDB(t, db)

	repo := NewMySQLConnectionRepository(db)
	ctx := context.Background()

	c1 := newTestConnection("user-8")
	c2 := newTestConnection("user-8")
	c2.Label = "secondary"
	require.NoError(t, repo.Create(ctx, c1))
	require.NoError(t, repo.Create(ctx, c2))

	byUser, err := repo.CountActiveByUser(ctx, "user-8")
	require.NoError(t, err)
	assert.Equal(t, 2, byUser)

	total, err := repo.CountActiveTotal(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, total, 2)
}

func TestMySQLConnectionRepository_ListActiveUserUIDs(t *testing.T) {
	db := testutil.SetupMySQLDB(t)
	defer testutil.TeardownDB(t, db)
	defer testutil.CleanupMySQLDB(t, db)

	repo := NewMySQLConnectionRepository(db)
	ctx := context.Background()

	c1 := newTestConnection("user-9")
	c2 := newTestConnection("user-10")
	c3 := newTestConnection("user-9")
	c3.Label = "secondary"
	require.NoError(t, repo.Create(ctx, c1))
	require.NoError(t, repo.Create(ctx, c2))
	require.NoError(t, repo.Create(ctx, c3))
	require.NoError(t, repo.Deactivate(ctx, c2.ID))

	userUIDs, err := repo.ListActiveUserUIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, userUIDs, "user-9")
	assert.NotContains(t, userUIDs, "user-10")
}
