package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snpvault/enclave-core/internal/database"
	"github.com/snpvault/enclave-core/internal/keyhierarchy/domain"
)

type fakeDekRepo struct {
	mu     sync.Mutex
	active *domain.Dek
}

func (f *fakeDekRepo) Create(_ context.Context, dek *domain.Dek) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if dek.ID == "" {
		dek.ID = uuid.Must(uuid.NewV7()).String()
	}
	if dek.IsActive {
		f.active = dek
	}
	return nil
}

func (f *fakeDekRepo) GetActive(_ context.Context) (*domain.Dek, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active == nil {
		return nil, domain.ErrNoActiveDEK
	}
	cp := *f.active
	return &cp, nil
}

func (f *fakeDekRepo) DeactivateAll(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = nil
	return nil
}

type fakeMeasurementSource struct {
	measurement     []byte
	platformVersion string
}

func (f fakeMeasurementSource) Measurement(_ context.Context) ([]byte, string, error) {
	return f.measurement, f.platformVersion, nil
}

func newFakeTxManager() database.TxManager {
	return fakeTxManager{}
}

type fakeTxManager struct{}

func (fakeTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func TestKeyHierarchy_RotateThenGetCurrent(t *testing.T) {
	repo := &fakeDekRepo{}
	source := fakeMeasurementSource{measurement: []byte("measurement-bytes-v1"), platformVersion: "v1"}
	kh := NewKeyHierarchyUseCase(newFakeTxManager(), repo, source)

	needsInit, err := kh.NeedsInitialization(context.Background())
	require.NoError(t, err)
	assert.True(t, needsInit)

	dek, err := kh.RotateDEK(context.Background())
	require.NoError(t, err)
	assert.Len(t, dek, 32)

	kh.ClearCache()

	got, err := kh.GetCurrentDEK(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dek, got)
}

func TestKeyHierarchy_MasterKeyMismatch(t *testing.T) {
	repo := &fakeDekRepo{}
	sourceA := fakeMeasurementSource{measurement: []byte("measurement-A"), platformVersion: "v1"}
	khA := NewKeyHierarchyUseCase(newFakeTxManager(), repo, sourceA)
	_, err := khA.RotateDEK(context.Background())
	require.NoError(t, err)

	sourceB := fakeMeasurementSource{measurement: []byte("measurement-B"), platformVersion: "v1"}
	khB := NewKeyHierarchyUseCase(newFakeTxManager(), repo, sourceB)

	needsMigration, err := khB.NeedsMigration(context.Background())
	require.NoError(t, err)
	assert.True(t, needsMigration)

	_, err = khB.GetCurrentDEK(context.Background())
	assert.ErrorIs(t, err, domain.ErrMasterKeyMismatch)
}

func TestKeyHierarchy_MigrateToNewMaster(t *testing.T) {
	repo := &fakeDekRepo{}
	sourceOld := fakeMeasurementSource{measurement: []byte("measurement-old"), platformVersion: "v1"}
	khOld := NewKeyHierarchyUseCase(newFakeTxManager(), repo, sourceOld)
	originalDEK, err := khOld.RotateDEK(context.Background())
	require.NoError(t, err)

	oldActive, err := repo.GetActive(context.Background())
	require.NoError(t, err)
	oldMasterID := oldActive.MasterKeyID
	_ = oldMasterID

	// Recompute the old master key bytes the same way the use case would,
	// simulating an operator supplying the previous master key blob.
	source := sourceOld
	oldMaster, err := (&keyHierarchyUseCase{source: source}).currentMasterKey(context.Background())
	require.NoError(t, err)

	sourceNew := fakeMeasurementSource{measurement: []byte("measurement-new"), platformVersion: "v1"}
	khNew := NewKeyHierarchyUseCase(newFakeTxManager(), repo, sourceNew)

	migrated, err := khNew.MigrateToNewMaster(context.Background(), oldMaster.Key)
	require.NoError(t, err)
	assert.Equal(t, originalDEK, migrated)

	again, err := khNew.GetCurrentDEK(context.Background())
	require.NoError(t, err)
	assert.Equal(t, originalDEK, again)
}
