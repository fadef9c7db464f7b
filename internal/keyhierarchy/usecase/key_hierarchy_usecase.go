package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	cryptodomain "github.com/snpvault/enclave-core/internal/crypto/domain"
	"github.com/snpvault/enclave-core/internal/database"
	"github.com/snpvault/enclave-core/internal/keyhierarchy/domain"
	"github.com/snpvault/enclave-core/internal/keyhierarchy/repository"
	"github.com/snpvault/enclave-core/internal/keyhierarchy/service"
)

// keyHierarchyUseCase implements KeyHierarchy. The cache uses a single-writer,
// multi-reader lease: GetCurrentDEK takes a shared (read) lease; RotateDEK,
// MigrateToNewMaster, and ClearCache take an exclusive (write) lease and wipe
// the previous buffer before releasing it, per the concurrency model.
type keyHierarchyUseCase struct {
	txManager database.TxManager
	dekRepo   repository.DekRepository
	source    MeasurementSource

	mu             sync.RWMutex
	cachedDEK      []byte
	cachedDEKID    string
	cachedMasterID string
}

// NewKeyHierarchyUseCase wires a DEK repository, transaction manager, and
// measurement source into a KeyHierarchy.
func NewKeyHierarchyUseCase(txManager database.TxManager, dekRepo repository.DekRepository, source MeasurementSource) KeyHierarchy {
	return &keyHierarchyUseCase{
		txManager: txManager,
		dekRepo:   dekRepo,
		source:    source,
	}
}

func (k *keyHierarchyUseCase) currentMasterKey(ctx context.Context) (*domain.MasterKey, error) {
	measurement, platformVersion, err := k.source.Measurement(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving measurement for master-key derivation: %w", err)
	}
	return service.DeriveMasterKey(measurement, platformVersion)
}

func (k *keyHierarchyUseCase) GetCurrentDEK(ctx context.Context) ([]byte, error) {
	k.mu.RLock()
	if k.cachedDEK != nil {
		cp := append([]byte(nil), k.cachedDEK...)
		k.mu.RUnlock()
		return cp, nil
	}
	k.mu.RUnlock()

	k.mu.Lock()
	defer k.mu.Unlock()

	if k.cachedDEK != nil {
		return append([]byte(nil), k.cachedDEK...), nil
	}

	master, err := k.currentMasterKey(ctx)
	if err != nil {
		return nil, err
	}
	defer master.Zero()

	active, err := k.dekRepo.GetActive(ctx)
	if err != nil {
		return nil, err
	}

	if active.MasterKeyID != master.ID {
		return nil, domain.ErrMasterKeyMismatch
	}

	plaintext, err := service.UnwrapDEK(active.WrappedKey, active.IV, active.AuthTag, master.Key)
	if err != nil {
		return nil, err
	}

	k.cachedDEK = append([]byte(nil), plaintext...)
	k.cachedDEKID = active.ID
	k.cachedMasterID = master.ID
	return plaintext, nil
}

// CurrentDEKID returns the active DEK's row id, warming the cache first if
// necessary.
func (k *keyHierarchyUseCase) CurrentDEKID(ctx context.Context) (uuid.UUID, error) {
	k.mu.RLock()
	if k.cachedDEKID != "" {
		id := k.cachedDEKID
		k.mu.RUnlock()
		return uuid.Parse(id)
	}
	k.mu.RUnlock()

	if _, err := k.GetCurrentDEK(ctx); err != nil {
		return uuid.UUID{}, err
	}

	k.mu.RLock()
	defer k.mu.RUnlock()
	return uuid.Parse(k.cachedDEKID)
}

func (k *keyHierarchyUseCase) RotateDEK(ctx context.Context) ([]byte, error) {
	master, err := k.currentMasterKey(ctx)
	if err != nil {
		return nil, err
	}
	defer master.Zero()

	dek, err := service.GenerateDEK()
	if err != nil {
		return nil, err
	}

	wrapped, iv, tag, err := service.WrapDEK(dek, master.Key)
	if err != nil {
		return nil, err
	}

	record := &domain.Dek{
		WrappedKey:  wrapped,
		IV:          iv,
		AuthTag:     tag,
		KeyVersion:  1,
		MasterKeyID: master.ID,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}

	err = k.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := k.dekRepo.DeactivateAll(txCtx); err != nil {
			return err
		}
		return k.dekRepo.Create(txCtx, record)
	})
	if err != nil {
		cryptodomain.Zero(dek)
		return nil, err
	}

	k.setCache(dek, record.ID, master.ID)
	return append([]byte(nil), dek...), nil
}

func (k *keyHierarchyUseCase) MigrateToNewMaster(ctx context.Context, oldMasterKey []byte) ([]byte, error) {
	active, err := k.dekRepo.GetActive(ctx)
	if err != nil {
		return nil, err
	}

	plaintext, err := service.UnwrapDEK(active.WrappedKey, active.IV, active.AuthTag, oldMasterKey)
	if err != nil {
		return nil, err
	}

	newMaster, err := k.currentMasterKey(ctx)
	if err != nil {
		cryptodomain.Zero(plaintext)
		return nil, err
	}
	defer newMaster.Zero()

	wrapped, iv, tag, err := service.WrapDEK(plaintext, newMaster.Key)
	if err != nil {
		cryptodomain.Zero(plaintext)
		return nil, err
	}

	record := &domain.Dek{
		WrappedKey:  wrapped,
		IV:          iv,
		AuthTag:     tag,
		KeyVersion:  active.KeyVersion + 1,
		MasterKeyID: newMaster.ID,
		IsActive:    true,
		CreatedAt:   time.Now().UTC(),
	}

	err = k.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := k.dekRepo.DeactivateAll(txCtx); err != nil {
			return err
		}
		return k.dekRepo.Create(txCtx, record)
	})
	if err != nil {
		cryptodomain.Zero(plaintext)
		return nil, err
	}

	k.setCache(plaintext, record.ID, newMaster.ID)
	return append([]byte(nil), plaintext...), nil
}

func (k *keyHierarchyUseCase) NeedsInitialization(ctx context.Context) (bool, error) {
	_, err := k.dekRepo.GetActive(ctx)
	if err == domain.ErrNoActiveDEK {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

func (k *keyHierarchyUseCase) NeedsMigration(ctx context.Context) (bool, error) {
	active, err := k.dekRepo.GetActive(ctx)
	if err == domain.ErrNoActiveDEK {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	master, err := k.currentMasterKey(ctx)
	if err != nil {
		return false, err
	}
	defer master.Zero()

	return active.MasterKeyID != master.ID, nil
}

func (k *keyHierarchyUseCase) ClearCache() {
	k.mu.Lock()
	defer k.mu.Unlock()
	cryptodomain.Zero(k.cachedDEK)
	k.cachedDEK = nil
	k.cachedDEKID = ""
	k.cachedMasterID = ""
}

func (k *keyHierarchyUseCase) setCache(dek []byte, dekID, masterID string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	cryptodomain.Zero(k.cachedDEK)
	k.cachedDEK = append([]byte(nil), dek...)
	k.cachedDEKID = dekID
	k.cachedMasterID = masterID
}
