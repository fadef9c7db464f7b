package commands

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/snpvault/enclave-core/internal/app"
	"github.com/snpvault/enclave-core/internal/config"
	cryptoService "github.com/snpvault/enclave-core/internal/crypto/service"
)

// RunMigrateMasterKey unwraps the active data-encryption key under an
// operator-supplied prior master key and re-wraps it under the enclave's
// current attestation-derived master key (4.D migrate_to_new_master). It
// exists for the one case rotate-master-key cannot handle on its own: the
// enclave's measurement changed (a rebuild, a platform update) so the
// derived master key no longer matches the DEK's wrapping key, and nothing
// short of the old master key can recover the old DEK.
//
// The old master key never travels in the clear: it is supplied as a KMS
// ciphertext blob, the same way create-master-key originally produced it,
// and decrypted here through the configured KMS keeper just long enough to
// unwrap the DEK.
func RunMigrateMasterKey(ctx context.Context, kmsProvider, kmsKeyURI, oldMasterKeyCiphertextB64 string) error {
	if kmsProvider == "" || kmsKeyURI == "" || oldMasterKeyCiphertextB64 == "" {
		return fmt.Errorf("--kms-provider, --kms-key-uri, and --old-master-key are all required")
	}

	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	keys, err := container.KeyHierarchy(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize key hierarchy: %w", err)
	}

	needsMigration, err := keys.NeedsMigration(ctx)
	if err != nil {
		return fmt.Errorf("failed to check migration status: %w", err)
	}
	if !needsMigration {
		logger.Info("active data-encryption key already matches the current master key; nothing to migrate")
		return nil
	}

	ciphertext, err := base64.StdEncoding.DecodeString(oldMasterKeyCiphertextB64)
	if err != nil {
		return fmt.Errorf("failed to decode --old-master-key: %w", err)
	}

	logger.Info("decrypting prior master key", slog.String("kms_provider", kmsProvider))
	kmsService := cryptoService.NewKMSService()
	keeper, err := kmsService.OpenKeeper(ctx, kmsKeyURI)
	if err != nil {
		return fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer func() {
		if closeErr := keeper.Close(); closeErr != nil {
			logger.Warn("failed to close KMS keeper", slog.Any("error", closeErr))
		}
	}()

	oldMasterKey, err := keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return fmt.Errorf("failed to decrypt old master key: %w", err)
	}
	defer zeroBytes(oldMasterKey)

	dek, err := keys.MigrateToNewMaster(ctx, oldMasterKey)
	if err != nil {
		return fmt.Errorf("failed to migrate data-encryption key: %w", err)
	}
	defer zeroBytes(dek)

	logger.Info("data-encryption key migrated to current master key successfully")
	return nil
}
