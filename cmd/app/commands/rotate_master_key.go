package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/snpvault/enclave-core/internal/app"
	"github.com/snpvault/enclave-core/internal/config"
)

// RunRotateMasterKey generates a new data-encryption key, wraps it under the
// enclave's current attestation-derived master key, and atomically replaces
// the active record (4.D). It requires the same attestation and identity
// prerequisites as the server: a fresh enclave with no prior DEK treats this
// identically to first initialization.
func RunRotateMasterKey(ctx context.Context) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	keys, err := container.KeyHierarchy(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize key hierarchy: %w", err)
	}

	dek, err := keys.RotateDEK(ctx)
	if err != nil {
		return fmt.Errorf("failed to rotate data-encryption key: %w", err)
	}
	defer zeroBytes(dek)

	logger.Info("data-encryption key rotated successfully", slog.Int("key_bytes", len(dek)))
	return nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
