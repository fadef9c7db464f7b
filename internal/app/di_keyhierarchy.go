package app

import (
	"context"
	"fmt"

	"github.com/snpvault/enclave-core/internal/bootstrap"
	keyhierarchyRepository "github.com/snpvault/enclave-core/internal/keyhierarchy/repository"
	keyhierarchyUsecase "github.com/snpvault/enclave-core/internal/keyhierarchy/usecase"
)

// DekRepository returns the driver-selected DEK repository.
func (c *Container) DekRepository() (keyhierarchyRepository.DekRepository, error) {
	return onceErr(&c.dekRepoInit, c.initErrors, "dekRepo", func() (keyhierarchyRepository.DekRepository, error) {
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("dek repository: %w", err)
		}
		if c.config.DBDriver == "mysql" {
			return keyhierarchyRepository.NewMySQLDekRepository(db), nil
		}
		return keyhierarchyRepository.NewPostgreSQLDekRepository(db), nil
	}, func() keyhierarchyRepository.DekRepository { return c.dekRepo }, func(v keyhierarchyRepository.DekRepository) { c.dekRepo = v })
}

// keyHierarchyBaseAccessor builds the undecorated key hierarchy use case.
// Building it requires a verified attestation report as its measurement
// source, so the first call runs attestation if it has not already run.
// Kept separate from the public KeyHierarchy accessor so AuditUseCase can
// depend on this one without going through the audit decorator it itself
// backs.
func (c *Container) keyHierarchyBaseAccessor(ctx context.Context) (keyhierarchyUsecase.KeyHierarchy, error) {
	return onceErr(&c.keyHierarchyBaseInit, c.initErrors, "keyHierarchyBase", func() (keyhierarchyUsecase.KeyHierarchy, error) {
		report, err := c.AttestationReport(ctx)
		if err != nil {
			return nil, fmt.Errorf("key hierarchy: %w", err)
		}
		repo, err := c.DekRepository()
		if err != nil {
			return nil, fmt.Errorf("key hierarchy: %w", err)
		}
		txManager, err := c.TxManager()
		if err != nil {
			return nil, fmt.Errorf("key hierarchy: %w", err)
		}
		source := &bootstrap.ReportMeasurementSource{Report: report}
		return keyhierarchyUsecase.NewKeyHierarchyUseCase(txManager, repo, source), nil
	}, func() keyhierarchyUsecase.KeyHierarchy { return c.keyHierarchyBase }, func(v keyhierarchyUsecase.KeyHierarchy) { c.keyHierarchyBase = v })
}

// KeyHierarchy returns the key hierarchy use case decorated with audit
// recording, wired into every caller that rotates, migrates, or reads the
// active DEK.
func (c *Container) KeyHierarchy(ctx context.Context) (keyhierarchyUsecase.KeyHierarchy, error) {
	return onceErr(&c.keyHierarchyInit, c.initErrors, "keyHierarchy", func() (keyhierarchyUsecase.KeyHierarchy, error) {
		base, err := c.keyHierarchyBaseAccessor(ctx)
		if err != nil {
			return nil, fmt.Errorf("key hierarchy: %w", err)
		}
		audit, err := c.AuditUseCase(ctx)
		if err != nil {
			return nil, fmt.Errorf("key hierarchy: %w", err)
		}
		return keyhierarchyUsecase.NewKeyHierarchyUseCaseWithAudit(base, audit), nil
	}, func() keyhierarchyUsecase.KeyHierarchy { return c.keyHierarchy }, func(v keyhierarchyUsecase.KeyHierarchy) { c.keyHierarchy = v })
}

// EnsureDEK implements bootstrap step 6: connect to the database, and ensure
// an active DEK exists. A fresh deployment initializes one by rotating into
// existence; a deployment whose master key no longer matches the wrapping
// key on the active record must be migrated explicitly via the
// migrate-master-key operation rather than silently re-wrapped here, since
// silently accepting a different master key would defeat the mismatch check
// this step exists to enforce.
func (c *Container) EnsureDEK(ctx context.Context) error {
	keys, err := c.KeyHierarchy(ctx)
	if err != nil {
		return fmt.Errorf("ensure dek: %w", err)
	}

	needsMigration, err := keys.NeedsMigration(ctx)
	if err != nil {
		return fmt.Errorf("ensure dek: checking migration status: %w", err)
	}
	if needsMigration {
		return fmt.Errorf("ensure dek: active data-encryption key requires migration to the current master key; run migrate-master-key")
	}

	needsInit, err := keys.NeedsInitialization(ctx)
	if err != nil {
		return fmt.Errorf("ensure dek: checking initialization status: %w", err)
	}
	if needsInit {
		if _, err := keys.RotateDEK(ctx); err != nil {
			return fmt.Errorf("ensure dek: initializing first data-encryption key: %w", err)
		}
		c.Logger().Info("initialized first data-encryption key")
	}

	return nil
}
