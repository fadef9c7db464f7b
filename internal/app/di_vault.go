package app

import (
	"context"
	"fmt"

	vaultRepository "github.com/snpvault/enclave-core/internal/vault/repository"
	vaultUsecase "github.com/snpvault/enclave-core/internal/vault/usecase"
)

// ConnectionRepository returns the driver-selected connection repository.
func (c *Container) ConnectionRepository() (vaultRepository.ConnectionRepository, error) {
	return onceErr(&c.connectionRepoInit, c.initErrors, "connectionRepo", func() (vaultRepository.ConnectionRepository, error) {
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("connection repository: %w", err)
		}
		if c.config.DBDriver == "mysql" {
			return vaultRepository.NewMySQLConnectionRepository(db), nil
		}
		return vaultRepository.NewPostgreSQLConnectionRepository(db), nil
	}, func() vaultRepository.ConnectionRepository { return c.connectionRepo }, func(v vaultRepository.ConnectionRepository) { c.connectionRepo = v })
}

// Vault returns the credential vault use case, decorated with business
// metrics when metrics are enabled.
func (c *Container) Vault(ctx context.Context) (vaultUsecase.Vault, error) {
	return onceErr(&c.vaultInit, c.initErrors, "vault", func() (vaultUsecase.Vault, error) {
		repo, err := c.ConnectionRepository()
		if err != nil {
			return nil, fmt.Errorf("vault: %w", err)
		}
		keys, err := c.KeyHierarchy(ctx)
		if err != nil {
			return nil, fmt.Errorf("vault: %w", err)
		}
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("vault: %w", err)
		}

		v := vaultUsecase.NewVaultUseCase(repo, keys, c.Logger())
		return vaultUsecase.NewVaultUseCaseWithMetrics(v, businessMetrics), nil
	}, func() vaultUsecase.Vault { return c.vault }, func(v vaultUsecase.Vault) { c.vault = v })
}
