package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	schedulerConnector "github.com/snpvault/enclave-core/internal/scheduler/connector"
	schedulerRepository "github.com/snpvault/enclave-core/internal/scheduler/repository"
	schedulerUsecase "github.com/snpvault/enclave-core/internal/scheduler/usecase"
	vaultDomain "github.com/snpvault/enclave-core/internal/vault/domain"
	vaultRepository "github.com/snpvault/enclave-core/internal/vault/repository"
	vaultUsecase "github.com/snpvault/enclave-core/internal/vault/usecase"
)

// connectionSource adapts the vault's Vault and ConnectionRepository
// contracts into the narrower ConnectionSource the scheduler depends on, so
// the scheduler package never imports the vault use-case or repository
// packages directly.
type connectionSource struct {
	vault vaultUsecase.Vault
	repo  vaultRepository.ConnectionRepository
}

func (s *connectionSource) ListActiveUserUIDs(ctx context.Context) ([]string, error) {
	return s.repo.ListActiveUserUIDs(ctx)
}

func (s *connectionSource) ListByUser(ctx context.Context, userUID string) ([]*vaultDomain.Connection, error) {
	return s.vault.ListByUser(ctx, userUID)
}

func (s *connectionSource) WithDecrypted(ctx context.Context, id uuid.UUID, fn func(*vaultDomain.DecryptedCredentials) error) error {
	return s.vault.WithDecrypted(ctx, id, fn)
}

// SnapshotRepository returns the driver-selected snapshot repository.
func (c *Container) SnapshotRepository() (schedulerRepository.SnapshotRepository, error) {
	return onceErr(&c.snapshotRepoInit, c.initErrors, "snapshotRepo", func() (schedulerRepository.SnapshotRepository, error) {
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("snapshot repository: %w", err)
		}
		if c.config.DBDriver == "mysql" {
			return schedulerRepository.NewMySQLSnapshotRepository(db), nil
		}
		return schedulerRepository.NewPostgreSQLSnapshotRepository(db), nil
	}, func() schedulerRepository.SnapshotRepository { return c.snapshotRepo }, func(v schedulerRepository.SnapshotRepository) { c.snapshotRepo = v })
}

// SyncStatusRepository returns the driver-selected sync status repository.
func (c *Container) SyncStatusRepository() (schedulerRepository.SyncStatusRepository, error) {
	return onceErr(&c.syncStatusRepoInit, c.initErrors, "syncStatusRepo", func() (schedulerRepository.SyncStatusRepository, error) {
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("sync status repository: %w", err)
		}
		if c.config.DBDriver == "mysql" {
			return schedulerRepository.NewMySQLSyncStatusRepository(db), nil
		}
		return schedulerRepository.NewPostgreSQLSyncStatusRepository(db), nil
	}, func() schedulerRepository.SyncStatusRepository { return c.syncStatusRepo }, func(v schedulerRepository.SyncStatusRepository) { c.syncStatusRepo = v })
}

// ConnectorRegistry returns the exchange connector registry. Empty for now:
// no concrete exchange wire dialect ships in this tree, so the registry
// starts with zero entries and RunTick simply skips every connection it
// cannot find a connector for. Adding an exchange means registering its
// Connector implementation here.
func (c *Container) ConnectorRegistry() schedulerConnector.Registry {
	c.connectorRegistryInit.Do(func() {
		c.connectorRegistry = schedulerConnector.NewRegistry(map[string]schedulerConnector.Connector{})
	})
	return c.connectorRegistry
}

// Scheduler returns the daily snapshot scheduler use case, decorated with
// business metrics when metrics are enabled.
func (c *Container) Scheduler(ctx context.Context) (schedulerUsecase.Scheduler, error) {
	return onceErr(&c.schedulerInit, c.initErrors, "scheduler", func() (schedulerUsecase.Scheduler, error) {
		vault, err := c.Vault(ctx)
		if err != nil {
			return nil, fmt.Errorf("scheduler: %w", err)
		}
		connRepo, err := c.ConnectionRepository()
		if err != nil {
			return nil, fmt.Errorf("scheduler: %w", err)
		}
		snapshots, err := c.SnapshotRepository()
		if err != nil {
			return nil, fmt.Errorf("scheduler: %w", err)
		}
		statuses, err := c.SyncStatusRepository()
		if err != nil {
			return nil, fmt.Errorf("scheduler: %w", err)
		}
		txManager, err := c.TxManager()
		if err != nil {
			return nil, fmt.Errorf("scheduler: %w", err)
		}
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("scheduler: %w", err)
		}
		audit, err := c.AuditUseCase(ctx)
		if err != nil {
			return nil, fmt.Errorf("scheduler: %w", err)
		}

		source := &connectionSource{vault: vault, repo: connRepo}
		s := schedulerUsecase.NewSchedulerUseCase(
			source,
			snapshots,
			statuses,
			c.ConnectorRegistry(),
			txManager,
			c.config.ConnectorPacingDelay,
			c.Logger(),
		)
		audited := schedulerUsecase.NewSchedulerUseCaseWithAudit(s, audit)
		return schedulerUsecase.NewSchedulerUseCaseWithMetrics(audited, businessMetrics), nil
	}, func() schedulerUsecase.Scheduler { return c.scheduler }, func(v schedulerUsecase.Scheduler) { c.scheduler = v })
}
