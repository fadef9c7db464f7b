// Package app provides the dependency injection container assembling the
// enclave's components in the order Trust Bootstrap (4.F) requires.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/snpvault/enclave-core/internal/config"
	"github.com/snpvault/enclave-core/internal/database"
	"github.com/snpvault/enclave-core/internal/http"
	"github.com/snpvault/enclave-core/internal/metrics"

	admissionHTTP "github.com/snpvault/enclave-core/internal/admission/http"
	attestationDomain "github.com/snpvault/enclave-core/internal/attestation/domain"
	attestationService "github.com/snpvault/enclave-core/internal/attestation/service"
	auditRepository "github.com/snpvault/enclave-core/internal/audit/repository"
	auditService "github.com/snpvault/enclave-core/internal/audit/service"
	auditUsecase "github.com/snpvault/enclave-core/internal/audit/usecase"
	identityService "github.com/snpvault/enclave-core/internal/identity/service"
	keyhierarchyRepository "github.com/snpvault/enclave-core/internal/keyhierarchy/repository"
	keyhierarchyUsecase "github.com/snpvault/enclave-core/internal/keyhierarchy/usecase"
	schedulerConnector "github.com/snpvault/enclave-core/internal/scheduler/connector"
	schedulerRepository "github.com/snpvault/enclave-core/internal/scheduler/repository"
	schedulerUsecase "github.com/snpvault/enclave-core/internal/scheduler/usecase"
	vaultRepository "github.com/snpvault/enclave-core/internal/vault/repository"
	vaultUsecase "github.com/snpvault/enclave-core/internal/vault/usecase"
)

const metricsNamespace = "enclave_core"

// Container holds every process singleton and assembles them lazily, in the
// order Trust Bootstrap requires: identities before attestation, attestation
// before the key hierarchy, the key hierarchy before the vault, scheduler
// and audit trail, all of it before the admission endpoint and scheduler
// start. Each dependency is created at most once, guarded by its own
// sync.Once, following the lazy-singleton shape this container used before
// this domain existed.
type Container struct {
	config *config.Config

	logger *slog.Logger
	db     *sql.DB

	txManager database.TxManager

	tlsIdentity         *identityService.TLSIdentityService
	e2eChannel          *identityService.E2EChannelService
	attestationProvider attestationService.Provider
	attestationReport   *attestationDomain.Report
	requestData         [attestationDomain.ReportDataSize]byte

	dekRepo          keyhierarchyRepository.DekRepository
	keyHierarchyBase keyhierarchyUsecase.KeyHierarchy
	keyHierarchy     keyhierarchyUsecase.KeyHierarchy

	connectionRepo vaultRepository.ConnectionRepository
	vault          vaultUsecase.Vault

	auditLogRepo auditRepository.AuditLogRepository
	auditUseCase auditUsecase.UseCase

	snapshotRepo      schedulerRepository.SnapshotRepository
	syncStatusRepo    schedulerRepository.SyncStatusRepository
	connectorRegistry schedulerConnector.Registry
	scheduler         schedulerUsecase.Scheduler

	admissionHandler *admissionHTTP.Handler

	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	httpServer    *http.Server
	metricsServer *http.MetricsServer

	mu         sync.Mutex
	initErrors map[string]error

	loggerInit              sync.Once
	dbInit                  sync.Once
	txManagerInit           sync.Once
	tlsIdentityInit         sync.Once
	e2eChannelInit          sync.Once
	attestationProviderInit sync.Once
	attestationReportInit   sync.Once
	requestDataInit         sync.Once
	dekRepoInit             sync.Once
	keyHierarchyBaseInit    sync.Once
	keyHierarchyInit        sync.Once
	connectionRepoInit      sync.Once
	vaultInit               sync.Once
	auditLogRepoInit        sync.Once
	auditUseCaseInit        sync.Once
	snapshotRepoInit        sync.Once
	syncStatusRepoInit      sync.Once
	connectorRegistryInit   sync.Once
	schedulerInit           sync.Once
	admissionHandlerInit    sync.Once
	metricsProviderInit     sync.Once
	businessMetricsInit     sync.Once
	httpServerInit          sync.Once
	metricsServerInit       sync.Once
}

// NewContainer creates a dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured structured logger, building it on first access.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

func (c *Container) initLogger() *slog.Logger {
	var level slog.Level
	switch c.config.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// DB returns the database connection, connecting on first access.
func (c *Container) DB() (*sql.DB, error) {
	return onceErr(&c.dbInit, c.initErrors, "db", func() (*sql.DB, error) {
		return database.Connect(database.Config{
			Driver:             c.config.DBDriver,
			ConnectionString:   c.config.DBConnectionString,
			MaxOpenConnections: c.config.DBMaxOpenConnections,
			MaxIdleConnections: c.config.DBMaxIdleConnections,
			ConnMaxLifetime:    c.config.DBConnMaxLifetime,
		})
	}, func() *sql.DB { return c.db }, func(v *sql.DB) { c.db = v })
}

// TxManager returns the shared transaction manager.
func (c *Container) TxManager() (database.TxManager, error) {
	return onceErr(&c.txManagerInit, c.initErrors, "txManager", func() (database.TxManager, error) {
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("tx manager: %w", err)
		}
		return database.NewTxManager(db), nil
	}, func() database.TxManager { return c.txManager }, func(v database.TxManager) { c.txManager = v })
}

// AuditUseCase returns the audit trail use case, wiring the repository and
// signer on first access. It depends on the undecorated key hierarchy (as
// its DEK-derived signing-key source) rather than the public, audit-wrapped
// KeyHierarchy accessor, since the public one wraps rotations/migrations
// with a call back into this very use case — depending on it here would be
// a cycle.
func (c *Container) AuditUseCase(ctx context.Context) (auditUsecase.UseCase, error) {
	return onceErr(&c.auditUseCaseInit, c.initErrors, "auditUseCase", func() (auditUsecase.UseCase, error) {
		repo, err := c.AuditLogRepository()
		if err != nil {
			return nil, fmt.Errorf("audit use case: %w", err)
		}
		keys, err := c.keyHierarchyBaseAccessor(ctx)
		if err != nil {
			return nil, fmt.Errorf("audit use case: %w", err)
		}
		return auditUsecase.NewAuditUseCase(repo, keys, auditService.NewAuditSigner()), nil
	}, func() auditUsecase.UseCase { return c.auditUseCase }, func(v auditUsecase.UseCase) { c.auditUseCase = v })
}

// AuditLogRepository returns the driver-selected audit log repository.
func (c *Container) AuditLogRepository() (auditRepository.AuditLogRepository, error) {
	return onceErr(&c.auditLogRepoInit, c.initErrors, "auditLogRepo", func() (auditRepository.AuditLogRepository, error) {
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("audit log repository: %w", err)
		}
		if c.config.DBDriver == "mysql" {
			return auditRepository.NewMySQLAuditLogRepository(db), nil
		}
		return auditRepository.NewPostgreSQLAuditLogRepository(db), nil
	}, func() auditRepository.AuditLogRepository { return c.auditLogRepo }, func(v auditRepository.AuditLogRepository) { c.auditLogRepo = v })
}

// MetricsProvider returns the Prometheus-backed OpenTelemetry meter provider,
// or nil if metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}
	return onceErr(&c.metricsProviderInit, c.initErrors, "metricsProvider", func() (*metrics.Provider, error) {
		return metrics.NewProvider(metricsNamespace)
	}, func() *metrics.Provider { return c.metricsProvider }, func(v *metrics.Provider) { c.metricsProvider = v })
}

// BusinessMetrics returns the business metrics recorder, falling back to a
// no-op implementation when metrics are disabled so every use-case decorator
// can unconditionally wrap its next layer.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	return onceErr(&c.businessMetricsInit, c.initErrors, "businessMetrics", func() (metrics.BusinessMetrics, error) {
		provider, err := c.MetricsProvider()
		if err != nil {
			return nil, fmt.Errorf("business metrics: %w", err)
		}
		if provider == nil {
			return metrics.NewNoOpBusinessMetrics(), nil
		}
		return metrics.NewBusinessMetrics(provider.MeterProvider(), metricsNamespace)
	}, func() metrics.BusinessMetrics { return c.businessMetrics }, func(v metrics.BusinessMetrics) { c.businessMetrics = v })
}

// MetricsServer returns the standalone metrics HTTP server, or nil if
// metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	if !c.config.MetricsEnabled {
		return nil, nil
	}
	return onceErr(&c.metricsServerInit, c.initErrors, "metricsServer", func() (*http.MetricsServer, error) {
		provider, err := c.MetricsProvider()
		if err != nil {
			return nil, fmt.Errorf("metrics server: %w", err)
		}
		return http.NewMetricsServer(c.config.MetricsHost, c.config.MetricsPort, c.Logger(), provider), nil
	}, func() *http.MetricsServer { return c.metricsServer }, func(v *http.MetricsServer) { c.metricsServer = v })
}

// HTTPServer returns the admission HTTP server, building and wiring its
// router with every dependency on first access.
func (c *Container) HTTPServer() (*http.Server, error) {
	return onceErr(&c.httpServerInit, c.initErrors, "httpServer", func() (*http.Server, error) {
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("http server: %w", err)
		}
		admission, err := c.AdmissionHandler()
		if err != nil {
			return nil, fmt.Errorf("http server: %w", err)
		}
		metricsProvider, err := c.MetricsProvider()
		if err != nil {
			return nil, fmt.Errorf("http server: %w", err)
		}

		server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, c.Logger())
		server.SetupRouter(c.config, admission, metricsProvider, metricsNamespace)
		return server, nil
	}, func() *http.Server { return c.httpServer }, func(v *http.Server) { c.httpServer = v })
}

// Shutdown releases every initialized resource. It should be called once on
// process exit, after the HTTP server and metrics server have been stopped.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
		}
	}
	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}
	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}
	if c.tlsIdentity != nil {
		if identity, err := c.tlsIdentity.GetCredentials(); err == nil {
			identity.Zero()
		}
	}
	if c.e2eChannel != nil {
		if identity, err := c.e2eChannel.GetIdentity(); err == nil {
			identity.Zero()
		}
	}
	if c.keyHierarchy != nil {
		c.keyHierarchy.ClearCache()
	}
	if c.db != nil {
		if err := c.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database close: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}

// onceErr memoizes a fallible initializer behind a sync.Once, storing the
// first error under key so every later caller observes the same failure
// instead of silently retrying (a retry could produce a second, distinct
// identity or DEK, breaking the single-owned-value guarantee the
// singletons in 4.F depend on).
func onceErr[T any](
	once *sync.Once,
	errs map[string]error,
	key string,
	build func() (T, error),
	get func() T,
	set func(T),
) (T, error) {
	once.Do(func() {
		v, err := build()
		if err != nil {
			errs[key] = err
			return
		}
		set(v)
	})
	if err, ok := errs[key]; ok {
		var zero T
		return zero, err
	}
	return get(), nil
}
