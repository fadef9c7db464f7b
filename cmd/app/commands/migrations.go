package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/snpvault/enclave-core/internal/config"
)

// RunMigrations executes database migrations for the given driver and
// connection string. Determines migration path from driver (postgres or
// mysql) and applies all pending migrations. Returns nil if there are none
// to apply. Logging and the connection string are passed in explicitly
// rather than loaded from config, so this can be driven from a test or a
// one-off invocation without going through the full DI container.
func RunMigrations(logger *slog.Logger, driver, connectionString string) error {
	logger.Info("running database migrations", slog.String("driver", driver))

	migrationsPath := "file://migrations/postgresql"
	if driver == "mysql" {
		migrationsPath = "file://migrations/mysql"
	}

	m, err := migrate.New(migrationsPath, connectionString)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer closeMigrate(m, logger)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("migrations completed successfully")
	return nil
}

// RunMigrationsFromEnv loads configuration from the environment and runs
// migrations against it. This is the entry point the CLI uses; RunMigrations
// itself stays environment-agnostic for testability.
func RunMigrationsFromEnv() error {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	return RunMigrations(logger, cfg.DBDriver, cfg.DBConnectionString)
}
