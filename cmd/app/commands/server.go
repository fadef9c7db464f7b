package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/snpvault/enclave-core/internal/app"
	"github.com/snpvault/enclave-core/internal/bootstrap"
	"github.com/snpvault/enclave-core/internal/config"
)

// RunServer runs Trust Bootstrap end to end and then serves the admission
// endpoint until a shutdown signal arrives. Steps run strictly in order:
// memory hygiene, identity derivation, attestation, data-encryption key
// readiness, then the admission endpoint and the snapshot scheduler. Any
// failure before the endpoint starts aborts the process rather than serving
// in a degraded trust state.
func RunServer(ctx context.Context, version string) error {
	cfg := config.Load()
	gin.SetMode(cfg.GetGinMode())

	container := app.NewContainer(cfg)
	logger := container.Logger()
	logger.Info("starting enclave-core", slog.String("version", version))
	defer closeContainer(container, logger)

	// Step 1: memory hygiene, before any key material exists.
	if err := bootstrap.HardenProcess(logger); err != nil {
		return fmt.Errorf("trust bootstrap: %w", err)
	}

	// Steps 2-5: identity derivation, request_data binding, and attestation.
	// AttestationReport pulls TLS/E2E identity derivation and request_data
	// construction in ahead of itself; it is the one call that runs the
	// whole chain and applies the production abort policy.
	if _, err := container.AttestationReport(ctx); err != nil {
		return fmt.Errorf("trust bootstrap: %w", err)
	}

	// Step 6: connect to the database and ensure an active data-encryption key.
	if err := container.EnsureDEK(ctx); err != nil {
		return fmt.Errorf("trust bootstrap: %w", err)
	}

	// Step 7: start the admission endpoint and the scheduler.
	server, err := container.HTTPServer()
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}

	if cfg.SchedulerEnabled {
		if _, err := container.Scheduler(ctx); err != nil {
			return fmt.Errorf("failed to initialize scheduler: %w", err)
		}
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	serverErr := make(chan error, 2)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErr <- fmt.Errorf("api server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				serverErr <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.DBConnMaxLifetime)
		defer shutdownCancel()

		var shutdownErrors []error

		if err := server.Shutdown(shutdownCtx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("api server shutdown: %w", err))
		}

		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
			}
		}

		if len(shutdownErrors) > 0 {
			return errors.Join(shutdownErrors...)
		}
	case err := <-serverErr:
		logger.Error("server error, initiating shutdown", slog.Any("error", err))
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.DBConnMaxLifetime)
		defer shutdownCancel()

		shutdownErrors := []error{err}

		if shutErr := server.Shutdown(shutdownCtx); shutErr != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("api server shutdown: %w", shutErr))
		}

		if metricsServer != nil {
			if shutErr := metricsServer.Shutdown(shutdownCtx); shutErr != nil {
				shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", shutErr))
			}
		}

		return errors.Join(shutdownErrors...)
	}

	return nil
}
