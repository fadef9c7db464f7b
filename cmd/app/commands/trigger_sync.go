package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/snpvault/enclave-core/internal/app"
	"github.com/snpvault/enclave-core/internal/config"
)

// RunTriggerSync runs one daily-snapshot pass immediately, outside the cron
// schedule (4.H TriggerManualSync). It refuses to run if a scheduled tick is
// already in flight rather than queuing behind it.
func RunTriggerSync(ctx context.Context) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	scheduler, err := container.Scheduler(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	if err := scheduler.TriggerManualSync(ctx); err != nil {
		return fmt.Errorf("failed to trigger sync: %w", err)
	}

	logger.Info("manual sync completed", slog.String("trigger", "cli"))
	return nil
}
