package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/snpvault/enclave-core/internal/metrics"
	"github.com/snpvault/enclave-core/internal/vault/domain"
)

// vaultUseCaseWithMetrics decorates Vault with business-metrics instrumentation.
type vaultUseCaseWithMetrics struct {
	next    Vault
	metrics metrics.BusinessMetrics
}

// NewVaultUseCaseWithMetrics wraps a Vault with metrics recording.
func NewVaultUseCaseWithMetrics(next Vault, m metrics.BusinessMetrics) Vault {
	return &vaultUseCaseWithMetrics{next: next, metrics: m}
}

func (v *vaultUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	v.metrics.RecordOperation(ctx, "vault", operation, status)
	v.metrics.RecordDuration(ctx, "vault", operation, time.Since(start), status)
}

func (v *vaultUseCaseWithMetrics) Create(ctx context.Context, input CreateInput) (uuid.UUID, error) {
	start := time.Now()
	id, err := v.next.Create(ctx, input)
	v.record(ctx, "connection_create", start, err)
	return id, err
}

func (v *vaultUseCaseWithMetrics) WithDecrypted(ctx context.Context, id uuid.UUID, fn func(*domain.DecryptedCredentials) error) error {
	start := time.Now()
	err := v.next.WithDecrypted(ctx, id, fn)
	v.record(ctx, "connection_decrypt", start, err)
	return err
}

func (v *vaultUseCaseWithMetrics) ListByUser(ctx context.Context, userUID string) ([]*domain.Connection, error) {
	start := time.Now()
	conns, err := v.next.ListByUser(ctx, userUID)
	v.record(ctx, "connection_list", start, err)
	return conns, err
}

func (v *vaultUseCaseWithMetrics) Update(ctx context.Context, input UpdateInput) error {
	start := time.Now()
	err := v.next.Update(ctx, input)
	v.record(ctx, "connection_update", start, err)
	return err
}

func (v *vaultUseCaseWithMetrics) Deactivate(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := v.next.Deactivate(ctx, id)
	v.record(ctx, "connection_deactivate", start, err)
	return err
}

func (v *vaultUseCaseWithMetrics) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := v.next.Delete(ctx, id)
	v.record(ctx, "connection_delete", start, err)
	return err
}

func (v *vaultUseCaseWithMetrics) CountActiveByUser(ctx context.Context, userUID string) (int, error) {
	return v.next.CountActiveByUser(ctx, userUID)
}

func (v *vaultUseCaseWithMetrics) CountActiveTotal(ctx context.Context) (int, error) {
	return v.next.CountActiveTotal(ctx)
}

func (v *vaultUseCaseWithMetrics) ListActiveUserUIDs(ctx context.Context) ([]string, error) {
	return v.next.ListActiveUserUIDs(ctx)
}
