package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/snpvault/enclave-core/internal/audit/domain"
	"github.com/snpvault/enclave-core/internal/audit/repository"
	"github.com/snpvault/enclave-core/internal/audit/service"
	apperrors "github.com/snpvault/enclave-core/internal/errors"
)

type auditUseCase struct {
	repo   repository.AuditLogRepository
	keys   KeySource
	signer service.Signer
}

// NewAuditUseCase wires a repository, the active-DEK source, and a signer
// into an audit UseCase.
func NewAuditUseCase(repo repository.AuditLogRepository, keys KeySource, signer service.Signer) UseCase {
	return &auditUseCase{repo: repo, keys: keys, signer: signer}
}

func (a *auditUseCase) Record(
	ctx context.Context,
	requestID uuid.UUID,
	userUID *string,
	action, resource string,
	metadata map[string]any,
) error {
	dek, err := a.keys.GetCurrentDEK(ctx)
	if err != nil {
		return apperrors.Wrap(err, "failed to get current DEK for audit signing")
	}
	defer zero(dek)

	dekID, err := a.keys.CurrentDEKID(ctx)
	if err != nil {
		return apperrors.Wrap(err, "failed to get current DEK id for audit signing")
	}

	log := &domain.AuditLog{
		ID:        uuid.Must(uuid.NewV7()),
		RequestID: requestID,
		UserUID:   userUID,
		Action:    action,
		Resource:  resource,
		Metadata:  metadata,
		DekID:     &dekID,
		CreatedAt: time.Now().UTC(),
	}

	sig, err := a.signer.Sign(dek, log)
	if err != nil {
		return apperrors.Wrap(err, "failed to sign audit log")
	}
	log.Signature = sig
	log.IsSigned = true

	if err := a.repo.Create(ctx, log); err != nil {
		return apperrors.Wrap(err, "failed to create audit log")
	}
	return nil
}

func (a *auditUseCase) List(ctx context.Context, offset, limit int, createdAtFrom, createdAtTo *time.Time) ([]*domain.AuditLog, error) {
	logs, err := a.repo.List(ctx, offset, limit, createdAtFrom, createdAtTo)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}
	return logs, nil
}

// Verify recomputes the entry's signature under the currently active DEK.
// A log signed under a DEK that has since been rotated out will fail
// verification here even if it was never tampered with; the key hierarchy
// keeps no history of retired DEKs to re-derive the original signing key
// from, so verification is only meaningful against entries signed since the
// last rotation.
func (a *auditUseCase) Verify(ctx context.Context, id uuid.UUID) error {
	dek, err := a.keys.GetCurrentDEK(ctx)
	if err != nil {
		return apperrors.Wrap(err, "failed to get current DEK for audit verification")
	}
	defer zero(dek)

	log, err := a.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !log.HasValidSignature() {
		return domain.ErrSignatureInvalid
	}
	return a.signer.Verify(dek, log)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
