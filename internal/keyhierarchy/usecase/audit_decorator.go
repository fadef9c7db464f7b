package usecase

import (
	"context"

	"github.com/google/uuid"
)

// AuditRecorder is the subset of the audit trail's contract the key
// hierarchy needs: one signed event per rotation or migration. No user is
// associated with these events, so UserUID is always nil.
type AuditRecorder interface {
	Record(ctx context.Context, requestID uuid.UUID, userUID *string, action, resource string, metadata map[string]any) error
}

// keyHierarchyWithAudit decorates KeyHierarchy, recording a signed audit
// entry around every DEK rotation and master-key migration, in the same
// decorator shape as the metrics wrapper used elsewhere in this tree.
type keyHierarchyWithAudit struct {
	next  KeyHierarchy
	audit AuditRecorder
}

// NewKeyHierarchyUseCaseWithAudit wraps a KeyHierarchy so every rotation and
// migration is recorded to the audit trail, win or lose.
func NewKeyHierarchyUseCaseWithAudit(next KeyHierarchy, audit AuditRecorder) KeyHierarchy {
	return &keyHierarchyWithAudit{next: next, audit: audit}
}

func (k *keyHierarchyWithAudit) record(ctx context.Context, action string, err error) {
	metadata := map[string]any{"outcome": "success"}
	if err != nil {
		metadata["outcome"] = "failure"
		metadata["error"] = err.Error()
	}
	_ = k.audit.Record(ctx, uuid.Must(uuid.NewV7()), nil, action, "key_hierarchy", metadata)
}

func (k *keyHierarchyWithAudit) GetCurrentDEK(ctx context.Context) ([]byte, error) {
	return k.next.GetCurrentDEK(ctx)
}

func (k *keyHierarchyWithAudit) CurrentDEKID(ctx context.Context) (uuid.UUID, error) {
	return k.next.CurrentDEKID(ctx)
}

func (k *keyHierarchyWithAudit) RotateDEK(ctx context.Context) ([]byte, error) {
	dek, err := k.next.RotateDEK(ctx)
	k.record(ctx, "dek_rotated", err)
	return dek, err
}

func (k *keyHierarchyWithAudit) MigrateToNewMaster(ctx context.Context, oldMasterKey []byte) ([]byte, error) {
	dek, err := k.next.MigrateToNewMaster(ctx, oldMasterKey)
	k.record(ctx, "dek_migrated", err)
	return dek, err
}

func (k *keyHierarchyWithAudit) NeedsInitialization(ctx context.Context) (bool, error) {
	return k.next.NeedsInitialization(ctx)
}

func (k *keyHierarchyWithAudit) NeedsMigration(ctx context.Context) (bool, error) {
	return k.next.NeedsMigration(ctx)
}

func (k *keyHierarchyWithAudit) ClearCache() {
	k.next.ClearCache()
}
