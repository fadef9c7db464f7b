package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snpvault/enclave-core/internal/audit/domain"
	"github.com/snpvault/enclave-core/internal/audit/service"
)

type fakeAuditLogRepo struct {
	mu   sync.Mutex
	logs map[uuid.UUID]*domain.AuditLog
}

func newFakeAuditLogRepo() *fakeAuditLogRepo {
	return &fakeAuditLogRepo{logs: make(map[uuid.UUID]*domain.AuditLog)}
}

func (f *fakeAuditLogRepo) Create(_ context.Context, log *domain.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *log
	f.logs[log.ID] = &cp
	return nil
}

func (f *fakeAuditLogRepo) Get(_ context.Context, id uuid.UUID) (*domain.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	log, ok := f.logs[id]
	if !ok {
		return nil, domain.ErrLogNotFound
	}
	cp := *log
	return &cp, nil
}

func (f *fakeAuditLogRepo) List(_ context.Context, offset, limit int, _, _ *time.Time) ([]*domain.AuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	logs := make([]*domain.AuditLog, 0, len(f.logs))
	for _, log := range f.logs {
		cp := *log
		logs = append(logs, &cp)
	}
	return logs, nil
}

type fakeKeySource struct {
	dek   []byte
	dekID uuid.UUID
	err   error
}

func (f fakeKeySource) GetCurrentDEK(_ context.Context) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]byte(nil), f.dek...), nil
}

func (f fakeKeySource) CurrentDEKID(_ context.Context) (uuid.UUID, error) {
	if f.err != nil {
		return uuid.UUID{}, f.err
	}
	return f.dekID, nil
}

func newTestUseCase(repo *fakeAuditLogRepo, keys KeySource) UseCase {
	return NewAuditUseCase(repo, keys, service.NewAuditSigner())
}

func TestRecord_SignsAndPersistsWithDekID(t *testing.T) {
	repo := newFakeAuditLogRepo()
	dekID := uuid.Must(uuid.NewV7())
	keys := fakeKeySource{dek: []byte("0123456789abcdef0123456789abcdef"), dekID: dekID}
	uc := newTestUseCase(repo, keys)

	requestID := uuid.Must(uuid.NewV7())
	userUID := "user-1"
	err := uc.Record(context.Background(), requestID, &userUID, "credentials_connect_succeeded", "credentials", map[string]any{"exchange": "binance"})
	require.NoError(t, err)

	require.Len(t, repo.logs, 1)
	var stored *domain.AuditLog
	for _, log := range repo.logs {
		stored = log
	}
	require.NotNil(t, stored)
	assert.True(t, stored.IsSigned)
	require.NotNil(t, stored.DekID)
	assert.Equal(t, dekID, *stored.DekID)
	assert.True(t, stored.HasValidSignature())
}

func TestRecord_VerifyRoundTrip(t *testing.T) {
	repo := newFakeAuditLogRepo()
	dekID := uuid.Must(uuid.NewV7())
	keys := fakeKeySource{dek: []byte("0123456789abcdef0123456789abcdef"), dekID: dekID}
	uc := newTestUseCase(repo, keys)

	requestID := uuid.Must(uuid.NewV7())
	err := uc.Record(context.Background(), requestID, nil, "scheduler_tick", "scheduler", map[string]any{"outcome": "completed"})
	require.NoError(t, err)

	var id uuid.UUID
	for logID := range repo.logs {
		id = logID
	}

	assert.NoError(t, uc.Verify(context.Background(), id))
}

func TestVerify_FailsOnTamperedMetadata(t *testing.T) {
	repo := newFakeAuditLogRepo()
	dekID := uuid.Must(uuid.NewV7())
	keys := fakeKeySource{dek: []byte("0123456789abcdef0123456789abcdef"), dekID: dekID}
	uc := newTestUseCase(repo, keys)

	requestID := uuid.Must(uuid.NewV7())
	err := uc.Record(context.Background(), requestID, nil, "dek_rotated", "key_hierarchy", map[string]any{"outcome": "success"})
	require.NoError(t, err)

	var id uuid.UUID
	for logID := range repo.logs {
		id = logID
	}
	repo.logs[id].Metadata = map[string]any{"outcome": "failure"}

	err = uc.Verify(context.Background(), id)
	require.Error(t, err)
}

func TestVerify_FailsWhenDekIDMissing(t *testing.T) {
	repo := newFakeAuditLogRepo()
	log := &domain.AuditLog{
		ID:        uuid.Must(uuid.NewV7()),
		RequestID: uuid.Must(uuid.NewV7()),
		Action:    "dek_rotated",
		Resource:  "key_hierarchy",
		Signature: make([]byte, 32),
		IsSigned:  true,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, repo.Create(context.Background(), log))

	keys := fakeKeySource{dek: []byte("0123456789abcdef0123456789abcdef"), dekID: uuid.Must(uuid.NewV7())}
	uc := newTestUseCase(repo, keys)

	err := uc.Verify(context.Background(), log.ID)
	assert.ErrorIs(t, err, domain.ErrSignatureInvalid)
}
