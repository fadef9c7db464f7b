package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/snpvault/enclave-core/internal/vault/domain"
	"github.com/snpvault/enclave-core/internal/vault/service"
)

// vaultUseCase implements Vault. It holds no transaction manager of its own
// because every operation is a single statement after crypto completes
// (create, update, deactivate, delete) — there is nothing to coordinate
// across tables the way the key hierarchy's rotate/migrate pair does.
type vaultUseCase struct {
	repo   ConnectionRepository
	keys   KeySource
	logger *slog.Logger
}

// NewVaultUseCase wires a connection repository and a DEK source into a Vault.
func NewVaultUseCase(repo ConnectionRepository, keys KeySource, logger *slog.Logger) Vault {
	return &vaultUseCase{repo: repo, keys: keys, logger: logger}
}

func (v *vaultUseCase) Create(ctx context.Context, input CreateInput) (uuid.UUID, error) {
	existing, err := v.repo.GetByIdentity(ctx, input.UserUID, input.Exchange, input.Label)
	if err != nil && !errors.Is(err, domain.ErrConnectionNotFound) {
		return uuid.Nil, err
	}
	if existing != nil {
		return uuid.Nil, domain.ErrDuplicateConnection
	}

	dek, err := v.keys.GetCurrentDEK(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	defer zero(dek)

	v.warnOnDuplicateHash(ctx, input.UserUID, dek, input.APIKey, input.APISecret, input.Passphrase)

	conn, err := v.buildConnection(uuid.Must(uuid.NewV7()), input.UserUID, input.Exchange, input.Label, input.SyncIntervalMinutes, dek, input.APIKey, input.APISecret, input.Passphrase)
	if err != nil {
		return uuid.Nil, err
	}
	conn.IsActive = true
	conn.CreatedAt = time.Now().UTC()
	conn.UpdatedAt = conn.CreatedAt

	if err := v.repo.Create(ctx, conn); err != nil {
		return uuid.Nil, err
	}
	return conn.ID, nil
}

func (v *vaultUseCase) buildConnection(
	id uuid.UUID,
	userUID, exchange, label string,
	syncIntervalMinutes int,
	dek, apiKey, apiSecret, passphrase []byte,
) (*domain.Connection, error) {
	encKey, err := service.EncryptField(apiKey, dek)
	if err != nil {
		return nil, err
	}
	encSecret, err := service.EncryptField(apiSecret, dek)
	if err != nil {
		return nil, err
	}

	var encPassphrase *domain.EncryptedField
	if len(passphrase) > 0 {
		f, err := service.EncryptField(passphrase, dek)
		if err != nil {
			return nil, err
		}
		encPassphrase = &f
	}

	return &domain.Connection{
		ID:                  id,
		UserUID:             userUID,
		Exchange:            exchange,
		Label:               label,
		EncryptedAPIKey:     encKey,
		EncryptedAPISecret:  encSecret,
		EncryptedPassphrase: encPassphrase,
		CredentialsHash:     service.CredentialsHash(dek, apiKey, apiSecret, passphrase),
		SyncIntervalMinutes: syncIntervalMinutes,
	}, nil
}

// warnOnDuplicateHash logs (but does not block on) a credentials hash that
// matches an existing record under a different label, per spec.md's
// DeduplicationWarning: the insert still proceeds.
func (v *vaultUseCase) warnOnDuplicateHash(ctx context.Context, userUID string, dek, apiKey, apiSecret, passphrase []byte) {
	hash := service.CredentialsHash(dek, apiKey, apiSecret, passphrase)
	existing, err := v.repo.ListActiveByUser(ctx, userUID)
	if err != nil {
		return
	}
	for _, c := range existing {
		if c.CredentialsHash == hash {
			v.logger.Warn("duplicate credentials hash on new connection",
				slog.String("user_uid", userUID),
				slog.String("existing_connection_id", c.ID.String()),
			)
			return
		}
	}
}

func (v *vaultUseCase) WithDecrypted(ctx context.Context, id uuid.UUID, fn func(*domain.DecryptedCredentials) error) error {
	conn, err := v.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	dek, err := v.keys.GetCurrentDEK(ctx)
	if err != nil {
		return err
	}
	defer zero(dek)

	creds := &domain.DecryptedCredentials{}
	defer creds.Zero()

	creds.APIKey, err = service.DecryptField(conn.EncryptedAPIKey, dek)
	if err != nil {
		return domain.ErrDecryptionFailed
	}
	creds.APISecret, err = service.DecryptField(conn.EncryptedAPISecret, dek)
	if err != nil {
		return domain.ErrDecryptionFailed
	}
	if conn.EncryptedPassphrase != nil {
		creds.Passphrase, err = service.DecryptField(*conn.EncryptedPassphrase, dek)
		if err != nil {
			return domain.ErrDecryptionFailed
		}
	}

	return fn(creds)
}

func (v *vaultUseCase) ListByUser(ctx context.Context, userUID string) ([]*domain.Connection, error) {
	return v.repo.ListActiveByUser(ctx, userUID)
}

func (v *vaultUseCase) Update(ctx context.Context, input UpdateInput) error {
	conn, err := v.repo.Get(ctx, input.ID)
	if err != nil {
		return err
	}

	dek, err := v.keys.GetCurrentDEK(ctx)
	if err != nil {
		return err
	}
	defer zero(dek)

	if input.APIKey != nil {
		f, err := service.EncryptField(input.APIKey, dek)
		if err != nil {
			return err
		}
		conn.EncryptedAPIKey = f
	}
	if input.APISecret != nil {
		f, err := service.EncryptField(input.APISecret, dek)
		if err != nil {
			return err
		}
		conn.EncryptedAPISecret = f
	}
	if input.Passphrase != nil {
		f, err := service.EncryptField(input.Passphrase, dek)
		if err != nil {
			return err
		}
		conn.EncryptedPassphrase = &f
	}

	if input.APIKey != nil || input.APISecret != nil || input.Passphrase != nil {
		current, err := v.currentPlaintextTuple(conn, dek, input)
		if err != nil {
			return err
		}
		conn.CredentialsHash = service.CredentialsHash(dek, current.APIKey, current.APISecret, current.Passphrase)
		defer current.Zero()
	}

	conn.UpdatedAt = time.Now().UTC()
	return v.repo.Update(ctx, conn)
}

// currentPlaintextTuple resolves the full plaintext tuple after an update,
// decrypting any field UpdateInput left untouched so the recomputed
// credentials hash covers all three fields consistently.
func (v *vaultUseCase) currentPlaintextTuple(conn *domain.Connection, dek []byte, input UpdateInput) (*domain.DecryptedCredentials, error) {
	creds := &domain.DecryptedCredentials{}

	if input.APIKey != nil {
		creds.APIKey = append([]byte(nil), input.APIKey...)
	} else {
		plaintext, err := service.DecryptField(conn.EncryptedAPIKey, dek)
		if err != nil {
			return nil, domain.ErrDecryptionFailed
		}
		creds.APIKey = plaintext
	}

	if input.APISecret != nil {
		creds.APISecret = append([]byte(nil), input.APISecret...)
	} else {
		plaintext, err := service.DecryptField(conn.EncryptedAPISecret, dek)
		if err != nil {
			return nil, domain.ErrDecryptionFailed
		}
		creds.APISecret = plaintext
	}

	if input.Passphrase != nil {
		creds.Passphrase = append([]byte(nil), input.Passphrase...)
	} else if conn.EncryptedPassphrase != nil {
		plaintext, err := service.DecryptField(*conn.EncryptedPassphrase, dek)
		if err != nil {
			return nil, domain.ErrDecryptionFailed
		}
		creds.Passphrase = plaintext
	}

	return creds, nil
}

func (v *vaultUseCase) Deactivate(ctx context.Context, id uuid.UUID) error {
	return v.repo.Deactivate(ctx, id)
}

func (v *vaultUseCase) Delete(ctx context.Context, id uuid.UUID) error {
	return v.repo.Delete(ctx, id)
}

func (v *vaultUseCase) CountActiveByUser(ctx context.Context, userUID string) (int, error) {
	return v.repo.CountActiveByUser(ctx, userUID)
}

func (v *vaultUseCase) CountActiveTotal(ctx context.Context) (int, error) {
	return v.repo.CountActiveTotal(ctx)
}

func (v *vaultUseCase) ListActiveUserUIDs(ctx context.Context) ([]string, error) {
	return v.repo.ListActiveUserUIDs(ctx)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
