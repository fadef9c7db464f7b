// Package usecase orchestrates credential lifecycle operations: create,
// scoped decrypted access, update, deactivate, delete, and counting, all
// encrypted under the active data-encryption key from the key hierarchy.
package usecase

import (
	"context"

	"github.com/google/uuid"

	"github.com/snpvault/enclave-core/internal/vault/domain"
)

// ConnectionRepository persists Connection records.
type ConnectionRepository interface {
	Create(ctx context.Context, conn *domain.Connection) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Connection, error)
	GetByIdentity(ctx context.Context, userUID, exchange, label string) (*domain.Connection, error)
	ListActiveByUser(ctx context.Context, userUID string) ([]*domain.Connection, error)
	Update(ctx context.Context, conn *domain.Connection) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountActiveByUser(ctx context.Context, userUID string) (int, error)
	CountActiveTotal(ctx context.Context) (int, error)

	// ListActiveUserUIDs returns every distinct user_uid with at least one
	// active connection. The scheduler uses this to enumerate the set of
	// users to snapshot on each tick.
	ListActiveUserUIDs(ctx context.Context) ([]string, error)
}

// KeySource supplies the active DEK used for field encryption; the key
// hierarchy use case is the only real implementation.
type KeySource interface {
	GetCurrentDEK(ctx context.Context) ([]byte, error)
}

// CreateInput carries the plaintext credential tuple for a new connection.
// Its fields are zeroed by the caller once the use case returns.
type CreateInput struct {
	UserUID             string
	Exchange            string
	Label               string
	APIKey              []byte
	APISecret           []byte
	Passphrase          []byte
	SyncIntervalMinutes int
}

// UpdateInput carries the fields being changed on an existing connection.
// Nil credential fields leave the corresponding encrypted field untouched.
type UpdateInput struct {
	ID         uuid.UUID
	APIKey     []byte
	APISecret  []byte
	Passphrase []byte
}

// Vault is the contract in 4.E: create, scoped decrypted access, housekeeping.
type Vault interface {
	// Create encrypts each secret field independently, computes the keyed
	// credentials hash, and inserts subject to the (user_uid, exchange,
	// label) uniqueness constraint. Returns domain.ErrDuplicateConnection on
	// violation.
	Create(ctx context.Context, input CreateInput) (uuid.UUID, error)

	// WithDecrypted fetches a connection, decrypts its fields into a scoped
	// accessor, invokes fn, and guarantees the plaintext is zeroed before
	// returning regardless of how fn exits.
	WithDecrypted(ctx context.Context, id uuid.UUID, fn func(*domain.DecryptedCredentials) error) error

	// ListByUser returns active connection metadata (no plaintext) for a user.
	ListByUser(ctx context.Context, userUID string) ([]*domain.Connection, error)

	// Update re-encrypts any non-nil credential fields and refreshes the
	// credentials hash.
	Update(ctx context.Context, input UpdateInput) error

	// Deactivate marks a connection inactive without deleting it.
	Deactivate(ctx context.Context, id uuid.UUID) error

	// Delete permanently removes a connection record.
	Delete(ctx context.Context, id uuid.UUID) error

	// CountActiveByUser reports the number of active connections for a user.
	CountActiveByUser(ctx context.Context, userUID string) (int, error)

	// CountActiveTotal reports the number of active connections system-wide.
	CountActiveTotal(ctx context.Context) (int, error)

	// ListActiveUserUIDs returns every distinct user with at least one
	// active connection, for the scheduler to enumerate per-tick.
	ListActiveUserUIDs(ctx context.Context) ([]string, error)
}
