// Package domain defines the core domain models for the credential vault.
//
// A Connection is the persistent record of one set of third-party exchange
// credentials uploaded by a user. Every secret field is an independent
// AES-256-GCM ciphertext under the active data-encryption key, each with its
// own 96-bit IV; the struct never carries more than one field's plaintext at
// a time, and only through a scoped accessor that guarantees zeroization.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// EncryptedField is one AEAD-protected secret value: ciphertext, the IV used
// to produce it, and the authentication tag split out of the sealed output.
type EncryptedField struct {
	Ciphertext []byte
	IV         []byte
	AuthTag    []byte
}

// Connection is the persistent, encrypted exchange-credential record.
// Uniqueness is enforced on (UserUID, Exchange, Label).
type Connection struct {
	ID                  uuid.UUID
	UserUID             string
	Exchange            string
	Label               string
	EncryptedAPIKey     EncryptedField
	EncryptedAPISecret  EncryptedField
	EncryptedPassphrase *EncryptedField
	CredentialsHash     string
	SyncIntervalMinutes int
	IsActive            bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// DecryptedCredentials is a scoped, in-memory-only view of one connection's
// plaintext fields. It is produced by WithDecrypted and must never be
// returned from a public API directly; callers access it only for the
// lifetime of the accessor callback, which guarantees Zero() runs on every
// exit path.
type DecryptedCredentials struct {
	APIKey     []byte
	APISecret  []byte
	Passphrase []byte
}

// Zero overwrites every plaintext byte slice carried by this view.
func (d *DecryptedCredentials) Zero() {
	zero(d.APIKey)
	zero(d.APISecret)
	zero(d.Passphrase)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
