// Package domain defines the attestation-derived master key and the
// persistent data-encryption-key record it wraps.
package domain

import (
	cryptodomain "github.com/snpvault/enclave-core/internal/crypto/domain"
)

// MasterKeySize is the fixed width of a derived master key.
const MasterKeySize = 32

// MasterKey is the 32-byte symmetric key-wrapping key derived from the
// attestation measurement. It is never persisted; it lives only in process
// memory and is wiped on rotation or shutdown.
type MasterKey struct {
	// ID is a 64-bit prefix of SHA-256(Key), formatted as lowercase hex.
	ID  string
	Key []byte
}

// Zero overwrites the key bytes.
func (m *MasterKey) Zero() {
	cryptodomain.Zero(m.Key)
}
