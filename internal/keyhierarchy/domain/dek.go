package domain

import "time"

// Dek is a persistent data-encryption-key record. At most one record has
// IsActive = true; the wrap is AES-256-GCM under the master key identified
// by MasterKeyID.
type Dek struct {
	ID           string
	WrappedKey   []byte // AES-256-GCM ciphertext
	IV           []byte // 12 bytes
	AuthTag      []byte // 16 bytes
	KeyVersion   int
	MasterKeyID  string
	IsActive     bool
	RotatedAt    *time.Time
	CreatedAt    time.Time
}
