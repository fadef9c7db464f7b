// Package domain holds the low-level cryptographic primitives (AEAD errors,
// zeroization) shared by the key hierarchy and the credential vault.
package domain

import (
	"github.com/snpvault/enclave-core/internal/errors"
)

// Cryptographic operation errors.
var (
	// ErrInvalidKeySize indicates the cryptographic key size is invalid (must be 32 bytes).
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrDecryptionFailed indicates decryption failed due to a wrong key, wrong
	// nonce, or tampered ciphertext. Callers must never surface which of these
	// it was: that would turn decryption into an oracle.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")

	// ErrKMSOpenKeeperFailed indicates opening a KMS keeper for an operator-supplied
	// old master key blob failed during a migrate-master-key operation.
	ErrKMSOpenKeeperFailed = errors.Wrap(errors.ErrInvalidInput, "failed to open KMS keeper")

	// ErrKMSDecryptionFailed indicates KMS decryption of an old master key blob failed.
	ErrKMSDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "KMS decryption failed")
)
