// Package service provides the cryptographic operations the credential vault
// needs on top of the shared AES-256-GCM primitive: per-field envelope
// encryption and the keyed credentials hash used for deduplication.
package service

import (
	cryptoService "github.com/snpvault/enclave-core/internal/crypto/service"
	"github.com/snpvault/enclave-core/internal/vault/domain"
)

// EncryptField seals plaintext under the DEK with a fresh random IV, split
// into the ciphertext/IV/auth-tag triple spec.md's record shape expects.
func EncryptField(plaintext, dek []byte) (domain.EncryptedField, error) {
	cipher, err := cryptoService.NewAESGCM(dek)
	if err != nil {
		return domain.EncryptedField{}, err
	}

	sealed, iv, err := cipher.Encrypt(plaintext, nil)
	if err != nil {
		return domain.EncryptedField{}, err
	}

	tagStart := len(sealed) - cipherTagSize
	return domain.EncryptedField{
		Ciphertext: sealed[:tagStart],
		IV:         iv,
		AuthTag:    sealed[tagStart:],
	}, nil
}

// DecryptField recombines an EncryptedField's parts and opens it under the
// DEK, returning domain.ErrDecryptionFailed uniformly on any failure.
func DecryptField(field domain.EncryptedField, dek []byte) ([]byte, error) {
	cipher, err := cryptoService.NewAESGCM(dek)
	if err != nil {
		return nil, domain.ErrDecryptionFailed
	}

	sealed := append(append([]byte{}, field.Ciphertext...), field.AuthTag...)
	plaintext, err := cipher.Decrypt(sealed, field.IV, nil)
	if err != nil {
		return nil, domain.ErrDecryptionFailed
	}
	return plaintext, nil
}

const cipherTagSize = 16
