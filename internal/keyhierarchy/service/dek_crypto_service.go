package service

import (
	"crypto/rand"
	"fmt"

	cryptoservice "github.com/snpvault/enclave-core/internal/crypto/service"
	"github.com/snpvault/enclave-core/internal/keyhierarchy/domain"
)

// GenerateDEK returns a fresh random 32-byte data-encryption key.
func GenerateDEK() ([]byte, error) {
	dek := make([]byte, domain.MasterKeySize)
	if _, err := rand.Read(dek); err != nil {
		return nil, fmt.Errorf("generating DEK: %w", err)
	}
	return dek, nil
}

// WrapDEK encrypts dek under masterKey with AES-256-GCM, splitting the sealed
// output into ciphertext and tag so the persisted record matches the data
// model's three-parallel-base64-strings layout.
func WrapDEK(dek, masterKey []byte) (wrapped, iv, tag []byte, err error) {
	cipher, err := cryptoservice.NewAESGCM(masterKey)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("wrapping DEK: %w", err)
	}

	sealed, nonce, err := cipher.Encrypt(dek, nil)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("wrapping DEK: %w", err)
	}

	tagSize := 16
	if len(sealed) < tagSize {
		return nil, nil, nil, fmt.Errorf("wrapping DEK: sealed output too short")
	}
	return sealed[:len(sealed)-tagSize], nonce, sealed[len(sealed)-tagSize:], nil
}

// UnwrapDEK recovers the plaintext DEK from a wrapped record. Any failure
// (wrong master key, tampered ciphertext, tampered tag) returns the single
// domain.ErrCryptoFailure rather than a distinguishing error.
func UnwrapDEK(wrapped, iv, tag, masterKey []byte) ([]byte, error) {
	cipher, err := cryptoservice.NewAESGCM(masterKey)
	if err != nil {
		return nil, domain.ErrCryptoFailure
	}

	combined := make([]byte, 0, len(wrapped)+len(tag))
	combined = append(combined, wrapped...)
	combined = append(combined, tag...)

	plaintext, err := cipher.Decrypt(combined, iv, nil)
	if err != nil {
		return nil, domain.ErrCryptoFailure
	}
	return plaintext, nil
}
