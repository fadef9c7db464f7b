// Package service implements master-key derivation and DEK wrap/unwrap for
// the key hierarchy, reusing the shared AES-256-GCM primitive in internal/crypto.
package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/snpvault/enclave-core/internal/keyhierarchy/domain"
)

// masterKeyInfo is the fixed HKDF context string for master-key derivation.
const masterKeyInfo = "track-record-enclave-dek"

// DeriveMasterKey computes master = HKDF-SHA-256(ikm=measurement, salt=platformVersion, info=masterKeyInfo, L=32),
// exactly as specified for the key hierarchy's master-key derivation. The
// identifier is the leading 8 bytes of SHA-256(master) in hex, so two
// derivations from the same (measurement, platformVersion) always agree on
// identity without ever comparing key bytes directly.
func DeriveMasterKey(measurement []byte, platformVersion string) (*domain.MasterKey, error) {
	if len(measurement) == 0 {
		return nil, fmt.Errorf("deriving master key: empty measurement")
	}

	salt := []byte(platformVersion)
	reader := hkdf.New(sha256.New, measurement, salt, []byte(masterKeyInfo))
	key := make([]byte, domain.MasterKeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("deriving master key: %w", err)
	}

	sum := sha256.Sum256(key)
	return &domain.MasterKey{
		ID:  hex.EncodeToString(sum[:8]),
		Key: key,
	}, nil
}
