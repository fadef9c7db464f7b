package service

import (
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/hkdf"

	cryptoservice "github.com/snpvault/enclave-core/internal/crypto/service"
	"github.com/snpvault/enclave-core/internal/identity/domain"
)

// e2eInfo is the fixed HKDF context string binding derived keys to this
// specific use (client-to-enclave credential submission), per the data model.
const e2eInfo = "enclave-e2e-encryption"

// E2EChannelService holds the enclave's static ECDH key pair and decrypts
// ECIES envelopes from clients. The envelope-assembly shape (ephemeral
// pubkey, IV, ciphertext, tag) follows the ECIES reference in the retrieval
// pack; the primitives here are P-256 / HKDF-SHA-256 / AES-256-GCM exactly,
// per the data model, rather than that reference's secp256k1/CTR/HMAC construction.
type E2EChannelService struct {
	once     sync.Once
	identity *domain.E2EIdentity
	err      error
}

// NewE2EChannelService creates an uninitialized E2E channel service.
func NewE2EChannelService() *E2EChannelService {
	return &E2EChannelService{}
}

// GetIdentity returns the cached E2E identity, generating it on first call.
func (s *E2EChannelService) GetIdentity() (*domain.E2EIdentity, error) {
	s.once.Do(func() {
		s.identity, s.err = generateE2EIdentity()
	})
	return s.identity, s.err
}

// Shutdown zeroizes the private scalar. Safe to call even if never initialized.
func (s *E2EChannelService) Shutdown() {
	if s.identity != nil {
		s.identity.Zero()
	}
}

// Decrypt performs ECDH with the envelope's ephemeral public key, derives a
// 32-byte AES key via HKDF-SHA-256, and opens the AEAD. Every failure mode
// (malformed point, wrong key, tampered tag) collapses to the same opaque
// error so a remote caller cannot distinguish them.
func (s *E2EChannelService) Decrypt(env domain.Envelope) ([]byte, error) {
	identity, err := s.GetIdentity()
	if err != nil {
		return nil, domain.ErrDecryptionFailed
	}
	if len(env.IV) != 12 || len(env.AuthTag) != 16 || len(env.EphemeralPublicKey) == 0 {
		return nil, domain.ErrDecryptionFailed
	}

	ephemeral, err := ecdh.P256().NewPublicKey(env.EphemeralPublicKey)
	if err != nil {
		return nil, domain.ErrDecryptionFailed
	}

	shared, err := identity.PrivateKey.ECDH(ephemeral)
	if err != nil {
		return nil, domain.ErrDecryptionFailed
	}
	defer zeroBytes(shared)

	key, err := deriveE2EKey(shared)
	if err != nil {
		return nil, domain.ErrDecryptionFailed
	}
	defer zeroBytes(key)

	aead, err := cryptoservice.NewAESGCM(key)
	if err != nil {
		return nil, domain.ErrDecryptionFailed
	}

	combined := make([]byte, 0, len(env.Ciphertext)+len(env.AuthTag))
	combined = append(combined, env.Ciphertext...)
	combined = append(combined, env.AuthTag...)

	plaintext, err := aead.Decrypt(combined, env.IV, nil)
	if err != nil {
		return nil, domain.ErrDecryptionFailed
	}
	return plaintext, nil
}

func deriveE2EKey(sharedSecret []byte) ([]byte, error) {
	reader := hkdf.New(sha256.New, sharedSecret, nil, []byte(e2eInfo))
	key := make([]byte, 32)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("deriving e2e key: %w", err)
	}
	return key, nil
}

func generateE2EIdentity() (*domain.E2EIdentity, error) {
	priv, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating ECDH key pair: %w", err)
	}

	pub := priv.PublicKey().Bytes()
	pubPEM := pemEncode("PUBLIC KEY", pub)
	sum := sha256.Sum256(pub)

	return domain.NewE2EIdentity(priv, pubPEM, formatFingerprint(sum[:])), nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
