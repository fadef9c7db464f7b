package domain

import (
	"crypto/ecdh"

	cryptodomain "github.com/snpvault/enclave-core/internal/crypto/domain"
)

// E2EIdentity is the enclave's static ECDH P-256 key pair used to decrypt
// ECIES envelopes from clients. Same lifetime and zeroization rules as TLSIdentity.
type E2EIdentity struct {
	PrivateKey *ecdh.PrivateKey
	// rawScalar is a copy of PrivateKey's scalar bytes, kept only so Zero can
	// overwrite something this process actually controls; ecdh.PrivateKey's
	// own internal copy is unexported and outlives our reference regardless.
	rawScalar []byte

	PublicKeyPEM []byte
	// Fingerprint is SHA-256(PublicKey marshaled uncompressed) formatted as
	// uppercase colon-separated hex.
	Fingerprint string
}

// NewE2EIdentity wraps a generated key pair, capturing the scalar bytes for zeroization.
func NewE2EIdentity(priv *ecdh.PrivateKey, publicKeyPEM []byte, fingerprint string) *E2EIdentity {
	raw := priv.Bytes()
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return &E2EIdentity{
		PrivateKey:   priv,
		rawScalar:    cp,
		PublicKeyPEM: publicKeyPEM,
		Fingerprint:  fingerprint,
	}
}

// Zero overwrites our copy of the private scalar and drops the key reference.
func (e *E2EIdentity) Zero() {
	cryptodomain.Zero(e.rawScalar)
	e.PrivateKey = nil
}

// Envelope is the four-tuple ECIES payload a client sends for decryption.
type Envelope struct {
	EphemeralPublicKey []byte // uncompressed P-256 point, 65 bytes
	IV                 []byte // 12 bytes
	Ciphertext         []byte
	AuthTag            []byte // 16 bytes
}
