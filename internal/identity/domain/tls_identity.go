package domain

import (
	cryptodomain "github.com/snpvault/enclave-core/internal/crypto/domain"
)

// TLSIdentity is the enclave's self-signed TLS key pair and certificate.
// It is created exactly once at boot and lives for the process lifetime;
// the private key never leaves enclave memory and is zeroized on shutdown.
type TLSIdentity struct {
	Certificate    []byte // DER
	CertificatePEM []byte
	// PrivateKeyDER is the PKCS8 encoding of the private key. It is the only
	// representation of the key material this process keeps control over for
	// the purpose of overwriting on shutdown; the parsed *ecdsa.PrivateKey
	// held alongside it is simply dropped.
	PrivateKeyDER []byte
	// Fingerprint is SHA-256(Certificate) formatted as uppercase colon-separated hex.
	Fingerprint string
}

// Zero overwrites the private key bytes before the identity is released.
func (t *TLSIdentity) Zero() {
	cryptodomain.Zero(t.PrivateKeyDER)
}
