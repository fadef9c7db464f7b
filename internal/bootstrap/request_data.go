package bootstrap

import (
	"crypto/sha256"

	attestationDomain "github.com/snpvault/enclave-core/internal/attestation/domain"
	identityDomain "github.com/snpvault/enclave-core/internal/identity/domain"
)

// BuildRequestData computes the 64-byte attestation binding field (4.F step
// 4): the first half is SHA-256 of the TLS certificate, the second half is
// SHA-256 of the E2E public key. This is the same formula the admission
// handler uses to recompute the binding for the attestation response, so a
// remote client can check both independently without trusting either one
// alone.
func BuildRequestData(tls *identityDomain.TLSIdentity, e2e *identityDomain.E2EIdentity) [attestationDomain.ReportDataSize]byte {
	var out [attestationDomain.ReportDataSize]byte

	tlsSum := sha256.Sum256(tls.Certificate)
	e2eSum := sha256.Sum256(e2e.PublicKeyPEM)

	copy(out[:32], tlsSum[:])
	copy(out[32:], e2eSum[:])

	return out
}
