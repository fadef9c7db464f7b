package service

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/snpvault/enclave-core/internal/identity/domain"
)

// TLSIdentityService generates the enclave's self-signed TLS identity exactly
// once and caches it for the process lifetime, mirroring the teacher's
// singleton master-key-chain pattern (load once, hand out a cached reference).
type TLSIdentityService struct {
	once     sync.Once
	identity *domain.TLSIdentity
	err      error
}

// NewTLSIdentityService creates an uninitialized TLS identity service.
func NewTLSIdentityService() *TLSIdentityService {
	return &TLSIdentityService{}
}

// GetCredentials returns the cached TLS identity, generating it on first call.
func (s *TLSIdentityService) GetCredentials() (*domain.TLSIdentity, error) {
	s.once.Do(func() {
		s.identity, s.err = generateTLSIdentity()
	})
	return s.identity, s.err
}

// Shutdown zeroizes the private key. Safe to call even if never initialized.
func (s *TLSIdentityService) Shutdown() {
	if s.identity != nil {
		s.identity.Zero()
	}
}

func generateTLSIdentity() (*domain.TLSIdentity, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating ECDSA key pair: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("generating certificate serial: %w", err)
	}

	now := time.Now().UTC()
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName:   "enclave-trust-core",
			Organization: []string{"snpvault"},
		},
		Issuer: pkix.Name{
			CommonName:   "enclave-trust-core",
			Organization: []string{"snpvault"},
		},
		NotBefore:             now.Add(-5 * time.Minute),
		NotAfter:              now.AddDate(1, 0, 0),
		SignatureAlgorithm:    x509.ECDSAWithSHA256,
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &priv.PublicKey, priv)
	if err != nil {
		return nil, fmt.Errorf("creating self-signed certificate: %w", err)
	}

	pkcs8, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("marshaling private key: %w", err)
	}

	pemBytes := pemEncode("CERTIFICATE", der)

	sum := sha256.Sum256(der)
	return &domain.TLSIdentity{
		Certificate:    der,
		CertificatePEM: pemBytes,
		PrivateKeyDER:  pkcs8,
		Fingerprint:    formatFingerprint(sum[:]),
	}, nil
}

func formatFingerprint(sum []byte) string {
	parts := make([]string, len(sum))
	for i, b := range sum {
		parts[i] = fmt.Sprintf("%02X", b)
	}
	return strings.Join(parts, ":")
}
