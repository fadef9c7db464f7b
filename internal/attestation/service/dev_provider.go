package service

import (
	"context"
	"time"

	"github.com/snpvault/enclave-core/internal/attestation/domain"
)

// DevProvider is the development-only attestation bypass. It never verifies
// anything against real hardware; it exists so the bootstrap (4.F) can
// proceed in a non-production environment when an explicit override flag is
// set. It must never be selected by default.
type DevProvider struct{}

// NewDevProvider constructs the development bypass provider.
func NewDevProvider() *DevProvider {
	return &DevProvider{}
}

// GetReport returns an always-unverified report that still echoes requestData,
// so the binding invariant remains checkable in development, just untrusted.
func (p *DevProvider) GetReport(_ context.Context, requestData [domain.ReportDataSize]byte) (*domain.Report, error) {
	return &domain.Report{
		Measurement:       make([]byte, domain.MeasurementSize),
		ReportData:        requestData[:],
		PlatformVersion:   "dev-bypass",
		VCEKChainVerified: false,
		Verified:          false,
		FailureReason:     "development attestation bypass active",
		ProducedAt:        time.Now().UTC(),
	}, nil
}

// VerifyChain always reports false: there is no real chain to verify in dev mode.
func (p *DevProvider) VerifyChain(_ context.Context, _ *domain.Report) (bool, error) {
	return false, nil
}
