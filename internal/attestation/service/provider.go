// Package service implements the hardware attestation acquisition pipeline:
// guest-tool report generation, VCEK chain fetch, and chain verification.
package service

import (
	"context"

	"github.com/snpvault/enclave-core/internal/attestation/domain"
)

// Provider produces signed hardware attestation reports and verifies their
// VCEK certificate chain. Implementations: SNPProvider (production, talks to
// the local guest device and the vendor's key distribution service) and
// DevProvider (development bypass, explicit opt-in only).
type Provider interface {
	// GetReport returns a report whose ReportData field equals requestData.
	// On any acquisition failure it returns a non-nil error and a report with
	// Verified=false rather than panicking.
	GetReport(ctx context.Context, requestData [domain.ReportDataSize]byte) (*domain.Report, error)

	// VerifyChain fetches the platform VCEK certificate and CA chain and
	// verifies the signature over report. It mutates nothing on report; the
	// caller is expected to fold the result into VCEKChainVerified/Verified.
	VerifyChain(ctx context.Context, report *domain.Report) (bool, error)
}
