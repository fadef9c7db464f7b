package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	attestationDomain "github.com/snpvault/enclave-core/internal/attestation/domain"
	attestationService "github.com/snpvault/enclave-core/internal/attestation/service"
)

// ErrAttestationRequired is returned when a production boot fails to obtain
// a verified attestation report and no bypass flag was set.
var ErrAttestationRequired = errors.New("attestation unverified: refusing to start in production without it")

// Attest obtains a report bound to requestData and applies the abort policy
// (4.F step 5): an unverified report is fatal in production unless bypass is
// explicitly set, and never fatal outside production, so local development
// can proceed without real SEV-SNP hardware.
func Attest(
	ctx context.Context,
	provider attestationService.Provider,
	requestData [attestationDomain.ReportDataSize]byte,
	isProduction bool,
	bypass bool,
	logger *slog.Logger,
) (*attestationDomain.Report, error) {
	report, err := provider.GetReport(ctx, requestData)
	if err != nil {
		if isProduction && !bypass {
			return nil, fmt.Errorf("%w: %v", ErrAttestationRequired, err)
		}
		logger.Warn("attestation report unavailable; continuing outside production or under bypass",
			slog.Any("error", err))
		return report, nil
	}

	if !report.Verified {
		logger.Warn("attestation report not verified", slog.String("reason", report.FailureReason))
		if isProduction && !bypass {
			return nil, fmt.Errorf("%w: %s", ErrAttestationRequired, report.FailureReason)
		}
	}

	return report, nil
}
