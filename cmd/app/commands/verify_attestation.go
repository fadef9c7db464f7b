package commands

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/snpvault/enclave-core/internal/app"
	"github.com/snpvault/enclave-core/internal/config"
)

// attestationReportView is the printable projection of an attestation
// report: raw byte fields are base64-encoded for text and JSON output alike.
type attestationReportView struct {
	Measurement       string `json:"measurement"`
	PlatformVersion   string `json:"platform_version"`
	VCEKChainVerified bool   `json:"vcek_chain_verified"`
	Verified          bool   `json:"verified"`
	FailureReason     string `json:"failure_reason,omitempty"`
	ProducedAt        string `json:"produced_at"`
}

// RunVerifyAttestation obtains a fresh attestation report bound to this
// process's identities and prints its verification outcome, so an operator
// can confirm the enclave's hardware trust posture without starting the
// full server.
func RunVerifyAttestation(ctx context.Context, writer io.Writer, format string) error {
	cfg := config.Load()
	container := app.NewContainer(cfg)
	logger := container.Logger()
	defer closeContainer(container, logger)

	report, err := container.AttestationReport(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain attestation report: %w", err)
	}

	view := attestationReportView{
		Measurement:       base64.StdEncoding.EncodeToString(report.Measurement),
		PlatformVersion:   report.PlatformVersion,
		VCEKChainVerified: report.VCEKChainVerified,
		Verified:          report.Verified,
		FailureReason:     report.FailureReason,
		ProducedAt:        report.ProducedAt.Format("2006-01-02T15:04:05Z07:00"),
	}

	if format == "json" {
		encoder := json.NewEncoder(writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(view); err != nil {
			return fmt.Errorf("failed to output JSON: %w", err)
		}
		return nil
	}

	_, _ = fmt.Fprintf(writer, "Attestation Report\n")
	_, _ = fmt.Fprintf(writer, "  Verified:            %t\n", view.Verified)
	_, _ = fmt.Fprintf(writer, "  VCEK Chain Verified: %t\n", view.VCEKChainVerified)
	_, _ = fmt.Fprintf(writer, "  Platform Version:    %s\n", view.PlatformVersion)
	_, _ = fmt.Fprintf(writer, "  Measurement:         %s\n", view.Measurement)
	_, _ = fmt.Fprintf(writer, "  Produced At:         %s\n", view.ProducedAt)
	if view.FailureReason != "" {
		_, _ = fmt.Fprintf(writer, "  Failure Reason:      %s\n", view.FailureReason)
	}

	if !view.Verified {
		logger.Warn("attestation report not verified", slog.String("reason", view.FailureReason))
	}
	return nil
}
