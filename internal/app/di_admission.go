package app

import (
	"context"
	"fmt"

	admissionHTTP "github.com/snpvault/enclave-core/internal/admission/http"
)

// AdmissionHandler returns the admission HTTP handler, wiring the TLS/E2E
// identities, attestation provider, and vault use case on first access.
func (c *Container) AdmissionHandler() (*admissionHTTP.Handler, error) {
	return onceErr(&c.admissionHandlerInit, c.initErrors, "admissionHandler", func() (*admissionHTTP.Handler, error) {
		ctx := context.Background()
		vault, err := c.Vault(ctx)
		if err != nil {
			return nil, fmt.Errorf("admission handler: %w", err)
		}
		audit, err := c.AuditUseCase(ctx)
		if err != nil {
			return nil, fmt.Errorf("admission handler: %w", err)
		}
		return admissionHTTP.NewHandler(
			c.TLSIdentity(),
			c.E2EChannel(),
			c.AttestationProvider(),
			vault,
			audit,
			c.Logger(),
		)
	}, func() *admissionHTTP.Handler { return c.admissionHandler }, func(v *admissionHTTP.Handler) { c.admissionHandler = v })
}
