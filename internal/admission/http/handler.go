// Package http provides the admission endpoint: the only network surface
// through which a client submits exchange credentials, and the surface a
// client uses to fetch the attestation bundle it verifies before trusting
// the channel.
package http

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	admissionDomain "github.com/snpvault/enclave-core/internal/admission/domain"
	"github.com/snpvault/enclave-core/internal/admission/http/dto"
	attestationDomain "github.com/snpvault/enclave-core/internal/attestation/domain"
	attestationService "github.com/snpvault/enclave-core/internal/attestation/service"
	cryptoDomain "github.com/snpvault/enclave-core/internal/crypto/domain"
	identityDomain "github.com/snpvault/enclave-core/internal/identity/domain"
	identityService "github.com/snpvault/enclave-core/internal/identity/service"
	"github.com/snpvault/enclave-core/internal/httputil"
	customValidation "github.com/snpvault/enclave-core/internal/validation"
	vaultUseCase "github.com/snpvault/enclave-core/internal/vault/usecase"
)

// AuditRecorder is the subset of the audit trail's contract the admission
// endpoint needs: record one signed event per submission outcome.
type AuditRecorder interface {
	Record(ctx context.Context, requestID uuid.UUID, userUID *string, action, resource string, metadata map[string]any) error
}

// Handler serves the four admission endpoints. requestData is computed once
// at construction from the process's TLS and E2E identities, per 4.F step 4;
// it never changes for the process lifetime, so every attestation call reuses it.
type Handler struct {
	tls         *identityService.TLSIdentityService
	e2e         *identityService.E2EChannelService
	attestation attestationService.Provider
	vault       vaultUseCase.Vault
	audit       AuditRecorder
	logger      *slog.Logger

	requestData [attestationDomain.ReportDataSize]byte
	reqGroup    singleflight.Group
}

// NewHandler builds the admission handler, deriving request_data from the
// enclave's TLS and E2E identities as SHA-256(cert) || SHA-256(pubkey).
func NewHandler(
	tls *identityService.TLSIdentityService,
	e2e *identityService.E2EChannelService,
	attestation attestationService.Provider,
	vault vaultUseCase.Vault,
	audit AuditRecorder,
	logger *slog.Logger,
) (*Handler, error) {
	tlsIdentity, err := tls.GetCredentials()
	if err != nil {
		return nil, err
	}
	e2eIdentity, err := e2e.GetIdentity()
	if err != nil {
		return nil, err
	}

	var requestData [attestationDomain.ReportDataSize]byte
	tlsSum := sha256.Sum256(tlsIdentity.Certificate)
	e2eSum := sha256.Sum256(e2eIdentity.PublicKeyPEM)
	copy(requestData[:32], tlsSum[:])
	copy(requestData[32:], e2eSum[:])

	return &Handler{
		tls:         tls,
		e2e:         e2e,
		attestation: attestation,
		vault:       vault,
		audit:       audit,
		logger:      logger,
		requestData: requestData,
	}, nil
}

// recordAudit signs and persists one admission event. A failure to record is
// logged but never fails the response: the credential operation itself has
// already succeeded or failed on its own terms by the time this is called.
func (h *Handler) recordAudit(c *gin.Context, action string, userUID *string, metadata map[string]any) {
	requestID, err := uuid.Parse(requestid.Get(c))
	if err != nil {
		requestID = uuid.Must(uuid.NewV7())
	}
	if err := h.audit.Record(c.Request.Context(), requestID, userUID, action, "credentials", metadata); err != nil {
		h.logger.Error("failed to record audit log", slog.String("action", action), slog.Any("error", err))
	}
}

// HealthHandler serves GET /health.
func (h *Handler) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{Status: "healthy"})
}

// TLSFingerprintHandler serves GET /api/v1/tls/fingerprint.
func (h *Handler) TLSFingerprintHandler(c *gin.Context) {
	identity, err := h.tls.GetCredentials()
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, dto.TLSFingerprintResponse{Fingerprint: identity.Fingerprint})
}

// AttestationHandler serves GET /api/v1/attestation. Concurrent callers
// within the same instant collapse onto one GetReport call via singleflight,
// the same pattern the teacher uses for its health/readiness endpoints.
func (h *Handler) AttestationHandler(c *gin.Context) {
	v, err, _ := h.reqGroup.Do("attestation", func() (interface{}, error) {
		return h.attestation.GetReport(c.Request.Context(), h.requestData)
	})
	report, _ := v.(*attestationDomain.Report)
	if report == nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	tlsIdentity, err := h.tls.GetCredentials()
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	e2eIdentity, err := h.e2e.GetIdentity()
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	var tlsSum, e2eSum [32]byte
	copy(tlsSum[:], sha256Sum(tlsIdentity.Certificate))
	copy(e2eSum[:], sha256Sum(e2eIdentity.PublicKeyPEM))

	c.JSON(http.StatusOK, dto.AttestationResponse{
		Report: dto.AttestationReportResponse{
			Measurement:       base64.StdEncoding.EncodeToString(report.Measurement),
			ReportData:        base64.StdEncoding.EncodeToString(report.ReportData),
			PlatformVersion:   report.PlatformVersion,
			VCEKChainVerified: report.VCEKChainVerified,
			Verified:          report.Verified,
			FailureReason:     report.FailureReason,
			ProducedAt:        report.ProducedAt,
		},
		TLSFingerprint:  tlsIdentity.Fingerprint,
		E2EPublicKeyPEM: string(e2eIdentity.PublicKeyPEM),
		E2EFingerprint:  e2eIdentity.Fingerprint,
		IdentitiesBound: report.BindsIdentities(tlsSum, e2eSum),
	})
}

func sha256Sum(b []byte) []byte {
	sum := sha256.Sum256(b)
	return sum[:]
}

// ConnectHandler serves POST /api/v1/credentials/connect: the only write
// path for credentials, and the only one that ever touches plaintext, for
// exactly as long as it takes to decrypt, validate, and hand off to the vault.
func (h *Handler) ConnectHandler(c *gin.Context) {
	var req dto.ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if req.Envelope == nil {
		h.recordAudit(c, "credentials_connect_rejected", &req.UserUID, map[string]any{"reason": "plaintext_credentials"})
		httputil.HandleValidationErrorGin(c, admissionDomain.ErrPlaintextCredentials, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}
	if err := req.Envelope.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	envelope, err := decodeEnvelope(req.Envelope)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	plaintext, err := h.e2e.Decrypt(envelope)
	if err != nil {
		h.recordAudit(c, "credentials_connect_rejected", &req.UserUID, map[string]any{"reason": "decryption_failed"})
		httputil.HandleValidationErrorGin(c, identityDomain.ErrDecryptionFailed, h.logger)
		return
	}
	defer cryptoDomain.Zero(plaintext)

	var creds dto.DecryptedCredentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		httputil.HandleValidationErrorGin(c, admissionDomain.ErrMalformedPayload, h.logger)
		return
	}
	if err := creds.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	input := vaultUseCase.CreateInput{
		UserUID:             req.UserUID,
		Exchange:            req.Exchange,
		Label:               req.Label,
		APIKey:              []byte(creds.APIKey),
		APISecret:           []byte(creds.APISecret),
		SyncIntervalMinutes: req.SyncIntervalMinutes,
	}
	if creds.Passphrase != "" {
		input.Passphrase = []byte(creds.Passphrase)
	}
	defer func() {
		cryptoDomain.Zero(input.APIKey)
		cryptoDomain.Zero(input.APISecret)
		cryptoDomain.Zero(input.Passphrase)
	}()

	if _, err := h.vault.Create(c.Request.Context(), input); err != nil {
		h.recordAudit(c, "credentials_connect_rejected", &req.UserUID, map[string]any{"reason": "vault_create_failed"})
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.recordAudit(c, "credentials_connect_succeeded", &req.UserUID, map[string]any{"exchange": req.Exchange})

	c.JSON(http.StatusOK, dto.ConnectResponse{
		Success:  true,
		UserUID:  req.UserUID,
		Exchange: req.Exchange,
		Message:  "credential connected",
	})
}

func decodeEnvelope(e *dto.EnvelopeRequest) (identityDomain.Envelope, error) {
	ephemeral, err := base64.StdEncoding.DecodeString(e.EphemeralPublicKey)
	if err != nil {
		return identityDomain.Envelope{}, identityDomain.ErrDecryptionFailed
	}
	iv, err := base64.StdEncoding.DecodeString(e.IV)
	if err != nil {
		return identityDomain.Envelope{}, identityDomain.ErrDecryptionFailed
	}
	ciphertext, err := base64.StdEncoding.DecodeString(e.Ciphertext)
	if err != nil {
		return identityDomain.Envelope{}, identityDomain.ErrDecryptionFailed
	}
	authTag, err := base64.StdEncoding.DecodeString(e.AuthTag)
	if err != nil {
		return identityDomain.Envelope{}, identityDomain.ErrDecryptionFailed
	}

	return identityDomain.Envelope{
		EphemeralPublicKey: ephemeral,
		IV:                 iv,
		Ciphertext:         ciphertext,
		AuthTag:            authTag,
	}, nil
}
