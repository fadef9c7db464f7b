package http

import (
	"bytes"
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/hkdf"

	attestationService "github.com/snpvault/enclave-core/internal/attestation/service"
	cryptoservice "github.com/snpvault/enclave-core/internal/crypto/service"
	identityService "github.com/snpvault/enclave-core/internal/identity/service"
	vaultDomain "github.com/snpvault/enclave-core/internal/vault/domain"
	vaultUseCase "github.com/snpvault/enclave-core/internal/vault/usecase"
)

// e2eHKDFInfo mirrors the fixed context string the E2E channel service uses
// to derive its AES key; this test acts as a client encrypting against the
// service's public identity, so it must derive the identical key.
const e2eHKDFInfo = "enclave-e2e-encryption"

type fakeVault struct {
	created []vaultUseCase.CreateInput
	failErr error
}

func (f *fakeVault) Create(_ context.Context, input vaultUseCase.CreateInput) (uuid.UUID, error) {
	if f.failErr != nil {
		return uuid.UUID{}, f.failErr
	}
	f.created = append(f.created, input)
	return uuid.Must(uuid.NewV7()), nil
}

func (f *fakeVault) WithDecrypted(context.Context, uuid.UUID, func(*vaultDomain.DecryptedCredentials) error) error {
	return nil
}
func (f *fakeVault) ListByUser(context.Context, string) ([]*vaultDomain.Connection, error) {
	return nil, nil
}
func (f *fakeVault) Update(context.Context, vaultUseCase.UpdateInput) error  { return nil }
func (f *fakeVault) Deactivate(context.Context, uuid.UUID) error            { return nil }
func (f *fakeVault) Delete(context.Context, uuid.UUID) error                { return nil }
func (f *fakeVault) CountActiveByUser(context.Context, string) (int, error) { return 0, nil }
func (f *fakeVault) CountActiveTotal(context.Context) (int, error)          { return 0, nil }
func (f *fakeVault) ListActiveUserUIDs(context.Context) ([]string, error)   { return nil, nil }

type fakeAudit struct {
	recorded []string
}

func (f *fakeAudit) Record(_ context.Context, _ uuid.UUID, _ *string, action, _ string, _ map[string]any) error {
	f.recorded = append(f.recorded, action)
	return nil
}

func newTestHandler(t *testing.T, vault *fakeVault) *Handler {
	t.Helper()
	h, err := NewHandler(
		identityService.NewTLSIdentityService(),
		identityService.NewE2EChannelService(),
		attestationService.NewDevProvider(),
		vault,
		&fakeAudit{},
		slog.New(slog.DiscardHandler),
	)
	require.NoError(t, err)
	return h
}

func encryptEnvelope(t *testing.T, e2e *identityService.E2EChannelService, plaintext []byte) map[string]string {
	t.Helper()
	identity, err := e2e.GetIdentity()
	require.NoError(t, err)

	ephemeral, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)

	recipientPub, err := ecdh.P256().NewPublicKey(identity.PrivateKey.PublicKey().Bytes())
	require.NoError(t, err)

	shared, err := ephemeral.ECDH(recipientPub)
	require.NoError(t, err)

	key := deriveKeyForTest(t, shared)
	aead, err := cryptoservice.NewAESGCM(key)
	require.NoError(t, err)

	combined, iv, err := aead.Encrypt(plaintext, nil)
	require.NoError(t, err)

	ciphertext := combined[:len(combined)-16]
	tag := combined[len(combined)-16:]

	return map[string]string{
		"ephemeral_public_key": base64.StdEncoding.EncodeToString(ephemeral.PublicKey().Bytes()),
		"iv":                   base64.StdEncoding.EncodeToString(iv),
		"ciphertext":           base64.StdEncoding.EncodeToString(ciphertext),
		"auth_tag":             base64.StdEncoding.EncodeToString(tag),
	}
}

func deriveKeyForTest(t *testing.T, shared []byte) []byte {
	t.Helper()
	reader := hkdf.New(sha256.New, shared, nil, []byte(e2eHKDFInfo))
	key := make([]byte, 32)
	_, err := io.ReadFull(reader, key)
	require.NoError(t, err)
	return key
}

func setupGin(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	return c, w
}

func TestAdmissionHandler_HealthAndFingerprint(t *testing.T) {
	h := newTestHandler(t, &fakeVault{})

	c, w := setupGin(t)
	c.Request = httptest.NewRequest("GET", "/health", nil)
	h.HealthHandler(c)
	assert.Equal(t, 200, w.Code)

	c2, w2 := setupGin(t)
	c2.Request = httptest.NewRequest("GET", "/api/v1/tls/fingerprint", nil)
	h.TLSFingerprintHandler(c2)
	assert.Equal(t, 200, w2.Code)
	assert.Contains(t, w2.Body.String(), "fingerprint")
}

func TestAdmissionHandler_AttestationBindsIdentities(t *testing.T) {
	h := newTestHandler(t, &fakeVault{})

	c, w := setupGin(t)
	c.Request = httptest.NewRequest("GET", "/api/v1/attestation", nil)
	h.AttestationHandler(c)

	assert.Equal(t, 200, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["identities_bound"])
}

func TestAdmissionHandler_ConnectRejectsPlaintext(t *testing.T) {
	h := newTestHandler(t, &fakeVault{})

	body := map[string]string{
		"user_uid":   "u1",
		"exchange":   "binance",
		"api_key":    "plaintext-key",
		"api_secret": "plaintext-secret",
	}
	payload, _ := json.Marshal(body)

	c, w := setupGin(t)
	c.Request = httptest.NewRequest("POST", "/api/v1/credentials/connect", bytes.NewReader(payload))
	c.Request.Header.Set("Content-Type", "application/json")
	h.ConnectHandler(c)

	assert.Equal(t, 400, w.Code)
	assert.Contains(t, w.Body.String(), "/api/v1/attestation")
}

func TestAdmissionHandler_ConnectHappyPath(t *testing.T) {
	e2e := identityService.NewE2EChannelService()
	vault := &fakeVault{}
	h, err := NewHandler(
		identityService.NewTLSIdentityService(),
		e2e,
		attestationService.NewDevProvider(),
		vault,
		&fakeAudit{},
		slog.New(slog.DiscardHandler),
	)
	require.NoError(t, err)

	envelope := encryptEnvelope(t, e2e, []byte(`{"api_key":"K","api_secret":"S"}`))
	body := map[string]interface{}{
		"user_uid": "u1",
		"exchange": "binance",
		"label":    "main",
		"envelope": envelope,
	}
	payload, _ := json.Marshal(body)

	c, w := setupGin(t)
	c.Request = httptest.NewRequest("POST", "/api/v1/credentials/connect", bytes.NewReader(payload))
	c.Request.Header.Set("Content-Type", "application/json")
	h.ConnectHandler(c)

	assert.Equal(t, 200, w.Code)
	require.Len(t, vault.created, 1)
	assert.Equal(t, "u1", vault.created[0].UserUID)
	assert.Equal(t, []byte("K"), vault.created[0].APIKey)
}

func TestAdmissionHandler_ConnectMalformedEnvelopePayload(t *testing.T) {
	e2e := identityService.NewE2EChannelService()
	vault := &fakeVault{}
	h, err := NewHandler(
		identityService.NewTLSIdentityService(),
		e2e,
		attestationService.NewDevProvider(),
		vault,
		&fakeAudit{},
		slog.New(slog.DiscardHandler),
	)
	require.NoError(t, err)

	envelope := encryptEnvelope(t, e2e, []byte("not json"))
	body := map[string]interface{}{
		"user_uid": "u1",
		"exchange": "binance",
		"envelope": envelope,
	}
	payload, _ := json.Marshal(body)

	c, w := setupGin(t)
	c.Request = httptest.NewRequest("POST", "/api/v1/credentials/connect", bytes.NewReader(payload))
	c.Request.Header.Set("Content-Type", "application/json")
	h.ConnectHandler(c)

	assert.Equal(t, 400, w.Code)
}
