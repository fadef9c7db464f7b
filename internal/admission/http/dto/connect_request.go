// Package dto provides request and response shapes for the admission endpoint.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/snpvault/enclave-core/internal/validation"
)

// EnvelopeRequest is the wire shape of an ECIES envelope: every field is
// base64-encoded in JSON, matching the teacher's base64-string convention
// for binary payloads.
type EnvelopeRequest struct {
	EphemeralPublicKey string `json:"ephemeral_public_key"`
	IV                 string `json:"iv"`
	Ciphertext         string `json:"ciphertext"`
	AuthTag            string `json:"auth_tag"`
}

// Validate checks that every envelope field is present and base64-decodable.
func (e *EnvelopeRequest) Validate() error {
	return validation.ValidateStruct(e,
		validation.Field(&e.EphemeralPublicKey, validation.Required, customValidation.Base64),
		validation.Field(&e.IV, validation.Required, customValidation.Base64),
		validation.Field(&e.Ciphertext, validation.Required, customValidation.Base64),
		validation.Field(&e.AuthTag, validation.Required, customValidation.Base64),
	)
}

// ConnectRequest is the body of POST /api/v1/credentials/connect. The
// identity fields (user_uid, exchange, label) travel in the clear; only the
// credential tuple is end-to-end encrypted inside Envelope. A request with
// no Envelope is rejected before Validate is ever called, regardless of
// what other fields the body carries.
type ConnectRequest struct {
	UserUID             string           `json:"user_uid"`
	Exchange            string           `json:"exchange"`
	Label               string           `json:"label"`
	SyncIntervalMinutes int              `json:"sync_interval_minutes"`
	Envelope            *EnvelopeRequest `json:"envelope"`
}

// Validate checks the identity fields. Envelope presence is checked by the
// caller before Validate runs, so the two failure messages stay distinct.
func (r *ConnectRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UserUID, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Exchange, validation.Required, customValidation.NotBlank),
		validation.Field(&r.SyncIntervalMinutes, validation.Min(0)),
	)
}

// DecryptedCredentials is the JSON shape expected inside the envelope's
// plaintext, per the data model's credential tuple.
type DecryptedCredentials struct {
	APIKey     string `json:"api_key"`
	APISecret  string `json:"api_secret"`
	Passphrase string `json:"passphrase"`
}

// Validate checks that the required credential fields are non-blank.
func (d *DecryptedCredentials) Validate() error {
	return validation.ValidateStruct(d,
		validation.Field(&d.APIKey, validation.Required, customValidation.NotBlank),
		validation.Field(&d.APISecret, validation.Required, customValidation.NotBlank),
	)
}

// ConnectResponse is the success body for POST /api/v1/credentials/connect.
type ConnectResponse struct {
	Success  bool   `json:"success"`
	UserUID  string `json:"user_uid"`
	Exchange string `json:"exchange"`
	Message  string `json:"message"`
}
