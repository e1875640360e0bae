// Copyright (c) 2026 Zaid Dildar
//
// This file is part of evote-auth.
//
// evote-auth is licensed under the MIT License.
// See the LICENSE file for details.

package http

// BeginRegistrationRequest is the request body for starting registration.
type BeginRegistrationRequest struct {
	// UserID identifies the voter (required).
	UserID string `json:"user_id"`
}

// BeginRegistrationResponse carries the freshly issued nonce.
type BeginRegistrationResponse struct {
	// Challenge is the base64url-encoded single-use nonce.
	Challenge string `json:"challenge"`
}

// FinishRegistrationRequest is the request body for completing registration.
type FinishRegistrationRequest struct {
	// UserID identifies the voter (required).
	UserID string `json:"user_id"`

	// CredentialID is the base64url-encoded authenticator credential ID.
	CredentialID string `json:"credential_id"`

	// PublicKey is the base64url-encoded public key in raw uncompressed
	// EC point, COSE, or SPKI DER form.
	PublicKey string `json:"public_key"`

	// Counter is the authenticator's initial signature counter.
	Counter uint32 `json:"counter,omitempty"`

	// DeviceID optionally labels the enrolling device.
	DeviceID string `json:"device_id,omitempty"`

	// Transports lists how the authenticator talks to clients.
	Transports []string `json:"transports,omitempty"`
}

// FinishRegistrationResponse confirms the stored credential.
type FinishRegistrationResponse struct {
	// CredentialID is the base64url-encoded credential ID as stored.
	CredentialID string `json:"credential_id"`

	// UserID is the owning voter.
	UserID string `json:"user_id"`
}

// BeginLoginRequest is the request body for starting authentication.
type BeginLoginRequest struct {
	// UserID identifies the voter (required).
	UserID string `json:"user_id"`
}

// BeginLoginResponse carries the nonce and the answerable credentials.
type BeginLoginResponse struct {
	// Challenge is the base64url-encoded single-use nonce.
	Challenge string `json:"challenge"`

	// AllowedCredentialIDs lists base64url credential IDs the client may
	// answer with.
	AllowedCredentialIDs []string `json:"allowed_credential_ids"`
}

// FinishLoginRequest is the request body for completing authentication.
type FinishLoginRequest struct {
	// UserID identifies the voter (required).
	UserID string `json:"user_id"`

	// CredentialID is the base64url-encoded credential ID used to sign.
	CredentialID string `json:"credential_id"`

	// AuthenticatorData is the base64url-encoded authenticator data.
	AuthenticatorData string `json:"authenticator_data"`

	// Signature is the base64url-encoded ASN.1 DER ECDSA signature.
	Signature string `json:"signature"`
}

// FinishLoginResponse is returned after a successful authentication.
type FinishLoginResponse struct {
	// UserID is the authenticated voter.
	UserID string `json:"user_id"`

	// Name is the voter's display name.
	Name string `json:"name,omitempty"`
}

// RegistrationStatusResponse is the response for registration status.
type RegistrationStatusResponse struct {
	// Enrolled indicates if the user has registered credentials.
	Enrolled bool `json:"enrolled"`
}

// ErrorResponse is the response format for errors.
type ErrorResponse struct {
	// Error is the error code.
	Error string `json:"error"`

	// Message is a human-readable error message.
	Message string `json:"message"`
}

// Error codes returned in ErrorResponse.
const (
	ErrorCodeInvalidRequest      = "invalid_request"
	ErrorCodeUserNotFound        = "user_not_found"
	ErrorCodeNoCredentials       = "no_credentials"
	ErrorCodeDuplicateCredential = "duplicate_credential"
	ErrorCodeInvalidKey          = "invalid_key"
	ErrorCodeVerificationFailed  = "verification_failed"
	ErrorCodeInternalError       = "internal_error"
)
