// Copyright (c) 2026 Zaid Dildar
//
// This file is part of evote-auth.
//
// evote-auth is licensed under the MIT License.
// See the LICENSE file for details.

package biometric

import (
	"encoding/base64"
	"time"
)

// ChallengePurpose tags which ceremony a pending challenge was issued for.
// A challenge issued for one ceremony cannot be consumed by the other.
type ChallengePurpose string

// Challenge purposes.
const (
	PurposeRegistration   ChallengePurpose = "registration"
	PurposeAuthentication ChallengePurpose = "authentication"
)

// Challenge is the single-use nonce held on a user between the begin and
// finish halves of a ceremony. At most one challenge is outstanding per user;
// issuing a new one invalidates the previous.
type Challenge struct {
	// Value is the random nonce sent to the client for signing.
	Value []byte `json:"value"`

	// Purpose records which ceremony the challenge was issued for.
	Purpose ChallengePurpose `json:"purpose"`

	// IssuedAt is when the challenge was issued, used for expiry.
	IssuedAt time.Time `json:"issued_at"`
}

// User is the slice of the platform's voter record this package touches.
// Account CRUD, roles, and election membership live elsewhere; here a user is
// an identifier with an optional pending challenge.
type User struct {
	// ID is the opaque account identifier, stable for the account's lifetime.
	ID string `json:"id"`

	// Name is a display label, not security relevant.
	Name string `json:"name,omitempty"`

	// Challenge is the pending single-use nonce, nil when none is outstanding.
	Challenge *Challenge `json:"challenge,omitempty"`
}

// Credential is a registered public-key credential stored by the platform.
// It is created by registration and mutated only by the authentication
// verifier's counter update; deletion is a store-level operation.
type Credential struct {
	// ID is the authenticator-assigned credential identifier, stored
	// canonically as unpadded base64url so records compare byte-exact.
	ID string `json:"id"`

	// UserID is the account this credential belongs to.
	UserID string `json:"user_id"`

	// PublicKey is the credential's public key as SPKI DER (P-256).
	PublicKey []byte `json:"public_key"`

	// Counter is the authenticator signature counter for clone detection.
	Counter uint32 `json:"counter"`

	// DeviceID labels the enrolling device. Display and audit only.
	DeviceID string `json:"device_id,omitempty"`

	// Transports lists transport hints reported at registration.
	Transports []string `json:"transports,omitempty"`

	// CreatedAt is when the credential was registered.
	CreatedAt time.Time `json:"created_at"`

	// LastUsedAt is when the credential last completed an authentication.
	LastUsedAt time.Time `json:"last_used_at,omitempty"`
}

// RegistrationResponse is the client's answer to a registration challenge.
type RegistrationResponse struct {
	// CredentialID is the raw credential identifier from the authenticator.
	CredentialID []byte

	// PublicKey is the offered public key, either a COSE EC2 map or a raw
	// uncompressed P-256 point.
	PublicKey []byte

	// Counter is the authenticator's initial signature counter.
	Counter uint32

	// DeviceID labels the enrolling device.
	DeviceID string

	// Transports lists transport hints from the client.
	Transports []string
}

// AuthenticationResponse is the client's answer to an authentication challenge.
type AuthenticationResponse struct {
	// CredentialID identifies which registered credential signed.
	CredentialID []byte

	// AuthenticatorData is the opaque authenticator output covered by the
	// signature. Bytes 33..36 carry the big-endian signature counter.
	AuthenticatorData []byte

	// Signature is an ASN.1 DER ECDSA signature over
	// AuthenticatorData || SHA256(challenge).
	Signature []byte
}

// AuthenticationOptions is returned when an authentication challenge is
// issued: the nonce plus the credential IDs the client may answer with.
type AuthenticationOptions struct {
	// Challenge is the nonce the client must sign.
	Challenge []byte `json:"challenge"`

	// AllowedCredentialIDs lists the user's registered credential IDs in
	// canonical base64url form.
	AllowedCredentialIDs []string `json:"allowed_credential_ids"`
}

// EncodeCredentialID converts raw authenticator credential ID bytes to the
// canonical storage form.
func EncodeCredentialID(raw []byte) string {
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCredentialID converts a canonical credential ID back to raw bytes.
func DecodeCredentialID(id string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(id)
}

// Expired reports whether the challenge is older than ttl. A zero ttl means
// challenges never expire.
func (c *Challenge) Expired(ttl time.Duration, now time.Time) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(c.IssuedAt) > ttl
}
