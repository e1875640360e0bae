// Copyright (c) 2026 Zaid Dildar
//
// This file is part of evote-auth.
//
// evote-auth is licensed under the MIT License.
// See the LICENSE file for details.

package biometric

import (
	"context"
)

// UserStore is the interface the platform implements for user persistence.
// This interface is intentionally minimal - the platform brings its own user
// model and exposes only the challenge slot to this package.
type UserStore interface {
	// GetByID retrieves a user by their account ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, userID string) (*User, error)

	// SetChallenge stores a pending challenge on the user, overwriting and
	// invalidating any previous one (last write wins).
	// Returns ErrUserNotFound if the user does not exist.
	SetChallenge(ctx context.Context, userID string, challenge *Challenge) error

	// TakeChallenge atomically reads and clears the user's pending
	// challenge. A second take before a new SetChallenge returns
	// ErrChallengeMissing. Returns ErrUserNotFound if the user does not
	// exist.
	TakeChallenge(ctx context.Context, userID string) (*Challenge, error)
}

// CredentialStore manages credential persistence. Credential IDs are unique
// across the whole system, not just per user.
type CredentialStore interface {
	// Save stores a new credential. Returns ErrDuplicateCredential if a
	// credential with the same ID already exists for any user.
	Save(ctx context.Context, cred *Credential) error

	// GetByUserID retrieves all credentials for a user.
	// Returns an empty slice if the user has no credentials.
	GetByUserID(ctx context.Context, userID string) ([]*Credential, error)

	// Get retrieves a credential by its canonical ID, scoped to the user.
	// Returns ErrCredentialNotFound if absent or owned by another user.
	Get(ctx context.Context, userID, credentialID string) (*Credential, error)

	// Owner returns the user ID that registered the credential, for the
	// global-uniqueness check. Returns ErrCredentialNotFound if no user has.
	Owner(ctx context.Context, credentialID string) (string, error)

	// UpdateCounter persists a new signature counter and touches the
	// last-used timestamp. The write is conditional: it applies only when
	// the new counter is greater than the stored one, or both are zero
	// (authenticators that never implement counters). A write that does not
	// apply returns ErrReplayDetected, closing the race between two
	// concurrent assertions carrying the same counter.
	UpdateCounter(ctx context.Context, userID, credentialID string, counter uint32) error

	// Delete removes a credential. Device replacement policy belongs to the
	// caller; the ceremony verifiers never delete.
	// Returns ErrCredentialNotFound if the credential does not exist.
	Delete(ctx context.Context, userID, credentialID string) error
}

// AttestationValidator optionally validates attestation metadata and
// relying-party/origin binding during registration. Policy dependent and
// deployment specific; when nil, registration skips the check.
type AttestationValidator interface {
	// VerifyAttestation inspects the registration response against the
	// consumed challenge. A non-nil return surfaces as ErrAttestationFailed.
	VerifyAttestation(ctx context.Context, response *RegistrationResponse, challenge []byte) error
}
