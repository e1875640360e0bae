// Copyright (c) 2026 Zaid Dildar
//
// This file is part of evote-auth.
//
// evote-auth is licensed under the MIT License.
// See the LICENSE file for details.

package biometric

import (
	"errors"
	"fmt"
)

// Sentinel errors for ceremony operations.
var (
	// ErrUserNotFound is returned when a user cannot be found.
	ErrUserNotFound = errors.New("user not found")

	// ErrChallengeMissing is returned when no challenge is pending for the
	// user, or the pending challenge was already consumed or has expired.
	ErrChallengeMissing = errors.New("no challenge pending")

	// ErrInvalidKeyFormat is returned when key bytes decode to neither a
	// COSE EC2 P-256 key nor a raw uncompressed P-256 point.
	ErrInvalidKeyFormat = errors.New("invalid public key format")

	// ErrDuplicateCredential is returned when the credential ID offered
	// during registration is already registered, for any user.
	ErrDuplicateCredential = errors.New("credential already registered")

	// ErrCredentialNotFound is returned when a credential cannot be found
	// for the user.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrSignatureInvalid is returned when assertion signature verification
	// fails.
	ErrSignatureInvalid = errors.New("signature verification failed")

	// ErrReplayDetected is returned when the authenticator reports a
	// signature counter that did not increase. Callers must surface it the
	// same way as ErrSignatureInvalid.
	ErrReplayDetected = errors.New("signature counter did not increase")

	// ErrAttestationFailed is returned when the pluggable attestation
	// validator rejects a registration response.
	ErrAttestationFailed = errors.New("attestation verification failed")

	// ErrNoCredentials is returned when a user has no registered credentials.
	ErrNoCredentials = errors.New("user has no registered credentials")

	// ErrNotConfigured is returned when the service is not properly configured.
	ErrNotConfigured = errors.New("biometric service not configured")
)

// Error wraps a ceremony error with the operation that produced it.
type Error struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether the target error matches.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new Error with the given operation and error.
func NewError(op string, err error) error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// WrapError wraps an error with an operation name if it's not nil.
func WrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(op, err)
}

// IsUserNotFound returns true if the error indicates a user was not found.
func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// IsChallengeMissing returns true if the error indicates no challenge was pending.
func IsChallengeMissing(err error) bool {
	return errors.Is(err, ErrChallengeMissing)
}

// IsCredentialNotFound returns true if the error indicates a credential was not found.
func IsCredentialNotFound(err error) bool {
	return errors.Is(err, ErrCredentialNotFound)
}

// IsDuplicateCredential returns true if the error indicates a duplicate credential ID.
func IsDuplicateCredential(err error) bool {
	return errors.Is(err, ErrDuplicateCredential)
}

// IsVerificationFailure reports whether the error belongs to the class of
// authentication failures that network callers must collapse into a single
// generic answer. Distinguishing a wrong credential from a wrong signature or
// a consumed challenge would give an attacker an enumeration oracle.
func IsVerificationFailure(err error) bool {
	return errors.Is(err, ErrSignatureInvalid) ||
		errors.Is(err, ErrReplayDetected) ||
		errors.Is(err, ErrCredentialNotFound) ||
		errors.Is(err, ErrChallengeMissing)
}
