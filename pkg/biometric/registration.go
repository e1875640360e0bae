// Copyright (c) 2026 Zaid Dildar
//
// This file is part of evote-auth.
//
// evote-auth is licensed under the MIT License.
// See the LICENSE file for details.

package biometric

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RegistrationVerifier turns a client registration response into a stored
// credential.
type RegistrationVerifier struct {
	challenges  *ChallengeManager
	creds       CredentialStore
	attestation AttestationValidator // optional
	now         func() time.Time
}

// NewRegistrationVerifier creates a registration verifier. attestation may be
// nil, in which case attestation checking is skipped.
func NewRegistrationVerifier(challenges *ChallengeManager, creds CredentialStore, attestation AttestationValidator) *RegistrationVerifier {
	return &RegistrationVerifier{
		challenges:  challenges,
		creds:       creds,
		attestation: attestation,
		now:         time.Now,
	}
}

// Verify validates a registration ceremony response and appends the new
// credential. The pending challenge is consumed first, before any other
// check, so no failure path leaves a reusable nonce behind.
func (v *RegistrationVerifier) Verify(ctx context.Context, userID string, response *RegistrationResponse) (*Credential, error) {
	if response == nil || len(response.CredentialID) == 0 {
		// Burn the challenge even when the response is unusable.
		_, _ = v.challenges.Consume(ctx, userID, PurposeRegistration)
		return nil, WrapError("verify registration", fmt.Errorf("%w: empty credential ID", ErrInvalidKeyFormat))
	}

	challenge, err := v.challenges.Consume(ctx, userID, PurposeRegistration)
	if err != nil {
		return nil, err
	}

	if v.attestation != nil {
		if err := v.attestation.VerifyAttestation(ctx, response, challenge); err != nil {
			return nil, WrapError("verify attestation", fmt.Errorf("%w: %v", ErrAttestationFailed, err))
		}
	}

	key, err := DecodePublicKey(response.PublicKey)
	if err != nil {
		return nil, err
	}

	credentialID := EncodeCredentialID(response.CredentialID)

	// Credential IDs are unique across the whole system. A credential
	// registered under another account must never be accepted again:
	// cross-account reuse would let one voter authenticate as another.
	if _, err := v.creds.Owner(ctx, credentialID); err == nil {
		return nil, WrapError("verify registration", ErrDuplicateCredential)
	} else if !errors.Is(err, ErrCredentialNotFound) {
		return nil, WrapError("check credential owner", err)
	}

	cred := &Credential{
		ID:         credentialID,
		UserID:     userID,
		PublicKey:  key.SPKIDER(),
		Counter:    response.Counter,
		DeviceID:   response.DeviceID,
		Transports: response.Transports,
		CreatedAt:  v.now().UTC(),
	}
	if err := v.creds.Save(ctx, cred); err != nil {
		return nil, WrapError("save credential", err)
	}

	return cred, nil
}
