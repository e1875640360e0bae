// Copyright (c) 2026 Zaid Dildar
//
// This file is part of evote-auth.
//
// evote-auth is licensed under the MIT License.
// See the LICENSE file for details.

package biometric

import (
	"context"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

const (
	// authDataMinSize is the smallest valid authenticator data structure:
	// rpIdHash[32] || flags[1] || counter[4].
	authDataMinSize = 37

	// counterOffset is the fixed position of the big-endian signature
	// counter within authenticator data.
	counterOffset = 33
)

// AuthenticationVerifier proves possession of the private key matching a
// stored credential.
type AuthenticationVerifier struct {
	challenges *ChallengeManager
	users      UserStore
	creds      CredentialStore
}

// NewAuthenticationVerifier creates an authentication verifier.
func NewAuthenticationVerifier(challenges *ChallengeManager, users UserStore, creds CredentialStore) *AuthenticationVerifier {
	return &AuthenticationVerifier{
		challenges: challenges,
		users:      users,
		creds:      creds,
	}
}

// Verify validates an authentication ceremony response against the pending
// challenge and a stored credential, and persists the advanced signature
// counter. The challenge is consumed first so every failure path burns it.
//
// The signed payload is authenticatorData || SHA256(challenge), byte
// concatenation with no separators. The challenge hash binds the server's
// unpredictable nonce into the signature; without the private key an attacker
// cannot produce a valid signature over it.
func (v *AuthenticationVerifier) Verify(ctx context.Context, userID string, response *AuthenticationResponse) (*User, error) {
	if response == nil || len(response.CredentialID) == 0 {
		_, _ = v.challenges.Consume(ctx, userID, PurposeAuthentication)
		return nil, WrapError("verify authentication", ErrCredentialNotFound)
	}

	challenge, err := v.challenges.Consume(ctx, userID, PurposeAuthentication)
	if err != nil {
		return nil, err
	}

	cred, err := v.creds.Get(ctx, userID, EncodeCredentialID(response.CredentialID))
	if err != nil {
		return nil, WrapError("lookup credential", err)
	}

	if len(response.AuthenticatorData) < authDataMinSize {
		return nil, WrapError("verify authentication",
			fmt.Errorf("%w: authenticator data too short", ErrSignatureInvalid))
	}

	key, err := DecodeSPKI(cred.PublicKey)
	if err != nil {
		return nil, WrapError("load stored key", err)
	}
	publicKey, err := key.ECDSA()
	if err != nil {
		return nil, WrapError("load stored key", err)
	}

	clientDataHash := sha256.Sum256(challenge)
	payload := make([]byte, 0, len(response.AuthenticatorData)+len(clientDataHash))
	payload = append(payload, response.AuthenticatorData...)
	payload = append(payload, clientDataHash[:]...)
	digest := sha256.Sum256(payload)

	if !ecdsa.VerifyASN1(publicKey, digest[:], response.Signature) {
		return nil, WrapError("verify authentication", ErrSignatureInvalid)
	}

	newCounter := binary.BigEndian.Uint32(response.AuthenticatorData[counterOffset : counterOffset+4])
	if cred.Counter != 0 && newCounter <= cred.Counter {
		// A counter that repeats or goes backwards means a replayed
		// assertion or a cloned authenticator. Counters stuck at zero are
		// tolerated: not all hardware implements them.
		return nil, WrapError("verify authentication",
			fmt.Errorf("%w: counter %d, stored %d", ErrReplayDetected, newCounter, cred.Counter))
	}

	// Conditional write: a concurrent assertion that already advanced the
	// counter to this value or beyond makes this one fail as a replay.
	if err := v.creds.UpdateCounter(ctx, userID, cred.ID, newCounter); err != nil {
		return nil, WrapError("update counter", err)
	}

	user, err := v.users.GetByID(ctx, userID)
	if err != nil {
		return nil, WrapError("load user", err)
	}
	return user, nil
}
