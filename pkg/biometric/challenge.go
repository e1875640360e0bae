// Copyright (c) 2026 Zaid Dildar
//
// This file is part of evote-auth.
//
// evote-auth is licensed under the MIT License.
// See the LICENSE file for details.

package biometric

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"time"
)

const (
	// MinChallengeSize is the smallest nonce this package will issue.
	MinChallengeSize = 16

	// DefaultChallengeSize is the nonce size used unless configured otherwise.
	DefaultChallengeSize = 32

	// DefaultChallengeTTL bounds how long an issued challenge stays
	// consumable. Limits the replay window if a challenge leaks before use.
	DefaultChallengeTTL = 5 * time.Minute
)

// ChallengeManager issues and consumes the single-use per-user nonces that
// anchor both ceremonies.
type ChallengeManager struct {
	users UserStore
	rand  io.Reader
	size  int
	ttl   time.Duration
	now   func() time.Time
}

// NewChallengeManager creates a challenge manager over the given user store.
// Size below MinChallengeSize and non-positive ttl fall back to the defaults;
// random defaults to crypto/rand.
func NewChallengeManager(users UserStore, random io.Reader, size int, ttl time.Duration) *ChallengeManager {
	if random == nil {
		random = rand.Reader
	}
	if size < MinChallengeSize {
		size = DefaultChallengeSize
	}
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &ChallengeManager{
		users: users,
		rand:  random,
		size:  size,
		ttl:   ttl,
		now:   time.Now,
	}
}

// Issue generates a fresh nonce for the ceremony and stores it as the user's
// pending challenge, invalidating any previous one. The returned bytes are
// what the caller transmits to the client for signing.
func (m *ChallengeManager) Issue(ctx context.Context, userID string, purpose ChallengePurpose) ([]byte, error) {
	value := make([]byte, m.size)
	if _, err := io.ReadFull(m.rand, value); err != nil {
		return nil, WrapError("generate challenge", err)
	}

	challenge := &Challenge{
		Value:    value,
		Purpose:  purpose,
		IssuedAt: m.now().UTC(),
	}
	if err := m.users.SetChallenge(ctx, userID, challenge); err != nil {
		return nil, WrapError("store challenge", err)
	}
	return value, nil
}

// Consume atomically takes the user's pending challenge and clears it.
// Exactly one Consume succeeds per Issue: a second call before a new Issue
// fails with ErrChallengeMissing, as does consuming a challenge issued for
// the other ceremony or one past its TTL. In every case the slot is cleared,
// so a failed verification can never retry the same nonce.
func (m *ChallengeManager) Consume(ctx context.Context, userID string, purpose ChallengePurpose) ([]byte, error) {
	challenge, err := m.users.TakeChallenge(ctx, userID)
	if err != nil {
		return nil, WrapError("consume challenge", err)
	}
	if challenge.Purpose != purpose {
		return nil, WrapError("consume challenge",
			fmt.Errorf("%w: challenge issued for %s", ErrChallengeMissing, challenge.Purpose))
	}
	if challenge.Expired(m.ttl, m.now()) {
		return nil, WrapError("consume challenge",
			fmt.Errorf("%w: challenge expired", ErrChallengeMissing))
	}
	return challenge.Value, nil
}

// TTL returns the configured challenge lifetime.
func (m *ChallengeManager) TTL() time.Duration {
	return m.ttl
}
