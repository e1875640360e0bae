// Copyright (c) 2026 Zaid Dildar
//
// This file is part of evote-auth.
//
// evote-auth is licensed under the MIT License.
// See the LICENSE file for details.

package biometric

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChallengeFixture(t *testing.T) (*ChallengeManager, *MemoryUserStore) {
	t.Helper()
	users := NewMemoryUserStore()
	users.Put(&User{ID: "u1", Name: "Voter One"})
	return NewChallengeManager(users, nil, 0, 0), users
}

func TestChallengeIssueAndConsume(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newChallengeFixture(t)

	challenge, err := mgr.Issue(ctx, "u1", PurposeRegistration)
	require.NoError(t, err)
	assert.Len(t, challenge, DefaultChallengeSize)

	consumed, err := mgr.Consume(ctx, "u1", PurposeRegistration)
	require.NoError(t, err)
	assert.Equal(t, challenge, consumed)
}

func TestChallengeSingleUse(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newChallengeFixture(t)

	_, err := mgr.Issue(ctx, "u1", PurposeAuthentication)
	require.NoError(t, err)

	_, err = mgr.Consume(ctx, "u1", PurposeAuthentication)
	require.NoError(t, err)

	// A second consume without an intervening issue fails.
	_, err = mgr.Consume(ctx, "u1", PurposeAuthentication)
	assert.ErrorIs(t, err, ErrChallengeMissing)
}

func TestChallengeLastWriteWins(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newChallengeFixture(t)

	first, err := mgr.Issue(ctx, "u1", PurposeRegistration)
	require.NoError(t, err)
	second, err := mgr.Issue(ctx, "u1", PurposeRegistration)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	consumed, err := mgr.Consume(ctx, "u1", PurposeRegistration)
	require.NoError(t, err)
	assert.Equal(t, second, consumed)

	_, err = mgr.Consume(ctx, "u1", PurposeRegistration)
	assert.ErrorIs(t, err, ErrChallengeMissing)
}

func TestChallengePurposeMismatch(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newChallengeFixture(t)

	_, err := mgr.Issue(ctx, "u1", PurposeRegistration)
	require.NoError(t, err)

	// Consuming with the wrong ceremony fails and still burns the nonce.
	_, err = mgr.Consume(ctx, "u1", PurposeAuthentication)
	assert.ErrorIs(t, err, ErrChallengeMissing)

	_, err = mgr.Consume(ctx, "u1", PurposeRegistration)
	assert.ErrorIs(t, err, ErrChallengeMissing)
}

func TestChallengeExpiry(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newChallengeFixture(t)

	_, err := mgr.Issue(ctx, "u1", PurposeAuthentication)
	require.NoError(t, err)

	mgr.now = func() time.Time { return time.Now().Add(mgr.TTL() + time.Second) }

	_, err = mgr.Consume(ctx, "u1", PurposeAuthentication)
	assert.ErrorIs(t, err, ErrChallengeMissing)
}

func TestChallengeUserNotFound(t *testing.T) {
	ctx := context.Background()
	mgr, _ := newChallengeFixture(t)

	_, err := mgr.Issue(ctx, "ghost", PurposeRegistration)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = mgr.Consume(ctx, "ghost", PurposeRegistration)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestChallengeManagerDefaults(t *testing.T) {
	users := NewMemoryUserStore()

	mgr := NewChallengeManager(users, nil, 8, -1)
	assert.Equal(t, DefaultChallengeSize, mgr.size)
	assert.Equal(t, DefaultChallengeTTL, mgr.TTL())

	mgr = NewChallengeManager(users, nil, 64, time.Minute)
	assert.Equal(t, 64, mgr.size)
	assert.Equal(t, time.Minute, mgr.TTL())
}
