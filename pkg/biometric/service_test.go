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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewService(t *testing.T) {
	tests := []struct {
		name    string
		params  ServiceParams
		wantErr string
	}{
		{
			name:    "nil config",
			params:  ServiceParams{},
			wantErr: "config is required",
		},
		{
			name: "nil user store",
			params: ServiceParams{
				Config: &Config{},
			},
			wantErr: "user store is required",
		},
		{
			name: "nil credential store",
			params: ServiceParams{
				Config:    &Config{},
				UserStore: NewMemoryUserStore(),
			},
			wantErr: "credential store is required",
		},
		{
			name: "invalid challenge size",
			params: ServiceParams{
				Config:          &Config{ChallengeSize: 8},
				UserStore:       NewMemoryUserStore(),
				CredentialStore: NewMemoryCredentialStore(),
			},
			wantErr: "invalid config",
		},
		{
			name: "valid params",
			params: ServiceParams{
				Config:          &Config{},
				UserStore:       NewMemoryUserStore(),
				CredentialStore: NewMemoryCredentialStore(),
			},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewService(tt.params)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, svc)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, svc)
				assert.Equal(t, DefaultChallengeSize, svc.Config().ChallengeSize)
			}
		})
	}
}

type serviceFixture struct {
	svc   *Service
	users *MemoryUserStore
	creds *MemoryCredentialStore
	auth  *MockAuthenticator
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	users := NewMemoryUserStore()
	users.Put(&User{ID: "u1", Name: "Voter One"})
	users.Put(&User{ID: "u2", Name: "Voter Two"})
	creds := NewMemoryCredentialStore()

	svc, err := NewService(ServiceParams{
		Config:          &Config{},
		UserStore:       users,
		CredentialStore: creds,
	})
	require.NoError(t, err)

	auth, err := NewMockAuthenticator("vote.example.org")
	require.NoError(t, err)

	return &serviceFixture{svc: svc, users: users, creds: creds, auth: auth}
}

// enroll runs a full registration ceremony for the fixture's authenticator.
func (f *serviceFixture) enroll(t *testing.T, userID, deviceID string) *Credential {
	t.Helper()
	ctx := context.Background()

	_, err := f.svc.IssueRegistrationChallenge(ctx, userID)
	require.NoError(t, err)

	response, err := f.auth.RegistrationResponse(deviceID)
	require.NoError(t, err)

	cred, err := f.svc.VerifyRegistration(ctx, userID, response)
	require.NoError(t, err)
	return cred
}

func TestRegistrationScenario(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	enrolled, err := f.svc.IsEnrolled(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, enrolled)

	cred := f.enroll(t, "u1", "device-1")
	assert.Equal(t, EncodeCredentialID(f.auth.CredentialID), cred.ID)
	assert.Equal(t, "u1", cred.UserID)
	assert.Equal(t, "device-1", cred.DeviceID)
	assert.Len(t, cred.PublicKey, 91)

	stored, err := f.svc.Credentials(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, cred.ID, stored[0].ID)

	enrolled, err = f.svc.IsEnrolled(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, enrolled)
}

func TestRegistrationWithRawPointKey(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	_, err := f.svc.IssueRegistrationChallenge(ctx, "u1")
	require.NoError(t, err)

	cred, err := f.svc.VerifyRegistration(ctx, "u1", &RegistrationResponse{
		CredentialID: f.auth.CredentialID,
		PublicKey:    f.auth.PublicKeyRaw(),
		DeviceID:     "device-1",
	})
	require.NoError(t, err)

	// Raw-point and COSE registrations of the same key store the same SPKI.
	cose, err := DecodePublicKey(mustCOSE(t, f.auth))
	require.NoError(t, err)
	assert.Equal(t, cose.SPKIDER(), cred.PublicKey)
}

func mustCOSE(t *testing.T, auth *MockAuthenticator) []byte {
	t.Helper()
	b, err := auth.PublicKeyCOSE()
	require.NoError(t, err)
	return b
}

func TestRegistrationWithoutChallenge(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	response, err := f.auth.RegistrationResponse("device-1")
	require.NoError(t, err)

	_, err = f.svc.VerifyRegistration(ctx, "u1", response)
	assert.ErrorIs(t, err, ErrChallengeMissing)
}

func TestRegistrationInvalidKeyConsumesChallenge(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	_, err := f.svc.IssueRegistrationChallenge(ctx, "u1")
	require.NoError(t, err)

	_, err = f.svc.VerifyRegistration(ctx, "u1", &RegistrationResponse{
		CredentialID: []byte("cred-A"),
		PublicKey:    []byte("garbage garbage garbage garbage!"),
	})
	assert.ErrorIs(t, err, ErrInvalidKeyFormat)

	// The failed attempt must have burned the nonce.
	response, err := f.auth.RegistrationResponse("device-1")
	require.NoError(t, err)
	_, err = f.svc.VerifyRegistration(ctx, "u1", response)
	assert.ErrorIs(t, err, ErrChallengeMissing)
}

func TestRegistrationDuplicateCredentialAcrossUsers(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	f.enroll(t, "u1", "device-1")

	// The same credential ID offered for another account must be rejected.
	_, err := f.svc.IssueRegistrationChallenge(ctx, "u2")
	require.NoError(t, err)
	response, err := f.auth.RegistrationResponse("device-2")
	require.NoError(t, err)
	_, err = f.svc.VerifyRegistration(ctx, "u2", response)
	assert.ErrorIs(t, err, ErrDuplicateCredential)
}

type rejectAllAttestation struct{}

func (rejectAllAttestation) VerifyAttestation(ctx context.Context, response *RegistrationResponse, challenge []byte) error {
	return assert.AnError
}

func TestRegistrationAttestationFailure(t *testing.T) {
	ctx := context.Background()

	users := NewMemoryUserStore()
	users.Put(&User{ID: "u1"})
	svc, err := NewService(ServiceParams{
		Config:               &Config{},
		UserStore:            users,
		CredentialStore:      NewMemoryCredentialStore(),
		AttestationValidator: rejectAllAttestation{},
	})
	require.NoError(t, err)

	auth, err := NewMockAuthenticator("vote.example.org")
	require.NoError(t, err)

	_, err = svc.IssueRegistrationChallenge(ctx, "u1")
	require.NoError(t, err)
	response, err := auth.RegistrationResponse("device-1")
	require.NoError(t, err)
	_, err = svc.VerifyRegistration(ctx, "u1", response)
	assert.ErrorIs(t, err, ErrAttestationFailed)
}

func TestAuthenticationScenario(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	f.enroll(t, "u1", "device-1")

	options, err := f.svc.IssueAuthenticationChallenge(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, options.Challenge, DefaultChallengeSize)
	require.Len(t, options.AllowedCredentialIDs, 1)
	assert.Equal(t, EncodeCredentialID(f.auth.CredentialID), options.AllowedCredentialIDs[0])

	assertion, err := f.auth.SignAssertion(options.Challenge)
	require.NoError(t, err)

	user, err := f.svc.VerifyAuthentication(ctx, "u1", assertion)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	stored, err := f.creds.Get(ctx, "u1", EncodeCredentialID(f.auth.CredentialID))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), stored.Counter)
	assert.False(t, stored.LastUsedAt.IsZero())
}

func TestAuthenticationNoCredentials(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	_, err := f.svc.IssueAuthenticationChallenge(ctx, "u1")
	assert.ErrorIs(t, err, ErrNoCredentials)
}

func TestAuthenticationUnknownCredential(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	f.enroll(t, "u1", "device-1")

	options, err := f.svc.IssueAuthenticationChallenge(ctx, "u1")
	require.NoError(t, err)

	assertion, err := f.auth.SignAssertion(options.Challenge)
	require.NoError(t, err)
	assertion.CredentialID = []byte("someone-elses-credential")

	_, err = f.svc.VerifyAuthentication(ctx, "u1", assertion)
	assert.ErrorIs(t, err, ErrCredentialNotFound)
	assert.True(t, IsVerificationFailure(err))

	// Challenge is gone even though lookup failed before any crypto ran.
	assertion2, err := f.auth.SignAssertion(options.Challenge)
	require.NoError(t, err)
	_, err = f.svc.VerifyAuthentication(ctx, "u1", assertion2)
	assert.ErrorIs(t, err, ErrChallengeMissing)
}

func TestAuthenticationTamperDetection(t *testing.T) {
	ctx := context.Background()

	corruptions := []struct {
		name    string
		corrupt func(*AuthenticationResponse)
	}{
		{"flip signature bit", func(r *AuthenticationResponse) { r.Signature[len(r.Signature)/2] ^= 0x01 }},
		{"flip authenticator data bit", func(r *AuthenticationResponse) { r.AuthenticatorData[3] ^= 0x01 }},
		{"truncate authenticator data", func(r *AuthenticationResponse) { r.AuthenticatorData = r.AuthenticatorData[:36] }},
	}

	for _, tt := range corruptions {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t)
			f.enroll(t, "u1", "device-1")

			options, err := f.svc.IssueAuthenticationChallenge(ctx, "u1")
			require.NoError(t, err)
			assertion, err := f.auth.SignAssertion(options.Challenge)
			require.NoError(t, err)

			tt.corrupt(assertion)

			_, err = f.svc.VerifyAuthentication(ctx, "u1", assertion)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSignatureInvalid)
		})
	}
}

func TestAuthenticationCounterMonotonicity(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	f.enroll(t, "u1", "device-1")

	// Advance the stored counter to 5.
	options, err := f.svc.IssueAuthenticationChallenge(ctx, "u1")
	require.NoError(t, err)
	assertion, err := f.auth.SignAssertionAtCount(options.Challenge, 5)
	require.NoError(t, err)
	_, err = f.svc.VerifyAuthentication(ctx, "u1", assertion)
	require.NoError(t, err)

	tests := []struct {
		name    string
		counter uint32
		wantErr error
	}{
		{"equal counter is a replay", 5, ErrReplayDetected},
		{"lower counter is a replay", 4, ErrReplayDetected},
		{"zero counter after nonzero is a replay", 0, ErrReplayDetected},
		{"next counter succeeds", 6, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			options, err := f.svc.IssueAuthenticationChallenge(ctx, "u1")
			require.NoError(t, err)
			assertion, err := f.auth.SignAssertionAtCount(options.Challenge, tt.counter)
			require.NoError(t, err)

			_, err = f.svc.VerifyAuthentication(ctx, "u1", assertion)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.True(t, IsVerificationFailure(err))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAuthenticationZeroCounterTolerated(t *testing.T) {
	// Authenticators that never implement a counter always report zero;
	// they keep working as long as the stored counter is still zero.
	ctx := context.Background()
	f := newServiceFixture(t)
	f.enroll(t, "u1", "device-1")

	for i := 0; i < 3; i++ {
		options, err := f.svc.IssueAuthenticationChallenge(ctx, "u1")
		require.NoError(t, err)
		assertion, err := f.auth.SignAssertionAtCount(options.Challenge, 0)
		require.NoError(t, err)
		_, err = f.svc.VerifyAuthentication(ctx, "u1", assertion)
		require.NoError(t, err)
	}
}

func TestAuthenticationReplayedAssertion(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	f.enroll(t, "u1", "device-1")

	options, err := f.svc.IssueAuthenticationChallenge(ctx, "u1")
	require.NoError(t, err)
	assertion, err := f.auth.SignAssertion(options.Challenge)
	require.NoError(t, err)
	_, err = f.svc.VerifyAuthentication(ctx, "u1", assertion)
	require.NoError(t, err)

	// Replaying the exact same response fails twice over: the old challenge
	// was consumed (the signature no longer matches the fresh nonce) and the
	// counter did not advance.
	_, err = f.svc.VerifyAuthentication(ctx, "u1", assertion)
	assert.ErrorIs(t, err, ErrChallengeMissing)

	_, err = f.svc.IssueAuthenticationChallenge(ctx, "u1")
	require.NoError(t, err)
	_, err = f.svc.VerifyAuthentication(ctx, "u1", assertion)
	require.Error(t, err)
	assert.True(t, IsVerificationFailure(err))
}

func TestAuthenticationChallengePurposeIsolation(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	f.enroll(t, "u1", "device-1")

	// A registration challenge cannot stand in for an authentication one.
	challenge, err := f.svc.IssueRegistrationChallenge(ctx, "u1")
	require.NoError(t, err)
	assertion, err := f.auth.SignAssertion(challenge)
	require.NoError(t, err)

	_, err = f.svc.VerifyAuthentication(ctx, "u1", assertion)
	assert.ErrorIs(t, err, ErrChallengeMissing)
}

func TestRemoveCredential(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	cred := f.enroll(t, "u1", "device-1")

	require.NoError(t, f.svc.RemoveCredential(ctx, "u1", cred.ID))

	enrolled, err := f.svc.IsEnrolled(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, enrolled)

	err = f.svc.RemoveCredential(ctx, "u1", cred.ID)
	assert.ErrorIs(t, err, ErrCredentialNotFound)
}

func TestServiceNotConfigured(t *testing.T) {
	ctx := context.Background()
	var svc Service

	_, err := svc.IssueRegistrationChallenge(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = svc.VerifyRegistration(ctx, "u1", nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = svc.IssueAuthenticationChallenge(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = svc.VerifyAuthentication(ctx, "u1", nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = svc.IsEnrolled(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
