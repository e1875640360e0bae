// Copyright (c) 2026 Zaid Dildar
//
// This file is part of evote-auth.
//
// evote-auth is licensed under the MIT License.
// See the LICENSE file for details.

package biometric

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Config configures the biometric service.
type Config struct {
	// ChallengeSize is the nonce size in bytes. Minimum 16, default 32.
	ChallengeSize int `yaml:"challenge_size" json:"challenge_size"`

	// ChallengeTTL bounds how long an issued challenge stays consumable.
	// Default 5 minutes.
	ChallengeTTL time.Duration `yaml:"challenge_ttl" json:"challenge_ttl"`

	// Random overrides the random source for challenge generation.
	// Defaults to crypto/rand. Tests inject a deterministic reader here.
	Random io.Reader `yaml:"-" json:"-"`

	// Debug enables debug logging.
	Debug bool `yaml:"debug" json:"debug"`
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.ChallengeSize != 0 && c.ChallengeSize < MinChallengeSize {
		return fmt.Errorf("challenge size %d below minimum %d", c.ChallengeSize, MinChallengeSize)
	}
	if c.ChallengeTTL < 0 {
		return fmt.Errorf("challenge TTL must not be negative")
	}
	return nil
}

// SetDefaults sets default values for unset configuration fields.
func (c *Config) SetDefaults() {
	if c.ChallengeSize == 0 {
		c.ChallengeSize = DefaultChallengeSize
	}
	if c.ChallengeTTL == 0 {
		c.ChallengeTTL = DefaultChallengeTTL
	}
}

// Service provides the biometric registration and authentication operations.
type Service struct {
	config     *Config
	users      UserStore
	creds      CredentialStore
	challenges *ChallengeManager
	register   *RegistrationVerifier
	login      *AuthenticationVerifier
	configured bool
}

// ServiceParams contains dependencies for creating a biometric service.
type ServiceParams struct {
	// Config is the service configuration (required).
	Config *Config

	// UserStore is the user persistence layer (required).
	UserStore UserStore

	// CredentialStore is the credential persistence layer (required).
	CredentialStore CredentialStore

	// AttestationValidator optionally validates attestation and origin
	// binding during registration. If nil, the check is skipped.
	AttestationValidator AttestationValidator
}

// NewService creates a new biometric service with the provided dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if params.UserStore == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if params.CredentialStore == nil {
		return nil, fmt.Errorf("credential store is required")
	}

	params.Config.SetDefaults()
	if err := params.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	challenges := NewChallengeManager(
		params.UserStore,
		params.Config.Random,
		params.Config.ChallengeSize,
		params.Config.ChallengeTTL,
	)

	return &Service{
		config:     params.Config,
		users:      params.UserStore,
		creds:      params.CredentialStore,
		challenges: challenges,
		register:   NewRegistrationVerifier(challenges, params.CredentialStore, params.AttestationValidator),
		login:      NewAuthenticationVerifier(challenges, params.UserStore, params.CredentialStore),
		configured: true,
	}, nil
}

// IssueRegistrationChallenge starts the registration ceremony: it issues a
// fresh single-use nonce for the user, replacing any outstanding one.
func (s *Service) IssueRegistrationChallenge(ctx context.Context, userID string) ([]byte, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}
	return s.challenges.Issue(ctx, userID, PurposeRegistration)
}

// VerifyRegistration completes the registration ceremony: it consumes the
// pending challenge, decodes the offered public key, and appends a new
// credential for the user. The credential ID must be unique across all users.
func (s *Service) VerifyRegistration(ctx context.Context, userID string, response *RegistrationResponse) (*Credential, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}
	return s.register.Verify(ctx, userID, response)
}

// IssueAuthenticationChallenge starts the authentication ceremony: it issues
// a fresh nonce and lists the credential IDs the client may answer with.
// Fails with ErrNoCredentials if the user has nothing registered.
func (s *Service) IssueAuthenticationChallenge(ctx context.Context, userID string) (*AuthenticationOptions, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}

	creds, err := s.creds.GetByUserID(ctx, userID)
	if err != nil {
		return nil, WrapError("get credentials", err)
	}
	if len(creds) == 0 {
		return nil, WrapError("issue authentication challenge", ErrNoCredentials)
	}

	challenge, err := s.challenges.Issue(ctx, userID, PurposeAuthentication)
	if err != nil {
		return nil, err
	}

	allowed := make([]string, len(creds))
	for i, cred := range creds {
		allowed[i] = cred.ID
	}
	return &AuthenticationOptions{
		Challenge:            challenge,
		AllowedCredentialIDs: allowed,
	}, nil
}

// VerifyAuthentication completes the authentication ceremony and returns the
// authenticated user. Callers exposed to the network must collapse every
// error for which IsVerificationFailure reports true into one generic answer.
func (s *Service) VerifyAuthentication(ctx context.Context, userID string, response *AuthenticationResponse) (*User, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}
	return s.login.Verify(ctx, userID, response)
}

// IsEnrolled reports whether the user has any registered credentials.
func (s *Service) IsEnrolled(ctx context.Context, userID string) (bool, error) {
	if !s.configured {
		return false, ErrNotConfigured
	}
	creds, err := s.creds.GetByUserID(ctx, userID)
	if err != nil {
		return false, WrapError("get credentials", err)
	}
	return len(creds) > 0, nil
}

// Credentials retrieves all credentials registered for a user.
func (s *Service) Credentials(ctx context.Context, userID string) ([]*Credential, error) {
	if !s.configured {
		return nil, ErrNotConfigured
	}
	return s.creds.GetByUserID(ctx, userID)
}

// RemoveCredential deletes a credential. Device replacement policy lives with
// the caller: re-enrolling a device is delete followed by a fresh ceremony.
func (s *Service) RemoveCredential(ctx context.Context, userID, credentialID string) error {
	if !s.configured {
		return ErrNotConfigured
	}
	return s.creds.Delete(ctx, userID, credentialID)
}

// Config returns the service configuration.
func (s *Service) Config() *Config {
	return s.config
}
