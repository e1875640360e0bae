// Copyright (c) 2026 Zaid Dildar
//
// This file is part of evote-auth.
//
// evote-auth is licensed under the MIT License.
// See the LICENSE file for details.

package biometric

import (
	"context"
	"sync"
	"time"
)

// MemoryUserStore is an in-memory implementation of UserStore.
// This is intended for development and testing only.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]*User
}

// NewMemoryUserStore creates a new in-memory user store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users: make(map[string]*User),
	}
}

// Put inserts or replaces a user record. Test and development helper; the
// platform owns user CRUD in production.
func (s *MemoryUserStore) Put(user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

// GetByID retrieves a user by their account ID.
func (s *MemoryUserStore) GetByID(ctx context.Context, userID string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

// SetChallenge stores a pending challenge, overwriting any previous one.
func (s *MemoryUserStore) SetChallenge(ctx context.Context, userID string, challenge *Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.Challenge = challenge
	return nil
}

// TakeChallenge atomically reads and clears the pending challenge.
func (s *MemoryUserStore) TakeChallenge(ctx context.Context, userID string) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	if user.Challenge == nil {
		return nil, ErrChallengeMissing
	}
	challenge := user.Challenge
	user.Challenge = nil
	return challenge, nil
}

// Count returns the number of users in the store.
func (s *MemoryUserStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

// Clear removes all users from the store.
func (s *MemoryUserStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make(map[string]*User)
}

// MemoryCredentialStore is an in-memory implementation of CredentialStore.
// This is intended for development and testing only.
type MemoryCredentialStore struct {
	mu       sync.RWMutex
	byID     map[string]*Credential
	byUserID map[string][]*Credential
}

// NewMemoryCredentialStore creates a new in-memory credential store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		byID:     make(map[string]*Credential),
		byUserID: make(map[string][]*Credential),
	}
}

// Save stores a new credential. Credential IDs are globally unique.
func (s *MemoryCredentialStore) Save(ctx context.Context, cred *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[cred.ID]; ok {
		return ErrDuplicateCredential
	}

	copied := *cred
	s.byID[cred.ID] = &copied
	s.byUserID[cred.UserID] = append(s.byUserID[cred.UserID], &copied)
	return nil
}

// GetByUserID retrieves all credentials for a user.
func (s *MemoryCredentialStore) GetByUserID(ctx context.Context, userID string) ([]*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	creds := s.byUserID[userID]
	result := make([]*Credential, len(creds))
	for i, c := range creds {
		copied := *c
		result[i] = &copied
	}
	return result, nil
}

// Get retrieves a credential by ID scoped to the user.
func (s *MemoryCredentialStore) Get(ctx context.Context, userID, credentialID string) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.byID[credentialID]
	if !ok || cred.UserID != userID {
		return nil, ErrCredentialNotFound
	}
	copied := *cred
	return &copied, nil
}

// Owner returns the user that registered the credential.
func (s *MemoryCredentialStore) Owner(ctx context.Context, credentialID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.byID[credentialID]
	if !ok {
		return "", ErrCredentialNotFound
	}
	return cred.UserID, nil
}

// UpdateCounter conditionally persists an advanced signature counter.
func (s *MemoryCredentialStore) UpdateCounter(ctx context.Context, userID, credentialID string, counter uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.byID[credentialID]
	if !ok || cred.UserID != userID {
		return ErrCredentialNotFound
	}

	// Same conditional write the durable stores use: the counter may only
	// move forward, except for authenticators stuck at zero.
	if !(cred.Counter < counter || (cred.Counter == 0 && counter == 0)) {
		return ErrReplayDetected
	}
	cred.Counter = counter
	cred.LastUsedAt = time.Now().UTC()
	return nil
}

// Delete removes a credential.
func (s *MemoryCredentialStore) Delete(ctx context.Context, userID, credentialID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, ok := s.byID[credentialID]
	if !ok || cred.UserID != userID {
		return ErrCredentialNotFound
	}

	delete(s.byID, credentialID)
	creds := s.byUserID[cred.UserID]
	for i, c := range creds {
		if c.ID == credentialID {
			s.byUserID[cred.UserID] = append(creds[:i], creds[i+1:]...)
			break
		}
	}
	return nil
}

// Count returns the total number of credentials in the store.
func (s *MemoryCredentialStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Clear removes all credentials from the store.
func (s *MemoryCredentialStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[string]*Credential)
	s.byUserID = make(map[string][]*Credential)
}
