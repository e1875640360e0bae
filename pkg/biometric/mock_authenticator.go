// Copyright (c) 2026 Zaid Dildar
//
// This file is part of evote-auth.
//
// evote-auth is licensed under the MIT License.
// See the LICENSE file for details.

package biometric

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"

	"github.com/fxamacker/cbor/v2"
)

// MockAuthenticator simulates a client-side biometric authenticator for
// testing. It holds a real P-256 key pair and produces registration and
// assertion responses the verifiers accept.
type MockAuthenticator struct {
	// AAGUID is the authenticator model identifier (16 bytes).
	AAGUID []byte

	// privateKey is the authenticator's signing key.
	privateKey *ecdsa.PrivateKey

	// CredentialID is the credential identifier.
	CredentialID []byte

	// SignCount is the current signature counter.
	SignCount uint32

	// UserPresent indicates whether the UP flag should be set.
	UserPresent bool

	// UserVerified indicates whether the UV flag should be set.
	UserVerified bool

	// rpIDHash is the SHA-256 hash of the relying party ID.
	rpIDHash []byte
}

// MockAuthenticatorOption is a functional option for configuring a MockAuthenticator.
type MockAuthenticatorOption func(*MockAuthenticator)

// WithCredentialID sets a custom credential ID.
func WithCredentialID(credID []byte) MockAuthenticatorOption {
	return func(m *MockAuthenticator) {
		m.CredentialID = credID
	}
}

// WithSignCount sets the initial sign count.
func WithSignCount(count uint32) MockAuthenticatorOption {
	return func(m *MockAuthenticator) {
		m.SignCount = count
	}
}

// WithUserVerified sets the UV flag.
func WithUserVerified(uv bool) MockAuthenticatorOption {
	return func(m *MockAuthenticator) {
		m.UserVerified = uv
	}
}

// NewMockAuthenticator creates a new mock authenticator for testing.
func NewMockAuthenticator(rpID string, opts ...MockAuthenticatorOption) (*MockAuthenticator, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}

	aaguid := make([]byte, 16)
	if _, err := rand.Read(aaguid); err != nil {
		return nil, err
	}

	credID := make([]byte, 32)
	if _, err := rand.Read(credID); err != nil {
		return nil, err
	}

	rpIDHash := sha256.Sum256([]byte(rpID))

	m := &MockAuthenticator{
		AAGUID:       aaguid,
		privateKey:   privateKey,
		CredentialID: credID,
		SignCount:    0,
		UserPresent:  true,
		UserVerified: true,
		rpIDHash:     rpIDHash[:],
	}

	for _, opt := range opts {
		opt(m)
	}

	return m, nil
}

// PublicKeyRaw returns the public key as a 65-byte uncompressed point.
func (m *MockAuthenticator) PublicKeyRaw() []byte {
	pub := m.privateKey.Public().(*ecdsa.PublicKey)

	point := make([]byte, rawPointSize)
	point[0] = 0x04
	pub.X.FillBytes(point[1 : 1+coordinateSize])
	pub.Y.FillBytes(point[1+coordinateSize:])
	return point
}

// PublicKeyCOSE returns the public key as a CBOR-encoded COSE EC2 map.
// Coordinates are emitted with leading zeros stripped, as real COSE encoders
// do, which exercises the codec's padding path.
func (m *MockAuthenticator) PublicKeyCOSE() ([]byte, error) {
	pub := m.privateKey.Public().(*ecdsa.PublicKey)

	coseKey := map[int]interface{}{
		1:  coseKeyTypeEC2,
		3:  coseAlgES256,
		-1: coseCurveP256,
		-2: pub.X.Bytes(),
		-3: pub.Y.Bytes(),
	}
	return cbor.Marshal(coseKey)
}

// RegistrationResponse builds a registration ceremony response offering the
// authenticator's public key in COSE form.
func (m *MockAuthenticator) RegistrationResponse(deviceID string) (*RegistrationResponse, error) {
	coseKey, err := m.PublicKeyCOSE()
	if err != nil {
		return nil, err
	}
	return &RegistrationResponse{
		CredentialID: m.CredentialID,
		PublicKey:    coseKey,
		Counter:      m.SignCount,
		DeviceID:     deviceID,
		Transports:   []string{"internal"},
	}, nil
}

// SignAssertion increments the signature counter and produces an assertion
// response over the challenge: authenticator data followed by a DER ECDSA
// signature of authData || SHA256(challenge).
func (m *MockAuthenticator) SignAssertion(challenge []byte) (*AuthenticationResponse, error) {
	m.SignCount++
	return m.SignAssertionAtCount(challenge, m.SignCount)
}

// SignAssertionAtCount produces an assertion response reporting an explicit
// counter value, for exercising replay detection.
func (m *MockAuthenticator) SignAssertionAtCount(challenge []byte, count uint32) (*AuthenticationResponse, error) {
	authData := m.buildAuthenticatorData(count)

	clientDataHash := sha256.Sum256(challenge)
	payload := append(append([]byte{}, authData...), clientDataHash[:]...)
	digest := sha256.Sum256(payload)

	signature, err := ecdsa.SignASN1(rand.Reader, m.privateKey, digest[:])
	if err != nil {
		return nil, err
	}

	return &AuthenticationResponse{
		CredentialID:      m.CredentialID,
		AuthenticatorData: authData,
		Signature:         signature,
	}, nil
}

// buildAuthenticatorData builds the rpIdHash || flags || signCount structure.
func (m *MockAuthenticator) buildAuthenticatorData(count uint32) []byte {
	var buf bytes.Buffer

	// rpIdHash (32 bytes)
	buf.Write(m.rpIDHash)

	// flags (1 byte)
	var flags byte
	if m.UserPresent {
		flags |= 0x01 // UP
	}
	if m.UserVerified {
		flags |= 0x04 // UV
	}
	buf.WriteByte(flags)

	// signCount (4 bytes, big-endian)
	countBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(countBytes, count)
	buf.Write(countBytes)

	return buf.Bytes()
}
