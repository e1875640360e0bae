// Copyright (c) 2026 Zaid Dildar
//
// This file is part of evote-auth.
//
// evote-auth is licensed under the MIT License.
// See the LICENSE file for details.

// Package biometric implements the public-key credential lifecycle used to
// authenticate voters on the election platform: challenge issuance, credential
// registration, and assertion verification with replay protection.
//
// A client-held authenticator (fingerprint or face recognition backed secure
// element) holds a P-256 private key and proves possession of it by signing a
// server-issued nonce. The package verifies those signatures itself rather
// than delegating to a browser-oriented WebAuthn library, because the platform
// clients sign a reduced payload: the SHA-256 of the raw challenge rather than
// a collected-client-data JSON document.
//
// # Architecture
//
// The package is designed with a layered architecture:
//
//  1. Service layer (Service) - the four ceremony operations
//  2. Codec layer (DecodePublicKey, PublicKey) - COSE / raw point / SPKI / PEM
//  3. Storage layer (UserStore, CredentialStore) - pluggable persistence
//  4. HTTP layer (pkg/biometric/http) - composable HTTP handlers
//
// # Usage
//
// Basic usage with in-memory storage (for development):
//
//	svc, err := biometric.NewService(biometric.ServiceParams{
//	    Config:          &biometric.Config{},
//	    UserStore:       biometric.NewMemoryUserStore(),
//	    CredentialStore: biometric.NewMemoryCredentialStore(),
//	})
//
// For production, implement the storage interfaces with your database, or use
// the sqlite implementation in internal/storage/sqlite.
//
// # Security model
//
// Challenges are single-use: every verification attempt consumes the pending
// challenge before any other check runs, so a failed attempt can never be
// retried against the same nonce. Authenticator signature counters are
// persisted with a conditional write, closing the replay window between two
// concurrent assertions for the same credential.
package biometric
