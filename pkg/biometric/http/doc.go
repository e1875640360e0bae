// Copyright (c) 2026 Zaid Dildar
//
// This file is part of evote-auth.
//
// evote-auth is licensed under the MIT License.
// See the LICENSE file for details.

// Package http provides framework-agnostic HTTP handlers for the biometric
// ceremony endpoints. Handlers can be mounted on a chi router via MountChi,
// on a stdlib ServeMux via MountStdlib, or wired manually through Routes.
//
// Binary fields (challenges, credential IDs, keys, signatures) cross the
// wire as base64url without padding.
//
// Every failure of the finish endpoints that stems from the verification
// itself is reported as the single generic code "verification_failed" so
// that callers cannot distinguish an unknown credential from a bad
// signature. The specific cause is logged and counted server-side only.
package http
