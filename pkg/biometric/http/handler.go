// Copyright (c) 2026 Zaid Dildar
//
// This file is part of evote-auth.
//
// evote-auth is licensed under the MIT License.
// See the LICENSE file for details.

package http

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Zaid-Dildar/evote-auth/pkg/biometric"
	"github.com/Zaid-Dildar/evote-auth/pkg/metrics"
)

// Handler provides HTTP handlers for the biometric ceremony operations.
// These handlers can be mounted on any HTTP router.
type Handler struct {
	service *biometric.Service
	logger  *slog.Logger
}

// NewHandler creates a new biometric HTTP handler.
func NewHandler(service *biometric.Service) *Handler {
	return &Handler{
		service: service,
		logger:  slog.Default(),
	}
}

// WithLogger sets a custom logger for the handler.
func (h *Handler) WithLogger(logger *slog.Logger) *Handler {
	h.logger = logger
	return h
}

// BeginRegistration handles POST /registration/begin
//
// Request body:
//
//	{
//	    "user_id": "voter-42"
//	}
//
// Response: {"challenge": "<base64url nonce>"}
func (h *Handler) BeginRegistration(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req BeginRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "user_id is required")
		return
	}

	challenge, err := h.service.IssueRegistrationChallenge(r.Context(), req.UserID)
	if err != nil {
		h.handleServiceError(w, metrics.CeremonyRegistrationBegin, err)
		return
	}

	metrics.RecordCeremony(metrics.CeremonyRegistrationBegin, metrics.StatusSuccess, time.Since(start).Seconds())
	h.writeJSON(w, http.StatusOK, BeginRegistrationResponse{
		Challenge: base64.RawURLEncoding.EncodeToString(challenge),
	})
}

// FinishRegistration handles POST /registration/finish
//
// Request body: FinishRegistrationRequest with base64url binary fields.
// Response: FinishRegistrationResponse with the stored credential ID.
func (h *Handler) FinishRegistration(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req FinishRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "user_id is required")
		return
	}

	credentialID, err := base64.RawURLEncoding.DecodeString(req.CredentialID)
	if err != nil || len(credentialID) == 0 {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid credential_id encoding")
		return
	}
	publicKey, err := base64.RawURLEncoding.DecodeString(req.PublicKey)
	if err != nil || len(publicKey) == 0 {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid public_key encoding")
		return
	}

	cred, err := h.service.VerifyRegistration(r.Context(), req.UserID, &biometric.RegistrationResponse{
		CredentialID: credentialID,
		PublicKey:    publicKey,
		Counter:      req.Counter,
		DeviceID:     req.DeviceID,
		Transports:   req.Transports,
	})
	if err != nil {
		h.handleServiceError(w, metrics.CeremonyRegistrationFinish, err)
		return
	}

	metrics.RecordCeremony(metrics.CeremonyRegistrationFinish, metrics.StatusSuccess, time.Since(start).Seconds())
	h.writeJSON(w, http.StatusOK, FinishRegistrationResponse{
		CredentialID: cred.ID,
		UserID:       cred.UserID,
	})
}

// BeginLogin handles POST /login/begin
//
// Request body:
//
//	{
//	    "user_id": "voter-42"
//	}
//
// Response: {"challenge": "...", "allowed_credential_ids": [...]}
func (h *Handler) BeginLogin(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req BeginLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "user_id is required")
		return
	}

	options, err := h.service.IssueAuthenticationChallenge(r.Context(), req.UserID)
	if err != nil {
		h.handleServiceError(w, metrics.CeremonyLoginBegin, err)
		return
	}

	metrics.RecordCeremony(metrics.CeremonyLoginBegin, metrics.StatusSuccess, time.Since(start).Seconds())
	h.writeJSON(w, http.StatusOK, BeginLoginResponse{
		Challenge:            base64.RawURLEncoding.EncodeToString(options.Challenge),
		AllowedCredentialIDs: options.AllowedCredentialIDs,
	})
}

// FinishLogin handles POST /login/finish
//
// Request body: FinishLoginRequest with base64url binary fields.
// Response: FinishLoginResponse with the authenticated user.
func (h *Handler) FinishLogin(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req FinishLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "user_id is required")
		return
	}

	credentialID, err := base64.RawURLEncoding.DecodeString(req.CredentialID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid credential_id encoding")
		return
	}
	authenticatorData, err := base64.RawURLEncoding.DecodeString(req.AuthenticatorData)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid authenticator_data encoding")
		return
	}
	signature, err := base64.RawURLEncoding.DecodeString(req.Signature)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid signature encoding")
		return
	}

	user, err := h.service.VerifyAuthentication(r.Context(), req.UserID, &biometric.AuthenticationResponse{
		CredentialID:      credentialID,
		AuthenticatorData: authenticatorData,
		Signature:         signature,
	})
	if err != nil {
		h.handleServiceError(w, metrics.CeremonyLoginFinish, err)
		return
	}

	metrics.RecordCeremony(metrics.CeremonyLoginFinish, metrics.StatusSuccess, time.Since(start).Seconds())
	h.writeJSON(w, http.StatusOK, FinishLoginResponse{
		UserID: user.ID,
		Name:   user.Name,
	})
}

// RegistrationStatus handles GET /registration/status?user_id=...
//
// Response: {"enrolled": true/false}
func (h *Handler) RegistrationStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "user_id is required")
		return
	}

	enrolled, err := h.service.IsEnrolled(r.Context(), userID)
	if err != nil {
		h.handleServiceError(w, "", err)
		return
	}

	h.writeJSON(w, http.StatusOK, RegistrationStatusResponse{Enrolled: enrolled})
}

// handleServiceError maps service errors to HTTP responses. Verification
// failures collapse into one generic 401 regardless of cause; the specific
// kind is only logged and counted.
func (h *Handler) handleServiceError(w http.ResponseWriter, ceremony string, err error) {
	if biometric.IsVerificationFailure(err) {
		h.logger.Warn("ceremony verification failed",
			"ceremony", ceremony,
			"cause", errorKind(err))
		if ceremony != "" {
			metrics.RecordVerificationFailure(ceremony, errorKind(err))
		}
		h.writeError(w, http.StatusUnauthorized, ErrorCodeVerificationFailed, "verification failed")
		return
	}

	switch {
	case biometric.IsUserNotFound(err):
		h.writeError(w, http.StatusNotFound, ErrorCodeUserNotFound, "user not found")
	case errors.Is(err, biometric.ErrNoCredentials):
		h.writeError(w, http.StatusBadRequest, ErrorCodeNoCredentials, "user has no registered credentials")
	case biometric.IsDuplicateCredential(err):
		h.writeError(w, http.StatusConflict, ErrorCodeDuplicateCredential, "credential already registered")
	case errors.Is(err, biometric.ErrInvalidKeyFormat):
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidKey, "public key not recognized")
	case errors.Is(err, biometric.ErrAttestationFailed):
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "attestation rejected")
	default:
		h.logger.Error("ceremony failed",
			"ceremony", ceremony,
			"error", err)
		h.writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal server error")
	}
}

// errorKind names the failure class for logs and counters.
func errorKind(err error) string {
	switch {
	case errors.Is(err, biometric.ErrSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, biometric.ErrReplayDetected):
		return "replay_detected"
	case errors.Is(err, biometric.ErrCredentialNotFound):
		return "credential_not_found"
	case errors.Is(err, biometric.ErrChallengeMissing):
		return "challenge_missing"
	default:
		return "other"
	}
}

// writeJSON writes a JSON response.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Response headers already written, can only log the error
		h.logger.Error("failed to encode JSON response",
			"error", err,
			"status", status)
	}
}

// writeError writes an error response.
func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
	})
}
