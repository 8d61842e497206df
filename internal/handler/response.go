package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON or writeError, so every error the
// API returns has the same shape:
//
//	{"error": "not_found", "message": "session not found with id abc123"}
//
// Validation errors also name the offending field:
//
//	{"error": "validation_error", "message": "project is required", "field": "project"}

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/prodevhub/internal/apperror"
	"github.com/sakif/prodevhub/internal/auth"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// ErrorResponse is the error body returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`           // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"`         // Human-readable description
	Field   string `json:"field,omitempty"` // Set on validation errors
}

// MessageResponse is the body of endpoints that only confirm an action.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON sends a JSON response with the given status code.
// Headers and status must be written before the body; once Encode writes,
// header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// errorMapping pairs a domain sentinel with its HTTP status and type string.
// Order matters only in that the first match wins.
var errorMapping = []struct {
	target    error
	status    int
	errorType string
}{
	{apperror.ErrValidation, http.StatusBadRequest, "validation_error"},
	{apperror.ErrNoData, http.StatusBadRequest, "no_data"},
	{apperror.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{apperror.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{apperror.ErrNotFound, http.StatusNotFound, "not_found"},
	{apperror.ErrConflict, http.StatusConflict, "conflict"},
	{apperror.ErrUpstream, http.StatusBadGateway, "upstream_unavailable"},
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// The service layer never knows about HTTP. errors.As pulls out the *AppError
// for its client-safe message, and errors.Is walks the chain to find the
// sentinel:
//
//	service returns: fmt.Errorf("service/session: ...: %w", apperror.NotFound(...))
//	which wraps:     AppError{Err: ErrNotFound, Message: "..."}
//	errors.Is walks: outer error → AppError → ErrNotFound ✓ match!
//
// Anything unrecognised is a 500 with a generic message. The raw error may
// contain SQL or file paths, so it is logged and never sent.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		for _, m := range errorMapping {
			if errors.Is(err, m.target) {
				if m.status == http.StatusBadGateway {
					logger.Warn("upstream failure", slog.String("error", errors.Unwrap(appErr).Error()))
				}
				writeJSON(w, m.status, ErrorResponse{
					Error:   m.errorType,
					Message: appErr.Message,
					Field:   appErr.Field,
				})
				return
			}
		}
	}

	logger.Error("internal error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// decodeJSON reads the request body into dst. A malformed body is reported
// as a validation error so writeError turns it into a 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("", "invalid request body")
	}
	return nil
}

// userID returns the caller set by auth.RequireAuth. A protected route
// without it is a wiring bug, reported as 401 rather than a panic.
func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "valid authentication required",
		})
	}
	return id, ok
}
