package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/soullink-tracker/server/internal/domain"
)

// Standard response types for consistent API responses

// SuccessResponse represents a simple successful operation message
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Helper functions for responding

// respondJSON sends a JSON response with the given status code and payload
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	// Get a buffer from the pool to reduce allocations
	buf := getBuffer()
	defer putBuffer(buf)

	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		// Headers are already sent, all we can do is log
		slog.Error("Failed to encode JSON response", "error", err)
		return
	}

	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("Failed to write response buffer", "error", err)
	}
}

// respondError sends a JSON error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}

// User-facing error messages for service errors
const (
	ErrMsgGenericServerError = "Something went wrong"
	ErrMsgUnknownError       = "Unknown error"

	ErrMsgRunNotFoundError    = "Run not found"
	ErrMsgRunNotActiveError   = "Run is not active"
	ErrMsgPlayerNotFoundError = "Player not found"
	ErrMsgRunFullError        = "Run already has the maximum number of players"

	ErrMsgSpeciesNotFoundError = "Unknown species"

	ErrMsgEncounterNotFoundError  = "Encounter not found"
	ErrMsgEncounterResolvedError  = "Encounter is already resolved"
	ErrMsgEncounterPendingError   = "Route already has an unresolved encounter"
	ErrMsgInvalidCatchResultError = "Invalid catch result"

	ErrMsgFamilyBlockedError = "That evolutionary family is already claimed"

	ErrMsgIdempotencyConflictError = "Idempotency key was reused with a different request"

	ErrMsgRateLimitedError = "Too many requests. Please try again later."
)

// mapServiceErrorToUserMessage maps domain errors to HTTP status codes and
// user-facing messages. Conflict-class rule errors map to 409 so clients
// can distinguish "rejected by the rules" from "bad request shape".
func mapServiceErrorToUserMessage(err error) (int, string) {
	if err == nil {
		return http.StatusInternalServerError, ErrMsgUnknownError
	}

	switch {
	case errors.Is(err, domain.ErrRunNotFound):
		return http.StatusNotFound, ErrMsgRunNotFoundError
	case errors.Is(err, domain.ErrPlayerNotFound):
		return http.StatusNotFound, ErrMsgPlayerNotFoundError
	case errors.Is(err, domain.ErrEncounterNotFound):
		return http.StatusNotFound, ErrMsgEncounterNotFoundError
	case errors.Is(err, domain.ErrSpeciesNotFound):
		return http.StatusBadRequest, ErrMsgSpeciesNotFoundError
	case errors.Is(err, domain.ErrRunNotActive):
		return http.StatusConflict, ErrMsgRunNotActiveError
	case errors.Is(err, domain.ErrRunFull):
		return http.StatusConflict, ErrMsgRunFullError
	case errors.Is(err, domain.ErrEncounterResolved):
		return http.StatusConflict, ErrMsgEncounterResolvedError
	case errors.Is(err, domain.ErrEncounterPending):
		return http.StatusConflict, ErrMsgEncounterPendingError
	case errors.Is(err, domain.ErrFamilyBlocked):
		return http.StatusConflict, ErrMsgFamilyBlockedError
	case errors.Is(err, domain.ErrIdempotencyConflict):
		return http.StatusConflict, ErrMsgIdempotencyConflictError
	case errors.Is(err, domain.ErrInvalidCatchResult):
		return http.StatusBadRequest, ErrMsgInvalidCatchResultError
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, ErrMsgInvalidRequestSummary
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, ErrMsgRateLimitedError
	}

	return http.StatusInternalServerError, ErrMsgGenericServerError
}

// respondServiceError logs the underlying error and writes the mapped
// user-facing response.
func respondServiceError(w http.ResponseWriter, opName string, err error) {
	status, msg := mapServiceErrorToUserMessage(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Service call failed", "operation", opName, "error", err)
	}
	respondError(w, status, msg)
}
