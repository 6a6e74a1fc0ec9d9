package domain

import "errors"

// Error message string constants - single source of truth for error messages
// Use these in assert.Contains() checks when testing error messages
const (
	// Run / player errors
	ErrMsgRunNotFound    = "run not found"
	ErrMsgRunNotActive   = "run is not active"
	ErrMsgPlayerNotFound = "player not found"
	ErrMsgRunFull        = "run already has the maximum number of players"

	// Reference data errors
	ErrMsgSpeciesNotFound = "species not found"

	// Encounter errors
	ErrMsgEncounterNotFound  = "encounter not found"
	ErrMsgEncounterResolved  = "encounter already resolved"
	ErrMsgEncounterPending   = "route has an unresolved encounter"
	ErrMsgInvalidCatchResult = "invalid catch result"

	// Rule conflict errors
	ErrMsgFamilyBlocked = "family already blocked for this run"

	// Idempotency errors
	ErrMsgIdempotencyConflict = "idempotency key reused with a different request"

	// Input errors
	ErrMsgInvalidInput = "invalid input"

	// Capacity errors
	ErrMsgRateLimited = "rate limit exceeded"
)

// Common domain errors
// These errors should be used consistently across all layers of the application.
// Wrap these errors with fmt.Errorf("%w: %s", domain.ErrXxx, details) for additional context.
var (
	// Run / player errors
	ErrRunNotFound    = errors.New(ErrMsgRunNotFound)
	ErrRunNotActive   = errors.New(ErrMsgRunNotActive)
	ErrPlayerNotFound = errors.New(ErrMsgPlayerNotFound)
	ErrRunFull        = errors.New(ErrMsgRunFull)

	// Reference data errors
	ErrSpeciesNotFound = errors.New(ErrMsgSpeciesNotFound)

	// Encounter errors
	ErrEncounterNotFound  = errors.New(ErrMsgEncounterNotFound)
	ErrEncounterResolved  = errors.New(ErrMsgEncounterResolved)
	ErrEncounterPending   = errors.New(ErrMsgEncounterPending)
	ErrInvalidCatchResult = errors.New(ErrMsgInvalidCatchResult)

	// Rule conflict errors
	ErrFamilyBlocked = errors.New(ErrMsgFamilyBlocked)

	// Idempotency errors
	ErrIdempotencyConflict = errors.New(ErrMsgIdempotencyConflict)

	// Input errors
	ErrInvalidInput = errors.New(ErrMsgInvalidInput)

	// Capacity errors
	ErrRateLimited = errors.New(ErrMsgRateLimited)
)
