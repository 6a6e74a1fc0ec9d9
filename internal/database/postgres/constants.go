package postgres

// PostgreSQL Error Codes
const (
	// PgErrorCodeUniqueViolation is the PostgreSQL error code for unique constraint violations
	PgErrorCodeUniqueViolation = "23505"
)

// Error Messages - Transaction Operations
const (
	ErrMsgFailedToBeginTransaction  = "failed to begin transaction"
	ErrMsgFailedToCommitTransaction = "failed to commit transaction"
)

// Error Messages - Event Log Operations
const (
	ErrMsgFailedToAppendEvent = "failed to append event"
	ErrMsgFailedToReadEvents  = "failed to read events"
)

// Error Messages - Read Model Operations
const (
	ErrMsgFailedToUpsertEncounter = "failed to upsert encounter"
	ErrMsgFailedToUpsertBlock     = "failed to upsert block entry"
	ErrMsgFailedToUpsertLink      = "failed to upsert link"
	ErrMsgFailedToResetReadModels = "failed to reset read models"
)
