package handler

// Generic HTTP error messages for client responses.
// These messages intentionally do not expose internal error details.
// Both handlers and tests should reference these constants to maintain consistency.
const (
	// HTTP status messages
	ErrMsgMethodNotAllowed      = "Method not allowed"
	ErrMsgInvalidRequest        = "Invalid request body"
	ErrMsgInvalidRequestSummary = "Invalid request"

	// Path / query parameter error messages
	ErrMsgInvalidRunID          = "Invalid run ID"
	ErrMsgInvalidPlayerID       = "Invalid player ID"
	ErrMsgInvalidSinceSeq       = "Invalid since_seq parameter"
	ErrMsgInvalidLimit          = "Invalid limit parameter"
	ErrMsgMissingQueryParam     = "Missing %s query parameter"
	ErrMsgInvalidFilterPlayerID = "Invalid player_id filter"
	ErrMsgInvalidFilterRouteID  = "Invalid route_id filter"
	ErrMsgInvalidFilterFamilyID = "Invalid family_id filter"
	ErrMsgInvalidFilterStatus   = "Invalid status filter"

	// Ingest error messages
	ErrMsgIngestFailed        = "Failed to ingest command"
	ErrMsgUnknownCommandType  = "Unknown command type"
	ErrMsgBatchTooLarge       = "Batch exceeds command limit"
	ErrMsgInvalidCommandIndex = "command %d: %s"

	// Run management error messages
	ErrMsgCreateRunFailed  = "Failed to create run"
	ErrMsgGetRunFailed     = "Failed to get run"
	ErrMsgListRunsFailed   = "Failed to list runs"
	ErrMsgAddPlayerFailed  = "Failed to add player"
	ErrMsgSetStatusFailed  = "Failed to update run status"
	ErrMsgInvalidRunStatus = "Invalid run status"

	// Query error messages
	ErrMsgGetEventsFailed     = "Failed to read events"
	ErrMsgGetRoutesFailed     = "Failed to build route matrix"
	ErrMsgGetEncountersFailed = "Failed to list encounters"
	ErrMsgGetBlocklistFailed  = "Failed to list blocklist"
	ErrMsgGetLinksFailed      = "Failed to list links"

	// Admin error messages
	ErrMsgRebuildFailed = "Failed to rebuild projections"
)

// Ingest command types accepted on the events endpoint.
const (
	CommandTypeEncounter   = "encounter"
	CommandTypeCatchResult = "catch_result"
	CommandTypeFaint       = "faint"
)

// Batch ingest limits. The byte cap guards against a few huge payloads
// sneaking under the command-count cap.
const (
	MaxBatchCommands = 25
	MaxBatchBytes    = 256 * 1024
)

// Success messages for API responses
const (
	MsgRunCreatedSuccess   = "Run created successfully"
	MsgPlayerAddedSuccess  = "Player added successfully"
	MsgRebuildSuccess      = "Projections rebuilt successfully"
	MsgStatusUpdateSuccess = "Run status updated successfully"
)
