package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/soullink-tracker/server/internal/domain"
	"github.com/soullink-tracker/server/internal/engine"
	"github.com/soullink-tracker/server/internal/logger"
)

// HeaderIdempotencyKey carries the caller's idempotency key. Commands in a
// batch may instead set their own idempotency_key field; the header key is
// suffixed with the command index when a batch relies on it.
const HeaderIdempotencyKey = "Idempotency-Key"

type IngestCommand struct {
	Type           string          `json:"type" validate:"required,oneof=encounter catch_result faint"`
	PlayerID       uuid.UUID       `json:"player_id" validate:"required"`
	IdempotencyKey string          `json:"idempotency_key,omitempty" validate:"omitempty,max=128"`
	Payload        json.RawMessage `json:"payload" validate:"required"`
}

type IngestRequest struct {
	Commands []IngestCommand `json:"commands" validate:"required,min=1,max=25,dive"`
}

// IngestResult echoes the command outcome. Replayed marks results served
// from the idempotency store rather than a fresh append.
type IngestResult struct {
	Seqs        []uint64   `json:"seqs"`
	EncounterID *uuid.UUID `json:"encounter_id,omitempty"`
	DupesSkip   bool       `json:"dupes_skip,omitempty"`
	FEFinalized bool       `json:"fe_finalized,omitempty"`
	Replayed    bool       `json:"replayed"`
}

type IngestResponse struct {
	Results []IngestResult `json:"results"`
}

// IngestErrorResponse reports which command in a batch failed. Commands
// before Index committed; commands after it were not attempted.
type IngestErrorResponse struct {
	Error string `json:"error"`
	Index int    `json:"index"`
}

// HandleIngest accepts encounter, catch_result, and faint commands, singly
// or batched. Commands are applied in order; the first failure stops the
// batch.
func HandleIngest(svc engine.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		runID, ok := RunIDFromRequest(r, w)
		if !ok {
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, MaxBatchBytes)

		var req IngestRequest
		if err := DecodeAndValidateRequest(r, w, &req, "Ingest"); err != nil {
			return
		}

		headerKey := r.Header.Get(HeaderIdempotencyKey)

		results := make([]IngestResult, 0, len(req.Commands))
		for i, cmd := range req.Commands {
			result, replayed, err := dispatchCommand(r, svc, runID, cmd, effectiveKey(headerKey, cmd.IdempotencyKey, i, len(req.Commands)))
			if err != nil {
				status, msg := mapServiceErrorToUserMessage(err)
				if status >= http.StatusInternalServerError {
					log.Error(ErrMsgIngestFailed, "run_id", runID, "index", i, "type", cmd.Type, "error", err)
				}
				respondJSON(w, status, IngestErrorResponse{
					Error: fmt.Sprintf(ErrMsgInvalidCommandIndex, i, msg),
					Index: i,
				})
				return
			}
			results = append(results, IngestResult{
				Seqs:        result.Seqs,
				EncounterID: result.EncounterID,
				DupesSkip:   result.DupesSkip,
				FEFinalized: result.FEFinalized,
				Replayed:    replayed,
			})
		}

		respondJSON(w, http.StatusAccepted, IngestResponse{Results: results})
	}
}

// effectiveKey resolves the idempotency key for one command in a batch.
// A per-command key always wins; the header key is shared as-is for a
// single command and index-suffixed for batches.
func effectiveKey(headerKey, cmdKey string, index, total int) string {
	if cmdKey != "" {
		return cmdKey
	}
	if headerKey == "" {
		return ""
	}
	if total == 1 {
		return headerKey
	}
	return fmt.Sprintf("%s/%d", headerKey, index)
}

func dispatchCommand(r *http.Request, svc engine.Service, runID uuid.UUID, cmd IngestCommand, key string) (*domain.CommandResult, bool, error) {
	ctx := r.Context()

	switch cmd.Type {
	case CommandTypeEncounter:
		var payload domain.EncounterCommand
		if err := json.Unmarshal(cmd.Payload, &payload); err != nil {
			return nil, false, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		payload.RunID = runID
		payload.PlayerID = cmd.PlayerID
		return svc.RecordEncounter(ctx, key, payload)

	case CommandTypeCatchResult:
		var payload domain.CatchResultCommand
		if err := json.Unmarshal(cmd.Payload, &payload); err != nil {
			return nil, false, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		payload.RunID = runID
		payload.PlayerID = cmd.PlayerID
		return svc.RecordCatchResult(ctx, key, payload)

	case CommandTypeFaint:
		var payload domain.FaintCommand
		if err := json.Unmarshal(cmd.Payload, &payload); err != nil {
			return nil, false, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		payload.RunID = runID
		payload.PlayerID = cmd.PlayerID
		return svc.RecordFaint(ctx, key, payload)
	}

	return nil, false, fmt.Errorf("%w: %s", domain.ErrInvalidInput, ErrMsgUnknownCommandType)
}
