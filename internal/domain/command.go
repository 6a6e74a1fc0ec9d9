package domain

import "github.com/google/uuid"

// Command types accepted by the ingestion surface.
const (
	CommandEncounter   = "encounter"
	CommandCatchResult = "catch_result"
	CommandFaint       = "faint"
)

// EncounterCommand asks the engine to record a wild encounter.
type EncounterCommand struct {
	RunID     uuid.UUID `json:"run_id"`
	PlayerID  uuid.UUID `json:"player_id"`
	RouteID   int       `json:"route_id" validate:"required,min=1"`
	SpeciesID int       `json:"species_id" validate:"required,min=1"`
	Level     int       `json:"level" validate:"min=1,max=100"`
	Shiny     bool      `json:"shiny"`
	Method    string    `json:"method" validate:"required,oneof=grass surf fish static gift"`
	RodKind   string    `json:"rod_kind,omitempty" validate:"omitempty,oneof=old good super"`
}

// CatchResultCommand asks the engine to resolve an encounter.
type CatchResultCommand struct {
	RunID       uuid.UUID `json:"run_id"`
	PlayerID    uuid.UUID `json:"player_id"`
	EncounterID uuid.UUID `json:"encounter_id" validate:"required"`
	Result      string    `json:"result" validate:"required,oneof=caught fled ko failed"`
	PokemonKey  string    `json:"pokemon_key,omitempty" validate:"required_if=Result caught,max=64"`
}

// FaintCommand asks the engine to record a party faint.
type FaintCommand struct {
	RunID      uuid.UUID `json:"run_id"`
	PlayerID   uuid.UUID `json:"player_id"`
	PokemonKey string    `json:"pokemon_key" validate:"required,max=64"`
}

// CommandResult is returned to the caller after a command commits. Seqs
// lists every sequence number appended, triggering event first.
type CommandResult struct {
	Seqs []uint64 `json:"seqs"`
	// EncounterID is set for encounter commands so the client can
	// reference the encounter in the catch result.
	EncounterID *uuid.UUID `json:"encounter_id,omitempty"`
	// DupesSkip and FEFinalized echo the arbitration outcome for
	// encounter commands.
	DupesSkip   bool `json:"dupes_skip,omitempty"`
	FEFinalized bool `json:"fe_finalized,omitempty"`
}
