package domain

import (
	"time"

	"github.com/google/uuid"
)

// Encounter statuses. An encounter starts pending and becomes terminal
// once a catch result lands; no transition leaves the terminal set.
const (
	EncounterStatusPending = "pending"
	EncounterStatusCaught  = "caught"
	EncounterStatusFled    = "fled"
	EncounterStatusKO      = "ko"
	EncounterStatusFailed  = "failed"
)

// Encounter methods reported by game clients.
const (
	MethodGrass  = "grass"
	MethodSurf   = "surf"
	MethodFish   = "fish"
	MethodStatic = "static"
	MethodGift   = "gift"
)

// ValidCatchResult reports whether s is a terminal catch result.
func ValidCatchResult(s string) bool {
	switch s {
	case EncounterStatusCaught, EncounterStatusFled, EncounterStatusKO, EncounterStatusFailed:
		return true
	}
	return false
}

// Encounter is a projection row derived from EncounterRecorded /
// CatchResultRecorded pairs. It is created on the encounter event,
// updated on the catch result, and never deleted.
type Encounter struct {
	ID        uuid.UUID `json:"id"`
	RunID     uuid.UUID `json:"run_id"`
	PlayerID  uuid.UUID `json:"player_id"`
	RouteID   int       `json:"route_id"`
	SpeciesID int       `json:"species_id"`
	FamilyID  int       `json:"family_id"`
	Level     int       `json:"level"`
	Shiny     bool      `json:"shiny"`
	Method    string    `json:"method"`
	RodKind   string    `json:"rod_kind,omitempty"`
	Status    string    `json:"status"`

	// DupesSkip is true when the family was already globally claimed at
	// evaluation time; such an encounter never finalizes.
	DupesSkip bool `json:"dupes_skip"`
	// FEFinalized is true once this is the irrevocable first encounter
	// for the player on this route.
	FEFinalized bool `json:"fe_finalized"`

	// PokemonKey is set when the encounter is caught.
	PokemonKey string `json:"pokemon_key,omitempty"`
	// Fainted is set by faint propagation; it does not change Status.
	Fainted bool `json:"fainted"`

	// Seq is the log sequence number of the EncounterRecorded event.
	Seq       uint64    `json:"seq"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Resolved reports whether a catch result has landed.
func (e *Encounter) Resolved() bool {
	return e.Status != EncounterStatusPending
}

// EncounterFilter narrows encounter queries. Zero-valued fields match
// everything.
type EncounterFilter struct {
	PlayerID *uuid.UUID
	RouteID  *int
	FamilyID *int
	Status   string
}

// Matches reports whether the encounter satisfies every set filter field.
func (f EncounterFilter) Matches(e *Encounter) bool {
	if f.PlayerID != nil && e.PlayerID != *f.PlayerID {
		return false
	}
	if f.RouteID != nil && e.RouteID != *f.RouteID {
		return false
	}
	if f.FamilyID != nil && e.FamilyID != *f.FamilyID {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	return true
}
