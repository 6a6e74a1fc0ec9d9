package domain

import (
	"time"

	"github.com/google/uuid"
)

// Block origins.
const (
	BlockOriginFirstEncounter = "first_encounter"
	BlockOriginCaught         = "caught"
)

// BlockEntry is a projection row recording a globally exhausted family.
// A family appears at most once per run; once the origin is caught the
// family can never be caught again this run.
type BlockEntry struct {
	RunID    uuid.UUID `json:"run_id"`
	FamilyID int       `json:"family_id"`
	Origin   string    `json:"origin"`
	// Seq is the sequence number of the event that set the current origin.
	Seq       uint64    `json:"seq"`
	CreatedAt time.Time `json:"created_at"`
}

// Link is a route-scoped soul bond joining one caught encounter per
// player. If any member's creature faints, every member is marked
// fainted in the same logical step.
type Link struct {
	ID        uuid.UUID    `json:"id"`
	RunID     uuid.UUID    `json:"run_id"`
	RouteID   int          `json:"route_id"`
	Fainted   bool         `json:"fainted"`
	Members   []LinkMember `json:"members"`
	CreatedAt time.Time    `json:"created_at"`
}

// LinkMember references a caught encounter participating in a link.
type LinkMember struct {
	LinkID      uuid.UUID `json:"link_id"`
	PlayerID    uuid.UUID `json:"player_id"`
	EncounterID uuid.UUID `json:"encounter_id"`
	PokemonKey  string    `json:"pokemon_key"`
	Fainted     bool      `json:"fainted"`
}

// RouteCell summarizes one player's encounter state on a route.
type RouteCell struct {
	PlayerID    uuid.UUID  `json:"player_id"`
	EncounterID *uuid.UUID `json:"encounter_id,omitempty"`
	SpeciesID   int        `json:"species_id,omitempty"`
	Status      string     `json:"status,omitempty"`
	DupesSkip   bool       `json:"dupes_skip"`
	FEFinalized bool       `json:"fe_finalized"`
	Fainted     bool       `json:"fainted"`
}

// RouteStatus is one row of the route-status matrix.
type RouteStatus struct {
	RouteID int         `json:"route_id"`
	Linked  bool        `json:"linked"`
	Cells   []RouteCell `json:"cells"`
}
