package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of a domain event. The set is closed:
// the event store rejects unknown types.
type EventType string

const (
	// EventEncounterRecorded records a wild encounter reported by a player.
	EventEncounterRecorded EventType = "encounter.recorded"
	// EventCatchResultRecorded records the outcome of an encounter.
	EventCatchResultRecorded EventType = "catch_result.recorded"
	// EventPartyFainted records a faint reported by a game client.
	EventPartyFainted EventType = "party.fainted"
	// EventFamilyBlocked is a derived event marking a family as globally
	// exhausted for the run.
	EventFamilyBlocked EventType = "family.blocked"
	// EventLinkFormed is a derived event joining caught encounters on the
	// same route into a soul link.
	EventLinkFormed EventType = "link.formed"
)

// IsValid reports whether the event type is part of the closed set.
func (t EventType) IsValid() bool {
	switch t {
	case EventEncounterRecorded, EventCatchResultRecorded, EventPartyFainted,
		EventFamilyBlocked, EventLinkFormed:
		return true
	}
	return false
}

// Event is an immutable fact in the per-run append-only log. Seq is
// assigned by the event store at append time and is gapless and strictly
// increasing within a run. Events are never edited or deleted.
type Event struct {
	RunID     uuid.UUID       `json:"run_id"`
	Seq       uint64          `json:"seq"`
	PlayerID  uuid.UUID       `json:"player_id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// EncounterRecordedPayload is the payload of EventEncounterRecorded.
type EncounterRecordedPayload struct {
	EncounterID uuid.UUID `json:"encounter_id"`
	RouteID     int       `json:"route_id"`
	SpeciesID   int       `json:"species_id"`
	FamilyID    int       `json:"family_id"`
	Level       int       `json:"level"`
	Shiny       bool      `json:"shiny"`
	Method      string    `json:"method"`
	RodKind     string    `json:"rod_kind,omitempty"`
}

// CatchResultRecordedPayload is the payload of EventCatchResultRecorded.
// PokemonKey is the stable per-creature key reported by the game client;
// it is only set when Result is caught.
type CatchResultRecordedPayload struct {
	EncounterID uuid.UUID `json:"encounter_id"`
	Result      string    `json:"result"`
	PokemonKey  string    `json:"pokemon_key,omitempty"`
}

// PartyFaintedPayload is the payload of EventPartyFainted.
type PartyFaintedPayload struct {
	PokemonKey string `json:"pokemon_key"`
}

// FamilyBlockedPayload is the payload of EventFamilyBlocked.
type FamilyBlockedPayload struct {
	FamilyID int    `json:"family_id"`
	Origin   string `json:"origin"`
}

// LinkFormedPayload is the payload of EventLinkFormed. Members carries the
// full membership of the link after this event, one encounter per player.
type LinkFormedPayload struct {
	LinkID  uuid.UUID   `json:"link_id"`
	RouteID int         `json:"route_id"`
	Members []uuid.UUID `json:"members"`
}

// NewEvent builds an event envelope with a marshalled payload. Seq is left
// zero; the event store assigns it at append time.
func NewEvent(runID, playerID uuid.UUID, eventType EventType, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		RunID:     runID,
		PlayerID:  playerID,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Payload:   data,
	}, nil
}

// DecodePayload unmarshals the event payload into dst.
func (e Event) DecodePayload(dst interface{}) error {
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}
