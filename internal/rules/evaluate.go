package rules

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/soullink-tracker/server/internal/domain"
)

// Decision is the outcome of evaluating a command against a run state.
// Events holds the triggering event first, followed by any side-effect
// events, all awaiting sequence assignment by the event store.
type Decision struct {
	Events      []domain.Event
	EncounterID uuid.UUID
	DupesSkip   bool
	FEFinalized bool
}

// EvaluateEncounter validates an encounter command and previews the
// first-encounter arbitration outcome. familyID is the resolved family of
// the commanded species; resolution is the caller's job so the evaluator
// stays free of I/O.
func EvaluateEncounter(s *RunState, cmd domain.EncounterCommand, familyID int) (Decision, error) {
	if prev := s.unresolvedOnRoute(cmd.PlayerID, cmd.RouteID); prev != nil {
		return Decision{}, fmt.Errorf("%w: encounter %s on route %d", domain.ErrEncounterPending, prev.ID, cmd.RouteID)
	}

	enc := &domain.Encounter{
		ID:        uuid.New(),
		RunID:     cmd.RunID,
		PlayerID:  cmd.PlayerID,
		RouteID:   cmd.RouteID,
		SpeciesID: cmd.SpeciesID,
		FamilyID:  familyID,
	}
	out := s.arbitrate(enc)

	ev, err := domain.NewEvent(cmd.RunID, cmd.PlayerID, domain.EventEncounterRecorded, domain.EncounterRecordedPayload{
		EncounterID: enc.ID,
		RouteID:     cmd.RouteID,
		SpeciesID:   cmd.SpeciesID,
		FamilyID:    familyID,
		Level:       cmd.Level,
		Shiny:       cmd.Shiny,
		Method:      cmd.Method,
		RodKind:     cmd.RodKind,
	})
	if err != nil {
		return Decision{}, err
	}

	return Decision{
		Events:      []domain.Event{ev},
		EncounterID: enc.ID,
		DupesSkip:   out.dupesSkip,
		FEFinalized: out.finalized,
	}, nil
}

// EvaluateCatchResult validates a catch result and emits the derived
// side-effect events: the family block for the resolved first encounter
// and, on a catch, link formation when another player already caught on
// the same route.
func EvaluateCatchResult(s *RunState, cmd domain.CatchResultCommand) (Decision, error) {
	enc := s.Encounter(cmd.EncounterID)
	if enc == nil {
		return Decision{}, fmt.Errorf("%w: %s", domain.ErrEncounterNotFound, cmd.EncounterID)
	}
	if enc.PlayerID != cmd.PlayerID {
		return Decision{}, fmt.Errorf("%w: encounter %s belongs to another player", domain.ErrEncounterNotFound, cmd.EncounterID)
	}
	if enc.Resolved() {
		return Decision{}, fmt.Errorf("%w: %s", domain.ErrEncounterResolved, cmd.EncounterID)
	}
	if !domain.ValidCatchResult(cmd.Result) {
		return Decision{}, fmt.Errorf("%w: %q", domain.ErrInvalidCatchResult, cmd.Result)
	}

	caught := cmd.Result == domain.EncounterStatusCaught
	entry := s.BlockEntry(enc.FamilyID)

	// One family per run: a family blocked by a catch can never be caught
	// again. A first-encounter block still permits the catch and upgrades
	// the origin.
	if caught && entry != nil && entry.Origin == domain.BlockOriginCaught {
		return Decision{}, fmt.Errorf("%w: family %d", domain.ErrFamilyBlocked, enc.FamilyID)
	}

	// Mirror of the resolution arbitration in Apply: does this encounter
	// finalize as the route's first encounter?
	finalizes := enc.FEFinalized
	if !enc.FEFinalized && !enc.DupesSkip {
		finalizes = !s.Blocked(enc.FamilyID) &&
			s.pendingClaim(enc.FamilyID, enc.PlayerID, enc.RouteID) == nil
	}

	ev, err := domain.NewEvent(cmd.RunID, cmd.PlayerID, domain.EventCatchResultRecorded, domain.CatchResultRecordedPayload{
		EncounterID: cmd.EncounterID,
		Result:      cmd.Result,
		PokemonKey:  cmd.PokemonKey,
	})
	if err != nil {
		return Decision{}, err
	}
	events := []domain.Event{ev}

	switch {
	case caught:
		// The catch exhausts the family regardless of how the encounter
		// got here; an existing first-encounter entry is upgraded.
		blocked, err := domain.NewEvent(cmd.RunID, cmd.PlayerID, domain.EventFamilyBlocked, domain.FamilyBlockedPayload{
			FamilyID: enc.FamilyID,
			Origin:   domain.BlockOriginCaught,
		})
		if err != nil {
			return Decision{}, err
		}
		events = append(events, blocked)
	case finalizes && entry == nil:
		// The first encounter resolved without a catch; the family is
		// still spent for everyone.
		blocked, err := domain.NewEvent(cmd.RunID, cmd.PlayerID, domain.EventFamilyBlocked, domain.FamilyBlockedPayload{
			FamilyID: enc.FamilyID,
			Origin:   domain.BlockOriginFirstEncounter,
		})
		if err != nil {
			return Decision{}, err
		}
		events = append(events, blocked)
	}

	if caught {
		if linkEv, formed, err := linkFormation(s, enc, cmd.RunID, cmd.PlayerID); err != nil {
			return Decision{}, err
		} else if formed {
			events = append(events, linkEv)
		}
	}

	return Decision{
		Events:      events,
		EncounterID: enc.ID,
		DupesSkip:   enc.DupesSkip,
		FEFinalized: finalizes,
	}, nil
}

// linkFormation builds a LinkFormed event when the catching player and at
// least one other player hold caught encounters on the same route. The
// payload carries the full membership so replay never recomputes it.
func linkFormation(s *RunState, enc *domain.Encounter, runID, playerID uuid.UUID) (domain.Event, bool, error) {
	members := []uuid.UUID{}
	seen := map[uuid.UUID]bool{enc.PlayerID: true}

	existing := s.LinkOnRoute(enc.RouteID)
	linkID := uuid.New()
	if existing != nil {
		if existing.Fainted {
			// A fainted link is closed; a later catch on the route stays
			// unlinked rather than joining a dead bond.
			return domain.Event{}, false, nil
		}
		linkID = existing.ID
		for _, m := range existing.Members {
			if m.PlayerID == enc.PlayerID {
				// One creature per player per link; the route is already
				// represented for this player.
				return domain.Event{}, false, nil
			}
			members = append(members, m.EncounterID)
			seen[m.PlayerID] = true
		}
	}

	// Other players' caught encounters on the route, earliest first.
	for _, other := range s.EncountersInOrder() {
		if other.RouteID != enc.RouteID || seen[other.PlayerID] {
			continue
		}
		if eligible := s.eligibleLinkMember(other.PlayerID, enc.RouteID); eligible != nil {
			members = append(members, eligible.ID)
			seen[other.PlayerID] = true
		}
	}

	if len(members) == 0 {
		return domain.Event{}, false, nil
	}
	members = append(members, enc.ID)

	ev, err := domain.NewEvent(runID, playerID, domain.EventLinkFormed, domain.LinkFormedPayload{
		LinkID:  linkID,
		RouteID: enc.RouteID,
		Members: members,
	})
	if err != nil {
		return domain.Event{}, false, err
	}
	return ev, true, nil
}

// EvaluateFaint accepts a faint report. Faints are facts: they are always
// recorded, and propagation to link members happens in Apply so replays
// reproduce identical results.
func EvaluateFaint(s *RunState, cmd domain.FaintCommand) (Decision, error) {
	ev, err := domain.NewEvent(cmd.RunID, cmd.PlayerID, domain.EventPartyFainted, domain.PartyFaintedPayload{
		PokemonKey: cmd.PokemonKey,
	})
	if err != nil {
		return Decision{}, err
	}
	return Decision{Events: []domain.Event{ev}}, nil
}
