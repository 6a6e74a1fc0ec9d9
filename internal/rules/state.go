package rules

import (
	"sort"

	"github.com/google/uuid"

	"github.com/soullink-tracker/server/internal/domain"
)

// RunState is the evaluator's view of a run, built purely by folding the
// event log in sequence order. It holds no state the log cannot reproduce.
type RunState struct {
	RunID uuid.UUID
	// Seq is the sequence number of the last applied event.
	Seq uint64

	encounters map[uuid.UUID]*domain.Encounter
	// order holds encounter ids in apply (seq) order so every iteration
	// over encounters is deterministic.
	order []uuid.UUID

	blocklist map[int]*domain.BlockEntry

	links        map[uuid.UUID]*domain.Link
	linksByRoute map[int]uuid.UUID

	byPokemonKey map[string]uuid.UUID
}

// NewRunState returns an empty state for the run.
func NewRunState(runID uuid.UUID) *RunState {
	return &RunState{
		RunID:        runID,
		encounters:   make(map[uuid.UUID]*domain.Encounter),
		blocklist:    make(map[int]*domain.BlockEntry),
		links:        make(map[uuid.UUID]*domain.Link),
		linksByRoute: make(map[int]uuid.UUID),
		byPokemonKey: make(map[string]uuid.UUID),
	}
}

// Encounter returns the encounter with the given id, or nil.
func (s *RunState) Encounter(id uuid.UUID) *domain.Encounter {
	return s.encounters[id]
}

// EncountersInOrder returns all encounters in log order.
func (s *RunState) EncountersInOrder() []*domain.Encounter {
	out := make([]*domain.Encounter, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.encounters[id])
	}
	return out
}

// BlockEntry returns the blocklist entry for the family, or nil.
func (s *RunState) BlockEntry(familyID int) *domain.BlockEntry {
	return s.blocklist[familyID]
}

// Blocked reports whether the family is globally exhausted.
func (s *RunState) Blocked(familyID int) bool {
	_, ok := s.blocklist[familyID]
	return ok
}

// Blocklist returns all entries sorted by family id.
func (s *RunState) Blocklist() []*domain.BlockEntry {
	out := make([]*domain.BlockEntry, 0, len(s.blocklist))
	for _, e := range s.blocklist {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FamilyID < out[j].FamilyID })
	return out
}

// Link returns the link with the given id, or nil.
func (s *RunState) Link(id uuid.UUID) *domain.Link {
	return s.links[id]
}

// LinkOnRoute returns the link for the route, or nil.
func (s *RunState) LinkOnRoute(routeID int) *domain.Link {
	id, ok := s.linksByRoute[routeID]
	if !ok {
		return nil
	}
	return s.links[id]
}

// Links returns all links sorted by route id.
func (s *RunState) Links() []*domain.Link {
	out := make([]*domain.Link, 0, len(s.links))
	for _, l := range s.links {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RouteID < out[j].RouteID })
	return out
}

// EncounterByPokemonKey resolves a game-client pokemon key to its caught
// encounter, or nil when the key is unknown.
func (s *RunState) EncounterByPokemonKey(key string) *domain.Encounter {
	id, ok := s.byPokemonKey[key]
	if !ok {
		return nil
	}
	return s.encounters[id]
}

// finalizedOnRoute returns the player's finalized encounter on the route,
// or nil. A route is consumed once such an encounter exists.
func (s *RunState) finalizedOnRoute(playerID uuid.UUID, routeID int) *domain.Encounter {
	for _, id := range s.order {
		enc := s.encounters[id]
		if enc.PlayerID == playerID && enc.RouteID == routeID && enc.FEFinalized {
			return enc
		}
	}
	return nil
}

// unresolvedOnRoute returns the player's pending non-dupes encounter on
// the route, or nil.
func (s *RunState) unresolvedOnRoute(playerID uuid.UUID, routeID int) *domain.Encounter {
	for _, id := range s.order {
		enc := s.encounters[id]
		if enc.PlayerID == playerID && enc.RouteID == routeID &&
			!enc.Resolved() && !enc.DupesSkip {
			return enc
		}
	}
	return nil
}

// pendingClaim returns the earliest unresolved non-dupes encounter of the
// family held by a different player on a different route, or nil. Such a
// claim defers finalization of later encounters of the same family.
func (s *RunState) pendingClaim(familyID int, playerID uuid.UUID, routeID int) *domain.Encounter {
	for _, id := range s.order {
		enc := s.encounters[id]
		if enc.FamilyID != familyID || enc.PlayerID == playerID || enc.RouteID == routeID {
			continue
		}
		if !enc.Resolved() && !enc.DupesSkip {
			return enc
		}
	}
	return nil
}

// eligibleLinkMember returns the player's earliest caught, non-fainted
// encounter on the route that is not already a link member, or nil.
func (s *RunState) eligibleLinkMember(playerID uuid.UUID, routeID int) *domain.Encounter {
	memberIDs := make(map[uuid.UUID]bool)
	if link := s.LinkOnRoute(routeID); link != nil {
		for _, m := range link.Members {
			memberIDs[m.EncounterID] = true
		}
	}
	for _, id := range s.order {
		enc := s.encounters[id]
		if enc.PlayerID != playerID || enc.RouteID != routeID {
			continue
		}
		if enc.Status == domain.EncounterStatusCaught && !enc.Fainted && !memberIDs[enc.ID] {
			return enc
		}
	}
	return nil
}
