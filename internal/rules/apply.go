package rules

import (
	"fmt"

	"github.com/soullink-tracker/server/internal/domain"
)

// arbitration is the outcome of the global first-encounter rule for a
// single encounter. Exactly one of the fields is set, or none when the
// encounter is contended and stays pending.
type arbitration struct {
	dupesSkip bool
	finalized bool
}

// arbitrate runs the global first-encounter rule with dupes clause
// against the state as it stood before the encounter event. It is called
// with identical state on the live path and during rebuild, which is what
// makes replay deterministic.
func (s *RunState) arbitrate(e *domain.Encounter) arbitration {
	if s.Blocked(e.FamilyID) {
		return arbitration{dupesSkip: true}
	}
	// Route already consumed by a finalized first encounter: this one can
	// never be the first, so the dupes clause applies.
	if s.finalizedOnRoute(e.PlayerID, e.RouteID) != nil {
		return arbitration{dupesSkip: true}
	}
	// Another player's unresolved claim on the same family defers this
	// encounter. The claim was applied earlier, so the lower sequence
	// number wins the tie deterministically.
	if s.pendingClaim(e.FamilyID, e.PlayerID, e.RouteID) != nil {
		return arbitration{}
	}
	return arbitration{finalized: true}
}

// Apply folds a single event into the state. Events must be applied in
// strict sequence order; Apply is the only mutation path and is shared by
// live command execution and projection rebuild.
func (s *RunState) Apply(ev domain.Event) error {
	if ev.Seq <= s.Seq {
		return fmt.Errorf("%w: event seq %d not after state seq %d", domain.ErrInvalidInput, ev.Seq, s.Seq)
	}

	switch ev.Type {
	case domain.EventEncounterRecorded:
		if err := s.applyEncounterRecorded(ev); err != nil {
			return err
		}
	case domain.EventCatchResultRecorded:
		if err := s.applyCatchResultRecorded(ev); err != nil {
			return err
		}
	case domain.EventPartyFainted:
		if err := s.applyPartyFainted(ev); err != nil {
			return err
		}
	case domain.EventFamilyBlocked:
		if err := s.applyFamilyBlocked(ev); err != nil {
			return err
		}
	case domain.EventLinkFormed:
		if err := s.applyLinkFormed(ev); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: unknown event type %q", domain.ErrInvalidInput, ev.Type)
	}

	s.Seq = ev.Seq
	return nil
}

func (s *RunState) applyEncounterRecorded(ev domain.Event) error {
	var p domain.EncounterRecordedPayload
	if err := ev.DecodePayload(&p); err != nil {
		return err
	}

	enc := &domain.Encounter{
		ID:        p.EncounterID,
		RunID:     ev.RunID,
		PlayerID:  ev.PlayerID,
		RouteID:   p.RouteID,
		SpeciesID: p.SpeciesID,
		FamilyID:  p.FamilyID,
		Level:     p.Level,
		Shiny:     p.Shiny,
		Method:    p.Method,
		RodKind:   p.RodKind,
		Status:    domain.EncounterStatusPending,
		Seq:       ev.Seq,
		CreatedAt: ev.Timestamp,
		UpdatedAt: ev.Timestamp,
	}

	out := s.arbitrate(enc)
	enc.DupesSkip = out.dupesSkip
	enc.FEFinalized = out.finalized

	s.encounters[enc.ID] = enc
	s.order = append(s.order, enc.ID)
	return nil
}

func (s *RunState) applyCatchResultRecorded(ev domain.Event) error {
	var p domain.CatchResultRecordedPayload
	if err := ev.DecodePayload(&p); err != nil {
		return err
	}

	enc := s.encounters[p.EncounterID]
	if enc == nil {
		return fmt.Errorf("%w: %s", domain.ErrEncounterNotFound, p.EncounterID)
	}
	if enc.Resolved() {
		return fmt.Errorf("%w: %s", domain.ErrEncounterResolved, p.EncounterID)
	}

	enc.Status = p.Result
	enc.UpdatedAt = ev.Timestamp
	if p.Result == domain.EncounterStatusCaught && p.PokemonKey != "" {
		enc.PokemonKey = p.PokemonKey
		s.byPokemonKey[p.PokemonKey] = enc.ID
	}

	// A contended encounter settles at resolution: if the family got
	// blocked while it waited it is a dupe, otherwise it finalizes now.
	if !enc.FEFinalized && !enc.DupesSkip {
		if s.Blocked(enc.FamilyID) || s.pendingClaim(enc.FamilyID, enc.PlayerID, enc.RouteID) != nil {
			enc.DupesSkip = true
		} else {
			enc.FEFinalized = true
		}
	}
	return nil
}

func (s *RunState) applyPartyFainted(ev domain.Event) error {
	var p domain.PartyFaintedPayload
	if err := ev.DecodePayload(&p); err != nil {
		return err
	}

	enc := s.EncounterByPokemonKey(p.PokemonKey)
	if enc == nil {
		// Game clients report faints for creatures the run never tracked
		// (starters, trades). The fact stays in the log; nothing derives
		// from it.
		return nil
	}
	enc.Fainted = true
	enc.UpdatedAt = ev.Timestamp

	// Shared fate: a faint of any link member takes the whole link down
	// in the same logical step.
	for _, link := range s.links {
		for i := range link.Members {
			if link.Members[i].EncounterID != enc.ID {
				continue
			}
			link.Fainted = true
			for j := range link.Members {
				link.Members[j].Fainted = true
				if m := s.encounters[link.Members[j].EncounterID]; m != nil {
					m.Fainted = true
					m.UpdatedAt = ev.Timestamp
				}
			}
			return nil
		}
	}
	return nil
}

func (s *RunState) applyFamilyBlocked(ev domain.Event) error {
	var p domain.FamilyBlockedPayload
	if err := ev.DecodePayload(&p); err != nil {
		return err
	}

	if entry := s.blocklist[p.FamilyID]; entry != nil {
		// A family appears at most once. The only legal transition is the
		// origin upgrade when a first-encounter claim is later caught.
		if entry.Origin == domain.BlockOriginFirstEncounter && p.Origin == domain.BlockOriginCaught {
			entry.Origin = domain.BlockOriginCaught
			entry.Seq = ev.Seq
		}
		return nil
	}

	s.blocklist[p.FamilyID] = &domain.BlockEntry{
		RunID:     ev.RunID,
		FamilyID:  p.FamilyID,
		Origin:    p.Origin,
		Seq:       ev.Seq,
		CreatedAt: ev.Timestamp,
	}
	return nil
}

func (s *RunState) applyLinkFormed(ev domain.Event) error {
	var p domain.LinkFormedPayload
	if err := ev.DecodePayload(&p); err != nil {
		return err
	}

	link := s.links[p.LinkID]
	if link == nil {
		link = &domain.Link{
			ID:        p.LinkID,
			RunID:     ev.RunID,
			RouteID:   p.RouteID,
			CreatedAt: ev.Timestamp,
		}
		s.links[p.LinkID] = link
		s.linksByRoute[p.RouteID] = p.LinkID
	}

	// Membership is carried in full in the payload; rebuild replays it
	// verbatim instead of recomputing eligibility.
	link.Members = link.Members[:0]
	for _, encID := range p.Members {
		enc := s.encounters[encID]
		if enc == nil {
			return fmt.Errorf("%w: link member %s", domain.ErrEncounterNotFound, encID)
		}
		link.Members = append(link.Members, domain.LinkMember{
			LinkID:      link.ID,
			PlayerID:    enc.PlayerID,
			EncounterID: enc.ID,
			PokemonKey:  enc.PokemonKey,
			Fainted:     enc.Fainted,
		})
	}
	return nil
}
