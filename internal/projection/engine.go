package projection

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/soullink-tracker/server/internal/domain"
	"github.com/soullink-tracker/server/internal/eventstore"
	"github.com/soullink-tracker/server/internal/logger"
	"github.com/soullink-tracker/server/internal/rules"
)

// Engine folds appended events into the per-run rule state and the
// persisted read models. The rule state is itself a projection: it is
// replayed from the log on first use and can be discarded at any time.
type Engine struct {
	store eventstore.Store
	repo  Repository

	mu     sync.Mutex
	states map[uuid.UUID]*rules.RunState
}

// NewEngine creates a projection engine over the given store and
// read-model repository.
func NewEngine(store eventstore.Store, repo Repository) *Engine {
	return &Engine{
		store:  store,
		repo:   repo,
		states: make(map[uuid.UUID]*rules.RunState),
	}
}

// State returns the run's rule state, replaying the log into memory when
// the run is not cached. The caller must hold the run's write lock when
// using the state to evaluate commands.
func (e *Engine) State(ctx context.Context, runID uuid.UUID) (*rules.RunState, error) {
	e.mu.Lock()
	if st, ok := e.states[runID]; ok {
		e.mu.Unlock()
		return st, nil
	}
	e.mu.Unlock()

	st := rules.NewRunState(runID)
	if err := e.replay(ctx, st, func(ev domain.Event) error {
		return st.Apply(ev)
	}); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.states[runID] = st
	e.mu.Unlock()
	return st, nil
}

// Invalidate drops the run's cached rule state. Callers use it after a
// rolled-back commit: the cache may have folded events the log no longer
// holds, and the next State call replays from the log instead.
func (e *Engine) Invalidate(runID uuid.UUID) {
	e.mu.Lock()
	delete(e.states, runID)
	e.mu.Unlock()
}

// Apply folds freshly appended events into the rule state and persists
// the touched read-model rows. It runs inside the transaction opened
// around the append, so a storage failure rolls both back together.
func (e *Engine) Apply(ctx context.Context, events []domain.Event) error {
	for _, ev := range events {
		st, err := e.State(ctx, ev.RunID)
		if err != nil {
			return err
		}
		if err := e.applyOne(ctx, st, ev); err != nil {
			return err
		}
	}
	return nil
}

// Rebuild discards the run's read models and rule state and replays the
// entire log from sequence zero. It returns the number of events
// replayed. The log itself is never touched.
func (e *Engine) Rebuild(ctx context.Context, runID uuid.UUID) (int, error) {
	e.mu.Lock()
	delete(e.states, runID)
	e.mu.Unlock()

	if err := e.repo.Reset(ctx, runID); err != nil {
		return 0, fmt.Errorf("reset read models: %w", err)
	}

	st := rules.NewRunState(runID)
	count := 0
	if err := e.replay(ctx, st, func(ev domain.Event) error {
		count++
		return e.applyOne(ctx, st, ev)
	}); err != nil {
		return count, err
	}

	e.mu.Lock()
	e.states[runID] = st
	e.mu.Unlock()

	logger.FromContext(ctx).Info("Projection rebuild complete", "run_id", runID, "events", count)
	return count, nil
}

// replay streams the run's log in pages and feeds every event to fn.
func (e *Engine) replay(ctx context.Context, st *rules.RunState, fn func(domain.Event) error) error {
	since := uint64(0)
	for {
		events, err := e.store.Read(ctx, st.RunID, since, eventstore.DefaultReadLimit)
		if err != nil {
			return fmt.Errorf("read log since %d: %w", since, err)
		}
		if len(events) == 0 {
			return nil
		}
		for _, ev := range events {
			if err := fn(ev); err != nil {
				return fmt.Errorf("apply seq %d: %w", ev.Seq, err)
			}
			since = ev.Seq
		}
	}
}

// applyOne folds a single event and persists the rows it touched. The
// write set per event type is fixed; side-effect events arrive as their
// own log entries and are folded in the same pass as their trigger.
func (e *Engine) applyOne(ctx context.Context, st *rules.RunState, ev domain.Event) error {
	if ev.Seq > st.Seq {
		if err := st.Apply(ev); err != nil {
			return err
		}
	}

	switch ev.Type {
	case domain.EventEncounterRecorded, domain.EventCatchResultRecorded:
		var p struct {
			EncounterID uuid.UUID `json:"encounter_id"`
		}
		if err := ev.DecodePayload(&p); err != nil {
			return err
		}
		enc := st.Encounter(p.EncounterID)
		if enc == nil {
			return fmt.Errorf("%w: %s", domain.ErrEncounterNotFound, p.EncounterID)
		}
		return e.repo.UpsertEncounter(ctx, *enc)

	case domain.EventPartyFainted:
		var p domain.PartyFaintedPayload
		if err := ev.DecodePayload(&p); err != nil {
			return err
		}
		enc := st.EncounterByPokemonKey(p.PokemonKey)
		if enc == nil {
			return nil
		}
		// Propagation may have touched every member of the link.
		for _, link := range st.Links() {
			for _, m := range link.Members {
				if m.EncounterID != enc.ID {
					continue
				}
				if err := e.repo.UpsertLink(ctx, *link); err != nil {
					return err
				}
				for _, member := range link.Members {
					if mEnc := st.Encounter(member.EncounterID); mEnc != nil {
						if err := e.repo.UpsertEncounter(ctx, *mEnc); err != nil {
							return err
						}
					}
				}
				return nil
			}
		}
		return e.repo.UpsertEncounter(ctx, *enc)

	case domain.EventFamilyBlocked:
		var p domain.FamilyBlockedPayload
		if err := ev.DecodePayload(&p); err != nil {
			return err
		}
		entry := st.BlockEntry(p.FamilyID)
		if entry == nil {
			return fmt.Errorf("block entry missing for family %d", p.FamilyID)
		}
		return e.repo.UpsertBlockEntry(ctx, *entry)

	case domain.EventLinkFormed:
		var p domain.LinkFormedPayload
		if err := ev.DecodePayload(&p); err != nil {
			return err
		}
		link := st.Link(p.LinkID)
		if link == nil {
			return fmt.Errorf("link missing: %s", p.LinkID)
		}
		return e.repo.UpsertLink(ctx, *link)
	}

	return fmt.Errorf("%w: unknown event type %q", domain.ErrInvalidInput, ev.Type)
}
