// Package engine is the write path: every state change enters through
// here. A command is validated, deduplicated, evaluated against the run's
// projected state, appended to the log, projected, and broadcast, with one
// logical writer per run.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/soullink-tracker/server/internal/concurrency"
	"github.com/soullink-tracker/server/internal/domain"
	"github.com/soullink-tracker/server/internal/event"
	"github.com/soullink-tracker/server/internal/eventstore"
	"github.com/soullink-tracker/server/internal/idempotency"
	"github.com/soullink-tracker/server/internal/logger"
	"github.com/soullink-tracker/server/internal/metrics"
	"github.com/soullink-tracker/server/internal/rules"
)

// Projector folds appended events into run state and read models.
// Implemented by projection.Engine.
type Projector interface {
	State(ctx context.Context, runID uuid.UUID) (*rules.RunState, error)
	Apply(ctx context.Context, events []domain.Event) error
	Rebuild(ctx context.Context, runID uuid.UUID) (int, error)

	// Invalidate drops the run's cached state so the next State call
	// replays from the log.
	Invalidate(runID uuid.UUID)
}

// TxRunner makes a command's storage writes atomic: the appended events
// and the projected read-model rows survive together or not at all.
// Implemented by postgres.TxManager and eventstore.MemoryStore.
type TxRunner interface {
	WithinTx(ctx context.Context, runID uuid.UUID, fn func(context.Context) error) error
}

// Registry supplies run and player identity checks.
type Registry interface {
	RequireActive(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	GetPlayer(ctx context.Context, runID, playerID uuid.UUID) (*domain.Player, error)
}

// SpeciesResolver maps a species to its evolutionary family.
type SpeciesResolver interface {
	FamilyFor(speciesID int) (int, error)
}

// Service defines the command engine interface
type Service interface {
	// RecordEncounter records a wild encounter. replayed is true when the
	// idempotency key matched a previously committed submission.
	RecordEncounter(ctx context.Context, idemKey string, cmd domain.EncounterCommand) (*domain.CommandResult, bool, error)

	// RecordCatchResult resolves a pending encounter.
	RecordCatchResult(ctx context.Context, idemKey string, cmd domain.CatchResultCommand) (*domain.CommandResult, bool, error)

	// RecordFaint records a party faint.
	RecordFaint(ctx context.Context, idemKey string, cmd domain.FaintCommand) (*domain.CommandResult, bool, error)

	// Rebuild drops and replays the run's projections from the log.
	Rebuild(ctx context.Context, runID uuid.UUID) (int, error)
}

type service struct {
	store    eventstore.Store
	proj     Projector
	tx       TxRunner
	idem     *idempotency.Executor
	bus      event.Bus
	registry Registry
	species  SpeciesResolver
	locks    *concurrency.LockManager
	validate *validator.Validate
}

// NewService creates a new command engine service
func NewService(store eventstore.Store, proj Projector, tx TxRunner, idem *idempotency.Executor, bus event.Bus, registry Registry, species SpeciesResolver, locks *concurrency.LockManager) Service {
	return &service{
		store:    store,
		proj:     proj,
		tx:       tx,
		idem:     idem,
		bus:      bus,
		registry: registry,
		species:  species,
		locks:    locks,
		validate: validator.New(),
	}
}

func (s *service) RecordEncounter(ctx context.Context, idemKey string, cmd domain.EncounterCommand) (*domain.CommandResult, bool, error) {
	familyID, err := s.species.FamilyFor(cmd.SpeciesID)
	if err != nil {
		return nil, false, err
	}
	return s.execute(ctx, cmd.RunID, cmd.PlayerID, idemKey, domain.CommandEncounter, cmd,
		func(st *rules.RunState) (rules.Decision, error) {
			return rules.EvaluateEncounter(st, cmd, familyID)
		})
}

func (s *service) RecordCatchResult(ctx context.Context, idemKey string, cmd domain.CatchResultCommand) (*domain.CommandResult, bool, error) {
	return s.execute(ctx, cmd.RunID, cmd.PlayerID, idemKey, domain.CommandCatchResult, cmd,
		func(st *rules.RunState) (rules.Decision, error) {
			return rules.EvaluateCatchResult(st, cmd)
		})
}

func (s *service) RecordFaint(ctx context.Context, idemKey string, cmd domain.FaintCommand) (*domain.CommandResult, bool, error) {
	return s.execute(ctx, cmd.RunID, cmd.PlayerID, idemKey, domain.CommandFaint, cmd,
		func(st *rules.RunState) (rules.Decision, error) {
			return rules.EvaluateFaint(st, cmd)
		})
}

// execute runs the shared command pipeline. The evaluator callback runs
// with the run's write lock held, against state that reflects every
// previously appended event.
func (s *service) execute(ctx context.Context, runID, playerID uuid.UUID, idemKey, cmdType string, cmd interface{}, eval func(*rules.RunState) (rules.Decision, error)) (*domain.CommandResult, bool, error) {
	log := logger.FromContext(ctx)

	if err := s.validate.Struct(cmd); err != nil {
		return nil, false, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	if _, err := s.registry.RequireActive(ctx, runID); err != nil {
		return nil, false, err
	}
	if _, err := s.registry.GetPlayer(ctx, runID, playerID); err != nil {
		return nil, false, err
	}

	fingerprint, err := commandFingerprint(cmdType, cmd)
	if err != nil {
		return nil, false, err
	}

	resp, replayed, err := s.idem.Do(ctx, runID, idemKey, fingerprint, func(ctx context.Context) (json.RawMessage, error) {
		return s.commit(ctx, runID, eval)
	})
	if err != nil {
		metrics.RecordCommandRejected(cmdType)
		log.Warn(LogMsgCommandRejected,
			"run_id", runID,
			"player_id", playerID,
			"command", cmdType,
			"error", err)
		return nil, false, err
	}

	var result domain.CommandResult
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, false, fmt.Errorf("decode stored result: %w", err)
	}

	if replayed {
		metrics.RecordCommandDeduped(cmdType)
		log.Info(LogMsgCommandReplayed,
			"run_id", runID,
			"command", cmdType,
			"idempotency_key", idemKey)
	} else {
		log.Info(LogMsgCommandAccepted,
			"run_id", runID,
			"player_id", playerID,
			"command", cmdType,
			"seqs", result.Seqs)
	}

	return &result, replayed, nil
}

// commit holds the run's write lock across evaluate, append, and project.
// Append and projection run in one storage transaction: if either fails,
// nothing is appended, nothing is projected, and the command is safe to
// retry under the same idempotency key.
func (s *service) commit(ctx context.Context, runID uuid.UUID, eval func(*rules.RunState) (rules.Decision, error)) (json.RawMessage, error) {
	lock := s.locks.GetLock(lockPrefix + runID.String())
	lock.Lock()
	defer lock.Unlock()

	st, err := s.proj.State(ctx, runID)
	if err != nil {
		return nil, err
	}

	decision, err := eval(st)
	if err != nil {
		return nil, err
	}

	var seqs []uint64
	events := make([]domain.Event, len(decision.Events))
	err = s.tx.WithinTx(ctx, runID, func(ctx context.Context) error {
		var err error
		seqs, err = s.store.Append(ctx, runID, decision.Events)
		if err != nil {
			return fmt.Errorf("append events: %w", err)
		}
		copy(events, decision.Events)
		for i := range events {
			events[i].RunID = runID
			events[i].Seq = seqs[i]
		}
		if err := s.proj.Apply(ctx, events); err != nil {
			return fmt.Errorf("project events: %w", err)
		}
		return nil
	})
	if err != nil {
		// The cached state may have folded events the rollback threw
		// away; force a replay from the log before the next command.
		s.proj.Invalidate(runID)
		return nil, err
	}

	for _, ev := range events {
		metrics.RecordEventAppended(string(ev.Type))
		if s.bus != nil {
			_ = s.bus.Publish(ctx, event.NewLogEvent(ev))
		}
	}

	result := domain.CommandResult{
		Seqs:        seqs,
		DupesSkip:   decision.DupesSkip,
		FEFinalized: decision.FEFinalized,
	}
	if decision.EncounterID != uuid.Nil {
		id := decision.EncounterID
		result.EncounterID = &id
	}

	return json.Marshal(result)
}

func (s *service) Rebuild(ctx context.Context, runID uuid.UUID) (int, error) {
	if _, err := s.registry.RequireActive(ctx, runID); err != nil {
		// Completed and failed runs can still be rebuilt.
		if !errors.Is(err, domain.ErrRunNotActive) {
			return 0, err
		}
	}

	logger.FromContext(ctx).Info(LogMsgRebuildRequested, "run_id", runID)

	lock := s.locks.GetLock(lockPrefix + runID.String())
	lock.Lock()
	defer lock.Unlock()

	var count int
	err := s.tx.WithinTx(ctx, runID, func(ctx context.Context) error {
		var err error
		count, err = s.proj.Rebuild(ctx, runID)
		return err
	})
	if err != nil {
		s.proj.Invalidate(runID)
		return count, err
	}
	metrics.RecordProjectionRebuild()

	if s.bus != nil {
		_ = s.bus.Publish(ctx, event.NewProjectionRebuiltEvent(runID, count))
	}
	return count, nil
}

// commandFingerprint hashes the command type and canonical payload so a
// reused idempotency key with different content is detected.
func commandFingerprint(cmdType string, cmd interface{}) (string, error) {
	body, err := json.Marshal(struct {
		Type    string      `json:"type"`
		Payload interface{} `json:"payload"`
	}{Type: cmdType, Payload: cmd})
	if err != nil {
		return "", fmt.Errorf("fingerprint command: %w", err)
	}
	return idempotency.Fingerprint(body), nil
}
