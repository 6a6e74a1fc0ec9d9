package eventstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/soullink-tracker/server/internal/domain"
)

// DefaultReadLimit bounds a single Read page.
const DefaultReadLimit = 500

// Store is the append-only, per-run-sequenced event log. It is the single
// source of truth: projections can always be rebuilt from it.
//
// Append assigns gapless, strictly increasing sequence numbers per run and
// is atomic: either every event in the batch is durable and visible, or
// none is. Concurrent appends for one run are serialized by the caller
// (single writer per run); the store enforces the sequence invariant
// regardless.
type Store interface {
	// Append persists the events for the run and returns the assigned
	// sequence numbers, in input order.
	Append(ctx context.Context, runID uuid.UUID, events []domain.Event) ([]uint64, error)

	// Read returns events with seq > sinceSeq in ascending sequence
	// order, at most limit entries (DefaultReadLimit when limit <= 0).
	Read(ctx context.Context, runID uuid.UUID, sinceSeq uint64, limit int) ([]domain.Event, error)

	// LastSeq returns the highest assigned sequence number for the run,
	// zero when the log is empty.
	LastSeq(ctx context.Context, runID uuid.UUID) (uint64, error)
}
