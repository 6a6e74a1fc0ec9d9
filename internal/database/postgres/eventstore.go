package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soullink-tracker/server/internal/domain"
	"github.com/soullink-tracker/server/internal/eventstore"
)

// EventStoreRepository implements eventstore.Store on PostgreSQL. The
// append runs in one transaction that reads the run's current high-water
// mark and inserts the batch at the next sequence numbers; the (run_id,
// seq) primary key makes a lost-update race fail loudly instead of
// corrupting the order.
type EventStoreRepository struct {
	db *pgxpool.Pool
}

// NewEventStoreRepository creates a new PostgreSQL event store
func NewEventStoreRepository(db *pgxpool.Pool) eventstore.Store {
	return &EventStoreRepository{db: db}
}

// Append implements eventstore.Store. When the context carries a
// transaction opened by TxManager.WithinTx, the batch is inserted on it
// and the caller owns the commit; otherwise a local transaction covers
// the sequence read and the inserts.
func (r *EventStoreRepository) Append(ctx context.Context, runID uuid.UUID, events []domain.Event) ([]uint64, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: empty append", domain.ErrInvalidInput)
	}
	for _, ev := range events {
		if !ev.Type.IsValid() {
			return nil, fmt.Errorf("%w: event type %q", domain.ErrInvalidInput, ev.Type)
		}
	}

	if tx, ok := txFromContext(ctx); ok {
		return r.appendOn(ctx, tx, runID, events)
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToBeginTransaction, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	seqs, err := r.appendOn(ctx, tx, runID, events)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToCommitTransaction, err)
	}
	return seqs, nil
}

func (r *EventStoreRepository) appendOn(ctx context.Context, q querier, runID uuid.UUID, events []domain.Event) ([]uint64, error) {
	var last uint64
	err := q.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM events WHERE run_id = $1`, runID,
	).Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToAppendEvent, err)
	}

	seqs := make([]uint64, 0, len(events))
	for _, ev := range events {
		last++
		_, err := q.Exec(ctx,
			`INSERT INTO events (run_id, seq, player_id, event_type, payload, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			runID, last, ev.PlayerID, string(ev.Type), []byte(ev.Payload), ev.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("%s seq %d: %w", ErrMsgFailedToAppendEvent, last, err)
		}
		seqs = append(seqs, last)
	}
	return seqs, nil
}

// Read implements eventstore.Store.
func (r *EventStoreRepository) Read(ctx context.Context, runID uuid.UUID, sinceSeq uint64, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = eventstore.DefaultReadLimit
	}

	rows, err := r.db.Query(ctx,
		`SELECT run_id, seq, player_id, event_type, payload, created_at
		 FROM events
		 WHERE run_id = $1 AND seq > $2
		 ORDER BY seq ASC
		 LIMIT $3`,
		runID, sinceSeq, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToReadEvents, err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var ev domain.Event
		var eventType string
		var payload []byte
		if err := rows.Scan(&ev.RunID, &ev.Seq, &ev.PlayerID, &eventType, &payload, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("%s: %w", ErrMsgFailedToReadEvents, err)
		}
		ev.Type = domain.EventType(eventType)
		ev.Payload = payload
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToReadEvents, err)
	}
	return events, nil
}

// LastSeq implements eventstore.Store.
func (r *EventStoreRepository) LastSeq(ctx context.Context, runID uuid.UUID) (uint64, error) {
	var last uint64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM events WHERE run_id = $1`, runID,
	).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", ErrMsgFailedToReadEvents, err)
	}
	return last, nil
}
