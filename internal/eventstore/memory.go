package eventstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/soullink-tracker/server/internal/domain"
)

// MemoryStore is an in-memory Store used by tests and by rebuild
// verification. It honors the same sequencing contract as the durable
// implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	logs map[uuid.UUID][]domain.Event
}

// NewMemoryStore creates an empty in-memory event store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{logs: make(map[uuid.UUID][]domain.Event)}
}

// Append implements Store.
func (m *MemoryStore) Append(_ context.Context, runID uuid.UUID, events []domain.Event) ([]uint64, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: empty append", domain.ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	log := m.logs[runID]
	next := uint64(len(log)) + 1

	seqs := make([]uint64, 0, len(events))
	for _, ev := range events {
		if !ev.Type.IsValid() {
			return nil, fmt.Errorf("%w: event type %q", domain.ErrInvalidInput, ev.Type)
		}
		ev.RunID = runID
		ev.Seq = next
		log = append(log, ev)
		seqs = append(seqs, next)
		next++
	}
	m.logs[runID] = log
	return seqs, nil
}

// WithinTx runs fn and, on error, truncates the run's log back to where
// it stood before fn ran, discarding any events fn appended. The caller
// holds the run's write lock, so nothing else appends to the run while
// fn is in flight.
func (m *MemoryStore) WithinTx(ctx context.Context, runID uuid.UUID, fn func(context.Context) error) error {
	m.mu.RLock()
	mark := len(m.logs[runID])
	m.mu.RUnlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		if log := m.logs[runID]; len(log) > mark {
			m.logs[runID] = log[:mark]
		}
		m.mu.Unlock()
		return err
	}
	return nil
}

// Read implements Store.
func (m *MemoryStore) Read(_ context.Context, runID uuid.UUID, sinceSeq uint64, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = DefaultReadLimit
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	log := m.logs[runID]
	if sinceSeq >= uint64(len(log)) {
		return nil, nil
	}

	end := sinceSeq + uint64(limit)
	if end > uint64(len(log)) {
		end = uint64(len(log))
	}
	out := make([]domain.Event, end-sinceSeq)
	copy(out, log[sinceSeq:end])
	return out, nil
}

// LastSeq implements Store.
func (m *MemoryStore) LastSeq(_ context.Context, runID uuid.UUID) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return uint64(len(m.logs[runID])), nil
}
