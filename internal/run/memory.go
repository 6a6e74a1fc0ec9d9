package run

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soullink-tracker/server/internal/domain"
)

// MemoryRepository is an in-process Repository used by tests and
// single-node deployments without a database.
type MemoryRepository struct {
	mu      sync.RWMutex
	runs    map[uuid.UUID]domain.Run
	players map[uuid.UUID][]domain.Player
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		runs:    make(map[uuid.UUID]domain.Run),
		players: make(map[uuid.UUID][]domain.Player),
	}
}

func (r *MemoryRepository) CreateRun(_ context.Context, run *domain.Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = *run
	return nil
}

func (r *MemoryRepository) GetRun(_ context.Context, id uuid.UUID) (*domain.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	run, ok := r.runs[id]
	if !ok {
		return nil, domain.ErrRunNotFound
	}
	out := run
	return &out, nil
}

func (r *MemoryRepository) ListRuns(_ context.Context) ([]domain.Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Run, 0, len(r.runs))
	for _, run := range r.runs {
		out = append(out, run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) UpdateRunStatus(_ context.Context, id uuid.UUID, status string, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[id]
	if !ok {
		return domain.ErrRunNotFound
	}
	run.Status = status
	run.UpdatedAt = updatedAt
	r.runs[id] = run
	return nil
}

func (r *MemoryRepository) AddPlayer(_ context.Context, p *domain.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.runs[p.RunID]; !ok {
		return domain.ErrRunNotFound
	}
	r.players[p.RunID] = append(r.players[p.RunID], *p)
	return nil
}

func (r *MemoryRepository) GetPlayer(_ context.Context, runID, playerID uuid.UUID) (*domain.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.players[runID] {
		if p.ID == playerID {
			out := p
			return &out, nil
		}
	}
	return nil, domain.ErrPlayerNotFound
}

func (r *MemoryRepository) ListPlayers(_ context.Context, runID uuid.UUID) ([]domain.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Player, len(r.players[runID]))
	copy(out, r.players[runID])
	return out, nil
}
