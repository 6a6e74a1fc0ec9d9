package projection

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/soullink-tracker/server/internal/domain"
)

// MemoryRepository holds the read models in process. It backs tests and
// single-node deployments, and doubles as the query read side.
type MemoryRepository struct {
	mu         sync.RWMutex
	encounters map[uuid.UUID]map[uuid.UUID]domain.Encounter
	blocklist  map[uuid.UUID]map[int]domain.BlockEntry
	links      map[uuid.UUID]map[uuid.UUID]domain.Link
}

// NewMemoryRepository creates an empty in-memory read-model repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		encounters: make(map[uuid.UUID]map[uuid.UUID]domain.Encounter),
		blocklist:  make(map[uuid.UUID]map[int]domain.BlockEntry),
		links:      make(map[uuid.UUID]map[uuid.UUID]domain.Link),
	}
}

func (r *MemoryRepository) UpsertEncounter(_ context.Context, enc domain.Encounter) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.encounters[enc.RunID]
	if !ok {
		m = make(map[uuid.UUID]domain.Encounter)
		r.encounters[enc.RunID] = m
	}
	m[enc.ID] = enc
	return nil
}

func (r *MemoryRepository) UpsertBlockEntry(_ context.Context, entry domain.BlockEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.blocklist[entry.RunID]
	if !ok {
		m = make(map[int]domain.BlockEntry)
		r.blocklist[entry.RunID] = m
	}
	m[entry.FamilyID] = entry
	return nil
}

func (r *MemoryRepository) UpsertLink(_ context.Context, link domain.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.links[link.RunID]
	if !ok {
		m = make(map[uuid.UUID]domain.Link)
		r.links[link.RunID] = m
	}
	members := make([]domain.LinkMember, len(link.Members))
	copy(members, link.Members)
	link.Members = members
	m[link.ID] = link
	return nil
}

func (r *MemoryRepository) Reset(_ context.Context, runID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.encounters, runID)
	delete(r.blocklist, runID)
	delete(r.links, runID)
	return nil
}

// Read side, consumed by the query service.

func (r *MemoryRepository) ListEncounters(_ context.Context, runID uuid.UUID, f domain.EncounterFilter) ([]domain.Encounter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Encounter, 0, len(r.encounters[runID]))
	for _, enc := range r.encounters[runID] {
		if f.Matches(&enc) {
			out = append(out, enc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (r *MemoryRepository) ListBlockEntries(_ context.Context, runID uuid.UUID) ([]domain.BlockEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.BlockEntry, 0, len(r.blocklist[runID]))
	for _, entry := range r.blocklist[runID] {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (r *MemoryRepository) ListLinks(_ context.Context, runID uuid.UUID) ([]domain.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Link, 0, len(r.links[runID]))
	for _, link := range r.links[runID] {
		members := make([]domain.LinkMember, len(link.Members))
		copy(members, link.Members)
		link.Members = members
		out = append(out, link)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
