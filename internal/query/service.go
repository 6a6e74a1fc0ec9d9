// Package query is the read path over the projected read models: the
// route-status matrix, encounter listings, the family blocklist, and soul
// links. It never touches the event log.
package query

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/soullink-tracker/server/internal/domain"
)

// Repository defines read access to the projected read models.
type Repository interface {
	ListEncounters(ctx context.Context, runID uuid.UUID, f domain.EncounterFilter) ([]domain.Encounter, error)
	ListBlockEntries(ctx context.Context, runID uuid.UUID) ([]domain.BlockEntry, error)
	ListLinks(ctx context.Context, runID uuid.UUID) ([]domain.Link, error)
}

// PlayerLister supplies the run's players for matrix column ordering.
type PlayerLister interface {
	ListPlayers(ctx context.Context, runID uuid.UUID) ([]domain.Player, error)
}

// Service defines the query interface
type Service interface {
	// Encounters lists the run's encounters in log order, filtered.
	Encounters(ctx context.Context, runID uuid.UUID, f domain.EncounterFilter) ([]domain.Encounter, error)

	// Blocklist lists the globally claimed families in claim order.
	Blocklist(ctx context.Context, runID uuid.UUID) ([]domain.BlockEntry, error)

	// Links lists the run's soul links.
	Links(ctx context.Context, runID uuid.UUID) ([]domain.Link, error)

	// RouteMatrix builds the route-status board: one row per touched
	// route, one cell per player in join order.
	RouteMatrix(ctx context.Context, runID uuid.UUID) ([]domain.RouteStatus, error)
}

type service struct {
	repo    Repository
	players PlayerLister
}

// NewService creates a new query service
func NewService(repo Repository, players PlayerLister) Service {
	return &service{repo: repo, players: players}
}

func (s *service) Encounters(ctx context.Context, runID uuid.UUID, f domain.EncounterFilter) ([]domain.Encounter, error) {
	return s.repo.ListEncounters(ctx, runID, f)
}

func (s *service) Blocklist(ctx context.Context, runID uuid.UUID) ([]domain.BlockEntry, error) {
	return s.repo.ListBlockEntries(ctx, runID)
}

func (s *service) Links(ctx context.Context, runID uuid.UUID) ([]domain.Link, error) {
	return s.repo.ListLinks(ctx, runID)
}

func (s *service) RouteMatrix(ctx context.Context, runID uuid.UUID) ([]domain.RouteStatus, error) {
	players, err := s.players.ListPlayers(ctx, runID)
	if err != nil {
		return nil, err
	}

	encounters, err := s.repo.ListEncounters(ctx, runID, domain.EncounterFilter{})
	if err != nil {
		return nil, err
	}
	links, err := s.repo.ListLinks(ctx, runID)
	if err != nil {
		return nil, err
	}

	linkedRoutes := make(map[int]bool, len(links))
	for _, l := range links {
		linkedRoutes[l.RouteID] = true
	}

	// Per route and player, the cell shows the finalized encounter when
	// one exists, otherwise the latest recorded one.
	type cellKey struct {
		routeID  int
		playerID uuid.UUID
	}
	cells := make(map[cellKey]domain.Encounter)
	routeSet := make(map[int]bool)
	for _, enc := range encounters {
		routeSet[enc.RouteID] = true
		key := cellKey{routeID: enc.RouteID, playerID: enc.PlayerID}
		cur, ok := cells[key]
		if !ok || enc.FEFinalized || (!cur.FEFinalized && enc.Seq > cur.Seq) {
			cells[key] = enc
		}
	}

	routes := make([]int, 0, len(routeSet))
	for r := range routeSet {
		routes = append(routes, r)
	}
	sort.Ints(routes)

	matrix := make([]domain.RouteStatus, 0, len(routes))
	for _, routeID := range routes {
		row := domain.RouteStatus{
			RouteID: routeID,
			Linked:  linkedRoutes[routeID],
			Cells:   make([]domain.RouteCell, 0, len(players)),
		}
		for _, p := range players {
			cell := domain.RouteCell{PlayerID: p.ID}
			if enc, ok := cells[cellKey{routeID: routeID, playerID: p.ID}]; ok {
				id := enc.ID
				cell.EncounterID = &id
				cell.SpeciesID = enc.SpeciesID
				cell.Status = enc.Status
				cell.DupesSkip = enc.DupesSkip
				cell.FEFinalized = enc.FEFinalized
				cell.Fainted = enc.Fainted
			}
			row.Cells = append(row.Cells, cell)
		}
		matrix = append(matrix, row)
	}

	return matrix, nil
}
