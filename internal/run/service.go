// Package run is the registry of runs and their players. Everything else
// in the system hangs off a run id issued here.
package run

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soullink-tracker/server/internal/domain"
	"github.com/soullink-tracker/server/internal/event"
	"github.com/soullink-tracker/server/internal/logger"
)

const (
	// MaxPlayers is the fixed player cardinality of a run.
	MaxPlayers = 3

	// MaxNameLength bounds run and player names.
	MaxNameLength = 64
)

// Repository defines data access for runs and players
type Repository interface {
	CreateRun(ctx context.Context, r *domain.Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	ListRuns(ctx context.Context) ([]domain.Run, error)
	UpdateRunStatus(ctx context.Context, id uuid.UUID, status string, updatedAt time.Time) error
	AddPlayer(ctx context.Context, p *domain.Player) error
	GetPlayer(ctx context.Context, runID, playerID uuid.UUID) (*domain.Player, error)
	ListPlayers(ctx context.Context, runID uuid.UUID) ([]domain.Player, error)
}

// Service defines the run registry interface
type Service interface {
	// CreateRun creates an active run with the given player names.
	CreateRun(ctx context.Context, name string, playerNames []string) (*domain.Run, []domain.Player, error)

	// GetRun returns the run, or domain.ErrRunNotFound.
	GetRun(ctx context.Context, id uuid.UUID) (*domain.Run, error)

	// ListRuns returns every known run.
	ListRuns(ctx context.Context) ([]domain.Run, error)

	// AddPlayer adds a player to an active run, up to MaxPlayers.
	AddPlayer(ctx context.Context, runID uuid.UUID, name string) (*domain.Player, error)

	// GetPlayer returns the player, or domain.ErrPlayerNotFound.
	GetPlayer(ctx context.Context, runID, playerID uuid.UUID) (*domain.Player, error)

	// ListPlayers returns the run's players in join order.
	ListPlayers(ctx context.Context, runID uuid.UUID) ([]domain.Player, error)

	// SetStatus transitions the run's lifecycle status.
	SetStatus(ctx context.Context, id uuid.UUID, status string) (*domain.Run, error)

	// RunExists reports whether the run id is known.
	RunExists(ctx context.Context, id uuid.UUID) (bool, error)

	// RequireActive returns the run when it exists and is active.
	RequireActive(ctx context.Context, id uuid.UUID) (*domain.Run, error)
}

type service struct {
	repo Repository
	bus  event.Bus
	now  func() time.Time
}

// NewService creates a new run registry service
func NewService(repo Repository, bus event.Bus) Service {
	return &service{
		repo: repo,
		bus:  bus,
		now:  time.Now,
	}
}

func validName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > MaxNameLength {
		return "", fmt.Errorf("%w: name", domain.ErrInvalidInput)
	}
	return name, nil
}

func (s *service) CreateRun(ctx context.Context, name string, playerNames []string) (*domain.Run, []domain.Player, error) {
	name, err := validName(name)
	if err != nil {
		return nil, nil, err
	}
	if len(playerNames) == 0 || len(playerNames) > MaxPlayers {
		return nil, nil, fmt.Errorf("%w: between 1 and %d players", domain.ErrInvalidInput, MaxPlayers)
	}

	now := s.now().UTC()
	r := &domain.Run{
		ID:        uuid.New(),
		Name:      name,
		Status:    domain.RunStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateRun(ctx, r); err != nil {
		return nil, nil, fmt.Errorf("create run: %w", err)
	}

	players := make([]domain.Player, 0, len(playerNames))
	for _, pn := range playerNames {
		pn, err := validName(pn)
		if err != nil {
			return nil, nil, err
		}
		p := &domain.Player{
			ID:        uuid.New(),
			RunID:     r.ID,
			Name:      pn,
			CreatedAt: s.now().UTC(),
		}
		if err := s.repo.AddPlayer(ctx, p); err != nil {
			return nil, nil, fmt.Errorf("add player: %w", err)
		}
		players = append(players, *p)
	}

	logger.FromContext(ctx).Info("Run created",
		"run_id", r.ID,
		"name", r.Name,
		"players", len(players))

	if s.bus != nil {
		_ = s.bus.Publish(ctx, event.NewRunCreatedEvent(r.ID, r.Name))
	}

	return r, players, nil
}

func (s *service) GetRun(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	return s.repo.GetRun(ctx, id)
}

func (s *service) ListRuns(ctx context.Context) ([]domain.Run, error) {
	return s.repo.ListRuns(ctx)
}

func (s *service) AddPlayer(ctx context.Context, runID uuid.UUID, name string) (*domain.Player, error) {
	name, err := validName(name)
	if err != nil {
		return nil, err
	}

	r, err := s.RequireActive(ctx, runID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.ListPlayers(ctx, r.ID)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	if len(existing) >= MaxPlayers {
		return nil, domain.ErrRunFull
	}

	p := &domain.Player{
		ID:        uuid.New(),
		RunID:     r.ID,
		Name:      name,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.AddPlayer(ctx, p); err != nil {
		return nil, fmt.Errorf("add player: %w", err)
	}

	logger.FromContext(ctx).Info("Player joined run",
		"run_id", r.ID,
		"player_id", p.ID,
		"name", p.Name)

	if s.bus != nil {
		_ = s.bus.Publish(ctx, event.NewPlayerJoinedEvent(r.ID, p.ID, p.Name))
	}

	return p, nil
}

func (s *service) GetPlayer(ctx context.Context, runID, playerID uuid.UUID) (*domain.Player, error) {
	return s.repo.GetPlayer(ctx, runID, playerID)
}

func (s *service) ListPlayers(ctx context.Context, runID uuid.UUID) ([]domain.Player, error) {
	if _, err := s.repo.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return s.repo.ListPlayers(ctx, runID)
}

func (s *service) SetStatus(ctx context.Context, id uuid.UUID, status string) (*domain.Run, error) {
	switch status {
	case domain.RunStatusActive, domain.RunStatusCompleted, domain.RunStatusFailed:
	default:
		return nil, fmt.Errorf("%w: status %q", domain.ErrInvalidInput, status)
	}

	r, err := s.repo.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.repo.UpdateRunStatus(ctx, r.ID, status, now); err != nil {
		return nil, fmt.Errorf("update run status: %w", err)
	}
	r.Status = status
	r.UpdatedAt = now

	logger.FromContext(ctx).Info("Run status changed", "run_id", r.ID, "status", status)
	return r, nil
}

func (s *service) RunExists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.repo.GetRun(ctx, id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, domain.ErrRunNotFound) {
		return false, nil
	}
	return false, err
}

func (s *service) RequireActive(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	r, err := s.repo.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != domain.RunStatusActive {
		return nil, domain.ErrRunNotActive
	}
	return r, nil
}
