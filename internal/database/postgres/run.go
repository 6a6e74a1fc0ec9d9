package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soullink-tracker/server/internal/domain"
)

// RunRepository implements run.Repository over the runs and players tables.
type RunRepository struct {
	db *pgxpool.Pool
}

// NewRunRepository creates a new PostgreSQL run repository
func NewRunRepository(db *pgxpool.Pool) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) CreateRun(ctx context.Context, run *domain.Run) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO runs (id, name, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		run.ID, run.Name, run.Status, run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

func (r *RunRepository) GetRun(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	var run domain.Run
	err := r.db.QueryRow(ctx,
		`SELECT id, name, status, created_at, updated_at FROM runs WHERE id = $1`, id,
	).Scan(&run.ID, &run.Name, &run.Status, &run.CreatedAt, &run.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &run, nil
}

func (r *RunRepository) ListRuns(ctx context.Context) ([]domain.Run, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, name, status, created_at, updated_at FROM runs ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []domain.Run
	for rows.Next() {
		var run domain.Run
		if err := rows.Scan(&run.ID, &run.Name, &run.Status, &run.CreatedAt, &run.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (r *RunRepository) UpdateRunStatus(ctx context.Context, id uuid.UUID, status string, updatedAt time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE runs SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, updatedAt,
	)
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRunNotFound
	}
	return nil
}

func (r *RunRepository) AddPlayer(ctx context.Context, p *domain.Player) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO players (id, run_id, name, created_at) VALUES ($1, $2, $3, $4)`,
		p.ID, p.RunID, p.Name, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("add player: %w", err)
	}
	return nil
}

func (r *RunRepository) GetPlayer(ctx context.Context, runID, playerID uuid.UUID) (*domain.Player, error) {
	var p domain.Player
	err := r.db.QueryRow(ctx,
		`SELECT id, run_id, name, created_at FROM players WHERE run_id = $1 AND id = $2`,
		runID, playerID,
	).Scan(&p.ID, &p.RunID, &p.Name, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get player: %w", err)
	}
	return &p, nil
}

func (r *RunRepository) ListPlayers(ctx context.Context, runID uuid.UUID) ([]domain.Player, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, run_id, name, created_at FROM players
		 WHERE run_id = $1 ORDER BY created_at ASC, id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	var out []domain.Player
	for rows.Next() {
		var p domain.Player
		if err := rows.Scan(&p.ID, &p.RunID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
