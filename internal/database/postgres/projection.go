package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soullink-tracker/server/internal/domain"
)

// ProjectionRepository implements projection.Repository (the write side)
// and query.Repository (the read side) over the projected tables.
type ProjectionRepository struct {
	db *pgxpool.Pool
}

// NewProjectionRepository creates a new PostgreSQL read-model repository
func NewProjectionRepository(db *pgxpool.Pool) *ProjectionRepository {
	return &ProjectionRepository{db: db}
}

// UpsertEncounter implements projection.Repository. Write methods run on
// the context's transaction when TxManager.WithinTx opened one, so a
// projection failure rolls the appended events back with it.
func (r *ProjectionRepository) UpsertEncounter(ctx context.Context, enc domain.Encounter) error {
	_, err := queryTarget(ctx, r.db).Exec(ctx,
		`INSERT INTO encounters (id, run_id, player_id, route_id, species_id, family_id,
			level, shiny, method, rod_kind, status, dupes_skip, fe_finalized,
			pokemon_key, fainted, seq, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		 ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			dupes_skip = EXCLUDED.dupes_skip,
			fe_finalized = EXCLUDED.fe_finalized,
			pokemon_key = EXCLUDED.pokemon_key,
			fainted = EXCLUDED.fainted,
			updated_at = EXCLUDED.updated_at`,
		enc.ID, enc.RunID, enc.PlayerID, enc.RouteID, enc.SpeciesID, enc.FamilyID,
		enc.Level, enc.Shiny, enc.Method, nullIfEmpty(enc.RodKind), enc.Status,
		enc.DupesSkip, enc.FEFinalized, nullIfEmpty(enc.PokemonKey), enc.Fainted,
		enc.Seq, enc.CreatedAt, enc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToUpsertEncounter, err)
	}
	return nil
}

// UpsertBlockEntry implements projection.Repository.
func (r *ProjectionRepository) UpsertBlockEntry(ctx context.Context, entry domain.BlockEntry) error {
	_, err := queryTarget(ctx, r.db).Exec(ctx,
		`INSERT INTO blocklist (run_id, family_id, origin, seq, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (run_id, family_id) DO UPDATE SET
			origin = EXCLUDED.origin,
			seq = EXCLUDED.seq`,
		entry.RunID, entry.FamilyID, entry.Origin, entry.Seq, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToUpsertBlock, err)
	}
	return nil
}

// UpsertLink implements projection.Repository. Membership is replaced
// wholesale to match the LinkFormed payload.
func (r *ProjectionRepository) UpsertLink(ctx context.Context, link domain.Link) error {
	if tx, ok := txFromContext(ctx); ok {
		return r.upsertLinkOn(ctx, tx, link)
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToBeginTransaction, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := r.upsertLinkOn(ctx, tx, link); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToCommitTransaction, err)
	}
	return nil
}

func (r *ProjectionRepository) upsertLinkOn(ctx context.Context, q querier, link domain.Link) error {
	_, err := q.Exec(ctx,
		`INSERT INTO links (id, run_id, route_id, fainted, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET fainted = EXCLUDED.fainted`,
		link.ID, link.RunID, link.RouteID, link.Fainted, link.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToUpsertLink, err)
	}

	if _, err := q.Exec(ctx, `DELETE FROM link_members WHERE link_id = $1`, link.ID); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToUpsertLink, err)
	}
	for _, m := range link.Members {
		_, err := q.Exec(ctx,
			`INSERT INTO link_members (link_id, player_id, encounter_id, pokemon_key, fainted)
			 VALUES ($1, $2, $3, $4, $5)`,
			link.ID, m.PlayerID, m.EncounterID, m.PokemonKey, m.Fainted,
		)
		if err != nil {
			return fmt.Errorf("%s: %w", ErrMsgFailedToUpsertLink, err)
		}
	}
	return nil
}

// Reset implements projection.Repository.
func (r *ProjectionRepository) Reset(ctx context.Context, runID uuid.UUID) error {
	if tx, ok := txFromContext(ctx); ok {
		return r.resetOn(ctx, tx, runID)
	}

	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToBeginTransaction, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := r.resetOn(ctx, tx, runID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToCommitTransaction, err)
	}
	return nil
}

func (r *ProjectionRepository) resetOn(ctx context.Context, q querier, runID uuid.UUID) error {
	for _, stmt := range []string{
		`DELETE FROM link_members WHERE link_id IN (SELECT id FROM links WHERE run_id = $1)`,
		`DELETE FROM links WHERE run_id = $1`,
		`DELETE FROM blocklist WHERE run_id = $1`,
		`DELETE FROM encounters WHERE run_id = $1`,
	} {
		if _, err := q.Exec(ctx, stmt, runID); err != nil {
			return fmt.Errorf("%s: %w", ErrMsgFailedToResetReadModels, err)
		}
	}
	return nil
}

// Read side, consumed by the query service.

// ListEncounters implements query.Repository.
func (r *ProjectionRepository) ListEncounters(ctx context.Context, runID uuid.UUID, f domain.EncounterFilter) ([]domain.Encounter, error) {
	var qb strings.Builder
	qb.WriteString(
		`SELECT id, run_id, player_id, route_id, species_id, family_id, level, shiny,
			method, COALESCE(rod_kind, ''), status, dupes_skip, fe_finalized,
			COALESCE(pokemon_key, ''), fainted, seq, created_at, updated_at
		 FROM encounters
		 WHERE run_id = $1`)

	args := []interface{}{runID}
	argNum := 2

	if f.PlayerID != nil {
		fmt.Fprintf(&qb, " AND player_id = $%d", argNum)
		args = append(args, *f.PlayerID)
		argNum++
	}
	if f.RouteID != nil {
		fmt.Fprintf(&qb, " AND route_id = $%d", argNum)
		args = append(args, *f.RouteID)
		argNum++
	}
	if f.FamilyID != nil {
		fmt.Fprintf(&qb, " AND family_id = $%d", argNum)
		args = append(args, *f.FamilyID)
		argNum++
	}
	if f.Status != "" {
		fmt.Fprintf(&qb, " AND status = $%d", argNum)
		args = append(args, f.Status)
	}

	qb.WriteString(" ORDER BY seq ASC")

	rows, err := r.db.Query(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list encounters: %w", err)
	}
	defer rows.Close()

	var out []domain.Encounter
	for rows.Next() {
		var enc domain.Encounter
		if err := rows.Scan(
			&enc.ID, &enc.RunID, &enc.PlayerID, &enc.RouteID, &enc.SpeciesID, &enc.FamilyID,
			&enc.Level, &enc.Shiny, &enc.Method, &enc.RodKind, &enc.Status,
			&enc.DupesSkip, &enc.FEFinalized, &enc.PokemonKey, &enc.Fainted,
			&enc.Seq, &enc.CreatedAt, &enc.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan encounter: %w", err)
		}
		out = append(out, enc)
	}
	return out, rows.Err()
}

// ListBlockEntries implements query.Repository.
func (r *ProjectionRepository) ListBlockEntries(ctx context.Context, runID uuid.UUID) ([]domain.BlockEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT run_id, family_id, origin, seq, created_at
		 FROM blocklist WHERE run_id = $1 ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("list blocklist: %w", err)
	}
	defer rows.Close()

	var out []domain.BlockEntry
	for rows.Next() {
		var e domain.BlockEntry
		if err := rows.Scan(&e.RunID, &e.FamilyID, &e.Origin, &e.Seq, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan block entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListLinks implements query.Repository.
func (r *ProjectionRepository) ListLinks(ctx context.Context, runID uuid.UUID) ([]domain.Link, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, run_id, route_id, fainted, created_at
		 FROM links WHERE run_id = $1 ORDER BY created_at ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	var out []domain.Link
	for rows.Next() {
		var l domain.Link
		if err := rows.Scan(&l.ID, &l.RunID, &l.RouteID, &l.Fainted, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		members, err := r.listLinkMembers(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Members = members
	}
	return out, nil
}

func (r *ProjectionRepository) listLinkMembers(ctx context.Context, linkID uuid.UUID) ([]domain.LinkMember, error) {
	rows, err := r.db.Query(ctx,
		`SELECT link_id, player_id, encounter_id, pokemon_key, fainted
		 FROM link_members WHERE link_id = $1 ORDER BY encounter_id`, linkID)
	if err != nil {
		return nil, fmt.Errorf("list link members: %w", err)
	}
	defer rows.Close()

	var out []domain.LinkMember
	for rows.Next() {
		var m domain.LinkMember
		if err := rows.Scan(&m.LinkID, &m.PlayerID, &m.EncounterID, &m.PokemonKey, &m.Fainted); err != nil {
			return nil, fmt.Errorf("scan link member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
