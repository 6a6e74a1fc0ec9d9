package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soullink-tracker/server/internal/idempotency"
)

// IdempotencyRepository implements idempotency.Repository over the
// idempotency_keys table.
type IdempotencyRepository struct {
	db *pgxpool.Pool
}

// NewIdempotencyRepository creates a new PostgreSQL idempotency repository
func NewIdempotencyRepository(db *pgxpool.Pool) *IdempotencyRepository {
	return &IdempotencyRepository{db: db}
}

// Get returns the stored record, or nil when the key has never been seen.
func (r *IdempotencyRepository) Get(ctx context.Context, runID uuid.UUID, key string) (*idempotency.Record, error) {
	var rec idempotency.Record
	err := r.db.QueryRow(ctx,
		`SELECT run_id, key, fingerprint, response, created_at, expires_at
		 FROM idempotency_keys
		 WHERE run_id = $1 AND key = $2`,
		runID, key,
	).Scan(&rec.RunID, &rec.Key, &rec.Fingerprint, &rec.Response, &rec.CreatedAt, &rec.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get idempotency record: %w", err)
	}
	return &rec, nil
}

// Put stores a record, overwriting any expired entry for the same key.
func (r *IdempotencyRepository) Put(ctx context.Context, rec idempotency.Record) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO idempotency_keys (run_id, key, fingerprint, response, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (run_id, key) DO UPDATE SET
			fingerprint = EXCLUDED.fingerprint,
			response = EXCLUDED.response,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at`,
		rec.RunID, rec.Key, rec.Fingerprint, rec.Response, rec.CreatedAt, rec.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("put idempotency record: %w", err)
	}
	return nil
}

// DeleteExpired removes records whose TTL elapsed before now.
func (r *IdempotencyRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired idempotency records: %w", err)
	}
	return tag.RowsAffected(), nil
}
