// Package idempotency makes command submission safe to retry. Each
// submission carries a client-chosen key; the first execution under a key
// stores its outcome and every later submission with the same key and an
// identical body replays that outcome instead of executing again.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/google/uuid"

	"github.com/soullink-tracker/server/internal/domain"
)

const (
	// DefaultTTL is how long a completed record shadows its key.
	DefaultTTL = 24 * time.Hour

	cacheSize = 4096
)

// Record is the stored outcome of one executed command.
type Record struct {
	RunID       uuid.UUID
	Key         string
	Fingerprint string
	Response    json.RawMessage
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Repository persists idempotency records.
type Repository interface {
	// Get returns the record for (runID, key), or domain.ErrNotFound
	// semantics via a nil record and nil error when absent.
	Get(ctx context.Context, runID uuid.UUID, key string) (*Record, error)
	// Put stores a record. The (runID, key) pair is unique; a concurrent
	// insert of the same pair may surface as a conflict error.
	Put(ctx context.Context, rec Record) error
	// DeleteExpired removes records whose ExpiresAt is before now and
	// returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Fingerprint hashes a canonical command body. Clients reusing a key with
// a different body get rejected rather than silently deduplicated.
func Fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Executor wraps command execution with key-based deduplication. A small
// in-process cache absorbs tight retry loops without a repository round
// trip.
type Executor struct {
	repo  Repository
	cache *lru.Cache[string, *Record]
	ttl   time.Duration
	now   func() time.Time
}

// NewExecutor creates an executor over the given repository.
func NewExecutor(repo Repository) (*Executor, error) {
	cache, err := lru.New[string, *Record](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create idempotency cache: %w", err)
	}
	return &Executor{
		repo:  repo,
		cache: cache,
		ttl:   DefaultTTL,
		now:   time.Now,
	}, nil
}

func cacheKey(runID uuid.UUID, key string) string {
	return runID.String() + "/" + key
}

// Do executes fn at most once per (runID, key). Replays return the stored
// response with replayed=true. A key reuse with a different fingerprint
// returns domain.ErrIdempotencyConflict. An empty key disables
// deduplication and always executes.
func (e *Executor) Do(ctx context.Context, runID uuid.UUID, key, fingerprint string, fn func(ctx context.Context) (json.RawMessage, error)) (json.RawMessage, bool, error) {
	if key == "" {
		resp, err := fn(ctx)
		return resp, false, err
	}

	if rec, ok := e.lookup(ctx, runID, key); ok {
		if rec.Fingerprint != fingerprint {
			return nil, false, fmt.Errorf("%w: key %q", domain.ErrIdempotencyConflict, key)
		}
		return rec.Response, true, nil
	}

	resp, err := fn(ctx)
	if err != nil {
		// Failed executions are not recorded; the client may retry them.
		return nil, false, err
	}

	now := e.now()
	rec := Record{
		RunID:       runID,
		Key:         key,
		Fingerprint: fingerprint,
		Response:    resp,
		CreatedAt:   now,
		ExpiresAt:   now.Add(e.ttl),
	}
	if err := e.repo.Put(ctx, rec); err != nil {
		return nil, false, fmt.Errorf("store idempotency record: %w", err)
	}
	e.cache.Add(cacheKey(runID, key), &rec)
	return resp, false, nil
}

func (e *Executor) lookup(ctx context.Context, runID uuid.UUID, key string) (*Record, bool) {
	ck := cacheKey(runID, key)
	if rec, ok := e.cache.Get(ck); ok {
		if e.now().Before(rec.ExpiresAt) {
			return rec, true
		}
		e.cache.Remove(ck)
	}

	rec, err := e.repo.Get(ctx, runID, key)
	if err != nil || rec == nil {
		return nil, false
	}
	if !e.now().Before(rec.ExpiresAt) {
		return nil, false
	}
	e.cache.Add(ck, rec)
	return rec, true
}

// GC removes expired records. It is run periodically by the worker pool.
func (e *Executor) GC(ctx context.Context) (int64, error) {
	return e.repo.DeleteExpired(ctx, e.now())
}
