package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soullink-tracker/server/internal/domain"
)

func countingFn(calls *int, resp string) func(ctx context.Context) (json.RawMessage, error) {
	return func(ctx context.Context) (json.RawMessage, error) {
		*calls++
		return json.RawMessage(resp), nil
	}
}

func TestExecutor_FirstExecutionRuns(t *testing.T) {
	exec, err := NewExecutor(NewMemoryRepository())
	require.NoError(t, err)
	runID := uuid.New()

	calls := 0
	resp, replayed, err := exec.Do(context.Background(), runID, "key-1", Fingerprint([]byte(`{"a":1}`)), countingFn(&calls, `{"seqs":[1]}`))

	require.NoError(t, err)
	assert.False(t, replayed)
	assert.JSONEq(t, `{"seqs":[1]}`, string(resp))
	assert.Equal(t, 1, calls)
}

func TestExecutor_ReplaySkipsExecution(t *testing.T) {
	exec, err := NewExecutor(NewMemoryRepository())
	require.NoError(t, err)
	runID := uuid.New()
	fp := Fingerprint([]byte(`{"a":1}`))
	ctx := context.Background()

	calls := 0
	_, _, err = exec.Do(ctx, runID, "key-1", fp, countingFn(&calls, `{"seqs":[1]}`))
	require.NoError(t, err)

	resp, replayed, err := exec.Do(ctx, runID, "key-1", fp, countingFn(&calls, `{"seqs":[99]}`))
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.JSONEq(t, `{"seqs":[1]}`, string(resp), "the stored response is returned, not a fresh one")
	assert.Equal(t, 1, calls)
}

func TestExecutor_ReplaySurvivesColdCache(t *testing.T) {
	repo := NewMemoryRepository()
	exec, err := NewExecutor(repo)
	require.NoError(t, err)
	runID := uuid.New()
	fp := Fingerprint([]byte(`{"a":1}`))
	ctx := context.Background()

	calls := 0
	_, _, err = exec.Do(ctx, runID, "key-1", fp, countingFn(&calls, `{"seqs":[1]}`))
	require.NoError(t, err)

	// A second executor shares only the repository, as after a restart.
	restarted, err := NewExecutor(repo)
	require.NoError(t, err)

	resp, replayed, err := restarted.Do(ctx, runID, "key-1", fp, countingFn(&calls, `{"seqs":[99]}`))
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.JSONEq(t, `{"seqs":[1]}`, string(resp))
	assert.Equal(t, 1, calls)
}

func TestExecutor_FingerprintMismatchConflicts(t *testing.T) {
	exec, err := NewExecutor(NewMemoryRepository())
	require.NoError(t, err)
	runID := uuid.New()
	ctx := context.Background()

	calls := 0
	_, _, err = exec.Do(ctx, runID, "key-1", Fingerprint([]byte(`{"a":1}`)), countingFn(&calls, `{}`))
	require.NoError(t, err)

	_, _, err = exec.Do(ctx, runID, "key-1", Fingerprint([]byte(`{"a":2}`)), countingFn(&calls, `{}`))
	assert.ErrorIs(t, err, domain.ErrIdempotencyConflict)
	assert.Equal(t, 1, calls)
}

func TestExecutor_FailedExecutionIsNotRecorded(t *testing.T) {
	exec, err := NewExecutor(NewMemoryRepository())
	require.NoError(t, err)
	runID := uuid.New()
	fp := Fingerprint([]byte(`{"a":1}`))
	ctx := context.Background()

	boom := errors.New("append failed")
	_, _, err = exec.Do(ctx, runID, "key-1", fp, func(ctx context.Context) (json.RawMessage, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	// The retry executes for real.
	calls := 0
	_, replayed, err := exec.Do(ctx, runID, "key-1", fp, countingFn(&calls, `{}`))
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, 1, calls)
}

func TestExecutor_EmptyKeyAlwaysExecutes(t *testing.T) {
	exec, err := NewExecutor(NewMemoryRepository())
	require.NoError(t, err)
	runID := uuid.New()
	ctx := context.Background()

	calls := 0
	for range 3 {
		_, replayed, err := exec.Do(ctx, runID, "", "fp", countingFn(&calls, `{}`))
		require.NoError(t, err)
		assert.False(t, replayed)
	}
	assert.Equal(t, 3, calls)
}

func TestExecutor_KeysAreScopedPerRun(t *testing.T) {
	exec, err := NewExecutor(NewMemoryRepository())
	require.NoError(t, err)
	ctx := context.Background()
	fp := Fingerprint([]byte(`{"a":1}`))

	calls := 0
	_, _, err = exec.Do(ctx, uuid.New(), "key-1", fp, countingFn(&calls, `{}`))
	require.NoError(t, err)
	_, replayed, err := exec.Do(ctx, uuid.New(), "key-1", fp, countingFn(&calls, `{}`))
	require.NoError(t, err)

	assert.False(t, replayed)
	assert.Equal(t, 2, calls)
}

func TestExecutor_ExpiredRecordExecutesAgain(t *testing.T) {
	repo := NewMemoryRepository()
	exec, err := NewExecutor(repo)
	require.NoError(t, err)
	runID := uuid.New()
	fp := Fingerprint([]byte(`{"a":1}`))
	ctx := context.Background()

	// Seed a record whose TTL elapsed long ago.
	require.NoError(t, repo.Put(ctx, Record{
		RunID:       runID,
		Key:         "key-1",
		Fingerprint: fp,
		Response:    json.RawMessage(`{"seqs":[1]}`),
		CreatedAt:   time.Now().Add(-2 * DefaultTTL),
		ExpiresAt:   time.Now().Add(-DefaultTTL),
	}))

	calls := 0
	_, replayed, err := exec.Do(ctx, runID, "key-1", fp, countingFn(&calls, `{"seqs":[2]}`))
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, 1, calls)
}

func TestExecutor_GCRemovesOnlyExpired(t *testing.T) {
	repo := NewMemoryRepository()
	exec, err := NewExecutor(repo)
	require.NoError(t, err)
	runID := uuid.New()
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, Record{
		RunID: runID, Key: "stale", Fingerprint: "fp",
		CreatedAt: time.Now().Add(-2 * DefaultTTL),
		ExpiresAt: time.Now().Add(-DefaultTTL),
	}))
	require.NoError(t, repo.Put(ctx, Record{
		RunID: runID, Key: "fresh", Fingerprint: "fp",
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(DefaultTTL),
	}))

	removed, err := exec.GC(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	rec, err := repo.Get(ctx, runID, "fresh")
	require.NoError(t, err)
	assert.NotNil(t, rec)
}

func TestFingerprint_IsStable(t *testing.T) {
	assert.Equal(t, Fingerprint([]byte(`{"a":1}`)), Fingerprint([]byte(`{"a":1}`)))
	assert.NotEqual(t, Fingerprint([]byte(`{"a":1}`)), Fingerprint([]byte(`{"a":2}`)))
	assert.Len(t, Fingerprint(nil), 64)
}
