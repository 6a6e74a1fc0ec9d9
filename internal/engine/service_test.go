package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soullink-tracker/server/internal/concurrency"
	"github.com/soullink-tracker/server/internal/domain"
	"github.com/soullink-tracker/server/internal/eventstore"
	"github.com/soullink-tracker/server/internal/idempotency"
	"github.com/soullink-tracker/server/internal/projection"
	"github.com/soullink-tracker/server/internal/run"
	"github.com/soullink-tracker/server/internal/species"
)

const testSpeciesData = `{
	"families": [
		{"id": 6, "name": "pidgey"},
		{"id": 7, "name": "rattata"},
		{"id": 8, "name": "spearow"}
	],
	"species": [
		{"id": 16, "name": "pidgey", "family_id": 6},
		{"id": 17, "name": "pidgeotto", "family_id": 6},
		{"id": 19, "name": "rattata", "family_id": 7},
		{"id": 21, "name": "spearow", "family_id": 8}
	]
}`

type testEnv struct {
	t       *testing.T
	ctx     context.Context
	svc     Service
	runs    run.Service
	store   eventstore.Store
	reads   *projection.MemoryRepository
	runID   uuid.UUID
	players []domain.Player
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := eventstore.NewMemoryStore()
	reads := projection.NewMemoryRepository()
	proj := projection.NewEngine(store, reads)

	idem, err := idempotency.NewExecutor(idempotency.NewMemoryRepository())
	require.NoError(t, err)

	registry, err := species.Parse([]byte(testSpeciesData))
	require.NoError(t, err)

	runs := run.NewService(run.NewMemoryRepository(), nil)
	svc := NewService(store, proj, store, idem, nil, runs, registry, concurrency.NewLockManager())

	ctx := context.Background()
	r, players, err := runs.CreateRun(ctx, "Kanto Duo", []string{"alice", "bob"})
	require.NoError(t, err)

	return &testEnv{
		t:       t,
		ctx:     ctx,
		svc:     svc,
		runs:    runs,
		store:   store,
		reads:   reads,
		runID:   r.ID,
		players: players,
	}
}

func (e *testEnv) encounterCmd(player int, routeID, speciesID int) domain.EncounterCommand {
	return domain.EncounterCommand{
		RunID:     e.runID,
		PlayerID:  e.players[player].ID,
		RouteID:   routeID,
		SpeciesID: speciesID,
		Level:     7,
		Method:    domain.MethodGrass,
	}
}

func (e *testEnv) mustEncounter(player int, routeID, speciesID int) *domain.CommandResult {
	e.t.Helper()
	res, replayed, err := e.svc.RecordEncounter(e.ctx, "", e.encounterCmd(player, routeID, speciesID))
	require.NoError(e.t, err)
	require.False(e.t, replayed)
	require.NotNil(e.t, res.EncounterID)
	return res
}

func (e *testEnv) mustCatch(player int, encounterID uuid.UUID, result, key string) *domain.CommandResult {
	e.t.Helper()
	res, _, err := e.svc.RecordCatchResult(e.ctx, "", domain.CatchResultCommand{
		RunID:       e.runID,
		PlayerID:    e.players[player].ID,
		EncounterID: encounterID,
		Result:      result,
		PokemonKey:  key,
	})
	require.NoError(e.t, err)
	return res
}

func TestService_EncounterToLinkPipeline(t *testing.T) {
	e := newTestEnv(t)

	// Alice records and catches on route 101.
	enc := e.mustEncounter(0, 101, 16)
	assert.Equal(t, []uint64{1}, enc.Seqs)
	assert.True(t, enc.FEFinalized)

	res := e.mustCatch(0, *enc.EncounterID, domain.EncounterStatusCaught, "pk-a")
	// catch result plus the derived family block.
	assert.Equal(t, []uint64{2, 3}, res.Seqs)

	// Bob catches on the same route; the bond forms.
	bobEnc := e.mustEncounter(1, 101, 19)
	bobRes := e.mustCatch(1, *bobEnc.EncounterID, domain.EncounterStatusCaught, "pk-b")
	assert.Equal(t, []uint64{5, 6, 7}, bobRes.Seqs)

	links, err := e.reads.ListLinks(e.ctx, e.runID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Len(t, links[0].Members, 2)

	// Alice's creature faints; the link goes down with it.
	_, _, err = e.svc.RecordFaint(e.ctx, "", domain.FaintCommand{
		RunID:      e.runID,
		PlayerID:   e.players[0].ID,
		PokemonKey: "pk-a",
	})
	require.NoError(t, err)

	links, err = e.reads.ListLinks(e.ctx, e.runID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.True(t, links[0].Fainted)

	last, err := e.store.LastSeq(e.ctx, e.runID)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), last, "the log stays gapless through derived events")
}

func TestService_IdempotentRetryAppendsOnce(t *testing.T) {
	e := newTestEnv(t)
	cmd := e.encounterCmd(0, 101, 16)

	first, replayed, err := e.svc.RecordEncounter(e.ctx, "client-key-1", cmd)
	require.NoError(t, err)
	assert.False(t, replayed)

	again, replayed, err := e.svc.RecordEncounter(e.ctx, "client-key-1", cmd)
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.Seqs, again.Seqs)
	assert.Equal(t, first.EncounterID, again.EncounterID)

	last, err := e.store.LastSeq(e.ctx, e.runID)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), last, "the retry must not append a second event")
}

// flakyReadModels fails a configured number of encounter upserts before
// recovering, standing in for a transient storage outage mid-commit.
type flakyReadModels struct {
	*projection.MemoryRepository
	failures int
}

func (r *flakyReadModels) UpsertEncounter(ctx context.Context, enc domain.Encounter) error {
	if r.failures > 0 {
		r.failures--
		return errors.New("storage unavailable")
	}
	return r.MemoryRepository.UpsertEncounter(ctx, enc)
}

func TestService_ProjectionFailureRollsBackAppend(t *testing.T) {
	store := eventstore.NewMemoryStore()
	reads := &flakyReadModels{MemoryRepository: projection.NewMemoryRepository(), failures: 1}
	proj := projection.NewEngine(store, reads)

	idem, err := idempotency.NewExecutor(idempotency.NewMemoryRepository())
	require.NoError(t, err)
	registry, err := species.Parse([]byte(testSpeciesData))
	require.NoError(t, err)

	runs := run.NewService(run.NewMemoryRepository(), nil)
	svc := NewService(store, proj, store, idem, nil, runs, registry, concurrency.NewLockManager())

	ctx := context.Background()
	r, players, err := runs.CreateRun(ctx, "Kanto Duo", []string{"alice", "bob"})
	require.NoError(t, err)

	cmd := domain.EncounterCommand{
		RunID:     r.ID,
		PlayerID:  players[0].ID,
		RouteID:   101,
		SpeciesID: 16,
		Level:     7,
		Method:    domain.MethodGrass,
	}

	_, _, err = svc.RecordEncounter(ctx, "retry-key", cmd)
	require.Error(t, err)

	// The failed commit leaves no trace: nothing appended, nothing
	// projected, no cached state ahead of the log.
	last, err := store.LastSeq(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), last)
	encs, err := reads.ListEncounters(ctx, r.ID, domain.EncounterFilter{})
	require.NoError(t, err)
	assert.Empty(t, encs)

	// The same idempotency key retries cleanly once storage recovers.
	res, replayed, err := svc.RecordEncounter(ctx, "retry-key", cmd)
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, []uint64{1}, res.Seqs)
	assert.True(t, res.FEFinalized)
}

func TestService_IdempotencyKeyReuseConflicts(t *testing.T) {
	e := newTestEnv(t)

	_, _, err := e.svc.RecordEncounter(e.ctx, "client-key-1", e.encounterCmd(0, 101, 16))
	require.NoError(t, err)

	_, _, err = e.svc.RecordEncounter(e.ctx, "client-key-1", e.encounterCmd(1, 202, 19))
	assert.ErrorIs(t, err, domain.ErrIdempotencyConflict)
}

func TestService_RejectsUnknownSpecies(t *testing.T) {
	e := newTestEnv(t)

	_, _, err := e.svc.RecordEncounter(e.ctx, "", e.encounterCmd(0, 101, 999))
	assert.ErrorIs(t, err, domain.ErrSpeciesNotFound)
}

func TestService_RejectsUnknownRunAndPlayer(t *testing.T) {
	e := newTestEnv(t)

	cmd := e.encounterCmd(0, 101, 16)
	cmd.RunID = uuid.New()
	_, _, err := e.svc.RecordEncounter(e.ctx, "", cmd)
	assert.ErrorIs(t, err, domain.ErrRunNotFound)

	cmd = e.encounterCmd(0, 101, 16)
	cmd.PlayerID = uuid.New()
	_, _, err = e.svc.RecordEncounter(e.ctx, "", cmd)
	assert.ErrorIs(t, err, domain.ErrPlayerNotFound)
}

func TestService_RejectsInactiveRun(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.runs.SetStatus(e.ctx, e.runID, domain.RunStatusCompleted)
	require.NoError(t, err)

	_, _, err = e.svc.RecordEncounter(e.ctx, "", e.encounterCmd(0, 101, 16))
	assert.ErrorIs(t, err, domain.ErrRunNotActive)
}

func TestService_RejectsInvalidCommand(t *testing.T) {
	e := newTestEnv(t)

	cmd := e.encounterCmd(0, 101, 16)
	cmd.Method = "headbutt"
	_, _, err := e.svc.RecordEncounter(e.ctx, "", cmd)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestService_FamilyBlockedSurfacesToCaller(t *testing.T) {
	e := newTestEnv(t)

	enc := e.mustEncounter(0, 101, 16)
	e.mustCatch(0, *enc.EncounterID, domain.EncounterStatusCaught, "pk-a")

	// Pidgeotto shares pidgey's family; the catch above exhausted it.
	dupe := e.mustEncounter(1, 202, 17)
	assert.True(t, dupe.DupesSkip)

	_, _, err := e.svc.RecordCatchResult(e.ctx, "", domain.CatchResultCommand{
		RunID:       e.runID,
		PlayerID:    e.players[1].ID,
		EncounterID: *dupe.EncounterID,
		Result:      domain.EncounterStatusCaught,
		PokemonKey:  "pk-dupe",
	})
	assert.ErrorIs(t, err, domain.ErrFamilyBlocked)
}

func TestService_RebuildMatchesLiveReadModels(t *testing.T) {
	e := newTestEnv(t)

	enc := e.mustEncounter(0, 101, 16)
	e.mustCatch(0, *enc.EncounterID, domain.EncounterStatusCaught, "pk-a")
	bobEnc := e.mustEncounter(1, 101, 19)
	e.mustCatch(1, *bobEnc.EncounterID, domain.EncounterStatusCaught, "pk-b")

	before, err := e.reads.ListEncounters(e.ctx, e.runID, domain.EncounterFilter{})
	require.NoError(t, err)

	count, err := e.svc.Rebuild(e.ctx, e.runID)
	require.NoError(t, err)
	last, err := e.store.LastSeq(e.ctx, e.runID)
	require.NoError(t, err)
	assert.Equal(t, int(last), count)

	after, err := e.reads.ListEncounters(e.ctx, e.runID, domain.EncounterFilter{})
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestService_RebuildAllowedOnFinishedRun(t *testing.T) {
	e := newTestEnv(t)

	e.mustEncounter(0, 101, 16)
	_, err := e.runs.SetStatus(e.ctx, e.runID, domain.RunStatusFailed)
	require.NoError(t, err)

	count, err := e.svc.Rebuild(e.ctx, e.runID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
