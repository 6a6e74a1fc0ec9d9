package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soullink-tracker/server/internal/concurrency"
	"github.com/soullink-tracker/server/internal/domain"
	"github.com/soullink-tracker/server/internal/engine"
	"github.com/soullink-tracker/server/internal/eventstore"
	"github.com/soullink-tracker/server/internal/idempotency"
	"github.com/soullink-tracker/server/internal/projection"
	"github.com/soullink-tracker/server/internal/query"
	"github.com/soullink-tracker/server/internal/run"
	"github.com/soullink-tracker/server/internal/species"
)

const testSpeciesData = `{
	"families": [
		{"id": 6, "name": "pidgey"},
		{"id": 7, "name": "rattata"}
	],
	"species": [
		{"id": 16, "name": "pidgey", "family_id": 6},
		{"id": 17, "name": "pidgeotto", "family_id": 6},
		{"id": 19, "name": "rattata", "family_id": 7}
	]
}`

// apiEnv wires the memory-backed services behind the same routes the
// server mounts.
type apiEnv struct {
	t      *testing.T
	router chi.Router
	runs   run.Service
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	store := eventstore.NewMemoryStore()
	reads := projection.NewMemoryRepository()
	proj := projection.NewEngine(store, reads)

	idem, err := idempotency.NewExecutor(idempotency.NewMemoryRepository())
	require.NoError(t, err)
	registry, err := species.Parse([]byte(testSpeciesData))
	require.NoError(t, err)

	runs := run.NewService(run.NewMemoryRepository(), nil)
	engineSvc := engine.NewService(store, proj, store, idem, nil, runs, registry, concurrency.NewLockManager())
	querySvc := query.NewService(reads, runs)

	r := chi.NewRouter()
	r.Route("/api/v1/runs", func(r chi.Router) {
		r.Post("/", HandleCreateRun(runs))
		r.Get("/", HandleListRuns(runs))
		r.Route("/{runID}", func(r chi.Router) {
			r.Get("/", HandleGetRun(runs))
			r.Post("/players", HandleAddPlayer(runs))
			r.Post("/status", HandleSetRunStatus(runs))
			r.Post("/events", HandleIngest(engineSvc))
			r.Get("/events", HandleGetEvents(store, runs))
			r.Get("/routes", HandleGetRouteMatrix(querySvc))
			r.Get("/encounters", HandleGetEncounters(querySvc))
			r.Get("/blocklist", HandleGetBlocklist(querySvc))
			r.Get("/links", HandleGetLinks(querySvc))
		})
	})
	r.Post("/api/v1/admin/runs/{runID}/rebuild", HandleRebuildProjections(engineSvc))
	r.Get("/healthz", HandleHealthz())
	r.Get("/readyz", HandleReadyz(nil))
	r.Get("/version", HandleVersion())

	return &apiEnv{t: t, router: r, runs: runs}
}

func (e *apiEnv) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	e.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *apiEnv) decode(rec *httptest.ResponseRecorder, dst interface{}) {
	e.t.Helper()
	require.NoError(e.t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func (e *apiEnv) createRun(players ...string) RunResponse {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/v1/runs", CreateRunRequest{Name: "Kanto", Players: players}, nil)
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp RunResponse
	e.decode(rec, &resp)
	return resp
}

func encounterPayload(routeID, speciesID int) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"route_id":%d,"species_id":%d,"level":7,"method":"grass"}`, routeID, speciesID))
}

func (e *apiEnv) ingest(runID uuid.UUID, headers map[string]string, cmds ...IngestCommand) *httptest.ResponseRecorder {
	e.t.Helper()
	return e.do(http.MethodPost, fmt.Sprintf("/api/v1/runs/%s/events", runID), IngestRequest{Commands: cmds}, headers)
}

func TestHandleCreateRun(t *testing.T) {
	e := newAPIEnv(t)

	resp := e.createRun("alice", "bob")
	assert.Equal(t, "Kanto", resp.Run.Name)
	assert.Equal(t, domain.RunStatusActive, resp.Run.Status)
	assert.Len(t, resp.Players, 2)
}

func TestHandleCreateRun_Validation(t *testing.T) {
	e := newAPIEnv(t)

	rec := e.do(http.MethodPost, "/api/v1/runs", CreateRunRequest{Name: "Kanto"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ValidationErrorResponse
	e.decode(rec, &resp)
	assert.Contains(t, resp.Fields, "players")
}

func TestHandleGetRun(t *testing.T) {
	e := newAPIEnv(t)
	created := e.createRun("alice")

	rec := e.do(http.MethodGet, "/api/v1/runs/"+created.Run.ID.String(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp RunResponse
	e.decode(rec, &resp)
	assert.Equal(t, created.Run.ID, resp.Run.ID)
	assert.Len(t, resp.Players, 1)

	rec = e.do(http.MethodGet, "/api/v1/runs/"+uuid.NewString(), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(http.MethodGet, "/api/v1/runs/not-a-uuid", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAddPlayer(t *testing.T) {
	e := newAPIEnv(t)
	created := e.createRun("alice", "bob", "cara")

	rec := e.do(http.MethodPost, "/api/v1/runs/"+created.Run.ID.String()+"/players", AddPlayerRequest{Name: "dave"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code, "a full run rejects a fourth player")

	var resp ErrorResponse
	e.decode(rec, &resp)
	assert.Equal(t, ErrMsgRunFullError, resp.Error)
}

func TestHandleSetRunStatus(t *testing.T) {
	e := newAPIEnv(t)
	created := e.createRun("alice")
	path := "/api/v1/runs/" + created.Run.ID.String() + "/status"

	rec := e.do(http.MethodPost, path, SetStatusRequest{Status: domain.RunStatusCompleted}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated domain.Run
	e.decode(rec, &updated)
	assert.Equal(t, domain.RunStatusCompleted, updated.Status)

	rec = e.do(http.MethodPost, path, SetStatusRequest{Status: "paused"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleIngest_SingleEncounter(t *testing.T) {
	e := newAPIEnv(t)
	created := e.createRun("alice")

	rec := e.ingest(created.Run.ID, nil, IngestCommand{
		Type:     CommandTypeEncounter,
		PlayerID: created.Players[0].ID,
		Payload:  encounterPayload(101, 16),
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp IngestResponse
	e.decode(rec, &resp)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, []uint64{1}, resp.Results[0].Seqs)
	assert.NotNil(t, resp.Results[0].EncounterID)
	assert.True(t, resp.Results[0].FEFinalized)
	assert.False(t, resp.Results[0].Replayed)
}

func TestHandleIngest_BatchAppliesInOrder(t *testing.T) {
	e := newAPIEnv(t)
	created := e.createRun("alice")
	alice := created.Players[0].ID

	rec := e.ingest(created.Run.ID, nil, IngestCommand{
		Type:     CommandTypeEncounter,
		PlayerID: alice,
		Payload:  encounterPayload(101, 16),
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	var first IngestResponse
	e.decode(rec, &first)
	encID := first.Results[0].EncounterID

	catchPayload := json.RawMessage(fmt.Sprintf(`{"encounter_id":%q,"result":"caught","pokemon_key":"pk-a"}`, encID))
	faintPayload := json.RawMessage(`{"pokemon_key":"pk-a"}`)

	rec = e.ingest(created.Run.ID, nil,
		IngestCommand{Type: CommandTypeCatchResult, PlayerID: alice, Payload: catchPayload},
		IngestCommand{Type: CommandTypeFaint, PlayerID: alice, Payload: faintPayload},
	)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp IngestResponse
	e.decode(rec, &resp)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, []uint64{2, 3}, resp.Results[0].Seqs, "catch result plus derived family block")
	assert.Equal(t, []uint64{4}, resp.Results[1].Seqs)
}

func TestHandleIngest_BatchStopsAtFirstFailure(t *testing.T) {
	e := newAPIEnv(t)
	created := e.createRun("alice")
	alice := created.Players[0].ID

	badCatch := json.RawMessage(fmt.Sprintf(`{"encounter_id":%q,"result":"caught","pokemon_key":"pk"}`, uuid.New()))
	rec := e.ingest(created.Run.ID, nil,
		IngestCommand{Type: CommandTypeEncounter, PlayerID: alice, Payload: encounterPayload(101, 16)},
		IngestCommand{Type: CommandTypeCatchResult, PlayerID: alice, Payload: badCatch},
	)
	require.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	var resp IngestErrorResponse
	e.decode(rec, &resp)
	assert.Equal(t, 1, resp.Index)
	assert.Contains(t, resp.Error, "command 1:")

	// The first command still committed; the log shows exactly one event.
	var events EventsResponse
	rec = e.do(http.MethodGet, fmt.Sprintf("/api/v1/runs/%s/events", created.Run.ID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	e.decode(rec, &events)
	assert.Len(t, events.Events, 1)
}

func TestHandleIngest_IdempotencyHeader(t *testing.T) {
	e := newAPIEnv(t)
	created := e.createRun("alice")
	headers := map[string]string{HeaderIdempotencyKey: "submit-1"}

	cmd := IngestCommand{
		Type:     CommandTypeEncounter,
		PlayerID: created.Players[0].ID,
		Payload:  encounterPayload(101, 16),
	}

	rec := e.ingest(created.Run.ID, headers, cmd)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var first IngestResponse
	e.decode(rec, &first)

	rec = e.ingest(created.Run.ID, headers, cmd)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var second IngestResponse
	e.decode(rec, &second)

	assert.True(t, second.Results[0].Replayed)
	assert.Equal(t, first.Results[0].Seqs, second.Results[0].Seqs)

	// Reusing the key with a different command is a conflict.
	cmd.Payload = encounterPayload(202, 19)
	rec = e.ingest(created.Run.ID, headers, cmd)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleIngest_UnknownSpecies(t *testing.T) {
	e := newAPIEnv(t)
	created := e.createRun("alice")

	rec := e.ingest(created.Run.ID, nil, IngestCommand{
		Type:     CommandTypeEncounter,
		PlayerID: created.Players[0].ID,
		Payload:  encounterPayload(101, 999),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetEvents_CatchUp(t *testing.T) {
	e := newAPIEnv(t)
	created := e.createRun("alice")
	alice := created.Players[0].ID

	rec := e.ingest(created.Run.ID, nil, IngestCommand{
		Type: CommandTypeEncounter, PlayerID: alice, Payload: encounterPayload(101, 16),
	})
	require.Equal(t, http.StatusAccepted, rec.Code)
	var ingested IngestResponse
	e.decode(rec, &ingested)

	catchPayload := json.RawMessage(fmt.Sprintf(`{"encounter_id":%q,"result":"caught","pokemon_key":"pk-a"}`, ingested.Results[0].EncounterID))
	rec = e.ingest(created.Run.ID, nil, IngestCommand{Type: CommandTypeCatchResult, PlayerID: alice, Payload: catchPayload})
	require.Equal(t, http.StatusAccepted, rec.Code)

	base := fmt.Sprintf("/api/v1/runs/%s/events", created.Run.ID)

	rec = e.do(http.MethodGet, base, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp EventsResponse
	e.decode(rec, &resp)
	require.Len(t, resp.Events, 3)
	assert.Equal(t, uint64(3), resp.LastSeq)

	rec = e.do(http.MethodGet, base+"?since_seq=1&limit=1", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = EventsResponse{}
	e.decode(rec, &resp)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, uint64(2), resp.Events[0].Seq)
	assert.Equal(t, uint64(2), resp.LastSeq)

	rec = e.do(http.MethodGet, base+"?since_seq=abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodGet, fmt.Sprintf("/api/v1/runs/%s/events", uuid.New()), nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestQueryEndpoints(t *testing.T) {
	e := newAPIEnv(t)
	created := e.createRun("alice", "bob")
	alice, bob := created.Players[0].ID, created.Players[1].ID
	runID := created.Run.ID

	// Build a linked route.
	rec := e.ingest(runID, nil, IngestCommand{Type: CommandTypeEncounter, PlayerID: alice, Payload: encounterPayload(101, 16)})
	require.Equal(t, http.StatusAccepted, rec.Code)
	var ing IngestResponse
	e.decode(rec, &ing)
	rec = e.ingest(runID, nil, IngestCommand{
		Type: CommandTypeCatchResult, PlayerID: alice,
		Payload: json.RawMessage(fmt.Sprintf(`{"encounter_id":%q,"result":"caught","pokemon_key":"pk-a"}`, ing.Results[0].EncounterID)),
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = e.ingest(runID, nil, IngestCommand{Type: CommandTypeEncounter, PlayerID: bob, Payload: encounterPayload(101, 19)})
	require.Equal(t, http.StatusAccepted, rec.Code)
	e.decode(rec, &ing)
	rec = e.ingest(runID, nil, IngestCommand{
		Type: CommandTypeCatchResult, PlayerID: bob,
		Payload: json.RawMessage(fmt.Sprintf(`{"encounter_id":%q,"result":"caught","pokemon_key":"pk-b"}`, ing.Results[0].EncounterID)),
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	t.Run("routes", func(t *testing.T) {
		rec := e.do(http.MethodGet, fmt.Sprintf("/api/v1/runs/%s/routes", runID), nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp RouteMatrixResponse
		e.decode(rec, &resp)
		require.Len(t, resp.Routes, 1)
		assert.True(t, resp.Routes[0].Linked)
		assert.Len(t, resp.Routes[0].Cells, 2)
	})

	t.Run("encounters filtered", func(t *testing.T) {
		rec := e.do(http.MethodGet, fmt.Sprintf("/api/v1/runs/%s/encounters?player_id=%s", runID, alice), nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp EncountersResponse
		e.decode(rec, &resp)
		require.Len(t, resp.Encounters, 1)
		assert.Equal(t, alice, resp.Encounters[0].PlayerID)

		rec = e.do(http.MethodGet, fmt.Sprintf("/api/v1/runs/%s/encounters?player_id=nope", runID), nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = e.do(http.MethodGet, fmt.Sprintf("/api/v1/runs/%s/encounters?status=hiding", runID), nil, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("blocklist", func(t *testing.T) {
		rec := e.do(http.MethodGet, fmt.Sprintf("/api/v1/runs/%s/blocklist", runID), nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp BlocklistResponse
		e.decode(rec, &resp)
		assert.Len(t, resp.Blocked, 2)
	})

	t.Run("links", func(t *testing.T) {
		rec := e.do(http.MethodGet, fmt.Sprintf("/api/v1/runs/%s/links", runID), nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp LinksResponse
		e.decode(rec, &resp)
		require.Len(t, resp.Links, 1)
		assert.Len(t, resp.Links[0].Members, 2)
	})

	t.Run("empty lists are arrays", func(t *testing.T) {
		fresh := e.createRun("solo")
		rec := e.do(http.MethodGet, fmt.Sprintf("/api/v1/runs/%s/blocklist", fresh.Run.ID), nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"blocked":[]`)
	})
}

func TestHandleRebuildProjections(t *testing.T) {
	e := newAPIEnv(t)
	created := e.createRun("alice")

	rec := e.ingest(created.Run.ID, nil, IngestCommand{
		Type: CommandTypeEncounter, PlayerID: created.Players[0].ID, Payload: encounterPayload(101, 16),
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = e.do(http.MethodPost, fmt.Sprintf("/api/v1/admin/runs/%s/rebuild", created.Run.ID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RebuildResponse
	e.decode(rec, &resp)
	assert.Equal(t, MsgRebuildSuccess, resp.Message)
	assert.Equal(t, 1, resp.EventsReplayed)
}

func TestHealthEndpoints(t *testing.T) {
	e := newAPIEnv(t)

	rec := e.do(http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(http.MethodGet, "/readyz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code, "nil pinger skips the database check")

	rec = e.do(http.MethodGet, "/version", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "version")
}
