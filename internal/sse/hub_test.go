package sse

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soullink-tracker/server/internal/domain"
	"github.com/soullink-tracker/server/internal/eventstore"
)

func waitForRoom(t *testing.T, hub *Hub, runID uuid.UUID, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return hub.RoomCount(runID) == want
	}, time.Second, 5*time.Millisecond)
}

func TestHub_BroadcastReachesOnlyRoom(t *testing.T) {
	hub := NewHub()
	hub.Start()
	defer hub.Stop()

	runA := uuid.New()
	runB := uuid.New()

	clientA := hub.Register(runA)
	clientB := hub.Register(runB)
	waitForRoom(t, hub, runA, 1)
	waitForRoom(t, hub, runB, 1)

	hub.Broadcast(runA, StreamEvent{Type: "encounter.recorded", Seq: 1})

	select {
	case ev := <-clientA.EventChannel:
		assert.Equal(t, uint64(1), ev.Seq)
	case <-time.After(time.Second):
		t.Fatal("room A client did not receive event")
	}

	select {
	case ev := <-clientB.EventChannel:
		t.Fatalf("room B client received foreign event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_DeliveryOrderMatchesBroadcastOrder(t *testing.T) {
	hub := NewHub()
	hub.Start()
	defer hub.Stop()

	runID := uuid.New()
	client := hub.Register(runID)
	waitForRoom(t, hub, runID, 1)

	for seq := uint64(1); seq <= 10; seq++ {
		hub.Broadcast(runID, StreamEvent{Type: "encounter.recorded", Seq: seq})
	}

	for seq := uint64(1); seq <= 10; seq++ {
		select {
		case ev := <-client.EventChannel:
			assert.Equal(t, seq, ev.Seq)
		case <-time.After(time.Second):
			t.Fatalf("missing event seq %d", seq)
		}
	}
}

func TestHub_LaggingClientDisconnected(t *testing.T) {
	hub := NewHub()
	hub.Start()
	defer hub.Stop()

	runID := uuid.New()
	client := hub.Register(runID)
	waitForRoom(t, hub, runID, 1)

	// Never drain the client; overflow its buffer.
	for seq := uint64(1); seq <= ClientEventBuffer+10; seq++ {
		hub.Broadcast(runID, StreamEvent{Type: "encounter.recorded", Seq: seq})
	}

	waitForRoom(t, hub, runID, 0)

	// The channel is closed rather than left with a gap.
	drained := 0
	for range client.EventChannel {
		drained++
	}
	assert.LessOrEqual(t, drained, ClientEventBuffer)
}

func TestHub_UnregisterRemovesClient(t *testing.T) {
	hub := NewHub()
	hub.Start()
	defer hub.Stop()

	runID := uuid.New()
	client := hub.Register(runID)
	waitForRoom(t, hub, runID, 1)

	hub.Unregister(client)
	waitForRoom(t, hub, runID, 0)
	assert.Equal(t, 0, hub.ClientCount())
}

type stubRunChecker struct{ exists bool }

func (s stubRunChecker) RunExists(context.Context, uuid.UUID) (bool, error) {
	return s.exists, nil
}

func TestHandler_CatchUpSinceSeq(t *testing.T) {
	hub := NewHub()
	hub.Start()
	defer hub.Stop()

	store := eventstore.NewMemoryStore()
	runID := uuid.New()
	playerID := uuid.New()

	var events []domain.Event
	for i := 0; i < 5; i++ {
		ev, err := domain.NewEvent(runID, playerID, domain.EventEncounterRecorded, domain.EncounterRecordedPayload{
			EncounterID: uuid.New(),
			RouteID:     i + 1,
			SpeciesID:   100 + i,
			FamilyID:    50 + i,
			Level:       5,
			Method:      domain.MethodGrass,
		})
		require.NoError(t, err)
		events = append(events, ev)
	}
	_, err := store.Append(context.Background(), runID, events)
	require.NoError(t, err)

	handler := Handler(hub, store, stubRunChecker{exists: true})

	rec := httptest.NewRecorder()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest("GET", "/api/v1/runs/x/stream?since_seq=2", nil).WithContext(ctx)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("runID", runID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	handler(rec, req)

	body := rec.Body.String()
	assert.Contains(t, body, "event: connected")
	assert.NotContains(t, body, "id: 1\n")
	assert.NotContains(t, body, "id: 2\n")
	for _, id := range []string{"id: 3\n", "id: 4\n", "id: 5\n"} {
		assert.Contains(t, body, id)
	}
	assert.True(t, strings.Index(body, "id: 3\n") < strings.Index(body, "id: 4\n"))
	assert.True(t, strings.Index(body, "id: 4\n") < strings.Index(body, "id: 5\n"))
}

func TestWriteEvent_MarshalFailureClosesStream(t *testing.T) {
	rec := httptest.NewRecorder()

	ok := writeEvent(rec, rec, StreamEvent{Type: "encounter.recorded", Payload: func() {}})
	assert.False(t, ok, "an unmarshalable frame drops the client instead of skipping an event")
	assert.Empty(t, rec.Body.String())

	ok = writeEvent(rec, rec, FromLogEvent(domain.Event{
		Type:    domain.EventEncounterRecorded,
		Seq:     3,
		Payload: []byte(`{}`),
	}))
	assert.True(t, ok)
	assert.Contains(t, rec.Body.String(), "id: 3\n")
}

func TestHandler_UnknownRun(t *testing.T) {
	hub := NewHub()
	hub.Start()
	defer hub.Stop()

	store := eventstore.NewMemoryStore()
	handler := Handler(hub, store, stubRunChecker{exists: false})

	runID := uuid.New()
	req := httptest.NewRequest("GET", "/api/v1/runs/x/stream", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("runID", runID.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	handler(rec, req)

	assert.Equal(t, 404, rec.Code)
}
