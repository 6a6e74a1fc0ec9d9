package handler

import (
	"net/http"

	"github.com/soullink-tracker/server/internal/domain"
	"github.com/soullink-tracker/server/internal/eventstore"
	"github.com/soullink-tracker/server/internal/run"
)

type EventsResponse struct {
	Events []domain.Event `json:"events"`
	// LastSeq is the sequence of the final event in this page; pass it
	// back as since_seq to continue.
	LastSeq uint64 `json:"last_seq"`
}

// HandleGetEvents serves the catch-up query: events with seq > since_seq
// in log order, up to limit.
func HandleGetEvents(store eventstore.Store, runs run.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID, ok := RunIDFromRequest(r, w)
		if !ok {
			return
		}

		if _, err := runs.GetRun(r.Context(), runID); err != nil {
			respondServiceError(w, "get run", err)
			return
		}

		sinceSeq, ok := UintQueryParam(r, w, "since_seq", ErrMsgInvalidSinceSeq, 0)
		if !ok {
			return
		}
		limit, ok := UintQueryParam(r, w, "limit", ErrMsgInvalidLimit, 0)
		if !ok {
			return
		}
		if limit > eventstore.DefaultReadLimit {
			limit = eventstore.DefaultReadLimit
		}

		events, err := store.Read(r.Context(), runID, sinceSeq, int(limit))
		if err != nil {
			respondServiceError(w, "read events", err)
			return
		}

		resp := EventsResponse{Events: events, LastSeq: sinceSeq}
		if len(events) > 0 {
			resp.LastSeq = events[len(events)-1].Seq
		}
		if resp.Events == nil {
			resp.Events = []domain.Event{}
		}
		respondJSON(w, http.StatusOK, resp)
	}
}
