package handler

import (
	"net/http"

	"github.com/soullink-tracker/server/internal/engine"
	"github.com/soullink-tracker/server/internal/logger"
)

type RebuildResponse struct {
	Message        string `json:"message"`
	EventsReplayed int    `json:"events_replayed"`
}

// HandleRebuildProjections drops and replays a run's projections from the
// event log.
func HandleRebuildProjections(svc engine.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		runID, ok := RunIDFromRequest(r, w)
		if !ok {
			return
		}

		replayed, err := svc.Rebuild(r.Context(), runID)
		if err != nil {
			respondServiceError(w, "rebuild projections", err)
			return
		}

		log.Info("Projections rebuilt", "run_id", runID, "events_replayed", replayed)
		respondJSON(w, http.StatusOK, RebuildResponse{
			Message:        MsgRebuildSuccess,
			EventsReplayed: replayed,
		})
	}
}
