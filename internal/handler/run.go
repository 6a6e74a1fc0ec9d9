package handler

import (
	"net/http"

	"github.com/soullink-tracker/server/internal/domain"
	"github.com/soullink-tracker/server/internal/logger"
	"github.com/soullink-tracker/server/internal/run"
)

type CreateRunRequest struct {
	Name    string   `json:"name" validate:"required,max=64"`
	Players []string `json:"players" validate:"required,min=1,max=3,dive,required,max=64"`
}

type RunResponse struct {
	Run     *domain.Run     `json:"run"`
	Players []domain.Player `json:"players"`
}

// HandleCreateRun creates a run together with its initial players.
func HandleCreateRun(svc run.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		var req CreateRunRequest
		if err := DecodeAndValidateRequest(r, w, &req, "Create run"); err != nil {
			return
		}

		created, players, err := svc.CreateRun(r.Context(), req.Name, req.Players)
		if err != nil {
			respondServiceError(w, "create run", err)
			return
		}

		log.Info("Run created", "run_id", created.ID, "name", created.Name, "players", len(players))
		respondJSON(w, http.StatusCreated, RunResponse{Run: created, Players: players})
	}
}

// HandleGetRun returns a run with its player roster.
func HandleGetRun(svc run.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID, ok := RunIDFromRequest(r, w)
		if !ok {
			return
		}

		got, err := svc.GetRun(r.Context(), runID)
		if err != nil {
			respondServiceError(w, "get run", err)
			return
		}

		players, err := svc.ListPlayers(r.Context(), runID)
		if err != nil {
			respondServiceError(w, "list players", err)
			return
		}

		respondJSON(w, http.StatusOK, RunResponse{Run: got, Players: players})
	}
}

type ListRunsResponse struct {
	Runs []domain.Run `json:"runs"`
}

// HandleListRuns returns every known run.
func HandleListRuns(svc run.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runs, err := svc.ListRuns(r.Context())
		if err != nil {
			respondServiceError(w, "list runs", err)
			return
		}
		respondJSON(w, http.StatusOK, ListRunsResponse{Runs: runs})
	}
}

type AddPlayerRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

// HandleAddPlayer adds a player to an active run.
func HandleAddPlayer(svc run.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		runID, ok := RunIDFromRequest(r, w)
		if !ok {
			return
		}

		var req AddPlayerRequest
		if err := DecodeAndValidateRequest(r, w, &req, "Add player"); err != nil {
			return
		}

		player, err := svc.AddPlayer(r.Context(), runID, req.Name)
		if err != nil {
			respondServiceError(w, "add player", err)
			return
		}

		log.Info("Player added", "run_id", runID, "player_id", player.ID, "name", player.Name)
		respondJSON(w, http.StatusCreated, player)
	}
}

type SetStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active completed failed"`
}

// HandleSetRunStatus transitions a run's lifecycle status.
func HandleSetRunStatus(svc run.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		runID, ok := RunIDFromRequest(r, w)
		if !ok {
			return
		}

		var req SetStatusRequest
		if err := DecodeAndValidateRequest(r, w, &req, "Set run status"); err != nil {
			return
		}

		updated, err := svc.SetStatus(r.Context(), runID, req.Status)
		if err != nil {
			respondServiceError(w, "set run status", err)
			return
		}

		log.Info("Run status updated", "run_id", runID, "status", updated.Status)
		respondJSON(w, http.StatusOK, updated)
	}
}
