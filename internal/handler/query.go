package handler

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/soullink-tracker/server/internal/domain"
	"github.com/soullink-tracker/server/internal/query"
)

type RouteMatrixResponse struct {
	Routes []domain.RouteStatus `json:"routes"`
}

// HandleGetRouteMatrix serves the per-route, per-player status matrix.
func HandleGetRouteMatrix(svc query.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID, ok := RunIDFromRequest(r, w)
		if !ok {
			return
		}

		routes, err := svc.RouteMatrix(r.Context(), runID)
		if err != nil {
			respondServiceError(w, "route matrix", err)
			return
		}
		if routes == nil {
			routes = []domain.RouteStatus{}
		}
		respondJSON(w, http.StatusOK, RouteMatrixResponse{Routes: routes})
	}
}

type EncountersResponse struct {
	Encounters []domain.Encounter `json:"encounters"`
}

// HandleGetEncounters serves the filtered encounter list in log order.
// Filters: player_id, route_id, family_id, status.
func HandleGetEncounters(svc query.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID, ok := RunIDFromRequest(r, w)
		if !ok {
			return
		}

		filter, ok := encounterFilterFromQuery(r, w)
		if !ok {
			return
		}

		encounters, err := svc.Encounters(r.Context(), runID, filter)
		if err != nil {
			respondServiceError(w, "list encounters", err)
			return
		}
		if encounters == nil {
			encounters = []domain.Encounter{}
		}
		respondJSON(w, http.StatusOK, EncountersResponse{Encounters: encounters})
	}
}

func encounterFilterFromQuery(r *http.Request, w http.ResponseWriter) (domain.EncounterFilter, bool) {
	var filter domain.EncounterFilter

	if raw := r.URL.Query().Get("player_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, ErrMsgInvalidFilterPlayerID)
			return filter, false
		}
		filter.PlayerID = &id
	}
	routeID, ok := intFilterParam(r, w, "route_id", ErrMsgInvalidFilterRouteID)
	if !ok {
		return filter, false
	}
	filter.RouteID = routeID

	familyID, ok := intFilterParam(r, w, "family_id", ErrMsgInvalidFilterFamilyID)
	if !ok {
		return filter, false
	}
	filter.FamilyID = familyID

	if status := r.URL.Query().Get("status"); status != "" {
		if status != domain.EncounterStatusPending && !domain.ValidCatchResult(status) {
			respondError(w, http.StatusBadRequest, ErrMsgInvalidFilterStatus)
			return filter, false
		}
		filter.Status = status
	}

	return filter, true
}

func intFilterParam(r *http.Request, w http.ResponseWriter, paramName, errMsg string) (*int, bool) {
	raw := r.URL.Query().Get(paramName)
	if raw == "" {
		return nil, true
	}
	v, ok := UintQueryParam(r, w, paramName, errMsg, 0)
	if !ok {
		return nil, false
	}
	n := int(v)
	return &n, true
}

type BlocklistResponse struct {
	Blocked []domain.BlockEntry `json:"blocked"`
}

// HandleGetBlocklist serves the globally claimed families in claim order.
func HandleGetBlocklist(svc query.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID, ok := RunIDFromRequest(r, w)
		if !ok {
			return
		}

		blocked, err := svc.Blocklist(r.Context(), runID)
		if err != nil {
			respondServiceError(w, "blocklist", err)
			return
		}
		if blocked == nil {
			blocked = []domain.BlockEntry{}
		}
		respondJSON(w, http.StatusOK, BlocklistResponse{Blocked: blocked})
	}
}

type LinksResponse struct {
	Links []domain.Link `json:"links"`
}

// HandleGetLinks serves the run's soul-link roster.
func HandleGetLinks(svc query.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID, ok := RunIDFromRequest(r, w)
		if !ok {
			return
		}

		links, err := svc.Links(r.Context(), runID)
		if err != nil {
			respondServiceError(w, "links", err)
			return
		}
		if links == nil {
			links = []domain.Link{}
		}
		respondJSON(w, http.StatusOK, LinksResponse{Links: links})
	}
}
