package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stef-k/Wayfarer-sub010/internal/domain"
)

// visitResponse is the JSON shape of a single visit event.
type visitResponse struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	PlaceID      *uuid.UUID `json:"place_id,omitempty"`
	TripID       uuid.UUID  `json:"trip_id"`
	TripName     string     `json:"trip_name"`
	RegionName   string     `json:"region_name,omitempty"`
	PlaceName    string     `json:"place_name"`
	Lat          float64    `json:"lat"`
	Lon          float64    `json:"lon"`
	Icon         string     `json:"icon,omitempty"`
	Color        string     `json:"color,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	ArrivedAt    time.Time  `json:"arrived_at"`
	LastSeenAt   time.Time  `json:"last_seen_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	DwellMinutes int        `json:"dwell_minutes"`
}

// toVisitResponse maps a domain visit to its JSON shape.
func toVisitResponse(v domain.VisitEvent) visitResponse {
	return visitResponse{
		ID:           v.ID,
		UserID:       v.UserID,
		PlaceID:      v.PlaceID,
		TripID:       v.TripID,
		TripName:     v.TripName,
		RegionName:   v.RegionName,
		PlaceName:    v.PlaceName,
		Lat:          v.PlaceLat,
		Lon:          v.PlaceLon,
		Icon:         v.Icon,
		Color:        v.Color,
		Notes:        v.Notes,
		ArrivedAt:    v.ArrivedAt,
		LastSeenAt:   v.LastSeenAt,
		EndedAt:      v.EndedAt,
		DwellMinutes: v.DwellMinutes(),
	}
}

// ListVisits handles GET /api/v1/users/{userID}/visits.
// Optional query params: open=true|false filters ongoing vs finished visits,
// page and limit control pagination.
func (s *Server) ListVisits(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid user id")
		return
	}

	var openOnly *bool
	if raw := r.URL.Query().Get("open"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "open must be true or false")
			return
		}
		openOnly = &v
	}

	visits, err := s.visits.ListByUser(r.Context(), userID, openOnly, paginationFromQuery(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list visits")
		return
	}

	out := make([]visitResponse, 0, len(visits))
	for _, v := range visits {
		out = append(out, toVisitResponse(v))
	}
	writeJSON(w, http.StatusOK, map[string]any{"visits": out})
}

// GetVisit handles GET /api/v1/visits/{visitID}.
func (s *Server) GetVisit(w http.ResponseWriter, r *http.Request) {
	visitID, err := uuid.Parse(chi.URLParam(r, "visitID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid visit id")
		return
	}

	visit, err := s.visits.GetByID(r.Context(), visitID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "visit not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load visit")
		return
	}

	writeJSON(w, http.StatusOK, toVisitResponse(visit))
}

// paginationFromQuery builds PaginationParams from optional page/limit query
// params, ignoring unparseable values.
func paginationFromQuery(r *http.Request) domain.PaginationParams {
	var page, limit *int
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		page = &v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		limit = &v
	}
	return domain.NewPaginationParams(page, limit)
}
