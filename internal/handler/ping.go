package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/stef-k/Wayfarer-sub010/internal/domain"
)

// pingRequest is the JSON body of POST /api/v1/location/ping.
// RecordedAt defaults to the server clock when omitted; Accuracy is nil when
// the device did not report a fix accuracy.
type pingRequest struct {
	UserID     uuid.UUID  `json:"user_id"`
	Lat        float64    `json:"lat"`
	Lon        float64    `json:"lon"`
	AccuracyM  *float64   `json:"accuracy_m,omitempty"`
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
}

// PostPing handles POST /api/v1/location/ping.
// It feeds one GPS ping into the detection engine. A ping that detects
// nothing (too inaccurate, nothing nearby) is still a 202 — those are
// defined no-op outcomes of the engine, not request failures.
func (s *Server) PostPing(w http.ResponseWriter, r *http.Request) {
	var req pingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	recordedAt := time.Now().UTC()
	if req.RecordedAt != nil {
		recordedAt = *req.RecordedAt
	}

	ping := domain.Ping{
		UserID:         req.UserID,
		Lat:            req.Lat,
		Lon:            req.Lon,
		AccuracyMeters: req.AccuracyM,
		RecordedAt:     recordedAt,
	}

	if err := s.detector.ProcessPing(r.Context(), ping); err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeError(w, http.StatusUnprocessableEntity, "validation_error", unwrapMessage(err))
			return
		}
		// Persistence failure: the ingestion caller decides whether to
		// resend the ping; a missed ping only delays detection by one ping.
		writeError(w, http.StatusInternalServerError, "internal_error", "ping processing failed")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
