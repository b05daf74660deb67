package domain

import (
	"time"

	"github.com/google/uuid"
)

// Notification event types published on the visit lifecycle channel.
const (
	EventTypeVisitStarted = "visit_started"
	EventTypeVisitEnded   = "visit_ended"
)

// VisitStarted is the payload published when a candidate is promoted to an
// open visit. Fields mirror the visit's snapshot so consumers never need to
// look up the (possibly already deleted) place.
type VisitStarted struct {
	Type       string     `json:"type"`
	VisitID    uuid.UUID  `json:"visit_id"`
	UserID     uuid.UUID  `json:"user_id"`
	PlaceID    *uuid.UUID `json:"place_id,omitempty"`
	TripID     uuid.UUID  `json:"trip_id"`
	TripName   string     `json:"trip_name"`
	PlaceName  string     `json:"place_name"`
	RegionName string     `json:"region_name,omitempty"`
	ArrivedAt  time.Time  `json:"arrived_at"`
	Lat        float64    `json:"lat"`
	Lon        float64    `json:"lon"`
	IconHint   string     `json:"icon_hint,omitempty"`
	ColorHint  string     `json:"color_hint,omitempty"`
}

// VisitEnded is the payload published when an open visit is closed by the
// sweeper's staleness rule.
type VisitEnded struct {
	Type         string     `json:"type"`
	VisitID      uuid.UUID  `json:"visit_id"`
	UserID       uuid.UUID  `json:"user_id"`
	PlaceID      *uuid.UUID `json:"place_id,omitempty"`
	EndedAt      time.Time  `json:"ended_at"`
	DwellMinutes int        `json:"dwell_minutes"`
}

// NewVisitStarted builds the start notification for a freshly opened visit.
func NewVisitStarted(v VisitEvent) VisitStarted {
	return VisitStarted{
		Type:       EventTypeVisitStarted,
		VisitID:    v.ID,
		UserID:     v.UserID,
		PlaceID:    v.PlaceID,
		TripID:     v.TripID,
		TripName:   v.TripName,
		PlaceName:  v.PlaceName,
		RegionName: v.RegionName,
		ArrivedAt:  v.ArrivedAt,
		Lat:        v.PlaceLat,
		Lon:        v.PlaceLon,
		IconHint:   v.Icon,
		ColorHint:  v.Color,
	}
}

// NewVisitEnded builds the end notification for a visit just closed.
// The caller must pass a closed visit (EndedAt set).
func NewVisitEnded(v VisitEvent) VisitEnded {
	ended := v.LastSeenAt
	if v.EndedAt != nil {
		ended = *v.EndedAt
	}
	return VisitEnded{
		Type:         EventTypeVisitEnded,
		VisitID:      v.ID,
		UserID:       v.UserID,
		PlaceID:      v.PlaceID,
		EndedAt:      ended,
		DwellMinutes: v.DwellMinutes(),
	}
}
