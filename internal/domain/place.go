// Package domain contains the core data types for the Wayfarer visit
// detection engine. This package has zero external dependencies beyond uuid
// and is imported by every other internal package (repo, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Place is a planned point of interest on a trip. Places are owned by the
// trip-planning subsystem: the detection engine only ever reads them, and a
// place may disappear at any moment when the user edits their plan.
type Place struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	TripID   uuid.UUID
	RegionID *uuid.UUID // nil for places not grouped under a region
	Name     string
	Lat      float64
	Lon      float64
	Notes    string
	Icon     string
	Color    string
}

// NearbyPlace is the result of a nearest-place query: the place itself plus
// the denormalized trip/region names needed for visit snapshots, and the
// great-circle distance from the queried location.
type NearbyPlace struct {
	Place
	TripName       string
	RegionName     string // empty when the place has no region
	DistanceMeters float64
}

// Ping is a single timestamped GPS location report for a user.
// AccuracyMeters is nil when the reporting device did not include a fix
// accuracy estimate.
type Ping struct {
	UserID         uuid.UUID
	Lat            float64
	Lon            float64
	AccuracyMeters *float64
	RecordedAt     time.Time
}

// Validate checks that the ping carries a plausible WGS84 coordinate and a
// user. It does not inspect accuracy — an absent or absurd accuracy value is
// handled by the detection engine's accuracy gate, not rejected here.
func (p Ping) Validate() error {
	if p.UserID == uuid.Nil {
		return validationf("user id is required")
	}
	if p.Lat < -90 || p.Lat > 90 {
		return validationf("latitude must be within [-90, 90]")
	}
	if p.Lon < -180 || p.Lon > 180 {
		return validationf("longitude must be within [-180, 180]")
	}
	if p.RecordedAt.IsZero() {
		return validationf("recorded_at is required")
	}
	return nil
}
