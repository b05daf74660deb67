package domain

import (
	"time"

	"github.com/google/uuid"
)

// VisitCandidate is ephemeral pre-confirmation evidence that a user may be at
// a place. One candidate exists per (user, place) pair at most, and only
// while no visit is open for that pair. Candidates are promoted to a
// VisitEvent once HitCount reaches the configured confirmation threshold,
// and purged by the sweeper when they go stale.
type VisitCandidate struct {
	UserID     uuid.UUID
	PlaceID    uuid.UUID
	FirstHitAt time.Time
	LastHitAt  time.Time
	HitCount   int
}

// VisitEvent is the durable record of a confirmed visit. It is the source of
// truth for visit history: all place/trip/region details are snapshotted at
// promotion time so the record survives any later edit or deletion of the
// plan it was derived from.
//
// PlaceID is a weak reference — it is nulled out by the database when the
// referenced place is deleted, while the snapshot columns stay intact.
// EndedAt is nil while the visit is ongoing; at most one open event exists
// per (user, place) pair.
type VisitEvent struct {
	ID      uuid.UUID
	UserID  uuid.UUID
	PlaceID *uuid.UUID

	// Snapshot fields, captured once at promotion and never re-derived.
	TripID     uuid.UUID
	TripName   string
	RegionName string
	PlaceName  string
	PlaceLat   float64
	PlaceLon   float64
	Icon       string
	Color      string
	Notes      string

	ArrivedAt  time.Time
	LastSeenAt time.Time
	EndedAt    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Open reports whether the visit is still ongoing.
func (v VisitEvent) Open() bool {
	return v.EndedAt == nil
}

// DwellMinutes returns the visit duration in whole minutes. For an open
// visit the dwell is measured up to LastSeenAt.
func (v VisitEvent) DwellMinutes() int {
	end := v.LastSeenAt
	if v.EndedAt != nil {
		end = *v.EndedAt
	}
	d := end.Sub(v.ArrivedAt)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}

// NewVisitEvent builds the visit that a candidate is promoted into: arrival
// is the candidate's first qualifying hit, last-seen is the confirming ping,
// and every descriptive field is copied from the place as it exists right
// now. Notes are truncated to notesMaxChars (0 disables the cap) so a single
// place with pathological notes cannot bloat visit history.
func NewVisitEvent(cand VisitCandidate, place NearbyPlace, seenAt time.Time, notesMaxChars int) VisitEvent {
	placeID := place.ID
	return VisitEvent{
		UserID:     cand.UserID,
		PlaceID:    &placeID,
		TripID:     place.TripID,
		TripName:   place.TripName,
		RegionName: place.RegionName,
		PlaceName:  place.Name,
		PlaceLat:   place.Lat,
		PlaceLon:   place.Lon,
		Icon:       place.Icon,
		Color:      place.Color,
		Notes:      truncate(place.Notes, notesMaxChars),
		ArrivedAt:  cand.FirstHitAt,
		LastSeenAt: seenAt,
	}
}

// truncate caps s at max runes, preserving valid UTF-8. max <= 0 means no cap.
func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
