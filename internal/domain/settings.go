package domain

import "time"

// DetectionSettings holds the live-tunable thresholds of the visit detection
// engine. The engine reads a fresh copy from the settings provider on every
// ping, so a changed value applies immediately without a restart.
type DetectionSettings struct {
	// RequiredHits is the number of consecutive inside-radius pings needed
	// before a candidate is confirmed as a visit.
	RequiredHits int

	// HitWindow is the maximum gap between two qualifying pings for them to
	// count as the same visit attempt. A longer gap resets the candidate.
	HitWindow time.Duration

	// MinRadiusMeters and MaxRadiusMeters bound the effective detection
	// radius derived from GPS accuracy.
	MinRadiusMeters float64
	MaxRadiusMeters float64

	// AccuracyMultiplier scales the reported fix accuracy into an effective
	// radius before clamping.
	AccuracyMultiplier float64

	// AccuracyRejectMeters drops pings whose reported accuracy is worse than
	// this value outright. 0 disables the gate.
	AccuracyRejectMeters float64

	// MaxSearchRadiusMeters bounds the nearest-place database query. It must
	// be at least MaxRadiusMeters so the effective-radius cutoff is applied
	// to a candidate the query could actually find.
	MaxSearchRadiusMeters float64

	// CandidateStale is how long an untouched candidate survives before the
	// sweeper purges it.
	CandidateStale time.Duration

	// EndVisitAfter is how long an open visit may go without a ping before
	// it is considered ended.
	EndVisitAfter time.Duration

	// NotesSnapshotMaxChars caps the notes text copied onto a visit at
	// promotion time. 0 disables the cap.
	NotesSnapshotMaxChars int
}

// DefaultDetectionSettings returns the thresholds used when no settings file
// is present or a key is missing from it.
func DefaultDetectionSettings() DetectionSettings {
	return DetectionSettings{
		RequiredHits:          2,
		HitWindow:             15 * time.Minute,
		MinRadiusMeters:       35,
		MaxRadiusMeters:       150,
		AccuracyMultiplier:    2.0,
		AccuracyRejectMeters:  200,
		MaxSearchRadiusMeters: 200,
		CandidateStale:        60 * time.Minute,
		EndVisitAfter:         45 * time.Minute,
		NotesSnapshotMaxChars: 20000,
	}
}

// Validate checks the cross-field invariants that keep the detection
// algorithm coherent. A provider must refuse (or refuse to apply) settings
// that fail validation.
func (s DetectionSettings) Validate() error {
	if s.RequiredHits < 1 {
		return validationf("required_hits must be at least 1")
	}
	if s.HitWindow <= 0 {
		return validationf("hit_window must be positive")
	}
	if s.MinRadiusMeters <= 0 {
		return validationf("min_radius_meters must be positive")
	}
	if s.MaxRadiusMeters < s.MinRadiusMeters {
		return validationf("max_radius_meters must be >= min_radius_meters")
	}
	if s.MaxSearchRadiusMeters < s.MaxRadiusMeters {
		return validationf("max_search_radius_meters must be >= max_radius_meters")
	}
	if s.AccuracyMultiplier <= 0 {
		return validationf("accuracy_multiplier must be positive")
	}
	if s.AccuracyRejectMeters < 0 {
		return validationf("accuracy_reject_meters must not be negative")
	}
	if s.CandidateStale <= 0 {
		return validationf("candidate_stale must be positive")
	}
	if s.EndVisitAfter <= 0 {
		return validationf("end_visit_after must be positive")
	}
	if s.NotesSnapshotMaxChars < 0 {
		return validationf("notes_snapshot_max_chars must not be negative")
	}
	return nil
}

// EffectiveRadius derives the per-ping proximity threshold from the reported
// GPS accuracy: accuracy scaled by the multiplier, clamped to
// [MinRadiusMeters, MaxRadiusMeters]. An unknown accuracy yields the minimum
// radius — the conservative choice for an unqualified fix.
func (s DetectionSettings) EffectiveRadius(accuracyMeters *float64) float64 {
	if accuracyMeters == nil {
		return s.MinRadiusMeters
	}
	r := *accuracyMeters * s.AccuracyMultiplier
	if r < s.MinRadiusMeters {
		return s.MinRadiusMeters
	}
	if r > s.MaxRadiusMeters {
		return s.MaxRadiusMeters
	}
	return r
}
