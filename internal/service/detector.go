// Package service implements the business logic of the visit detection core:
// the per-ping detection engine, the periodic cleanup sweeper, and the
// settings provider they both read their thresholds from.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/stef-k/Wayfarer-sub010/internal/domain"
	"github.com/stef-k/Wayfarer-sub010/internal/repo"
)

// Notifier receives visit lifecycle notifications for downstream consumers
// (real-time UI, audit log). Delivery is best-effort and fire-and-forget:
// implementations must never block state transitions on delivery, and the
// engine never checks whether a notification arrived.
type Notifier interface {
	VisitStarted(ctx context.Context, event domain.VisitStarted)
	VisitEnded(ctx context.Context, event domain.VisitEnded)
}

// conflictRetries bounds how often a ping re-runs its branch decision after
// losing a promotion race. One retry is normally enough: the winner's open
// visit is found by ExtendOpen on the next attempt.
const conflictRetries = 3

// Detector is the visit detection engine. One call to ProcessPing takes a
// raw GPS ping through accuracy gating, nearest-place lookup, candidate
// confirmation, and visit creation or extension.
type Detector struct {
	places     repo.PlaceRepo
	candidates repo.CandidateRepo
	visits     repo.VisitRepo
	settings   SettingsProvider
	notifier   Notifier
	log        *slog.Logger
}

// NewDetector constructs a Detector from its collaborators.
func NewDetector(places repo.PlaceRepo, candidates repo.CandidateRepo, visits repo.VisitRepo,
	settings SettingsProvider, notifier Notifier, log *slog.Logger) *Detector {
	return &Detector{
		places:     places,
		candidates: candidates,
		visits:     visits,
		settings:   settings,
		notifier:   notifier,
		log:        log,
	}
}

// ProcessPing runs one ping through the detection pipeline. Pings that are
// too inaccurate or not near any place are defined no-op outcomes, not
// errors; only malformed input and persistence failures return an error.
// Closing of stale visits is never done here — pings only ever extend an
// open visit, and absence of pings is the sweeper's department.
func (d *Detector) ProcessPing(ctx context.Context, ping domain.Ping) error {
	if err := ping.Validate(); err != nil {
		return fmt.Errorf("service.Detector.ProcessPing: %w", err)
	}

	s := d.settings.Current()

	// Accuracy gate: a wildly inaccurate fix must not create false visits.
	if s.AccuracyRejectMeters > 0 && ping.AccuracyMeters != nil && *ping.AccuracyMeters > s.AccuracyRejectMeters {
		d.log.DebugContext(ctx, "ping rejected by accuracy gate",
			"user_id", ping.UserID,
			"accuracy_m", *ping.AccuracyMeters,
			"reject_threshold_m", s.AccuracyRejectMeters,
		)
		return nil
	}

	radius := s.EffectiveRadius(ping.AccuracyMeters)

	// The search net is wider than the effective radius so the cutoff below
	// is applied to a candidate the query could actually find. Only the
	// single nearest place is evaluated per ping — a deliberate conservative
	// policy for dense place clusters.
	nearest, err := d.places.FindNearest(ctx, ping.UserID, ping.Lat, ping.Lon, s.MaxSearchRadiusMeters)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("service.Detector.ProcessPing: %w", err)
	}
	if nearest.DistanceMeters > radius {
		return nil
	}

	backoff := retry.WithMaxRetries(conflictRetries, retry.NewConstant(10*time.Millisecond))
	if err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		return d.recordProximity(ctx, ping, nearest, s)
	}); err != nil {
		return fmt.Errorf("service.Detector.ProcessPing: %w", err)
	}
	return nil
}

// recordProximity applies one inside-radius ping to the (user, place) state.
// It is the retryable unit: losing a promotion race returns a retryable
// error, and the next attempt finds the winner's open visit via ExtendOpen.
func (d *Detector) recordProximity(ctx context.Context, ping domain.Ping, nearest domain.NearbyPlace, s domain.DetectionSettings) error {
	// Open visit branch: a ping while a visit is open just extends it.
	_, err := d.visits.ExtendOpen(ctx, ping.UserID, nearest.ID, ping.RecordedAt)
	if err == nil {
		// A candidate should never coexist with an open visit; remove any
		// lingering one left behind by a past race.
		if derr := d.candidates.Delete(ctx, ping.UserID, nearest.ID); derr != nil {
			d.log.WarnContext(ctx, "failed to delete lingering candidate",
				"user_id", ping.UserID, "place_id", nearest.ID, "error", derr)
		}
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	// Candidate branch: count the hit, resetting if the window expired.
	cand, err := d.candidates.RecordHit(ctx, ping.UserID, nearest.ID, ping.RecordedAt, s.HitWindow)
	if err != nil {
		return err
	}
	if cand.HitCount < s.RequiredHits {
		return nil
	}

	// Confirmation threshold reached: promote the candidate into an open
	// visit, snapshotting the place as it exists right now.
	visit := domain.NewVisitEvent(cand, nearest, ping.RecordedAt, s.NotesSnapshotMaxChars)
	created, err := d.visits.PromoteCandidate(ctx, visit)
	if errors.Is(err, domain.ErrConflict) {
		return retry.RetryableError(err)
	}
	if err != nil {
		return err
	}

	d.log.InfoContext(ctx, "visit started",
		"visit_id", created.ID,
		"user_id", created.UserID,
		"place_name", created.PlaceName,
		"arrived_at", created.ArrivedAt,
	)
	d.notifier.VisitStarted(ctx, domain.NewVisitStarted(created))
	return nil
}
