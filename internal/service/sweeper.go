package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stef-k/Wayfarer-sub010/internal/domain"
	"github.com/stef-k/Wayfarer-sub010/internal/repo"
)

// Sweeper is the periodic cleanup job: it closes open visits that stopped
// receiving pings and purges stale candidates. It runs fully decoupled from
// live ping traffic — both its passes are idempotent, monotonic transitions
// (open→closed, present→absent), so it needs no coordination with the
// detection engine and a failed sweep is fully compensated by the next run.
type Sweeper struct {
	candidates repo.CandidateRepo
	visits     repo.VisitRepo
	settings   SettingsProvider
	notifier   Notifier
	log        *slog.Logger
	interval   time.Duration
}

// NewSweeper constructs a Sweeper that sweeps every interval when driven by Run.
func NewSweeper(candidates repo.CandidateRepo, visits repo.VisitRepo,
	settings SettingsProvider, notifier Notifier, log *slog.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{
		candidates: candidates,
		visits:     visits,
		settings:   settings,
		notifier:   notifier,
		log:        log,
		interval:   interval,
	}
}

// Run drives RunSweep on a ticker until ctx is cancelled. One sweep runs
// immediately so state left stale across a restart converges right away.
func (s *Sweeper) Run(ctx context.Context) {
	if err := s.RunSweep(ctx, time.Now()); err != nil {
		s.log.ErrorContext(ctx, "sweep failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return
		case now := <-ticker.C:
			if err := s.RunSweep(ctx, now); err != nil {
				s.log.ErrorContext(ctx, "sweep failed", "error", err)
			}
		}
	}
}

// RunSweep executes both cleanup passes against the state as of now. The
// passes are independent and order-insensitive; a failure in one does not
// stop the other, and partial progress is fine (at-least-once semantics —
// re-closing a closed visit or re-purging an absent candidate is a no-op).
func (s *Sweeper) RunSweep(ctx context.Context, now time.Time) error {
	cfg := s.settings.Current()

	closeErr := s.closeStaleVisits(ctx, now, cfg)
	if err := ctx.Err(); err != nil {
		return errors.Join(closeErr, err)
	}
	purgeErr := s.purgeStaleCandidates(ctx, now, cfg)

	if err := errors.Join(closeErr, purgeErr); err != nil {
		return fmt.Errorf("service.Sweeper.RunSweep: %w", err)
	}
	return nil
}

// closeStaleVisits applies the shared closing rule: an open visit whose
// last_seen_at is older than EndVisitAfter is closed at its last_seen_at —
// the visit ended when the pings stopped, not when the sweeper noticed.
func (s *Sweeper) closeStaleVisits(ctx context.Context, now time.Time, cfg domain.DetectionSettings) error {
	closed, err := s.visits.CloseStale(ctx, now.Add(-cfg.EndVisitAfter))
	if err != nil {
		return err
	}
	for _, v := range closed {
		s.log.InfoContext(ctx, "visit ended",
			"visit_id", v.ID,
			"user_id", v.UserID,
			"place_name", v.PlaceName,
			"dwell_minutes", v.DwellMinutes(),
		)
		s.notifier.VisitEnded(ctx, domain.NewVisitEnded(v))
	}
	return nil
}

// purgeStaleCandidates drops candidates whose last hit is older than
// CandidateStale — unconfirmed evidence that went cold.
func (s *Sweeper) purgeStaleCandidates(ctx context.Context, now time.Time, cfg domain.DetectionSettings) error {
	purged, err := s.candidates.PurgeStale(ctx, now.Add(-cfg.CandidateStale))
	if err != nil {
		return err
	}
	if purged > 0 {
		s.log.InfoContext(ctx, "stale candidates purged", "count", purged)
	}
	return nil
}
