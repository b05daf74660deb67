package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/stef-k/Wayfarer-sub010/internal/domain"
)

// CandidateRepo defines the persistence operations for visit candidates —
// the pre-confirmation hit counters keyed uniquely by (user, place).
type CandidateRepo interface {
	// Get retrieves the candidate for a (user, place) pair.
	// Returns domain.ErrNotFound if none exists.
	Get(ctx context.Context, userID, placeID uuid.UUID) (domain.VisitCandidate, error)

	// RecordHit registers one qualifying ping at hitAt and returns the
	// resulting candidate state. Create, increment, and window-expiry reset
	// are all handled in a single atomic upsert:
	//   - no existing candidate        → count=1, firstHit=lastHit=hitAt
	//   - last hit within hitWindow    → count+1, lastHit=hitAt
	//   - last hit older than hitWindow → reset to count=1, firstHit=lastHit=hitAt
	RecordHit(ctx context.Context, userID, placeID uuid.UUID, hitAt time.Time, hitWindow time.Duration) (domain.VisitCandidate, error)

	// Delete removes the candidate for a (user, place) pair. Deleting an
	// absent candidate is a no-op, not an error — the engine calls this
	// defensively whenever an open visit already exists for the pair.
	Delete(ctx context.Context, userID, placeID uuid.UUID) error

	// PurgeStale deletes every candidate whose last hit is before cutoff and
	// returns the number of rows removed. Idempotent.
	PurgeStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// pgCandidateRepo is the Postgres implementation of CandidateRepo.
type pgCandidateRepo struct {
	db db
}

// NewCandidateRepo constructs a CandidateRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewCandidateRepo(db db) CandidateRepo {
	return &pgCandidateRepo{db: db}
}

// Get retrieves a candidate by its composite primary key.
func (r *pgCandidateRepo) Get(ctx context.Context, userID, placeID uuid.UUID) (domain.VisitCandidate, error) {
	const q = `
		SELECT user_id, place_id, first_hit_at, last_hit_at, hit_count
		FROM visit_candidates
		WHERE user_id = @user_id AND place_id = @place_id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"user_id": userID, "place_id": placeID})
	result, err := scanCandidate(row)
	if err != nil {
		return domain.VisitCandidate{}, fmt.Errorf("repo.CandidateRepo.Get: %w", err)
	}
	return result, nil
}

// RecordHit is the read-modify-write core of candidate tracking, collapsed
// into one INSERT ... ON CONFLICT statement so concurrent pings for the same
// (user, place) pair serialize on the primary key instead of racing. The
// CASE expressions implement the hit-window rule: a gap longer than the
// window starts a fresh visit attempt rather than continuing the old one.
func (r *pgCandidateRepo) RecordHit(ctx context.Context, userID, placeID uuid.UUID, hitAt time.Time, hitWindow time.Duration) (domain.VisitCandidate, error) {
	const q = `
		INSERT INTO visit_candidates (user_id, place_id, first_hit_at, last_hit_at, hit_count)
		VALUES (@user_id, @place_id, @hit_at, @hit_at, 1)
		ON CONFLICT (user_id, place_id) DO UPDATE SET
			hit_count = CASE
				WHEN @hit_at::timestamptz - visit_candidates.last_hit_at <= make_interval(secs => @window_seconds)
				THEN visit_candidates.hit_count + 1
				ELSE 1
			END,
			first_hit_at = CASE
				WHEN @hit_at::timestamptz - visit_candidates.last_hit_at <= make_interval(secs => @window_seconds)
				THEN visit_candidates.first_hit_at
				ELSE @hit_at::timestamptz
			END,
			last_hit_at = @hit_at
		RETURNING user_id, place_id, first_hit_at, last_hit_at, hit_count`

	args := pgx.NamedArgs{
		"user_id":        userID,
		"place_id":       placeID,
		"hit_at":         hitAt,
		"window_seconds": hitWindow.Seconds(),
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanCandidate(row)
	if err != nil {
		return domain.VisitCandidate{}, fmt.Errorf("repo.CandidateRepo.RecordHit: %w", err)
	}
	return result, nil
}

// Delete removes a candidate; absent rows are ignored.
func (r *pgCandidateRepo) Delete(ctx context.Context, userID, placeID uuid.UUID) error {
	const q = `DELETE FROM visit_candidates WHERE user_id = @user_id AND place_id = @place_id`

	if _, err := r.db.Exec(ctx, q, pgx.NamedArgs{"user_id": userID, "place_id": placeID}); err != nil {
		return fmt.Errorf("repo.CandidateRepo.Delete: %w", err)
	}
	return nil
}

// PurgeStale removes candidates whose last hit is older than cutoff.
func (r *pgCandidateRepo) PurgeStale(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM visit_candidates WHERE last_hit_at < @cutoff`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"cutoff": cutoff})
	if err != nil {
		return 0, fmt.Errorf("repo.CandidateRepo.PurgeStale: %w", err)
	}
	return tag.RowsAffected(), nil
}

// scanCandidate maps a single database row into a domain.VisitCandidate.
func scanCandidate(s scanner) (domain.VisitCandidate, error) {
	var (
		c       domain.VisitCandidate
		userID  pgtype.UUID
		placeID pgtype.UUID
	)

	err := s.Scan(&userID, &placeID, &c.FirstHitAt, &c.LastHitAt, &c.HitCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.VisitCandidate{}, domain.ErrNotFound
		}
		return domain.VisitCandidate{}, err
	}

	c.UserID = uuid.UUID(userID.Bytes)
	c.PlaceID = uuid.UUID(placeID.Bytes)

	return c, nil
}
