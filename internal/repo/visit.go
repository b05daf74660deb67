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

// VisitRepo defines the persistence operations for visit events — the
// durable visit ledger. This core only ever opens, extends, and closes
// visits; outright deletion belongs to the user-facing CRUD surface.
type VisitRepo interface {
	// GetByID retrieves a single visit by its UUID.
	// Returns domain.ErrNotFound if no visit with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.VisitEvent, error)

	// GetOpen retrieves the open (ended_at IS NULL) visit for a
	// (user, place) pair. Returns domain.ErrNotFound if none is open.
	GetOpen(ctx context.Context, userID, placeID uuid.UUID) (domain.VisitEvent, error)

	// ExtendOpen bumps last_seen_at on the open visit for a (user, place)
	// pair and returns the updated record.
	// Returns domain.ErrNotFound if no visit is currently open for the pair.
	ExtendOpen(ctx context.Context, userID, placeID uuid.UUID, seenAt time.Time) (domain.VisitEvent, error)

	// PromoteCandidate atomically deletes the (user, place) candidate and
	// inserts visit as a new open event, returning the persisted record.
	// Returns domain.ErrConflict if another writer opened a visit for the
	// pair first (partial unique index violation) — callers should retry
	// their branch decision.
	PromoteCandidate(ctx context.Context, visit domain.VisitEvent) (domain.VisitEvent, error)

	// CloseStale sets ended_at = last_seen_at on every open visit whose
	// last_seen_at is before cutoff, returning the closed records.
	// Idempotent: already-closed visits are never touched.
	CloseStale(ctx context.Context, cutoff time.Time) ([]domain.VisitEvent, error)

	// ListByUser returns one page of a user's visits ordered by arrived_at
	// descending. openOnly nil returns all visits; true/false filters on
	// whether the visit is still ongoing.
	ListByUser(ctx context.Context, userID uuid.UUID, openOnly *bool, p domain.PaginationParams) ([]domain.VisitEvent, error)
}

// pgVisitRepo is the Postgres implementation of VisitRepo.
type pgVisitRepo struct {
	db db
}

// NewVisitRepo constructs a VisitRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewVisitRepo(db db) VisitRepo {
	return &pgVisitRepo{db: db}
}

// visitColumns is the canonical select list shared by every query that
// returns full visit records. Order must match scanVisit.
const visitColumns = `id, user_id, place_id, trip_id, trip_name, region_name,
	place_name, place_lat, place_lon, icon, color, notes,
	arrived_at, last_seen_at, ended_at, created_at, updated_at`

// GetByID retrieves a visit by primary key.
func (r *pgVisitRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.VisitEvent, error) {
	q := `SELECT ` + visitColumns + ` FROM visit_events WHERE id = @id`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id})
	result, err := scanVisit(row)
	if err != nil {
		return domain.VisitEvent{}, fmt.Errorf("repo.VisitRepo.GetByID: %w", err)
	}
	return result, nil
}

// GetOpen retrieves the single open visit for a (user, place) pair.
// The partial unique index guarantees at most one row matches.
func (r *pgVisitRepo) GetOpen(ctx context.Context, userID, placeID uuid.UUID) (domain.VisitEvent, error) {
	q := `
		SELECT ` + visitColumns + `
		FROM visit_events
		WHERE user_id = @user_id AND place_id = @place_id AND ended_at IS NULL`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{"user_id": userID, "place_id": placeID})
	result, err := scanVisit(row)
	if err != nil {
		return domain.VisitEvent{}, fmt.Errorf("repo.VisitRepo.GetOpen: %w", err)
	}
	return result, nil
}

// ExtendOpen is a single-statement read-modify-write: the WHERE clause
// selects the open visit and the UPDATE bumps it, so no lock is needed
// beyond the row lock Postgres takes anyway.
func (r *pgVisitRepo) ExtendOpen(ctx context.Context, userID, placeID uuid.UUID, seenAt time.Time) (domain.VisitEvent, error) {
	q := `
		UPDATE visit_events
		SET last_seen_at = @seen_at,
		    updated_at   = now()
		WHERE user_id = @user_id AND place_id = @place_id AND ended_at IS NULL
		RETURNING ` + visitColumns

	args := pgx.NamedArgs{
		"user_id":  userID,
		"place_id": placeID,
		"seen_at":  seenAt,
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanVisit(row)
	if err != nil {
		return domain.VisitEvent{}, fmt.Errorf("repo.VisitRepo.ExtendOpen: %w", err)
	}
	return result, nil
}

// PromoteCandidate performs the candidate→visit transition as one
// data-modifying CTE, which Postgres executes atomically: either the
// candidate is gone and the open visit exists, or neither happened. A
// concurrent promotion for the same pair trips the partial unique index and
// surfaces as domain.ErrConflict.
func (r *pgVisitRepo) PromoteCandidate(ctx context.Context, visit domain.VisitEvent) (domain.VisitEvent, error) {
	q := `
		WITH retired AS (
			DELETE FROM visit_candidates
			WHERE user_id = @user_id AND place_id = @place_id
		)
		INSERT INTO visit_events (user_id, place_id, trip_id, trip_name, region_name,
		                          place_name, place_lat, place_lon, icon, color, notes,
		                          arrived_at, last_seen_at)
		VALUES (@user_id, @place_id, @trip_id, @trip_name, @region_name,
		        @place_name, @place_lat, @place_lon, @icon, @color, @notes,
		        @arrived_at, @last_seen_at)
		RETURNING ` + visitColumns

	args := pgx.NamedArgs{
		"user_id":      visit.UserID,
		"place_id":     visit.PlaceID,
		"trip_id":      visit.TripID,
		"trip_name":    visit.TripName,
		"region_name":  visit.RegionName,
		"place_name":   visit.PlaceName,
		"place_lat":    visit.PlaceLat,
		"place_lon":    visit.PlaceLon,
		"icon":         visit.Icon,
		"color":        visit.Color,
		"notes":        visit.Notes,
		"arrived_at":   visit.ArrivedAt,
		"last_seen_at": visit.LastSeenAt,
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanVisit(row)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.VisitEvent{}, fmt.Errorf("repo.VisitRepo.PromoteCandidate: %w", domain.ErrConflict)
		}
		return domain.VisitEvent{}, fmt.Errorf("repo.VisitRepo.PromoteCandidate: %w", err)
	}
	return result, nil
}

// CloseStale closes every open visit not seen since cutoff. The closing
// timestamp is the visit's own last_seen_at, not the sweep time — the visit
// ended when the pings stopped, not when the sweeper noticed.
func (r *pgVisitRepo) CloseStale(ctx context.Context, cutoff time.Time) ([]domain.VisitEvent, error) {
	q := `
		UPDATE visit_events
		SET ended_at   = last_seen_at,
		    updated_at = now()
		WHERE ended_at IS NULL AND last_seen_at < @cutoff
		RETURNING ` + visitColumns

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"cutoff": cutoff})
	if err != nil {
		return nil, fmt.Errorf("repo.VisitRepo.CloseStale: %w", err)
	}
	defer rows.Close()

	var closed []domain.VisitEvent
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.VisitRepo.CloseStale: scan: %w", err)
		}
		closed = append(closed, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.VisitRepo.CloseStale: rows: %w", err)
	}

	return closed, nil
}

// ListByUser returns one page of a user's visit history, newest arrivals first.
func (r *pgVisitRepo) ListByUser(ctx context.Context, userID uuid.UUID, openOnly *bool, p domain.PaginationParams) ([]domain.VisitEvent, error) {
	q := `
		SELECT ` + visitColumns + `
		FROM visit_events
		WHERE user_id = @user_id
		  AND (@open_only::boolean IS NULL OR (@open_only AND ended_at IS NULL) OR (NOT @open_only AND ended_at IS NOT NULL))
		ORDER BY arrived_at DESC
		LIMIT @limit OFFSET @offset`

	args := pgx.NamedArgs{
		"user_id":   userID,
		"open_only": openOnly, // nil becomes NULL: no filter
		"limit":     p.Limit,
		"offset":    p.Offset(),
	}

	rows, err := r.db.Query(ctx, q, args)
	if err != nil {
		return nil, fmt.Errorf("repo.VisitRepo.ListByUser: %w", err)
	}
	defer rows.Close()

	visits := []domain.VisitEvent{}
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.VisitRepo.ListByUser: scan: %w", err)
		}
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.VisitRepo.ListByUser: rows: %w", err)
	}

	return visits, nil
}

// scanVisit maps a single database row into a domain.VisitEvent.
// It handles the UUID conversions and the nullable place reference and
// ended_at timestamp.
func scanVisit(s scanner) (domain.VisitEvent, error) {
	var (
		v       domain.VisitEvent
		id      pgtype.UUID
		userID  pgtype.UUID
		placeID pgtype.UUID
		tripID  pgtype.UUID
		endedAt pgtype.Timestamptz
	)

	err := s.Scan(&id, &userID, &placeID, &tripID, &v.TripName, &v.RegionName,
		&v.PlaceName, &v.PlaceLat, &v.PlaceLon, &v.Icon, &v.Color, &v.Notes,
		&v.ArrivedAt, &v.LastSeenAt, &endedAt, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.VisitEvent{}, domain.ErrNotFound
		}
		return domain.VisitEvent{}, err
	}

	v.ID = uuid.UUID(id.Bytes)
	v.UserID = uuid.UUID(userID.Bytes)
	v.TripID = uuid.UUID(tripID.Bytes)
	if placeID.Valid {
		pid := uuid.UUID(placeID.Bytes)
		v.PlaceID = &pid
	}
	if endedAt.Valid {
		ea := endedAt.Time
		v.EndedAt = &ea
	}

	return v, nil
}
