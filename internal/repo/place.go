package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/stef-k/Wayfarer-sub010/internal/domain"
)

// PlaceRepo is the read-only spatial view over the planning subsystem's
// places. The detection engine never writes through this interface.
type PlaceRepo interface {
	// FindNearest returns the single place belonging to userID closest to
	// (lat, lon) within maxRadiusMeters, joined with its trip and region
	// names and the great-circle distance in meters.
	// Returns domain.ErrNotFound when no place is within the search radius.
	FindNearest(ctx context.Context, userID uuid.UUID, lat, lon, maxRadiusMeters float64) (domain.NearbyPlace, error)
}

// pgPlaceRepo is the Postgres implementation of PlaceRepo.
type pgPlaceRepo struct {
	db db
}

// NewPlaceRepo constructs a PlaceRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewPlaceRepo(db db) PlaceRepo {
	return &pgPlaceRepo{db: db}
}

// FindNearest orders the user's places by haversine distance and returns the
// closest one inside the search radius. Distance is computed in SQL so the
// index-restricted candidate set never leaves the database; for per-user
// place counts (tens to low hundreds) a full ordered scan is cheap and needs
// no PostGIS extension.
func (r *pgPlaceRepo) FindNearest(ctx context.Context, userID uuid.UUID, lat, lon, maxRadiusMeters float64) (domain.NearbyPlace, error) {
	const q = `
		SELECT id, user_id, trip_id, region_id, name, lat, lon, notes, icon, color,
		       trip_name, region_name, distance_m
		FROM (
			SELECT p.id, p.user_id, p.trip_id, p.region_id, p.name, p.lat, p.lon,
			       p.notes, p.icon, p.color,
			       t.name AS trip_name,
			       COALESCE(r.name, '') AS region_name,
			       2 * 6371000 * asin(sqrt(
			           power(sin(radians(p.lat - @lat) / 2), 2) +
			           cos(radians(@lat)) * cos(radians(p.lat)) *
			           power(sin(radians(p.lon - @lon) / 2), 2)
			       )) AS distance_m
			FROM places p
			JOIN trips t ON t.id = p.trip_id
			LEFT JOIN regions r ON r.id = p.region_id
			WHERE p.user_id = @user_id
		) nearby
		WHERE distance_m <= @max_radius
		ORDER BY distance_m
		LIMIT 1`

	args := pgx.NamedArgs{
		"user_id":    userID,
		"lat":        lat,
		"lon":        lon,
		"max_radius": maxRadiusMeters,
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanNearbyPlace(row)
	if err != nil {
		return domain.NearbyPlace{}, fmt.Errorf("repo.PlaceRepo.FindNearest: %w", err)
	}
	return result, nil
}

// scanNearbyPlace maps a nearest-place row into a domain.NearbyPlace.
func scanNearbyPlace(s scanner) (domain.NearbyPlace, error) {
	var (
		np       domain.NearbyPlace
		id       pgtype.UUID
		userID   pgtype.UUID
		tripID   pgtype.UUID
		regionID pgtype.UUID
	)

	err := s.Scan(&id, &userID, &tripID, &regionID, &np.Name, &np.Lat, &np.Lon,
		&np.Notes, &np.Icon, &np.Color, &np.TripName, &np.RegionName, &np.DistanceMeters)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NearbyPlace{}, domain.ErrNotFound
		}
		return domain.NearbyPlace{}, err
	}

	np.ID = uuid.UUID(id.Bytes)
	np.UserID = uuid.UUID(userID.Bytes)
	np.TripID = uuid.UUID(tripID.Bytes)
	if regionID.Valid {
		rid := uuid.UUID(regionID.Bytes)
		np.RegionID = &rid
	}

	return np, nil
}
