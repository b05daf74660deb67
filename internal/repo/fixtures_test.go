package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/stef-k/Wayfarer-sub010/testutil"
)

// newTestTx opens a transaction against the test database. The transaction
// is automatically rolled back when the test finishes, giving free per-test
// isolation — construct repos on top of it with repo.NewXxxRepo(tx).
//
// Requires TEST_DATABASE_URL to be set; the test skips otherwise.
func newTestTx(t *testing.T) pgx.Tx {
	t.Helper()
	pool := testutil.NewPool(t)

	tx, err := pool.Begin(context.Background())
	require.NoError(t, err, "begin transaction")

	t.Cleanup(func() {
		// Rollback discards all changes made during the test — no cleanup SQL needed.
		_ = tx.Rollback(context.Background())
	})

	return tx
}

// placeFixture describes a place to seed, with the trip and optional region
// it hangs off. Zero values get sensible defaults.
type placeFixture struct {
	userID     uuid.UUID
	name       string
	lat, lon   float64
	notes      string
	icon       string
	color      string
	tripName   string
	regionName string // empty: no region
}

// seedPlace inserts a trip, an optional region, and a place owned by the
// fixture's user, returning the place ID. The planning tables are owned by
// another subsystem in production; tests write them directly.
func seedPlace(t *testing.T, tx pgx.Tx, f placeFixture) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	if f.name == "" {
		f.name = "Test Place"
	}
	if f.tripName == "" {
		f.tripName = "Test Trip"
	}

	var tripID uuid.UUID
	err := tx.QueryRow(ctx,
		`INSERT INTO trips (user_id, name) VALUES ($1, $2) RETURNING id`,
		f.userID, f.tripName).Scan(&tripID)
	require.NoError(t, err, "seed trip")

	var regionID *uuid.UUID
	if f.regionName != "" {
		var rid uuid.UUID
		err := tx.QueryRow(ctx,
			`INSERT INTO regions (trip_id, user_id, name) VALUES ($1, $2, $3) RETURNING id`,
			tripID, f.userID, f.regionName).Scan(&rid)
		require.NoError(t, err, "seed region")
		regionID = &rid
	}

	var placeID uuid.UUID
	err = tx.QueryRow(ctx,
		`INSERT INTO places (user_id, trip_id, region_id, name, lat, lon, notes, icon, color)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		f.userID, tripID, regionID, f.name, f.lat, f.lon, f.notes, f.icon, f.color).Scan(&placeID)
	require.NoError(t, err, "seed place")

	return placeID
}

// ts returns a fixed, sub-second-free timestamp for deterministic comparisons.
func ts(minuteOffset int) time.Time {
	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	return base.Add(time.Duration(minuteOffset) * time.Minute)
}
