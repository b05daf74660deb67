package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stef-k/Wayfarer-sub010/internal/domain"
	"github.com/stef-k/Wayfarer-sub010/internal/service"
)

func newSweeper(store *memStore, notifier service.Notifier, s domain.DetectionSettings) *service.Sweeper {
	return service.NewSweeper(store, store, service.StaticSettings{Settings: s}, notifier, discardLogger(), time.Minute)
}

// openVisitAt seeds an open visit whose last ping arrived at lastSeen.
func openVisitAt(t *testing.T, store *memStore, lastSeen time.Time) domain.VisitEvent {
	t.Helper()
	placeID := uuid.New()
	v, err := store.PromoteCandidate(context.Background(), domain.VisitEvent{
		UserID:     testUser,
		PlaceID:    &placeID,
		TripID:     uuid.New(),
		TripName:   "Greece 2026",
		PlaceName:  "Acropolis",
		ArrivedAt:  lastSeen.Add(-30 * time.Minute),
		LastSeenAt: lastSeen,
	})
	require.NoError(t, err)
	return v
}

// Scenario: open visit last seen 60 minutes ago with a 45 minute staleness
// threshold closes at its own last_seen_at, not at sweep time.
func TestSweeper_ClosesStaleVisitAtLastSeen(t *testing.T) {
	store := newMemStore()
	notifier := &recordingNotifier{}
	sw := newSweeper(store, notifier, testSettings()) // endVisitAfter=45m
	now := t0

	stale := openVisitAt(t, store, now.Add(-60*time.Minute))

	require.NoError(t, sw.RunSweep(context.Background(), now))

	closed, err := store.GetByID(context.Background(), stale.ID)
	require.NoError(t, err)
	require.NotNil(t, closed.EndedAt)
	assert.True(t, closed.EndedAt.Equal(now.Add(-60*time.Minute)),
		"ended_at must be the stale last_seen_at, not the sweep time")

	require.Len(t, notifier.ended, 1)
	assert.Equal(t, stale.ID, notifier.ended[0].VisitID)
	assert.Equal(t, domain.EventTypeVisitEnded, notifier.ended[0].Type)
}

func TestSweeper_LeavesFreshVisitOpen(t *testing.T) {
	store := newMemStore()
	notifier := &recordingNotifier{}
	sw := newSweeper(store, notifier, testSettings())
	now := t0

	fresh := openVisitAt(t, store, now.Add(-10*time.Minute))

	require.NoError(t, sw.RunSweep(context.Background(), now))

	v, err := store.GetByID(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Nil(t, v.EndedAt)
	assert.Empty(t, notifier.ended)
}

func TestSweeper_PurgesStaleCandidates(t *testing.T) {
	store := newMemStore()
	sw := newSweeper(store, &recordingNotifier{}, testSettings()) // candidateStale=60m
	ctx := context.Background()
	now := t0

	_, err := store.RecordHit(ctx, testUser, uuid.New(), now.Add(-90*time.Minute), time.Hour)
	require.NoError(t, err)
	keptPlace := uuid.New()
	_, err = store.RecordHit(ctx, testUser, keptPlace, now.Add(-10*time.Minute), time.Hour)
	require.NoError(t, err)

	require.NoError(t, sw.RunSweep(ctx, now))

	assert.Len(t, store.cands, 1, "only the stale candidate is purged")
	_, err = store.Get(ctx, testUser, keptPlace)
	assert.NoError(t, err)
}

// Running the sweep twice with no intervening pings must be a no-op the
// second time: same final state, no duplicate notifications.
func TestSweeper_Idempotent(t *testing.T) {
	store := newMemStore()
	notifier := &recordingNotifier{}
	sw := newSweeper(store, notifier, testSettings())
	ctx := context.Background()
	now := t0

	stale := openVisitAt(t, store, now.Add(-2*time.Hour))
	_, err := store.RecordHit(ctx, testUser, uuid.New(), now.Add(-3*time.Hour), time.Hour)
	require.NoError(t, err)

	require.NoError(t, sw.RunSweep(ctx, now))
	afterFirst, err := store.GetByID(ctx, stale.ID)
	require.NoError(t, err)

	require.NoError(t, sw.RunSweep(ctx, now))
	afterSecond, err := store.GetByID(ctx, stale.ID)
	require.NoError(t, err)

	assert.Equal(t, afterFirst, afterSecond)
	assert.Empty(t, store.cands)
	assert.Len(t, notifier.ended, 1, "second sweep must not re-notify")
}

// A failure closing visits must not prevent the candidate purge pass —
// the passes are independent and the next scheduled run compensates.
func TestSweeper_ClosePassFailureDoesNotBlockPurge(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	now := t0

	_, err := store.RecordHit(ctx, testUser, uuid.New(), now.Add(-2*time.Hour), time.Hour)
	require.NoError(t, err)

	closeErr := errors.New("close batch failed")
	failing := &failingVisitRepo{memStore: store, closeErr: closeErr}
	sw := service.NewSweeper(store, failing, service.StaticSettings{Settings: testSettings()},
		&recordingNotifier{}, discardLogger(), time.Minute)

	err = sw.RunSweep(ctx, now)

	assert.ErrorIs(t, err, closeErr, "the failure is still reported")
	assert.Empty(t, store.cands, "purge pass ran despite the close failure")
}

// failingVisitRepo fails CloseStale while delegating everything else.
type failingVisitRepo struct {
	*memStore
	closeErr error
}

func (r *failingVisitRepo) CloseStale(context.Context, time.Time) ([]domain.VisitEvent, error) {
	return nil, r.closeErr
}

// End-to-end through the engine: confirm, go silent, sweep, return — the
// revisit opens a second (closed + open) pair of events, never two opens.
func TestSweeper_RevisitAfterCloseOpensNewVisit(t *testing.T) {
	store := newMemStore()
	notifier := &recordingNotifier{}
	d := newDetector(placeAt(nearPlace()), store, notifier, testSettings())
	sw := newSweeper(store, notifier, testSettings())
	ctx := context.Background()

	// Visit one: two pings, then silence.
	require.NoError(t, d.ProcessPing(ctx, pingAt(t0, nil)))
	require.NoError(t, d.ProcessPing(ctx, pingAt(t0.Add(5*time.Minute), nil)))

	// Sweep an hour later closes it.
	require.NoError(t, sw.RunSweep(ctx, t0.Add(65*time.Minute)))
	require.Len(t, notifier.ended, 1)

	// Visit two: the user comes back the next day.
	day2 := t0.Add(24 * time.Hour)
	require.NoError(t, d.ProcessPing(ctx, pingAt(day2, nil)))
	require.NoError(t, d.ProcessPing(ctx, pingAt(day2.Add(3*time.Minute), nil)))

	all, err := store.ListByUser(ctx, testUser, nil, domain.PaginationParams{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, all, 2, "a revisit is a new event")

	var open int
	for _, v := range all {
		if v.Open() {
			open++
		}
	}
	assert.Equal(t, 1, open, "at most one open visit per (user, place)")
	assert.Len(t, notifier.started, 2)
}
