package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stef-k/Wayfarer-sub010/internal/domain"
)

func sampleVisit(userID uuid.UUID) domain.VisitEvent {
	placeID := uuid.New()
	arrived := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	lastSeen := arrived.Add(25 * time.Minute)
	return domain.VisitEvent{
		ID:         uuid.New(),
		UserID:     userID,
		PlaceID:    &placeID,
		TripID:     uuid.New(),
		TripName:   "Greece 2026",
		RegionName: "Attica",
		PlaceName:  "Acropolis",
		PlaceLat:   37.9715,
		PlaceLon:   23.7257,
		Icon:       "castle",
		Color:      "#aa3311",
		ArrivedAt:  arrived,
		LastSeenAt: lastSeen,
	}
}

func TestListVisits_OK(t *testing.T) {
	userID := uuid.New()
	visit := sampleVisit(userID)

	var gotOpen *bool
	var gotPage domain.PaginationParams
	reader := &mockVisitReader{
		listByUser: func(_ context.Context, id uuid.UUID, openOnly *bool, p domain.PaginationParams) ([]domain.VisitEvent, error) {
			assert.Equal(t, userID, id)
			gotOpen = openOnly
			gotPage = p
			return []domain.VisitEvent{visit}, nil
		},
	}

	rec := serve(t, nil, reader, http.MethodGet, "/api/v1/users/"+userID.String()+"/visits?open=true&page=2&limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, gotOpen)
	assert.True(t, *gotOpen)
	assert.Equal(t, 2, gotPage.Page)
	assert.Equal(t, 10, gotPage.Limit)

	var body struct {
		Visits []struct {
			ID           uuid.UUID `json:"id"`
			TripName     string    `json:"trip_name"`
			PlaceName    string    `json:"place_name"`
			DwellMinutes int       `json:"dwell_minutes"`
		} `json:"visits"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Visits, 1)
	assert.Equal(t, visit.ID, body.Visits[0].ID)
	assert.Equal(t, "Greece 2026", body.Visits[0].TripName)
	assert.Equal(t, "Acropolis", body.Visits[0].PlaceName)
	assert.Equal(t, 25, body.Visits[0].DwellMinutes)
}

func TestListVisits_EmptyIsArray(t *testing.T) {
	userID := uuid.New()
	reader := &mockVisitReader{
		listByUser: func(context.Context, uuid.UUID, *bool, domain.PaginationParams) ([]domain.VisitEvent, error) {
			return []domain.VisitEvent{}, nil
		},
	}

	rec := serve(t, nil, reader, http.MethodGet, "/api/v1/users/"+userID.String()+"/visits", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"visits":[]}`, rec.Body.String())
}

func TestListVisits_BadUserID(t *testing.T) {
	rec := serve(t, nil, &mockVisitReader{}, http.MethodGet, "/api/v1/users/not-a-uuid/visits", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid user id")
}

func TestListVisits_BadOpenFilter(t *testing.T) {
	rec := serve(t, nil, &mockVisitReader{}, http.MethodGet, "/api/v1/users/"+uuid.NewString()+"/visits?open=maybe", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "open must be true or false")
}

func TestGetVisit_OK(t *testing.T) {
	userID := uuid.New()
	visit := sampleVisit(userID)
	ended := visit.LastSeenAt
	visit.EndedAt = &ended

	reader := &mockVisitReader{
		getByID: func(_ context.Context, id uuid.UUID) (domain.VisitEvent, error) {
			assert.Equal(t, visit.ID, id)
			return visit, nil
		},
	}

	rec := serve(t, nil, reader, http.MethodGet, "/api/v1/visits/"+visit.ID.String(), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body visitJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, visit.ID, body.ID)
	assert.Equal(t, "Attica", body.RegionName)
	require.NotNil(t, body.EndedAt)
	assert.True(t, body.EndedAt.Equal(visit.LastSeenAt))
}

type visitJSON struct {
	ID         uuid.UUID  `json:"id"`
	RegionName string     `json:"region_name"`
	EndedAt    *time.Time `json:"ended_at"`
}

func TestGetVisit_NotFound(t *testing.T) {
	reader := &mockVisitReader{
		getByID: func(context.Context, uuid.UUID) (domain.VisitEvent, error) {
			return domain.VisitEvent{}, domain.ErrNotFound
		},
	}

	rec := serve(t, nil, reader, http.MethodGet, "/api/v1/visits/"+uuid.NewString(), "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found")
}

func TestGetVisit_BadID(t *testing.T) {
	rec := serve(t, nil, &mockVisitReader{}, http.MethodGet, "/api/v1/visits/42", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetVisit_ReadFailure(t *testing.T) {
	reader := &mockVisitReader{
		getByID: func(context.Context, uuid.UUID) (domain.VisitEvent, error) {
			return domain.VisitEvent{}, errors.New("connection refused")
		},
	}

	rec := serve(t, nil, reader, http.MethodGet, "/api/v1/visits/"+uuid.NewString(), "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}
