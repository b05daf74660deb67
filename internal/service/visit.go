package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/stef-k/Wayfarer-sub010/internal/domain"
	"github.com/stef-k/Wayfarer-sub010/internal/repo"
)

// VisitService exposes read access to the visit ledger for the HTTP surface.
// All mutation goes through the Detector and Sweeper; this service is
// deliberately read-only.
type VisitService struct {
	visits repo.VisitRepo
}

// NewVisitService constructs a VisitService backed by the provided repo.
func NewVisitService(visits repo.VisitRepo) *VisitService {
	return &VisitService{visits: visits}
}

// GetByID returns a single visit by ID.
// Returns domain.ErrNotFound if no visit with that ID exists.
func (s *VisitService) GetByID(ctx context.Context, id uuid.UUID) (domain.VisitEvent, error) {
	result, err := s.visits.GetByID(ctx, id)
	if err != nil {
		return domain.VisitEvent{}, fmt.Errorf("service.VisitService.GetByID: %w", err)
	}
	return result, nil
}

// ListByUser returns one page of a user's visit history, newest first.
// Always returns a non-nil slice so callers can safely range over it.
func (s *VisitService) ListByUser(ctx context.Context, userID uuid.UUID, openOnly *bool, p domain.PaginationParams) ([]domain.VisitEvent, error) {
	visits, err := s.visits.ListByUser(ctx, userID, openOnly, p)
	if err != nil {
		return nil, fmt.Errorf("service.VisitService.ListByUser: %w", err)
	}
	if visits == nil {
		return []domain.VisitEvent{}, nil
	}
	return visits, nil
}
