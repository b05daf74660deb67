// Package handler implements the HTTP surface of the visit detection core.
// All handlers are methods on Server. They are thin adapters: decode, call a
// service, encode — no business logic lives here.
package handler

import (
	"context"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stef-k/Wayfarer-sub010/internal/domain"
)

// PingProcessor defines the detection operation the ping handler depends on.
// Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without touching the database or service layer.
type PingProcessor interface {
	ProcessPing(ctx context.Context, ping domain.Ping) error
}

// VisitReader defines the visit-history reads the visit handlers depend on.
type VisitReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.VisitEvent, error)
	ListByUser(ctx context.Context, userID uuid.UUID, openOnly *bool, p domain.PaginationParams) ([]domain.VisitEvent, error)
}

// Server holds the dependencies shared by all HTTP handlers.
// Methods are in endpoint-specific files but all operate on this struct.
type Server struct {
	detector PingProcessor
	visits   VisitReader
}

// NewServer constructs the Server with all its dependencies.
func NewServer(detector PingProcessor, visits VisitReader) *Server {
	return &Server{detector: detector, visits: visits}
}

// Routes registers all endpoints on a fresh chi router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/location/ping", s.PostPing)
		r.Get("/users/{userID}/visits", s.ListVisits)
		r.Get("/visits/{visitID}", s.GetVisit)
	})
	return r
}
