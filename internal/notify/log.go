package notify

import (
	"context"
	"log/slog"

	"github.com/stef-k/Wayfarer-sub010/internal/domain"
)

// Log writes each visit event as a structured log line. It doubles as the
// audit trail when no other notifier is configured.
type Log struct {
	log *slog.Logger
}

// NewLog constructs a Log notifier writing through the given logger.
func NewLog(log *slog.Logger) *Log {
	return &Log{log: log}
}

// VisitStarted logs a visit_started event.
func (l *Log) VisitStarted(ctx context.Context, event domain.VisitStarted) {
	l.log.InfoContext(ctx, "notify",
		"type", event.Type,
		"visit_id", event.VisitID,
		"user_id", event.UserID,
		"place_name", event.PlaceName,
		"trip_name", event.TripName,
		"arrived_at", event.ArrivedAt,
	)
}

// VisitEnded logs a visit_ended event.
func (l *Log) VisitEnded(ctx context.Context, event domain.VisitEnded) {
	l.log.InfoContext(ctx, "notify",
		"type", event.Type,
		"visit_id", event.VisitID,
		"user_id", event.UserID,
		"ended_at", event.EndedAt,
		"dwell_minutes", event.DwellMinutes,
	)
}
