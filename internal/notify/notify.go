// Package notify provides the outbound side of visit lifecycle events:
// implementations of service.Notifier that push visit_started / visit_ended
// payloads to downstream consumers. All implementations are best-effort —
// a failed delivery is logged and dropped, never retried, and never affects
// the state transition that produced the event.
package notify

import (
	"context"

	"github.com/stef-k/Wayfarer-sub010/internal/domain"
	"github.com/stef-k/Wayfarer-sub010/internal/service"
)

// Multi fans one notification out to several notifiers in order.
type Multi []service.Notifier

// NewMulti builds a fan-out notifier from the given notifiers.
func NewMulti(notifiers ...service.Notifier) Multi {
	return Multi(notifiers)
}

// VisitStarted forwards the event to every notifier.
func (m Multi) VisitStarted(ctx context.Context, event domain.VisitStarted) {
	for _, n := range m {
		n.VisitStarted(ctx, event)
	}
}

// VisitEnded forwards the event to every notifier.
func (m Multi) VisitEnded(ctx context.Context, event domain.VisitEnded) {
	for _, n := range m {
		n.VisitEnded(ctx, event)
	}
}
