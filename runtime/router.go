package runtime

import (
	"context"
	"fanous-live/contract"
	"fanous-live/domain"
	"fanous-live/observability"
	"log/slog"
)

// Router delivers envelopes to the users currently present in the registry.
// Delivery is best-effort and at most once: offline recipients are skipped,
// a failing transport only affects its own recipient, nothing is retried.
type Router struct {
	log      *slog.Logger
	registry contract.IRegistry
}

func NewRouter(log *slog.Logger, registry contract.IRegistry) *Router {
	return &Router{log: log, registry: registry}
}

// Deliver sends the same envelope to every distinct recipient.
func (r *Router) Deliver(ctx context.Context, recipients []string, envelope domain.Envelope) domain.UserSet {
	return r.DeliverEach(ctx, recipients, func(string) domain.Envelope { return envelope })
}

// DeliverEach builds one envelope per recipient with viewFor.
// The returned set holds the users whose connection accepted the envelope.
func (r *Router) DeliverEach(ctx context.Context, recipients []string, viewFor contract.ViewFunc) domain.UserSet {
	delivered := domain.NewUserSet()
	seen := domain.NewUserSet()

	for _, userID := range recipients {
		if seen.Has(userID) {
			continue
		}
		seen.Add(userID)

		conn, ok := r.registry.Connection(userID)
		if !ok {
			observability.RecordDelivery(observability.OutcomeUnreachable)
			r.log.Debug("Recipient unreachable", "user_id", userID)
			continue
		}
		if r.send(ctx, userID, conn, viewFor(userID)) {
			delivered.Add(userID)
		}
	}
	return delivered
}

// Broadcast sends envelope to every registered connection.
func (r *Router) Broadcast(ctx context.Context, envelope domain.Envelope) domain.UserSet {
	delivered := domain.NewUserSet()
	for _, entry := range r.registry.Online() {
		conn, ok := r.registry.Connection(entry.UserID)
		if !ok {
			// Unregistered between the snapshot and the lookup
			continue
		}
		if r.send(ctx, entry.UserID, conn, envelope) {
			delivered.Add(entry.UserID)
		}
	}
	return delivered
}

func (r *Router) send(ctx context.Context, userID string, conn contract.Connection, envelope domain.Envelope) bool {
	if err := conn.Send(ctx, envelope); err != nil {
		observability.RecordDelivery(observability.OutcomeFailed)
		r.log.Warn("Delivery failed",
			"user_id", userID,
			"connection_id", conn.ID(),
			"event", envelope.Event,
			"error", err)
		return false
	}
	observability.RecordDelivery(observability.OutcomeDelivered)
	return true
}
