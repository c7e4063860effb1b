// Package services orchestrates the gym back office: it validates input,
// runs the billing rules and coordinates writes across the store, the
// event bus and the metrics recorder.
package services

import (
	"context"
	"log/slog"

	"gymdesk/internal/amqp"
	"gymdesk/internal/metrics"
)

// EventPublisher is the part of the AMQP client the services depend on.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// publish sends ev after the fact is committed. Failures are logged and
// counted, never returned.
func publish(ctx context.Context, pub EventPublisher, rec *metrics.Recorder, ev *amqp.LedgerEvent) {
	if pub == nil {
		slog.DebugContext(ctx, "Event publisher not available, skipping ledger event", "type", ev.Type, "id", ev.ID)
		return
	}
	err := pub.PublishLedgerEvent(ctx, ev)
	rec.EventPublished(ev.Type, err)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event", "type", ev.Type, "id", ev.ID, "error", err)
	}
}
