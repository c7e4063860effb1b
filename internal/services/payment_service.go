package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gymdesk/internal/amqp"
	"gymdesk/internal/core"
	"gymdesk/internal/metrics"
	"gymdesk/internal/store"

	"github.com/google/uuid"
)

// PaymentStore is what payment recording needs from a backend.
type PaymentStore interface {
	store.ClientStore
	store.PaymentStore
}

// PaymentService records membership fee payments. Payments are never edited;
// a correction is another payment.
type PaymentService struct {
	store     PaymentStore
	principal store.PrincipalProvider
	projector *StatusProjector
	timelines *TimelineService
	events    EventPublisher
	metrics   *metrics.Recorder
}

func NewPaymentService(
	st PaymentStore,
	principal store.PrincipalProvider,
	projector *StatusProjector,
	timelines *TimelineService,
	events EventPublisher,
	rec *metrics.Recorder,
) *PaymentService {
	return &PaymentService{
		store:     st,
		principal: principal,
		projector: projector,
		timelines: timelines,
		events:    events,
		metrics:   rec,
	}
}

// Record stores a payment stamped with the current principal and returns the
// receipt data for it. The client's cached timelines are dropped and its
// stored status is re-projected.
func (s *PaymentService) Record(ctx context.Context, in core.NewPayment, now time.Time) (core.Payment, core.Receipt, error) {
	if err := in.Validate(); err != nil {
		return core.Payment{}, core.Receipt{}, err
	}
	client, err := s.store.GetClient(ctx, in.ClientID)
	if err != nil {
		return core.Payment{}, core.Receipt{}, fmt.Errorf("get client: %w", err)
	}
	createdBy, err := s.principal.CurrentPrincipal(ctx)
	if err != nil {
		return core.Payment{}, core.Receipt{}, err
	}

	p := core.Payment{
		ID:            uuid.NewString(),
		ClientID:      in.ClientID,
		Amount:        in.Amount,
		PaymentDate:   in.PaymentDate,
		MonthsCovered: append([]core.PeriodKey(nil), in.MonthsCovered...),
		Method:        in.Method,
		CreatedBy:     createdBy,
		CreatedAt:     now.UTC(),
	}
	if err := s.store.InsertPayment(ctx, p); err != nil {
		return core.Payment{}, core.Receipt{}, fmt.Errorf("insert payment: %w", err)
	}

	slog.InfoContext(ctx, "Payment recorded",
		"payment_id", p.ID,
		"client_id", p.ClientID,
		"amount_cents", p.Amount.Cents,
		"months", len(p.MonthsCovered),
		"method", p.Method)

	if s.projector != nil {
		if _, err := s.projector.ProjectClient(ctx, p.ClientID, now); err != nil {
			slog.WarnContext(ctx, "Failed to project client status", "client_id", p.ClientID, "error", err)
		}
	}
	// After projecting, so a read that raced the status update is dropped.
	s.timelines.InvalidateClient(p.ClientID)
	s.metrics.PaymentRecorded(p)
	publish(ctx, s.events, s.metrics, amqp.NewPaymentRecorded(p))

	return p, core.NewReceipt(p, client), nil
}

// History lists a client's payments, oldest first.
func (s *PaymentService) History(ctx context.Context, clientID string) ([]core.Payment, error) {
	if _, err := s.store.GetClient(ctx, clientID); err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}
	return s.store.ListPaymentsByClient(ctx, clientID)
}
