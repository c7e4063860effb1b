package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gymdesk/internal/billing"
	"gymdesk/internal/core"
	"gymdesk/internal/store"

	"github.com/google/uuid"
)

// AccessStore is what the front desk access log needs from a backend.
type AccessStore interface {
	store.ClientStore
	store.PaymentStore
	store.AccessLogStore
}

// AccessResult is returned to the desk when a client walks in. Allowed is
// the desk verdict: only active clients are let through. The entry is
// logged either way.
type AccessResult struct {
	Log           core.AccessLog   `json:"log"`
	Client        core.Client      `json:"client"`
	Allowed       bool             `json:"allowed"`
	CurrentStatus core.MonthStatus `json:"current_status"`
	OverdueMonths []core.PeriodKey `json:"overdue_months"`
}

type AccessService struct {
	store     AccessStore
	principal store.PrincipalProvider
}

func NewAccessService(st AccessStore, principal store.PrincipalProvider) *AccessService {
	return &AccessService{store: st, principal: principal}
}

func (s *AccessService) RecordEntry(ctx context.Context, clientID string, now time.Time) (AccessResult, error) {
	client, err := s.store.GetClient(ctx, clientID)
	if err != nil {
		return AccessResult{}, fmt.Errorf("get client: %w", err)
	}
	admin, err := s.principal.CurrentPrincipal(ctx)
	if err != nil {
		return AccessResult{}, err
	}
	payments, err := s.store.ListPaymentsByClient(ctx, clientID)
	if err != nil {
		return AccessResult{}, fmt.Errorf("list payments: %w", err)
	}

	entry := core.AccessLog{
		ID:        uuid.NewString(),
		ClientID:  clientID,
		Timestamp: now,
		AdminID:   admin,
	}
	if err := s.store.InsertAccessLog(ctx, entry); err != nil {
		return AccessResult{}, fmt.Errorf("insert access log: %w", err)
	}

	res := AccessResult{
		Log:           entry,
		Client:        client,
		Allowed:       client.Status == core.ClientActive,
		CurrentStatus: billing.MonthStatus(client, payments, core.PeriodOf(now), now),
		OverdueMonths: billing.OverdueMonths(client, payments, now),
	}
	if !res.Allowed {
		slog.WarnContext(ctx, "Access blocked",
			"client_id", clientID,
			"status", client.Status)
	}
	if len(res.OverdueMonths) > 0 {
		slog.WarnContext(ctx, "Client entered with overdue months",
			"client_id", clientID,
			"overdue", len(res.OverdueMonths))
	}
	return res, nil
}

// Entries lists the access logs of the calendar day of now.
func (s *AccessService) Entries(ctx context.Context, now time.Time) ([]core.AccessLog, error) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return s.store.ListAccessLogsBetween(ctx, start, start.AddDate(0, 0, 1))
}
