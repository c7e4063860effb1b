package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gymdesk/internal/billing"
	"gymdesk/internal/core"
	"gymdesk/internal/metrics"
	"gymdesk/internal/store"
)

// ProjectorStore is what the status projector needs from a backend.
type ProjectorStore interface {
	store.ClientStore
	store.PaymentStore
}

// StatusProjector keeps the stored client status in line with the status
// derived from payment history. Only active and late are projected;
// suspended and cancelled are set by staff and left alone.
type StatusProjector struct {
	store   ProjectorStore
	metrics *metrics.Recorder
}

// ProjectionResult summarises a full projection run.
type ProjectionResult struct {
	Checked int
	Changed int
}

func NewStatusProjector(st ProjectorStore, rec *metrics.Recorder) *StatusProjector {
	return &StatusProjector{store: st, metrics: rec}
}

// Derive returns the status a client should carry given its payments.
func Derive(client core.Client, payments []core.Payment, today time.Time) core.ClientStatus {
	switch client.Status {
	case core.ClientActive, core.ClientLate:
	default:
		return client.Status
	}
	if billing.IsLate(client, payments, today) {
		return core.ClientLate
	}
	return core.ClientActive
}

// ProjectClient recomputes one client's status and stores it if it changed.
func (p *StatusProjector) ProjectClient(ctx context.Context, clientID string, today time.Time) (core.ClientStatus, error) {
	client, err := p.store.GetClient(ctx, clientID)
	if err != nil {
		return "", fmt.Errorf("get client: %w", err)
	}
	payments, err := p.store.ListPaymentsByClient(ctx, clientID)
	if err != nil {
		return "", fmt.Errorf("list payments: %w", err)
	}
	if _, err := p.apply(ctx, client, payments, today); err != nil {
		return "", err
	}
	return Derive(client, payments, today), nil
}

// ProjectAll recomputes every client, typically after a month rollover.
func (p *StatusProjector) ProjectAll(ctx context.Context, today time.Time) (ProjectionResult, error) {
	clients, err := p.store.ListClients(ctx, store.ClientFilter{})
	if err != nil {
		return ProjectionResult{}, fmt.Errorf("list clients: %w", err)
	}
	payments, err := p.store.ListPayments(ctx)
	if err != nil {
		return ProjectionResult{}, fmt.Errorf("list payments: %w", err)
	}
	byClient := make(map[string][]core.Payment)
	for _, pay := range payments {
		byClient[pay.ClientID] = append(byClient[pay.ClientID], pay)
	}

	var res ProjectionResult
	for i, c := range clients {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Checked++
		changed, err := p.apply(ctx, c, byClient[c.ID], today)
		if err != nil {
			return res, err
		}
		if changed {
			res.Changed++
			clients[i].Status = Derive(c, byClient[c.ID], today)
		}
	}
	p.metrics.SetClientStatusCounts(billing.StatusCounts(clients))
	slog.InfoContext(ctx, "Client statuses projected", "checked", res.Checked, "changed", res.Changed)
	return res, nil
}

func (p *StatusProjector) apply(ctx context.Context, client core.Client, payments []core.Payment, today time.Time) (bool, error) {
	next := Derive(client, payments, today)
	if next == client.Status {
		return false, nil
	}
	if err := p.store.UpdateClientStatus(ctx, client.ID, next); err != nil {
		return false, fmt.Errorf("update client %s status: %w", client.ID, err)
	}
	slog.InfoContext(ctx, "Client status changed",
		"client_id", client.ID,
		"from", client.Status,
		"to", next)
	return true, nil
}
