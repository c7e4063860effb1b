package services

import (
	"context"
	"fmt"
	"time"

	"gymdesk/internal/billing"
	"gymdesk/internal/core"
	"gymdesk/internal/store"

	"golang.org/x/sync/errgroup"
)

// ReportStore is what dashboard and closing reads need from a backend.
type ReportStore interface {
	store.ClientStore
	store.PaymentStore
	store.ProductStore
	store.SaleStore
}

// Dashboard is the front page summary for a range of months.
type Dashboard struct {
	Report         billing.Report            `json:"report"`
	ActiveClients  int                       `json:"active_clients"`
	OverdueClients int                       `json:"overdue_clients"`
	StatusCounts   map[core.ClientStatus]int `json:"status_counts"`
	LowStock       []core.Product            `json:"low_stock"`
}

type DashboardService struct {
	store ReportStore
}

func NewDashboardService(st ReportStore) *DashboardService {
	return &DashboardService{store: st}
}

// Dashboard aggregates revenue and enrollments over [from, to] and counts
// clients by stored status as of today.
func (s *DashboardService) Dashboard(ctx context.Context, from, to core.PeriodKey, today time.Time) (Dashboard, error) {
	if !from.Valid() || !to.Valid() || to.Before(from) {
		return Dashboard{}, fmt.Errorf("%w: range %s..%s", core.ErrInvalidPeriod, from, to)
	}

	var (
		clients  []core.Client
		payments []core.Payment
		products []core.Product
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		clients, err = s.store.ListClients(gctx, store.ClientFilter{})
		if err != nil {
			return fmt.Errorf("list clients: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		payments, err = s.store.ListPaymentsByDateRange(gctx, core.DateOf(from.First()), to.Last())
		if err != nil {
			return fmt.Errorf("list payments: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		products, err = s.store.ListProducts(gctx)
		if err != nil {
			return fmt.Errorf("list products: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{
		Report:         billing.Aggregate(payments, clients, from, to),
		ActiveClients:  billing.ActiveCountAsOf(clients, core.DateOf(today)),
		OverdueClients: billing.OverdueCount(clients),
		StatusCounts:   billing.StatusCounts(clients),
		LowStock:       lowStock(products),
	}
	return d, nil
}

// DailyClosing summarises the fees and sales collected on day. Sale
// timestamps are read in now's location.
func (s *DashboardService) DailyClosing(ctx context.Context, day core.Date, now time.Time) (billing.Closing, error) {
	if err := day.Validate(); err != nil {
		return billing.Closing{}, err
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, 1)

	in := billing.ClosingInput{Day: day, Today: now}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		in.Payments, err = s.store.ListPaymentsByDateRange(gctx, day, day)
		return wrapList("payments", err)
	})
	g.Go(func() error {
		var err error
		in.Sales, err = s.store.ListSalesBetween(gctx, start, end)
		return wrapList("sales", err)
	})
	g.Go(func() error {
		var err error
		in.Clients, err = s.store.ListClients(gctx, store.ClientFilter{})
		return wrapList("clients", err)
	})
	g.Go(func() error {
		var err error
		in.Products, err = s.store.ListProducts(gctx)
		return wrapList("products", err)
	})
	g.Go(func() error {
		var err error
		in.AllPayments, err = s.store.ListPayments(gctx)
		return wrapList("payment history", err)
	})
	if err := g.Wait(); err != nil {
		return billing.Closing{}, err
	}
	return billing.DailyClosing(in), nil
}

func wrapList(what string, err error) error {
	if err != nil {
		return fmt.Errorf("list %s: %w", what, err)
	}
	return nil
}

func lowStock(products []core.Product) []core.Product {
	var out []core.Product
	for _, p := range products {
		if p.IsLowStock() {
			out = append(out, p)
		}
	}
	return out
}
