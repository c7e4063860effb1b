package services

import (
	"context"
	"fmt"
	"time"

	"gymdesk/internal/billing"
	"gymdesk/internal/cache"
	"gymdesk/internal/core"
)

// TimelineStore is what timeline reads need from a backend.
type TimelineStore interface {
	GetClient(ctx context.Context, id string) (core.Client, error)
	ListPaymentsByClient(ctx context.Context, clientID string) ([]core.Payment, error)
}

// ClientTimeline is a client with the status of every month of one year.
type ClientTimeline struct {
	Client        core.Client          `json:"client"`
	Year          int                  `json:"year"`
	Months        []billing.MonthEntry `json:"months"`
	OverdueMonths []core.PeriodKey     `json:"overdue_months"`
}

// TimelineService serves client timelines through a cache. Entries depend
// on the current month, so the key includes it and a month rollover simply
// misses. Recording a payment invalidates every entry of that client.
type TimelineService struct {
	store  TimelineStore
	loader *cache.Loading[ClientTimeline]
}

// NewTimelineService caches through c; a nil c disables caching.
func NewTimelineService(st TimelineStore, c cache.Cache[ClientTimeline]) *TimelineService {
	s := &TimelineService{store: st}
	if c != nil {
		s.loader = cache.NewLoading(c)
	}
	return s
}

func (s *TimelineService) Timeline(ctx context.Context, clientID string, year int, today time.Time) (ClientTimeline, error) {
	if year < 1 || year > 9999 {
		return ClientTimeline{}, fmt.Errorf("%w: year %d", core.ErrInvalidPeriod, year)
	}
	load := func(ctx context.Context) (ClientTimeline, error) {
		return s.load(ctx, clientID, year, today)
	}
	if s.loader == nil {
		return load(ctx)
	}
	key := fmt.Sprintf("%s%d|%s", clientKeyPrefix(clientID), year, core.PeriodOf(today))
	return s.loader.Get(ctx, key, load)
}

func (s *TimelineService) load(ctx context.Context, clientID string, year int, today time.Time) (ClientTimeline, error) {
	client, err := s.store.GetClient(ctx, clientID)
	if err != nil {
		return ClientTimeline{}, fmt.Errorf("get client: %w", err)
	}
	payments, err := s.store.ListPaymentsByClient(ctx, clientID)
	if err != nil {
		return ClientTimeline{}, fmt.Errorf("list payments: %w", err)
	}
	return ClientTimeline{
		Client:        client,
		Year:          year,
		Months:        billing.Timeline(client, payments, year, today),
		OverdueMonths: billing.OverdueMonths(client, payments, today),
	}, nil
}

// InvalidateClient drops every cached timeline of clientID.
func (s *TimelineService) InvalidateClient(clientID string) {
	if s == nil || s.loader == nil {
		return
	}
	s.loader.Invalidate(clientKeyPrefix(clientID))
}

func clientKeyPrefix(clientID string) string {
	return clientID + "|"
}
