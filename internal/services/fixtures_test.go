package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gymdesk/internal/amqp"
	"gymdesk/internal/core"
	"gymdesk/internal/storage/memory"
	"gymdesk/internal/store"
)

var deskPrincipal = store.ContextPrincipal{Fallback: "front-desk"}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, ev *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, ev := range p.events {
		if ev.Type == eventType {
			n++
		}
	}
	return n
}

var errBrokerDown = errors.New("broker down")

func at(year, month, day, hour int) time.Time {
	return time.Date(year, time.Month(month), day, hour, 0, 0, 0, time.UTC)
}

func seedProduct(t *testing.T, st *memory.Store, id string, priceCents int64, stock, min int) {
	t.Helper()
	p := core.Product{
		ID:            id,
		Name:          "Product " + id,
		Category:      "drinks",
		Price:         core.Money{Cents: priceCents},
		StockQuantity: stock,
		MinStockLevel: min,
	}
	if err := st.InsertProduct(context.Background(), p); err != nil {
		t.Fatalf("seed product: %v", err)
	}
}

func seedClient(t *testing.T, st *memory.Store, id string, enrolled core.Date, feeCents int64, status core.ClientStatus) core.Client {
	t.Helper()
	c := core.Client{
		ID:             id,
		FullName:       "Client " + id,
		Email:          id + "@example.com",
		EnrollmentDate: enrolled,
		MonthlyFee:     core.Money{Cents: feeCents},
		Status:         status,
	}
	if err := st.InsertClient(context.Background(), c); err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return c
}

func seedStaff(t *testing.T, st *memory.Store, id, code string) core.Staff {
	t.Helper()
	s := core.Staff{ID: id, Name: "Staff " + id, Role: "trainer", StaffCode: code}
	if err := st.InsertStaff(context.Background(), s); err != nil {
		t.Fatalf("seed staff: %v", err)
	}
	return s
}

func stockOf(t *testing.T, st *memory.Store, id string) int {
	t.Helper()
	p, err := st.GetProduct(context.Background(), id)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	return p.StockQuantity
}

func salesOn(t *testing.T, st *memory.Store, day time.Time) []core.Sale {
	t.Helper()
	sales, err := st.ListSalesBetween(context.Background(), day.AddDate(0, 0, -1), day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	return sales
}
