package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gymdesk/internal/core"
	"gymdesk/internal/store"
)

func TestWithinTxRestoresSnapshot(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.InsertProduct(ctx, core.Product{ID: "p1", Name: "Water", Price: core.Money{Cents: 500}, StockQuantity: 5}); err != nil {
		t.Fatal(err)
	}

	err := s.WithinTx(ctx, func(tx store.Tx) error {
		if err := tx.DecrementStock(ctx, "p1", 2); err != nil {
			return err
		}
		if err := tx.InsertSale(ctx, core.Sale{ID: "s1", ProductID: "p1", Quantity: 2}); err != nil {
			return err
		}
		return tx.DecrementStock(ctx, "p1", 4)
	})
	if !errors.Is(err, store.ErrConditionFailed) {
		t.Fatalf("expected ErrConditionFailed, got %v", err)
	}

	p, _ := s.GetProduct(ctx, "p1")
	if p.StockQuantity != 5 {
		t.Fatalf("expected stock 5 after rollback, got %d", p.StockQuantity)
	}
	sales, _ := s.ListSalesBetween(ctx, time.Time{}, time.Now().Add(time.Hour))
	if len(sales) != 0 {
		t.Fatalf("expected no sales after rollback, got %d", len(sales))
	}
}

func TestAttendanceUniquePerDay(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.InsertStaff(ctx, core.Staff{ID: "st1", Name: "Rui", StaffCode: "1234"}); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertStaff(ctx, core.Staff{ID: "st2", Name: "Lia", StaffCode: "1234"}); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected duplicate staff code, got %v", err)
	}

	day := core.NewDate(2024, 6, 10)
	if err := s.InsertAttendance(ctx, core.AttendanceRecord{ID: "a1", StaffID: "st1", Date: day}); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertAttendance(ctx, core.AttendanceRecord{ID: "a2", StaffID: "st1", Date: day}); !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if err := s.InsertAttendance(ctx, core.AttendanceRecord{ID: "a3", StaffID: "st1", Date: core.DateOf(day.AddDate(0, 0, 1))}); err != nil {
		t.Fatal(err)
	}

	n, _ := s.PurgeAttendanceExcept(ctx, day)
	if n != 1 {
		t.Fatalf("expected 1 purged record, got %d", n)
	}
	entries, _ := s.ListAttendanceByDate(ctx, day)
	if len(entries) != 1 || entries[0].Staff.Name != "Rui" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestPaymentsRequireClient(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := core.Payment{ID: "p1", ClientID: "c1", PaymentDate: core.NewDate(2024, 1, 1)}
	if err := s.InsertPayment(ctx, p); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.InsertClient(ctx, core.Client{ID: "c1", FullName: "Ana", EnrollmentDate: core.NewDate(2024, 1, 1)}); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertPayment(ctx, p); err != nil {
		t.Fatal(err)
	}
	got, _ := s.ListPaymentsByDateRange(ctx, core.NewDate(2024, 1, 1), core.NewDate(2024, 1, 1))
	if len(got) != 1 {
		t.Fatalf("expected inclusive range to include the payment, got %d", len(got))
	}
}

func TestNewFromFilesSeedsProducts(t *testing.T) {
	dir := t.TempDir()
	seed := "# name;category;price;stock;min\nWater;drinks;5,00;24;6\nbroken line\nProtein bar;food;12.50;3;5\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_products.txt"), []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}
	s := NewFromFiles(dir)
	products, _ := s.ListProducts(context.Background())
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
	if products[0].Name != "Protein bar" || !products[0].IsLowStock() || products[1].Price.Cents != 500 {
		t.Fatalf("unexpected products %+v", products)
	}
}
