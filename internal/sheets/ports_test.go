package sheets

import (
	"testing"
	"time"

	"gymdesk/internal/core"
)

func TestDecimal(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{12050, "120.50"},
		{-250, "-2.50"},
	}
	for _, tt := range tests {
		if got := Decimal(core.Money{Cents: tt.cents}); got != tt.want {
			t.Errorf("Decimal(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}

func TestPaymentRow(t *testing.T) {
	p := core.Payment{
		ID:            "pay-1",
		ClientID:      "c1",
		Amount:        core.Money{Cents: 20000},
		PaymentDate:   core.NewDate(2024, 3, 10),
		MonthsCovered: []core.PeriodKey{core.NewPeriod(2024, 2), core.NewPeriod(2024, 3)},
		Method:        core.MethodPix,
		CreatedBy:     "ana",
	}
	row := PaymentRow(p, "Maria")
	if len(row) != len(PaymentHeaders) {
		t.Fatalf("row has %d columns, headers %d", len(row), len(PaymentHeaders))
	}
	want := []any{"2024-03-10", "2024-02, 2024-03", "c1", "Maria", "200.00", "pix", "ana", "pay-1"}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("column %s = %v, want %v", PaymentHeaders[i], row[i], want[i])
		}
	}
}

func TestSaleRowUsesLocation(t *testing.T) {
	s := core.Sale{
		ID:         "sale-1",
		ProductID:  "water",
		Quantity:   2,
		TotalPrice: core.Money{Cents: 700},
		Method:     core.MethodCash,
		SaleDate:   time.Date(2024, 3, 11, 1, 30, 0, 0, time.UTC),
	}
	row := SaleRow(s, "Water", time.FixedZone("BRT", -3*60*60))
	if len(row) != len(SaleHeaders) {
		t.Fatalf("row has %d columns, headers %d", len(row), len(SaleHeaders))
	}
	if row[0] != "2024-03-10" || row[1] != "22:30:00" {
		t.Errorf("date/time = %v %v, want local 2024-03-10 22:30:00", row[0], row[1])
	}
	if row[4] != 2 || row[5] != "7.00" || row[8] != "sale-1" {
		t.Errorf("unexpected row %v", row)
	}
}
