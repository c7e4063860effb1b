package google

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gymdesk/internal/core"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{})
	if err == nil {
		t.Fatal("expected error for missing spreadsheet id")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Options{SpreadsheetID: "sheet-1"})
	if err == nil {
		t.Fatal("expected error without credentials")
	}
	if !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_UnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Options{
		SpreadsheetID:      "sheet-1",
		ServiceAccountFile: t.TempDir() + "/missing.json",
	})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")
	if _, err := NewFromEnv(context.Background()); err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := newClient(nil, "sheet-1", Options{})
	if c.paymentsBase != "Payments" || c.salesBase != "Sales" {
		t.Errorf("unexpected sheet names %q %q", c.paymentsBase, c.salesBase)
	}
	if c.loc != time.UTC {
		t.Errorf("default location should be UTC")
	}
}

func TestAppendWithoutService(t *testing.T) {
	c := newClient(nil, "sheet-1", Options{})
	ctx := context.Background()

	_, err := c.AppendPayment(ctx, core.Payment{ID: "p1", PaymentDate: core.NewDate(2024, 3, 1)}, "Maria")
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Errorf("expected not initialized error, got %v", err)
	}

	_, err = c.AppendSale(ctx, core.Sale{}, "Water")
	if !errors.Is(err, core.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for sale without id, got %v", err)
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Payments", 2024, "2024 Payments"},
		{"2023 Payments", 2024, "2023 Payments"},
		{"  Sales ", 2025, "2025 Sales"},
		{"", 2024, ""},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}
