package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gymdesk/internal/core"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.PaymentRecorded(core.Payment{})
	r.SaleCommitted([]core.Sale{{}})
	r.SaleFailed(errors.New("x"))
	r.SetStock([]core.Product{{}})
	r.CheckIn("ok")
	r.EventPublished("sale.committed", nil)
	r.ObserveRequest("GET", "/", 200, time.Millisecond)
	if r.Registry() != nil {
		t.Fatal("expected nil registry")
	}
}

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.PaymentRecorded(core.Payment{Method: core.MethodPix, Amount: core.Money{Cents: 15000}})
	r.PaymentRecorded(core.Payment{Method: core.MethodPix, Amount: core.Money{Cents: 5000}})
	r.SaleFailed(&core.StockError{ProductID: "p", Requested: 6, Available: 5})
	r.SetStock([]core.Product{
		{ID: "a", Name: "Water", StockQuantity: 1, MinStockLevel: 5},
		{ID: "b", Name: "Bar", StockQuantity: 10, MinStockLevel: 5},
	})

	if got := testutil.ToFloat64(r.paymentsRecorded.WithLabelValues("pix")); got != 2 {
		t.Errorf("expected 2 pix payments, got %v", got)
	}
	if got := testutil.ToFloat64(r.paymentCents.WithLabelValues("pix")); got != 20000 {
		t.Errorf("expected 20000 cents, got %v", got)
	}
	if got := testutil.ToFloat64(r.saleFailures.WithLabelValues("conflict")); got != 1 {
		t.Errorf("expected 1 conflict failure, got %v", got)
	}
	if got := testutil.ToFloat64(r.lowStock); got != 1 {
		t.Errorf("expected 1 low stock product, got %v", got)
	}

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "gymdesk_product_stock") {
		t.Error("expected product stock gauge in exposition")
	}
}
