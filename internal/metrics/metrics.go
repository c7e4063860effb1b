// Package metrics exposes Prometheus collectors for the gym back office.
// A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"gymdesk/internal/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gymdesk"

type Recorder struct {
	registry *prometheus.Registry

	paymentsRecorded *prometheus.CounterVec
	paymentCents     *prometheus.CounterVec
	salesCommitted   *prometheus.CounterVec
	saleFailures     *prometheus.CounterVec
	productStock     *prometheus.GaugeVec
	lowStock         prometheus.Gauge
	checkIns         *prometheus.CounterVec
	clientsByStatus  *prometheus.GaugeVec
	eventsPublished  *prometheus.CounterVec

	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers every collector on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		paymentsRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_recorded_total",
			Help:      "Total number of membership payments recorded",
		}, []string{"method"}),
		paymentCents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_amount_cents_total",
			Help:      "Sum of recorded payment amounts in cents",
		}, []string{"method"}),
		salesCommitted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_lines_committed_total",
			Help:      "Total number of sale lines committed",
		}, []string{"method"}),
		saleFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_failures_total",
			Help:      "Total number of rejected carts by error kind",
		}, []string{"kind"}),
		productStock: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "product_stock",
			Help:      "Current stock quantity per product",
		}, []string{"product_id", "product_name", "category"}),
		lowStock: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "low_stock_products",
			Help:      "Number of products at or below their minimum stock level",
		}),
		checkIns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "staff_checkins_total",
			Help:      "Staff check-in attempts by outcome",
		}, []string{"outcome"}),
		clientsByStatus: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clients",
			Help:      "Number of clients per stored status",
		}, []string{"status"}),
		eventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_events_published_total",
			Help:      "Ledger events handed to the broker by outcome",
		}, []string{"type", "outcome"}),
		requestCounter: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
	}
}

// Registry exposes the underlying registry for tests and custom exporters.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) PaymentRecorded(p core.Payment) {
	if r == nil {
		return
	}
	r.paymentsRecorded.WithLabelValues(string(p.Method)).Inc()
	r.paymentCents.WithLabelValues(string(p.Method)).Add(float64(p.Amount.Cents))
}

func (r *Recorder) SaleCommitted(sales []core.Sale) {
	if r == nil {
		return
	}
	for _, s := range sales {
		r.salesCommitted.WithLabelValues(string(s.Method)).Inc()
	}
}

func (r *Recorder) SaleFailed(err error) {
	if r == nil {
		return
	}
	r.saleFailures.WithLabelValues(core.KindOf(err).String()).Inc()
}

// SetStock refreshes the stock gauges from a full product listing.
func (r *Recorder) SetStock(products []core.Product) {
	if r == nil {
		return
	}
	low := 0
	for _, p := range products {
		r.productStock.WithLabelValues(p.ID, p.Name, p.Category).Set(float64(p.StockQuantity))
		if p.IsLowStock() {
			low++
		}
	}
	r.lowStock.Set(float64(low))
}

func (r *Recorder) CheckIn(outcome string) {
	if r == nil {
		return
	}
	r.checkIns.WithLabelValues(outcome).Inc()
}

func (r *Recorder) SetClientStatusCounts(counts map[core.ClientStatus]int) {
	if r == nil {
		return
	}
	for status, n := range counts {
		r.clientsByStatus.WithLabelValues(string(status)).Set(float64(n))
	}
}

func (r *Recorder) EventPublished(eventType string, err error) {
	if r == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.eventsPublished.WithLabelValues(eventType, outcome).Inc()
}

// ObserveRequest records one served HTTP request.
func (r *Recorder) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.requestCounter.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	r.requestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}
