package http

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	applog "gymdesk/internal/log"
	"gymdesk/internal/metrics"
	"gymdesk/internal/middleware/ratelimit"
	"gymdesk/internal/middleware/security"
	"gymdesk/internal/middleware/trace"
	"gymdesk/internal/services"
	"gymdesk/internal/store"
)

// HeaderPrincipal names the acting desk user. The authenticating proxy in
// front of the API sets it.
const HeaderPrincipal = "X-Principal"

// Services are the operations the API exposes.
type Services struct {
	Clients    *services.ClientService
	Payments   *services.PaymentService
	Timelines  *services.TimelineService
	Dashboard  *services.DashboardService
	Sales      *services.SaleService
	Products   *services.ProductService
	Staff      *services.StaffService
	Attendance *services.AttendanceLedger
	Access     *services.AccessService
}

type Options struct {
	Addr string
	// RequestTimeout bounds every handler; zero disables it.
	RequestTimeout time.Duration
	// Location is the gym's local time zone. Calendar days and billing
	// months are computed in it.
	Location  *time.Location
	Clock     func() time.Time
	Logger    *applog.Logger
	Metrics   *metrics.Recorder
	RateLimit ratelimit.Config
	// Ready reports whether dependencies can serve traffic.
	Ready func(ctx context.Context) error
}

type Server struct {
	http.Server
	svc     Services
	opts    Options
	limiter *ratelimit.Limiter
	tracer  *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(opts Options, svc Services) *Server {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}

	s := &Server{
		svc:     svc,
		opts:    opts,
		limiter: ratelimit.NewLimiter(opts.RateLimit),
		tracer:  trace.NewMiddleware(opts.Logger.WithComponent(applog.ComponentHTTP), extractClientIP),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics.Handler())
	}

	s.route(mux, "POST /clients", "create_client", s.handleCreateClient)
	s.route(mux, "GET /clients", "search_clients", s.handleSearchClients)
	s.route(mux, "GET /clients/{id}", "get_client", s.handleGetClient)
	s.route(mux, "PUT /clients/{id}/status", "set_client_status", s.handleSetClientStatus)
	s.route(mux, "GET /clients/{id}/timeline", "client_timeline", s.handleClientTimeline)
	s.route(mux, "GET /clients/{id}/payments", "client_payments", s.handleClientPayments)

	s.route(mux, "POST /payments", "record_payment", s.handleRecordPayment)
	s.route(mux, "GET /dashboard", "dashboard", s.handleDashboard)
	s.route(mux, "GET /reports/daily-closing", "daily_closing", s.handleDailyClosing)

	s.route(mux, "GET /products", "list_products", s.handleListProducts)
	s.route(mux, "POST /products", "create_product", s.handleCreateProduct)
	s.route(mux, "GET /products/low-stock", "low_stock", s.handleLowStock)
	s.route(mux, "POST /sales", "commit_sale", s.handleCommitSale)

	s.route(mux, "GET /staff", "list_staff", s.handleListStaff)
	s.route(mux, "POST /staff", "create_staff", s.handleCreateStaff)
	s.route(mux, "DELETE /staff/{id}", "delete_staff", s.handleDeleteStaff)
	s.route(mux, "POST /attendance/check-in", "check_in", s.handleCheckIn)
	s.route(mux, "GET /attendance/today", "attendance_today", s.handleAttendanceToday)

	s.route(mux, "POST /access", "record_access", s.handleRecordAccess)
	s.route(mux, "GET /access/today", "access_today", s.handleAccessToday)

	limited := s.limiter.Middleware(extractClientIP, func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldClientIP, extractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path)
		TooManyRequestsError().Write(w)
	})(mux)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(limited)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.tracer.Middleware(headers),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// route registers h under pattern with the per-request concerns: acting
// principal, request timeout and request metrics labelled by op.
func (s *Server) route(mux *http.ServeMux, pattern, op string, h http.HandlerFunc) {
	method, _, _ := strings.Cut(pattern, " ")
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		if p := sanitizeInput(r.Header.Get(HeaderPrincipal)); p != "" {
			ctx = store.WithPrincipal(ctx, p)
			ctx = applog.WithLogger(ctx, applog.FromContext(ctx).With(applog.FieldPrincipal, p))
		}
		if s.opts.RequestTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
			defer cancel()
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r.WithContext(ctx))
		s.opts.Metrics.ObserveRequest(method, op, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// now returns the current time in the gym's location.
func (s *Server) now() time.Time {
	return s.opts.Clock().In(s.opts.Location)
}

// Shutdown stops the rate limiter and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Ready(ctx); err != nil {
			applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "unavailable", "not ready").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}
