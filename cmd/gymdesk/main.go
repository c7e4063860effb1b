package main

import (
	"context"
	"net/http"
	"time"

	"gymdesk/internal/amqp"
	"gymdesk/internal/cache"
	"gymdesk/internal/cli"
	apphttp "gymdesk/internal/http"
	applog "gymdesk/internal/log"
	"gymdesk/internal/metrics"
	"gymdesk/internal/middleware/ratelimit"
	"gymdesk/internal/services"
	"gymdesk/internal/store"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)
	loc := cfg.Location()

	backend := cli.InitStore(context.Background(), logger, cfg)
	st := backend.Store

	var rec *metrics.Recorder
	if cfg.MetricsEnabled {
		rec = metrics.New()
	}

	// Events are optional; without a broker the ledger export relies on the
	// worker's startup backfill.
	var events services.EventPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without ledger events", "error", err)
		} else {
			amqpClient = c
			events = c
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	cacheManager := cache.NewManager()
	var timelineCache cache.Cache[services.ClientTimeline]
	if cfg.TimelineCacheSize > 0 {
		lru := cache.NewLRUCache[services.ClientTimeline](cfg.TimelineCacheSize, cfg.TimelineCacheTTL)
		cacheManager.Register(lru)
		cacheManager.StartCleanup(cfg.TimelineCacheTTL)
		timelineCache = lru
	}

	principal := store.ContextPrincipal{Fallback: cfg.DefaultPrincipal}
	projector := services.NewStatusProjector(st, rec)
	timelines := services.NewTimelineService(st, timelineCache)
	svc := apphttp.Services{
		Clients:    services.NewClientService(st),
		Payments:   services.NewPaymentService(st, principal, projector, timelines, events, rec),
		Timelines:  timelines,
		Dashboard:  services.NewDashboardService(st),
		Sales:      services.NewSaleService(st, principal, events, rec),
		Products:   services.NewProductService(st, rec),
		Staff:      services.NewStaffService(st),
		Attendance: services.NewAttendanceLedger(st, rec),
		Access:     services.NewAccessService(st, principal),
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:           ":" + cfg.Port,
		RequestTimeout: cfg.RequestTimeout,
		Location:       loc,
		Logger:         logger,
		Metrics:        rec,
		RateLimit:      ratelimit.DefaultConfig(),
		Ready:          st.Ping,
	}, svc)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = cfg.RequestTimeout + 5*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cacheManager.Stop()
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		if err := backend.Cleanup(); err != nil {
			logger.Error("Store close error", "error", err)
		}
	})

	logger.Info("Starting gymdesk server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"timezone", loc.String(),
		"events_enabled", events != nil,
		"metrics_enabled", rec != nil)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		cli.Fatal(logger, "Server error", err)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
