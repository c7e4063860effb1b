package main

import (
	"context"
	"time"

	"gymdesk/internal/cli"
	applog "gymdesk/internal/log"
	"gymdesk/internal/metrics"
	"gymdesk/internal/services"
	"gymdesk/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting status-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	backend := cli.InitStore(context.Background(), logger, cfg)

	var rec *metrics.Recorder
	if cfg.MetricsEnabled {
		rec = metrics.New()
	}
	projector := services.NewStatusProjector(backend.Store, rec)
	statusWorker := worker.NewStatusWorker(projector, cfg.StatusRefreshInterval, cfg.Location())

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		if err := backend.Cleanup(); err != nil {
			logger.Error("Store close error", "error", err)
		}
	})

	logger.Info("Projecting client statuses", "interval", cfg.StatusRefreshInterval)
	go func() {
		_ = statusWorker.Run(ctx)
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Status worker shutdown complete")
}
