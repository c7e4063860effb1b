package main

import (
	"context"
	"errors"
	"time"

	"gymdesk/internal/amqp"
	"gymdesk/internal/cli"
	"gymdesk/internal/core"
	applog "gymdesk/internal/log"
	"gymdesk/internal/sheets"
	gsheet "gymdesk/internal/sheets/google"
	"gymdesk/internal/sheets/memory"
	"gymdesk/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting gymdesk-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	loc := cfg.Location()

	backend := cli.InitStore(context.Background(), logger, cfg)

	var exporter sheets.LedgerExporter
	if cfg.ExportEnabled() {
		client, err := gsheet.New(context.Background(), gsheet.Options{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			PaymentsSheet:      cfg.GooglePaymentsSheet,
			SalesSheet:         cfg.GoogleSalesSheet,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
			Location:           loc,
		})
		if err != nil {
			cli.Fatal(logger, "Failed to initialize Google Sheets exporter", err)
		}
		exporter = client
		logger.Info("Google Sheets exporter initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		exporter = memory.New(loc)
		logger.Info("Google Sheets disabled - exporting to memory")
	}

	exportWorker := worker.NewExportWorker(backend.Store, exporter)

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			cli.Fatal(logger, "Failed to initialize AMQP client", err)
		}
		amqpClient = c
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		if amqpClient != nil {
			_ = amqpClient.Close()
		}
		if err := backend.Cleanup(); err != nil {
			logger.Error("Store close error", "error", err)
		}
	})

	// Recover records whose events were lost while the worker was down.
	if cfg.BackfillDays > 0 {
		today := core.DateOf(time.Now().In(loc))
		from := core.DateOf(today.AddDate(0, 0, -cfg.BackfillDays))
		if err := exportWorker.Backfill(ctx, from, today, loc); err != nil {
			logger.Error("Startup backfill failed", "error", err)
		}
	}

	if amqpClient == nil {
		logger.Info("AMQP disabled - backfill only, waiting for shutdown")
	} else {
		go func() {
			err := amqpClient.ConsumeLedgerEvents(ctx, exportWorker.HandleEvent)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", "error", err)
			}
		}()
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
