package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"finanzas/internal/amqp"
	"finanzas/internal/analytics"
	"finanzas/internal/cli"
	"finanzas/internal/log"
	gsheet "finanzas/internal/sheets/google"
	"finanzas/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker, os.Stdout)
	logger.Info("Starting finanzas-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Worker configuration validation failed",
			log.FieldError, err,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		os.Exit(1)
	}
	viewLoc, err := analytics.LoadLocation(cfg.ViewTimezone)
	if err != nil {
		logger.Error("Invalid view timezone", log.FieldError, err)
		os.Exit(1)
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	sheetsClient, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, viewLoc)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	mirror := worker.NewMirrorWorker(repo, sheetsClient, cfg.SyncBatchSize)
	poller := worker.NewPoller(mirror, worker.PollerConfig{PollInterval: cfg.SyncInterval})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := poller.Stop(ctx); err != nil {
			logger.Warn("Failed to stop poller", log.FieldError, err)
		}
	})
	ctx = log.WithLogger(ctx, logger)

	// Catch up on rows written while the worker was down.
	if err := mirror.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeChanges(gctx, mirror.HandleChange)
	})
	g.Go(func() error {
		return poller.Start(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
