package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finanzas/internal/amqp"
	"finanzas/internal/analytics"
	"finanzas/internal/auth"
	"finanzas/internal/backend"
	"finanzas/internal/cache"
	"finanzas/internal/cli"
	apphttp "finanzas/internal/http"
	"finanzas/internal/log"
	"finanzas/internal/services"
)

const snapshotCacheSize = 1000

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp, os.Stdout)
	cfg := cli.LoadAndValidateConfig(logger)

	viewLoc, err := analytics.LoadLocation(cfg.ViewTimezone)
	if err != nil {
		logger.Error("Invalid view timezone", log.FieldError, err)
		os.Exit(1)
	}

	store, err := backend.Open(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to open storage backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	// The broker is optional: without it changes are not mirrored, but the
	// API keeps working.
	var (
		amqpClient *amqp.Client
		publisher  services.Publisher
	)
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without mirroring", log.FieldError, err)
		} else {
			publisher = amqpClient
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	issuer, err := auth.NewIssuer(cfg.AuthSigningKey, cfg.AuthExchangeSecret, cfg.AuthTokenTTL)
	if err != nil {
		logger.Error("Failed to initialize token issuer", log.FieldError, err)
		os.Exit(1)
	}

	events := services.NewEvents(publisher)
	eval := analytics.New(analytics.WithViewLocation(viewLoc))

	caches := cache.NewManager()
	var snapshots *cache.LRUCache[services.Snapshot]
	if cfg.CacheTTL > 0 {
		snapshots = cache.NewLRUCache[services.Snapshot](snapshotCacheSize, cfg.CacheTTL)
		caches.Register(snapshots)
		caches.StartCleanup(time.Minute)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Transactions: services.NewTransactionService(store.Store, eval, events),
		Goals:        services.NewGoalService(store.Store, events),
		Reminders:    services.NewReminderService(store.Store, events),
		Budget:       services.NewBudgetService(store.Store, events),
		Dashboard:    services.NewDashboardService(store.Store, eval, snapshots, events),
		Issuer:       issuer,
		Logger:       logger,
		Storage:      store.Store,
		Snapshots:    snapshots,
		ViewLocation: viewLoc,
		RateLimitRPM: cfg.RateLimitRPM,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("Failed to close AMQP client", log.FieldError, err)
			}
		}
		if err := store.Close(); err != nil {
			logger.Warn("Failed to close storage backend", log.FieldError, err)
		}
	})

	logger.Info("Starting finanzas server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"view_timezone", viewLoc.String(),
		"amqp_enabled", publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
