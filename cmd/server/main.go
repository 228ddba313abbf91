package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/supplychain/internal/config"
	"github.com/mamadbah2/supplychain/internal/repository"
	"github.com/mamadbah2/supplychain/internal/repository/memory"
	"github.com/mamadbah2/supplychain/internal/repository/mongodb"
	"github.com/mamadbah2/supplychain/internal/repository/sheets"
	"github.com/mamadbah2/supplychain/internal/scheduler"
	"github.com/mamadbah2/supplychain/internal/server/handlers"
	"github.com/mamadbah2/supplychain/internal/server/router"
	"github.com/mamadbah2/supplychain/internal/service/alerts"
	"github.com/mamadbah2/supplychain/internal/service/batches"
	"github.com/mamadbah2/supplychain/internal/service/delivery"
	"github.com/mamadbah2/supplychain/internal/service/directory"
	"github.com/mamadbah2/supplychain/internal/service/distribution"
	"github.com/mamadbah2/supplychain/internal/service/inventory"
	"github.com/mamadbah2/supplychain/internal/service/notify"
	"github.com/mamadbah2/supplychain/internal/service/orders"
	"github.com/mamadbah2/supplychain/internal/service/payments"
	"github.com/mamadbah2/supplychain/pkg/clients/gateway"
	whatsappclient "github.com/mamadbah2/supplychain/pkg/clients/whatsapp"
	"github.com/mamadbah2/supplychain/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	store, closeStore, err := openStore(context.Background(), cfg)
	if err != nil {
		baseLogger.Fatal("failed to init store", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer func() {
		if err := closeStore(context.Background()); err != nil {
			baseLogger.Error("failed to close store", zap.Error(err))
		}
	}()

	inboxSink := notify.NewStoreSink(store)
	var sink notify.Sink = inboxSink
	if cfg.WhatsApp.Enabled() {
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
		sink = notify.NewFanout(inboxSink, notify.NewWhatsAppSink(store, whatsClient, baseLogger.Named("notify.whatsapp")))
		baseLogger.Info("whatsapp push notifications enabled")
	} else {
		baseLogger.Warn("whatsapp credentials missing, notifications stay in-app only")
	}

	inventorySvc := inventory.NewService(store, baseLogger.Named("svc.inventory"))
	if cfg.Sheets.Enabled() {
		ledgerSheet, err := sheets.NewLedgerSheet(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init ledger sheet", zap.Error(err))
		}
		if err := ledgerSheet.EnsureHeader(context.Background()); err != nil {
			baseLogger.Warn("ledger sheet header not written", zap.Error(err))
		}
		inventorySvc.SetObserver(sheets.NewLedgerMirror(ledgerSheet))
		baseLogger.Info("stock ledger mirror enabled", zap.String("range", cfg.Sheets.LedgerRange))
	}

	directorySvc := directory.NewService(store, baseLogger.Named("svc.directory"))
	batchSvc := batches.NewService(store, inventorySvc, baseLogger.Named("svc.batches"))
	distributionSvc := distribution.NewService(store, batchSvc, inventorySvc, directorySvc, sink, baseLogger.Named("svc.distribution"))
	deliverySvc := delivery.NewService(store, batchSvc, baseLogger.Named("svc.delivery"))
	orderSvc := orders.NewService(store, directorySvc, sink, cfg.Pricing.DefaultUnitPrice, baseLogger.Named("svc.orders"))
	paymentSvc := payments.NewService(store, gateway.NewClient(cfg.Gateway), cfg.Gateway.Currency, baseLogger.Named("svc.payments"))

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		baseLogger.Fatal("invalid timezone", zap.String("timezone", cfg.Scheduler.Timezone), zap.Error(err))
	}
	alertSvc := alerts.NewService(store, directorySvc, sink, alerts.Config{
		ReminderAfter:    cfg.Scheduler.ReminderAfter,
		LowCapacityRatio: cfg.Scheduler.LowCapacityRatio,
		Location:         location,
	}, baseLogger.Named("svc.alerts"))

	engine := router.New(baseLogger.Named("router"),
		handlers.NewInventoryHandler(inventorySvc, batchSvc, baseLogger.Named("handlers.inventory")),
		handlers.NewLogisticsHandler(distributionSvc, deliverySvc, baseLogger.Named("handlers.logistics")),
		handlers.NewOrdersHandler(orderSvc, baseLogger.Named("handlers.orders")),
		handlers.NewPaymentsHandler(paymentSvc, baseLogger.Named("handlers.payments")),
		handlers.NewDirectoryHandler(directorySvc, inboxSink, baseLogger.Named("handlers.directory")),
	)

	sched, err := scheduler.NewScheduler(cfg.Scheduler, alertSvc, baseLogger.Named("scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, func(context.Context) error, error) {
	switch cfg.Storage.Driver {
	case config.StorageMemory:
		return memory.New(), func(context.Context) error { return nil }, nil
	default:
		repo, err := mongodb.NewMongoDBRepository(ctx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil
	}
}
