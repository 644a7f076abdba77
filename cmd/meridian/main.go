package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-erp/internal/accounting/coa"
	"github.com/meridian-erp/meridian-erp/internal/accounting/journals"
	"github.com/meridian-erp/meridian-erp/internal/accounting/ledger"
	"github.com/meridian-erp/meridian-erp/internal/ap"
	"github.com/meridian-erp/meridian-erp/internal/app"
	"github.com/meridian-erp/meridian-erp/internal/ar"
	"github.com/meridian-erp/meridian-erp/internal/integration"
	"github.com/meridian-erp/meridian-erp/internal/inventory"
	"github.com/meridian-erp/meridian-erp/internal/platform/cache"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(dbpool)

	accountRepo := coa.NewRepository(dbpool)
	accountService := coa.NewService(accountRepo, auditLogger, logger)
	accountHandler := coa.NewHandler(logger, accountService)

	journalRepo := journals.NewRepository(dbpool)
	journalService := journals.NewService(journalRepo, auditLogger, logger)
	journalHandler := journals.NewHandler(logger, journalService)
	postingEngine := journals.NewEngine(journalRepo, auditLogger, logger)

	ledgerRepo := ledger.NewRepository(dbpool)
	ledgerService := ledger.NewService(ledgerRepo, accountRepo)
	ledgerCache := ledger.NewCache(redisClient, cfg.LedgerCacheTTL)
	ledgerHandler := ledger.NewHandler(logger, ledgerService, ledgerCache)
	journalService.WithCacheInvalidator(ledgerCache)
	postingEngine.WithCacheInvalidator(ledgerCache)

	inventoryRepo := inventory.NewRepository(dbpool)
	hooks := integration.NewHooks(postingEngine, accountRepo, inventoryRepo, logger)

	apRepo := ap.NewRepository(dbpool)
	apService := ap.NewService(apRepo, hooks, logger)
	apHandler := ap.NewHandler(logger, apService)

	arRepo := ar.NewRepository(dbpool)
	arService := ar.NewService(arRepo, hooks, logger)
	arHandler := ar.NewHandler(logger, arService)

	inventoryService := inventory.NewService(inventoryRepo, hooks, logger)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Warn("job client unavailable", slog.Any("error", err))
	} else {
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
	}
	jobsHandler := jobs.NewHandler(asynq.NewInspector(redisOpts), logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AccountHandler:   accountHandler,
		JournalHandler:   journalHandler,
		LedgerHandler:    ledgerHandler,
		APHandler:        apHandler,
		ARHandler:        arHandler,
		InventoryHandler: inventoryHandler,
		JobsHandler:      jobsHandler,
		JobsClient:       jobClient,
		Pool:             dbpool,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
