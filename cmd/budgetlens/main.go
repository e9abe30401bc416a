package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/finchley/budgetlens-go/internal/config"
	"github.com/finchley/budgetlens-go/internal/domain"
	"github.com/finchley/budgetlens-go/internal/handler"
	"github.com/finchley/budgetlens-go/internal/infra/cache"
	"github.com/finchley/budgetlens-go/internal/infra/client"
	"github.com/finchley/budgetlens-go/internal/infra/observability"
	"github.com/finchley/budgetlens-go/internal/infra/resilience"
	"github.com/finchley/budgetlens-go/internal/port"
	"github.com/finchley/budgetlens-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Int("queue_size", cfg.QueueSize),
		zap.Duration("result_ttl", cfg.ResultTTL),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "budgetlens")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Result store ---
	results := cache.New[*domain.DispatchEnvelope](cfg.ResultTTL)

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("records-api")

	// --- Upstream records client (optional) ---
	var fetcher port.SnapshotFetcher
	if cfg.RecordsAPIURL != "" {
		logger.Info("records service configured",
			zap.String("records_api_url", cfg.RecordsAPIURL),
		)
		httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
		fetcher = client.NewRecordsClient(httpClient, cfg.RecordsAPIURL, cb, resilienceCfg)
	} else {
		logger.Warn("records service not configured, context analytics routes unavailable")
	}

	// --- Services ---
	analyticsSvc := service.NewAnalyticsService(metrics, logger)
	debtSvc := service.NewDebtService(metrics, logger)
	plannerSvc := service.NewPlannerService(logger)
	csvSvc := service.NewCSVService(logger)

	// --- Dispatcher ---
	dispatcher := service.NewDispatcher(analyticsSvc, results, cfg.QueueSize, metrics, logger)
	dispatcher.Start()
	defer dispatcher.Stop()

	// --- Router ---
	router := handler.NewRouter(
		analyticsSvc, debtSvc, plannerSvc, csvSvc,
		dispatcher, fetcher, metrics, cfg.AuthJWTSecret, logger,
	)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
