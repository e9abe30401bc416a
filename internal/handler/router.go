package handler

import (
	"net/http"
	"time"

	"github.com/finchley/budgetlens-go/internal/infra/observability"
	"github.com/finchley/budgetlens-go/internal/port"
	"github.com/finchley/budgetlens-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
// fetcher may be nil when no upstream records service is configured;
// jwtSecret may be empty to leave the import/export routes open.
func NewRouter(
	analyticsSvc *service.AnalyticsService,
	debtSvc *service.DebtService,
	plannerSvc *service.PlannerService,
	csvSvc *service.CSVService,
	dispatcher *service.Dispatcher,
	fetcher port.SnapshotFetcher,
	metrics *observability.Metrics,
	jwtSecret string,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(dispatcher, fetcher))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// =============================================
		// 1. 📊 Analytics
		// =============================================
		r.Post("/analytics/requests", submitAnalyticsHandler(dispatcher, logger))
		r.Get("/analytics/requests/{requestId}", analyticsResultHandler(dispatcher, logger))
		r.Post("/analytics/compute", computeAnalyticsHandler(analyticsSvc, logger))
		r.Get("/contexts/{context}/analytics", contextAnalyticsHandler(analyticsSvc, fetcher, logger))

		// =============================================
		// 2. 💳 Debt payoff
		// =============================================
		r.Post("/debts/payoff-plan", payoffPlanHandler(debtSvc, logger))

		// =============================================
		// 3. 📅 Planner
		// =============================================
		r.Post("/subscriptions/advance", advanceBillingHandler(plannerSvc, logger))
		r.Post("/goals/progress", goalProgressHandler(plannerSvc, logger))

		// =============================================
		// 4. 📈 Engine metrics
		// =============================================
		r.Get("/metrics/engine", engineMetricsHandler(metrics, logger))

		// =============================================
		// 5. 📂 Import / Export (protected when a secret is set)
		// =============================================
		r.Group(func(r chi.Router) {
			if jwtSecret != "" {
				r.Use(JWTAuthMiddleware(jwtSecret, logger))
			}
			r.Post("/transactions/import", importTransactionsHandler(csvSvc, logger))
			r.Post("/transactions/export", exportTransactionsHandler(csvSvc, logger))
		})
	})

	return r
}

// ============================================================
// Health & readiness
// ============================================================

func healthzHandler(dispatcher *service.Dispatcher, fetcher port.SnapshotFetcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		components := []map[string]any{
			{"name": "engine", "status": "healthy", "lastChecked": now},
		}

		dispatcherStatus := "healthy"
		if dispatcher == nil {
			dispatcherStatus = "unavailable"
		}
		components = append(components, map[string]any{
			"name": "dispatcher", "status": dispatcherStatus, "lastChecked": now,
		})

		if fetcher != nil {
			components = append(components, map[string]any{
				"name": "records", "status": "configured", "lastChecked": now,
			})
		}

		overall := "healthy"
		if dispatcherStatus != "healthy" {
			overall = "degraded"
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status":     overall,
			"components": components,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
