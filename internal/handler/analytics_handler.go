package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/finchley/budgetlens-go/internal/domain"
	"github.com/finchley/budgetlens-go/internal/infra/observability"
	"github.com/finchley/budgetlens-go/internal/port"
	"github.com/finchley/budgetlens-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// 1. Analytics — async dispatch
// POST /v1/analytics/requests
// GET  /v1/analytics/requests/{requestId}
// ============================================================

func submitAnalyticsHandler(dispatcher *service.Dispatcher, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "POST /v1/analytics/requests")
		defer span.End()

		req, ok := decodeAnalyticsRequest(w, r)
		if !ok {
			return
		}

		envelope, err := dispatcher.Submit(req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("request.id", envelope.RequestID))

		writeJSON(w, http.StatusAccepted, map[string]any{
			"requestId": envelope.RequestID,
			"seq":       envelope.Seq,
			"status":    envelope.Status,
		})
	}
}

func analyticsResultHandler(dispatcher *service.Dispatcher, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/analytics/requests/{requestId}")
		defer span.End()

		requestID := chi.URLParam(r, "requestId")
		envelope, ok := dispatcher.Result(requestID)
		if !ok {
			writeError(w, http.StatusNotFound, "unknown or expired request id")
			return
		}

		// Pending computations report 202 so pollers can distinguish
		// "still queued" from a terminal envelope.
		if envelope.Status == domain.DispatchPending {
			writeJSON(w, http.StatusAccepted, envelope)
			return
		}
		writeJSON(w, http.StatusOK, envelope)
	}
}

// ============================================================
// 2. Analytics — synchronous compute
// POST /v1/analytics/compute
// ============================================================

func computeAnalyticsHandler(svc *service.AnalyticsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/analytics/compute")
		defer span.End()

		req, ok := decodeAnalyticsRequest(w, r)
		if !ok {
			return
		}

		result, err := svc.Compute(ctx, req, time.Now())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// ============================================================
// 3. Analytics — server-side snapshot
// GET /v1/contexts/{context}/analytics
// ============================================================

func contextAnalyticsHandler(svc *service.AnalyticsService, fetcher port.SnapshotFetcher, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/contexts/{context}/analytics")
		defer span.End()

		if fetcher == nil {
			writeError(w, http.StatusServiceUnavailable, "records service not configured")
			return
		}

		contextID := chi.URLParam(r, "context")
		span.SetAttributes(attribute.String("budget.context", contextID))

		snapshot, err := fetcher.FetchSnapshot(ctx, contextID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		now := time.Now()
		targetMonth := r.URL.Query().Get("month")
		if targetMonth == "" {
			targetMonth = now.Format(time.RFC3339)
		}
		viewType := domain.TransactionType(r.URL.Query().Get("view"))
		if viewType == "" {
			viewType = domain.TypeExpense
		}

		req := &domain.AnalyticsRequest{
			Transactions:      snapshot.Transactions,
			TargetMonth:       targetMonth,
			Budgets:           snapshot.Budgets,
			ViewType:          viewType,
			ActiveContext:     contextID,
			ExpenseCategories: domain.DefaultExpenseCategories,
			IncomeCategories:  domain.DefaultIncomeCategories,
		}
		if !validAnalyticsRequest(w, req) {
			return
		}

		result, err := svc.Compute(ctx, req, now)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

// ============================================================
// 4. Engine metrics snapshot
// GET /v1/metrics/engine
// ============================================================

func engineMetricsHandler(metrics *observability.Metrics, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := metrics.GetEngineSnapshot()
		writeJSON(w, http.StatusOK, snapshot)
	}
}

// decodeAnalyticsRequest parses and validates the shared request body.
// It writes the error response itself and reports ok=false on failure.
func decodeAnalyticsRequest(w http.ResponseWriter, r *http.Request) (*domain.AnalyticsRequest, bool) {
	var req domain.AnalyticsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if req.ViewType == "" {
		req.ViewType = domain.TypeExpense
	}
	if !validAnalyticsRequest(w, &req) {
		return nil, false
	}
	return &req, true
}

func validAnalyticsRequest(w http.ResponseWriter, req *domain.AnalyticsRequest) bool {
	if req.ViewType != domain.TypeIncome && req.ViewType != domain.TypeExpense {
		writeError(w, http.StatusBadRequest, "viewType must be 'income' or 'expense'")
		return false
	}
	if req.TargetMonth == "" {
		writeError(w, http.StatusBadRequest, "targetMonth is required")
		return false
	}
	return true
}
