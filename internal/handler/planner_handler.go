package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/finchley/budgetlens-go/internal/domain"
	"github.com/finchley/budgetlens-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Planner — subscriptions & goals
// POST /v1/subscriptions/advance
// POST /v1/goals/progress
// ============================================================

func advanceBillingHandler(svc *service.PlannerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/subscriptions/advance")
		defer span.End()

		var sub domain.Subscription
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if sub.NextBillingDate.IsZero() {
			writeError(w, http.StatusBadRequest, "nextBillingDate is required")
			return
		}

		next := svc.AdvanceBilling(ctx, &sub)
		writeJSON(w, http.StatusOK, map[string]any{
			"id":              sub.ID,
			"nextBillingDate": next.Format(time.RFC3339),
		})
	}
}

func goalProgressHandler(svc *service.PlannerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/goals/progress")
		defer span.End()

		var req struct {
			Goals []domain.Goal `json:"goals"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		progress := svc.GoalProgress(ctx, req.Goals)
		writeJSON(w, http.StatusOK, map[string]any{"goals": progress})
	}
}
