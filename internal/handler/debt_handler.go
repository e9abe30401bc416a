package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/finchley/budgetlens-go/internal/domain"
	"github.com/finchley/budgetlens-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Debt payoff simulation — POST /v1/debts/payoff-plan
// ============================================================

func payoffPlanHandler(svc *service.DebtService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/debts/payoff-plan")
		defer span.End()

		var req struct {
			Debts        []domain.Debt         `json:"debts"`
			ExtraPayment float64               `json:"extraPayment"`
			Strategy     domain.PayoffStrategy `json:"strategy"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if req.Strategy == "" {
			req.Strategy = domain.StrategyAvalanche
		}
		if req.Strategy != domain.StrategySnowball && req.Strategy != domain.StrategyAvalanche {
			writeError(w, http.StatusBadRequest, "strategy must be 'snowball' or 'avalanche'")
			return
		}
		if req.ExtraPayment < 0 {
			writeError(w, http.StatusBadRequest, "extraPayment must not be negative")
			return
		}
		for _, d := range req.Debts {
			if d.CurrentBalance < 0 || d.InterestRate < 0 || d.MinimumPayment < 0 {
				writeError(w, http.StatusBadRequest, "debt balances, rates, and minimum payments must not be negative")
				return
			}
		}
		span.SetAttributes(
			attribute.String("payoff.strategy", string(req.Strategy)),
			attribute.Int("payoff.debts", len(req.Debts)),
		)

		plan := svc.SimulatePayoff(ctx, req.Debts, req.ExtraPayment, req.Strategy, time.Now())
		writeJSON(w, http.StatusOK, plan)
	}
}
