package service

import (
	"context"
	"time"

	"github.com/finchley/budgetlens-go/internal/domain"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var plannerTracer = otel.Tracer("service/planner")

// PlannerService covers the small derived computations the planning
// screens need: subscription billing-date advancement and goal progress.
type PlannerService struct {
	logger *zap.Logger
}

// NewPlannerService creates the planner.
func NewPlannerService(logger *zap.Logger) *PlannerService {
	return &PlannerService{logger: logger}
}

// AdvanceBilling moves a subscription's next billing date forward by one
// cycle.
func (s *PlannerService) AdvanceBilling(ctx context.Context, sub *domain.Subscription) time.Time {
	_, span := plannerTracer.Start(ctx, "PlannerService.AdvanceBilling")
	defer span.End()

	return domain.NextBillingDate(sub.NextBillingDate, sub.BillingCycle)
}

// GoalProgress derives percent-funded and remaining amount per goal.
// A goal with a non-positive target reports zero percent rather than
// dividing by it.
func (s *PlannerService) GoalProgress(ctx context.Context, goals []domain.Goal) []domain.GoalProgress {
	_, span := plannerTracer.Start(ctx, "PlannerService.GoalProgress")
	defer span.End()

	out := make([]domain.GoalProgress, 0, len(goals))
	for _, g := range goals {
		percent := float64(0)
		if g.TargetAmount > 0 {
			percent = g.CurrentAmount / g.TargetAmount * 100
		}
		remaining := g.TargetAmount - g.CurrentAmount
		if remaining < 0 {
			remaining = 0
		}
		out = append(out, domain.GoalProgress{
			ID:        g.ID,
			Name:      g.Name,
			Percent:   percent,
			Remaining: remaining,
		})
	}
	return out
}
