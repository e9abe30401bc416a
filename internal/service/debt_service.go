package service

import (
	"context"
	"sort"
	"time"

	"github.com/finchley/budgetlens-go/internal/domain"
	"github.com/finchley/budgetlens-go/internal/infra/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var debtTracer = otel.Tracer("service/debt")

const (
	// paidOffEpsilon treats floating-point residue below a tenth of a
	// currency unit as fully paid, so the monthly loop terminates.
	paidOffEpsilon = 0.1

	// maxPayoffMonths bounds the simulation even under negative
	// amortization (minimum payment below accrued interest). A result at
	// the cap means "does not converge", not an exact payoff date.
	maxPayoffMonths = 600
)

// DebtService runs payoff simulations. Callers are expected to validate
// Debt inputs beforehand: negative balances or non-finite payments
// propagate as NaN/Inf results rather than raising an error.
type DebtService struct {
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewDebtService creates the debt simulator.
func NewDebtService(metrics *observability.Metrics, logger *zap.Logger) *DebtService {
	return &DebtService{
		metrics: metrics,
		logger:  logger,
	}
}

// SimulatePayoff compares a minimum-payments-only baseline against an
// accelerated trajectory that distributes extraPayment each month under
// the given strategy. Both runs operate on private copies; the caller's
// debts are never mutated. The function is pure and deterministic given
// its inputs; now anchors the derived payoff date.
func (s *DebtService) SimulatePayoff(ctx context.Context, debts []domain.Debt, extraPayment float64, strategy domain.PayoffStrategy, now time.Time) *domain.PayoffPlan {
	_, span := debtTracer.Start(ctx, "DebtService.SimulatePayoff")
	defer span.End()
	span.SetAttributes(
		attribute.Int("debt.count", len(debts)),
		attribute.String("debt.strategy", string(strategy)),
	)

	start := time.Now()
	defer func() {
		s.metrics.RecordComputeDuration("debt_payoff", time.Since(start))
	}()

	baselineMonths, baselineInterest := simulateBaseline(copyDebts(debts))
	months, totalInterest := simulateAccelerated(copyDebts(debts), extraPayment, strategy)

	return &domain.PayoffPlan{
		Months:           months,
		PayoffDate:       now.AddDate(0, months, 0),
		TotalInterest:    totalInterest,
		BaselineMonths:   baselineMonths,
		BaselineInterest: baselineInterest,
	}
}

// simulateBaseline advances every open debt by one month at a time:
// accrue a month of interest, then pay min(balance, minimumPayment).
// Debts are independent here, so order does not matter.
func simulateBaseline(debts []domain.Debt) (months int, interest float64) {
	for anyOpen(debts) && months < maxPayoffMonths {
		months++
		for i := range debts {
			if debts[i].CurrentBalance <= 0 {
				continue
			}
			accrued := monthlyInterest(&debts[i])
			interest += accrued
			debts[i].CurrentBalance += accrued
			pay := min(debts[i].CurrentBalance, debts[i].MinimumPayment)
			debts[i].CurrentBalance -= pay
		}
	}
	return months, interest
}

// simulateAccelerated runs the same interest-then-minimum step for all
// debts, then drains the extra-payment pool greedily in strategy order:
// the first open debt is cleared fully before the remainder spills to the
// next. The sort is redone every month because balances shift the
// snowball order as debts shrink.
func simulateAccelerated(debts []domain.Debt, extraPayment float64, strategy domain.PayoffStrategy) (months int, interest float64) {
	for anyOpen(debts) && months < maxPayoffMonths {
		months++
		available := extraPayment
		sortByStrategy(debts, strategy)

		for i := range debts {
			if debts[i].CurrentBalance <= 0 {
				continue
			}
			accrued := monthlyInterest(&debts[i])
			interest += accrued
			debts[i].CurrentBalance += accrued
			pay := min(debts[i].CurrentBalance, debts[i].MinimumPayment)
			debts[i].CurrentBalance -= pay
		}

		for i := range debts {
			if available <= 0 {
				break
			}
			if debts[i].CurrentBalance <= 0 {
				continue
			}
			pay := min(debts[i].CurrentBalance, available)
			debts[i].CurrentBalance -= pay
			available -= pay
		}
	}
	return months, interest
}

func sortByStrategy(debts []domain.Debt, strategy domain.PayoffStrategy) {
	if strategy == domain.StrategySnowball {
		sort.SliceStable(debts, func(i, j int) bool {
			return debts[i].CurrentBalance < debts[j].CurrentBalance
		})
		return
	}
	sort.SliceStable(debts, func(i, j int) bool {
		return debts[i].InterestRate > debts[j].InterestRate
	})
}

func monthlyInterest(d *domain.Debt) float64 {
	return d.CurrentBalance * (d.InterestRate / 100) / 12
}

func anyOpen(debts []domain.Debt) bool {
	for i := range debts {
		if debts[i].CurrentBalance > paidOffEpsilon {
			return true
		}
	}
	return false
}

func copyDebts(debts []domain.Debt) []domain.Debt {
	out := make([]domain.Debt, len(debts))
	copy(out, debts)
	return out
}
