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

var tracer = otel.Tracer("service/analytics")

// fallbackColor is used for taxonomy entries without a colorCode.
const fallbackColor = "#cbd5e1"

// AnalyticsService turns raw transaction/budget snapshots into forecasts,
// category comparisons, and cash-flow summaries. All methods are pure
// functions of their inputs; the service holds no entity state.
type AnalyticsService struct {
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewAnalyticsService creates the analytics engine.
func NewAnalyticsService(metrics *observability.Metrics, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{
		metrics: metrics,
		logger:  logger,
	}
}

// Projection is the daily/cumulative series and linear end-of-month
// forecast for one month and view type.
type Projection struct {
	DailySpending       []float64
	CumulativeSpending  []float64
	RunningTotal        float64
	ActiveTotal         float64
	CurrentDailyAverage float64
	DaysPassed          int
	DaysLeft            int
	DaysInMonth         int
	PredictedTotal      float64
}

// Compute runs the full analytics pipeline over one snapshot. now anchors
// "today" so that results are deterministic under test.
func (s *AnalyticsService) Compute(ctx context.Context, req *domain.AnalyticsRequest, now time.Time) (*domain.AnalyticsResult, error) {
	_, span := tracer.Start(ctx, "AnalyticsService.Compute")
	defer span.End()
	span.SetAttributes(
		attribute.String("analytics.context", req.ActiveContext),
		attribute.String("analytics.view", string(req.ViewType)),
	)

	start := time.Now()
	defer func() {
		s.metrics.RecordComputeDuration("analytics", time.Since(start))
	}()

	month, err := parseMonthInstant(req.TargetMonth)
	if err != nil {
		return nil, err
	}

	resolvedBudget := req.Budgets.ResolveTotal(req.ActiveContext, month)

	leaves := s.MonthLeaves(req.Transactions, month, req.ViewType)
	proj := s.Project(leaves, month, now)

	taxonomy := req.ExpenseCategories
	if req.ViewType == domain.TypeIncome {
		taxonomy = req.IncomeCategories
	}
	categoryData, maxCategoryVal, totalForDonut := s.CategoryBudgets(leaves, taxonomy, req.Budgets, month)

	cashFlow := s.CashFlow(req.Transactions, month)

	return &domain.AnalyticsResult{
		ActiveTotal:         proj.ActiveTotal,
		DailySpending:       proj.DailySpending,
		CumulativeSpending:  proj.CumulativeSpending,
		PredictedTotal:      proj.PredictedTotal,
		IsOverBudget:        req.ViewType == domain.TypeExpense && proj.PredictedTotal > resolvedBudget,
		CurrentDailyAverage: proj.CurrentDailyAverage,
		CategoryData:        categoryData,
		MaxCategoryVal:      maxCategoryVal,
		TotalForDonut:       totalForDonut,
		ResolvedBudget:      resolvedBudget,
		DaysInMonth:         proj.DaysInMonth,
		RunningTotal:        proj.RunningTotal,
		CashFlow:            cashFlow,
	}, nil
}

// MonthLeaves filters transactions to the target calendar month (local
// wall clock), expands split transactions into one leaf per split, and
// keeps only leaves of the requested type. The parent of a split
// transaction is replaced entirely by its splits.
func (s *AnalyticsService) MonthLeaves(txs []domain.Transaction, month time.Time, viewType domain.TransactionType) []domain.LeafEntry {
	leaves := make([]domain.LeafEntry, 0, len(txs))
	for _, tx := range txs {
		if !sameMonth(tx.Date, month) {
			continue
		}
		if len(tx.Splits) > 0 {
			if tx.Type != viewType {
				continue
			}
			day := tx.Date.Local().Day()
			for _, sp := range tx.Splits {
				leaves = append(leaves, domain.LeafEntry{
					Category: sp.Category,
					Amount:   sp.Amount,
					Day:      day,
				})
			}
			continue
		}
		if tx.Type != viewType {
			continue
		}
		leaves = append(leaves, domain.LeafEntry{
			Category: tx.Category,
			Amount:   tx.Amount,
			Day:      tx.Date.Local().Day(),
		})
	}
	return leaves
}

// Project builds the per-day buckets, the cumulative series up to "today",
// and the linear end-of-month forecast. A past or future month counts as
// fully elapsed. Division guards floor daysPassed at 1.
func (s *AnalyticsService) Project(leaves []domain.LeafEntry, month, now time.Time) Projection {
	daysInMonth := daysIn(month)

	daily := make([]float64, daysInMonth)
	activeTotal := float64(0)
	for _, leaf := range leaves {
		activeTotal += leaf.Amount
		if idx := leaf.Day - 1; idx >= 0 && idx < daysInMonth {
			daily[idx] += leaf.Amount
		}
	}

	currentDayIndex := daysInMonth
	if sameMonth(now, month) {
		currentDayIndex = now.Local().Day()
	}

	cumulative := make([]float64, 0, currentDayIndex)
	runningTotal := float64(0)
	for i := 0; i < currentDayIndex; i++ {
		runningTotal += daily[i]
		cumulative = append(cumulative, runningTotal)
	}

	daysPassed := currentDayIndex
	if daysPassed < 1 {
		daysPassed = 1
	}
	avg := activeTotal / float64(daysPassed)
	daysLeft := daysInMonth - daysPassed

	return Projection{
		DailySpending:       daily,
		CumulativeSpending:  cumulative,
		RunningTotal:        runningTotal,
		ActiveTotal:         activeTotal,
		CurrentDailyAverage: avg,
		DaysPassed:          daysPassed,
		DaysLeft:            daysLeft,
		DaysInMonth:         daysInMonth,
		PredictedTotal:      activeTotal + avg*float64(daysLeft),
	}
}

// CategoryBudgets compares actuals against per-category limits for the
// active taxonomy. Categories with neither spend nor limit are dropped;
// the rest are sorted descending by actual. maxCategoryVal is floored at 1
// for chart scaling.
func (s *AnalyticsService) CategoryBudgets(leaves []domain.LeafEntry, taxonomy []domain.Category, budgets domain.BudgetMap, month time.Time) ([]domain.CategoryData, float64, float64) {
	rows := make([]domain.CategoryData, 0, len(taxonomy))
	for _, cat := range taxonomy {
		actual := float64(0)
		for _, leaf := range leaves {
			if leaf.Category == cat.Name {
				actual += leaf.Amount
			}
		}
		limit := budgets.CategoryLimit(month, cat.Name)
		if actual <= 0 && limit <= 0 {
			continue
		}

		color := cat.ColorCode
		if color == "" {
			color = fallbackColor
		}
		rows = append(rows, domain.CategoryData{
			ID:        cat.ID,
			Name:      cat.Name,
			ColorCode: color,
			Actual:    actual,
			Limit:     limit,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Actual > rows[j].Actual
	})

	maxVal := float64(1)
	donut := float64(0)
	for _, row := range rows {
		if row.Actual > maxVal {
			maxVal = row.Actual
		}
		donut += row.Actual
	}
	return rows, maxVal, donut
}

// CashFlow sums income and expense totals for the six calendar months
// ending at the target month, oldest first. Raw transaction amounts are
// used here: splits are intentionally not expanded, matching how the
// series has always been built.
func (s *AnalyticsService) CashFlow(txs []domain.Transaction, month time.Time) []domain.CashFlowPoint {
	points := make([]domain.CashFlowPoint, 0, 6)
	local := month.Local()
	for i := 5; i >= 0; i-- {
		m := time.Date(local.Year(), local.Month()-time.Month(i), 1, 0, 0, 0, 0, time.Local)

		income := float64(0)
		expense := float64(0)
		for _, tx := range txs {
			if !sameMonth(tx.Date, m) {
				continue
			}
			switch tx.Type {
			case domain.TypeIncome:
				income += tx.Amount
			case domain.TypeExpense:
				expense += tx.Amount
			}
		}

		points = append(points, domain.CashFlowPoint{
			Month:   m.Format("Jan"),
			Income:  income,
			Expense: expense,
		})
	}
	return points
}

// sameMonth reports whether two instants fall in the same local
// wall-clock calendar month.
func sameMonth(a, b time.Time) bool {
	al, bl := a.Local(), b.Local()
	return al.Year() == bl.Year() && al.Month() == bl.Month()
}

// daysIn returns the day count of an instant's local calendar month.
func daysIn(t time.Time) int {
	local := t.Local()
	return time.Date(local.Year(), local.Month()+1, 0, 0, 0, 0, 0, time.Local).Day()
}

// parseMonthInstant accepts the instant formats callers send for
// targetMonth: a full RFC 3339 timestamp, a date, or a bare YYYY-MM.
func parseMonthInstant(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	// Date-only forms have no offset; read them as local wall-clock so the
	// month boundary does not shift across time zones.
	for _, layout := range []string{"2006-01-02", "2006-01"} {
		if t, err := time.ParseInLocation(layout, v, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &domain.ErrValidation{Field: "targetMonth", Message: "not a recognized instant: " + v}
}
