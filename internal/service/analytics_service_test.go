package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/finchley/budgetlens-go/internal/domain"
	"github.com/finchley/budgetlens-go/internal/infra/observability"

	"go.uber.org/zap"
)

func newTestAnalyticsService() *AnalyticsService {
	return NewAnalyticsService(observability.NewMetrics(), zap.NewNop())
}

func expenseOn(day int, category string, amount float64) domain.Transaction {
	return domain.Transaction{
		ID:       "tx",
		Title:    "test",
		Category: category,
		Amount:   amount,
		Date:     time.Date(2025, time.June, day, 12, 0, 0, 0, time.Local),
		Type:     domain.TypeExpense,
	}
}

func closeTo(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// ============================================================
// Projection
// ============================================================

func TestProjectLinearForecast(t *testing.T) {
	svc := newTestAnalyticsService()

	// 300 spent by day 10, observed on day 20 of a 30-day month.
	txs := []domain.Transaction{
		expenseOn(3, "Food", 100),
		expenseOn(7, "Transport", 100),
		expenseOn(10, "Food", 100),
	}
	month := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.Local)
	now := time.Date(2025, time.June, 20, 9, 0, 0, 0, time.Local)

	leaves := svc.MonthLeaves(txs, month, domain.TypeExpense)
	proj := svc.Project(leaves, month, now)

	if !closeTo(proj.ActiveTotal, 300) {
		t.Errorf("expected activeTotal 300, got %v", proj.ActiveTotal)
	}
	if proj.DaysPassed != 20 {
		t.Errorf("expected 20 days passed, got %d", proj.DaysPassed)
	}
	if proj.DaysInMonth != 30 {
		t.Errorf("expected 30 days in month, got %d", proj.DaysInMonth)
	}
	if !closeTo(proj.CurrentDailyAverage, 15) {
		t.Errorf("expected daily average 15, got %v", proj.CurrentDailyAverage)
	}
	// 300 + 15/day * 10 remaining days
	if !closeTo(proj.PredictedTotal, 450) {
		t.Errorf("expected predicted total 450, got %v", proj.PredictedTotal)
	}
	if len(proj.CumulativeSpending) != 20 {
		t.Errorf("expected cumulative series of 20 points, got %d", len(proj.CumulativeSpending))
	}
	if !closeTo(proj.RunningTotal, 300) {
		t.Errorf("expected running total 300, got %v", proj.RunningTotal)
	}
}

func TestProjectPastMonthFullyElapsed(t *testing.T) {
	svc := newTestAnalyticsService()

	txs := []domain.Transaction{
		{Category: "Food", Amount: 120, Type: domain.TypeExpense,
			Date: time.Date(2025, time.May, 14, 12, 0, 0, 0, time.Local)},
	}
	month := time.Date(2025, time.May, 1, 0, 0, 0, 0, time.Local)
	now := time.Date(2025, time.June, 20, 9, 0, 0, 0, time.Local)

	leaves := svc.MonthLeaves(txs, month, domain.TypeExpense)
	proj := svc.Project(leaves, month, now)

	if proj.DaysPassed != 31 {
		t.Errorf("expected full 31 days passed, got %d", proj.DaysPassed)
	}
	if proj.DaysLeft != 0 {
		t.Errorf("expected 0 days left, got %d", proj.DaysLeft)
	}
	if !closeTo(proj.PredictedTotal, proj.ActiveTotal) {
		t.Errorf("expected prediction to equal actuals for an elapsed month, got %v vs %v",
			proj.PredictedTotal, proj.ActiveTotal)
	}
}

func TestProjectDailySumMatchesActiveTotal(t *testing.T) {
	svc := newTestAnalyticsService()

	txs := []domain.Transaction{
		expenseOn(1, "Food", 12.5),
		expenseOn(1, "Food", 7.5),
		expenseOn(15, "Transport", 40),
		expenseOn(28, "Housing", 950),
	}
	month := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.Local)
	now := time.Date(2025, time.June, 28, 9, 0, 0, 0, time.Local)

	leaves := svc.MonthLeaves(txs, month, domain.TypeExpense)
	proj := svc.Project(leaves, month, now)

	sum := float64(0)
	for _, v := range proj.DailySpending {
		sum += v
	}
	if !closeTo(sum, proj.ActiveTotal) {
		t.Errorf("daily buckets sum %v, want activeTotal %v", sum, proj.ActiveTotal)
	}

	prev := float64(0)
	for i, v := range proj.CumulativeSpending {
		if v < prev {
			t.Errorf("cumulative series decreased at index %d: %v < %v", i, v, prev)
		}
		prev = v
	}
	if proj.PredictedTotal < proj.ActiveTotal {
		t.Errorf("prediction %v below actuals %v", proj.PredictedTotal, proj.ActiveTotal)
	}
}

// ============================================================
// Split expansion
// ============================================================

func TestMonthLeavesExpandsSplits(t *testing.T) {
	svc := newTestAnalyticsService()

	txs := []domain.Transaction{
		{
			ID: "split-1", Title: "Costco run", Category: "Shopping",
			Amount: 900, Type: domain.TypeExpense,
			Date: time.Date(2025, time.June, 8, 12, 0, 0, 0, time.Local),
			Splits: []domain.TransactionSplit{
				{Category: "Food", Amount: 600},
				{Category: "Transport", Amount: 300},
			},
		},
	}
	month := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.Local)

	leaves := svc.MonthLeaves(txs, month, domain.TypeExpense)

	if len(leaves) != 2 {
		t.Fatalf("expected 2 leaves, got %d", len(leaves))
	}
	for _, leaf := range leaves {
		if leaf.Category == "Shopping" {
			t.Error("split parent category leaked into leaves")
		}
		if leaf.Day != 8 {
			t.Errorf("expected splits to inherit parent day 8, got %d", leaf.Day)
		}
	}
	total := leaves[0].Amount + leaves[1].Amount
	if !closeTo(total, 900) {
		t.Errorf("expected split leaves to total 900, got %v", total)
	}

	// Per-category attribution sees the split amounts, never the parent 900.
	rows, _, donut := svc.CategoryBudgets(leaves, domain.DefaultExpenseCategories, domain.BudgetMap{}, month)
	byName := make(map[string]float64, len(rows))
	for _, row := range rows {
		if closeTo(row.Actual, 900) {
			t.Errorf("unsplit parent amount appeared under %q", row.Name)
		}
		byName[row.Name] = row.Actual
	}
	if !closeTo(byName["Food"], 600) || !closeTo(byName["Transport"], 300) {
		t.Errorf("expected Food 600 / Transport 300, got %v", byName)
	}
	if !closeTo(donut, 900) {
		t.Errorf("expected donut total 900, got %v", donut)
	}
}

func TestMonthLeavesFiltersTypeAndMonth(t *testing.T) {
	svc := newTestAnalyticsService()

	txs := []domain.Transaction{
		expenseOn(5, "Food", 50),
		{Category: "Salary", Amount: 3000, Type: domain.TypeIncome,
			Date: time.Date(2025, time.June, 1, 12, 0, 0, 0, time.Local)},
		{Category: "Food", Amount: 75, Type: domain.TypeExpense,
			Date: time.Date(2025, time.May, 5, 12, 0, 0, 0, time.Local)},
	}
	month := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.Local)

	expenses := svc.MonthLeaves(txs, month, domain.TypeExpense)
	if len(expenses) != 1 || !closeTo(expenses[0].Amount, 50) {
		t.Errorf("expected one June expense leaf of 50, got %+v", expenses)
	}

	income := svc.MonthLeaves(txs, month, domain.TypeIncome)
	if len(income) != 1 || !closeTo(income[0].Amount, 3000) {
		t.Errorf("expected one June income leaf of 3000, got %+v", income)
	}
}

// ============================================================
// Category actual-vs-limit
// ============================================================

func TestCategoryBudgets(t *testing.T) {
	svc := newTestAnalyticsService()
	month := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.Local)

	leaves := []domain.LeafEntry{
		{Category: "Food", Amount: 200, Day: 3},
		{Category: "Food", Amount: 100, Day: 9},
		{Category: "Transport", Amount: 80, Day: 4},
	}
	taxonomy := []domain.Category{
		{ID: "c1", Name: "Food", ColorCode: "#f97316"},
		{ID: "c2", Name: "Transport"},
		{ID: "c3", Name: "Entertainment", ColorCode: "#8b5cf6"},
		{ID: "c4", Name: "Healthcare", ColorCode: "#14b8a6"},
	}
	budgets := domain.BudgetMap{
		"2025-06-category-Entertainment": 150,
	}

	rows, maxVal, donut := svc.CategoryBudgets(leaves, taxonomy, budgets, month)

	// Healthcare has neither spend nor limit and must be dropped.
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Name != "Food" || !closeTo(rows[0].Actual, 300) {
		t.Errorf("expected Food at 300 first, got %+v", rows[0])
	}
	if rows[1].Name != "Transport" {
		t.Errorf("expected Transport second, got %+v", rows[1])
	}
	if rows[1].ColorCode != "#cbd5e1" {
		t.Errorf("expected fallback color for Transport, got %q", rows[1].ColorCode)
	}
	if rows[2].Name != "Entertainment" || !closeTo(rows[2].Limit, 150) {
		t.Errorf("expected limit-only Entertainment row, got %+v", rows[2])
	}
	if !closeTo(maxVal, 300) {
		t.Errorf("expected maxCategoryVal 300, got %v", maxVal)
	}
	if !closeTo(donut, 380) {
		t.Errorf("expected donut total 380, got %v", donut)
	}
}

func TestCategoryBudgetsMaxValFloor(t *testing.T) {
	svc := newTestAnalyticsService()
	month := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.Local)

	budgets := domain.BudgetMap{"2025-06-category-Food": 0.5}
	leaves := []domain.LeafEntry{{Category: "Food", Amount: 0.25, Day: 1}}
	taxonomy := []domain.Category{{ID: "c1", Name: "Food", ColorCode: "#f97316"}}

	_, maxVal, _ := svc.CategoryBudgets(leaves, taxonomy, budgets, month)
	if !closeTo(maxVal, 1) {
		t.Errorf("expected maxCategoryVal floored at 1, got %v", maxVal)
	}
}

// ============================================================
// Cash flow
// ============================================================

func TestCashFlowSixMonthsOldestFirst(t *testing.T) {
	svc := newTestAnalyticsService()
	month := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.Local)

	txs := []domain.Transaction{
		{Category: "Salary", Amount: 3000, Type: domain.TypeIncome,
			Date: time.Date(2025, time.January, 5, 12, 0, 0, 0, time.Local)},
		expenseOn(10, "Food", 220),
		{Category: "Food", Amount: 90, Type: domain.TypeExpense,
			Date: time.Date(2025, time.April, 2, 12, 0, 0, 0, time.Local)},
	}

	points := svc.CashFlow(txs, month)

	if len(points) != 6 {
		t.Fatalf("expected 6 points, got %d", len(points))
	}
	wantLabels := []string{"Jan", "Feb", "Mar", "Apr", "May", "Jun"}
	for i, want := range wantLabels {
		if points[i].Month != want {
			t.Errorf("point %d: expected label %q, got %q", i, want, points[i].Month)
		}
	}
	if !closeTo(points[0].Income, 3000) {
		t.Errorf("expected January income 3000, got %v", points[0].Income)
	}
	if !closeTo(points[3].Expense, 90) {
		t.Errorf("expected April expense 90, got %v", points[3].Expense)
	}
	if !closeTo(points[5].Expense, 220) {
		t.Errorf("expected June expense 220, got %v", points[5].Expense)
	}
}

func TestCashFlowUsesRawAmountsForSplits(t *testing.T) {
	svc := newTestAnalyticsService()
	month := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.Local)

	txs := []domain.Transaction{
		{
			Category: "Shopping", Amount: 900, Type: domain.TypeExpense,
			Date: time.Date(2025, time.June, 8, 12, 0, 0, 0, time.Local),
			Splits: []domain.TransactionSplit{
				{Category: "Food", Amount: 600},
				{Category: "Transport", Amount: 300},
			},
		},
	}

	points := svc.CashFlow(txs, month)
	if !closeTo(points[5].Expense, 900) {
		t.Errorf("expected raw parent amount 900 in cash flow, got %v", points[5].Expense)
	}
}

// ============================================================
// Full pipeline
// ============================================================

func TestComputeOverBudget(t *testing.T) {
	svc := newTestAnalyticsService()
	now := time.Date(2025, time.June, 20, 9, 0, 0, 0, time.Local)

	req := &domain.AnalyticsRequest{
		Transactions: []domain.Transaction{
			expenseOn(3, "Food", 100),
			expenseOn(7, "Transport", 100),
			expenseOn(10, "Food", 100),
		},
		TargetMonth:       now.Format(time.RFC3339),
		Budgets:           domain.BudgetMap{"personal-2025-06": 400},
		ViewType:          domain.TypeExpense,
		ActiveContext:     "personal",
		ExpenseCategories: domain.DefaultExpenseCategories,
		IncomeCategories:  domain.DefaultIncomeCategories,
	}

	result, err := svc.Compute(context.Background(), req, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !closeTo(result.ResolvedBudget, 400) {
		t.Errorf("expected resolved budget 400, got %v", result.ResolvedBudget)
	}
	if !closeTo(result.PredictedTotal, 450) {
		t.Errorf("expected predicted total 450, got %v", result.PredictedTotal)
	}
	if !result.IsOverBudget {
		t.Error("expected over-budget flag when prediction exceeds budget")
	}
	if len(result.CashFlow) != 6 {
		t.Errorf("expected 6 cash-flow points, got %d", len(result.CashFlow))
	}
}

func TestComputeIncomeViewNeverOverBudget(t *testing.T) {
	svc := newTestAnalyticsService()
	now := time.Date(2025, time.June, 20, 9, 0, 0, 0, time.Local)

	req := &domain.AnalyticsRequest{
		Transactions: []domain.Transaction{
			{Category: "Salary", Amount: 5000, Type: domain.TypeIncome,
				Date: time.Date(2025, time.June, 1, 12, 0, 0, 0, time.Local)},
		},
		TargetMonth:      now.Format(time.RFC3339),
		Budgets:          domain.BudgetMap{"personal-default": 10},
		ViewType:         domain.TypeIncome,
		ActiveContext:    "personal",
		IncomeCategories: domain.DefaultIncomeCategories,
	}

	result, err := svc.Compute(context.Background(), req, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsOverBudget {
		t.Error("income view must never report over-budget")
	}
}

func TestComputeRejectsBadTargetMonth(t *testing.T) {
	svc := newTestAnalyticsService()

	req := &domain.AnalyticsRequest{
		TargetMonth: "not-a-month",
		ViewType:    domain.TypeExpense,
	}

	_, err := svc.Compute(context.Background(), req, time.Now())
	if err == nil {
		t.Fatal("expected error for malformed targetMonth")
	}
	var validation *domain.ErrValidation
	if !errors.As(err, &validation) {
		t.Errorf("expected validation error, got %T", err)
	}
}

func TestParseMonthInstantFormats(t *testing.T) {
	cases := []string{
		"2025-06-20T09:00:00Z",
		"2025-06-20",
		"2025-06",
	}
	for _, v := range cases {
		got, err := parseMonthInstant(v)
		if err != nil {
			t.Errorf("parseMonthInstant(%q): unexpected error %v", v, err)
			continue
		}
		if got.Local().Year() != 2025 || got.Local().Month() != time.June {
			t.Errorf("parseMonthInstant(%q): expected June 2025, got %v", v, got)
		}
	}
}
