package domain

import "time"

// ============================================================
// Analytics request / response
// ============================================================

// AnalyticsRequest carries one complete input snapshot for the engine.
// Category lists carry only data fields (id, name, colorCode).
type AnalyticsRequest struct {
	Transactions      []Transaction   `json:"transactions"`
	TargetMonth       string          `json:"targetMonth"` // RFC 3339 instant anywhere in the month
	Budgets           BudgetMap       `json:"budgets"`
	ViewType          TransactionType `json:"viewType"`
	ActiveContext     string          `json:"activeContext"`
	ExpenseCategories []Category      `json:"expenseCategories"`
	IncomeCategories  []Category      `json:"incomeCategories"`
}

// LeafEntry is a post-split-expansion, single-category analytics unit.
type LeafEntry struct {
	Category string
	Amount   float64
	Day      int // 1-based day of month
}

// CategoryData is the per-category actual-vs-limit comparison row.
// JSON field names match what chart callers consume.
type CategoryData struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	ColorCode string  `json:"colorCode"`
	Actual    float64 `json:"amount"`
	Limit     float64 `json:"budget"`
}

// CashFlowPoint is one month of the trailing cash-flow series.
type CashFlowPoint struct {
	Month   string  `json:"month"` // short label, e.g. "Jan"
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
}

// AnalyticsResult is the consolidated payload for one request.
type AnalyticsResult struct {
	ActiveTotal         float64         `json:"activeTotal"`
	DailySpending       []float64       `json:"dailySpending"`
	CumulativeSpending  []float64       `json:"cumulativeSpending"`
	PredictedTotal      float64         `json:"predictedTotal"`
	IsOverBudget        bool            `json:"isOverBudget"`
	CurrentDailyAverage float64         `json:"currentDailyAverage"`
	CategoryData        []CategoryData  `json:"categoryData"`
	MaxCategoryVal      float64         `json:"maxCategoryVal"`
	TotalForDonut       float64         `json:"totalForDonut"`
	ResolvedBudget      float64         `json:"resolvedBudget"`
	DaysInMonth         int             `json:"daysInMonth"`
	RunningTotal        float64         `json:"runningTotal"`
	CashFlow            []CashFlowPoint `json:"cashFlow"`
}

// DispatchStatus is the lifecycle state of a dispatched request.
type DispatchStatus string

const (
	DispatchPending DispatchStatus = "pending"
	DispatchDone    DispatchStatus = "done"
	DispatchFailed  DispatchStatus = "failed"
)

// DispatchEnvelope wraps a dispatched computation's outcome. Exactly one
// envelope reaches the done or failed state per submitted request; callers
// compare Seq against their latest submission to discard stale results.
type DispatchEnvelope struct {
	RequestID   string           `json:"requestId"`
	Seq         uint64           `json:"seq"`
	Status      DispatchStatus   `json:"status"`
	Result      *AnalyticsResult `json:"result,omitempty"`
	Error       string           `json:"error,omitempty"`
	CompletedAt time.Time        `json:"completedAt,omitempty"`
}

// ============================================================
// Debt payoff
// ============================================================

// PayoffStrategy selects how the extra-payment pool is prioritised.
type PayoffStrategy string

const (
	StrategySnowball  PayoffStrategy = "snowball"  // lowest balance first
	StrategyAvalanche PayoffStrategy = "avalanche" // highest rate first
)

// PayoffPlan is the outcome of a debt-payoff simulation. Months at the
// 600 safety cap means "does not converge", not an exact payoff date.
type PayoffPlan struct {
	Months           int       `json:"months"`
	PayoffDate       time.Time `json:"payoffDate"`
	TotalInterest    float64   `json:"totalInterest"`
	BaselineMonths   int       `json:"baselineMonths"`
	BaselineInterest float64   `json:"baselineInterest"`
}

// ============================================================
// Planner
// ============================================================

// GoalProgress is the derived funding state of one goal.
type GoalProgress struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Percent   float64 `json:"percent"`
	Remaining float64 `json:"remaining"`
}
