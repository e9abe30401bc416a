package domain

import (
	"fmt"
	"time"
)

// BudgetMap is a flat mapping from budget key to amount. Three key shapes
// coexist:
//
//	"{context}-{YYYY-MM}"               month-specific total budget
//	"{context}-default"                 context fallback total budget
//	"{YYYY-MM}-category-{categoryName}" per-category limit
//
// Category-limit keys are NOT context-qualified while total-budget keys are.
// That asymmetry is carried over from the source data verbatim: category
// limits leak across contexts that share a month label. Open product
// question, do not "fix" here.
type BudgetMap map[string]float64

// MonthKey formats an instant as the YYYY-MM key fragment used throughout
// the budget map, in local wall-clock time.
func MonthKey(t time.Time) string {
	return t.Local().Format("2006-01")
}

// ResolveTotal returns the total budget for a context and month:
// month-specific key first, then the context default, then zero.
func (b BudgetMap) ResolveTotal(context string, month time.Time) float64 {
	if v, ok := b[fmt.Sprintf("%s-%s", context, MonthKey(month))]; ok {
		return v
	}
	if v, ok := b[fmt.Sprintf("%s-default", context)]; ok {
		return v
	}
	return 0
}

// CategoryLimit returns the per-category limit for a month, or zero.
func (b BudgetMap) CategoryLimit(month time.Time, categoryName string) float64 {
	return b[fmt.Sprintf("%s-category-%s", MonthKey(month), categoryName)]
}
