package domain

import "time"

// NextBillingDate advances a billing date by one cycle. Unknown cycles
// fall back to monthly, matching how subscription records behave when a
// cycle value is missing or misspelled.
func NextBillingDate(current time.Time, cycle BillingCycle) time.Time {
	switch cycle {
	case CycleDaily:
		return current.AddDate(0, 0, 1)
	case CycleWeekly:
		return current.AddDate(0, 0, 7)
	case CycleMonthly:
		return current.AddDate(0, 1, 0)
	case CycleQuarterly:
		return current.AddDate(0, 3, 0)
	case CycleHalfYearly:
		return current.AddDate(0, 6, 0)
	case CycleYearly:
		return current.AddDate(1, 0, 0)
	default:
		return current.AddDate(0, 1, 0)
	}
}
