// Package domain defines the core business entities for budgetlens.
// These models are independent of transport and presentation concerns and
// represent the canonical data structures used throughout the engine.
package domain

import "time"

// TransactionType discriminates money flowing in from money flowing out.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// ============================================================
// Transactions
// ============================================================

// TransactionSplit subdivides a transaction's amount across categories.
type TransactionSplit struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Note     string  `json:"note,omitempty"`
}

// Transaction is a single financial record supplied by the caller.
// Amount is a non-negative magnitude; Type carries the direction.
// When Splits is non-empty it is meant to sum to Amount, but the engine
// trusts the caller and does not re-validate that.
type Transaction struct {
	ID       string             `json:"id"`
	Title    string             `json:"title"`
	Category string             `json:"category"`
	Amount   float64            `json:"amount"`
	Date     time.Time          `json:"date"`
	Type     TransactionType    `json:"type"`
	Context  string             `json:"context,omitempty"`
	Splits   []TransactionSplit `json:"splits,omitempty"`
}

// ============================================================
// Categories
// ============================================================

// Category is a capability-free taxonomy descriptor. Only these data
// fields cross the computation boundary; icons and other renderable
// handles stay in the presentation layer and are reattached by a
// name-keyed lookup there.
type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ColorCode string `json:"colorCode,omitempty"`
}

// Default taxonomies used when a caller does not supply its own
// (e.g. the upstream-snapshot analytics route).
var (
	DefaultExpenseCategories = []Category{
		{ID: "food", Name: "Food", ColorCode: "#f97316"},
		{ID: "groceries", Name: "Groceries", ColorCode: "#22c55e"},
		{ID: "transport", Name: "Transport", ColorCode: "#3b82f6"},
		{ID: "bills", Name: "Bills", ColorCode: "#eab308"},
		{ID: "ent", Name: "Fun", ColorCode: "#a855f7"},
		{ID: "health", Name: "Health", ColorCode: "#f43f5e"},
		{ID: "edu", Name: "Education", ColorCode: "#6366f1"},
		{ID: "travel", Name: "Travel", ColorCode: "#0ea5e9"},
		{ID: "gift", Name: "Gift", ColorCode: "#ec4899"},
		{ID: "invest", Name: "Invest", ColorCode: "#14b8a6"},
	}

	DefaultIncomeCategories = []Category{
		{ID: "salary", Name: "Salary"},
		{ID: "freelance", Name: "Freelance"},
		{ID: "gift_in", Name: "Gift"},
		{ID: "other", Name: "Other"},
	}
)

// ============================================================
// Debts
// ============================================================

// Debt is an outstanding liability. InterestRate is an annual
// percentage (APR, e.g. 36 for 36%).
type Debt struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	CurrentBalance float64 `json:"currentBalance"`
	InterestRate   float64 `json:"interestRate"`
	MinimumPayment float64 `json:"minimumPayment"`
	Category       string  `json:"category"`
	Context        string  `json:"context,omitempty"`
}

// ============================================================
// Subscriptions & Goals
// ============================================================

// BillingCycle enumerates subscription billing intervals.
type BillingCycle string

const (
	CycleDaily      BillingCycle = "daily"
	CycleWeekly     BillingCycle = "weekly"
	CycleMonthly    BillingCycle = "monthly"
	CycleQuarterly  BillingCycle = "quarterly"
	CycleHalfYearly BillingCycle = "half-yearly"
	CycleYearly     BillingCycle = "yearly"
)

// Subscription is a recurring charge.
type Subscription struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Amount          float64      `json:"amount"`
	BillingCycle    BillingCycle `json:"billingCycle"`
	NextBillingDate time.Time    `json:"nextBillingDate"`
	Category        string       `json:"category"`
	AutoPay         bool         `json:"autoPay,omitempty"`
	Context         string       `json:"context,omitempty"`
}

// Goal is a savings target.
type Goal struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	TargetAmount  float64   `json:"targetAmount"`
	CurrentAmount float64   `json:"currentAmount"`
	Deadline      time.Time `json:"deadline,omitempty"`
	Context       string    `json:"context,omitempty"`
}

// ============================================================
// Snapshots
// ============================================================

// Snapshot bundles the records an upstream store holds for one budget
// context. Every analytics request is computed from a self-contained
// snapshot; the engine keeps no entity state between invocations.
type Snapshot struct {
	Context      string        `json:"context"`
	Transactions []Transaction `json:"transactions"`
	Budgets      BudgetMap     `json:"budgets"`
	Debts        []Debt        `json:"debts"`
}
