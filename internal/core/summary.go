package core

import "time"

// Totals are the ledger aggregates shown on the balance card.
type Totals struct {
	Income  Money `json:"totalIncome"`
	Expense Money `json:"totalExpenses"`
	Balance Money `json:"balance"`
}

// LowBalance reports a positive balance below 20% of total income.
func (t Totals) LowBalance() bool {
	return t.Balance.Cents > 0 && t.Balance.Cents*5 < t.Income.Cents
}

// CategoryStatus is one row of the budget breakdown.
type CategoryStatus struct {
	Name        string  `json:"name"`
	Limit       Money   `json:"limit"`
	Spent       Money   `json:"spent"`
	Remaining   Money   `json:"remaining"`
	PercentUsed float64 `json:"percentUsed"`
}

// WarningFlags are the threshold predicates consumed by notifications.
type WarningFlags struct {
	OverLimit bool `json:"overLimit"`
	NearLimit bool `json:"nearLimit"`
}

// BudgetStatus is the render payload for the active plan.
type BudgetStatus struct {
	Plan           BudgetPlan       `json:"plan"`
	Categories     []CategoryStatus `json:"categoryBreakdown"`
	TotalAllocated Money            `json:"totalAllocated"`
	TotalSpent     Money            `json:"totalSpent"`
	Remaining      Money            `json:"remaining"`
	PercentUsed    float64          `json:"percentUsed"`
	Flags          WarningFlags     `json:"warningFlags"`
	NextReset      time.Time        `json:"nextReset"`
}

// Series is the chart payload for one period view.
type Series struct {
	Period  Period   `json:"period"`
	Labels  []string `json:"chartLabels"`
	Income  []Money  `json:"incomeSeries"`
	Expense []Money  `json:"expenseSeries"`
}

// SeriesSummary totals a chart window.
type SeriesSummary struct {
	Income  Money `json:"totalIncome"`
	Expense Money `json:"totalExpenses"`
	Net     Money `json:"net"`
}

// Summary totals every bucket of the series.
func (s Series) Summary() SeriesSummary {
	var out SeriesSummary
	for _, m := range s.Income {
		out.Income = out.Income.Add(m)
	}
	for _, m := range s.Expense {
		out.Expense = out.Expense.Add(m)
	}
	out.Net = out.Income.Sub(out.Expense)
	return out
}

// Len is the number of buckets.
func (s Series) Len() int {
	return len(s.Labels)
}
