// Package metrics exposes ledger and budget gauges and counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"fintrack/internal/core"
)

const namespace = "fintrack"

// ─── Ledger ─────────────────────────────────────────────────────────────────

// TransactionsAppended counts recorded transactions by kind.
var TransactionsAppended = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "transactions_appended_total",
	Help:      "Total transactions recorded, by kind.",
}, []string{"kind"})

// TransactionsDeleted counts removed transactions by kind.
var TransactionsDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "transactions_deleted_total",
	Help:      "Total transactions deleted, by kind.",
}, []string{"kind"})

// ValidationFailures counts rejected user input.
var ValidationFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "validation_failures_total",
	Help:      "Total operations rejected by input validation.",
})

// Balance is income minus expense over the whole ledger.
var Balance = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "balance",
	Help:      "Current balance in major currency units.",
})

// ─── Budget ─────────────────────────────────────────────────────────────────

// BudgetResets counts resets by trigger (scheduled, manual).
var BudgetResets = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "budget",
	Name:      "resets_total",
	Help:      "Total budget resets, by trigger.",
}, []string{"trigger"})

// Inconsistencies counts expense deltas the engine could not apply cleanly.
var Inconsistencies = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "budget",
	Name:      "inconsistencies_total",
	Help:      "Total unknown-category or clamped expense deltas.",
})

// Remaining is the overall allowance left in the current period.
var Remaining = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "budget",
	Name:      "remaining",
	Help:      "Remaining budget in major currency units; 0 without a plan.",
})

// CategorySpent is spent per plan category.
var CategorySpent = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "budget",
	Name:      "category_spent",
	Help:      "Spent in the current period per category, major currency units.",
}, []string{"category"})

// ObserveTotals updates the ledger gauges.
func ObserveTotals(t core.Totals) {
	Balance.Set(t.Balance.Float())
}

// ObservePlan updates the budget gauges; nil clears them.
func ObservePlan(plan *core.BudgetPlan) {
	CategorySpent.Reset()
	if plan == nil {
		Remaining.Set(0)
		return
	}
	Remaining.Set(plan.Remaining().Float())
	for _, c := range plan.Categories {
		CategorySpent.WithLabelValues(c.Name).Set(c.Spent.Float())
	}
}
