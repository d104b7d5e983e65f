package budget

import (
	"fintrack/internal/core"
)

// Drift is a category whose cached spent value disagreed with the ledger.
type Drift struct {
	Category string     `json:"category"`
	Cached   core.Money `json:"cached"`
	Replayed core.Money `json:"replayed"`
}

// Replay recomputes spent per plan category from the ledger: the sum of
// expense amounts tagged with the category and recorded at or after the plan's
// last reset. Expenses for categories outside the plan are ignored.
func Replay(plan core.BudgetPlan, txs []core.Transaction) map[string]core.Money {
	out := make(map[string]core.Money, len(plan.Categories))
	for _, c := range plan.Categories {
		out[c.Name] = core.Money{}
	}
	since := plan.EffectiveLastReset()
	for _, tx := range txs {
		if !tx.IsExpense() || tx.RecordedAt.Before(since) {
			continue
		}
		if cur, ok := out[tx.Category]; ok {
			out[tx.Category] = cur.Add(tx.Amount)
		}
	}
	return out
}

// Verify compares the cached spent values with a ledger replay without
// changing anything.
func (e *Engine) Verify(txs []core.Transaction) []Drift {
	if e.plan == nil {
		return nil
	}
	replayed := Replay(*e.plan, txs)
	var drifts []Drift
	for _, c := range e.plan.Categories {
		if r := replayed[c.Name]; r != c.Spent {
			drifts = append(drifts, Drift{Category: c.Name, Cached: c.Spent, Replayed: r})
		}
	}
	return drifts
}

// Reconcile overwrites the cached spent values with the ledger replay and
// returns what changed.
func (e *Engine) Reconcile(txs []core.Transaction) []Drift {
	drifts := e.Verify(txs)
	if len(drifts) == 0 {
		return nil
	}
	replayed := Replay(*e.plan, txs)
	for i := range e.plan.Categories {
		e.plan.Categories[i].Spent = replayed[e.plan.Categories[i].Name]
	}
	return drifts
}
