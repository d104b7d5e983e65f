// Package budget implements the budget plan state machine: plan creation,
// expense deltas, periodic and manual resets, and threshold predicates.
//
// The engine holds at most one plan (NoPlan / ActivePlan). It is not safe for
// concurrent use.
package budget

import (
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/schedule"
)

// Engine owns the active budget plan.
type Engine struct {
	plan *core.BudgetPlan
}

// NewEngine wraps a persisted plan; nil means no plan is active.
func NewEngine(plan *core.BudgetPlan) *Engine {
	e := &Engine{}
	if plan != nil {
		p := plan.Clone()
		if p.LastReset.IsZero() {
			p.LastReset = p.CreatedAt
		}
		e.plan = &p
	}
	return e
}

// HasPlan reports whether a plan is active.
func (e *Engine) HasPlan() bool {
	return e.plan != nil
}

// Plan returns a copy of the active plan.
func (e *Engine) Plan() (core.BudgetPlan, bool) {
	if e.plan == nil {
		return core.BudgetPlan{}, false
	}
	return e.plan.Clone(), true
}

// ValidatePlan checks a plan request without touching engine state.
func ValidatePlan(period core.Period, totalLimit core.Money, categories []core.CategoryLimit) ([]core.CategoryBudget, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	if totalLimit.Cents <= 0 {
		return nil, fmt.Errorf("%w: total limit must be positive", core.ErrInvalidLimit)
	}
	if len(categories) == 0 {
		return nil, core.ErrNoCategories
	}

	out := make([]core.CategoryBudget, 0, len(categories))
	seen := make(map[string]struct{}, len(categories))
	var allocated core.Money
	for _, c := range categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, core.ErrEmptyCategory
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: %q", core.ErrDuplicateCategory, name)
		}
		if c.Limit.IsNegative() {
			return nil, fmt.Errorf("%w: category %q has a negative limit", core.ErrInvalidLimit, name)
		}
		seen[name] = struct{}{}
		allocated = allocated.Add(c.Limit)
		out = append(out, core.CategoryBudget{Name: name, Limit: c.Limit})
	}
	if allocated.Cents > totalLimit.Cents {
		return nil, fmt.Errorf("%w: allocated %s > total %s", core.ErrAllocationExceedsLimit, allocated, totalLimit)
	}
	return out, nil
}

// CreatePlan replaces any active plan. Every category starts with nothing
// spent and lastReset equal to now. On error the previous plan is kept.
func (e *Engine) CreatePlan(period core.Period, totalLimit core.Money, categories []core.CategoryLimit, now time.Time) (core.BudgetPlan, error) {
	cats, err := ValidatePlan(period, totalLimit, categories)
	if err != nil {
		return core.BudgetPlan{}, err
	}
	e.plan = &core.BudgetPlan{
		Period:     period,
		TotalLimit: totalLimit,
		Categories: cats,
		CreatedAt:  now,
		LastReset:  now,
	}
	return e.plan.Clone(), nil
}

// ApplyExpense adds amount to the category's spent total. A category the plan
// does not know is reported as an *core.InconsistentStateError and nothing
// changes.
func (e *Engine) ApplyExpense(category string, amount core.Money) error {
	if e.plan == nil {
		return core.ErrNoPlan
	}
	i := e.plan.CategoryIndex(category)
	if i < 0 {
		return &core.InconsistentStateError{Category: category, Amount: amount, Reason: "category not in active plan; expense not counted"}
	}
	e.plan.Categories[i].Spent = e.plan.Categories[i].Spent.Add(amount)
	return nil
}

// ReverseExpense undoes ApplyExpense. Spent never goes below zero: a larger
// reversal clamps to zero and is reported as inconsistent.
func (e *Engine) ReverseExpense(category string, amount core.Money) error {
	if e.plan == nil {
		return core.ErrNoPlan
	}
	i := e.plan.CategoryIndex(category)
	if i < 0 {
		return &core.InconsistentStateError{Category: category, Amount: amount, Reason: "category not in active plan; reversal skipped"}
	}
	c := &e.plan.Categories[i]
	if c.Spent.Cents < amount.Cents {
		prev := c.Spent
		c.Spent = core.Money{}
		return &core.InconsistentStateError{Category: category, Amount: amount, Reason: fmt.Sprintf("reversal exceeds spent %s; clamped to zero", prev)}
	}
	c.Spent = c.Spent.Sub(amount)
	return nil
}

// Counts reports whether an expense recorded at recordedAt belongs to the
// current period of the active plan, i.e. is part of the spent totals.
func (e *Engine) Counts(recordedAt time.Time) bool {
	if e.plan == nil {
		return false
	}
	return !recordedAt.Before(e.plan.LastReset)
}

// Reset zeroes every category and advances lastReset to now. lastReset never
// moves backwards.
func (e *Engine) Reset(now time.Time) error {
	if e.plan == nil {
		return core.ErrNoPlan
	}
	for i := range e.plan.Categories {
		e.plan.Categories[i].Spent = core.Money{}
	}
	if now.After(e.plan.LastReset) {
		e.plan.LastReset = now
	}
	return nil
}

// ResetDue reports whether the plan's period rolled over between lastReset and now.
func (e *Engine) ResetDue(now time.Time) (bool, error) {
	if e.plan == nil {
		return false, nil
	}
	return schedule.IsResetDue(e.plan.Period, e.plan.LastReset, now)
}

// Remaining is totalLimit minus everything spent; zero without a plan.
func (e *Engine) Remaining() core.Money {
	if e.plan == nil {
		return core.Money{}
	}
	return e.plan.Remaining()
}

// TotalSpent sums spent over all categories.
func (e *Engine) TotalSpent() core.Money {
	if e.plan == nil {
		return core.Money{}
	}
	return e.plan.TotalSpent()
}

// OverLimit reports remaining < 0.
func (e *Engine) OverLimit() bool {
	return e.plan != nil && e.Remaining().IsNegative()
}

// NearLimit reports remaining < 20% of the total limit. It stays true once
// the plan is over the limit; callers that want a single warning check
// OverLimit first.
func (e *Engine) NearLimit() bool {
	if e.plan == nil {
		return false
	}
	return e.Remaining().Cents*5 < e.plan.TotalLimit.Cents
}

// Status builds the render payload for the active plan.
func (e *Engine) Status(now time.Time) (core.BudgetStatus, bool) {
	if e.plan == nil {
		return core.BudgetStatus{}, false
	}
	p := e.plan.Clone()
	st := core.BudgetStatus{
		Plan:           p,
		Categories:     make([]core.CategoryStatus, 0, len(p.Categories)),
		TotalAllocated: p.TotalAllocated(),
		TotalSpent:     p.TotalSpent(),
		Remaining:      p.Remaining(),
		Flags:          core.WarningFlags{OverLimit: e.OverLimit(), NearLimit: e.NearLimit()},
	}
	st.PercentUsed = st.TotalSpent.Percent(p.TotalLimit)
	for _, c := range p.Categories {
		st.Categories = append(st.Categories, core.CategoryStatus{
			Name:        c.Name,
			Limit:       c.Limit,
			Spent:       c.Spent,
			Remaining:   c.Limit.Sub(c.Spent),
			PercentUsed: c.Spent.Percent(c.Limit),
		})
	}
	if next, err := schedule.NextReset(now, p.Period); err == nil {
		st.NextReset = next
	}
	return st, true
}
