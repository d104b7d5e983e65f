package core

import (
	"strings"
	"time"
)

type (
	// CategoryBudget is one category of a plan with its limit and the amount
	// spent since the last reset.
	CategoryBudget struct {
		Name  string `json:"name"`
		Limit Money  `json:"limit"`
		Spent Money  `json:"spent"`
	}

	// CategoryLimit is the input for one category of a new plan.
	CategoryLimit struct {
		Name  string
		Limit Money
	}

	// BudgetPlan is the single active budget.
	BudgetPlan struct {
		Period     Period           `json:"period"`
		TotalLimit Money            `json:"totalLimit"`
		Categories []CategoryBudget `json:"categories"`
		CreatedAt  time.Time        `json:"createdAt"`
		LastReset  time.Time        `json:"lastReset"`
	}

	// BudgetDraft is the unvalidated budget form state kept between sessions.
	BudgetDraft struct {
		Period     string          `json:"period"`
		TotalLimit string          `json:"totalLimit"`
		Categories []CategoryDraft `json:"categories"`
		UpdatedAt  time.Time       `json:"updatedAt"`
	}

	// CategoryDraft is one row of the budget form.
	CategoryDraft struct {
		Name  string `json:"name"`
		Limit string `json:"limit"`
	}
)

// Clone returns a deep copy so callers cannot mutate engine state.
func (p BudgetPlan) Clone() BudgetPlan {
	p.Categories = append([]CategoryBudget(nil), p.Categories...)
	return p
}

// EffectiveLastReset falls back to CreatedAt when no reset was recorded.
func (p BudgetPlan) EffectiveLastReset() time.Time {
	if p.LastReset.IsZero() {
		return p.CreatedAt
	}
	return p.LastReset
}

// Category looks a category up by name.
func (p BudgetPlan) Category(name string) (CategoryBudget, bool) {
	if i := p.CategoryIndex(name); i >= 0 {
		return p.Categories[i], true
	}
	return CategoryBudget{}, false
}

// HasCategory reports whether name is one of the plan's categories.
func (p BudgetPlan) HasCategory(name string) bool {
	return p.CategoryIndex(name) >= 0
}

// CategoryIndex returns the position of name in Categories or -1.
func (p BudgetPlan) CategoryIndex(name string) int {
	name = strings.TrimSpace(name)
	for i, c := range p.Categories {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// TotalAllocated sums the category limits.
func (p BudgetPlan) TotalAllocated() Money {
	var sum Money
	for _, c := range p.Categories {
		sum = sum.Add(c.Limit)
	}
	return sum
}

// TotalSpent sums the category spent values.
func (p BudgetPlan) TotalSpent() Money {
	var sum Money
	for _, c := range p.Categories {
		sum = sum.Add(c.Spent)
	}
	return sum
}

// Remaining is the total limit minus everything spent.
func (p BudgetPlan) Remaining() Money {
	return p.TotalLimit.Sub(p.TotalSpent())
}

// CategoryNames lists the plan categories in entry order.
func (p BudgetPlan) CategoryNames() []string {
	names := make([]string, len(p.Categories))
	for i, c := range p.Categories {
		names[i] = c.Name
	}
	return names
}
