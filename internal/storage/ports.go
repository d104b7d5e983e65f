// Package storage defines the persisted documents of the tracker and the
// SQLite implementation of them.
package storage

import (
	"context"

	"fintrack/internal/core"
)

// Document keys.
const (
	KeyBudget          = "budget"
	KeyBudgetFormState = "budgetFormState"
)

// TransactionStore persists the ledger in id order.
type TransactionStore interface {
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	AppendTransaction(ctx context.Context, tx core.Transaction) error
	// DeleteTransaction is a no-op for unknown ids.
	DeleteTransaction(ctx context.Context, id int64) error
}

// BudgetStore persists the single budget plan document in one write.
type BudgetStore interface {
	// LoadBudget returns nil when no plan was saved.
	LoadBudget(ctx context.Context) (*core.BudgetPlan, error)
	// SaveBudget replaces the plan; nil clears it.
	SaveBudget(ctx context.Context, plan *core.BudgetPlan) error
}

// DraftStore persists the unvalidated budget form.
type DraftStore interface {
	LoadDraft(ctx context.Context) (*core.BudgetDraft, error)
	SaveDraft(ctx context.Context, draft core.BudgetDraft) error
}

// Store is everything a backend provides.
type Store interface {
	TransactionStore
	BudgetStore
	DraftStore
	Close() error
}
