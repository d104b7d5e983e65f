// Package storetest holds the behaviour every storage backend must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// Factory opens a fresh store. Reopen must return a store over the same
// data, or nil if the backend does not persist.
type Factory struct {
	Open   func(t *testing.T) storage.Store
	Reopen func(t *testing.T, s storage.Store) storage.Store
}

var recorded = time.Date(2024, 5, 4, 10, 30, 0, 123000000, time.UTC)

func sampleTx(id int64, kind core.Kind, category string, cents int64) core.Transaction {
	return core.Transaction{
		ID:          id,
		Description: "sample",
		Amount:      core.Money{Cents: cents},
		Kind:        kind,
		Category:    category,
		OccurredAt:  core.DateOf(recorded),
		RecordedAt:  recorded.Add(time.Duration(id) * time.Millisecond),
	}
}

// SamplePlan is a monthly plan with some spend recorded.
func SamplePlan() *core.BudgetPlan {
	return &core.BudgetPlan{
		Period:     core.Monthly,
		TotalLimit: core.Money{Cents: 100000},
		Categories: []core.CategoryBudget{
			{Name: "Food", Limit: core.Money{Cents: 40000}, Spent: core.Money{Cents: 1250}},
			{Name: "Rent", Limit: core.Money{Cents: 60000}},
		},
		CreatedAt: recorded,
		LastReset: recorded.Add(time.Hour),
	}
}

// Run exercises the store contract.
func Run(t *testing.T, f Factory) {
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		s := f.Open(t)
		txs, err := s.ListTransactions(ctx)
		require.NoError(t, err)
		assert.Empty(t, txs)

		plan, err := s.LoadBudget(ctx)
		require.NoError(t, err)
		assert.Nil(t, plan)

		draft, err := s.LoadDraft(ctx)
		require.NoError(t, err)
		assert.Nil(t, draft)
	})

	t.Run("transactions append and delete", func(t *testing.T) {
		s := f.Open(t)
		require.NoError(t, s.AppendTransaction(ctx, sampleTx(1, core.Income, core.IncomeCategory, 500000)))
		require.NoError(t, s.AppendTransaction(ctx, sampleTx(2, core.Expense, "Food", 1250)))
		require.NoError(t, s.AppendTransaction(ctx, sampleTx(3, core.Expense, "Rent", 60000)))

		require.NoError(t, s.DeleteTransaction(ctx, 2))
		require.NoError(t, s.DeleteTransaction(ctx, 99), "unknown id is a no-op")

		txs, err := s.ListTransactions(ctx)
		require.NoError(t, err)
		require.Len(t, txs, 2)
		assert.Equal(t, int64(1), txs[0].ID)
		assert.Equal(t, int64(3), txs[1].ID)
		assertTxEqual(t, sampleTx(3, core.Expense, "Rent", 60000), txs[1])
	})

	t.Run("budget save load clear", func(t *testing.T) {
		s := f.Open(t)
		want := SamplePlan()
		require.NoError(t, s.SaveBudget(ctx, want))

		got, err := s.LoadBudget(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assertPlanEqual(t, *want, *got)

		require.NoError(t, s.SaveBudget(ctx, nil))
		got, err = s.LoadBudget(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)
		require.NoError(t, s.SaveBudget(ctx, nil), "clearing twice is fine")
	})

	t.Run("draft save load", func(t *testing.T) {
		s := f.Open(t)
		draft := core.BudgetDraft{
			Period:     "weekly",
			TotalLimit: "1.000,50",
			Categories: []core.CategoryDraft{{Name: "Food", Limit: ""}},
			UpdatedAt:  recorded,
		}
		require.NoError(t, s.SaveDraft(ctx, draft))
		got, err := s.LoadDraft(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, draft.TotalLimit, got.TotalLimit)
		assert.Equal(t, draft.Categories, got.Categories)
		assert.True(t, draft.UpdatedAt.Equal(got.UpdatedAt))
	})

	if f.Reopen == nil {
		return
	}

	t.Run("state survives reopen", func(t *testing.T) {
		s := f.Open(t)
		require.NoError(t, s.AppendTransaction(ctx, sampleTx(7, core.Expense, "Food", 999)))
		require.NoError(t, s.SaveBudget(ctx, SamplePlan()))

		s2 := f.Reopen(t, s)
		txs, err := s2.ListTransactions(ctx)
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assertTxEqual(t, sampleTx(7, core.Expense, "Food", 999), txs[0])

		plan, err := s2.LoadBudget(ctx)
		require.NoError(t, err)
		require.NotNil(t, plan)
		assertPlanEqual(t, *SamplePlan(), *plan)
	})
}

func assertTxEqual(t *testing.T, want, got core.Transaction) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Description, got.Description)
	assert.Equal(t, want.Amount, got.Amount)
	assert.Equal(t, want.Kind, got.Kind)
	assert.Equal(t, want.Category, got.Category)
	assert.Equal(t, want.OccurredAt.String(), got.OccurredAt.String())
	assert.True(t, want.RecordedAt.Equal(got.RecordedAt), "recordedAt %v != %v", want.RecordedAt, got.RecordedAt)
}

func assertPlanEqual(t *testing.T, want, got core.BudgetPlan) {
	t.Helper()
	assert.Equal(t, want.Period, got.Period)
	assert.Equal(t, want.TotalLimit, got.TotalLimit)
	assert.Equal(t, want.Categories, got.Categories)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, want.LastReset.Equal(got.LastReset))
}
