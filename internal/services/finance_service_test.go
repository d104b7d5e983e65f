package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/notify"
	"fintrack/internal/storage"
	"fintrack/internal/storage/memory"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// failingStore fails selected writes.
type failingStore struct {
	storage.Store
	failAppend, failDelete, failBudget bool
}

var errDisk = errors.New("disk full")

func (f *failingStore) AppendTransaction(ctx context.Context, tx core.Transaction) error {
	if f.failAppend {
		return errDisk
	}
	return f.Store.AppendTransaction(ctx, tx)
}

func (f *failingStore) DeleteTransaction(ctx context.Context, id int64) error {
	if f.failDelete {
		return errDisk
	}
	return f.Store.DeleteTransaction(ctx, id)
}

func (f *failingStore) SaveBudget(ctx context.Context, plan *core.BudgetPlan) error {
	if f.failBudget {
		return errDisk
	}
	return f.Store.SaveBudget(ctx, plan)
}

type fixture struct {
	svc    *FinanceService
	store  *failingStore
	clock  *fakeClock
	events *notify.Recorder
}

func newFixture(t *testing.T, start time.Time) *fixture {
	t.Helper()
	f := &fixture{
		store:  &failingStore{Store: memory.New()},
		clock:  &fakeClock{t: start},
		events: &notify.Recorder{},
	}
	f.svc = f.open(t)
	return f
}

// open builds a service over the fixture's store, as a process restart would.
func (f *fixture) open(t *testing.T) *FinanceService {
	t.Helper()
	svc, err := NewFinanceService(context.Background(), f.store,
		WithClock(f.clock.Now),
		WithLocation(time.UTC),
		WithSink(f.events),
		WithLogger(log.Discard()),
	)
	require.NoError(t, err)
	return svc
}

func rp(units int64) core.Money { return core.Money{Cents: units * 100} }

func expense(desc, category string, units int64) core.TransactionDraft {
	return core.TransactionDraft{Description: desc, Amount: rp(units), Kind: core.Expense, Category: category}
}

func income(desc string, units int64) core.TransactionDraft {
	return core.TransactionDraft{Description: desc, Amount: rp(units), Kind: core.Income}
}

var monday = time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

func TestAddTransaction_Balance(t *testing.T) {
	f := newFixture(t, monday)
	ctx := context.Background()

	_, err := f.svc.AddTransaction(ctx, income("Salary", 1000))
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	_, err = f.svc.AddTransaction(ctx, expense("Lunch", "Food", 250))
	require.NoError(t, err)

	assert.Equal(t, core.Totals{Income: rp(1000), Expense: rp(250), Balance: rp(750)}, f.svc.Totals())

	stored, err := f.store.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
	assert.Equal(t, core.IncomeCategory, stored[0].Category)
	assert.Equal(t, core.DateOf(monday), stored[0].OccurredAt)
}

func TestAddTransaction_ValidationRejected(t *testing.T) {
	f := newFixture(t, monday)
	ctx := context.Background()

	tests := []struct {
		name  string
		draft core.TransactionDraft
		want  error
	}{
		{"empty description", expense("  ", "Food", 10), core.ErrEmptyDescription},
		{"zero amount", core.TransactionDraft{Description: "x", Kind: core.Expense, Category: "Food"}, core.ErrInvalidAmount},
		{"missing category", expense("Lunch", "", 10), core.ErrEmptyCategory},
		{"bad kind", core.TransactionDraft{Description: "x", Amount: rp(1), Kind: "transfer"}, core.ErrInvalidKind},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.events.Reset()
			_, err := f.svc.AddTransaction(ctx, tt.draft)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, []notify.EventType{notify.EventValidationFailed}, f.events.Types())
		})
	}
	assert.Empty(t, f.svc.Transactions())
}

func TestAddTransactionInput(t *testing.T) {
	f := newFixture(t, monday)
	ctx := context.Background()

	tests := []struct {
		name string
		in   core.TransactionInput
		want error
	}{
		{"non-numeric amount", core.TransactionInput{Description: "Lunch", Amount: "abc", Type: "expense", Category: "Food"}, core.ErrInvalidAmount},
		{"zero amount", core.TransactionInput{Description: "Lunch", Amount: "0.00", Type: "expense", Category: "Food"}, core.ErrInvalidAmount},
		{"unknown type", core.TransactionInput{Description: "Lunch", Amount: "10", Type: "transfer"}, core.ErrInvalidKind},
		{"empty description", core.TransactionInput{Description: " ", Amount: "10", Type: "expense", Category: "Food"}, core.ErrEmptyDescription},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.events.Reset()
			_, err := f.svc.AddTransactionInput(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, []notify.EventType{notify.EventValidationFailed}, f.events.Types())
		})
	}
	assert.Zero(t, len(f.svc.Transactions()))

	tx, err := f.svc.AddTransactionInput(ctx, core.TransactionInput{Description: "Lunch", Amount: "12,50", Type: "Expense", Category: "Food"})
	require.NoError(t, err)
	assert.Equal(t, core.Money{Cents: 1250}, tx.Amount)
	assert.Equal(t, core.Expense, tx.Kind)
}

func TestAddTransaction_UnknownCategoryWithPlan(t *testing.T) {
	f := newFixture(t, monday)
	ctx := context.Background()
	_, err := f.svc.CreatePlan(ctx, core.Monthly, rp(500), []core.CategoryLimit{{Name: "Food", Limit: rp(200)}})
	require.NoError(t, err)

	_, err = f.svc.AddTransaction(ctx, expense("Taxi", "Transport", 20))
	assert.ErrorIs(t, err, core.ErrUnknownCategory)
	assert.Empty(t, f.svc.Transactions())

	// Income ignores the plan categories.
	_, err = f.svc.AddTransaction(ctx, income("Gift", 20))
	assert.NoError(t, err)
}

func TestAddAndDeleteExpense_UpdatesSpent(t *testing.T) {
	f := newFixture(t, monday)
	ctx := context.Background()
	_, err := f.svc.CreatePlan(ctx, core.Monthly, rp(1000), []core.CategoryLimit{{Name: "Food", Limit: rp(200)}})
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	tx, err := f.svc.AddTransaction(ctx, expense("Groceries", "Food", 50))
	require.NoError(t, err)

	st, ok := f.svc.BudgetStatus()
	require.True(t, ok)
	assert.Equal(t, rp(50), st.Categories[0].Spent)

	saved, err := f.store.LoadBudget(ctx)
	require.NoError(t, err)
	assert.Equal(t, rp(50), saved.Categories[0].Spent)

	_, err = f.svc.DeleteTransaction(ctx, tx.ID)
	require.NoError(t, err)
	st, _ = f.svc.BudgetStatus()
	assert.True(t, st.Categories[0].Spent.IsZero())
	assert.Empty(t, f.svc.Transactions())
}

func TestDeleteTransaction_NotFound(t *testing.T) {
	f := newFixture(t, monday)
	_, err := f.svc.DeleteTransaction(context.Background(), 42)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDeleteTransaction_BeforeLastResetKeepsSpent(t *testing.T) {
	f := newFixture(t, monday)
	ctx := context.Background()
	_, err := f.svc.CreatePlan(ctx, core.Daily, rp(100), []core.CategoryLimit{{Name: "Food", Limit: rp(100)}})
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	old, err := f.svc.AddTransaction(ctx, expense("Yesterday", "Food", 30))
	require.NoError(t, err)

	f.clock.Advance(24 * time.Hour)
	reset, err := f.svc.CheckAndReset(ctx)
	require.NoError(t, err)
	require.True(t, reset)

	_, err = f.svc.AddTransaction(ctx, expense("Today", "Food", 10))
	require.NoError(t, err)

	_, err = f.svc.DeleteTransaction(ctx, old.ID)
	require.NoError(t, err)

	st, _ := f.svc.BudgetStatus()
	assert.Equal(t, rp(10), st.TotalSpent)
	assert.Empty(t, f.svc.Verify())
}

func TestThresholdEvents(t *testing.T) {
	f := newFixture(t, monday)
	ctx := context.Background()
	_, err := f.svc.CreatePlan(ctx, core.Weekly, rp(100), []core.CategoryLimit{{Name: "Food", Limit: rp(100)}})
	require.NoError(t, err)

	_, err = f.svc.AddTransaction(ctx, expense("a", "Food", 50))
	require.NoError(t, err)
	assert.Empty(t, f.events.Types())

	_, err = f.svc.AddTransaction(ctx, expense("b", "Food", 35))
	require.NoError(t, err)
	_, err = f.svc.AddTransaction(ctx, expense("c", "Food", 30))
	require.NoError(t, err)

	events := f.events.Events()
	require.Len(t, events, 2)
	assert.Equal(t, notify.EventNearLimit, events[0].Type)
	assert.Equal(t, rp(15), events[0].Remaining)
	assert.Equal(t, notify.EventOverLimit, events[1].Type)
	assert.Equal(t, rp(-15), events[1].Remaining)

	st, _ := f.svc.BudgetStatus()
	assert.Equal(t, core.WarningFlags{OverLimit: true, NearLimit: true}, st.Flags)
}

func TestCreatePlan_Validation(t *testing.T) {
	f := newFixture(t, monday)
	ctx := context.Background()

	_, err := f.svc.CreatePlan(ctx, core.Monthly, rp(100), []core.CategoryLimit{
		{Name: "A", Limit: rp(60)}, {Name: "B", Limit: rp(50)},
	})
	assert.ErrorIs(t, err, core.ErrAllocationExceedsLimit)
	assert.Equal(t, []notify.EventType{notify.EventValidationFailed}, f.events.Types())
	_, ok := f.svc.Plan()
	assert.False(t, ok)

	plan, err := f.svc.CreatePlan(ctx, core.Monthly, rp(100), []core.CategoryLimit{
		{Name: "A", Limit: rp(60)}, {Name: "B", Limit: rp(40)},
	})
	require.NoError(t, err)
	assert.Equal(t, rp(100), plan.TotalAllocated())
}

func TestCreatePlan_ReplacesAndRestartsSpent(t *testing.T) {
	f := newFixture(t, monday)
	ctx := context.Background()
	_, err := f.svc.CreatePlan(ctx, core.Monthly, rp(500), []core.CategoryLimit{{Name: "Food", Limit: rp(500)}})
	require.NoError(t, err)
	_, err = f.svc.AddTransaction(ctx, expense("Lunch", "Food", 40))
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	_, err = f.svc.CreatePlan(ctx, core.Weekly, rp(300), []core.CategoryLimit{{Name: "Food", Limit: rp(300)}})
	require.NoError(t, err)

	st, _ := f.svc.BudgetStatus()
	assert.True(t, st.TotalSpent.IsZero())
	assert.Empty(t, f.svc.Verify())
}

func TestCreatePlanFromDraft(t *testing.T) {
	f := newFixture(t, monday)
	ctx := context.Background()

	plan, err := f.svc.CreatePlanFromDraft(ctx, core.BudgetDraft{
		Period:     "yearly",
		TotalLimit: "1000",
		Categories: []core.CategoryDraft{{Name: "Travel", Limit: "600"}},
	})
	require.NoError(t, err)
	assert.Equal(t, core.Yearly, plan.Period)

	_, err = f.svc.CreatePlanFromDraft(ctx, core.BudgetDraft{Period: "never", TotalLimit: "1"})
	assert.ErrorIs(t, err, core.ErrInvalidPeriod)
	assert.Contains(t, f.events.Types(), notify.EventValidationFailed)
}

func TestCheckAndReset(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC))
	ctx := context.Background()
	_, err := f.svc.CreatePlan(ctx, core.Monthly, rp(100), []core.CategoryLimit{{Name: "Food", Limit: rp(100)}})
	require.NoError(t, err)
	_, err = f.svc.AddTransaction(ctx, expense("Dinner", "Food", 40))
	require.NoError(t, err)

	reset, err := f.svc.CheckAndReset(ctx)
	require.NoError(t, err)
	assert.False(t, reset, "same month")

	f.clock.t = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	reset, err = f.svc.CheckAndReset(ctx)
	require.NoError(t, err)
	assert.True(t, reset)

	saved, err := f.store.LoadBudget(ctx)
	require.NoError(t, err)
	assert.True(t, saved.TotalSpent().IsZero())
	assert.True(t, saved.LastReset.Equal(f.clock.t))
	assert.Equal(t, []notify.EventType{notify.EventBudgetReset}, f.events.Types())
	assert.Equal(t, notify.TriggerScheduled, f.events.Events()[0].Trigger)

	// Second call in the same period does nothing.
	reset, err = f.svc.CheckAndReset(ctx)
	require.NoError(t, err)
	assert.False(t, reset)
}

func TestCheckAndReset_PersistFailureKeepsState(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC))
	ctx := context.Background()
	_, err := f.svc.CreatePlan(ctx, core.Monthly, rp(100), []core.CategoryLimit{{Name: "Food", Limit: rp(100)}})
	require.NoError(t, err)
	_, err = f.svc.AddTransaction(ctx, expense("Dinner", "Food", 40))
	require.NoError(t, err)

	f.clock.t = time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC)
	f.store.failBudget = true
	_, err = f.svc.CheckAndReset(ctx)
	require.ErrorIs(t, err, errDisk)

	st, _ := f.svc.BudgetStatus()
	assert.Equal(t, rp(40), st.TotalSpent, "reset rolled back in memory")

	f.store.failBudget = false
	reset, err := f.svc.CheckAndReset(ctx)
	require.NoError(t, err)
	assert.True(t, reset, "still due on retry")
}

func TestResetBudget_Manual(t *testing.T) {
	f := newFixture(t, monday)
	ctx := context.Background()
	assert.ErrorIs(t, f.svc.ResetBudget(ctx), core.ErrNoPlan)

	_, err := f.svc.CreatePlan(ctx, core.Yearly, rp(100), []core.CategoryLimit{{Name: "Food", Limit: rp(100)}})
	require.NoError(t, err)
	_, err = f.svc.AddTransaction(ctx, expense("Dinner", "Food", 40))
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	require.NoError(t, f.svc.ResetBudget(ctx))
	st, _ := f.svc.BudgetStatus()
	assert.True(t, st.TotalSpent.IsZero())
	assert.Equal(t, notify.TriggerManual, f.events.Events()[len(f.events.Events())-1].Trigger)

	// Ledger is untouched by resets.
	assert.Equal(t, rp(40), f.svc.Totals().Expense)
}

func TestResetAtSameInstantAsExpense(t *testing.T) {
	f := newFixture(t, monday)
	ctx := context.Background()

	_, err := f.svc.CreatePlan(ctx, core.Monthly, rp(100), []core.CategoryLimit{{Name: "Food", Limit: rp(100)}})
	require.NoError(t, err)
	before, err := f.svc.AddTransaction(ctx, expense("Dinner", "Food", 50))
	require.NoError(t, err)
	require.NoError(t, f.svc.ResetBudget(ctx))

	assert.Empty(t, f.svc.Verify())
	drifts, err := f.svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Empty(t, drifts)
	st, _ := f.svc.BudgetStatus()
	assert.True(t, st.TotalSpent.IsZero())

	// An expense at the same clock reading after the reset counts.
	after, err := f.svc.AddTransaction(ctx, expense("Snack", "Food", 20))
	require.NoError(t, err)
	plan, _ := f.svc.Plan()
	assert.True(t, before.RecordedAt.Before(plan.LastReset))
	assert.True(t, after.RecordedAt.After(plan.LastReset))
	assert.Empty(t, f.svc.Verify())

	// Deleting the pre-reset expense leaves spent alone.
	_, err = f.svc.DeleteTransaction(ctx, before.ID)
	require.NoError(t, err)
	st, _ = f.svc.BudgetStatus()
	assert.Equal(t, rp(20), st.TotalSpent)

	// A restart with the clock still frozen keeps the order.
	restarted := f.open(t)
	require.NoError(t, restarted.Startup(ctx))
	st, _ = restarted.BudgetStatus()
	assert.Equal(t, rp(20), st.TotalSpent)
	_, err = restarted.AddTransaction(ctx, expense("Tea", "Food", 5))
	require.NoError(t, err)
	assert.Empty(t, restarted.Verify())
}

func TestAddTransaction_PersistFailureRollsBack(t *testing.T) {
	f := newFixture(t, monday)
	ctx := context.Background()
	_, err := f.svc.CreatePlan(ctx, core.Monthly, rp(100), []core.CategoryLimit{{Name: "Food", Limit: rp(100)}})
	require.NoError(t, err)

	f.store.failAppend = true
	_, err = f.svc.AddTransaction(ctx, expense("Dinner", "Food", 40))
	require.ErrorIs(t, err, errDisk)

	assert.Empty(t, f.svc.Transactions())
	assert.True(t, f.svc.Totals().Expense.IsZero())
	st, _ := f.svc.BudgetStatus()
	assert.True(t, st.TotalSpent.IsZero())
}

func TestDeleteTransaction_PersistFailureRestores(t *testing.T) {
	f := newFixture(t, monday)
	ctx := context.Background()
	_, err := f.svc.CreatePlan(ctx, core.Monthly, rp(100), []core.CategoryLimit{{Name: "Food", Limit: rp(100)}})
	require.NoError(t, err)
	tx, err := f.svc.AddTransaction(ctx, expense("Dinner", "Food", 40))
	require.NoError(t, err)

	f.store.failDelete = true
	_, err = f.svc.DeleteTransaction(ctx, tx.ID)
	require.ErrorIs(t, err, errDisk)

	assert.Len(t, f.svc.Transactions(), 1)
	st, _ := f.svc.BudgetStatus()
	assert.Equal(t, rp(40), st.TotalSpent)
}

func TestStartup_RepairsDriftAfterLostBudgetWrite(t *testing.T) {
	f := newFixture(t, monday)
	ctx := context.Background()
	_, err := f.svc.CreatePlan(ctx, core.Monthly, rp(100), []core.CategoryLimit{{Name: "Food", Limit: rp(100)}})
	require.NoError(t, err)

	f.store.failBudget = true
	_, err = f.svc.AddTransaction(ctx, expense("Dinner", "Food", 40))
	require.NoError(t, err, "the ledger write succeeded")
	f.store.failBudget = false

	// Restart: the stored plan still says nothing was spent.
	restarted := f.open(t)
	assert.NotEmpty(t, restarted.Verify())

	require.NoError(t, restarted.Startup(ctx))
	assert.Empty(t, restarted.Verify())
	saved, err := f.store.LoadBudget(ctx)
	require.NoError(t, err)
	assert.Equal(t, rp(40), saved.TotalSpent())
}

func TestReconcile_NoPlan(t *testing.T) {
	f := newFixture(t, monday)
	drifts, err := f.svc.Reconcile(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, drifts)
}

func TestOverviewAndSeries(t *testing.T) {
	f := newFixture(t, monday)
	ctx := context.Background()
	_, err := f.svc.AddTransaction(ctx, income("Salary", 1000))
	require.NoError(t, err)
	for i := 0; i < 12; i++ {
		f.clock.Advance(time.Hour)
		_, err := f.svc.AddTransaction(ctx, expense("Snack", "Food", 70))
		require.NoError(t, err)
	}

	ov := f.svc.Overview()
	assert.Equal(t, rp(160), ov.Totals.Balance)
	assert.True(t, ov.LowBalance)
	assert.Nil(t, ov.Budget)
	assert.Len(t, ov.Recent, recentLimit)
	assert.Equal(t, "Snack", ov.Recent[0].Description)

	s, err := f.svc.Series(core.Daily)
	require.NoError(t, err)
	assert.Equal(t, 7, s.Len())
	assert.Equal(t, rp(840), s.Summary().Expense)

	_, err = f.svc.Series("hourly")
	assert.ErrorIs(t, err, core.ErrInvalidPeriod)
}

func TestCountdown(t *testing.T) {
	f := newFixture(t, time.Date(2024, 1, 15, 21, 30, 0, 0, time.UTC))
	_, ok := f.svc.Countdown()
	assert.False(t, ok)

	_, err := f.svc.CreatePlan(context.Background(), core.Daily, rp(10), []core.CategoryLimit{{Name: "Food", Limit: rp(10)}})
	require.NoError(t, err)
	got, ok := f.svc.Countdown()
	assert.True(t, ok)
	assert.Equal(t, "2h 30m", got)
}

func TestDraft(t *testing.T) {
	f := newFixture(t, monday)
	ctx := context.Background()

	d, err := f.svc.Draft(ctx)
	require.NoError(t, err)
	assert.Nil(t, d)

	require.NoError(t, f.svc.SaveDraft(ctx, core.BudgetDraft{Period: "monthly", TotalLimit: "abc"}))
	d, err = f.svc.Draft(ctx)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "abc", d.TotalLimit)
	assert.True(t, d.UpdatedAt.Equal(monday))
}
