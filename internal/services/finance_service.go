package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fintrack/internal/budget"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/metrics"
	"fintrack/internal/notify"
	"fintrack/internal/report"
	"fintrack/internal/schedule"
	"fintrack/internal/storage"
	"fintrack/internal/telemetry"
)

// FinanceService orchestrates the ledger, the budget engine and persistence.
// Every mutation runs under one mutex; notifications are delivered after it
// is released.
type FinanceService struct {
	mu     sync.Mutex
	store  storage.Store
	ledger *ledger.Ledger
	engine *budget.Engine
	seq    budget.Sequencer

	sink   notify.Sink
	logger *log.Logger
	clock  func() time.Time
	loc    *time.Location
}

// Option customizes a FinanceService.
type Option func(*FinanceService)

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *FinanceService) { s.clock = clock }
}

// WithLocation sets the zone that defines calendar days and period boundaries.
func WithLocation(loc *time.Location) Option {
	return func(s *FinanceService) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithSink sets where budget events go.
func WithSink(sink notify.Sink) Option {
	return func(s *FinanceService) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *FinanceService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Overview is the balance card plus the budget summary.
type Overview struct {
	Totals     core.Totals        `json:"totals"`
	LowBalance bool               `json:"lowBalance"`
	Budget     *core.BudgetStatus `json:"budget,omitempty"`
	Recent     []core.Transaction `json:"recentTransactions"`
}

// recentLimit bounds Overview.Recent.
const recentLimit = 10

// NewFinanceService loads the persisted ledger and plan from store.
func NewFinanceService(ctx context.Context, store storage.Store, opts ...Option) (*FinanceService, error) {
	s := &FinanceService{
		store:  store,
		sink:   notify.Discard,
		logger: log.New(log.DefaultConfig()),
		clock:  time.Now,
		loc:    time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentBudget)

	txs, err := store.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	plan, err := store.LoadBudget(ctx)
	if err != nil {
		return nil, fmt.Errorf("load budget: %w", err)
	}

	s.ledger = ledger.New(txs)
	s.engine = budget.NewEngine(plan)
	for _, tx := range txs {
		s.seq.Observe(tx.RecordedAt)
	}
	if p, ok := s.engine.Plan(); ok {
		s.seq.Observe(p.CreatedAt)
		s.seq.Observe(p.LastReset)
	}

	s.logger.Info("Loaded finance state",
		"transactions", s.ledger.Len(),
		"has_plan", s.engine.HasPlan())
	s.observe()
	return s, nil
}

func (s *FinanceService) now() time.Time {
	return s.clock().In(s.loc)
}

// Location is the zone used for calendar computations.
func (s *FinanceService) Location() *time.Location {
	return s.loc
}

// Startup runs the scheduled reset check once and repairs a spent cache that
// drifted from the ledger, e.g. after a crash between the two writes of an
// expense.
func (s *FinanceService) Startup(ctx context.Context) error {
	if _, err := s.CheckAndReset(ctx); err != nil {
		return err
	}
	drifts, err := s.verifyAndRepair(ctx)
	if err != nil {
		return err
	}
	if len(drifts) > 0 {
		s.logger.Warn("Repaired budget cache on startup", "categories", len(drifts))
	}
	return nil
}

// CheckAndReset zeroes every category when the plan's period rolled over since
// the last reset. Spent values and lastReset are persisted in one write.
func (s *FinanceService) CheckAndReset(ctx context.Context) (bool, error) {
	s.mu.Lock()
	reset, events, err := s.checkAndResetLocked(ctx)
	s.mu.Unlock()
	s.emit(ctx, events)
	return reset, err
}

func (s *FinanceService) checkAndResetLocked(ctx context.Context) (bool, []notify.Event, error) {
	now := s.now()
	due, err := s.engine.ResetDue(now)
	if err != nil || !due {
		return false, nil, err
	}
	events, err := s.resetLocked(ctx, now, notify.TriggerScheduled)
	if err != nil {
		return false, nil, err
	}
	return true, events, nil
}

// ResetBudget is the user-triggered reset.
func (s *FinanceService) ResetBudget(ctx context.Context) error {
	s.mu.Lock()
	events, err := s.resetLocked(ctx, s.now(), notify.TriggerManual)
	s.mu.Unlock()
	s.emit(ctx, events)
	return err
}

func (s *FinanceService) resetLocked(ctx context.Context, now time.Time, trigger string) ([]notify.Event, error) {
	prev, ok := s.engine.Plan()
	if !ok {
		return nil, core.ErrNoPlan
	}
	now = s.seq.Next(now)
	if err := s.engine.Reset(now); err != nil {
		return nil, err
	}
	if err := s.persistPlan(ctx); err != nil {
		s.engine = budget.NewEngine(&prev)
		return nil, err
	}

	metrics.BudgetResets.WithLabelValues(trigger).Inc()
	telemetry.Breadcrumb("budget", trigger+" reset")
	s.observe()
	s.logger.InfoContext(ctx, "Budget reset",
		log.NewFields().WithOperation(log.OpReset).WithPlan(prev).ToSlice()...,
	)
	return []notify.Event{notify.BudgetReset(prev.Period, trigger, now)}, nil
}

// AddTransaction records a transaction dated today. Expenses must name a
// category of the active plan and are added to its spent total.
func (s *FinanceService) AddTransaction(ctx context.Context, draft core.TransactionDraft) (core.Transaction, error) {
	s.mu.Lock()
	tx, events, err := s.addLocked(ctx, draft)
	s.mu.Unlock()
	s.emit(ctx, events)
	return tx, err
}

// AddTransactionInput parses raw form input and records it. Amounts or types
// that do not parse are rejected like any other invalid input, including the
// ValidationFailed notification.
func (s *FinanceService) AddTransactionInput(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	draft, err := in.Draft()
	if err != nil {
		s.emit(ctx, s.rejected(err, s.now()))
		return core.Transaction{}, err
	}
	return s.AddTransaction(ctx, draft)
}

func (s *FinanceService) addLocked(ctx context.Context, draft core.TransactionDraft) (core.Transaction, []notify.Event, error) {
	now := s.now()

	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		return core.Transaction{}, s.rejected(err, now), err
	}
	if plan, ok := s.engine.Plan(); ok && draft.Kind == core.Expense && !plan.HasCategory(draft.Category) {
		err := fmt.Errorf("%w: %q", core.ErrUnknownCategory, draft.Category)
		return core.Transaction{}, s.rejected(err, now), err
	}

	tx, err := s.ledger.Append(draft, s.seq.Next(now))
	if err != nil {
		return core.Transaction{}, s.rejected(err, now), err
	}
	if err := s.store.AppendTransaction(ctx, tx); err != nil {
		s.ledger.Discard(tx.ID)
		telemetry.Report(ctx, log.OpAppend, err)
		return core.Transaction{}, nil, fmt.Errorf("save transaction: %w", err)
	}

	metrics.TransactionsAppended.WithLabelValues(string(tx.Kind)).Inc()
	s.logger.InfoContext(ctx, "Transaction recorded",
		log.NewFields().WithOperation(log.OpAppend).WithTransaction(tx).ToSlice()...,
	)

	var events []notify.Event
	if tx.IsExpense() && s.engine.HasPlan() {
		if err := s.engine.ApplyExpense(tx.Category, tx.Amount); err != nil {
			s.inconsistent(ctx, err)
		} else {
			s.persistPlanBestEffort(ctx)
		}
		events = s.thresholdEvents(now)
	}
	s.observe()
	return tx, events, nil
}

// DeleteTransaction removes a transaction and reverses its budget effect when
// it was recorded in the current period. Unknown ids return core.ErrNotFound
// and change nothing.
func (s *FinanceService) DeleteTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.ledger.Remove(id)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		s.ledger.Restore(tx)
		telemetry.Report(ctx, log.OpDelete, err)
		return core.Transaction{}, fmt.Errorf("delete transaction: %w", err)
	}

	metrics.TransactionsDeleted.WithLabelValues(string(tx.Kind)).Inc()
	s.logger.InfoContext(ctx, "Transaction deleted",
		log.NewFields().WithOperation(log.OpDelete).WithTransaction(tx).ToSlice()...,
	)

	if tx.IsExpense() && s.engine.Counts(tx.RecordedAt) {
		if err := s.engine.ReverseExpense(tx.Category, tx.Amount); err != nil {
			s.inconsistent(ctx, err)
		}
		// A clamped reversal still changed spent.
		s.persistPlanBestEffort(ctx)
	}
	s.observe()
	return tx, nil
}

// CreatePlan replaces the active plan. Spent starts at zero and lastReset is
// now, so earlier expenses do not count against it.
func (s *FinanceService) CreatePlan(ctx context.Context, period core.Period, totalLimit core.Money, categories []core.CategoryLimit) (core.BudgetPlan, error) {
	s.mu.Lock()
	plan, events, err := s.createPlanLocked(ctx, period, totalLimit, categories)
	s.mu.Unlock()
	s.emit(ctx, events)
	return plan, err
}

// CreatePlanFromDraft parses budget form input and creates the plan.
func (s *FinanceService) CreatePlanFromDraft(ctx context.Context, draft core.BudgetDraft) (core.BudgetPlan, error) {
	period, total, cats, err := budget.ParseDraft(draft)
	if err != nil {
		s.emit(ctx, s.rejected(err, s.now()))
		return core.BudgetPlan{}, err
	}
	return s.CreatePlan(ctx, period, total, cats)
}

func (s *FinanceService) createPlanLocked(ctx context.Context, period core.Period, totalLimit core.Money, categories []core.CategoryLimit) (core.BudgetPlan, []notify.Event, error) {
	now := s.now()
	prev, hadPlan := s.engine.Plan()

	plan, err := s.engine.CreatePlan(period, totalLimit, categories, s.seq.Next(now))
	if err != nil {
		return core.BudgetPlan{}, s.rejected(err, now), err
	}
	if err := s.persistPlan(ctx); err != nil {
		if hadPlan {
			s.engine = budget.NewEngine(&prev)
		} else {
			s.engine = budget.NewEngine(nil)
		}
		return core.BudgetPlan{}, nil, err
	}

	s.observe()
	s.logger.InfoContext(ctx, "Budget plan created",
		append(log.NewFields().WithOperation(log.OpCreate).WithPlan(plan).ToSlice(),
			"categories", len(plan.Categories))...,
	)
	return plan, nil, nil
}

// Reconcile rebuilds spent from the ledger and persists the result.
func (s *FinanceService) Reconcile(ctx context.Context) ([]budget.Drift, error) {
	return s.verifyAndRepair(ctx)
}

// Verify reports drift between spent and the ledger without repairing it.
func (s *FinanceService) Verify() []budget.Drift {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Verify(s.ledger.All())
}

func (s *FinanceService) verifyAndRepair(ctx context.Context) ([]budget.Drift, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.engine.Plan()
	if !ok {
		return nil, nil
	}
	drifts := s.engine.Reconcile(s.ledger.All())
	if len(drifts) == 0 {
		return nil, nil
	}
	if err := s.persistPlan(ctx); err != nil {
		s.engine = budget.NewEngine(&prev)
		return nil, err
	}
	for _, d := range drifts {
		s.logger.WarnContext(ctx, "Budget cache drift repaired",
			log.FieldOperation, log.OpReconcile,
			log.FieldCategory, d.Category,
			"cached_cents", d.Cached.Cents,
			"replayed_cents", d.Replayed.Cents)
	}
	s.observe()
	return drifts, nil
}

// Totals returns income, expense and balance over the whole ledger.
func (s *FinanceService) Totals() core.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Totals()
}

// Transactions lists every transaction, most recent first.
func (s *FinanceService) Transactions() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Recent()
}

// Plan returns the active plan.
func (s *FinanceService) Plan() (core.BudgetPlan, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Plan()
}

// BudgetStatus is the budget render payload.
func (s *FinanceService) BudgetStatus() (core.BudgetStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Status(s.now())
}

// NextReset is when the active plan's period ends.
func (s *FinanceService) NextReset() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	plan, ok := s.engine.Plan()
	if !ok {
		return time.Time{}, false
	}
	next, err := schedule.NextReset(s.now(), plan.Period)
	if err != nil {
		return time.Time{}, false
	}
	return next, true
}

// Countdown renders the time left until NextReset.
func (s *FinanceService) Countdown() (string, bool) {
	next, ok := s.NextReset()
	if !ok {
		return "", false
	}
	return schedule.Countdown(s.now(), next), true
}

// Overview bundles the balance card, the budget status and recent activity.
func (s *FinanceService) Overview() Overview {
	s.mu.Lock()
	defer s.mu.Unlock()

	totals := s.ledger.Totals()
	recent := s.ledger.Recent()
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}
	ov := Overview{Totals: totals, LowBalance: totals.LowBalance(), Recent: recent}
	if st, ok := s.engine.Status(s.now()); ok {
		ov.Budget = &st
	}
	return ov
}

// Series builds the chart for a period ending today.
func (s *FinanceService) Series(period core.Period) (core.Series, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return report.BuildSeries(period, s.ledger.All(), core.DateOf(s.now()))
}

// SaveDraft stores the budget form without validating it.
func (s *FinanceService) SaveDraft(ctx context.Context, draft core.BudgetDraft) error {
	draft.UpdatedAt = s.now()
	if err := s.store.SaveDraft(ctx, draft); err != nil {
		return fmt.Errorf("save budget draft: %w", err)
	}
	return nil
}

// Draft returns the saved budget form, if any.
func (s *FinanceService) Draft(ctx context.Context) (*core.BudgetDraft, error) {
	return s.store.LoadDraft(ctx)
}

func (s *FinanceService) persistPlan(ctx context.Context) error {
	plan, ok := s.engine.Plan()
	if !ok {
		return nil
	}
	if err := s.store.SaveBudget(ctx, &plan); err != nil {
		telemetry.Report(ctx, log.OpPersist, err)
		return fmt.Errorf("save budget: %w", err)
	}
	return nil
}

// persistPlanBestEffort saves spent after a committed ledger change. On
// failure the stored cache lags the ledger until the next Startup repairs it.
func (s *FinanceService) persistPlanBestEffort(ctx context.Context) {
	if err := s.persistPlan(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist budget after ledger change",
			log.NewFields().WithOperation(log.OpPersist).WithError(err).ToSlice()...,
		)
	}
}

func (s *FinanceService) inconsistent(ctx context.Context, err error) {
	metrics.Inconsistencies.Inc()
	telemetry.Report(ctx, "budget_delta", err)
	var inc *core.InconsistentStateError
	if errors.As(err, &inc) {
		s.logger.WarnContext(ctx, "Budget delta not applied cleanly",
			log.FieldCategory, inc.Category,
			log.FieldAmountCents, inc.Amount.Cents,
			"reason", inc.Reason)
		return
	}
	s.logger.WarnContext(ctx, "Budget delta failed", log.FieldError, err)
}

func (s *FinanceService) rejected(err error, now time.Time) []notify.Event {
	if !core.IsValidation(err) {
		return nil
	}
	metrics.ValidationFailures.Inc()
	return []notify.Event{notify.ValidationFailed(err, now)}
}

func (s *FinanceService) thresholdEvents(now time.Time) []notify.Event {
	switch {
	case s.engine.OverLimit():
		return []notify.Event{notify.OverLimit(s.engine.Remaining(), now)}
	case s.engine.NearLimit():
		return []notify.Event{notify.NearLimit(s.engine.Remaining(), now)}
	}
	return nil
}

func (s *FinanceService) observe() {
	metrics.ObserveTotals(s.ledger.Totals())
	if plan, ok := s.engine.Plan(); ok {
		metrics.ObservePlan(&plan)
	} else {
		metrics.ObservePlan(nil)
	}
}

func (s *FinanceService) emit(ctx context.Context, events []notify.Event) {
	for _, e := range events {
		if err := s.sink.Notify(ctx, e); err != nil {
			s.logger.WarnContext(ctx, "Failed to deliver notification",
				"event", string(e.Type), log.FieldError, err)
		}
	}
}
