// Package report aggregates ledger entries into chart series.
package report

import (
	"fmt"
	"iter"
	"time"

	"fintrack/internal/core"
)

// Bucket counts.
const (
	DailyBuckets   = 7
	WeeklyBuckets  = 8
	MonthlyBuckets = 12
	YearlyBuckets  = 5
)

// Bucket is one chart point covering the inclusive date range [Start, End].
type Bucket struct {
	Label string
	Start core.Date
	End   core.Date
}

// Contains reports whether d falls inside the bucket.
func (b Bucket) Contains(d core.Date) bool {
	return d.Between(b.Start, b.End)
}

// Buckets yields the chart buckets for period ending at today, oldest first.
// The sequence is recomputed on every iteration and yields nothing for an
// unknown period.
func Buckets(period core.Period, today core.Date) iter.Seq[Bucket] {
	return func(yield func(Bucket) bool) {
		switch period {
		case core.Daily:
			for i := DailyBuckets - 1; i >= 0; i-- {
				d := today.AddDays(-i)
				if !yield(Bucket{Label: d.Format("Mon 2"), Start: d, End: d}) {
					return
				}
			}
		case core.Weekly:
			// Rolling windows anchored on today, not calendar weeks.
			for k := WeeklyBuckets - 1; k >= 0; k-- {
				end := today.AddDays(-7 * k)
				b := Bucket{
					Label: fmt.Sprintf("Week %d", WeeklyBuckets-k),
					Start: end.AddDays(-6),
					End:   end,
				}
				if !yield(b) {
					return
				}
			}
		case core.Monthly:
			for i := MonthlyBuckets - 1; i >= 0; i-- {
				first := core.Date{Time: time.Date(today.Year(), time.Month(today.Month())-time.Month(i), 1, 0, 0, 0, 0, time.UTC)}
				last := core.Date{Time: first.AddDate(0, 1, -1)}
				if !yield(Bucket{Label: first.Format("Jan 2006"), Start: first, End: last}) {
					return
				}
			}
		case core.Yearly:
			for i := YearlyBuckets - 1; i >= 0; i-- {
				y := today.Year() - i
				b := Bucket{
					Label: fmt.Sprintf("%d", y),
					Start: core.NewDate(y, 1, 1),
					End:   core.NewDate(y, 12, 31),
				}
				if !yield(b) {
					return
				}
			}
		}
	}
}

// BuildSeries sums income and expense amounts per bucket. Transactions
// outside every bucket are ignored.
func BuildSeries(period core.Period, txs []core.Transaction, today core.Date) (core.Series, error) {
	if err := period.Validate(); err != nil {
		return core.Series{}, err
	}

	s := core.Series{Period: period}
	for b := range Buckets(period, today) {
		var income, expense core.Money
		for _, tx := range txs {
			if !b.Contains(tx.OccurredAt) {
				continue
			}
			if tx.IsExpense() {
				expense = expense.Add(tx.Amount)
			} else {
				income = income.Add(tx.Amount)
			}
		}
		s.Labels = append(s.Labels, b.Label)
		s.Income = append(s.Income, income)
		s.Expense = append(s.Expense, expense)
	}
	return s, nil
}
