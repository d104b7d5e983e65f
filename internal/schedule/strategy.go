// Package schedule decides when a budget period rolls over.
//
// Each period (daily, weekly, monthly, yearly) has its own strategy that
// encapsulates the reset-due rule and the next reset instant. All functions
// are pure: they only look at the instants passed in, and lastReset is read in
// now's location so that "calendar day" means the local day.
package schedule

import (
	"fmt"
	"time"

	"fintrack/internal/core"
)

// ResetChecker is the strategy interface for one budget period.
type ResetChecker interface {
	// IsDue returns true if the period containing now differs from the period
	// containing lastReset.
	IsDue(lastReset, now time.Time) bool
	// Next returns the start of the period following the one containing now.
	Next(now time.Time) time.Time
}

// DailyChecker implements ResetChecker for daily budgets.
type DailyChecker struct{}

// IsDue returns true if the calendar dates differ.
func (DailyChecker) IsDue(lastReset, now time.Time) bool {
	lastReset = lastReset.In(now.Location())
	ly, lm, ld := lastReset.Date()
	ny, nm, nd := now.Date()
	return ly != ny || lm != nm || ld != nd
}

// Next returns the next local midnight.
func (DailyChecker) Next(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
}

// WeeklyChecker implements ResetChecker for weekly budgets. Weeks are ISO
// weeks: they start on Monday and belong to the ISO week-numbering year.
type WeeklyChecker struct{}

// IsDue returns true if the ISO (year, week) pairs differ.
func (WeeklyChecker) IsDue(lastReset, now time.Time) bool {
	ly, lw := lastReset.In(now.Location()).ISOWeek()
	ny, nw := now.ISOWeek()
	return ly != ny || lw != nw
}

// Next returns the next Monday 00:00; on a Monday it is the following Monday.
func (WeeklyChecker) Next(now time.Time) time.Time {
	days := (int(time.Monday) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	y, m, d := now.Date()
	return time.Date(y, m, d+days, 0, 0, 0, 0, now.Location())
}

// MonthlyChecker implements ResetChecker for monthly budgets.
type MonthlyChecker struct{}

// IsDue returns true if (year, month) differ.
func (MonthlyChecker) IsDue(lastReset, now time.Time) bool {
	lastReset = lastReset.In(now.Location())
	return lastReset.Year() != now.Year() || lastReset.Month() != now.Month()
}

// Next returns the first of next month at 00:00.
func (MonthlyChecker) Next(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
}

// YearlyChecker implements ResetChecker for yearly budgets.
type YearlyChecker struct{}

// IsDue returns true if the years differ.
func (YearlyChecker) IsDue(lastReset, now time.Time) bool {
	return lastReset.In(now.Location()).Year() != now.Year()
}

// Next returns January 1st 00:00 of next year.
func (YearlyChecker) Next(now time.Time) time.Time {
	return time.Date(now.Year()+1, time.January, 1, 0, 0, 0, 0, now.Location())
}

// resetStrategies maps periods to their checkers.
var resetStrategies = map[core.Period]ResetChecker{
	core.Daily:   DailyChecker{},
	core.Weekly:  WeeklyChecker{},
	core.Monthly: MonthlyChecker{},
	core.Yearly:  YearlyChecker{},
}

// GetResetChecker returns the checker for a period.
func GetResetChecker(period core.Period) (ResetChecker, error) {
	checker, ok := resetStrategies[period]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrInvalidPeriod, string(period))
	}
	return checker, nil
}

// IsResetDue reports whether a plan last reset at lastReset must be reset now.
// A lastReset later than now (clock moved backwards) is never due.
func IsResetDue(period core.Period, lastReset, now time.Time) (bool, error) {
	checker, err := GetResetChecker(period)
	if err != nil {
		return false, err
	}
	if lastReset.After(now) {
		return false, nil
	}
	return checker.IsDue(lastReset, now), nil
}

// NextReset returns the instant at which the period containing now ends.
func NextReset(now time.Time, period core.Period) (time.Time, error) {
	checker, err := GetResetChecker(period)
	if err != nil {
		return time.Time{}, err
	}
	return checker.Next(now), nil
}
