// Package notify carries budget events to whoever presents them: the log, a
// message broker, the terminal.
package notify

import (
	"fmt"
	"time"

	"fintrack/internal/core"
)

// EventType names a notification.
type EventType string

const (
	EventBudgetReset      EventType = "budget_reset"
	EventOverLimit        EventType = "over_limit"
	EventNearLimit        EventType = "near_limit"
	EventValidationFailed EventType = "validation_failed"
)

// Reset triggers.
const (
	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

// Event is one discrete notification. Only the fields relevant to Type are set.
type Event struct {
	Type      EventType   `json:"type"`
	Period    core.Period `json:"period,omitempty"`
	Trigger   string      `json:"trigger,omitempty"`
	Remaining core.Money  `json:"remaining"`
	Message   string      `json:"message,omitempty"`
	At        time.Time   `json:"at"`
}

// BudgetReset reports that every category was zeroed.
func BudgetReset(period core.Period, trigger string, at time.Time) Event {
	return Event{Type: EventBudgetReset, Period: period, Trigger: trigger, At: at}
}

// OverLimit reports a negative overall remaining allowance.
func OverLimit(remaining core.Money, at time.Time) Event {
	return Event{Type: EventOverLimit, Remaining: remaining, At: at}
}

// NearLimit reports less than a fifth of the total limit left.
func NearLimit(remaining core.Money, at time.Time) Event {
	return Event{Type: EventNearLimit, Remaining: remaining, At: at}
}

// ValidationFailed reports rejected user input.
func ValidationFailed(err error, at time.Time) Event {
	return Event{Type: EventValidationFailed, Message: err.Error(), At: at}
}

// Describe renders the event as a one-line user message.
func (e Event) Describe(currency string) string {
	switch e.Type {
	case EventBudgetReset:
		return fmt.Sprintf("Budget reset for the new %s period", e.Period)
	case EventOverLimit:
		return fmt.Sprintf("Over budget by %s", core.Money{Cents: -e.Remaining.Cents}.Format(currency))
	case EventNearLimit:
		return fmt.Sprintf("Only %s left in this budget period", e.Remaining.Format(currency))
	case EventValidationFailed:
		return e.Message
	default:
		return string(e.Type)
	}
}
