// Package telemetry reports unexpected errors to Sentry. Every function is a
// no-op until Init has been called with a DSN.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"fintrack/internal/core"
)

var enabled atomic.Bool

// Options configures the Sentry client.
type Options struct {
	DSN         string
	Environment string
	Release     string
}

// Init starts the Sentry client. An empty DSN leaves reporting disabled.
func Init(opts Options) error {
	if opts.DSN == "" {
		return nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         opts.DSN,
		Environment: opts.Environment,
		Release:     opts.Release,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			// Descriptions are user text and stay local.
			event.Request = nil
			return event
		},
	})
	if err != nil {
		return fmt.Errorf("init sentry: %w", err)
	}
	enabled.Store(true)
	return nil
}

// Enabled reports whether Init succeeded with a DSN.
func Enabled() bool {
	return enabled.Load()
}

// Reportable filters out errors that are expected in normal use.
func Reportable(err error) bool {
	if err == nil {
		return false
	}
	return !core.IsValidation(err) &&
		!errors.Is(err, core.ErrNotFound) &&
		!errors.Is(err, core.ErrNoPlan) &&
		!errors.Is(err, context.Canceled)
}

// Report sends err with an operation tag when it is reportable.
func Report(ctx context.Context, operation string, err error) {
	if !enabled.Load() || !Reportable(err) {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("operation", operation)
		var inc *core.InconsistentStateError
		if errors.As(err, &inc) {
			scope.SetLevel(sentry.LevelWarning)
			scope.SetContext("budget", map[string]any{
				"category":     inc.Category,
				"amount_cents": inc.Amount.Cents,
			})
		}
		hub.CaptureException(err)
	})
}

// Breadcrumb records a state transition for later reports.
func Breadcrumb(category, message string) {
	if !enabled.Load() {
		return
	}
	sentry.AddBreadcrumb(&sentry.Breadcrumb{
		Category: category,
		Message:  message,
		Level:    sentry.LevelInfo,
	})
}

// Flush waits for queued events.
func Flush(timeout time.Duration) {
	if enabled.Load() {
		sentry.Flush(timeout)
	}
}
