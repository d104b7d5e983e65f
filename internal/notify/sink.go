package notify

import (
	"context"
	"errors"
	"sync"

	"fintrack/internal/log"
)

// Sink receives notifications. Implementations must not call back into the
// finance service.
type Sink interface {
	Notify(ctx context.Context, e Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Event) error

func (f SinkFunc) Notify(ctx context.Context, e Event) error { return f(ctx, e) }

// Discard drops every event.
var Discard Sink = SinkFunc(func(context.Context, Event) error { return nil })

// Multi fans an event out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes events to the structured log.
type LogSink struct {
	Logger   *log.Logger
	Currency string
}

// NewLogSink creates a LogSink for the notify component.
func NewLogSink(logger *log.Logger, currency string) *LogSink {
	return &LogSink{Logger: logger.WithComponent(log.ComponentNotify), Currency: currency}
}

func (s *LogSink) Notify(ctx context.Context, e Event) error {
	args := []any{"event", string(e.Type)}
	if e.Period != "" {
		args = append(args, log.FieldPeriod, string(e.Period))
	}
	if e.Trigger != "" {
		args = append(args, log.FieldTrigger, e.Trigger)
	}
	switch e.Type {
	case EventOverLimit, EventNearLimit:
		args = append(args, log.FieldRemaining, e.Remaining.Cents)
		s.Logger.WarnContext(ctx, e.Describe(s.Currency), args...)
	default:
		s.Logger.InfoContext(ctx, e.Describe(s.Currency), args...)
	}
	return nil
}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Notify(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of what was recorded.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types lists the recorded event types in order.
func (r *Recorder) Types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// Reset forgets recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
