package budget

import "time"

// Sequencer hands out strictly increasing instants so that no ledger record
// shares its timestamp with a reset or a plan creation. Counts and Replay
// then agree on which side of lastReset every expense falls, even when the
// clock is frozen or coarse.
//
// The zero value is ready to use. It is not safe for concurrent use.
type Sequencer struct {
	last time.Time
}

// Observe raises the floor to t, e.g. for timestamps loaded from storage.
func (s *Sequencer) Observe(t time.Time) {
	if t.After(s.last) {
		s.last = t
	}
}

// Next returns now, or one nanosecond past the latest instant handed out or
// observed when the clock has not moved beyond it. The result keeps now's
// location.
func (s *Sequencer) Next(now time.Time) time.Time {
	if !now.After(s.last) {
		now = s.last.Add(time.Nanosecond).In(now.Location())
	}
	s.last = now
	return now
}
