package store

import (
	"time"

	"github.com/sadopc/protocol/internal/clock"
)

// FailureWindow is how long the failure signal stays active after a trigger.
const FailureWindow = 10 * time.Second

// TriggerFailure appends a failure event for the current discipline day and
// raises the active flag for FailureWindow. The window cannot be cancelled or
// shortened; a repeated trigger appends another event and the flag stays up
// until FailureWindow after the latest one. Failures never touch the streak or
// task completion. Callers are expected to confirm before calling.
func (s *Store) TriggerFailure() FailureEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	ev := FailureEvent{At: now, Day: clock.CurrentDayID(now)}
	s.state.Failures = append(s.state.Failures, ev)
	s.failureUntil = now.Add(FailureWindow)
	s.persistLocked()

	s.log.Info().Str("day", ev.Day.String()).Int("total", len(s.state.Failures)).Msg("failure logged")
	return ev
}

// FailureActive reports whether a failure was triggered less than
// FailureWindow ago. The flag is never persisted.
func (s *Store) FailureActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failureActiveLocked(s.clock.Now())
}

// FailureRemaining returns how long the active flag has left.
func (s *Store) FailureRemaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d := s.failureUntil.Sub(s.clock.Now()); d > 0 {
		return d
	}
	return 0
}

func (s *Store) failureActiveLocked(now time.Time) bool {
	return !s.failureUntil.IsZero() && now.Before(s.failureUntil)
}

// Failures returns the failure log in append order.
func (s *Store) Failures() []FailureEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]FailureEvent(nil), s.state.Failures...)
}

// FailureCount returns the number of failures filed under day.
func (s *Store) FailureCount(day clock.DayID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failureCountLocked(day)
}

func (s *Store) failureCountLocked(day clock.DayID) int {
	n := 0
	for _, f := range s.state.Failures {
		if f.Day == day {
			n++
		}
	}
	return n
}
