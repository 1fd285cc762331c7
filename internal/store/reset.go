package store

import (
	"github.com/sadopc/protocol/internal/clock"
)

// PerformReset moves the store into discipline day newID. It is the only
// entry point for day transitions and is idempotent: a newID equal to the
// open day is a no-op, so redundant scheduler calls never double-archive or
// double-count the streak.
//
// A transition archives the closing day once, updates the streak from that
// day's completeness, clears every per-day flag and stamps newID. Ids that
// are malformed or earlier than the open day are ignored; a closed day is
// never reopened.
func (s *Store) PerformReset(newID clock.DayID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state.LastResetDay
	if newID == prev {
		return
	}
	if !newID.Valid() {
		s.log.Warn().Str("day", newID.String()).Msg("reset to malformed day ignored")
		return
	}
	gap := 0
	if prev != clock.NoDay {
		g, ok := clock.DaysBetween(prev, newID)
		if ok && g < 0 {
			s.log.Warn().
				Str("open", prev.String()).
				Str("day", newID.String()).
				Msg("reset to earlier day ignored")
			return
		}
		gap = g
	}

	if prev != clock.NoDay {
		rec := s.recordLocked(prev)
		if _, exists := s.state.Records[prev]; !exists {
			s.state.Records[prev] = rec
		}

		// Whole days the process slept through were never completed.
		consecutive := gap == 1
		if rec.Complete && consecutive {
			s.state.Streak++
		} else {
			s.state.Streak = 0
		}

		s.log.Info().
			Str("closed", prev.String()).
			Str("opened", newID.String()).
			Bool("complete", rec.Complete).
			Int("days_skipped", max(gap-1, 0)).
			Int("tasks_completed", rec.TasksCompleted).
			Int("total_tasks", rec.TotalTasks).
			Int("streak", s.state.Streak).
			Msg("discipline day closed")
	} else {
		s.log.Info().Str("opened", newID.String()).Msg("first discipline day opened")
	}

	for id := range s.state.Completions {
		s.state.Completions[id] = false
	}
	for id := range s.state.CustomCompletions {
		s.state.CustomCompletions[id] = false
	}
	s.active = nil
	s.state.ProtocolStartedAt = nil
	s.state.LastResetDay = newID

	s.persistLocked()
}

// dayCompleteLocked reports whether every built-in and every custom task is
// complete. With no custom tasks the custom half holds vacuously.
func (s *Store) dayCompleteLocked() bool {
	for _, done := range s.state.Completions {
		if !done {
			return false
		}
	}
	for _, done := range s.state.CustomCompletions {
		if !done {
			return false
		}
	}
	return true
}

// recordLocked computes the DayRecord for day from the current completion
// maps and the journal and failure log entries filed under day.
func (s *Store) recordLocked(day clock.DayID) DayRecord {
	done, total := s.countsLocked()
	entry := s.state.Journal[day]
	return DayRecord{
		Day:            day,
		Complete:       s.dayCompleteLocked(),
		TasksCompleted: done,
		TotalTasks:     total,
		FailureCount:   s.failureCountLocked(day),
		Intent:         entry.Intent,
		Mood:           entry.Mood,
	}
}
