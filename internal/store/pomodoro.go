package store

import "time"

// StartPomodoro binds the single countdown slot to taskID, abandoning any
// countdown already running without completion credit. It reports false only
// when taskID names no task.
func (s *Store) StartPomodoro(taskID string, endTime time.Time, total time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.kindLocked(taskID); !ok {
		return false
	}
	if s.active != nil && s.active.TaskID != taskID {
		s.log.Debug().Str("task", s.active.TaskID).Msg("pomodoro abandoned")
	}
	s.active = &ActivePomodoro{TaskID: taskID, EndTime: endTime, Duration: total}
	return true
}

// StopPomodoro clears the slot without completing its task.
func (s *Store) StopPomodoro() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = nil
}

// ActivePomodoro returns the running countdown, if any.
func (s *Store) ActivePomodoro() (ActivePomodoro, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ActivePomodoro{}, false
	}
	return *s.active, true
}

// ExpirePomodoro handles the end of the countdown bound to taskID that was
// due at endTime. The task is completed through the same path as a manual
// toggle while the slot is still bound, so pomodoro enforcement accepts it;
// only then is the slot cleared. A countdown that no longer matches the slot
// (stopped, replaced, or cleared by a day reset) is ignored. It reports
// whether the task was completed.
func (s *Store) ExpirePomodoro(taskID string, endTime time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil || s.active.TaskID != taskID || !s.active.EndTime.Equal(endTime) {
		return false
	}

	completed := false
	if kind, ok := s.kindLocked(taskID); ok && !s.completedLocked(taskID) {
		completed = s.toggleLocked(kind, taskID)
	}
	s.active = nil

	if completed {
		s.persistLocked()
	}
	return completed
}
