package store

import (
	"time"

	"github.com/sadopc/protocol/internal/clock"
)

// Settings returns the enforcement flags.
func (s *Store) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Settings
}

// SetEnforceTaskOrder toggles sequential unlock.
func (s *Store) SetEnforceTaskOrder(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Settings.EnforceTaskOrder == on {
		return
	}
	s.state.Settings.EnforceTaskOrder = on
	s.persistLocked()
}

// SetEnforcePomodoro toggles whether completing a task needs its countdown running.
func (s *Store) SetEnforcePomodoro(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Settings.EnforcePomodoro == on {
		return
	}
	s.state.Settings.EnforcePomodoro = on
	s.persistLocked()
}

// InitiateProtocol unlocks the dashboard for the open day by stamping the
// protocol start time. It reports false if already started or if no day is open.
func (s *Store) InitiateProtocol() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.ProtocolStartedAt != nil || s.state.LastResetDay == clock.NoDay {
		return false
	}
	now := s.clock.Now()
	s.state.ProtocolStartedAt = &now
	s.persistLocked()
	return true
}

// ProtocolStarted returns when the protocol was initiated for the open day.
func (s *Store) ProtocolStarted() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.ProtocolStartedAt == nil {
		return time.Time{}, false
	}
	return *s.state.ProtocolStartedAt, true
}
