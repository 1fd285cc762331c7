package store

import (
	"fmt"
	"strings"

	"github.com/sadopc/protocol/internal/clock"
)

// SetIntent records the intent for the open discipline day.
func (s *Store) SetIntent(intent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := s.state.LastResetDay
	if day == clock.NoDay {
		return ErrNoOpenDay
	}
	e := s.state.Journal[day]
	e.Intent = strings.TrimSpace(intent)
	s.state.Journal[day] = e
	s.persistLocked()
	return nil
}

// SetMood records a 0-5 mood for the open discipline day. Out-of-range
// values are rejected.
func (s *Store) SetMood(mood int) error {
	if mood < 0 || mood > MaxMood {
		return fmt.Errorf("mood %d out of range 0-%d", mood, MaxMood)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	day := s.state.LastResetDay
	if day == clock.NoDay {
		return ErrNoOpenDay
	}
	e := s.state.Journal[day]
	e.Mood = mood
	s.state.Journal[day] = e
	s.persistLocked()
	return nil
}

// DailyEntry returns the intent and mood filed under day.
func (s *Store) DailyEntry(day clock.DayID) (DailyEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.state.Journal[day]
	return e, ok
}

// LogWeight appends a weight measurement taken now. No capping, no dedup.
func (s *Store) LogWeight(value float64, unit WeightUnit) (WeightEntry, error) {
	if value <= 0 {
		return WeightEntry{}, fmt.Errorf("log weight: %w: value must be positive", ErrInvalidWeight)
	}
	if unit == "" {
		unit = UnitKilograms
	}
	if unit != UnitKilograms && unit != UnitPounds {
		return WeightEntry{}, fmt.Errorf("log weight: %w: unknown unit %q", ErrInvalidWeight, unit)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := WeightEntry{At: s.clock.Now(), Value: value, Unit: unit}
	s.state.Weights = append(s.state.Weights, e)
	s.persistLocked()
	return e, nil
}

// WeightLog returns every weight entry in append order.
func (s *Store) WeightLog() []WeightEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]WeightEntry(nil), s.state.Weights...)
}
