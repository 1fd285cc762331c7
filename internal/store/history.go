package store

import (
	"sort"

	"github.com/sadopc/protocol/internal/clock"
)

// DayHistory returns the record for day: the archived DayRecord for a closed
// day, or a live-computed one for the open day. Unknown days report false.
func (s *Store) DayHistory(day clock.DayID) (DayRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if day != clock.NoDay && day == s.state.LastResetDay {
		return s.recordLocked(day), true
	}
	rec, ok := s.state.Records[day]
	return rec, ok
}

// DayRecords returns the archive ordered by day.
func (s *Store) DayRecords() []DayRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]DayRecord, 0, len(s.state.Records))
	for _, r := range s.state.Records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}
