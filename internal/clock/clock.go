// Package clock maps wall-clock instants onto discipline days.
//
// A discipline day runs from 04:00 local time until 03:59:59 the following
// calendar day and is identified by the calendar date it starts on.
package clock

import "time"

// ResetHour is the local hour at which one discipline day ends and the next begins.
const ResetHour = 4

const dayLayout = "2006-01-02"

// DayID identifies a discipline day by its starting calendar date (YYYY-MM-DD).
type DayID string

// NoDay is the sentinel for "no discipline day has been opened yet".
const NoDay DayID = ""

func (d DayID) String() string { return string(d) }

// Valid reports whether d parses as a calendar date.
func (d DayID) Valid() bool {
	_, err := time.Parse(dayLayout, string(d))
	return err == nil
}

// CurrentDayID returns the discipline day containing now. Before ResetHour the
// instant still belongs to the previous calendar date.
func CurrentDayID(now time.Time) DayID {
	if now.Hour() < ResetHour {
		now = now.AddDate(0, 0, -1)
	}
	return DayID(now.Format(dayLayout))
}

// PreviousDayID returns the calendar date one day before id. It works on the
// date alone, so no hour or DST arithmetic is involved. An unparseable id
// yields NoDay.
func PreviousDayID(id DayID) DayID {
	t, err := time.Parse(dayLayout, string(id))
	if err != nil {
		return NoDay
	}
	return DayID(t.AddDate(0, 0, -1).Format(dayLayout))
}

// NextDayID returns the calendar date one day after id.
func NextDayID(id DayID) DayID {
	t, err := time.Parse(dayLayout, string(id))
	if err != nil {
		return NoDay
	}
	return DayID(t.AddDate(0, 0, 1).Format(dayLayout))
}

// Boundary returns the instant that opens discipline day id, in loc.
func Boundary(id DayID, loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation(dayLayout, string(id), loc)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(t.Year(), t.Month(), t.Day(), ResetHour, 0, 0, 0, loc), true
}

// UntilNextBoundary returns the delay from now until the next ResetHour:00:00
// strictly after now. The result is always in (0, 24h]; a DST transition that
// stretches the wall-clock day is clamped, and the caller re-arms on the
// unchanged day id.
func UntilNextBoundary(now time.Time) time.Duration {
	loc := now.Location()
	next := time.Date(now.Year(), now.Month(), now.Day(), ResetHour, 0, 0, 0, loc)
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, ResetHour, 0, 0, 0, loc)
	}

	d := next.Sub(now)
	switch {
	case d <= 0:
		d = time.Nanosecond
	case d > 24*time.Hour:
		d = 24 * time.Hour
	}
	return d
}

// DaysBetween returns the number of calendar days from a to b (b - a). Both
// must be valid; otherwise ok is false.
func DaysBetween(a, b DayID) (int, bool) {
	ta, err := time.Parse(dayLayout, string(a))
	if err != nil {
		return 0, false
	}
	tb, err := time.Parse(dayLayout, string(b))
	if err != nil {
		return 0, false
	}
	return int(tb.Sub(ta).Hours() / 24), true
}
