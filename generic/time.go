package generic

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// CLOCK TIME - Time of day, minute resolution
// =============================================================================

// ClockTime is a time of day expressed as minutes after midnight (0..1439).
type ClockTime int

const minutesPerDay = 24 * 60

func NewClockTime(hour, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

// ParseClockTime parses "HH:MM" (24h).
func ParseClockTime(s string) (ClockTime, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid clock time %q: bad hour", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid clock time %q: bad minute", s)
	}
	return NewClockTime(h, m), nil
}

func (c ClockTime) Hour() int   { return int(c) / 60 }
func (c ClockTime) Minute() int { return int(c) % 60 }

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// On returns the instant of this clock time on the calendar day of t.
func (c ClockTime) On(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), c.Hour(), c.Minute(), 0, 0, t.Location())
}

func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ClockTime) UnmarshalText(b []byte) error {
	parsed, err := ParseClockTime(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// =============================================================================
// NIGHT WINDOW - Daily recurring interval, may wrap midnight
// =============================================================================

// NightWindow is the daily interval [Start, End) in which night supplement
// applies. End <= Start means the window wraps midnight (22:00-05:00).
// Start == End is an empty window.
type NightWindow struct {
	Start ClockTime
	End   ClockTime
}

func (w NightWindow) IsEmpty() bool { return w.Start == w.End }

// Length returns the window length in minutes.
func (w NightWindow) Length() int {
	if w.IsEmpty() {
		return 0
	}
	if w.End > w.Start {
		return int(w.End - w.Start)
	}
	return minutesPerDay - int(w.Start) + int(w.End)
}

func (w NightWindow) String() string {
	return w.Start.String() + "-" + w.End.String()
}

// instanceOn returns the concrete window that opens on the day of t.
func (w NightWindow) instanceOn(day time.Time) (time.Time, time.Time) {
	start := w.Start.On(day)
	end := w.End.On(day)
	if w.End <= w.Start {
		end = w.End.On(day.AddDate(0, 0, 1))
	}
	return start, end
}

// =============================================================================
// DURATION / OVERLAP ARITHMETIC
// =============================================================================

// DurationMinutes returns the whole minutes between a and b (truncated).
// Fails with ErrInvalidInterval when b <= a.
func DurationMinutes(a, b time.Time) (int, error) {
	if !b.After(a) {
		return 0, &IntervalError{Start: a, End: b}
	}
	return int(b.Sub(a) / time.Minute), nil
}

// OverlapMinutes returns the whole minutes of [start, end) that fall inside
// the night window, across every day the interval touches.
func OverlapMinutes(start, end time.Time, w NightWindow) int {
	if w.IsEmpty() || !end.After(start) {
		return 0
	}

	var total time.Duration
	// A wrapping window that opened the day before can still cover start.
	for day := StartOfDay(start).AddDate(0, 0, -1); !day.After(end); day = day.AddDate(0, 0, 1) {
		ws, we := w.instanceOn(day)
		total += overlap(start, end, ws, we)
	}
	return int(total / time.Minute)
}

func overlap(aStart, aEnd, bStart, bEnd time.Time) time.Duration {
	lo := aStart
	if bStart.After(lo) {
		lo = bStart
	}
	hi := aEnd
	if bEnd.Before(hi) {
		hi = bEnd
	}
	if !hi.After(lo) {
		return 0
	}
	return hi.Sub(lo)
}

// =============================================================================
// CALENDAR HELPERS
// =============================================================================

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Date builds a UTC calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// WeekStart returns the Monday that starts the ISO week of t.
func WeekStart(t time.Time) time.Time {
	day := StartOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// DayOnOrBefore reports whether the calendar day of a is not after the
// calendar day of b. Locations are ignored; only the dates compare.
func DayOnOrBefore(a, b time.Time) bool {
	return !dayOf(a).After(dayOf(b))
}
