package generic

import "time"

// =============================================================================
// PERIOD - The aggregation window
// =============================================================================

// Period is an inclusive range of calendar days [Start, End].
// Payroll is ALWAYS computed for a period, typically one calendar month.
//
// Examples:
//   - March 2025: Mar 1 - Mar 31
//   - A custom batch: Mar 10 - Mar 16
type Period struct {
	Start time.Time
	End   time.Time
}

// MonthPeriod returns the calendar month [1st, last day].
func MonthPeriod(year int, month time.Month) Period {
	start := Date(year, month, 1)
	return Period{Start: start, End: start.AddDate(0, 1, -1)}
}

// Validate checks that End is not before Start.
func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() || StartOfDay(p.End).Before(StartOfDay(p.Start)) {
		return &IntervalError{Start: p.Start, End: p.End, Reason: "period end before start"}
	}
	return nil
}

// Contains returns true if t falls on a day within [Start, End].
func (p Period) Contains(t time.Time) bool {
	day := dayOf(t)
	return !day.Before(dayOf(p.Start)) && !day.After(dayOf(p.End))
}

// Days returns every day in the period.
func (p Period) Days() []time.Time {
	var days []time.Time
	for d := dayOf(p.Start); !d.After(dayOf(p.End)); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// ShiftLookback returns the period extended back to the Monday of its
// first ISO week, and by at least one day. Shifts in the extension are
// context for rest and weekly limits; they belong to an earlier period.
func (p Period) ShiftLookback() Period {
	start := WeekStart(p.Start)
	if dayBefore := dayOf(p.Start).AddDate(0, 0, -1); dayBefore.Before(start) {
		start = dayBefore
	}
	return Period{Start: start, End: p.End}
}

// IsMonth reports whether the period is exactly one calendar month.
func (p Period) IsMonth() bool {
	m := MonthPeriod(p.Start.Year(), p.Start.Month())
	return dayOf(p.Start).Equal(m.Start) && dayOf(p.End).Equal(m.End)
}

// String returns "2025-03" for a calendar month, "[2025-03-10, 2025-03-16]" otherwise.
func (p Period) String() string {
	if p.IsMonth() {
		return p.Start.Format("2006-01")
	}
	return "[" + p.Start.Format("2006-01-02") + ", " + p.End.Format("2006-01-02") + "]"
}

// dayOf normalizes to a UTC calendar day so that periods compare by date
// regardless of the location the caller used.
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}
