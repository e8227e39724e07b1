/*
Package payroll aggregates shift records into per-driver payroll lines.

PURPOSE:
  Turns a driver's shifts for a period into work-time totals, gross wage
  and night supplement. Every line is a full recomputation from the
  source shifts; nothing is updated incrementally, so a corrected shift
  is reflected the next time the period is aggregated.

KEY CONCEPTS IN THIS FILE (wage.go):
  - WageConfig: Hourly wage, supplements and classification policy
  - WageSchedule: Immutable, date-versioned WageConfig collection

PAY COMPONENTS (all optional except the hourly wage):
  - Night supplement: percent of the hourly wage on night minutes
  - Overtime premium: weekly minutes above a threshold pay (multiplier - 1)
    on top of the gross wage
  - Weekend / holiday supplement: percent of the hourly wage on shifts
    starting on Sat/Sun or a listed holiday (holiday wins over weekend)
  - Performance bonus: percent of the gross wage when the driver's ride
    compliance rate reaches a threshold

MID-PERIOD CHANGES:
  Each shift is paid with the WageConfig active on its start date. A
  raise effective on the 15th changes shifts from the 15th on and leaves
  earlier shifts untouched.

EXAMPLE:
  schedule, _ := payroll.NewWageSchedule(payroll.WageConfig{
      ID:                     "wage-2025",
      HourlyWage:             decimal.RequireFromString("12.41"),
      NightSupplementPercent: decimal.NewFromInt(25),
      NightWindow:            generic.NightWindow{Start: generic.NewClockTime(22, 0), End: generic.NewClockTime(6, 0)},
      EarlyShiftBoundary:     generic.NewClockTime(12, 0),
      EffectiveFrom:          generic.Date(2025, 1, 1),
  })
  line, err := payroll.Aggregate(ctx, "drv-7", generic.MonthPeriod(2025, 3), shifts, schedule, payroll.Performance{Rides: 120, RidesViolating: 3})

SEE ALSO:
  - aggregator.go: Per-shift pay and period totals
  - generic/classify.go: Shift classification and minute buckets
*/
package payroll

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/ride-engine/generic"
)

// =============================================================================
// WAGE CONFIG
// =============================================================================

type WageConfigID string

// WageConfig is an immutable, date-versioned wage setting.
type WageConfig struct {
	ID         WageConfigID
	HourlyWage decimal.Decimal

	// Supplement paid on night minutes, in percent of the hourly wage.
	NightSupplementPercent decimal.Decimal

	NightWindow        generic.NightWindow
	EarlyShiftBoundary generic.ClockTime

	// Overlap share that makes a night shift. Zero means generic.DefaultNightShare.
	NightShare decimal.Decimal

	// Statutory minimum per hour worked. Zero disables the check.
	MinimumHourlyWage decimal.Decimal

	// Actual minutes per ISO week above which overtime starts. Zero disables.
	OvertimeThresholdMinutes int

	// Pay factor for overtime minutes, e.g. 1.5. Only the part above 1 is
	// paid as overtime premium; the base is in the gross wage.
	OvertimeMultiplier decimal.Decimal

	WeekendSupplementPercent decimal.Decimal
	HolidaySupplementPercent decimal.Decimal

	// Calendar days paid with the holiday supplement.
	Holidays []time.Time

	// Ride compliance rate (percent) that earns the performance bonus.
	PerformanceBonusThreshold decimal.Decimal

	// Bonus in percent of the gross wage. Zero disables.
	PerformanceBonusPercent decimal.Decimal

	EffectiveFrom time.Time
	Version       int
}

func (w WageConfig) Validate() error {
	if w.ID == "" {
		return fmt.Errorf("wage config: id required")
	}
	if !w.HourlyWage.IsPositive() {
		return fmt.Errorf("wage config %s: hourly wage must be positive", w.ID)
	}
	if w.NightSupplementPercent.IsNegative() {
		return fmt.Errorf("wage config %s: night supplement must not be negative", w.ID)
	}
	if w.NightShare.IsNegative() || w.NightShare.GreaterThanOrEqual(one) {
		return fmt.Errorf("wage config %s: night share must be in [0, 1)", w.ID)
	}
	if w.MinimumHourlyWage.IsNegative() {
		return fmt.Errorf("wage config %s: minimum wage must not be negative", w.ID)
	}
	if w.OvertimeThresholdMinutes < 0 {
		return fmt.Errorf("wage config %s: overtime threshold must not be negative", w.ID)
	}
	if w.OvertimeThresholdMinutes > 0 && w.OvertimeMultiplier.LessThan(one) {
		return fmt.Errorf("wage config %s: overtime multiplier must be at least 1", w.ID)
	}
	if w.WeekendSupplementPercent.IsNegative() || w.HolidaySupplementPercent.IsNegative() {
		return fmt.Errorf("wage config %s: weekend and holiday supplements must not be negative", w.ID)
	}
	if w.PerformanceBonusPercent.IsNegative() ||
		w.PerformanceBonusThreshold.IsNegative() || w.PerformanceBonusThreshold.GreaterThan(hundred) {
		return fmt.Errorf("wage config %s: performance bonus needs a threshold in [0, 100] and a non-negative rate", w.ID)
	}
	if w.EffectiveFrom.IsZero() {
		return fmt.Errorf("wage config %s: effective-from required", w.ID)
	}
	return nil
}

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// IsHoliday reports whether t falls on one of the configured holidays.
func (w WageConfig) IsHoliday(t time.Time) bool {
	return slices.ContainsFunc(w.Holidays, func(h time.Time) bool { return generic.SameDay(h, t) })
}

// IsWeekend reports whether t falls on a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Classification returns the policy used to classify shifts paid with w.
func (w WageConfig) Classification() generic.ClassificationPolicy {
	return generic.ClassificationPolicy{
		NightWindow:        w.NightWindow,
		EarlyShiftBoundary: w.EarlyShiftBoundary,
		NightShare:         w.NightShare,
	}
}

// =============================================================================
// WAGE SCHEDULE
// =============================================================================

// WageSchedule is an immutable collection of wage configs ordered by
// EffectiveFrom. The zero value is an empty schedule.
type WageSchedule struct {
	configs []WageConfig
}

func NewWageSchedule(configs ...WageConfig) (WageSchedule, error) {
	return WageSchedule{}.Append(configs...)
}

// Append returns a new schedule with configs added. The receiver is unchanged.
func (s WageSchedule) Append(configs ...WageConfig) (WageSchedule, error) {
	out := slices.Clone(s.configs)
	for _, c := range configs {
		if err := c.Validate(); err != nil {
			return WageSchedule{}, err
		}
		if slices.ContainsFunc(out, func(o WageConfig) bool { return o.ID == c.ID }) {
			return WageSchedule{}, fmt.Errorf("wage config %s: %w", c.ID, generic.ErrDuplicateConfig)
		}
		c.Holidays = slices.Clone(c.Holidays)
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].EffectiveFrom.Equal(out[j].EffectiveFrom) {
			return out[i].EffectiveFrom.Before(out[j].EffectiveFrom)
		}
		return out[i].Version < out[j].Version
	})
	return WageSchedule{configs: out}, nil
}

func (s WageSchedule) Len() int { return len(s.configs) }

func (s WageSchedule) Configs() []WageConfig { return slices.Clone(s.configs) }

// ActiveOn returns the config with the latest EffectiveFrom on or before
// date. Fails with generic.ErrMissingConfig when none is effective yet.
func (s WageSchedule) ActiveOn(date time.Time) (WageConfig, error) {
	for i := len(s.configs) - 1; i >= 0; i-- {
		if generic.DayOnOrBefore(s.configs[i].EffectiveFrom, date) {
			return s.configs[i], nil
		}
	}
	return WageConfig{}, &generic.MissingConfigError{What: "wage", Date: date}
}
