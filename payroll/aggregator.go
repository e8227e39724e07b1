package payroll

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/ride-engine/generic"
)

// =============================================================================
// PAYROLL LINE
// =============================================================================

// ShiftPay is the breakdown of one shift. Amounts are rounded for display;
// period totals are summed from the unrounded values.
type ShiftPay struct {
	ShiftID      generic.ShiftID
	Date         time.Time
	Type         generic.ShiftType
	WageConfigID WageConfigID

	TotalMinutes    int
	BreakMinutes    int
	ActualMinutes   int
	OvertimeMinutes int
	Buckets         generic.MinuteBuckets

	// Holiday takes precedence: a holiday on a weekend is not a weekend shift.
	Weekend bool
	Holiday bool

	GrossWage          decimal.Decimal
	NightSupplement    decimal.Decimal
	OvertimeSupplement decimal.Decimal
	WeekendSupplement  decimal.Decimal
	HolidaySupplement  decimal.Decimal
}

// MinimumWageCheck compares pay against the statutory minimum for the
// actual hours worked.
type MinimumWageCheck struct {
	HourlyMinimum decimal.Decimal
	Required      decimal.Decimal
	Paid          decimal.Decimal
	Shortfall     decimal.Decimal
}

func (c MinimumWageCheck) Compliant() bool { return c.Shortfall.IsZero() }

// PayrollLine is one driver's aggregate for a period.
type PayrollLine struct {
	DriverID generic.DriverID
	Period   generic.Period

	TotalWorkMinutes  int
	TotalBreakMinutes int
	ActualWorkMinutes int
	EarlyShiftMinutes int
	NightShiftMinutes int
	NeutralMinutes    int
	OvertimeMinutes   int
	WeekendMinutes    int
	HolidayMinutes    int

	GrossWage          decimal.Decimal
	NightSupplement    decimal.Decimal
	OvertimeSupplement decimal.Decimal
	WeekendSupplement  decimal.Decimal
	HolidaySupplement  decimal.Decimal
	PerformanceBonus   decimal.Decimal
	TotalPay           decimal.Decimal

	// Ride compliance in percent, two decimals.
	ComplianceRate decimal.Decimal

	Shifts []ShiftPay

	// Nil when the wage config active at period end sets no minimum.
	MinimumWage *MinimumWageCheck
}

// Performance is the ride compliance input of the performance bonus.
type Performance struct {
	Rides          int
	RidesViolating int
}

// ComplianceRate returns the share of rides without violation in percent.
// A driver without rides is fully compliant.
func (p Performance) ComplianceRate() decimal.Decimal {
	if p.Rides <= 0 {
		return hundred
	}
	clean := decimal.NewFromInt(int64(p.Rides - p.RidesViolating))
	return clean.Mul(hundred).Div(decimal.NewFromInt(int64(p.Rides)))
}

// =============================================================================
// AGGREGATION
// =============================================================================

// amounts carries the unrounded money of a shift or a period.
type amounts struct {
	gross, night, overtime, weekend, holiday decimal.Decimal
}

func (a amounts) add(o amounts) amounts {
	return amounts{
		gross:    a.gross.Add(o.gross),
		night:    a.night.Add(o.night),
		overtime: a.overtime.Add(o.overtime),
		weekend:  a.weekend.Add(o.weekend),
		holiday:  a.holiday.Add(o.holiday),
	}
}

func (a amounts) total() decimal.Decimal {
	return a.gross.Add(a.night).Add(a.overtime).Add(a.weekend).Add(a.holiday)
}

// Aggregate computes the payroll line for one driver's shifts starting
// within period. Shifts must be time-ordered and non-overlapping. Shifts
// before the period only count toward their week's overtime threshold;
// they are not paid.
//
// Per shift:
//
//	actual     = shift minutes - break minutes
//	buckets    = classification split of actual (early / night / neutral)
//	gross      = actual/60 * hourly wage
//	night      = night/60 * hourly wage * percent/100
//	overtime   = overtime/60 * hourly wage * (multiplier - 1)
//	weekend    = actual/60 * hourly wage * percent/100 (Sat/Sun start)
//	holiday    = actual/60 * hourly wage * percent/100 (holiday start)
//
// The performance bonus is a percent of the period gross once the ride
// compliance rate reaches the threshold of the config active at period
// end. Totals are summed unrounded and rounded half-up once at the end.
func Aggregate(ctx context.Context, driverID generic.DriverID, period generic.Period, shifts []generic.ShiftRecord, schedule WageSchedule, perf Performance) (PayrollLine, error) {
	if err := period.Validate(); err != nil {
		return PayrollLine{}, err
	}
	if err := generic.CheckShiftSequence(driverID, shifts); err != nil {
		return PayrollLine{}, err
	}

	line := PayrollLine{DriverID: driverID, Period: period}
	var sum amounts
	var buckets generic.MinuteBuckets
	weeks := make(map[time.Time]int)

	for _, s := range shifts {
		if err := generic.CheckCancelled(ctx); err != nil {
			return PayrollLine{}, err
		}
		if !generic.DayOnOrBefore(s.StartAt, period.End) {
			continue
		}
		week := generic.WeekStart(s.StartAt)
		workedBefore := weeks[week]

		if !period.Contains(s.StartAt) {
			_, _, actual, err := s.WorkMinutes()
			if err != nil {
				return PayrollLine{}, err
			}
			weeks[week] = workedBefore + actual
			continue
		}

		cfg, err := schedule.ActiveOn(s.StartAt)
		if err != nil {
			return PayrollLine{}, err
		}
		pay, exact, err := payShift(s, cfg, workedBefore)
		if err != nil {
			return PayrollLine{}, err
		}
		weeks[week] = workedBefore + pay.ActualMinutes

		line.TotalWorkMinutes += pay.TotalMinutes
		line.TotalBreakMinutes += pay.BreakMinutes
		line.ActualWorkMinutes += pay.ActualMinutes
		line.OvertimeMinutes += pay.OvertimeMinutes
		switch {
		case pay.Holiday:
			line.HolidayMinutes += pay.ActualMinutes
		case pay.Weekend:
			line.WeekendMinutes += pay.ActualMinutes
		}
		buckets = buckets.Add(pay.Buckets)
		sum = sum.add(exact)
		line.Shifts = append(line.Shifts, pay)
	}

	rate := perf.ComplianceRate()
	bonus := decimal.Zero
	endCfg, endErr := schedule.ActiveOn(period.End)
	if endErr == nil && endCfg.PerformanceBonusPercent.IsPositive() && rate.GreaterThanOrEqual(endCfg.PerformanceBonusThreshold) {
		bonus = generic.Percent(sum.gross, endCfg.PerformanceBonusPercent)
	}
	paid := sum.total().Add(bonus)

	line.EarlyShiftMinutes = buckets.Early
	line.NightShiftMinutes = buckets.Night
	line.NeutralMinutes = buckets.Neutral
	line.GrossWage = generic.RoundCurrency(sum.gross)
	line.NightSupplement = generic.RoundCurrency(sum.night)
	line.OvertimeSupplement = generic.RoundCurrency(sum.overtime)
	line.WeekendSupplement = generic.RoundCurrency(sum.weekend)
	line.HolidaySupplement = generic.RoundCurrency(sum.holiday)
	line.PerformanceBonus = generic.RoundCurrency(bonus)
	line.TotalPay = generic.RoundCurrency(paid)
	line.ComplianceRate = generic.RoundCurrency(rate)

	if endErr == nil && endCfg.MinimumHourlyWage.IsPositive() {
		line.MinimumWage = checkMinimumWage(endCfg.MinimumHourlyWage, line.ActualWorkMinutes, paid)
	}
	return line, nil
}

// payShift returns the rounded breakdown plus the unrounded amounts.
// workedBefore is the driver's actual minutes earlier in the same ISO week.
func payShift(s generic.ShiftRecord, cfg WageConfig, workedBefore int) (ShiftPay, amounts, error) {
	total, breaks, actual, err := s.WorkMinutes()
	if err != nil {
		return ShiftPay{}, amounts{}, err
	}
	class, err := generic.ClassifyShift(s.StartAt, s.EndAt, cfg.Classification())
	if err != nil {
		return ShiftPay{}, amounts{}, err
	}
	buckets := class.Split(actual)

	overtime := 0
	if cfg.OvertimeThresholdMinutes > 0 {
		overtime = max(0, workedBefore+actual-max(workedBefore, cfg.OvertimeThresholdMinutes))
	}
	holiday := cfg.IsHoliday(s.StartAt)
	weekend := !holiday && IsWeekend(s.StartAt)

	base := generic.PayFor(actual, cfg.HourlyWage)
	exact := amounts{
		gross:    base,
		night:    generic.Percent(generic.PayFor(buckets.Night, cfg.HourlyWage), cfg.NightSupplementPercent),
		overtime: decimal.Zero,
		weekend:  decimal.Zero,
		holiday:  decimal.Zero,
	}
	if overtime > 0 {
		exact.overtime = generic.PayFor(overtime, cfg.HourlyWage).Mul(cfg.OvertimeMultiplier.Sub(one))
	}
	switch {
	case holiday:
		exact.holiday = generic.Percent(base, cfg.HolidaySupplementPercent)
	case weekend:
		exact.weekend = generic.Percent(base, cfg.WeekendSupplementPercent)
	}

	return ShiftPay{
		ShiftID:            s.ID,
		Date:               s.Day(),
		Type:               class.Type,
		WageConfigID:       cfg.ID,
		TotalMinutes:       total,
		BreakMinutes:       breaks,
		ActualMinutes:      actual,
		OvertimeMinutes:    overtime,
		Buckets:            buckets,
		Weekend:            weekend,
		Holiday:            holiday,
		GrossWage:          generic.RoundCurrency(exact.gross),
		NightSupplement:    generic.RoundCurrency(exact.night),
		OvertimeSupplement: generic.RoundCurrency(exact.overtime),
		WeekendSupplement:  generic.RoundCurrency(exact.weekend),
		HolidaySupplement:  generic.RoundCurrency(exact.holiday),
	}, exact, nil
}

func checkMinimumWage(hourly decimal.Decimal, actualMinutes int, paid decimal.Decimal) *MinimumWageCheck {
	required := generic.PayFor(actualMinutes, hourly)
	shortfall := required.Sub(paid)
	if shortfall.IsNegative() {
		shortfall = decimal.Zero
	}
	return &MinimumWageCheck{
		HourlyMinimum: hourly,
		Required:      generic.RoundCurrency(required),
		Paid:          generic.RoundCurrency(paid),
		Shortfall:     generic.RoundCurrency(shortfall),
	}
}
