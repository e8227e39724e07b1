package payroll_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/ride-engine/generic"
	"github.com/warp/ride-engine/payroll"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func at(day, hour, minute int) time.Time {
	return time.Date(2025, time.March, day, hour, minute, 0, 0, time.UTC)
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func shift(id string, start, end time.Time, breakMinutes int) generic.ShiftRecord {
	return generic.ShiftRecord{ID: generic.ShiftID(id), DriverID: "drv-1", StartAt: start, EndAt: end, BreakMinutes: breakMinutes}
}

func baseWage() payroll.WageConfig {
	return payroll.WageConfig{
		ID:                     "wage-2025",
		HourlyWage:             money("12.41"),
		NightSupplementPercent: decimal.NewFromInt(25),
		NightWindow:            generic.NightWindow{Start: generic.NewClockTime(22, 0), End: generic.NewClockTime(6, 0)},
		EarlyShiftBoundary:     generic.NewClockTime(12, 0),
		EffectiveFrom:          generic.Date(2025, 1, 1),
		Version:                1,
	}
}

func mustSchedule(t *testing.T, configs ...payroll.WageConfig) payroll.WageSchedule {
	t.Helper()
	s, err := payroll.NewWageSchedule(configs...)
	require.NoError(t, err)
	return s
}

var march = generic.MonthPeriod(2025, time.March)

func assertMoney(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.Equal(t, expected, actual.StringFixed(2))
}

// =============================================================================
// AGGREGATION TESTS
// =============================================================================

func TestAggregate_EarlyAndNightShift(t *testing.T) {
	// GIVEN: An early shift 06:00-14:00 and a night shift 22:00-06:00,
	//   30 min break each, 12.41/h with 25% night supplement
	// WHEN: Aggregating March
	// THEN: 450 early + 450 night minutes; supplement only on the night shift

	shifts := []generic.ShiftRecord{
		shift("early", at(10, 6, 0), at(10, 14, 0), 30),
		shift("night", at(11, 22, 0), at(12, 6, 0), 30),
	}

	line, err := payroll.Aggregate(context.Background(), "drv-1", march, shifts, mustSchedule(t, baseWage()), payroll.Performance{})

	require.NoError(t, err)
	assert.Equal(t, 960, line.TotalWorkMinutes)
	assert.Equal(t, 60, line.TotalBreakMinutes)
	assert.Equal(t, 900, line.ActualWorkMinutes)
	assert.Equal(t, 450, line.EarlyShiftMinutes)
	assert.Equal(t, 450, line.NightShiftMinutes)
	assert.Zero(t, line.NeutralMinutes)

	assertMoney(t, "186.15", line.GrossWage)      // 2 * 93.075
	assertMoney(t, "23.27", line.NightSupplement) // 93.075 * 25% = 23.26875
	assertMoney(t, "209.42", line.TotalPay)       // 209.41875

	require.Len(t, line.Shifts, 2)
	assert.Equal(t, generic.ShiftEarly, line.Shifts[0].Type)
	assert.Equal(t, generic.ShiftNight, line.Shifts[1].Type)
	assertMoney(t, "93.08", line.Shifts[0].GrossWage)
	assert.Nil(t, line.MinimumWage)
}

func TestAggregate_MixedShiftSplitsNightProportionally(t *testing.T) {
	// 14:00-22:30 has 30 of 510 minutes in the window: 480 actual minutes
	// give 28 night (truncated) and 452 neutral.
	shifts := []generic.ShiftRecord{shift("late", at(10, 14, 0), at(10, 22, 30), 30)}

	line, err := payroll.Aggregate(context.Background(), "drv-1", march, shifts, mustSchedule(t, baseWage()), payroll.Performance{})

	require.NoError(t, err)
	assert.Equal(t, generic.ShiftMixed, line.Shifts[0].Type)
	assert.Equal(t, 28, line.NightShiftMinutes)
	assert.Equal(t, 452, line.NeutralMinutes)
	assert.Zero(t, line.EarlyShiftMinutes)
	assert.Equal(t, line.ActualWorkMinutes, line.EarlyShiftMinutes+line.NightShiftMinutes+line.NeutralMinutes)
}

func TestAggregate_MidPeriodWageChange(t *testing.T) {
	// GIVEN: 12.41/h until March 14, 13.00/h from March 15
	// THEN: Each shift uses the config active on its start date

	raise := baseWage()
	raise.ID = "wage-raise"
	raise.HourlyWage = money("13.00")
	raise.EffectiveFrom = generic.Date(2025, 3, 15)
	raise.Version = 2

	shifts := []generic.ShiftRecord{
		shift("s14", at(14, 8, 0), at(14, 16, 0), 0),
		shift("s15", at(15, 8, 0), at(15, 16, 0), 0),
	}

	line, err := payroll.Aggregate(context.Background(), "drv-1", march, shifts, mustSchedule(t, raise, baseWage()), payroll.Performance{})

	require.NoError(t, err)
	assertMoney(t, "203.28", line.GrossWage) // 99.28 + 104.00
	assert.Equal(t, payroll.WageConfigID("wage-2025"), line.Shifts[0].WageConfigID)
	assert.Equal(t, payroll.WageConfigID("wage-raise"), line.Shifts[1].WageConfigID)
}

func TestAggregate_MissingWageConfig(t *testing.T) {
	cfg := baseWage()
	cfg.EffectiveFrom = generic.Date(2025, 3, 20)

	_, err := payroll.Aggregate(context.Background(), "drv-1", march,
		[]generic.ShiftRecord{shift("s", at(10, 8, 0), at(10, 16, 0), 30)}, mustSchedule(t, cfg), payroll.Performance{})

	assert.ErrorIs(t, err, generic.ErrMissingConfig)
	assert.Equal(t, generic.KindMissingConfig, generic.KindOf(err))
	var mc *generic.MissingConfigError
	require.ErrorAs(t, err, &mc)
	assert.Equal(t, "wage", mc.What)
}

func TestAggregate_IgnoresShiftsOutsidePeriod(t *testing.T) {
	shifts := []generic.ShiftRecord{
		shift("feb", time.Date(2025, 2, 28, 8, 0, 0, 0, time.UTC), time.Date(2025, 2, 28, 16, 0, 0, 0, time.UTC), 0),
		shift("mar", at(3, 8, 0), at(3, 16, 0), 0),
	}

	line, err := payroll.Aggregate(context.Background(), "drv-1", march, shifts, mustSchedule(t, baseWage()), payroll.Performance{})

	require.NoError(t, err)
	require.Len(t, line.Shifts, 1)
	assert.Equal(t, generic.ShiftID("mar"), line.Shifts[0].ShiftID)
}

func TestAggregate_OverlappingShifts(t *testing.T) {
	shifts := []generic.ShiftRecord{
		shift("a", at(10, 8, 0), at(10, 16, 0), 0),
		shift("b", at(10, 15, 0), at(10, 20, 0), 0),
	}

	_, err := payroll.Aggregate(context.Background(), "drv-1", march, shifts, mustSchedule(t, baseWage()), payroll.Performance{})

	assert.ErrorIs(t, err, generic.ErrInvalidRideSequence)
}

func TestAggregate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := payroll.Aggregate(ctx, "drv-1", march,
		[]generic.ShiftRecord{shift("s", at(10, 8, 0), at(10, 16, 0), 0)}, mustSchedule(t, baseWage()), payroll.Performance{})

	assert.ErrorIs(t, err, generic.ErrComputationCancelled)
}

func TestAggregate_MinimumWageShortfall(t *testing.T) {
	// 450 minutes at 12.41 = 93.075 paid; minimum 13.00 requires 97.50
	cfg := baseWage()
	cfg.MinimumHourlyWage = money("13.00")

	line, err := payroll.Aggregate(context.Background(), "drv-1", march,
		[]generic.ShiftRecord{shift("s", at(10, 6, 0), at(10, 14, 0), 30)}, mustSchedule(t, cfg), payroll.Performance{})

	require.NoError(t, err)
	require.NotNil(t, line.MinimumWage)
	assertMoney(t, "97.50", line.MinimumWage.Required)
	assertMoney(t, "4.43", line.MinimumWage.Shortfall) // 4.425
	assert.False(t, line.MinimumWage.Compliant())
}

// =============================================================================
// SUPPLEMENT TESTS
// =============================================================================

func TestAggregate_WeeklyOvertime(t *testing.T) {
	// GIVEN: Five 510-minute shifts Mon-Fri, overtime above 40h/week at 1.5x
	// WHEN: Aggregating March
	// THEN: The last 150 minutes of the week pay the 0.5 premium on top of gross

	cfg := baseWage()
	cfg.OvertimeThresholdMinutes = 40 * 60
	cfg.OvertimeMultiplier = money("1.5")

	var shifts []generic.ShiftRecord
	for day := 10; day <= 14; day++ {
		shifts = append(shifts, shift(fmt.Sprintf("s%d", day), at(day, 6, 0), at(day, 15, 0), 30))
	}

	line, err := payroll.Aggregate(context.Background(), "drv-1", march, shifts, mustSchedule(t, cfg), payroll.Performance{})

	require.NoError(t, err)
	assert.Equal(t, 2550, line.ActualWorkMinutes)
	assert.Equal(t, 150, line.OvertimeMinutes)
	assert.Zero(t, line.Shifts[3].OvertimeMinutes)
	assert.Equal(t, 150, line.Shifts[4].OvertimeMinutes)
	assertMoney(t, "527.43", line.GrossWage)         // 42.5h * 12.41 = 527.425
	assertMoney(t, "15.51", line.OvertimeSupplement) // 2.5h * 12.41 * 0.5 = 15.5125
	assertMoney(t, "542.94", line.TotalPay)          // 542.9375
}

func TestAggregate_OvertimeCountsEarlierShiftsOfTheWeek(t *testing.T) {
	// GIVEN: A period starting on Wednesday; Mon and Tue are supplied as history
	// WHEN: Aggregating
	// THEN: History is not paid but fills the weekly threshold

	cfg := baseWage()
	cfg.OvertimeThresholdMinutes = 40 * 60
	cfg.OvertimeMultiplier = money("1.5")
	period := generic.Period{Start: generic.Date(2025, 3, 12), End: generic.Date(2025, 3, 31)}

	var shifts []generic.ShiftRecord
	for day := 10; day <= 14; day++ {
		shifts = append(shifts, shift(fmt.Sprintf("s%d", day), at(day, 6, 0), at(day, 15, 0), 30))
	}

	line, err := payroll.Aggregate(context.Background(), "drv-1", period, shifts, mustSchedule(t, cfg), payroll.Performance{})

	require.NoError(t, err)
	require.Len(t, line.Shifts, 3)
	assert.Equal(t, generic.ShiftID("s12"), line.Shifts[0].ShiftID)
	assert.Equal(t, 1530, line.ActualWorkMinutes)
	assert.Equal(t, 150, line.OvertimeMinutes)
}

func TestAggregate_WeekendAndHolidaySupplements(t *testing.T) {
	// GIVEN: Saturday, a Sunday holiday and a Tuesday, 450 actual minutes each
	// WHEN: Aggregating with 10% weekend and 25% holiday supplements
	// THEN: The holiday wins over the weekend; Tuesday earns neither

	cfg := baseWage()
	cfg.WeekendSupplementPercent = decimal.NewFromInt(10)
	cfg.HolidaySupplementPercent = decimal.NewFromInt(25)
	cfg.Holidays = []time.Time{generic.Date(2025, 3, 16)}

	shifts := []generic.ShiftRecord{
		shift("sat", at(15, 6, 0), at(15, 14, 0), 30),
		shift("sun", at(16, 6, 0), at(16, 14, 0), 30),
		shift("tue", at(18, 6, 0), at(18, 14, 0), 30),
	}

	line, err := payroll.Aggregate(context.Background(), "drv-1", march, shifts, mustSchedule(t, cfg), payroll.Performance{})

	require.NoError(t, err)
	assert.True(t, line.Shifts[0].Weekend)
	assert.True(t, line.Shifts[1].Holiday)
	assert.False(t, line.Shifts[1].Weekend)
	assert.False(t, line.Shifts[2].Weekend || line.Shifts[2].Holiday)
	assert.Equal(t, 450, line.WeekendMinutes)
	assert.Equal(t, 450, line.HolidayMinutes)
	assertMoney(t, "279.23", line.GrossWage)        // 279.225
	assertMoney(t, "9.31", line.WeekendSupplement)  // 9.3075
	assertMoney(t, "23.27", line.HolidaySupplement) // 23.26875
	assertMoney(t, "311.80", line.TotalPay)         // 311.80125
}

func TestAggregate_PerformanceBonus(t *testing.T) {
	cfg := baseWage()
	cfg.PerformanceBonusThreshold = decimal.NewFromInt(95)
	cfg.PerformanceBonusPercent = decimal.NewFromInt(5)
	schedule := mustSchedule(t, cfg)
	shifts := []generic.ShiftRecord{shift("s", at(18, 6, 0), at(18, 14, 0), 30)} // 93.075 gross

	tests := []struct {
		name  string
		perf  payroll.Performance
		rate  string
		bonus string
		total string
	}{
		{"at threshold", payroll.Performance{Rides: 20, RidesViolating: 1}, "95.00", "4.65", "97.73"},
		{"below threshold", payroll.Performance{Rides: 20, RidesViolating: 2}, "90.00", "0.00", "93.08"},
		{"no rides", payroll.Performance{}, "100.00", "4.65", "97.73"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			line, err := payroll.Aggregate(context.Background(), "drv-1", march, shifts, schedule, tc.perf)

			require.NoError(t, err)
			assertMoney(t, tc.rate, line.ComplianceRate)
			assertMoney(t, tc.bonus, line.PerformanceBonus)
			assertMoney(t, tc.total, line.TotalPay)
		})
	}
}

func TestWageConfig_ValidateSupplements(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*payroll.WageConfig)
	}{
		{"overtime multiplier below one", func(c *payroll.WageConfig) {
			c.OvertimeThresholdMinutes = 2400
			c.OvertimeMultiplier = money("0.5")
		}},
		{"negative overtime threshold", func(c *payroll.WageConfig) { c.OvertimeThresholdMinutes = -1 }},
		{"negative weekend supplement", func(c *payroll.WageConfig) { c.WeekendSupplementPercent = money("-1") }},
		{"bonus threshold above 100", func(c *payroll.WageConfig) { c.PerformanceBonusThreshold = money("101") }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := baseWage()
			tc.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// =============================================================================
// SUM PROPERTY
// =============================================================================

func TestAggregate_SumProperty(t *testing.T) {
	// GIVEN: Shifts with odd lengths and breaks at an odd wage
	// WHEN: Aggregating once over the period vs once per shift and summing
	// THEN: Totals agree within one cent per shift

	cfg := baseWage()
	cfg.HourlyWage = money("12.37")
	cfg.NightSupplementPercent = money("27.5")
	schedule := mustSchedule(t, cfg)

	shifts := []generic.ShiftRecord{
		shift("s1", at(3, 7, 13), at(3, 15, 2), 17),
		shift("s2", at(4, 21, 41), at(5, 5, 59), 23),
		shift("s3", at(6, 13, 7), at(6, 23, 11), 41),
		shift("s4", at(8, 3, 3), at(8, 11, 19), 0),
		shift("s5", at(9, 18, 29), at(10, 2, 31), 31),
	}
	ctx := context.Background()

	whole, err := payroll.Aggregate(ctx, "drv-1", march, shifts, schedule, payroll.Performance{})
	require.NoError(t, err)

	gross, supplement := decimal.Zero, decimal.Zero
	minutes := 0
	for _, s := range shifts {
		one, err := payroll.Aggregate(ctx, "drv-1", march, []generic.ShiftRecord{s}, schedule, payroll.Performance{})
		require.NoError(t, err)
		gross = gross.Add(one.GrossWage)
		supplement = supplement.Add(one.NightSupplement)
		minutes += one.ActualWorkMinutes
	}

	bound := money("0.01").Mul(decimal.NewFromInt(int64(len(shifts))))
	assert.True(t, whole.GrossWage.Sub(gross).Abs().LessThanOrEqual(bound), "gross %s vs %s", whole.GrossWage, gross)
	assert.True(t, whole.NightSupplement.Sub(supplement).Abs().LessThanOrEqual(bound))
	assert.Equal(t, whole.ActualWorkMinutes, minutes)
}

// =============================================================================
// WAGE SCHEDULE TESTS
// =============================================================================

func TestWageSchedule_ActiveOn(t *testing.T) {
	raise := baseWage()
	raise.ID = "raise"
	raise.EffectiveFrom = generic.Date(2025, 3, 15)
	s := mustSchedule(t, baseWage(), raise)

	cfg, err := s.ActiveOn(at(14, 23, 59))
	require.NoError(t, err)
	assert.Equal(t, payroll.WageConfigID("wage-2025"), cfg.ID)

	cfg, err = s.ActiveOn(at(15, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, payroll.WageConfigID("raise"), cfg.ID)

	_, err = s.ActiveOn(generic.Date(2024, 12, 31))
	assert.ErrorIs(t, err, generic.ErrMissingConfig)
}

func TestWageSchedule_Validation(t *testing.T) {
	_, err := payroll.NewWageSchedule(baseWage(), baseWage())
	assert.ErrorIs(t, err, generic.ErrDuplicateConfig)

	bad := baseWage()
	bad.NightShare = decimal.NewFromInt(1)
	_, err = payroll.NewWageSchedule(bad)
	assert.Error(t, err)

	bad = baseWage()
	bad.HourlyWage = decimal.Zero
	_, err = payroll.NewWageSchedule(bad)
	assert.Error(t, err)

	base := mustSchedule(t, baseWage())
	next, err := base.Append(payroll.WageConfig{ID: "x", HourlyWage: money("1"), EffectiveFrom: generic.Date(2025, 6, 1)})
	require.NoError(t, err)
	assert.Equal(t, 1, base.Len())
	assert.Equal(t, 2, next.Len())
}
