package compliance_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/ride-engine/compliance"
	"github.com/warp/ride-engine/generic"
)

func activeOn(t *testing.T, day time.Time, defs ...compliance.RuleDefinition) []compliance.RuleDefinition {
	t.Helper()
	return mustRuleSet(t, defs...).ActiveRulesFor(day)
}

func continuousRule(limit, minBreak int) compliance.RuleDefinition {
	return define("cont", compliance.MaxContinuousDriving{LimitMinutes: limit, MinBreakMinutes: minBreak}, generic.Date(2025, 1, 1), 1)
}

// =============================================================================
// MAX CONTINUOUS DRIVING
// =============================================================================

func TestContinuousDriving_OneViolationPerOverrun(t *testing.T) {
	// GIVEN: Ride A 0-200 min, gap 5 min, ride B 200 min more
	//   threshold 240 min, min break 10 min
	// WHEN: Evaluating the day
	// THEN: Exactly one violation, anchored at B where the 240 min mark is crossed

	start := at(10, 6, 0)
	rides := []generic.RideRecord{
		ride("A", start, 200),
		ride("B", start.Add(205*time.Minute), 200),
	}

	vs, err := compliance.EvaluateDay(context.Background(), "drv-1", rides, activeOn(t, start, continuousRule(240, 10)))

	require.NoError(t, err)
	require.Len(t, vs, 1)
	v := vs[0]
	assert.Equal(t, compliance.KindMaxContinuousDriving, v.Kind)
	assert.Equal(t, generic.RideID("B"), v.RideID)
	assert.Equal(t, start.Add(245*time.Minute), v.DetectedAt)
	assert.True(t, v.Detected.Value.Equal(decimal.NewFromInt(400)))
	assert.True(t, v.Threshold.Value.Equal(decimal.NewFromInt(240)))
	assert.Equal(t, generic.UnitMinutes, v.Detected.Unit)
	assert.Equal(t, compliance.SeverityHigh, v.Severity)
}

func TestContinuousDriving_LongOverrunStillOneViolation(t *testing.T) {
	// Four rides with 5 min gaps: the accumulator passes 240 at ride 2 and
	// keeps growing through rides 3 and 4 without a new violation.
	start := at(10, 6, 0)
	rides := []generic.RideRecord{
		ride("r1", start, 120),
		ride("r2", start.Add(125*time.Minute), 130),
		ride("r3", start.Add(260*time.Minute), 60),
		ride("r4", start.Add(325*time.Minute), 60),
	}

	vs, err := compliance.EvaluateDay(context.Background(), "drv-1", rides, activeOn(t, start, continuousRule(240, 10)))

	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, generic.RideID("r2"), vs[0].RideID)
	assert.True(t, vs[0].Detected.Value.Equal(decimal.NewFromInt(370)))
}

func TestContinuousDriving_QualifyingBreakResets(t *testing.T) {
	start := at(10, 6, 0)
	tests := []struct {
		name       string
		gap        int
		violations int
	}{
		{"gap meets min break", 10, 0},
		{"gap one minute short", 9, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rides := []generic.RideRecord{
				ride("A", start, 200),
				ride("B", start.Add(time.Duration(200+tc.gap)*time.Minute), 200),
			}

			vs, err := compliance.EvaluateDay(context.Background(), "drv-1", rides, activeOn(t, start, continuousRule(240, 10)))

			require.NoError(t, err)
			assert.Len(t, vs, tc.violations)
		})
	}
}

func TestContinuousDriving_SeparateOverrunsFlaggedSeparately(t *testing.T) {
	start := at(10, 4, 0)
	rides := []generic.RideRecord{
		ride("a1", start, 250),
		ride("b1", start.Add(300*time.Minute), 100), // 50 min break
		ride("b2", start.Add(402*time.Minute), 200),
	}

	vs, err := compliance.EvaluateDay(context.Background(), "drv-1", rides, activeOn(t, start, continuousRule(240, 30)))

	require.NoError(t, err)
	require.Len(t, vs, 2)
	assert.Equal(t, generic.RideID("a1"), vs[0].RideID)
	assert.Equal(t, generic.RideID("b2"), vs[1].RideID)
	assert.Equal(t, compliance.SeverityLow, vs[0].Severity) // 250 vs 240
}

// =============================================================================
// MIN BREAK AFTER DRIVING
// =============================================================================

func breakAfterRule(afterMinutes int, afterKm int64, minBreak int) compliance.RuleDefinition {
	return define("brk", compliance.MinBreakAfterDriving{
		AfterMinutes:    afterMinutes,
		AfterKm:         decimal.NewFromInt(afterKm),
		MinBreakMinutes: minBreak,
	}, generic.Date(2025, 1, 1), 1)
}

func TestBreakAfterDriving_ShortGapAfterTrigger(t *testing.T) {
	// GIVEN: 150 min driven (trigger 120), then only a 5 min gap
	// THEN: One violation on the ride that started too early; the following
	//   short gap in the same block is not flagged again

	start := at(10, 8, 0)
	rides := []generic.RideRecord{
		ride("A", start, 150),
		ride("B", start.Add(155*time.Minute), 20),
		ride("C", start.Add(180*time.Minute), 20),
	}

	vs, err := compliance.EvaluateDay(context.Background(), "drv-1", rides, activeOn(t, start, breakAfterRule(120, 0, 15)))

	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, compliance.KindMinBreakAfterDriving, vs[0].Kind)
	assert.Equal(t, generic.RideID("B"), vs[0].RideID)
	assert.Equal(t, rides[1].PickupAt, vs[0].DetectedAt)
	assert.True(t, vs[0].Detected.Value.Equal(decimal.NewFromInt(5)))
	assert.True(t, vs[0].Threshold.Value.Equal(decimal.NewFromInt(15)))
}

func TestBreakAfterDriving_BreakTakenNoViolation(t *testing.T) {
	start := at(10, 8, 0)
	rides := []generic.RideRecord{
		ride("A", start, 150),
		ride("B", start.Add(165*time.Minute), 20),
	}

	vs, err := compliance.EvaluateDay(context.Background(), "drv-1", rides, activeOn(t, start, breakAfterRule(120, 0, 15)))

	require.NoError(t, err)
	assert.Empty(t, vs)
}

func TestBreakAfterDriving_DistanceTrigger(t *testing.T) {
	start := at(10, 8, 0)
	a := ride("A", start, 40)
	a.DistanceKm = decimal.NewFromInt(60)
	b := ride("B", start.Add(42*time.Minute), 40)
	b.DistanceKm = decimal.NewFromInt(50)
	c := ride("C", start.Add(85*time.Minute), 10)

	vs, err := compliance.EvaluateDay(context.Background(), "drv-1", []generic.RideRecord{a, b, c},
		activeOn(t, start, breakAfterRule(0, 100, 15)))

	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, generic.RideID("C"), vs[0].RideID)
}

func TestBothRideKinds_FireIndependently(t *testing.T) {
	// The same overrun breaches both ride rules; both are reported and
	// ordered by detection time.
	start := at(10, 6, 0)
	rides := []generic.RideRecord{
		ride("A", start, 200),
		ride("B", start.Add(205*time.Minute), 200),
	}

	vs, err := compliance.EvaluateDay(context.Background(), "drv-1", rides,
		activeOn(t, start, continuousRule(240, 10), breakAfterRule(180, 0, 10)))

	require.NoError(t, err)
	require.Len(t, vs, 2)
	assert.Equal(t, compliance.KindMinBreakAfterDriving, vs[0].Kind) // at B pickup
	assert.Equal(t, compliance.KindMaxContinuousDriving, vs[1].Kind) // 40 min into B
}

// =============================================================================
// PRECONDITIONS / CANCELLATION
// =============================================================================

func TestEvaluateDay_OutOfOrderRides_InvalidRideSequence(t *testing.T) {
	start := at(10, 8, 0)
	rides := []generic.RideRecord{
		ride("late", start.Add(2*time.Hour), 30),
		ride("early", start, 30),
	}

	vs, err := compliance.EvaluateDay(context.Background(), "drv-1", rides, activeOn(t, start, continuousRule(240, 10)))

	assert.ErrorIs(t, err, generic.ErrInvalidRideSequence)
	assert.Nil(t, vs)
}

func TestEvaluateDay_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := at(10, 8, 0)

	_, err := compliance.EvaluateDay(ctx, "drv-1", []generic.RideRecord{ride("A", start, 30)},
		activeOn(t, start, continuousRule(240, 10)))

	assert.ErrorIs(t, err, generic.ErrComputationCancelled)
}

func TestEvaluateDriver_IgnoresIncompleteRidesAndSplitsDays(t *testing.T) {
	// GIVEN: 200 min on the 10th, 200 min on the 11th, and a pending ride in between
	// THEN: Days are evaluated separately: no continuous-driving violation

	set := mustRuleSet(t, continuousRule(240, 10))
	pending := ride("pending", at(10, 23, 0), 30)
	pending.Status = generic.RidePending
	rides := []generic.RideRecord{
		ride("d1", at(10, 20, 0), 200),
		pending,
		ride("d2", at(11, 0, 0), 200),
	}

	vs, err := compliance.EvaluateDriver(context.Background(), "drv-1", march, rides, nil, set)

	require.NoError(t, err)
	assert.Empty(t, vs)
}

// =============================================================================
// SHIFT RULES
// =============================================================================

func TestEvaluateShifts_StatutoryWorkingTime(t *testing.T) {
	// GIVEN: Statutory working-time rules
	//   s1: 06:00-17:00 (11h, 45 min break)   → shift length
	//   s2: next day 02:00-09:00 (7h, 15 min)  → rest 9h, break short
	// THEN: Three violations in detection order

	set := mustRuleSet(t, compliance.StatutoryWorkingTime("t", generic.Date(2025, 1, 1))...)
	shifts := []generic.ShiftRecord{
		shift("s1", at(10, 6, 0), at(10, 17, 0), 45),
		shift("s2", at(11, 2, 0), at(11, 9, 0), 15),
	}

	vs, err := compliance.EvaluateShifts(context.Background(), "drv-1", march, shifts, set)

	require.NoError(t, err)
	require.Len(t, vs, 3)

	assert.Equal(t, compliance.KindMaxShiftLength, vs[0].Kind)
	assert.Equal(t, generic.ShiftID("s1"), vs[0].ShiftID)
	assert.Equal(t, at(10, 16, 0), vs[0].DetectedAt)
	assert.Equal(t, compliance.SeverityMedium, vs[0].Severity) // 660 vs 600

	assert.Equal(t, compliance.KindMinRestBetweenShifts, vs[1].Kind)
	assert.Equal(t, generic.ShiftID("s2"), vs[1].ShiftID)
	assert.True(t, vs[1].Detected.Value.Equal(decimal.NewFromInt(540)))

	assert.Equal(t, compliance.KindRequiredShiftBreak, vs[2].Kind)
	assert.True(t, vs[2].Threshold.Value.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, at(11, 8, 0), vs[2].DetectedAt)
}

func TestEvaluateShifts_BreakTiers(t *testing.T) {
	set := mustRuleSet(t, define("brk", compliance.RequiredShiftBreak{Tiers: []compliance.BreakTier{
		{ShiftMinutes: 360, BreakMinutes: 30},
		{ShiftMinutes: 540, BreakMinutes: 45},
	}}, generic.Date(2025, 1, 1), 1))

	tests := []struct {
		name       string
		hours      int
		breaks     int
		violations int
	}{
		{"short shift needs no break", 5, 0, 0},
		{"six hours needs 30", 6, 30, 0},
		{"ten hours needs 45", 10, 30, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := shift("s", at(10, 6, 0), at(10, 6+tc.hours, 0), tc.breaks)
			vs, err := compliance.EvaluateShifts(context.Background(), "drv-1", march, []generic.ShiftRecord{s}, set)
			require.NoError(t, err)
			assert.Len(t, vs, tc.violations)
		})
	}
}

func TestEvaluateShifts_WeeklyCapFlaggedOncePerWeek(t *testing.T) {
	// GIVEN: Weekly cap of 20h; three 8h shifts Mon-Wed, one 8h shift next Monday
	// THEN: One violation on Wednesday's shift reporting the full week (24h)

	set := mustRuleSet(t, define("week", compliance.MaxWeeklyWorkingTime{LimitMinutes: 20 * 60}, generic.Date(2025, 1, 1), 1))
	shifts := []generic.ShiftRecord{
		shift("mon", at(10, 8, 0), at(10, 16, 0), 0),
		shift("tue", at(11, 8, 0), at(11, 16, 0), 0),
		shift("wed", at(12, 8, 0), at(12, 16, 0), 0),
		shift("next-mon", at(17, 8, 0), at(17, 16, 0), 0),
	}

	vs, err := compliance.EvaluateShifts(context.Background(), "drv-1", march, shifts, set)

	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, generic.ShiftID("wed"), vs[0].ShiftID)
	assert.Equal(t, at(12, 12, 0), vs[0].DetectedAt)
	assert.True(t, vs[0].Detected.Value.Equal(decimal.NewFromInt(24*60)))
}

func TestEvaluateShifts_UsesRulesActiveOnShiftDate(t *testing.T) {
	set := mustRuleSet(t,
		define("v1", compliance.MaxShiftLength{LimitMinutes: 600}, generic.Date(2025, 1, 1), 1),
		define("v2", compliance.MaxShiftLength{LimitMinutes: 480}, generic.Date(2025, 3, 11), 2),
	)
	shifts := []generic.ShiftRecord{
		shift("s1", at(10, 6, 0), at(10, 15, 0), 30),
		shift("s2", at(11, 6, 0), at(11, 15, 0), 30),
	}

	vs, err := compliance.EvaluateShifts(context.Background(), "drv-1", march, shifts, set)

	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, compliance.RuleID("v2"), vs[0].RuleID)
	assert.Equal(t, generic.ShiftID("s2"), vs[0].ShiftID)
}

func TestEvaluateShifts_HistoryIsContextOnly(t *testing.T) {
	// GIVEN: A 12h shift on Feb 28 ending 22:00 (history), then March 1 from 05:00,
	//   which also crosses the weekly cap of the week March 1 (Sat) belongs to
	// WHEN: Evaluating March
	// THEN: March 1 breaks the rest rule against Feb 28; nothing is flagged on
	//   history, and the week reported in February is not reported again

	set := mustRuleSet(t,
		define("len", compliance.MaxShiftLength{LimitMinutes: 600}, generic.Date(2025, 1, 1), 1),
		define("rest", compliance.MinRestBetweenShifts{MinRestMinutes: 660}, generic.Date(2025, 1, 1), 1),
		define("week", compliance.MaxWeeklyWorkingTime{LimitMinutes: 20 * 60}, generic.Date(2025, 1, 1), 1),
	)
	feb := func(day, hour int) time.Time { return time.Date(2025, time.February, day, hour, 0, 0, 0, time.UTC) }
	shifts := []generic.ShiftRecord{
		shift("feb-26", feb(26, 6), feb(26, 16), 0),
		shift("feb-27", feb(27, 6), feb(27, 16), 0),
		shift("feb-28", feb(28, 10), feb(28, 22), 0),
		shift("mar-1", at(1, 5, 0), at(1, 9, 0), 0),
	}

	vs, err := compliance.EvaluateShifts(context.Background(), "drv-1", march, shifts, set)

	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.Equal(t, compliance.KindMinRestBetweenShifts, vs[0].Kind)
	assert.Equal(t, generic.ShiftID("mar-1"), vs[0].ShiftID)
	assert.True(t, vs[0].Detected.Value.Equal(decimal.NewFromInt(7*60)))
}

func TestEvaluateShifts_OverlappingShifts(t *testing.T) {
	set := mustRuleSet(t, compliance.StatutoryWorkingTime("t", generic.Date(2025, 1, 1))...)
	shifts := []generic.ShiftRecord{
		shift("s1", at(10, 6, 0), at(10, 14, 0), 30),
		shift("s2", at(10, 13, 0), at(10, 20, 0), 30),
	}

	_, err := compliance.EvaluateShifts(context.Background(), "drv-1", march, shifts, set)

	var se *generic.SequenceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "overlap", se.Reason)
}
