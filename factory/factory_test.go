package factory_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/ride-engine/compliance"
	"github.com/warp/ride-engine/factory"
	"github.com/warp/ride-engine/generic"
)

func TestParseRule_ContinuousDriving(t *testing.T) {
	def, err := factory.New().ParseRule(`{
		"id": "cont-2025",
		"name": "Maximum continuous driving",
		"kind": "max_continuous_driving",
		"active_from": "2025-01-01",
		"drivers": ["drv-7"],
		"limit_minutes": 270,
		"min_break_minutes": 45
	}`)

	require.NoError(t, err)
	assert.Equal(t, compliance.RuleID("cont-2025"), def.ID)
	assert.Equal(t, generic.Date(2025, 1, 1), def.ActiveFrom)
	assert.Equal(t, 1, def.Version)
	assert.Equal(t, compliance.MaxContinuousDriving{LimitMinutes: 270, MinBreakMinutes: 45}, def.Rule)
	assert.True(t, def.Applicability.AppliesTo("drv-7"))
	assert.False(t, def.Applicability.AppliesTo("drv-8"))
}

func TestParseRule_BreakAfterDrivingWithDistance(t *testing.T) {
	def, err := factory.New().ParseRule(`{
		"id": "brk", "kind": "min_break_after_driving", "active_from": "2025-01-01",
		"after_km": "150.5", "min_break_minutes": 15
	}`)

	require.NoError(t, err)
	rule := def.Rule.(compliance.MinBreakAfterDriving)
	assert.True(t, rule.AfterKm.Equal(decimal.RequireFromString("150.5")))
	assert.Zero(t, rule.AfterMinutes)
}

func TestParseRule_Errors(t *testing.T) {
	f := factory.New()
	tests := []struct {
		name string
		json string
	}{
		{"malformed", `{"id":`},
		{"unknown kind", `{"id":"x","kind":"max_speed","active_from":"2025-01-01"}`},
		{"bad date", `{"id":"x","kind":"max_shift_length","active_from":"01/01/2025","limit_minutes":600}`},
		{"invalid threshold", `{"id":"x","kind":"max_shift_length","active_from":"2025-01-01"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ParseRule(tc.json)
			assert.Error(t, err)
		})
	}
}

func TestRuleJSON_RoundTripPresets(t *testing.T) {
	// Every preset survives ToJSON → FromJSON unchanged.
	f := factory.New()
	defs := compliance.StatutoryWorkingTime("2025", generic.Date(2025, 1, 1))
	defs = append(defs, compliance.DrivingTime("2025", generic.Date(2025, 1, 1))...)

	for _, def := range defs {
		raw, err := json.Marshal(f.RuleToJSON(def))
		require.NoError(t, err)

		back, err := f.ParseRule(string(raw))
		require.NoError(t, err, string(raw))
		assert.Equal(t, def.ID, back.ID)
		assert.Equal(t, def.Kind(), back.Kind())
		assert.Equal(t, f.RuleToJSON(def), f.RuleToJSON(back))
	}
}

func TestParseWage(t *testing.T) {
	cfg, err := factory.New().ParseWage(`{
		"id": "wage-2025",
		"hourly_wage": "12.41",
		"night_supplement_percent": 25,
		"night_window": {"start": "22:00", "end": "06:00"},
		"minimum_hourly_wage": "12.82",
		"effective_from": "2025-01-01"
	}`)

	require.NoError(t, err)
	assert.True(t, cfg.HourlyWage.Equal(decimal.RequireFromString("12.41")))
	assert.True(t, cfg.NightSupplementPercent.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, generic.NewClockTime(22, 0), cfg.NightWindow.Start)
	assert.Equal(t, generic.NewClockTime(6, 0), cfg.NightWindow.End)
	assert.Equal(t, generic.NewClockTime(12, 0), cfg.EarlyShiftBoundary)
	assert.True(t, cfg.NightShare.IsZero())
	assert.True(t, cfg.MinimumHourlyWage.Equal(decimal.RequireFromString("12.82")))
}

func TestParseWage_Supplements(t *testing.T) {
	// GIVEN: A wage config with overtime, weekend, holiday and bonus settings
	// WHEN: Parsing
	// THEN: The overtime multiplier defaults to 1.5 and holidays parse as dates

	f := factory.New()
	cfg, err := f.ParseWage(`{
		"id": "wage-2025",
		"hourly_wage": "12.41",
		"night_window": {"start": "22:00", "end": "06:00"},
		"overtime_threshold_minutes": 2400,
		"weekend_supplement_percent": "10",
		"holiday_supplement_percent": "25",
		"holidays": ["2025-12-25", "2025-12-26"],
		"performance_bonus_threshold": "95",
		"performance_bonus_percent": "5",
		"effective_from": "2025-01-01"
	}`)

	require.NoError(t, err)
	assert.Equal(t, 2400, cfg.OvertimeThresholdMinutes)
	assert.True(t, cfg.OvertimeMultiplier.Equal(decimal.RequireFromString("1.5")))
	assert.True(t, cfg.WeekendSupplementPercent.Equal(decimal.NewFromInt(10)))
	assert.True(t, cfg.HolidaySupplementPercent.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, []time.Time{generic.Date(2025, 12, 25), generic.Date(2025, 12, 26)}, cfg.Holidays)
	assert.True(t, cfg.IsHoliday(time.Date(2025, 12, 25, 22, 0, 0, 0, time.UTC)))
	assert.True(t, cfg.PerformanceBonusPercent.Equal(decimal.NewFromInt(5)))

	wj := f.WageToJSON(cfg)
	assert.Equal(t, []string{"2025-12-25", "2025-12-26"}, wj.Holidays)
	require.NotNil(t, wj.OvertimeMultiplier)

	_, err = f.ParseWage(`{"id":"w","hourly_wage":"12","night_window":{"start":"22:00","end":"06:00"},
		"holidays":["christmas"],"effective_from":"2025-01-01"}`)
	assert.Error(t, err)
}

func TestParseWage_Errors(t *testing.T) {
	f := factory.New()
	for _, raw := range []string{
		`{"id":"w","hourly_wage":"0","night_window":{"start":"22:00","end":"06:00"},"effective_from":"2025-01-01"}`,
		`{"id":"w","hourly_wage":"12","night_window":{"start":"25:00","end":"06:00"},"effective_from":"2025-01-01"}`,
		`{"id":"w","hourly_wage":"12","night_window":{"start":"22:00","end":"06:00"},"effective_from":"soon"}`,
	} {
		_, err := f.ParseWage(raw)
		assert.Error(t, err, raw)
	}
}

func TestWageJSON_RoundTrip(t *testing.T) {
	f := factory.New()
	cfg, err := f.ParseWage(`{"id":"w","hourly_wage":"13.5","night_supplement_percent":"10",
		"night_window":{"start":"23:00","end":"05:30"},"early_shift_boundary":"11:00","night_share":"0.4",
		"effective_from":"2025-02-01","version":3}`)
	require.NoError(t, err)

	raw, err := json.Marshal(f.WageToJSON(cfg))
	require.NoError(t, err)
	back, err := f.ParseWage(string(raw))
	require.NoError(t, err)

	assert.Equal(t, f.WageToJSON(cfg), f.WageToJSON(back))
	assert.Equal(t, 3, back.Version)
	assert.Equal(t, generic.NewClockTime(11, 0), back.EarlyShiftBoundary)
}
