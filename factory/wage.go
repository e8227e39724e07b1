package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/ride-engine/generic"
	"github.com/warp/ride-engine/payroll"
)

// WageJSON is the JSON representation of a wage config.
//
//	{
//	  "id": "wage-2025",
//	  "hourly_wage": "12.41",
//	  "night_supplement_percent": "25",
//	  "night_window": {"start": "22:00", "end": "06:00"},
//	  "early_shift_boundary": "12:00",
//	  "night_share": "0.5",
//	  "minimum_hourly_wage": "12.41",
//	  "overtime_threshold_minutes": 2400,
//	  "overtime_multiplier": "1.5",
//	  "weekend_supplement_percent": "10",
//	  "holiday_supplement_percent": "25",
//	  "holidays": ["2025-01-01", "2025-12-25", "2025-12-26"],
//	  "performance_bonus_threshold": "95",
//	  "performance_bonus_percent": "5",
//	  "effective_from": "2025-01-01",
//	  "version": 1
//	}
//
// Amounts accept JSON strings or numbers. Omitted early_shift_boundary
// defaults to 12:00; omitted night_share to generic.DefaultNightShare;
// omitted overtime_multiplier to 1.5 when an overtime threshold is set.
type WageJSON struct {
	ID                     string             `json:"id"`
	HourlyWage             decimal.Decimal    `json:"hourly_wage"`
	NightSupplementPercent decimal.Decimal    `json:"night_supplement_percent"`
	NightWindow            NightWindowJSON    `json:"night_window"`
	EarlyShiftBoundary     *generic.ClockTime `json:"early_shift_boundary,omitempty"`
	NightShare             *decimal.Decimal   `json:"night_share,omitempty"`
	MinimumHourlyWage      *decimal.Decimal   `json:"minimum_hourly_wage,omitempty"`
	EffectiveFrom          string             `json:"effective_from"`
	Version                int                `json:"version,omitempty"`

	OvertimeThresholdMinutes  int              `json:"overtime_threshold_minutes,omitempty"`
	OvertimeMultiplier        *decimal.Decimal `json:"overtime_multiplier,omitempty"`
	WeekendSupplementPercent  *decimal.Decimal `json:"weekend_supplement_percent,omitempty"`
	HolidaySupplementPercent  *decimal.Decimal `json:"holiday_supplement_percent,omitempty"`
	Holidays                  []string         `json:"holidays,omitempty"`
	PerformanceBonusThreshold *decimal.Decimal `json:"performance_bonus_threshold,omitempty"`
	PerformanceBonusPercent   *decimal.Decimal `json:"performance_bonus_percent,omitempty"`
}

type NightWindowJSON struct {
	Start generic.ClockTime `json:"start"`
	End   generic.ClockTime `json:"end"`
}

var (
	defaultEarlyShiftBoundary = generic.NewClockTime(12, 0)
	defaultOvertimeMultiplier = decimal.RequireFromString("1.5")
)

// ParseWage parses and validates a JSON wage config.
func (f *Factory) ParseWage(jsonStr string) (payroll.WageConfig, error) {
	var wj WageJSON
	if err := json.Unmarshal([]byte(jsonStr), &wj); err != nil {
		return payroll.WageConfig{}, fmt.Errorf("failed to parse wage JSON: %w", err)
	}
	return f.WageFromJSON(wj)
}

// WageFromJSON converts WageJSON to a validated WageConfig.
func (f *Factory) WageFromJSON(wj WageJSON) (payroll.WageConfig, error) {
	from, err := time.Parse(dateLayout, wj.EffectiveFrom)
	if err != nil {
		return payroll.WageConfig{}, fmt.Errorf("wage config %s: invalid effective_from: %w", wj.ID, err)
	}

	cfg := payroll.WageConfig{
		ID:                     payroll.WageConfigID(wj.ID),
		HourlyWage:             wj.HourlyWage,
		NightSupplementPercent: wj.NightSupplementPercent,
		NightWindow:            generic.NightWindow{Start: wj.NightWindow.Start, End: wj.NightWindow.End},
		EarlyShiftBoundary:     defaultEarlyShiftBoundary,
		EffectiveFrom:          from,
		Version:                wj.Version,
	}
	if wj.EarlyShiftBoundary != nil {
		cfg.EarlyShiftBoundary = *wj.EarlyShiftBoundary
	}
	if wj.NightShare != nil {
		cfg.NightShare = *wj.NightShare
	}
	if wj.MinimumHourlyWage != nil {
		cfg.MinimumHourlyWage = *wj.MinimumHourlyWage
	}
	if cfg.OvertimeThresholdMinutes = wj.OvertimeThresholdMinutes; cfg.OvertimeThresholdMinutes > 0 {
		cfg.OvertimeMultiplier = defaultOvertimeMultiplier
	}
	if wj.OvertimeMultiplier != nil {
		cfg.OvertimeMultiplier = *wj.OvertimeMultiplier
	}
	if wj.WeekendSupplementPercent != nil {
		cfg.WeekendSupplementPercent = *wj.WeekendSupplementPercent
	}
	if wj.HolidaySupplementPercent != nil {
		cfg.HolidaySupplementPercent = *wj.HolidaySupplementPercent
	}
	for _, h := range wj.Holidays {
		day, err := time.Parse(dateLayout, h)
		if err != nil {
			return payroll.WageConfig{}, fmt.Errorf("wage config %s: invalid holiday %q: %w", wj.ID, h, err)
		}
		cfg.Holidays = append(cfg.Holidays, day)
	}
	if wj.PerformanceBonusThreshold != nil {
		cfg.PerformanceBonusThreshold = *wj.PerformanceBonusThreshold
	}
	if wj.PerformanceBonusPercent != nil {
		cfg.PerformanceBonusPercent = *wj.PerformanceBonusPercent
	}
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if err := cfg.Validate(); err != nil {
		return payroll.WageConfig{}, err
	}
	return cfg, nil
}

// WageToJSON converts a WageConfig to WageJSON.
func (f *Factory) WageToJSON(cfg payroll.WageConfig) WageJSON {
	boundary := cfg.EarlyShiftBoundary
	wj := WageJSON{
		ID:                     string(cfg.ID),
		HourlyWage:             cfg.HourlyWage,
		NightSupplementPercent: cfg.NightSupplementPercent,
		NightWindow:            NightWindowJSON{Start: cfg.NightWindow.Start, End: cfg.NightWindow.End},
		EarlyShiftBoundary:     &boundary,
		EffectiveFrom:          cfg.EffectiveFrom.Format(dateLayout),
		Version:                cfg.Version,
	}
	if !cfg.NightShare.IsZero() {
		share := cfg.NightShare
		wj.NightShare = &share
	}
	if !cfg.MinimumHourlyWage.IsZero() {
		minimum := cfg.MinimumHourlyWage
		wj.MinimumHourlyWage = &minimum
	}
	wj.OvertimeThresholdMinutes = cfg.OvertimeThresholdMinutes
	wj.OvertimeMultiplier = optional(cfg.OvertimeMultiplier)
	wj.WeekendSupplementPercent = optional(cfg.WeekendSupplementPercent)
	wj.HolidaySupplementPercent = optional(cfg.HolidaySupplementPercent)
	for _, h := range cfg.Holidays {
		wj.Holidays = append(wj.Holidays, h.Format(dateLayout))
	}
	wj.PerformanceBonusThreshold = optional(cfg.PerformanceBonusThreshold)
	wj.PerformanceBonusPercent = optional(cfg.PerformanceBonusPercent)
	return wj
}

// optional returns nil for zero so omitted fields stay omitted.
func optional(d decimal.Decimal) *decimal.Decimal {
	if d.IsZero() {
		return nil
	}
	return &d
}
