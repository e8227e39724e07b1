/*
Package factory converts JSON configuration into engine types.

PURPOSE:
  Rule definitions and wage configs are maintained outside the code: by
  an admin UI, in a database row or in a file under version control.
  The factory turns their JSON form into compliance.RuleDefinition and
  payroll.WageConfig values (and back), validating on the way in.

RULE JSON:
  {
    "id": "cont-2025",
    "name": "Maximum continuous driving",
    "kind": "max_continuous_driving",
    "active_from": "2025-01-01",
    "version": 1,
    "drivers": ["drv-7"],            // optional, empty = all drivers
    "limit_minutes": 270,
    "min_break_minutes": 45
  }

  Parameters per kind:
    max_continuous_driving:  limit_minutes, min_break_minutes
    min_break_after_driving: after_minutes and/or after_km, min_break_minutes
    max_shift_length:        limit_minutes
    min_rest_between_shifts: min_rest_minutes
    required_shift_break:    tiers [{shift_minutes, break_minutes}]
    max_weekly_working_time: limit_minutes

USAGE:
  f := factory.New()
  def, err := f.ParseRule(jsonString)
  wage, err := f.ParseWage(jsonString)

SEE ALSO:
  - wage.go: Wage config JSON
  - compliance/rules.go: Rule variants
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/ride-engine/compliance"
	"github.com/warp/ride-engine/generic"
)

const dateLayout = "2006-01-02"

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RuleJSON is the JSON representation of a rule definition.
type RuleJSON struct {
	ID         string   `json:"id"`
	Name       string   `json:"name,omitempty"`
	Kind       string   `json:"kind"`
	ActiveFrom string   `json:"active_from"`
	Version    int      `json:"version,omitempty"`
	Drivers    []string `json:"drivers,omitempty"`

	LimitMinutes    int              `json:"limit_minutes,omitempty"`
	MinBreakMinutes int              `json:"min_break_minutes,omitempty"`
	AfterMinutes    int              `json:"after_minutes,omitempty"`
	AfterKm         *decimal.Decimal `json:"after_km,omitempty"`
	MinRestMinutes  int              `json:"min_rest_minutes,omitempty"`
	Tiers           []BreakTierJSON  `json:"tiers,omitempty"`
}

type BreakTierJSON struct {
	ShiftMinutes int `json:"shift_minutes"`
	BreakMinutes int `json:"break_minutes"`
}

// =============================================================================
// FACTORY
// =============================================================================

// Factory converts JSON configuration to engine types.
type Factory struct{}

func New() *Factory {
	return &Factory{}
}

// ParseRule parses and validates a JSON rule definition.
func (f *Factory) ParseRule(jsonStr string) (compliance.RuleDefinition, error) {
	var rj RuleJSON
	if err := json.Unmarshal([]byte(jsonStr), &rj); err != nil {
		return compliance.RuleDefinition{}, fmt.Errorf("failed to parse rule JSON: %w", err)
	}
	return f.RuleFromJSON(rj)
}

// RuleFromJSON converts RuleJSON to a validated RuleDefinition.
func (f *Factory) RuleFromJSON(rj RuleJSON) (compliance.RuleDefinition, error) {
	activeFrom, err := time.Parse(dateLayout, rj.ActiveFrom)
	if err != nil {
		return compliance.RuleDefinition{}, fmt.Errorf("rule %s: invalid active_from: %w", rj.ID, err)
	}
	rule, err := parseRule(rj)
	if err != nil {
		return compliance.RuleDefinition{}, err
	}

	def := compliance.RuleDefinition{
		ID:         compliance.RuleID(rj.ID),
		Name:       rj.Name,
		Rule:       rule,
		ActiveFrom: activeFrom,
		Version:    rj.Version,
	}
	for _, d := range rj.Drivers {
		def.Applicability.Drivers = append(def.Applicability.Drivers, generic.DriverID(d))
	}
	if def.Version == 0 {
		def.Version = 1
	}
	if err := def.Validate(); err != nil {
		return compliance.RuleDefinition{}, err
	}
	return def, nil
}

// RuleToJSON converts a RuleDefinition to RuleJSON.
func (f *Factory) RuleToJSON(def compliance.RuleDefinition) RuleJSON {
	rj := RuleJSON{
		ID:         string(def.ID),
		Name:       def.Name,
		Kind:       string(def.Kind()),
		ActiveFrom: def.ActiveFrom.Format(dateLayout),
		Version:    def.Version,
	}
	for _, d := range def.Applicability.Drivers {
		rj.Drivers = append(rj.Drivers, string(d))
	}

	switch r := def.Rule.(type) {
	case compliance.MaxContinuousDriving:
		rj.LimitMinutes = r.LimitMinutes
		rj.MinBreakMinutes = r.MinBreakMinutes
	case compliance.MinBreakAfterDriving:
		rj.AfterMinutes = r.AfterMinutes
		if r.AfterKm.IsPositive() {
			km := r.AfterKm
			rj.AfterKm = &km
		}
		rj.MinBreakMinutes = r.MinBreakMinutes
	case compliance.MaxShiftLength:
		rj.LimitMinutes = r.LimitMinutes
	case compliance.MinRestBetweenShifts:
		rj.MinRestMinutes = r.MinRestMinutes
	case compliance.RequiredShiftBreak:
		for _, t := range r.Tiers {
			rj.Tiers = append(rj.Tiers, BreakTierJSON{ShiftMinutes: t.ShiftMinutes, BreakMinutes: t.BreakMinutes})
		}
	case compliance.MaxWeeklyWorkingTime:
		rj.LimitMinutes = r.LimitMinutes
	}
	return rj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseRule(rj RuleJSON) (compliance.Rule, error) {
	switch compliance.RuleKind(rj.Kind) {
	case compliance.KindMaxContinuousDriving:
		return compliance.MaxContinuousDriving{LimitMinutes: rj.LimitMinutes, MinBreakMinutes: rj.MinBreakMinutes}, nil

	case compliance.KindMinBreakAfterDriving:
		r := compliance.MinBreakAfterDriving{AfterMinutes: rj.AfterMinutes, MinBreakMinutes: rj.MinBreakMinutes}
		if rj.AfterKm != nil {
			r.AfterKm = *rj.AfterKm
		}
		return r, nil

	case compliance.KindMaxShiftLength:
		return compliance.MaxShiftLength{LimitMinutes: rj.LimitMinutes}, nil

	case compliance.KindMinRestBetweenShifts:
		return compliance.MinRestBetweenShifts{MinRestMinutes: rj.MinRestMinutes}, nil

	case compliance.KindRequiredShiftBreak:
		r := compliance.RequiredShiftBreak{}
		for _, t := range rj.Tiers {
			r.Tiers = append(r.Tiers, compliance.BreakTier{ShiftMinutes: t.ShiftMinutes, BreakMinutes: t.BreakMinutes})
		}
		return r, nil

	case compliance.KindMaxWeeklyWorkingTime:
		return compliance.MaxWeeklyWorkingTime{LimitMinutes: rj.LimitMinutes}, nil

	default:
		return nil, fmt.Errorf("rule %s: unknown kind %q", rj.ID, rj.Kind)
	}
}
