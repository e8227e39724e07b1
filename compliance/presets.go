/*
presets.go - Pre-built statutory rule sets

PURPOSE:
  Ready-to-use rule definitions for common driver regulations. These are
  starting points for a company's rule set; every value can be replaced
  by appending a newer definition of the same kind.

AVAILABLE PRESETS:
  StatutoryWorkingTime: Working-time law defaults
    - shift length at most 10 hours
    - 30 minutes break from 6 hours, 45 minutes from 9 hours
    - 11 hours rest between shifts
    - 60 hours per week

  DrivingTime: Driving-time defaults
    - 4.5 hours continuous driving, reset by a 45 minute break
    - 15 minute break owed after 2 hours or 150 km

EXAMPLE:
  defs := compliance.StatutoryWorkingTime("2025", generic.Date(2025, 1, 1))
  defs = append(defs, compliance.DrivingTime("2025", generic.Date(2025, 1, 1))...)
  set, err := compliance.NewRuleSet(defs...)

SEE ALSO:
  - rules.go: Rule variants
  - factory/rules.go: JSON-based rule creation
*/
package compliance

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatutoryWorkingTime returns the shift-based working-time rules, all
// active from the given date. IDs are prefixed with "wt-" and suffixed with tag.
func StatutoryWorkingTime(tag string, from time.Time) []RuleDefinition {
	return []RuleDefinition{
		{
			ID:         RuleID("wt-shift-length-" + tag),
			Name:       "Maximum shift length",
			Rule:       MaxShiftLength{LimitMinutes: 10 * 60},
			ActiveFrom: from,
			Version:    1,
		},
		{
			ID:   RuleID("wt-shift-break-" + tag),
			Name: "Required break",
			Rule: RequiredShiftBreak{Tiers: []BreakTier{
				{ShiftMinutes: 6 * 60, BreakMinutes: 30},
				{ShiftMinutes: 9 * 60, BreakMinutes: 45},
			}},
			ActiveFrom: from,
			Version:    1,
		},
		{
			ID:         RuleID("wt-rest-" + tag),
			Name:       "Minimum rest between shifts",
			Rule:       MinRestBetweenShifts{MinRestMinutes: 11 * 60},
			ActiveFrom: from,
			Version:    1,
		},
		{
			ID:         RuleID("wt-weekly-" + tag),
			Name:       "Maximum weekly working time",
			Rule:       MaxWeeklyWorkingTime{LimitMinutes: 60 * 60},
			ActiveFrom: from,
			Version:    1,
		},
	}
}

// DrivingTime returns the ride-based driving-time rules, active from the
// given date. IDs are prefixed with "dt-" and suffixed with tag.
func DrivingTime(tag string, from time.Time) []RuleDefinition {
	return []RuleDefinition{
		{
			ID:         RuleID("dt-continuous-" + tag),
			Name:       "Maximum continuous driving",
			Rule:       MaxContinuousDriving{LimitMinutes: 270, MinBreakMinutes: 45},
			ActiveFrom: from,
			Version:    1,
		},
		{
			ID:   RuleID("dt-break-after-" + tag),
			Name: "Break after driving",
			Rule: MinBreakAfterDriving{
				AfterMinutes:    120,
				AfterKm:         decimal.NewFromInt(150),
				MinBreakMinutes: 15,
			},
			ActiveFrom: from,
			Version:    1,
		},
	}
}
