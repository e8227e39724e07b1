/*
Package compliance evaluates driving and working-time rules.

PURPOSE:
  Defines the closed set of compliance rules and the evaluator that walks
  a driver's rides and shifts to flag breaches. Rules are immutable,
  date-versioned value objects: changing a threshold means appending a
  new RuleDefinition with a later ActiveFrom, never editing an old one.
  Past evaluations therefore replay identically.

KEY CONCEPTS IN THIS FILE (rules.go):
  - Rule: Sealed interface, one variant per rule kind
  - RuleDefinition: A rule plus its identity, scope and activation date
  - RuleSet: Immutable, append-only collection with date lookup

RULE KINDS:
  Ride based (evaluated per driver and calendar day):
    - MaxContinuousDriving:  driving without a qualifying break
    - MinBreakAfterDriving:  the break owed after a driving stint

  Shift based (evaluated over a driver's consecutive shifts):
    - MaxShiftLength:        gross shift length
    - MinRestBetweenShifts:  rest from one shift end to the next start
    - RequiredShiftBreak:    statutory break by shift length (tiered)
    - MaxWeeklyWorkingTime:  worked minutes per ISO week

VERSION SELECTION:
  For a date D, ActiveRulesFor picks per kind the definition with the
  latest ActiveFrom <= D. Ties go to the higher Version. A kind with no
  active definition is skipped: no violation is possible for it.

EXAMPLE:
  set, _ := compliance.NewRuleSet(
      compliance.RuleDefinition{
          ID:         "cont-2025",
          Rule:       compliance.MaxContinuousDriving{LimitMinutes: 270, MinBreakMinutes: 45},
          ActiveFrom: generic.Date(2025, 1, 1),
          Version:    1,
      },
  )
  active := set.ActiveRulesForDriver(day, "drv-7")

SEE ALSO:
  - evaluator.go: Rule evaluation
  - presets.go: Statutory rule sets
  - factory/rules.go: JSON-based rule creation
*/
package compliance

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/ride-engine/generic"
)

// =============================================================================
// RULE KINDS
// =============================================================================

type RuleID string

type RuleKind string

const (
	KindMaxContinuousDriving RuleKind = "max_continuous_driving"
	KindMinBreakAfterDriving RuleKind = "min_break_after_driving"
	KindMaxShiftLength       RuleKind = "max_shift_length"
	KindMinRestBetweenShifts RuleKind = "min_rest_between_shifts"
	KindRequiredShiftBreak   RuleKind = "required_shift_break"
	KindMaxWeeklyWorkingTime RuleKind = "max_weekly_working_time"
)

// AllKinds lists every rule kind in evaluation and tie-break order.
var AllKinds = []RuleKind{
	KindMaxContinuousDriving,
	KindMinBreakAfterDriving,
	KindMaxShiftLength,
	KindMinRestBetweenShifts,
	KindRequiredShiftBreak,
	KindMaxWeeklyWorkingTime,
}

// Rank returns the position of k in AllKinds, or len(AllKinds) if unknown.
func (k RuleKind) Rank() int {
	if i := slices.Index(AllKinds, k); i >= 0 {
		return i
	}
	return len(AllKinds)
}

// IsShiftBased reports whether the kind is evaluated over shifts rather than rides.
func (k RuleKind) IsShiftBased() bool {
	switch k {
	case KindMaxShiftLength, KindMinRestBetweenShifts, KindRequiredShiftBreak, KindMaxWeeklyWorkingTime:
		return true
	}
	return false
}

// =============================================================================
// RULE - Closed set of variants
// =============================================================================

// Rule is implemented only by the variants in this package. The evaluator
// switches over the concrete type; adding a variant means adding a case.
type Rule interface {
	Kind() RuleKind
	Validate() error
	sealed()
}

// MaxContinuousDriving limits driving without a qualifying break. A gap
// between rides qualifies as a break when it is at least MinBreakMinutes.
type MaxContinuousDriving struct {
	LimitMinutes    int
	MinBreakMinutes int
}

func (MaxContinuousDriving) Kind() RuleKind { return KindMaxContinuousDriving }
func (MaxContinuousDriving) sealed()        {}

func (r MaxContinuousDriving) Validate() error {
	if r.LimitMinutes <= 0 {
		return fmt.Errorf("%s: limit must be positive", r.Kind())
	}
	if r.MinBreakMinutes <= 0 {
		return fmt.Errorf("%s: min break must be positive", r.Kind())
	}
	return nil
}

// MinBreakAfterDriving requires a break of MinBreakMinutes once continuous
// driving exceeds AfterMinutes or AfterKm. A zero trigger is disabled;
// at least one must be set.
type MinBreakAfterDriving struct {
	AfterMinutes    int
	AfterKm         decimal.Decimal
	MinBreakMinutes int
}

func (MinBreakAfterDriving) Kind() RuleKind { return KindMinBreakAfterDriving }
func (MinBreakAfterDriving) sealed()        {}

func (r MinBreakAfterDriving) Validate() error {
	if r.AfterMinutes < 0 || r.AfterKm.IsNegative() {
		return fmt.Errorf("%s: triggers must not be negative", r.Kind())
	}
	if r.AfterMinutes == 0 && r.AfterKm.IsZero() {
		return fmt.Errorf("%s: needs a time or distance trigger", r.Kind())
	}
	if r.MinBreakMinutes <= 0 {
		return fmt.Errorf("%s: min break must be positive", r.Kind())
	}
	return nil
}

// triggered reports whether accumulated driving has passed either trigger.
func (r MinBreakAfterDriving) triggered(minutes int, km decimal.Decimal) bool {
	if r.AfterMinutes > 0 && minutes > r.AfterMinutes {
		return true
	}
	return r.AfterKm.IsPositive() && km.GreaterThan(r.AfterKm)
}

// MaxShiftLength limits the gross length of one shift.
type MaxShiftLength struct {
	LimitMinutes int
}

func (MaxShiftLength) Kind() RuleKind { return KindMaxShiftLength }
func (MaxShiftLength) sealed()        {}

func (r MaxShiftLength) Validate() error {
	if r.LimitMinutes <= 0 {
		return fmt.Errorf("%s: limit must be positive", r.Kind())
	}
	return nil
}

// MinRestBetweenShifts requires rest between the end of one shift and the
// start of the next.
type MinRestBetweenShifts struct {
	MinRestMinutes int
}

func (MinRestBetweenShifts) Kind() RuleKind { return KindMinRestBetweenShifts }
func (MinRestBetweenShifts) sealed()        {}

func (r MinRestBetweenShifts) Validate() error {
	if r.MinRestMinutes <= 0 {
		return fmt.Errorf("%s: min rest must be positive", r.Kind())
	}
	return nil
}

// BreakTier requires BreakMinutes once a shift reaches ShiftMinutes.
type BreakTier struct {
	ShiftMinutes int
	BreakMinutes int
}

// RequiredShiftBreak is the statutory break owed within a shift, tiered by
// shift length (e.g. 30 minutes from 6 hours, 45 minutes from 9 hours).
type RequiredShiftBreak struct {
	Tiers []BreakTier
}

func (RequiredShiftBreak) Kind() RuleKind { return KindRequiredShiftBreak }
func (RequiredShiftBreak) sealed()        {}

func (r RequiredShiftBreak) Validate() error {
	if len(r.Tiers) == 0 {
		return fmt.Errorf("%s: at least one tier required", r.Kind())
	}
	for i, t := range r.Tiers {
		if t.ShiftMinutes <= 0 || t.BreakMinutes <= 0 {
			return fmt.Errorf("%s: tier %d must be positive", r.Kind(), i)
		}
		if i > 0 && t.ShiftMinutes <= r.Tiers[i-1].ShiftMinutes {
			return fmt.Errorf("%s: tiers must ascend by shift length", r.Kind())
		}
	}
	return nil
}

// tierFor returns the highest tier reached by a shift of the given length.
func (r RequiredShiftBreak) tierFor(shiftMinutes int) (BreakTier, bool) {
	var found BreakTier
	ok := false
	for _, t := range r.Tiers {
		if shiftMinutes >= t.ShiftMinutes {
			found, ok = t, true
		}
	}
	return found, ok
}

// MaxWeeklyWorkingTime caps actual work minutes (shift minus break) per
// ISO week (Monday to Sunday).
type MaxWeeklyWorkingTime struct {
	LimitMinutes int
}

func (MaxWeeklyWorkingTime) Kind() RuleKind { return KindMaxWeeklyWorkingTime }
func (MaxWeeklyWorkingTime) sealed()        {}

func (r MaxWeeklyWorkingTime) Validate() error {
	if r.LimitMinutes <= 0 {
		return fmt.Errorf("%s: limit must be positive", r.Kind())
	}
	return nil
}

// =============================================================================
// RULE DEFINITION - Versioned, scoped rule
// =============================================================================

// Applicability scopes a definition. An empty driver list applies to all drivers.
type Applicability struct {
	Drivers []generic.DriverID
}

func (a Applicability) AllDrivers() bool { return len(a.Drivers) == 0 }

func (a Applicability) AppliesTo(driverID generic.DriverID) bool {
	return a.AllDrivers() || slices.Contains(a.Drivers, driverID)
}

// RuleDefinition is an immutable, date-versioned rule.
type RuleDefinition struct {
	ID            RuleID
	Name          string
	Rule          Rule
	Applicability Applicability
	ActiveFrom    time.Time
	Version       int
}

func (d RuleDefinition) Kind() RuleKind {
	if d.Rule == nil {
		return ""
	}
	return d.Rule.Kind()
}

func (d RuleDefinition) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("rule definition: id required")
	}
	if d.Rule == nil {
		return fmt.Errorf("rule definition %s: rule required", d.ID)
	}
	if d.ActiveFrom.IsZero() {
		return fmt.Errorf("rule definition %s: active-from required", d.ID)
	}
	if err := d.Rule.Validate(); err != nil {
		return fmt.Errorf("rule definition %s: %w", d.ID, err)
	}
	return nil
}

// =============================================================================
// RULE SET - Immutable collection with date lookup
// =============================================================================

// RuleSet is an immutable collection of rule definitions. The zero value is
// an empty set.
type RuleSet struct {
	defs []RuleDefinition
}

// NewRuleSet validates and copies defs. Duplicate IDs are rejected.
func NewRuleSet(defs ...RuleDefinition) (RuleSet, error) {
	return RuleSet{}.Append(defs...)
}

// Append returns a new set with defs added. The receiver is unchanged.
func (s RuleSet) Append(defs ...RuleDefinition) (RuleSet, error) {
	seen := make(map[RuleID]bool, len(s.defs)+len(defs))
	for _, d := range s.defs {
		seen[d.ID] = true
	}
	out := make([]RuleDefinition, 0, len(s.defs)+len(defs))
	out = append(out, s.defs...)
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			return RuleSet{}, err
		}
		if seen[d.ID] {
			return RuleSet{}, fmt.Errorf("rule %s: %w", d.ID, generic.ErrDuplicateConfig)
		}
		seen[d.ID] = true
		d.Applicability.Drivers = slices.Clone(d.Applicability.Drivers)
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Kind() != b.Kind() {
			return a.Kind().Rank() < b.Kind().Rank()
		}
		if !a.ActiveFrom.Equal(b.ActiveFrom) {
			return a.ActiveFrom.Before(b.ActiveFrom)
		}
		if a.Version != b.Version {
			return a.Version < b.Version
		}
		return a.ID < b.ID
	})
	return RuleSet{defs: out}, nil
}

func (s RuleSet) Len() int { return len(s.defs) }

// Definitions returns a copy of every definition, ordered by kind then activation.
func (s RuleSet) Definitions() []RuleDefinition {
	return slices.Clone(s.defs)
}

// ActiveRulesFor returns, per kind, the definition with the latest
// ActiveFrom on or before date, ordered by kind. Applicability is ignored.
func (s RuleSet) ActiveRulesFor(date time.Time) []RuleDefinition {
	return s.active(date, func(RuleDefinition) bool { return true })
}

// ActiveRulesForDriver is ActiveRulesFor restricted to definitions that
// apply to driverID. A driver-specific definition can therefore shadow a
// company-wide one only when it is the latest applicable version.
func (s RuleSet) ActiveRulesForDriver(date time.Time, driverID generic.DriverID) []RuleDefinition {
	return s.active(date, func(d RuleDefinition) bool { return d.Applicability.AppliesTo(driverID) })
}

func (s RuleSet) active(date time.Time, keep func(RuleDefinition) bool) []RuleDefinition {
	var out []RuleDefinition
	// defs are sorted by kind then (ActiveFrom, Version) ascending: the last
	// eligible definition of each kind wins.
	for i, d := range s.defs {
		if !keep(d) || !generic.DayOnOrBefore(d.ActiveFrom, date) {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Kind() == d.Kind() {
			out[n-1] = s.defs[i]
			continue
		}
		out = append(out, d)
	}
	return out
}
