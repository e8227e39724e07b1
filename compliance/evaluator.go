/*
evaluator.go - Rule evaluation over rides and shifts

PURPOSE:
  Walks one driver's records and emits a Violation for each breach of an
  active rule. Evaluation is pure: records and rules come in, violations
  go out. Nothing is sorted or dropped; ordering is a precondition that
  is checked and reported as ErrInvalidRideSequence.

RIDE RULES (EvaluateDay):
  Input is one driver's completed rides for one calendar day.

  MaxContinuousDriving:
    Ride minutes accumulate until a gap of at least MinBreakMinutes.
    One violation per overrun, anchored at the ride where the limit is
    crossed. Detected is the length of the whole block; DetectedAt is
    the instant the limit was crossed.

    rides:  [A 0-200] 5 [B 205-405]        limit 240, break 10
    block:  200 ........ 400
    result: one violation on B at 245 min, detected 400

  MinBreakAfterDriving:
    Once the block passes the time or distance trigger, the next gap must
    be at least MinBreakMinutes. A shorter gap yields one violation on the
    ride that started too early. One violation per block.

SHIFT RULES (EvaluateShifts):
  Input is one driver's shifts for the batch, optionally preceded by
  history (shifts starting before the period, see Period.ShiftLookback).
  Each shift in the period is checked against the rules active on its
  start date. History is never flagged: it is the previous shift for the
  rest rule and counts toward its ISO week, so the first shift of a month
  is checked against the last shift of the month before.

CANCELLATION:
  ctx is checked before every record. A cancelled evaluation returns
  ErrComputationCancelled and no violations.

SEE ALSO:
  - rules.go: Rule variants and version selection
  - session/session.go: Runs the evaluator per driver partition
*/
package compliance

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/ride-engine/generic"
)

// =============================================================================
// DRIVER EVALUATION
// =============================================================================

// EvaluateDriver evaluates every ride rule per calendar day and every shift
// rule over the driver's shifts, using the rule versions active on each
// day. Non-completed rides are ignored. Shifts before period are history
// (see EvaluateShifts). The result is ordered by (driver, detection time,
// rule kind).
func EvaluateDriver(ctx context.Context, driverID generic.DriverID, period generic.Period, rides []generic.RideRecord, shifts []generic.ShiftRecord, set RuleSet) ([]Violation, error) {
	completed := CompletedRides(rides)
	if err := generic.CheckRideSequence(driverID, completed); err != nil {
		return nil, err
	}

	var out []Violation
	for _, day := range GroupByDay(completed) {
		vs, err := EvaluateDay(ctx, driverID, day.Rides, set.ActiveRulesForDriver(day.Date, driverID))
		if err != nil {
			return nil, err
		}
		out = append(out, vs...)
	}

	vs, err := EvaluateShifts(ctx, driverID, period, shifts, set)
	if err != nil {
		return nil, err
	}
	out = append(out, vs...)

	SortViolations(out)
	return out, nil
}

// DayRides is one calendar day of a driver's rides.
type DayRides struct {
	Date  time.Time
	Rides []generic.RideRecord
}

// GroupByDay splits time-ordered rides into consecutive days by pickup date.
// A ride that crosses midnight belongs to its pickup day.
func GroupByDay(rides []generic.RideRecord) []DayRides {
	var days []DayRides
	for _, r := range rides {
		if n := len(days); n > 0 && generic.SameDay(days[n-1].Date, r.PickupAt) {
			days[n-1].Rides = append(days[n-1].Rides, r)
			continue
		}
		days = append(days, DayRides{Date: r.Day(), Rides: []generic.RideRecord{r}})
	}
	return days
}

// CompletedRides returns the completed rides, preserving order.
func CompletedRides(rides []generic.RideRecord) []generic.RideRecord {
	out := make([]generic.RideRecord, 0, len(rides))
	for _, r := range rides {
		if r.IsCompleted() {
			out = append(out, r)
		}
	}
	return out
}

// =============================================================================
// RIDE RULES
// =============================================================================

// EvaluateDay evaluates the ride-based rules among active against one
// driver's rides for one day. Shift-based rules are skipped.
func EvaluateDay(ctx context.Context, driverID generic.DriverID, rides []generic.RideRecord, active []RuleDefinition) ([]Violation, error) {
	if err := generic.CheckRideSequence(driverID, rides); err != nil {
		return nil, err
	}

	var out []Violation
	for _, def := range active {
		var (
			vs  []Violation
			err error
		)
		switch rule := def.Rule.(type) {
		case MaxContinuousDriving:
			vs, err = evalContinuousDriving(ctx, def, rule, driverID, rides)
		case MinBreakAfterDriving:
			vs, err = evalBreakAfterDriving(ctx, def, rule, driverID, rides)
		case MaxShiftLength, MinRestBetweenShifts, RequiredShiftBreak, MaxWeeklyWorkingTime:
			continue
		default:
			return nil, fmt.Errorf("rule %s: unhandled variant %T", def.ID, def.Rule)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, vs...)
	}
	SortViolations(out)
	return out, nil
}

func evalContinuousDriving(ctx context.Context, def RuleDefinition, rule MaxContinuousDriving, driverID generic.DriverID, rides []generic.RideRecord) ([]Violation, error) {
	var out []Violation
	driven := 0
	open := -1 // index in out of the current block's violation

	closeBlock := func() {
		if open >= 0 {
			out[open].Detected = generic.Minutes(driven)
			out[open].Severity = SeverityOf(out[open].Detected, out[open].Threshold)
		}
		open = -1
		driven = 0
	}

	for i, r := range rides {
		if err := generic.CheckCancelled(ctx); err != nil {
			return nil, err
		}
		if i > 0 && gapMinutes(rides[i-1], r) >= rule.MinBreakMinutes {
			closeBlock()
		}

		minutes, err := r.Minutes()
		if err != nil {
			return nil, err
		}
		before := driven
		driven += minutes

		if open < 0 && driven > rule.LimitMinutes {
			crossedAt := r.PickupAt.Add(time.Duration(rule.LimitMinutes-before) * time.Minute)
			v := newViolation(def, driverID, generic.Minutes(driven), generic.Minutes(rule.LimitMinutes), crossedAt)
			v.RideID = r.ID
			out = append(out, v)
			open = len(out) - 1
		}
	}
	closeBlock()
	return out, nil
}

func evalBreakAfterDriving(ctx context.Context, def RuleDefinition, rule MinBreakAfterDriving, driverID generic.DriverID, rides []generic.RideRecord) ([]Violation, error) {
	var out []Violation
	driven := 0
	distance := decimal.Zero
	owed := false    // block passed a trigger, the next gap must be a break
	flagged := false // block already produced its violation

	for i, r := range rides {
		if err := generic.CheckCancelled(ctx); err != nil {
			return nil, err
		}
		if i > 0 {
			gap := gapMinutes(rides[i-1], r)
			if gap >= rule.MinBreakMinutes {
				driven, distance = 0, decimal.Zero
				owed, flagged = false, false
			} else if owed {
				v := newViolation(def, driverID, generic.Minutes(gap), generic.Minutes(rule.MinBreakMinutes), r.PickupAt)
				v.RideID = r.ID
				out = append(out, v)
				owed, flagged = false, true
			}
		}

		minutes, err := r.Minutes()
		if err != nil {
			return nil, err
		}
		driven += minutes
		distance = distance.Add(r.DistanceKm)

		if !owed && !flagged && rule.triggered(driven, distance) {
			owed = true
		}
	}
	return out, nil
}

// gapMinutes returns the whole minutes between prev's dropoff and next's pickup.
func gapMinutes(prev, next generic.RideRecord) int {
	return int(next.PickupAt.Sub(prev.DropoffAt) / time.Minute)
}

// =============================================================================
// SHIFT RULES
// =============================================================================

// weekTally accumulates actual work minutes for one ISO week.
type weekTally struct {
	minutes   int
	violation int // index into the output, or underLimit / reportedEarlier
}

const (
	underLimit      = -1
	reportedEarlier = -2
)

// EvaluateShifts evaluates the shift-based rules against one driver's
// shifts. Each shift uses the rules active on its start date for the driver.
// Shifts outside period only provide history and are never flagged.
func EvaluateShifts(ctx context.Context, driverID generic.DriverID, period generic.Period, shifts []generic.ShiftRecord, set RuleSet) ([]Violation, error) {
	if err := generic.CheckShiftSequence(driverID, shifts); err != nil {
		return nil, err
	}

	var out []Violation
	weeks := make(map[time.Time]*weekTally)

	for i, s := range shifts {
		if err := generic.CheckCancelled(ctx); err != nil {
			return nil, err
		}
		total, breaks, actual, err := s.WorkMinutes()
		if err != nil {
			return nil, err
		}

		history := !period.Contains(s.StartAt)
		weekKey := generic.WeekStart(s.StartAt)
		week, ok := weeks[weekKey]
		if !ok {
			week = &weekTally{violation: underLimit}
			weeks[weekKey] = week
		}
		workedBefore := week.minutes
		week.minutes += actual

		for _, def := range set.ActiveRulesForDriver(s.StartAt, driverID) {
			var v *Violation
			switch rule := def.Rule.(type) {
			case MaxContinuousDriving, MinBreakAfterDriving:
				continue

			case MaxShiftLength:
				if total > rule.LimitMinutes {
					at := s.StartAt.Add(time.Duration(rule.LimitMinutes) * time.Minute)
					v = ptr(newViolation(def, driverID, generic.Minutes(total), generic.Minutes(rule.LimitMinutes), at))
				}

			case MinRestBetweenShifts:
				if i > 0 {
					rest := int(s.StartAt.Sub(shifts[i-1].EndAt) / time.Minute)
					if rest < rule.MinRestMinutes {
						v = ptr(newViolation(def, driverID, generic.Minutes(rest), generic.Minutes(rule.MinRestMinutes), s.StartAt))
					}
				}

			case RequiredShiftBreak:
				if tier, ok := rule.tierFor(total); ok && breaks < tier.BreakMinutes {
					at := s.StartAt.Add(time.Duration(tier.ShiftMinutes) * time.Minute)
					v = ptr(newViolation(def, driverID, generic.Minutes(breaks), generic.Minutes(tier.BreakMinutes), at))
				}

			case MaxWeeklyWorkingTime:
				if week.violation == underLimit && week.minutes > rule.LimitMinutes {
					week.violation = reportedEarlier
					if !history {
						at := s.StartAt.Add(time.Duration(rule.LimitMinutes-workedBefore) * time.Minute)
						v = ptr(newViolation(def, driverID, generic.Minutes(week.minutes), generic.Minutes(rule.LimitMinutes), at))
						week.violation = len(out)
					}
				}

			default:
				return nil, fmt.Errorf("rule %s: unhandled variant %T", def.ID, def.Rule)
			}
			if v != nil && !history {
				v.ShiftID = s.ID
				out = append(out, *v)
			}
		}
	}

	// Weekly violations report the full week once all shifts are counted.
	for _, week := range weeks {
		if week.violation < 0 {
			continue
		}
		v := &out[week.violation]
		v.Detected = generic.Minutes(week.minutes)
		v.Severity = SeverityOf(v.Detected, v.Threshold)
	}

	SortViolations(out)
	return out, nil
}

func ptr[T any](v T) *T { return &v }
