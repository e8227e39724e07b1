/*
Package generic provides the shared vocabulary of the ride engine.

PURPOSE:
  This package holds the types every other package speaks: identifiers,
  ride and shift records, clock arithmetic, periods, rounding and the
  error taxonomy. It has no knowledge of compliance rules or wages; the
  compliance and payroll packages build on top of it.

KEY CONCEPTS IN THIS FILE (types.go):
  - DriverID/RideID/ShiftID/CompanyID: Type-safe identifiers
  - RideRecord: One completed (or planned) passenger ride
  - ShiftRecord: One driver shift with its break minutes
  - Money helpers: decimal.Decimal for every currency value

DESIGN PRINCIPLES:
  1. Read-only input: records are owned by the caller's data store
  2. Precision: decimal.Decimal for money and distances, never float64
  3. Type Safety: strong typing for IDs prevents mixing driver/ride IDs
  4. Whole minutes: all derived durations truncate to minutes

USAGE:
  ride := generic.RideRecord{
      ID:        "ride-1",
      DriverID:  "drv-7",
      PickupAt:  time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC),
      DropoffAt: time.Date(2025, 3, 10, 8, 40, 0, 0, time.UTC),
      Status:    generic.RideCompleted,
  }

SEE ALSO:
  - time.go: Clock times, night windows, overlap arithmetic
  - classify.go: Shift classification and minute buckets
  - errors.go: Error taxonomy
*/
package generic

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type DriverID string
type VehicleID string
type RideID string
type ShiftID string
type CompanyID string

// =============================================================================
// RIDE RECORD
// =============================================================================

type RideStatus string

const (
	RidePending    RideStatus = "pending"
	RideInProgress RideStatus = "in_progress"
	RideCompleted  RideStatus = "completed"
)

// RideRecord is a single passenger ride. Immutable once completed.
type RideRecord struct {
	ID             RideID
	DriverID       DriverID
	VehicleID      VehicleID
	PickupAt       time.Time
	DropoffAt      time.Time
	PickupLocation string
	Destination    string
	DistanceKm     decimal.Decimal
	Status         RideStatus

	// Reserved rides were booked in advance rather than dispatched.
	Reserved bool
}

// Minutes returns the driving minutes of the ride.
func (r RideRecord) Minutes() (int, error) {
	return DurationMinutes(r.PickupAt, r.DropoffAt)
}

// Day returns the calendar day the ride belongs to (its pickup day).
func (r RideRecord) Day() time.Time {
	return StartOfDay(r.PickupAt)
}

func (r RideRecord) IsCompleted() bool { return r.Status == RideCompleted }

// =============================================================================
// SHIFT RECORD
// =============================================================================

// ShiftRecord is one driver shift. The shift type is derived from its
// boundaries (see ClassifyShift) and never stored.
//
// INVARIANTS:
//   - EndAt > StartAt
//   - BreakMinutes <= shift minutes
type ShiftRecord struct {
	ID           ShiftID
	DriverID     DriverID
	StartAt      time.Time
	EndAt        time.Time
	BreakMinutes int

	// Rides driven during the shift, time-ascending.
	RideIDs []RideID
}

// Minutes returns the gross shift length in whole minutes.
func (s ShiftRecord) Minutes() (int, error) {
	return DurationMinutes(s.StartAt, s.EndAt)
}

// WorkMinutes returns total, break and actual (total - break) minutes,
// enforcing the shift invariants.
func (s ShiftRecord) WorkMinutes() (total, breaks, actual int, err error) {
	total, err = s.Minutes()
	if err != nil {
		return 0, 0, 0, &IntervalError{RecordID: string(s.ID), Start: s.StartAt, End: s.EndAt}
	}
	if s.BreakMinutes < 0 || s.BreakMinutes > total {
		return 0, 0, 0, &IntervalError{
			RecordID: string(s.ID),
			Start:    s.StartAt,
			End:      s.EndAt,
			Reason:   "break minutes exceed shift length",
		}
	}
	return total, s.BreakMinutes, total - s.BreakMinutes, nil
}

// Day returns the calendar day the shift belongs to (its start day).
func (s ShiftRecord) Day() time.Time {
	return StartOfDay(s.StartAt)
}

// =============================================================================
// AMOUNT - A measured value with its unit (violation readings, thresholds)
// =============================================================================

type Unit string

const (
	UnitMinutes    Unit = "minutes"
	UnitKilometers Unit = "km"
)

type Amount struct {
	Value decimal.Decimal
	Unit  Unit
}

func Minutes(n int) Amount {
	return Amount{Value: decimal.NewFromInt(int64(n)), Unit: UnitMinutes}
}

func Kilometers(d decimal.Decimal) Amount {
	return Amount{Value: d, Unit: UnitKilometers}
}

func (a Amount) IsZero() bool { return a.Value.IsZero() }
func (a Amount) GreaterThan(b Amount) bool { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool { return a.Value.LessThan(b.Value) }
func (a Amount) String() string { return a.Value.String() + " " + string(a.Unit) }

// =============================================================================
// MONEY
// =============================================================================

var (
	minutesPerHour = decimal.NewFromInt(60)
	hundred        = decimal.NewFromInt(100)
)

// RoundCurrency rounds half-up to two decimal places. Amounts in this
// engine are never negative, so decimal's half-away-from-zero rounding
// is half-up.
//
// Apply only at the final aggregation step, never on partial sums.
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// HoursOf converts whole minutes to fractional hours.
func HoursOf(minutes int) decimal.Decimal {
	return decimal.NewFromInt(int64(minutes)).Div(minutesPerHour)
}

// PayFor returns minutes/60 * rate without rounding. Multiplying before
// dividing keeps the intermediate exact for whole-cent rates.
func PayFor(minutes int, hourlyRate decimal.Decimal) decimal.Decimal {
	return hourlyRate.Mul(decimal.NewFromInt(int64(minutes))).Div(minutesPerHour)
}

// Percent returns d * pct / 100.
func Percent(d, pct decimal.Decimal) decimal.Decimal {
	return d.Mul(pct).Div(hundred)
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
