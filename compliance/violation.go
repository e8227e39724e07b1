package compliance

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/ride-engine/generic"
)

// =============================================================================
// VIOLATION
// =============================================================================

// Violation is one breach of a rule, tied to a ride or a shift.
type Violation struct {
	RuleID   RuleID
	Kind     RuleKind
	DriverID generic.DriverID

	// Exactly one of RideID / ShiftID is set.
	RideID  generic.RideID
	ShiftID generic.ShiftID

	Detected  generic.Amount
	Threshold generic.Amount
	Severity  Severity

	// When the breach happened, derived from the records.
	DetectedAt time.Time
}

// =============================================================================
// SEVERITY
// =============================================================================

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

var (
	mediumExcess = decimal.NewFromFloat(0.10)
	highExcess   = decimal.NewFromFloat(0.25)
)

// SeverityOf grades a violation by its relative distance from the threshold:
// under 10% is low, under 25% medium, anything beyond high.
func SeverityOf(detected, threshold generic.Amount) Severity {
	if threshold.Value.IsZero() {
		return SeverityHigh
	}
	excess := detected.Value.Sub(threshold.Value).Abs().Div(threshold.Value.Abs())
	switch {
	case excess.LessThan(mediumExcess):
		return SeverityLow
	case excess.LessThan(highExcess):
		return SeverityMedium
	default:
		return SeverityHigh
	}
}

func newViolation(def RuleDefinition, driverID generic.DriverID, detected, threshold generic.Amount, at time.Time) Violation {
	return Violation{
		RuleID:     def.ID,
		Kind:       def.Kind(),
		DriverID:   driverID,
		Detected:   detected,
		Threshold:  threshold,
		Severity:   SeverityOf(detected, threshold),
		DetectedAt: at,
	}
}

// =============================================================================
// ORDERING
// =============================================================================

// SortViolations orders violations by (driver, detection time, rule kind).
// Ride then shift ID break remaining ties so the order is total.
func SortViolations(vs []Violation) {
	sort.SliceStable(vs, func(i, j int) bool {
		a, b := vs[i], vs[j]
		if a.DriverID != b.DriverID {
			return a.DriverID < b.DriverID
		}
		if !a.DetectedAt.Equal(b.DetectedAt) {
			return a.DetectedAt.Before(b.DetectedAt)
		}
		if a.Kind != b.Kind {
			return a.Kind.Rank() < b.Kind.Rank()
		}
		if a.RideID != b.RideID {
			return a.RideID < b.RideID
		}
		return a.ShiftID < b.ShiftID
	})
}
