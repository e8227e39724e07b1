package session

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/ride-engine/compliance"
	"github.com/warp/ride-engine/generic"
	"github.com/warp/ride-engine/payroll"
)

// =============================================================================
// REPORT - Result of one session run
// =============================================================================

// DriverReport is the evaluated result for one driver.
type DriverReport struct {
	Violations []compliance.Violation
	Payroll    payroll.PayrollLine
}

// DriverError records why a driver could not be evaluated for the batch.
// Such a driver has no PerDriver entry.
type DriverError struct {
	DriverID generic.DriverID
	Kind     generic.ErrorKind
	Message  string
}

// Report is a value object: the engine returns it and never mutates it
// afterwards. Identical input and configuration produce an identical
// report (BatchID derives from the batch key, GeneratedAt from the
// session clock).
type Report struct {
	BatchID     string
	CompanyID   generic.CompanyID
	Period      generic.Period
	GeneratedAt time.Time

	PerDriver map[generic.DriverID]DriverReport
	Errors    []DriverError
}

// Drivers returns the evaluated drivers in ascending order.
func (r *Report) Drivers() []generic.DriverID {
	ids := make([]generic.DriverID, 0, len(r.PerDriver))
	for id := range r.PerDriver {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ErrorFor returns the error recorded for a driver, if any.
func (r *Report) ErrorFor(driverID generic.DriverID) (DriverError, bool) {
	for _, e := range r.Errors {
		if e.DriverID == driverID {
			return e, true
		}
	}
	return DriverError{}, false
}

// ViolationCount returns the number of violations across all drivers.
func (r *Report) ViolationCount() int {
	n := 0
	for _, d := range r.PerDriver {
		n += len(d.Violations)
	}
	return n
}

// =============================================================================
// SUMMARY
// =============================================================================

// Summary is the compliance overview of a report, as shown next to the
// per-driver details.
type Summary struct {
	Drivers      int
	NotEvaluable int

	Violations            int
	DriversWithViolations int
	BySeverity            map[compliance.Severity]int
	ByKind                map[compliance.RuleKind]int

	// Drivers paid below the statutory minimum.
	MinimumWageShortfalls int

	TotalPay decimal.Decimal
}

// Summary counts violations by severity and rule kind across all drivers.
func (r *Report) Summary() Summary {
	s := Summary{
		Drivers:      len(r.PerDriver),
		NotEvaluable: len(r.Errors),
		BySeverity:   make(map[compliance.Severity]int),
		ByKind:       make(map[compliance.RuleKind]int),
		TotalPay:     decimal.Zero,
	}
	for _, d := range r.PerDriver {
		if len(d.Violations) > 0 {
			s.DriversWithViolations++
		}
		for _, v := range d.Violations {
			s.Violations++
			s.BySeverity[v.Severity]++
			s.ByKind[v.Kind]++
		}
		if mw := d.Payroll.MinimumWage; mw != nil && !mw.Compliant() {
			s.MinimumWageShortfalls++
		}
		s.TotalPay = s.TotalPay.Add(d.Payroll.TotalPay)
	}
	return s
}
