/*
store.go - Collaborator interfaces for configuration and reports

PURPOSE:
  The session itself performs no I/O. These interfaces describe what the
  surrounding service reads before a run (records, rules, wages) and
  where it may persist the returned Report. LoadSnapshot and LoadBatch
  turn collaborator data into the immutable inputs of Session.Run.

KEY INTERFACES:
  ConfigSource: Append-only rule definitions and wage configs per company
  ConfigStore:  ConfigSource plus intake
  ReportStore:  Persist and fetch reports by batch ID

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - store/memory/memory.go: In-memory for testing

SEE ALSO:
  - generic/store.go: Ride and shift record sources
*/
package session

import (
	"context"
	"fmt"

	"github.com/warp/ride-engine/compliance"
	"github.com/warp/ride-engine/generic"
	"github.com/warp/ride-engine/payroll"
)

// =============================================================================
// INTERFACES
// =============================================================================

// ConfigSource reads the full, append-only configuration history.
type ConfigSource interface {
	LoadRules(ctx context.Context, companyID generic.CompanyID) ([]compliance.RuleDefinition, error)
	LoadWages(ctx context.Context, companyID generic.CompanyID) ([]payroll.WageConfig, error)
}

// ConfigStore extends ConfigSource with intake. Existing IDs are rejected
// with generic.ErrDuplicateConfig: a change is a new definition.
type ConfigStore interface {
	ConfigSource

	SaveRule(ctx context.Context, companyID generic.CompanyID, def compliance.RuleDefinition) error
	SaveWage(ctx context.Context, companyID generic.CompanyID, cfg payroll.WageConfig) error
}

// ReportStore persists reports returned by Session.Run.
type ReportStore interface {
	SaveReport(ctx context.Context, report *Report) error

	// LoadReport fails with generic.ErrReportNotFound for an unknown batch.
	LoadReport(ctx context.Context, batchID string) (*Report, error)
}

// =============================================================================
// LOADERS
// =============================================================================

// LoadSnapshot reads a company's configuration into an immutable snapshot.
func LoadSnapshot(ctx context.Context, src ConfigSource, companyID generic.CompanyID) (Snapshot, error) {
	defs, err := src.LoadRules(ctx, companyID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load rules: %w", err)
	}
	rules, err := compliance.NewRuleSet(defs...)
	if err != nil {
		return Snapshot{}, fmt.Errorf("build rule set: %w", err)
	}

	cfgs, err := src.LoadWages(ctx, companyID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load wages: %w", err)
	}
	wages, err := payroll.NewWageSchedule(cfgs...)
	if err != nil {
		return Snapshot{}, fmt.Errorf("build wage schedule: %w", err)
	}

	return Snapshot{Rules: rules, Wages: wages}, nil
}

// LoadBatch reads the records of a company and period, plus the shifts of
// the lookback before it. An empty driver list selects every driver
// present in the records.
func LoadBatch(ctx context.Context, src generic.RecordSource, companyID generic.CompanyID, period generic.Period, drivers []generic.DriverID) (Batch, error) {
	if err := period.Validate(); err != nil {
		return Batch{}, err
	}
	rides, err := src.LoadRides(ctx, companyID, period)
	if err != nil {
		return Batch{}, fmt.Errorf("load rides: %w", err)
	}
	shifts, err := src.LoadShifts(ctx, companyID, period.ShiftLookback())
	if err != nil {
		return Batch{}, fmt.Errorf("load shifts: %w", err)
	}
	return Batch{
		CompanyID: companyID,
		Period:    period,
		DriverIDs: drivers,
		Rides:     rides,
		Shifts:    shifts,
	}, nil
}
