/*
Package session orchestrates compliance evaluation and payroll aggregation
over a batch of drivers.

PURPOSE:
  A Session runs one batch, keyed by (company, period, driver set), and
  returns a Report. Each driver is an independent partition: its rides
  and shifts are evaluated and aggregated by one worker and written to
  exactly one result slot. The merge happens after every partition has
  finished, so no result is shared or locked while workers run.

FLOW:
  Batch + Snapshot
       │
       ▼
  partition by driver ──► worker pool (errgroup, bounded)
                              │  compliance.EvaluateDriver
                              │  payroll.Aggregate
                              ▼
                         result slots ──► join ──► Report

PARTIAL FAILURE:
  A partition that fails (invalid interval, broken ordering, missing wage
  config) is recorded in Report.Errors and left out of PerDriver. Other
  partitions are unaffected.

CANCELLATION:
  Workers check the context at every record boundary. If the context is
  done before the join, Run returns ErrComputationCancelled and no
  report; partial results are discarded.

EXAMPLE:
  s := session.New(session.Config{Concurrency: 8, Logger: log})
  snap, _ := session.LoadSnapshot(ctx, store, "acme")
  batch, _ := session.LoadBatch(ctx, store, "acme", generic.MonthPeriod(2025, 3), nil)
  report, err := s.Run(ctx, batch, snap)

SEE ALSO:
  - report.go: Report types
  - store.go: Collaborator interfaces and loaders
*/
package session

import (
	"context"
	"errors"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/warp/ride-engine/compliance"
	"github.com/warp/ride-engine/generic"
	"github.com/warp/ride-engine/logger"
	"github.com/warp/ride-engine/payroll"
)

// =============================================================================
// INPUTS
// =============================================================================

// Batch is the unit of work. Records are read-only; records outside the
// period or the driver set are ignored, except shifts inside
// Period.ShiftLookback, which are history for rest and weekly rules.
type Batch struct {
	// Optional. Empty means a name-based ID derived from the batch key.
	ID string

	CompanyID generic.CompanyID
	Period    generic.Period

	// Empty means every driver present in the records.
	DriverIDs []generic.DriverID

	// Ordered by (driver, pickup) and (driver, start).
	Rides  []generic.RideRecord
	Shifts []generic.ShiftRecord
}

// Snapshot is the immutable configuration for one run.
type Snapshot struct {
	Rules compliance.RuleSet
	Wages payroll.WageSchedule
}

// batchNamespace scopes name-based batch IDs.
var batchNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("ride-engine/batch"))

// Key returns the stable batch key "company|period|driver,driver".
func (b Batch) Key() string {
	drivers := make([]string, len(b.DriverIDs))
	for i, d := range b.DriverIDs {
		drivers[i] = string(d)
	}
	sort.Strings(drivers)
	return string(b.CompanyID) + "|" + b.Period.String() + "|" + strings.Join(drivers, ",")
}

// ResolvedID returns ID, or a UUIDv5 of the batch key when ID is empty.
func (b Batch) ResolvedID() string {
	if b.ID != "" {
		return b.ID
	}
	return uuid.NewSHA1(batchNamespace, []byte(b.Key())).String()
}

// =============================================================================
// SESSION
// =============================================================================

type Config struct {
	// Maximum partitions processed in parallel. Zero means GOMAXPROCS.
	Concurrency int

	// Source of Report.GeneratedAt. Nil means time.Now in UTC.
	Clock func() time.Time

	// Nil means a no-op logger.
	Logger logger.ILogger
}

// Session runs batches. It holds no per-batch state and may be reused
// concurrently.
type Session struct {
	concurrency int
	now         func() time.Time
	log         logger.ILogger
}

func New(cfg Config) *Session {
	s := &Session{
		concurrency: cfg.Concurrency,
		now:         cfg.Clock,
		log:         cfg.Logger,
	}
	if s.concurrency <= 0 {
		s.concurrency = runtime.GOMAXPROCS(0)
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.log == nil {
		s.log = logger.NewNop()
	}
	return s
}

// DriverPartition is one driver's share of a batch.
type DriverPartition struct {
	DriverID generic.DriverID
	Rides    []generic.RideRecord
	Shifts   []generic.ShiftRecord
}

type partitionResult struct {
	report DriverReport
	err    error
}

// Run evaluates every driver partition of the batch and joins the results.
func (s *Session) Run(ctx context.Context, batch Batch, snap Snapshot) (*Report, error) {
	if err := batch.Period.Validate(); err != nil {
		return nil, err
	}
	started := time.Now()
	parts := Partition(batch)
	results := make([]partitionResult, len(parts))

	var g errgroup.Group
	g.SetLimit(max(1, min(s.concurrency, len(parts))))
	for i, p := range parts {
		if ctx.Err() != nil {
			break
		}
		i, p := i, p
		g.Go(func() error {
			results[i] = s.runPartition(ctx, p, batch.Period, snap)
			return nil
		})
	}
	_ = g.Wait()

	// Join barrier: from here on only this goroutine touches results.
	if ctx.Err() != nil {
		s.log.Warning("batch cancelled", logger.String("company", string(batch.CompanyID)), logger.Int("drivers", len(parts)))
		return nil, generic.ErrComputationCancelled
	}

	report := &Report{
		BatchID:     batch.ResolvedID(),
		CompanyID:   batch.CompanyID,
		Period:      batch.Period,
		GeneratedAt: s.now(),
		PerDriver:   make(map[generic.DriverID]DriverReport, len(parts)),
	}
	for i, res := range results {
		driverID := parts[i].DriverID
		if res.err != nil {
			if errors.Is(res.err, generic.ErrComputationCancelled) {
				return nil, generic.ErrComputationCancelled
			}
			s.log.Warning("driver not evaluable",
				logger.String("batch", report.BatchID),
				logger.String("driver", string(driverID)),
				logger.Error(res.err))
			report.Errors = append(report.Errors, DriverError{
				DriverID: driverID,
				Kind:     generic.KindOf(res.err),
				Message:  res.err.Error(),
			})
			continue
		}
		report.PerDriver[driverID] = res.report
	}

	s.log.Info("batch evaluated",
		logger.String("batch", report.BatchID),
		logger.String("period", batch.Period.String()),
		logger.Int("drivers", len(report.PerDriver)),
		logger.Int("errors", len(report.Errors)),
		logger.Int("violations", report.ViolationCount()),
		logger.Duration("elapsed", time.Since(started)))
	return report, nil
}

func (s *Session) runPartition(ctx context.Context, p DriverPartition, period generic.Period, snap Snapshot) partitionResult {
	violations, err := compliance.EvaluateDriver(ctx, p.DriverID, period, p.Rides, p.Shifts, snap.Rules)
	if err != nil {
		return partitionResult{err: err}
	}
	line, err := payroll.Aggregate(ctx, p.DriverID, period, p.Shifts, snap.Wages, performance(p.Rides, violations))
	if err != nil {
		return partitionResult{err: err}
	}
	return partitionResult{report: DriverReport{Violations: violations, Payroll: line}}
}

// performance counts completed rides and those with at least one violation.
func performance(rides []generic.RideRecord, violations []compliance.Violation) payroll.Performance {
	flagged := make(map[generic.RideID]bool)
	for _, v := range violations {
		if v.RideID != "" {
			flagged[v.RideID] = true
		}
	}
	return payroll.Performance{
		Rides:          len(compliance.CompletedRides(rides)),
		RidesViolating: len(flagged),
	}
}

// =============================================================================
// PARTITIONING
// =============================================================================

// Partition splits a batch by driver, ordered by driver ID. Records keep
// their input order; only records inside the period (shift lookback for
// shifts) and driver set are kept. A requested driver without records
// still gets a partition.
func Partition(b Batch) []DriverPartition {
	wanted := make(map[generic.DriverID]bool, len(b.DriverIDs))
	for _, d := range b.DriverIDs {
		wanted[d] = true
	}
	keep := func(d generic.DriverID) bool { return len(wanted) == 0 || wanted[d] }

	byDriver := make(map[generic.DriverID]*DriverPartition)
	get := func(d generic.DriverID) *DriverPartition {
		p, ok := byDriver[d]
		if !ok {
			p = &DriverPartition{DriverID: d}
			byDriver[d] = p
		}
		return p
	}

	// Drivers with only history shifts belong to an earlier period.
	active := make(map[generic.DriverID]bool)
	for _, d := range b.DriverIDs {
		get(d)
		active[d] = true
	}
	for _, r := range b.Rides {
		if keep(r.DriverID) && b.Period.Contains(r.PickupAt) {
			p := get(r.DriverID)
			p.Rides = append(p.Rides, r)
			active[r.DriverID] = true
		}
	}
	lookback := b.Period.ShiftLookback()
	for _, sh := range b.Shifts {
		if keep(sh.DriverID) && lookback.Contains(sh.StartAt) {
			p := get(sh.DriverID)
			p.Shifts = append(p.Shifts, sh)
			if b.Period.Contains(sh.StartAt) {
				active[sh.DriverID] = true
			}
		}
	}

	parts := make([]DriverPartition, 0, len(byDriver))
	for d, p := range byDriver {
		if active[d] {
			parts = append(parts, *p)
		}
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].DriverID < parts[j].DriverID })
	return parts
}
