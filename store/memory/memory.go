// Package memory provides an in-memory implementation of the record,
// config and report stores (for tests and local runs).
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/warp/ride-engine/compliance"
	"github.com/warp/ride-engine/generic"
	"github.com/warp/ride-engine/payroll"
	"github.com/warp/ride-engine/session"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	rides   map[generic.CompanyID][]generic.RideRecord
	shifts  map[generic.CompanyID][]generic.ShiftRecord
	rules   map[generic.CompanyID][]compliance.RuleDefinition
	wages   map[generic.CompanyID][]payroll.WageConfig
	reports map[string]*session.Report
}

var (
	_ generic.RecordStore = (*Memory)(nil)
	_ session.ConfigStore = (*Memory)(nil)
	_ session.ReportStore = (*Memory)(nil)
)

func New() *Memory {
	return &Memory{
		rides:   make(map[generic.CompanyID][]generic.RideRecord),
		shifts:  make(map[generic.CompanyID][]generic.ShiftRecord),
		rules:   make(map[generic.CompanyID][]compliance.RuleDefinition),
		wages:   make(map[generic.CompanyID][]payroll.WageConfig),
		reports: make(map[string]*session.Report),
	}
}

// =============================================================================
// RECORDS
// =============================================================================

// SaveRides upserts rides by ID keeping (driver, pickup) order.
func (m *Memory) SaveRides(_ context.Context, companyID generic.CompanyID, rides []generic.RideRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.rides[companyID]
	for _, r := range rides {
		list = slices.DeleteFunc(list, func(o generic.RideRecord) bool { return o.ID == r.ID })
		// Insert after every record that sorts before or equal: O(log n) search.
		i := sort.Search(len(list), func(i int) bool {
			o := list[i]
			if o.DriverID != r.DriverID {
				return o.DriverID > r.DriverID
			}
			return o.PickupAt.After(r.PickupAt)
		})
		list = slices.Insert(list, i, r)
	}
	m.rides[companyID] = list
	return nil
}

// SaveShifts upserts shifts by ID keeping (driver, start) order.
func (m *Memory) SaveShifts(_ context.Context, companyID generic.CompanyID, shifts []generic.ShiftRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.shifts[companyID]
	for _, s := range shifts {
		list = slices.DeleteFunc(list, func(o generic.ShiftRecord) bool { return o.ID == s.ID })
		i := sort.Search(len(list), func(i int) bool {
			o := list[i]
			if o.DriverID != s.DriverID {
				return o.DriverID > s.DriverID
			}
			return o.StartAt.After(s.StartAt)
		})
		s.RideIDs = slices.Clone(s.RideIDs)
		list = slices.Insert(list, i, s)
	}
	m.shifts[companyID] = list
	return nil
}

func (m *Memory) LoadRides(_ context.Context, companyID generic.CompanyID, period generic.Period) ([]generic.RideRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []generic.RideRecord
	for _, r := range m.rides[companyID] {
		if period.Contains(r.PickupAt) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) LoadShifts(_ context.Context, companyID generic.CompanyID, period generic.Period) ([]generic.ShiftRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []generic.ShiftRecord
	for _, s := range m.shifts[companyID] {
		if period.Contains(s.StartAt) {
			s.RideIDs = slices.Clone(s.RideIDs)
			out = append(out, s)
		}
	}
	return out, nil
}

// =============================================================================
// CONFIG
// =============================================================================

func (m *Memory) SaveRule(_ context.Context, companyID generic.CompanyID, def compliance.RuleDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if slices.ContainsFunc(m.rules[companyID], func(d compliance.RuleDefinition) bool { return d.ID == def.ID }) {
		return fmt.Errorf("rule %s: %w", def.ID, generic.ErrDuplicateConfig)
	}
	m.rules[companyID] = append(m.rules[companyID], def)
	return nil
}

func (m *Memory) SaveWage(_ context.Context, companyID generic.CompanyID, cfg payroll.WageConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if slices.ContainsFunc(m.wages[companyID], func(w payroll.WageConfig) bool { return w.ID == cfg.ID }) {
		return fmt.Errorf("wage config %s: %w", cfg.ID, generic.ErrDuplicateConfig)
	}
	m.wages[companyID] = append(m.wages[companyID], cfg)
	return nil
}

func (m *Memory) LoadRules(_ context.Context, companyID generic.CompanyID) ([]compliance.RuleDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.rules[companyID]), nil
}

func (m *Memory) LoadWages(_ context.Context, companyID generic.CompanyID) ([]payroll.WageConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.wages[companyID]), nil
}

// =============================================================================
// REPORTS
// =============================================================================

// SaveReport stores the report under its batch ID, replacing an earlier
// run of the same batch.
func (m *Memory) SaveReport(_ context.Context, report *session.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[report.BatchID] = report
	return nil
}

func (m *Memory) LoadReport(_ context.Context, batchID string) (*session.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.reports[batchID]
	if !ok {
		return nil, fmt.Errorf("batch %s: %w", batchID, generic.ErrReportNotFound)
	}
	return r, nil
}
