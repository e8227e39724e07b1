/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Persists the records the engine reads (rides, shifts), the versioned
  configuration it is run with (rule definitions, wage configs) and the
  reports it returns. The engine core never touches this package; the
  API layer loads a batch and a snapshot from here, runs a session and
  saves the report.

INTERFACES IMPLEMENTED:
  generic.RecordStore:  Ride and shift intake and period queries
  session.ConfigStore:  Append-only rule definitions and wage configs
  session.ReportStore:  Reports by batch ID

APPEND-ONLY CONFIGURATION:
  rule_definitions and wage_configs are never updated. A new threshold
  is a new row with a later active_from; an existing ID is rejected with
  generic.ErrDuplicateConfig. Records, in contrast, are upserted by ID:
  the caller's data store owns them and may correct them, and every
  report is recomputed from the current rows.

KEY TABLES:
  rides:            One row per ride, ordered by (driver, pickup)
  shifts:           One row per shift, ride IDs as JSON
  rule_definitions: Rule JSON (factory.RuleJSON) per company
  wage_configs:     Wage JSON (factory.WageJSON) per company
  reports:          Report JSON per batch ID

INDEXES:
  - idx_rides_company_day: Period queries (hot path for LoadBatch)
  - idx_shifts_company_day: Same for shifts

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, matching SQLite's single writer.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging): readers do not block
  the writer.

USAGE:
  store, err := sqlite.New("./data/rides.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  snap, _ := session.LoadSnapshot(ctx, store, "acme")
  batch, _ := session.LoadBatch(ctx, store, "acme", period, nil)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - generic/store.go: Record interfaces
  - session/store.go: Config and report interfaces
  - store/memory/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/ride-engine/compliance"
	"github.com/warp/ride-engine/factory"
	"github.com/warp/ride-engine/generic"
	"github.com/warp/ride-engine/payroll"
	"github.com/warp/ride-engine/session"
)

const dayLayout = "2006-01-02"

// Store implements all storage interfaces using SQLite.
type Store struct {
	db      *sql.DB
	mu      sync.RWMutex
	factory *factory.Factory
}

var (
	_ generic.RecordStore = (*Store)(nil)
	_ session.ConfigStore = (*Store)(nil)
	_ session.ReportStore = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Each connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, factory: factory.New()}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Rides (caller-owned, upserted by id)
	CREATE TABLE IF NOT EXISTS rides (
		company_id TEXT NOT NULL,
		id TEXT NOT NULL,
		driver_id TEXT NOT NULL,
		vehicle_id TEXT,
		pickup_at TEXT NOT NULL,
		pickup_unix INTEGER NOT NULL,
		pickup_day TEXT NOT NULL,
		dropoff_at TEXT NOT NULL,
		pickup_location TEXT,
		destination TEXT,
		distance_km TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL,
		reserved BOOLEAN DEFAULT FALSE,
		PRIMARY KEY (company_id, id)
	);

	CREATE INDEX IF NOT EXISTS idx_rides_company_day
		ON rides(company_id, pickup_day);
	CREATE INDEX IF NOT EXISTS idx_rides_driver_pickup
		ON rides(company_id, driver_id, pickup_unix);

	-- Shifts (caller-owned, upserted by id)
	CREATE TABLE IF NOT EXISTS shifts (
		company_id TEXT NOT NULL,
		id TEXT NOT NULL,
		driver_id TEXT NOT NULL,
		start_at TEXT NOT NULL,
		start_unix INTEGER NOT NULL,
		start_day TEXT NOT NULL,
		end_at TEXT NOT NULL,
		break_minutes INTEGER NOT NULL DEFAULT 0,
		ride_ids_json TEXT,
		PRIMARY KEY (company_id, id)
	);

	CREATE INDEX IF NOT EXISTS idx_shifts_company_day
		ON shifts(company_id, start_day);
	CREATE INDEX IF NOT EXISTS idx_shifts_driver_start
		ON shifts(company_id, driver_id, start_unix);

	-- Rule definitions (append-only)
	CREATE TABLE IF NOT EXISTS rule_definitions (
		company_id TEXT NOT NULL,
		id TEXT NOT NULL,
		kind TEXT NOT NULL,
		active_from TEXT NOT NULL,
		version INTEGER DEFAULT 1,
		config_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (company_id, id)
	);

	-- Wage configs (append-only)
	CREATE TABLE IF NOT EXISTS wage_configs (
		company_id TEXT NOT NULL,
		id TEXT NOT NULL,
		effective_from TEXT NOT NULL,
		version INTEGER DEFAULT 1,
		config_json TEXT NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (company_id, id)
	);

	-- Reports (latest run per batch)
	CREATE TABLE IF NOT EXISTS reports (
		batch_id TEXT PRIMARY KEY,
		company_id TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		generated_at TEXT NOT NULL,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_company
		ON reports(company_id, period_start);
	`

	_, err := s.db.Exec(schema)
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// RECORD STORE (generic.RecordStore interface)
// =============================================================================

// SaveRides upserts rides atomically.
func (s *Store) SaveRides(ctx context.Context, companyID generic.CompanyID, rides []generic.RideRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, r := range rides {
		if err := saveRide(ctx, sqlTx, companyID, r); err != nil {
			return err
		}
	}
	return sqlTx.Commit()
}

func saveRide(ctx context.Context, db execer, companyID generic.CompanyID, r generic.RideRecord) error {
	query := `
		INSERT INTO rides
		(company_id, id, driver_id, vehicle_id, pickup_at, pickup_unix, pickup_day, dropoff_at,
		 pickup_location, destination, distance_km, status, reserved)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(company_id, id) DO UPDATE SET
			driver_id = excluded.driver_id,
			vehicle_id = excluded.vehicle_id,
			pickup_at = excluded.pickup_at,
			pickup_unix = excluded.pickup_unix,
			pickup_day = excluded.pickup_day,
			dropoff_at = excluded.dropoff_at,
			pickup_location = excluded.pickup_location,
			destination = excluded.destination,
			distance_km = excluded.distance_km,
			status = excluded.status,
			reserved = excluded.reserved
	`
	_, err := db.ExecContext(ctx, query,
		companyID,
		r.ID,
		r.DriverID,
		nullString(string(r.VehicleID)),
		r.PickupAt.Format(time.RFC3339Nano),
		r.PickupAt.UnixNano(),
		r.PickupAt.Format(dayLayout),
		r.DropoffAt.Format(time.RFC3339Nano),
		nullString(r.PickupLocation),
		nullString(r.Destination),
		r.DistanceKm.String(),
		r.Status,
		r.Reserved,
	)
	if err != nil {
		return fmt.Errorf("failed to save ride %s: %w", r.ID, err)
	}
	return nil
}

// SaveShifts upserts shifts atomically.
func (s *Store) SaveShifts(ctx context.Context, companyID generic.CompanyID, shifts []generic.ShiftRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, sh := range shifts {
		if err := saveShift(ctx, sqlTx, companyID, sh); err != nil {
			return err
		}
	}
	return sqlTx.Commit()
}

func saveShift(ctx context.Context, db execer, companyID generic.CompanyID, sh generic.ShiftRecord) error {
	rideIDs, err := json.Marshal(sh.RideIDs)
	if err != nil {
		return fmt.Errorf("failed to encode ride ids: %w", err)
	}

	query := `
		INSERT INTO shifts
		(company_id, id, driver_id, start_at, start_unix, start_day, end_at, break_minutes, ride_ids_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(company_id, id) DO UPDATE SET
			driver_id = excluded.driver_id,
			start_at = excluded.start_at,
			start_unix = excluded.start_unix,
			start_day = excluded.start_day,
			end_at = excluded.end_at,
			break_minutes = excluded.break_minutes,
			ride_ids_json = excluded.ride_ids_json
	`
	_, err = db.ExecContext(ctx, query,
		companyID,
		sh.ID,
		sh.DriverID,
		sh.StartAt.Format(time.RFC3339Nano),
		sh.StartAt.UnixNano(),
		sh.StartAt.Format(dayLayout),
		sh.EndAt.Format(time.RFC3339Nano),
		sh.BreakMinutes,
		string(rideIDs),
	)
	if err != nil {
		return fmt.Errorf("failed to save shift %s: %w", sh.ID, err)
	}
	return nil
}

// LoadRides returns rides picked up within the period, ordered by driver then pickup.
func (s *Store) LoadRides(ctx context.Context, companyID generic.CompanyID, period generic.Period) ([]generic.RideRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, driver_id, vehicle_id, pickup_at, dropoff_at, pickup_location, destination,
		       distance_km, status, reserved
		FROM rides
		WHERE company_id = ? AND pickup_day >= ? AND pickup_day <= ?
		ORDER BY driver_id ASC, pickup_unix ASC
	`
	rows, err := s.db.QueryContext(ctx, query, companyID, period.Start.Format(dayLayout), period.End.Format(dayLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query rides: %w", err)
	}
	defer rows.Close()

	var rides []generic.RideRecord
	for rows.Next() {
		var (
			r                   generic.RideRecord
			vehicleID           sql.NullString
			pickupAt, dropoffAt string
			pickupLoc, dest     sql.NullString
			distance            string
		)
		if err := rows.Scan(&r.ID, &r.DriverID, &vehicleID, &pickupAt, &dropoffAt,
			&pickupLoc, &dest, &distance, &r.Status, &r.Reserved); err != nil {
			return nil, fmt.Errorf("failed to scan ride: %w", err)
		}
		r.VehicleID = generic.VehicleID(vehicleID.String)
		if r.PickupAt, err = parseTime(pickupAt); err != nil {
			return nil, fmt.Errorf("ride %s: pickup_at: %w", r.ID, err)
		}
		if r.DropoffAt, err = parseTime(dropoffAt); err != nil {
			return nil, fmt.Errorf("ride %s: dropoff_at: %w", r.ID, err)
		}
		r.PickupLocation = pickupLoc.String
		r.Destination = dest.String
		if r.DistanceKm, err = decimal.NewFromString(distance); err != nil {
			return nil, fmt.Errorf("ride %s: distance_km: %w", r.ID, err)
		}
		rides = append(rides, r)
	}
	return rides, rows.Err()
}

// LoadShifts returns shifts started within the period, ordered by driver then start.
func (s *Store) LoadShifts(ctx context.Context, companyID generic.CompanyID, period generic.Period) ([]generic.ShiftRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, driver_id, start_at, end_at, break_minutes, ride_ids_json
		FROM shifts
		WHERE company_id = ? AND start_day >= ? AND start_day <= ?
		ORDER BY driver_id ASC, start_unix ASC
	`
	rows, err := s.db.QueryContext(ctx, query, companyID, period.Start.Format(dayLayout), period.End.Format(dayLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}
	defer rows.Close()

	var shifts []generic.ShiftRecord
	for rows.Next() {
		var (
			sh             generic.ShiftRecord
			startAt, endAt string
			rideIDs        sql.NullString
		)
		if err := rows.Scan(&sh.ID, &sh.DriverID, &startAt, &endAt, &sh.BreakMinutes, &rideIDs); err != nil {
			return nil, fmt.Errorf("failed to scan shift: %w", err)
		}
		if sh.StartAt, err = parseTime(startAt); err != nil {
			return nil, fmt.Errorf("shift %s: start_at: %w", sh.ID, err)
		}
		if sh.EndAt, err = parseTime(endAt); err != nil {
			return nil, fmt.Errorf("shift %s: end_at: %w", sh.ID, err)
		}
		if rideIDs.Valid && rideIDs.String != "" {
			if err := json.Unmarshal([]byte(rideIDs.String), &sh.RideIDs); err != nil {
				return nil, fmt.Errorf("failed to decode ride ids of %s: %w", sh.ID, err)
			}
		}
		shifts = append(shifts, sh)
	}
	return shifts, rows.Err()
}

// =============================================================================
// CONFIG STORE (session.ConfigStore interface)
// =============================================================================

// SaveRule appends a rule definition. Existing IDs are rejected.
func (s *Store) SaveRule(ctx context.Context, companyID generic.CompanyID, def compliance.RuleDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	configJSON, err := json.Marshal(s.factory.RuleToJSON(def))
	if err != nil {
		return fmt.Errorf("failed to encode rule: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rule_definitions (company_id, id, kind, active_from, version, config_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		companyID,
		def.ID,
		def.Kind(),
		def.ActiveFrom.Format(dayLayout),
		def.Version,
		string(configJSON),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("rule %s: %w", def.ID, generic.ErrDuplicateConfig)
		}
		return fmt.Errorf("failed to save rule: %w", err)
	}
	return nil
}

// LoadRules returns every rule definition of a company in insertion order.
func (s *Store) LoadRules(ctx context.Context, companyID generic.CompanyID) ([]compliance.RuleDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT config_json FROM rule_definitions WHERE company_id = ? ORDER BY rowid ASC", companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var defs []compliance.RuleDefinition
	for rows.Next() {
		var configJSON string
		if err := rows.Scan(&configJSON); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		def, err := s.factory.ParseRule(configJSON)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// SaveWage appends a wage config. Existing IDs are rejected.
func (s *Store) SaveWage(ctx context.Context, companyID generic.CompanyID, cfg payroll.WageConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	configJSON, err := json.Marshal(s.factory.WageToJSON(cfg))
	if err != nil {
		return fmt.Errorf("failed to encode wage config: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO wage_configs (company_id, id, effective_from, version, config_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		companyID,
		cfg.ID,
		cfg.EffectiveFrom.Format(dayLayout),
		cfg.Version,
		string(configJSON),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("wage config %s: %w", cfg.ID, generic.ErrDuplicateConfig)
		}
		return fmt.Errorf("failed to save wage config: %w", err)
	}
	return nil
}

// LoadWages returns every wage config of a company in insertion order.
func (s *Store) LoadWages(ctx context.Context, companyID generic.CompanyID) ([]payroll.WageConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT config_json FROM wage_configs WHERE company_id = ? ORDER BY rowid ASC", companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query wage configs: %w", err)
	}
	defer rows.Close()

	var cfgs []payroll.WageConfig
	for rows.Next() {
		var configJSON string
		if err := rows.Scan(&configJSON); err != nil {
			return nil, fmt.Errorf("failed to scan wage config: %w", err)
		}
		cfg, err := s.factory.ParseWage(configJSON)
		if err != nil {
			return nil, err
		}
		cfgs = append(cfgs, cfg)
	}
	return cfgs, rows.Err()
}

// =============================================================================
// REPORT STORE (session.ReportStore interface)
// =============================================================================

// SaveReport stores a report, replacing an earlier run of the same batch.
func (s *Store) SaveReport(ctx context.Context, report *session.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO reports (batch_id, company_id, period_start, period_end, generated_at, report_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		report.BatchID,
		report.CompanyID,
		report.Period.Start.Format(dayLayout),
		report.Period.End.Format(dayLayout),
		report.GeneratedAt.UTC().Format(time.RFC3339Nano),
		string(reportJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// LoadReport returns a stored report or generic.ErrReportNotFound.
func (s *Store) LoadReport(ctx context.Context, batchID string) (*session.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var reportJSON string
	err := s.db.QueryRowContext(ctx, "SELECT report_json FROM reports WHERE batch_id = ?", batchID).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("batch %s: %w", batchID, generic.ErrReportNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report: %w", err)
	}

	var report session.Report
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &report, nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt timestamp %q: %w", s, err)
	}
	return t, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "PRIMARY KEY"))
}
