/*
store.go - Record source interface for ride and shift data

PURPOSE:
  Defines the boundary between the engine and the caller's data store.
  The engine never owns records: it reads them for one computation and
  returns values. Different implementations can use SQLite or memory.

KEY INTERFACES:
  RecordSource: Read rides and shifts for a company and period
  RecordStore:  RecordSource plus intake (upsert by record ID)

ORDERING CONTRACT:
  Both Load methods return records ordered by (driver, start time).
  The engine checks the order defensively and rejects a partition
  instead of sorting it.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - store/memory/memory.go: In-memory for testing

SEE ALSO:
  - session/store.go: Config and report persistence interfaces
*/
package generic

import "context"

// RecordSource reads ride and shift records.
type RecordSource interface {
	// LoadRides returns rides picked up within the period, ordered by driver then pickup.
	LoadRides(ctx context.Context, companyID CompanyID, period Period) ([]RideRecord, error)

	// LoadShifts returns shifts started within the period, ordered by driver then start.
	LoadShifts(ctx context.Context, companyID CompanyID, period Period) ([]ShiftRecord, error)
}

// RecordStore extends RecordSource with intake. Saving a record whose ID
// exists replaces it; the engine itself never writes records.
type RecordStore interface {
	RecordSource

	SaveRides(ctx context.Context, companyID CompanyID, rides []RideRecord) error
	SaveShifts(ctx context.Context, companyID CompanyID, shifts []ShiftRecord) error
}
