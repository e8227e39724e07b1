/*
errors.go - Centralized error types for the engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Input errors - malformed intervals, broken ordering preconditions
  2. Configuration errors - no rule/wage config for a required date
  3. Session errors - cancellation of a whole batch
  4. Store errors - missing records in a collaborator store

PROPAGATION:
  Input and configuration errors are fatal for one driver partition only
  and are recorded in the report. Cancellation discards the whole report.
  KindOf maps any error to the kind string stored in the report.

SEE ALSO:
  - session/session.go: Records partition errors by kind
  - api/handlers.go: Maps kinds to HTTP status codes
*/
package generic

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidInterval is returned for a malformed timestamp pair (end <= start)
	// or a shift whose break exceeds its length.
	ErrInvalidInterval = errors.New("invalid interval")

	// ErrInvalidRideSequence is returned when records are not time-ordered or
	// overlap for one driver. The engine never sorts or drops records itself.
	ErrInvalidRideSequence = errors.New("invalid ride sequence")

	// ErrMissingConfig is returned when no rule or wage configuration is active
	// for a date that requires one.
	ErrMissingConfig = errors.New("missing rule or wage config")

	// ErrComputationCancelled is returned when the caller cancels a session
	// before the join. No partial report accompanies it.
	ErrComputationCancelled = errors.New("computation cancelled")

	// ErrReportNotFound is returned when a stored report does not exist.
	ErrReportNotFound = errors.New("report not found")

	// ErrDuplicateConfig is returned when a rule or wage config ID already exists.
	// Configuration is append-only: a change is a new definition.
	ErrDuplicateConfig = errors.New("duplicate config id")
)

// =============================================================================
// ERROR KINDS - Stable identifiers recorded in reports
// =============================================================================

type ErrorKind string

const (
	KindInvalidInterval     ErrorKind = "invalid_interval"
	KindInvalidRideSequence ErrorKind = "invalid_ride_sequence"
	KindMissingConfig       ErrorKind = "missing_rule_or_wage_config"
	KindCancelled           ErrorKind = "computation_cancelled"
	KindInternal            ErrorKind = "internal"
)

// KindOf classifies err into an ErrorKind.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrInvalidInterval):
		return KindInvalidInterval
	case errors.Is(err, ErrInvalidRideSequence):
		return KindInvalidRideSequence
	case errors.Is(err, ErrMissingConfig):
		return KindMissingConfig
	case errors.Is(err, ErrComputationCancelled):
		return KindCancelled
	default:
		return KindInternal
	}
}

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// IntervalError describes a malformed timestamp pair.
type IntervalError struct {
	RecordID string
	Start    time.Time
	End      time.Time
	Reason   string
}

func (e *IntervalError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "end not after start"
	}
	if e.RecordID != "" {
		return fmt.Sprintf("invalid interval for %s: %s (%s - %s)",
			e.RecordID, reason, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
	}
	return fmt.Sprintf("invalid interval: %s (%s - %s)",
		reason, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}

func (e *IntervalError) Unwrap() error {
	return ErrInvalidInterval
}

// SequenceError describes a broken ordering precondition: the record at
// RecordID starts before PreviousID ended.
type SequenceError struct {
	DriverID   DriverID
	RecordID   string
	PreviousID string
	Reason     string // "out_of_order" or "overlap"
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("invalid sequence for driver %s: %s %s after %s",
		e.DriverID, e.RecordID, e.Reason, e.PreviousID)
}

func (e *SequenceError) Unwrap() error {
	return ErrInvalidRideSequence
}

// MissingConfigError names the date without applicable configuration.
type MissingConfigError struct {
	What string // "wage" or "rule"
	Date time.Time
}

func (e *MissingConfigError) Error() string {
	return fmt.Sprintf("no %s config active on %s", e.What, e.Date.Format("2006-01-02"))
}

func (e *MissingConfigError) Unwrap() error {
	return ErrMissingConfig
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// CheckCancelled returns ErrComputationCancelled once ctx is done.
// Workers call it at record boundaries.
func CheckCancelled(ctx context.Context) error {
	if ctx.Err() != nil {
		return ErrComputationCancelled
	}
	return nil
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInterval) ||
		errors.Is(err, ErrInvalidRideSequence) ||
		errors.Is(err, ErrMissingConfig) ||
		errors.Is(err, ErrDuplicateConfig)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrReportNotFound)
}
