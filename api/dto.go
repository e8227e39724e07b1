/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's value types from the external API contract: snake_case
  names, dates as YYYY-MM-DD, money as fixed two-decimal strings.

NAMING CONVENTION:
  - *DTO: Response types returned to clients (records are also accepted as DTOs)
  - *Request: Request body types from clients
  - *Response: Wrappers

TYPES:
  Records:
    RideDTO, ShiftDTO

  Config:
    factory.RuleJSON and factory.WageJSON are used as-is

  Reports:
    CreateReportRequest, ReportDTO, DriverReportDTO, ViolationDTO,
    PayrollLineDTO, ShiftPayDTO, MinimumWageDTO, DriverErrorDTO

VALIDATION:
  Validation is done in handlers and in the engine, not in DTOs.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/rules.go: RuleJSON type
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/ride-engine/compliance"
	"github.com/warp/ride-engine/generic"
	"github.com/warp/ride-engine/payroll"
	"github.com/warp/ride-engine/session"
)

const dateLayout = "2006-01-02"

// =============================================================================
// RECORDS
// =============================================================================

// RideDTO represents a ride in API requests.
type RideDTO struct {
	ID             string          `json:"id"`
	DriverID       string          `json:"driver_id"`
	VehicleID      string          `json:"vehicle_id,omitempty"`
	PickupAt       time.Time       `json:"pickup_at"`
	DropoffAt      time.Time       `json:"dropoff_at"`
	PickupLocation string          `json:"pickup_location,omitempty"`
	Destination    string          `json:"destination,omitempty"`
	DistanceKm     decimal.Decimal `json:"distance_km"`
	Status         string          `json:"status"`
	Reserved       bool            `json:"reserved,omitempty"`
}

func (d RideDTO) toRecord() generic.RideRecord {
	status := generic.RideStatus(d.Status)
	if status == "" {
		status = generic.RideCompleted
	}
	return generic.RideRecord{
		ID:             generic.RideID(d.ID),
		DriverID:       generic.DriverID(d.DriverID),
		VehicleID:      generic.VehicleID(d.VehicleID),
		PickupAt:       d.PickupAt,
		DropoffAt:      d.DropoffAt,
		PickupLocation: d.PickupLocation,
		Destination:    d.Destination,
		DistanceKm:     d.DistanceKm,
		Status:         status,
		Reserved:       d.Reserved,
	}
}

// ShiftDTO represents a shift in API requests.
type ShiftDTO struct {
	ID           string    `json:"id"`
	DriverID     string    `json:"driver_id"`
	StartAt      time.Time `json:"start_at"`
	EndAt        time.Time `json:"end_at"`
	BreakMinutes int       `json:"break_minutes"`
	RideIDs      []string  `json:"ride_ids,omitempty"`
}

func (d ShiftDTO) toRecord() generic.ShiftRecord {
	s := generic.ShiftRecord{
		ID:           generic.ShiftID(d.ID),
		DriverID:     generic.DriverID(d.DriverID),
		StartAt:      d.StartAt,
		EndAt:        d.EndAt,
		BreakMinutes: d.BreakMinutes,
	}
	for _, id := range d.RideIDs {
		s.RideIDs = append(s.RideIDs, generic.RideID(id))
	}
	return s
}

// SaveRecordsResponse acknowledges record intake.
type SaveRecordsResponse struct {
	Saved int `json:"saved"`
}

// =============================================================================
// REPORTS
// =============================================================================

// CreateReportRequest runs a session for a company and period.
type CreateReportRequest struct {
	From    string   `json:"from"`
	To      string   `json:"to"`
	Drivers []string `json:"drivers,omitempty"`
}

// ReportDTO represents a session report in API responses.
type ReportDTO struct {
	BatchID     string                     `json:"batch_id"`
	CompanyID   string                     `json:"company_id"`
	PeriodStart string                     `json:"period_start"`
	PeriodEnd   string                     `json:"period_end"`
	GeneratedAt string                     `json:"generated_at"`
	Summary     SummaryDTO                 `json:"summary"`
	Drivers     map[string]DriverReportDTO `json:"drivers"`
	Errors      []DriverErrorDTO           `json:"errors"`
}

// SummaryDTO is the report overview: violation counts and the pay total.
type SummaryDTO struct {
	Drivers               int            `json:"drivers"`
	NotEvaluable          int            `json:"not_evaluable"`
	Violations            int            `json:"violations"`
	DriversWithViolations int            `json:"drivers_with_violations"`
	BySeverity            map[string]int `json:"by_severity"`
	ByKind                map[string]int `json:"by_kind"`
	MinimumWageShortfalls int            `json:"minimum_wage_shortfalls"`
	TotalPay              string         `json:"total_pay"`
}

type DriverReportDTO struct {
	Violations []ViolationDTO `json:"violations"`
	Payroll    PayrollLineDTO `json:"payroll"`
}

type DriverErrorDTO struct {
	DriverID string `json:"driver_id"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
}

// ViolationDTO represents one rule breach.
type ViolationDTO struct {
	RuleID     string `json:"rule_id"`
	Kind       string `json:"kind"`
	RideID     string `json:"ride_id,omitempty"`
	ShiftID    string `json:"shift_id,omitempty"`
	Detected   string `json:"detected"`
	Threshold  string `json:"threshold"`
	Unit       string `json:"unit"`
	Severity   string `json:"severity"`
	DetectedAt string `json:"detected_at"`
}

// PayrollLineDTO is one driver's aggregate. Money is a fixed two-decimal string.
type PayrollLineDTO struct {
	TotalWorkMinutes   int             `json:"total_work_minutes"`
	TotalBreakMinutes  int             `json:"total_break_minutes"`
	ActualWorkMinutes  int             `json:"actual_work_minutes"`
	EarlyShiftMinutes  int             `json:"early_shift_minutes"`
	NightShiftMinutes  int             `json:"night_shift_minutes"`
	NeutralMinutes     int             `json:"neutral_minutes"`
	OvertimeMinutes    int             `json:"overtime_minutes"`
	WeekendMinutes     int             `json:"weekend_minutes"`
	HolidayMinutes     int             `json:"holiday_minutes"`
	GrossWage          string          `json:"gross_wage"`
	NightSupplement    string          `json:"night_supplement"`
	OvertimeSupplement string          `json:"overtime_supplement"`
	WeekendSupplement  string          `json:"weekend_supplement"`
	HolidaySupplement  string          `json:"holiday_supplement"`
	PerformanceBonus   string          `json:"performance_bonus"`
	ComplianceRate     string          `json:"compliance_rate"`
	TotalPay           string          `json:"total_pay"`
	Shifts             []ShiftPayDTO   `json:"shifts"`
	MinimumWage        *MinimumWageDTO `json:"minimum_wage,omitempty"`
}

type ShiftPayDTO struct {
	ShiftID            string `json:"shift_id"`
	Date               string `json:"date"`
	Type               string `json:"type"`
	WageConfigID       string `json:"wage_config_id"`
	ActualMinutes      int    `json:"actual_minutes"`
	OvertimeMinutes    int    `json:"overtime_minutes"`
	Weekend            bool   `json:"weekend"`
	Holiday            bool   `json:"holiday"`
	GrossWage          string `json:"gross_wage"`
	NightSupplement    string `json:"night_supplement"`
	OvertimeSupplement string `json:"overtime_supplement"`
	WeekendSupplement  string `json:"weekend_supplement"`
	HolidaySupplement  string `json:"holiday_supplement"`
}

type MinimumWageDTO struct {
	HourlyMinimum string `json:"hourly_minimum"`
	Required      string `json:"required"`
	Paid          string `json:"paid"`
	Shortfall     string `json:"shortfall"`
	Compliant     bool   `json:"compliant"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status string `json:"status"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func toReportDTO(r *session.Report) ReportDTO {
	dto := ReportDTO{
		BatchID:     r.BatchID,
		CompanyID:   string(r.CompanyID),
		PeriodStart: r.Period.Start.Format(dateLayout),
		PeriodEnd:   r.Period.End.Format(dateLayout),
		GeneratedAt: r.GeneratedAt.UTC().Format(time.RFC3339),
		Summary:     toSummaryDTO(r.Summary()),
		Drivers:     make(map[string]DriverReportDTO, len(r.PerDriver)),
		Errors:      make([]DriverErrorDTO, 0, len(r.Errors)),
	}
	for id, dr := range r.PerDriver {
		vs := make([]ViolationDTO, 0, len(dr.Violations))
		for _, v := range dr.Violations {
			vs = append(vs, toViolationDTO(v))
		}
		dto.Drivers[string(id)] = DriverReportDTO{Violations: vs, Payroll: toPayrollLineDTO(dr.Payroll)}
	}
	for _, e := range r.Errors {
		dto.Errors = append(dto.Errors, DriverErrorDTO{DriverID: string(e.DriverID), Kind: string(e.Kind), Message: e.Message})
	}
	return dto
}

func toSummaryDTO(s session.Summary) SummaryDTO {
	dto := SummaryDTO{
		Drivers:               s.Drivers,
		NotEvaluable:          s.NotEvaluable,
		Violations:            s.Violations,
		DriversWithViolations: s.DriversWithViolations,
		BySeverity:            make(map[string]int, len(s.BySeverity)),
		ByKind:                make(map[string]int, len(s.ByKind)),
		MinimumWageShortfalls: s.MinimumWageShortfalls,
		TotalPay:              money(s.TotalPay),
	}
	for sev, n := range s.BySeverity {
		dto.BySeverity[string(sev)] = n
	}
	for kind, n := range s.ByKind {
		dto.ByKind[string(kind)] = n
	}
	return dto
}

func toViolationDTO(v compliance.Violation) ViolationDTO {
	return ViolationDTO{
		RuleID:     string(v.RuleID),
		Kind:       string(v.Kind),
		RideID:     string(v.RideID),
		ShiftID:    string(v.ShiftID),
		Detected:   v.Detected.Value.String(),
		Threshold:  v.Threshold.Value.String(),
		Unit:       string(v.Threshold.Unit),
		Severity:   string(v.Severity),
		DetectedAt: v.DetectedAt.UTC().Format(time.RFC3339),
	}
}

func toPayrollLineDTO(p payroll.PayrollLine) PayrollLineDTO {
	dto := PayrollLineDTO{
		TotalWorkMinutes:   p.TotalWorkMinutes,
		TotalBreakMinutes:  p.TotalBreakMinutes,
		ActualWorkMinutes:  p.ActualWorkMinutes,
		EarlyShiftMinutes:  p.EarlyShiftMinutes,
		NightShiftMinutes:  p.NightShiftMinutes,
		NeutralMinutes:     p.NeutralMinutes,
		OvertimeMinutes:    p.OvertimeMinutes,
		WeekendMinutes:     p.WeekendMinutes,
		HolidayMinutes:     p.HolidayMinutes,
		GrossWage:          money(p.GrossWage),
		NightSupplement:    money(p.NightSupplement),
		OvertimeSupplement: money(p.OvertimeSupplement),
		WeekendSupplement:  money(p.WeekendSupplement),
		HolidaySupplement:  money(p.HolidaySupplement),
		PerformanceBonus:   money(p.PerformanceBonus),
		ComplianceRate:     money(p.ComplianceRate),
		TotalPay:           money(p.TotalPay),
		Shifts:             make([]ShiftPayDTO, 0, len(p.Shifts)),
	}
	for _, s := range p.Shifts {
		dto.Shifts = append(dto.Shifts, ShiftPayDTO{
			ShiftID:            string(s.ShiftID),
			Date:               s.Date.Format(dateLayout),
			Type:               string(s.Type),
			WageConfigID:       string(s.WageConfigID),
			ActualMinutes:      s.ActualMinutes,
			OvertimeMinutes:    s.OvertimeMinutes,
			Weekend:            s.Weekend,
			Holiday:            s.Holiday,
			GrossWage:          money(s.GrossWage),
			NightSupplement:    money(s.NightSupplement),
			OvertimeSupplement: money(s.OvertimeSupplement),
			WeekendSupplement:  money(s.WeekendSupplement),
			HolidaySupplement:  money(s.HolidaySupplement),
		})
	}
	if m := p.MinimumWage; m != nil {
		dto.MinimumWage = &MinimumWageDTO{
			HourlyMinimum: money(m.HourlyMinimum),
			Required:      money(m.Required),
			Paid:          money(m.Paid),
			Shortfall:     money(m.Shortfall),
			Compliant:     m.Compliant(),
		}
	}
	return dto
}
