/*
handlers.go - HTTP API handlers for the ride engine

PURPOSE:
  Exposes configuration intake, record intake and report runs via REST.
  Handles HTTP request/response and JSON serialization, and delegates to
  the factory (config JSON), the store and the session.

ENDPOINTS:
  Health:
    GET    /api/health

  Configuration (append-only, per company):
    GET    /api/companies/{companyID}/rules          List rule definitions
    POST   /api/companies/{companyID}/rules          Append a rule definition
    POST   /api/companies/{companyID}/rules/presets  Append preset rule sets
    GET    /api/companies/{companyID}/wages          List wage configs
    POST   /api/companies/{companyID}/wages          Append a wage config

  Records:
    POST   /api/companies/{companyID}/rides          Save rides (upsert by ID)
    POST   /api/companies/{companyID}/shifts         Save shifts (upsert by ID)

  Reports:
    POST   /api/companies/{companyID}/reports        Run a session and store the report
    GET    /api/reports/{batchID}                    Fetch a stored report
    GET    /api/reports/{batchID}/drivers/{driverID}/payslip  Payslip PDF

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Load snapshot and batch, run the session
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid intervals, broken ordering, missing config, bad JSON
  - 401: Missing or invalid bearer token (auth enabled)
  - 403: Token scoped to another company
  - 404: Report not found
  - 409: Duplicate config ID
  - 503: Session cancelled (client went away or server shutting down)
  - 500: Internal errors

SECURITY NOTE:
  See auth.go. Without an auth secret all endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/warp/ride-engine/compliance"
	"github.com/warp/ride-engine/factory"
	"github.com/warp/ride-engine/generic"
	"github.com/warp/ride-engine/logger"
	"github.com/warp/ride-engine/payslip"
	"github.com/warp/ride-engine/session"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is everything the API reads and writes.
type Store interface {
	generic.RecordStore
	session.ConfigStore
	session.ReportStore
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   Store
	Factory *factory.Factory
	Session *session.Session

	log logger.ILogger
}

// NewHandler creates a new handler with the given store and session.
func NewHandler(store Store, sess *session.Session, log logger.ILogger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{
		Store:   store,
		Factory: factory.New(),
		Session: sess,
		log:     log,
	}
}

func companyParam(r *http.Request) generic.CompanyID {
	return generic.CompanyID(chi.URLParam(r, "companyID"))
}

// Health reports that the server is up.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// =============================================================================
// RULE HANDLERS
// =============================================================================

// ListRules returns every rule definition of a company.
// GET /api/companies/{companyID}/rules
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	defs, err := h.Store.LoadRules(r.Context(), companyParam(r))
	if err != nil {
		h.writeDomainError(w, r, "Failed to list rules", err)
		return
	}

	out := make([]factory.RuleJSON, len(defs))
	for i, def := range defs {
		out[i] = h.Factory.RuleToJSON(def)
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateRule appends a rule definition.
// POST /api/companies/{companyID}/rules
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req factory.RuleJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	def, err := h.Factory.RuleFromJSON(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid rule definition", err)
		return
	}

	if err := h.Store.SaveRule(r.Context(), companyParam(r), def); err != nil {
		h.writeDomainError(w, r, "Failed to save rule", err)
		return
	}

	writeJSON(w, http.StatusCreated, h.Factory.RuleToJSON(def))
}

// PresetRequest selects preset rule sets to append.
type PresetRequest struct {
	Tag        string   `json:"tag"`
	ActiveFrom string   `json:"active_from"`
	Sets       []string `json:"sets"`
}

// LoadRulePresets appends the statutory working-time and/or driving-time
// presets. Saving stops at the first duplicate ID; definitions saved
// before it are kept.
// POST /api/companies/{companyID}/rules/presets
func (h *Handler) LoadRulePresets(w http.ResponseWriter, r *http.Request) {
	var req PresetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	from, err := time.Parse(dateLayout, req.ActiveFrom)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid active_from format (use YYYY-MM-DD)", err)
		return
	}
	if req.Tag == "" {
		writeError(w, http.StatusBadRequest, "tag is required", nil)
		return
	}
	if len(req.Sets) == 0 {
		req.Sets = []string{"statutory", "driving"}
	}

	var defs []compliance.RuleDefinition
	for _, set := range req.Sets {
		switch set {
		case "statutory":
			defs = append(defs, compliance.StatutoryWorkingTime(req.Tag, from)...)
		case "driving":
			defs = append(defs, compliance.DrivingTime(req.Tag, from)...)
		default:
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown preset %q", set), nil)
			return
		}
	}

	out := make([]factory.RuleJSON, 0, len(defs))
	for _, def := range defs {
		if err := h.Store.SaveRule(r.Context(), companyParam(r), def); err != nil {
			h.writeDomainError(w, r, "Failed to save preset rule", err)
			return
		}
		out = append(out, h.Factory.RuleToJSON(def))
	}
	writeJSON(w, http.StatusCreated, out)
}

// =============================================================================
// WAGE HANDLERS
// =============================================================================

// ListWages returns every wage config of a company.
// GET /api/companies/{companyID}/wages
func (h *Handler) ListWages(w http.ResponseWriter, r *http.Request) {
	cfgs, err := h.Store.LoadWages(r.Context(), companyParam(r))
	if err != nil {
		h.writeDomainError(w, r, "Failed to list wage configs", err)
		return
	}

	out := make([]factory.WageJSON, len(cfgs))
	for i, cfg := range cfgs {
		out[i] = h.Factory.WageToJSON(cfg)
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateWage appends a wage config.
// POST /api/companies/{companyID}/wages
func (h *Handler) CreateWage(w http.ResponseWriter, r *http.Request) {
	var req factory.WageJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cfg, err := h.Factory.WageFromJSON(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid wage config", err)
		return
	}

	if err := h.Store.SaveWage(r.Context(), companyParam(r), cfg); err != nil {
		h.writeDomainError(w, r, "Failed to save wage config", err)
		return
	}

	writeJSON(w, http.StatusCreated, h.Factory.WageToJSON(cfg))
}

// =============================================================================
// RECORD HANDLERS
// =============================================================================

// SaveRides stores rides. Each ride must have an ID, a driver and a
// positive interval; ordering is checked when a report is run.
// POST /api/companies/{companyID}/rides
func (h *Handler) SaveRides(w http.ResponseWriter, r *http.Request) {
	var req []RideDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rides := make([]generic.RideRecord, 0, len(req))
	for _, d := range req {
		ride := d.toRecord()
		if ride.ID == "" || ride.DriverID == "" {
			writeError(w, http.StatusBadRequest, "Ride id and driver_id are required", nil)
			return
		}
		if _, err := ride.Minutes(); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid ride interval", err)
			return
		}
		rides = append(rides, ride)
	}

	if err := h.Store.SaveRides(r.Context(), companyParam(r), rides); err != nil {
		h.writeDomainError(w, r, "Failed to save rides", err)
		return
	}
	writeJSON(w, http.StatusCreated, SaveRecordsResponse{Saved: len(rides)})
}

// SaveShifts stores shifts.
// POST /api/companies/{companyID}/shifts
func (h *Handler) SaveShifts(w http.ResponseWriter, r *http.Request) {
	var req []ShiftDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	shifts := make([]generic.ShiftRecord, 0, len(req))
	for _, d := range req {
		shift := d.toRecord()
		if shift.ID == "" || shift.DriverID == "" {
			writeError(w, http.StatusBadRequest, "Shift id and driver_id are required", nil)
			return
		}
		if _, _, _, err := shift.WorkMinutes(); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid shift", err)
			return
		}
		shifts = append(shifts, shift)
	}

	if err := h.Store.SaveShifts(r.Context(), companyParam(r), shifts); err != nil {
		h.writeDomainError(w, r, "Failed to save shifts", err)
		return
	}
	writeJSON(w, http.StatusCreated, SaveRecordsResponse{Saved: len(shifts)})
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// CreateReport runs a session for the company and period, stores the
// report and returns it. Per-driver failures are part of the report, not
// an HTTP error.
// POST /api/companies/{companyID}/reports
func (h *Handler) CreateReport(w http.ResponseWriter, r *http.Request) {
	var req CreateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	from, err := time.Parse(dateLayout, req.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from format (use YYYY-MM-DD)", err)
		return
	}
	to, err := time.Parse(dateLayout, req.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to format (use YYYY-MM-DD)", err)
		return
	}
	drivers := make([]generic.DriverID, 0, len(req.Drivers))
	for _, d := range req.Drivers {
		drivers = append(drivers, generic.DriverID(d))
	}

	report, err := RunReport(r.Context(), h.Store, h.Session, companyParam(r), generic.Period{Start: from, End: to}, drivers)
	if err != nil {
		h.writeDomainError(w, r, "Failed to run report", err)
		return
	}

	writeJSON(w, http.StatusCreated, toReportDTO(report))
}

// GetReport returns a stored report.
// GET /api/reports/{batchID}
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.loadReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toReportDTO(report))
}

// GetPayslip renders one driver's payroll line of a stored report as PDF.
// GET /api/reports/{batchID}/drivers/{driverID}/payslip
func (h *Handler) GetPayslip(w http.ResponseWriter, r *http.Request) {
	report, ok := h.loadReport(w, r)
	if !ok {
		return
	}
	driverID := generic.DriverID(chi.URLParam(r, "driverID"))
	dr, ok := report.PerDriver[driverID]
	if !ok {
		writeError(w, http.StatusNotFound, "Driver not in report", nil)
		return
	}

	var buf bytes.Buffer
	if err := payslip.Write(&buf, report.CompanyID, dr.Payroll); err != nil {
		h.writeDomainError(w, r, "Failed to render payslip", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="payslip-%s-%s.pdf"`, driverID, report.Period.Start.Format("2006-01")))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// loadReport fetches the {batchID} report. Reports of companies the token
// does not cover are reported as not found.
func (h *Handler) loadReport(w http.ResponseWriter, r *http.Request) (*session.Report, bool) {
	batchID := chi.URLParam(r, "batchID")
	report, err := h.Store.LoadReport(r.Context(), batchID)
	if err == nil && !allowed(r.Context(), report.CompanyID) {
		err = fmt.Errorf("batch %s: %w", batchID, generic.ErrReportNotFound)
	}
	if err != nil {
		h.writeDomainError(w, r, "Failed to get report", err)
		return nil, false
	}
	return report, true
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// statusFor maps engine and store errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case generic.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, generic.ErrDuplicateConfig):
		return http.StatusConflict
	case errors.Is(err, generic.ErrComputationCancelled):
		return http.StatusServiceUnavailable
	case generic.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error(message,
			logger.Error(err),
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.String("path", r.URL.Path),
		)
	}

	resp := ErrorResponse{Error: message, Details: err.Error()}
	if kind := generic.KindOf(err); kind != generic.KindInternal {
		resp.Code = string(kind)
	}
	writeJSON(w, status, resp)
}
