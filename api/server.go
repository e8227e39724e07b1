/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based (request cancellation reaches Session.Run)
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for frontends
  5. Auth:       Company-scoped bearer tokens (when AuthSecret is set)

ROUTE GROUPS:
  /api/health                     Liveness (never authenticated)
  /api/companies/{companyID}/*    Config, records and report runs
  /api/reports/{batchID}/*        Stored reports and payslips

SECURITY NOTE:
  With an empty AuthSecret all endpoints are public. Otherwise every
  route except /api/health needs a token from auth.GenerateToken whose
  company matches the route (or auth.AllCompanies).

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Options configures the router.
type Options struct {
	// Empty allows every origin.
	AllowedOrigins []string

	// HS256 secret for bearer tokens. Empty disables authentication.
	AuthSecret string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts Options) *chi.Mux {
	allowedOrigins := opts.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			r.Use(requireToken(opts.AuthSecret))

			r.Route("/companies/{companyID}", func(r chi.Router) {
				r.Use(requireCompany)

				// Configuration
				r.Get("/rules", h.ListRules)
				r.Post("/rules", h.CreateRule)
				r.Post("/rules/presets", h.LoadRulePresets)
				r.Get("/wages", h.ListWages)
				r.Post("/wages", h.CreateWage)

				// Records
				r.Post("/rides", h.SaveRides)
				r.Post("/shifts", h.SaveShifts)

				// Report runs
				r.Post("/reports", h.CreateReport)
			})

			r.Get("/reports/{batchID}", h.GetReport)
			r.Get("/reports/{batchID}/drivers/{driverID}/payslip", h.GetPayslip)
		})
	})

	return r
}
