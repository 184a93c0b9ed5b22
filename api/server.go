/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the dashboard

ROUTE GROUPS:
  /api/tenants/{tenantID}/ledger/*   Ledger facade (tenant admin only)
  /api/hooks/*                       Event hooks (X-Hook-Secret)
  /api/scenarios/*                   Demo scenarios (dev mode only)
  /healthz                           Liveness

SECURITY NOTE:
  Identity is established by the gateway in front of this server. Ledger
  routes trust X-User-ID / X-User-Role / X-Tenant-ID and nothing else.

SEE ALSO:
  - handlers.go: Handler implementations
  - auth.go: Tenant gate
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type",
			HeaderUserID, HeaderUserRole, HeaderTenantID,
		},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/tenants/{tenantID}/ledger", func(r chi.Router) {
			r.Use(requireTenantAdmin)

			r.Get("/summary", h.GetSummary)
			r.Get("/timeseries", h.GetTimeSeries)
			r.Get("/breakdown", h.GetBreakdown)
			r.Get("/balance", h.GetBalance)

			// Entry routes
			r.Route("/entries", func(r chi.Router) {
				r.Get("/", h.ListEntries)
				r.Post("/", h.CreateEntry)
				r.Get("/{id}", h.GetEntry)
				r.Put("/{id}", h.UpdateEntry)
				r.Delete("/{id}", h.DeleteEntry)
			})

			// Account routes
			r.Route("/accounts", func(r chi.Router) {
				r.Get("/", h.ListAccounts)
				r.Post("/", h.CreateAccount)
				r.Post("/{id}/archive", h.ArchiveAccount)
				r.Post("/{id}/unarchive", h.UnarchiveAccount)
			})

			// Withdraw routes
			r.Route("/withdraw", func(r chi.Router) {
				r.Get("/balance", h.GetWithdrawBalance)
				r.Get("/breakdown", h.GetWithdrawBreakdown)
				r.Post("/validate", h.ValidateWithdraw)
			})

			// Reconciliation routes
			r.Route("/sync", func(r chi.Router) {
				r.Post("/", h.RunSync)
				r.Get("/validate", h.ValidateSync)
			})
		})

		// Hook routes
		r.Route("/hooks", func(r chi.Router) {
			r.Use(requireHookSecret(h.HookSecret))
			r.Post("/payments/{id}/success", h.PaymentSucceeded)
			r.Post("/payouts/{id}/approved", h.PayoutApproved)
			r.Post("/payouts/{id}/completed", h.PayoutCompleted)
		})

		// Scenario routes
		if h.DevMode {
			r.Route("/scenarios", func(r chi.Router) {
				r.Get("/", h.ListScenarios)
				r.Get("/current", h.GetCurrentScenario)
				r.Post("/load", h.LoadScenario)
				r.Post("/reset", h.ResetDatabase)
			})
		}
	})

	return r
}
