/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the technician app

ROUTE GROUPS:
  /api/equipment/*   Generator registry, wear parts, meter checks
  /api/inventory/*   Parts catalog
  /api/jobs/*        Visit lifecycle, drafts, report filing
  /api/reports/*     Filed reports and attachments
  /health            Liveness probe

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
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
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Equipment routes
		r.Route("/equipment", func(r chi.Router) {
			r.Get("/", h.ListEquipment)
			r.Post("/", h.CreateEquipment)
			r.Get("/{id}", h.GetEquipment)
			r.Get("/{id}/reports", h.ListEquipmentReports)
			r.Get("/{id}/wear-parts", h.ListWearParts)
			r.Post("/{id}/wear-parts", h.AddWearPart)
			r.Post("/{id}/meter-check", h.CheckMeterReading)
		})

		// Inventory routes
		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", h.ListItems)
			r.Post("/", h.CreateItem)
		})

		// Job routes
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", h.ListJobs)
			r.Post("/", h.CreateJob)
			r.Get("/{id}", h.GetJob)
			r.Post("/{id}/start", h.StartJob)
			r.Post("/{id}/finish", h.FinishJob)
			r.Post("/{id}/cancel", h.CancelJob)

			// Draft parts ledger
			r.Route("/{id}/draft", func(r chi.Router) {
				r.Get("/", h.GetDraft)
				r.Post("/parts", h.AddDraftPart)
				r.Post("/parts/{idx}/quantity", h.ChangeDraftQuantity)
				r.Post("/parts/{idx}/remove", h.RequestDraftRemoval)
				r.Post("/parts/removal/confirm", h.ConfirmDraftRemoval)
				r.Post("/parts/removal/cancel", h.CancelDraftRemoval)
			})

			// Report filing
			r.Post("/{id}/report", h.SubmitReport)
		})

		// Report routes
		r.Route("/reports", func(r chi.Router) {
			r.Get("/{id}", h.GetReport)
			r.Get("/{id}/attachments", h.ListReportAttachments)
			r.Post("/{id}/attachments", h.UploadAttachment)
		})
	})

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
