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
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/cashflow*          Projections
  /api/predictor/*        Predictor training and inference
  /api/custom-cash-flows* Custom flow CRUD
  /api/invoices/*         Invoice metadata
  /api/liquidity          Liquidity snapshot
  /api/scenarios/*        Demo scenarios

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
		// Projection routes
		r.Post("/cashflow", h.Cashflow)
		r.Post("/cashflow/calendar", h.CashflowCalendar)

		// Predictor routes
		r.Route("/predictor", func(r chi.Router) {
			r.Post("/train", h.TrainPredictor)
			r.Get("/status", h.PredictorStatus)
			r.Post("/predict", h.Predict)
		})

		// Custom flow routes
		r.Route("/custom-cash-flows", func(r chi.Router) {
			r.Get("/", h.ListCustomFlows)
			r.Post("/", h.CreateCustomFlow)
			r.Get("/{id}", h.GetCustomFlow)
			r.Put("/{id}", h.UpdateCustomFlow)
			r.Delete("/{id}", h.DeleteCustomFlow)
		})

		// Invoice metadata routes
		r.Route("/invoices/{id}/metadata", func(r chi.Router) {
			r.Get("/", h.GetInvoiceMetadata)
			r.Post("/", h.SaveInvoiceMetadata)
		})

		// Liquidity route
		r.Post("/liquidity", h.Liquidity)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetStore)
		})
	})

	// Service descriptor for anyone hitting the root.
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service": "cashflow-engine",
			"endpoints": []string{
				"POST /api/cashflow",
				"POST /api/cashflow/calendar",
				"POST /api/predictor/train",
				"GET  /api/predictor/status",
				"POST /api/predictor/predict",
				"GET  /api/custom-cash-flows",
				"POST /api/custom-cash-flows",
				"POST /api/liquidity",
				"GET  /api/scenarios",
			},
		})
	})

	return r
}
