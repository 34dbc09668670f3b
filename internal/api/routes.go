package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures the trigger surface.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	// The endpoints are called by cron jobs and internal dashboards, so
	// the CORS policy stays permissive on methods but narrow on headers.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Post("/process", h.ProcessCart)
			r.Post("/scan", h.ScanCarts)
		})

		r.Route("/order", func(r chi.Router) {
			r.Post("/process", h.ProcessOrder)
			r.Post("/scan", h.ScanOrders)
		})

		r.Route("/dedup", func(r chi.Router) {
			r.Get("/stats", h.DedupStats)
			r.Delete("/", h.DedupReset)
		})
	})

	return r
}
