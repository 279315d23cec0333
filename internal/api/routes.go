package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	// CORS - the engine is called by the app backend and the settings UI
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"https://glimpseapp.io", "http://localhost:5173", "http://localhost:8080"},
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/users/{user_id}", func(r chi.Router) {
			r.Post("/behavior/analyze", h.HandleAnalyzeBehavior)
			r.Get("/timing", h.HandleGetOptimalTiming)
			r.Get("/delivery-check", h.HandleDeliveryCheck)
			r.Post("/personalize", h.HandlePersonalizeContent)
			r.Get("/insights", h.HandleGetInsights)

			r.Get("/preferences", h.HandleGetPreferences)
			r.Put("/preferences", h.HandleUpdatePreferences)
		})
	})

	return r
}
