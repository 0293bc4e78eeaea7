// Package main provides the Insight Engine API server.
package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/reviewloop/insight-engine/cmd/insight-api/handlers"
	"github.com/reviewloop/insight-engine/cmd/insight-api/middleware"
	"github.com/reviewloop/insight-engine/internal/config"
	"github.com/reviewloop/insight-engine/internal/observability"
	"github.com/reviewloop/insight-engine/internal/orchestrator"
	"github.com/reviewloop/insight-engine/internal/storage"
)

// NewRouter assembles the API routes over the prebuilt components.
func NewRouter(logger *observability.Logger, cfg *config.Config, repos *storage.Repositories, orch *orchestrator.Orchestrator) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(chimiddleware.Timeout(cfg.Server.WriteTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"insight-engine"}`))
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ready"}`))
	})

	productHandler := handlers.NewProductHandler(logger, repos)
	analysisHandler := handlers.NewAnalysisHandler(logger, orch, repos)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.TenantAuth(middleware.TenantAuthConfig{
			DefaultTenant: cfg.Tenancy.DefaultTenant,
		}))

		r.Route("/products", func(r chi.Router) {
			r.Post("/", productHandler.Create)
			r.Get("/", productHandler.List)

			r.Route("/{productId}", func(r chi.Router) {
				r.Get("/", productHandler.Get)

				r.Route("/analyses", func(r chi.Router) {
					r.Post("/run", analysisHandler.RunAll)
					r.Get("/status", analysisHandler.Status)
					r.Route("/{analysisType}", func(r chi.Router) {
						r.Get("/", analysisHandler.Get)
						r.Post("/run", analysisHandler.RunOne)
					})
				})
			})
		})
	})

	return r
}
