// Curator - Automated Media Discovery and Request Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/curator

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the ops API:
//
//	GET    /metrics
//	GET    /api/v1/health[/live|/ready]
//	GET    /api/v1/jobs                 POST /api/v1/jobs
//	GET    /api/v1/jobs/{id}            PUT  /api/v1/jobs/{id}    DELETE /api/v1/jobs/{id}
//	POST   /api/v1/jobs/{id}/toggle     POST /api/v1/jobs/{id}/run
//	GET    /api/v1/jobs/{id}/history
//	GET    /api/v1/queue                GET  /api/v1/queue/stats  GET /api/v1/queue/{id}
//	POST   /api/v1/queue/drain
//	GET    /api/v1/requests
//	GET    /api/v1/catalog/genres       GET  /api/v1/catalog/languages
//	GET    /api/v1/catalog/regions      GET  /api/v1/catalog/providers
//	GET    /api/v1/seer/count
//	GET    /api/v1/sources
func NewRouter(h *Handler, mw *Middleware) http.Handler {
	if mw == nil {
		mw = NewMiddleware(nil)
	}
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(APIMetrics())
	r.Use(RequestLogger())
	r.Use(mw.CORS())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed", nil)
	})

	r.Handle("/metrics", promhttp.Handler())

	// Probes are not rate limited.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/", h.Health)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.RateLimit())

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/", h.ListJobs)
			r.Post("/", h.CreateJob)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetJob)
				r.Put("/", h.UpdateJob)
				r.Delete("/", h.DeleteJob)
				r.Post("/toggle", h.ToggleJob)
				r.Post("/run", h.RunJob)
				r.Get("/history", h.JobHistory)
			})
		})

		r.Route("/queue", func(r chi.Router) {
			r.Get("/", h.ListQueue)
			r.Get("/stats", h.QueueStats)
			r.Post("/drain", h.DrainQueue)
			r.Get("/{id}", h.GetQueueItem)
		})

		r.Get("/requests", h.ListRequests)

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/genres", h.CatalogGenres)
			r.Get("/languages", h.CatalogLanguages)
			r.Get("/regions", h.CatalogRegions)
			r.Get("/providers", h.CatalogProviders)
		})
		r.Get("/seer/count", h.SeerCounts)
		r.Get("/sources", h.ListSources)
	})

	return r
}
