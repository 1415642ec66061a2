package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parlatext/parlatext/internal/api"
	"github.com/parlatext/parlatext/internal/api/handlers"
	"github.com/parlatext/parlatext/internal/api/middleware"
)

type RouterConfig struct {
	APIToken        string
	DocumentHandler *handlers.DocumentHandler
	SearchHandler   *handlers.SearchHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(cfg.APIToken))

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", cfg.DocumentHandler.Ingest)
			r.Get("/{id}", cfg.DocumentHandler.Get)
		})

		r.Post("/search", cfg.SearchHandler.Search)
	})

	return r
}
