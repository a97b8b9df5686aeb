package server

import (
	"net/http"

	"github.com/corpusworks/corpusd/internal/api"
	"github.com/corpusworks/corpusd/internal/api/handlers"
	"github.com/corpusworks/corpusd/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	SearchHandler     *handlers.SearchHandler
	DocumentHandler   *handlers.DocumentHandler
	CollectionHandler *handlers.CollectionHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// uploads dominate body size; everything else is small JSON
	const maxBodyBytes int64 = 50 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/ingest", cfg.DocumentHandler.Ingest)

	r.Post("/search", cfg.SearchHandler.Search)
	r.Post("/search/vector", cfg.SearchHandler.SearchVector)
	r.Post("/search/keyword", cfg.SearchHandler.SearchKeyword)

	r.Route("/documents", func(r chi.Router) {
		r.Get("/", cfg.DocumentHandler.List)
		r.Get("/{id}", cfg.DocumentHandler.Get)
		r.Delete("/{id}", cfg.DocumentHandler.Delete)
		r.Post("/{id}/search", cfg.SearchHandler.SearchDocument)
	})

	r.Route("/collections", func(r chi.Router) {
		r.Post("/", cfg.CollectionHandler.Create)
		r.Get("/", cfg.CollectionHandler.List)
		r.Get("/{name}", cfg.CollectionHandler.Get)
		r.Get("/{name}/stats", cfg.CollectionHandler.Stats)
		r.Delete("/{name}", cfg.CollectionHandler.Delete)
	})

	return r
}
