package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"raggy/internal/handlers"
	"raggy/internal/metrics"
	"raggy/internal/service"
	"raggy/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Service service.RAGService
	// Mirror is checked by /health when set.
	Mirror           vectorstore.VectorStore
	MirrorCollection string
	// Metrics is served at /metrics when set.
	Metrics           *metrics.Metrics
	CORSAllowedOrigin string
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS(deps.CORSAllowedOrigin))
	r.Use(NoStore)

	svc := deps.Service

	r.Method(http.MethodGet, "/health", handlers.NewHealthHandler(deps.Mirror, deps.MirrorCollection))
	r.Method(http.MethodGet, "/documents", handlers.NewDocumentsHandler(svc))

	r.Route("/ingest", func(r chi.Router) {
		r.Method(http.MethodPost, "/", handlers.NewIngestHandler(svc))
		r.Method(http.MethodGet, "/progress", handlers.NewProgressHandler(svc))
		r.Method(http.MethodGet, "/stats", handlers.NewStatsHandler(svc))
		r.Method(http.MethodGet, "/history", handlers.NewHistoryHandler(svc))
		r.Method(http.MethodGet, "/history/{id}", handlers.NewRunHandler(svc))
		r.Method(http.MethodPost, "/reset", handlers.NewResetHandler(svc))
		r.Method(http.MethodPost, "/reingest", handlers.NewReingestHandler(svc))
	})

	r.Method(http.MethodPost, "/index/build", handlers.NewIndexBuildHandler(svc))
	r.Method(http.MethodGet, "/search", handlers.NewSearchHandler(svc))
	r.Method(http.MethodGet, "/ollama/test", handlers.NewProbeHandler(svc))

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	return r
}
