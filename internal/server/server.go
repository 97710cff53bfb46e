// Package server exposes the catalog feed over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/Sternrassler/catalog-feed/pkg/cache"
	"github.com/Sternrassler/catalog-feed/pkg/metrics"
	"github.com/Sternrassler/catalog-feed/pkg/transform"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Feed produces the transformed catalog.
type Feed interface {
	Run(ctx context.Context, refresh bool) (*transform.Output, *cache.Entry, error)
	Invalidate(ctx context.Context) error
	LastReport() *transform.Report
}

// MediaResetter discards the process-wide media index.
type MediaResetter interface {
	Reset()
}

// Exporter writes records to object storage.
type Exporter interface {
	Export(ctx context.Context, runID string, records []transform.Record) (string, error)
}

// Store is the cache backend as seen by the readiness and purge routes.
type Store interface {
	Ping(ctx context.Context) error
	DeleteStore(ctx context.Context, store string) (int, error)
}

// Config holds server configuration.
type Config struct {
	// APIKey is the shared secret expected in X-API-Key.
	APIKey string

	// StoreName scopes cache purges.
	StoreName string

	// RequestTimeout bounds each request, including pipeline runs.
	RequestTimeout time.Duration
}

// Deps are the collaborators behind the routes. Exporter and Store are
// optional.
type Deps struct {
	Feed     Feed
	Media    MediaResetter
	Exporter Exporter
	Store    Store
	Logger   zerolog.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	config Config
	deps   Deps
	logger zerolog.Logger
}

// New creates a server.
func New(cfg Config, deps Deps) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Minute
	}
	return &Server{
		config: cfg,
		deps:   deps,
		logger: deps.Logger,
	}
}

// Router builds the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APIKeyAuth(s.config.APIKey))
		r.Use(middleware.Timeout(s.config.RequestTimeout))

		r.Get("/products", s.handleProducts)
		r.Get("/products/{handle}", s.handleProduct)
		r.Get("/report", s.handleReport)
		r.Get("/stats", s.handleStats)
		r.Post("/media/reset", s.handleMediaReset)
		r.Delete("/cache", s.handleCacheDelete)
		r.Post("/export", s.handleExport)
	})

	return r
}

// requestLogger logs one line per request with zerolog.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info().
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Msg("HTTP request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
