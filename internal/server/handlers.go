package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Sternrassler/catalog-feed/pkg/cache"
	"github.com/Sternrassler/catalog-feed/pkg/catalog"
	"github.com/Sternrassler/catalog-feed/pkg/graphql"
	"github.com/Sternrassler/catalog-feed/pkg/transform"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type errorResponse struct {
	Error      string `json:"error"`
	ErrorClass string `json:"errorClass,omitempty"`
}

type productsResponse struct {
	RunID    string             `json:"runId"`
	Count    int                `json:"count"`
	Degraded bool               `json:"degraded"`
	Records  []transform.Record `json:"records"`
}

type statsResponse struct {
	RunID           string           `json:"runId"`
	Strategy        catalog.Strategy `json:"strategy"`
	Products        int              `json:"products"`
	EstimatedTokens int              `json:"estimatedTokens"`
	Counts          transform.Counts `json:"counts"`
}

type exportResponse struct {
	RunID   string `json:"runId"`
	Key     string `json:"key"`
	Records int    `json:"records"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Store != nil {
		if err := s.deps.Store.Ping(r.Context()); err != nil {
			s.logger.Warn().Err(err).Msg("Readiness check failed")
			http.Error(w, "Redis not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "READY")
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	refresh := r.URL.Query().Get("refresh") == "true"

	out, entry, err := s.deps.Feed.Run(r.Context(), refresh)
	if err != nil {
		s.renderRunError(w, r, err)
		return
	}

	cache.WriteHeaders(w, entry)
	if entry != nil && cache.NotModified(r, entry.ETag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	resp := productsResponse{
		Count:   len(out.Records),
		Records: out.Records,
	}
	if out.Report != nil {
		resp.RunID = out.Report.RunID
		resp.Degraded = out.Report.Degraded()
	}
	render.JSON(w, r, resp)
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")

	out, _, err := s.deps.Feed.Run(r.Context(), false)
	if err != nil {
		s.renderRunError(w, r, err)
		return
	}

	record, ok := out.Find(handle)
	if !ok {
		renderError(w, r, http.StatusNotFound, fmt.Sprintf("product %q not found", handle))
		return
	}
	render.JSON(w, r, record)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report := s.deps.Feed.LastReport()
	if report == nil {
		renderError(w, r, http.StatusNotFound, "no run report available")
		return
	}
	render.JSON(w, r, report)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	out, _, err := s.deps.Feed.Run(r.Context(), false)
	if err != nil {
		s.renderRunError(w, r, err)
		return
	}

	resp := statsResponse{
		Products:        len(out.Records),
		EstimatedTokens: transform.EstimateTokens(out.Records),
	}
	if out.Report != nil {
		resp.RunID = out.Report.RunID
		resp.Strategy = out.Report.Strategy
		resp.Counts = out.Report.Counts
	}
	render.JSON(w, r, resp)
}

func (s *Server) handleMediaReset(w http.ResponseWriter, r *http.Request) {
	s.deps.Media.Reset()
	render.JSON(w, r, map[string]string{"status": "reset"})
}

func (s *Server) handleCacheDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := s.deps.Feed.Invalidate(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Cache invalidation failed")
		renderError(w, r, http.StatusServiceUnavailable, "cache unavailable")
		return
	}

	deleted := 0
	if s.deps.Store != nil {
		n, err := s.deps.Store.DeleteStore(ctx, s.config.StoreName)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Cache purge failed")
			renderError(w, r, http.StatusServiceUnavailable, "cache unavailable")
			return
		}
		deleted = n
	}
	render.JSON(w, r, map[string]int{"deleted": deleted})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.deps.Exporter == nil {
		renderError(w, r, http.StatusServiceUnavailable, "export not configured")
		return
	}

	out, _, err := s.deps.Feed.Run(r.Context(), false)
	if err != nil {
		s.renderRunError(w, r, err)
		return
	}

	runID := ""
	if out.Report != nil {
		runID = out.Report.RunID
	}
	key, err := s.deps.Exporter.Export(r.Context(), runID, out.Records)
	if err != nil {
		s.logger.Error().Err(err).Str("run_id", runID).Msg("Export failed")
		renderError(w, r, http.StatusBadGateway, "export failed")
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, exportResponse{RunID: runID, Key: key, Records: len(out.Records)})
}

// renderRunError maps a failed pipeline run to a response.
func (s *Server) renderRunError(w http.ResponseWriter, r *http.Request, err error) {
	class := graphql.Classify(err)
	s.logger.Error().Err(err).Str("error_class", string(class)).Msg("Transform run failed")

	status := http.StatusBadGateway
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: "catalog unavailable", ErrorClass: string(class)})
}

func renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: msg})
}
