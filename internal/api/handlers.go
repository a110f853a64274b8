package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/krakend/docsearch-mcp/internal/docset"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ready, builtAt := s.backend.Ready()
	if !ready {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "initializing"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"built_at": builtAt.Format(time.RFC3339),
		"sources":  len(s.backend.Sources()),
	})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	sources := s.backend.Sources()
	if sources == nil {
		sources = []docset.SourceInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": sources})
}

// handlePages lists the page outline of a source.
func (s *Server) handlePages(w http.ResponseWriter, r *http.Request) {
	name, pages, err := s.backend.Pages(r.URL.Query().Get("source"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"source": name, "pages": pages})
}

// handlePage returns every fragment of one page.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	page := chi.URLParam(r, "page")
	name, frags, err := s.backend.Page(r.URL.Query().Get("source"), page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"source": name, "page": page, "fragments": frags})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	text := strings.TrimSpace(params.Get("q"))
	if text == "" {
		jsonError(w, "q query parameter is required", http.StatusBadRequest)
		return
	}

	limit := 0
	if raw := params.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			jsonError(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	if s.maxLimit > 0 && limit > s.maxLimit {
		limit = s.maxLimit
	}

	start := time.Now()
	res, err := s.backend.Search(r.Context(), docset.Query{
		Text:     text,
		Source:   params.Get("source"),
		Category: params.Get("category"),
		Limit:    limit,
	})
	s.metrics.searchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.searches.WithLabelValues("error").Inc()
		writeError(w, err)
		return
	}

	s.metrics.searches.WithLabelValues("ok").Inc()
	s.metrics.searchHits.Observe(float64(len(res.Hits)))
	writeJSON(w, http.StatusOK, res)
}

// writeError maps domain errors to HTTP status codes
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, docset.ErrUnknownSource), errors.Is(err, docset.ErrPageNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, docset.ErrInvalidCategory):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, docset.ErrNotReady):
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
