package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/krakend/docsearch-mcp/internal/docset"
	"github.com/krakend/docsearch-mcp/internal/searchindex"
)

// Backend is the document set served over HTTP
type Backend interface {
	Search(ctx context.Context, q docset.Query) (docset.Result, error)
	Sources() []docset.SourceInfo
	Pages(source string) (string, []searchindex.Page, error)
	Page(source, title string) (string, []searchindex.DocFragment, error)
	Ready() (bool, time.Time)
}

// Server is the read-only HTTP API over the documentation index.
type Server struct {
	router   chi.Router
	backend  Backend
	registry *prometheus.Registry
	metrics  *metrics
	maxLimit int
}

// NewServer creates and configures the HTTP server. maxLimit caps the
// limit query parameter of /api/search.
func NewServer(backend Backend, maxLimit int) *Server {
	reg := prometheus.NewRegistry()
	s := &Server{
		backend:  backend,
		registry: reg,
		metrics:  newMetrics(reg),
		maxLimit: maxLimit,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger())
	r.Use(s.metrics.instrument)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/sources", s.handleSources)
		r.Get("/pages", s.handlePages)
		r.Get("/pages/{page}", s.handlePage)
		r.Get("/search", s.handleSearch)
	})

	s.router = r
}

// ListenAndServe serves the API on addr until ctx is cancelled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
