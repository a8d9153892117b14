// Package api exposes the export/import HTTP surface: bundle export,
// import preview, and import commit, plus health.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/getflowcheck/flowcheck/pkg/bundle"
	"github.com/getflowcheck/flowcheck/pkg/logging"
	"github.com/getflowcheck/flowcheck/pkg/ratelimit"
	"github.com/getflowcheck/flowcheck/pkg/store"
)

// Server is the flowcheck HTTP API server.
type Server struct {
	store    store.Store
	exporter *bundle.Exporter
	detector *bundle.Detector
	importer *bundle.Importer

	resolver OwnerResolver
	limiter  *ratelimit.Limiter
	log      *slog.Logger

	addr       string
	httpServer *http.Server
	startTime  time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithOwnerResolver sets how request owners are authenticated.
func WithOwnerResolver(r OwnerResolver) Option {
	return func(s *Server) { s.resolver = r }
}

// WithRateLimiter sets the per-IP limiter. Nil disables limiting.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(s *Server) { s.limiter = l }
}

// NewServer creates a Server on addr backed by st.
func NewServer(addr string, st store.Store, opts ...Option) *Server {
	s := &Server{
		store:    st,
		exporter: bundle.NewExporter(st),
		detector: bundle.NewDetector(st),
		importer: bundle.NewImporter(st),
		log:      logging.Nop(),
		addr:     addr,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.resolver == nil {
		s.resolver = NewStaticTokenResolver(nil)
	}
	return s
}

// Handler builds the routed and middleware-wrapped handler. Exposed so
// tests can drive the server through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	protected := http.NewServeMux()
	protected.HandleFunc("GET /export", s.handleExport)
	protected.HandleFunc("POST /export/preview", s.handlePreview)
	protected.HandleFunc("POST /export/import", s.handleImport)
	mux.Handle("/export", requireOwner(s.resolver)(protected))
	mux.Handle("/export/", requireOwner(s.resolver)(protected))

	var handler http.Handler = mux
	handler = ratelimit.Middleware(s.limiter)(handler)
	handler = corsMiddleware(handler)
	handler = securityHeaders(handler)
	handler = s.requestLog(handler)
	return handler
}

// Start begins serving. Blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	s.startTime = time.Now()
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info("api server listening", "addr", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}
