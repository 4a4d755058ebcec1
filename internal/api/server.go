// Package api serves the financial-metrics pipeline over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/finmetrics/internal/collector"
	"github.com/sells-group/finmetrics/internal/export"
	"github.com/sells-group/finmetrics/internal/pipeline"
)

// SourceFactory builds a Source bound to one upstream token.
type SourceFactory func(token string) collector.Source

// Server holds the HTTP handlers' dependencies.
type Server struct {
	pipeline  *pipeline.Pipeline
	exports   *export.Writer
	token     string
	newSource SourceFactory
	origins   []string
}

// Option configures a Server.
type Option func(*Server)

// WithToken sets the token the base pipeline's source was built with. A
// request carrying the same token reuses that source.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithSourceFactory lets requests supply their own upstream token.
func WithSourceFactory(f SourceFactory) Option {
	return func(s *Server) { s.newSource = f }
}

// WithAllowedOrigins sets the CORS allow list. Empty allows any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// NewServer creates a Server. p must export to exports so that download
// tokens resolve.
func NewServer(p *pipeline.Pipeline, exports *export.Writer, opts ...Option) *Server {
	s := &Server{pipeline: p, exports: exports}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Router returns the HTTP handler with middleware applied.
func (s *Server) Router() http.Handler {
	origins := s.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/financials", s.handleFinancials)
		r.Get("/download/{token}", s.handleDownload)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
