// Package api provides the HTTP status API for the slowwatch watchdog.
// Its own requests run through the tracking middleware, so the watchdog
// observes the host that serves it.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/hugo-lorenzo-mato/slowwatch/internal/store"
	"github.com/hugo-lorenzo-mato/slowwatch/internal/track"
	"github.com/hugo-lorenzo-mato/slowwatch/internal/watchdog"
)

// Server provides HTTP endpoints for inspecting the watchdog: in-flight
// requests, captured records, and the runtime enable switch.
type Server struct {
	router  chi.Router
	tracker *track.Tracker
	checker *watchdog.Checker
	store   *store.FileCap
	logger  *slog.Logger

	enableCORS bool
	debug      bool
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithCORS enables or disables CORS headers.
func WithCORS(enabled bool) ServerOption {
	return func(s *Server) {
		s.enableCORS = enabled
	}
}

// WithDebugEndpoints mounts /debug handlers that produce artificially
// slow requests. Never enable these on a shared deployment.
func WithDebugEndpoints(enabled bool) ServerOption {
	return func(s *Server) {
		s.debug = enabled
	}
}

// NewServer creates a new status API server.
func NewServer(tracker *track.Tracker, checker *watchdog.Checker, st *store.FileCap, opts ...ServerOption) *Server {
	s := &Server{
		tracker:    tracker,
		checker:    checker,
		store:      st,
		logger:     slog.Default(),
		enableCORS: true,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.router = s.setupRouter()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRouter configures Chi router with all routes and middleware.
func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware. The tracker comes last so tracked requests carry the
	// goroutine that actually runs the handler.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)
	r.Use(s.tracker.Middleware)

	if s.enableCORS {
		corsHandler := cors.New(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "PUT", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
			AllowCredentials: false,
			MaxAge:           300,
		})
		r.Use(corsHandler.Handler)
	}

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Get("/requests", s.handleListRequests)

		r.Route("/records", func(r chi.Router) {
			r.Get("/", s.handleListRecords)
			r.Get("/{name}", s.handleGetRecord)
		})

		r.Route("/watchdog", func(r chi.Router) {
			r.Get("/", s.handleGetWatchdog)
			r.Put("/", s.handlePutWatchdog)
		})
	})

	if s.debug {
		r.Get("/debug/sleep", s.handleDebugSleep)
	}

	return r
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"bytes", ww.BytesWritten(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// decodeJSON decodes a request body, rejecting unknown fields.
func decodeJSON(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// respondError sends a JSON error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("starting status API server", "addr", addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
