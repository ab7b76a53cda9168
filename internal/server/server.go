// Package server provides the HTTP REST API for the cover letter agent.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/cover-letter-agent/internal/db"
	"github.com/jonathan/cover-letter-agent/internal/observability"
	"github.com/jonathan/cover-letter-agent/internal/pipeline"
	"github.com/jonathan/cover-letter-agent/internal/retrieval"
	"github.com/jonathan/cover-letter-agent/internal/server/middleware"
	"github.com/jonathan/cover-letter-agent/internal/server/ratelimit"
)

// maxBodyBytes caps request bodies; documents are the largest payload.
const maxBodyBytes = 10 << 20

// ResumeRepository stores the active resume. *db.DB implements it.
type ResumeRepository interface {
	pipeline.ResumeStore
	SaveResume(ctx context.Context, id, content string, metadata map[string]string) (*db.Resume, error)
	DeleteResume(ctx context.Context, id string) error
}

// Pinger reports whether a backend is reachable. *db.DB implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	pipeline    *pipeline.Pipeline
	store       retrieval.Store
	resumes     ResumeRepository
	metrics     *observability.Metrics
	logger      *slog.Logger
	pingers     map[string]Pinger
	rateLimiter *ratelimit.Limiter
	validator   *validator.Validate
}

// Options holds server dependencies. Store, Resumes and Metrics are optional; routes
// that need a missing one answer 503.
type Options struct {
	Addr           string
	Pipeline       *pipeline.Pipeline
	Store          retrieval.Store
	Resumes        ResumeRepository
	Metrics        *observability.Metrics
	Logger         *slog.Logger
	RateLimit      *ratelimit.Config
	AllowedOrigins []string
	// Pingers are checked by GET /ready, keyed by backend name.
	Pingers map[string]Pinger
}

// New creates a new server instance
func New(opts Options) (*Server, error) {
	if opts.Pipeline == nil {
		return nil, errors.New("server requires a pipeline")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		pipeline:    opts.Pipeline,
		store:       opts.Store,
		resumes:     opts.Resumes,
		metrics:     opts.Metrics,
		pingers:     opts.Pingers,
		logger:      logger,
		rateLimiter: ratelimit.NewLimiter(opts.RateLimit),
		validator:   validator.New(),
	}

	mux := http.NewServeMux()
	s.handle(mux, "GET /health", s.handleHealth)
	s.handle(mux, "GET /ready", s.handleReady)
	if s.metrics != nil {
		s.handle(mux, "GET /metrics", s.metrics.Handler().ServeHTTP)
	}

	// Documents
	s.handle(mux, "POST /api/documents", s.handleIngestDocument)
	s.handle(mux, "GET /api/documents/search", s.handleSearchDocuments)
	s.handle(mux, "DELETE /api/documents/{id}", s.handleDeleteDocument)

	// Analysis
	s.handle(mux, "POST /api/analyze/skills", s.handleAnalyzeSkills)
	s.handle(mux, "POST /api/analyze/requirements", s.handleAnalyzeRequirements)
	s.handle(mux, "POST /api/analyze/strategy", s.handleAnalyzeStrategy)

	// Generation
	s.handle(mux, "POST /api/generate", s.handleGenerate)
	s.handle(mux, "POST /api/generate/stream", s.handleGenerateStream)
	s.handle(mux, "POST /api/generate/cover-letter", s.handleGenerateCoverLetter)
	s.handle(mux, "POST /api/refine/cover-letter", s.handleRefineCoverLetter)

	// Review
	s.handle(mux, "POST /api/analyze/ats", s.handleAnalyzeATS)
	s.handle(mux, "POST /api/validate/content", s.handleValidateContent)
	s.handle(mux, "POST /api/standardize/terms", s.handleStandardizeTerms)

	// Active resume
	s.handle(mux, "PUT /api/resume", s.handlePutResume)
	s.handle(mux, "GET /api/resume", s.handleGetResume)
	s.handle(mux, "DELETE /api/resume/{id}", s.handleDeleteResume)

	s.handler = middleware.RequestID(s.withRateLimit(s.withLogging(middleware.CORS(opts.AllowedOrigins)(mux))))

	s.httpServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Long timeout for full generation
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.rateLimiter.Stop()
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.rateLimiter.Stop()
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// handle registers h under pattern and records request metrics labelled by the route
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	route := pattern
	if i := strings.IndexByte(pattern, ' '); i >= 0 {
		route = pattern[i+1:]
	}
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			h(w, r)
			return
		}
		rec := newStatusRecorder(w)
		start := time.Now()
		h(rec, r)
		s.metrics.ObserveRequest(route, r.Method, rec.status, time.Since(start))
	})
}

// statusRecorder captures the response code while keeping streaming support
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newStatusRecorder(w)
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"remote", r.RemoteAddr,
			"request_id", middleware.GetRequestID(r.Context()),
		)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady checks every configured backend. Unlike /health it fails when one is down.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.pingers))
	status := http.StatusOK
	for name, p := range s.pingers {
		if err := p.Ping(ctx); err != nil {
			s.logger.Warn("readiness check failed", "backend", name, "error", err)
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "unavailable"
	}
	s.jsonResponse(w, status, map[string]any{"status": state, "checks": checks})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", "error", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"detail": message})
}

// fail logs err and writes it with the given status
func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "request failed",
		"path", r.URL.Path,
		"status", status,
		"error", err,
		"request_id", middleware.GetRequestID(r.Context()),
	)
	s.errorResponse(w, status, err.Error())
}

// decode reads a JSON body into dst and runs struct validation
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	if err := s.validator.Struct(dst); err != nil {
		s.errorResponse(w, http.StatusBadRequest, extractValidationErrors(err))
		return false
	}
	return true
}

// extractClientID extracts the client identifier from the request.
// Uses the IP address from RemoteAddr; forwarded headers are not trusted.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"detail":    "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		retry := int(info.RetryAfter.Seconds())
		if retry < 1 {
			retry = 1
		}
		response["retry_after"] = retry
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retry))
	}

	s.logger.Warn("rate limit exceeded",
		"client", s.extractClientID(r),
		"path", r.URL.Path,
		"limit", info.Limit,
		"reset", info.ResetTime.Format(time.RFC3339),
	)

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
