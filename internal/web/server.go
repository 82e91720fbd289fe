package web

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/experiment-designer/internal/config"
	"github.com/experiment-designer/internal/controller"
	"github.com/experiment-designer/internal/domain"
	"github.com/experiment-designer/internal/logging"
	"github.com/experiment-designer/internal/metrics"
)

//go:embed openapi.json
var openAPISpec []byte

// Server represents the HTTP API server
type Server struct {
	port       int
	logger     *logging.Logger
	ownsLogger bool
	cfg        *config.Config
	ctrl       *controller.Controller
	metrics    *metrics.Metrics
	registry   *prometheus.Registry
	limiter    *RateLimiter
	router     chi.Router
	started    time.Time
}

// ServerOption customizes a Server
type ServerOption func(*Server)

// WithConfig overrides the global configuration
func WithConfig(cfg *config.Config) ServerOption {
	return func(s *Server) { s.cfg = cfg }
}

// WithLogger overrides the server logger
func WithLogger(l *logging.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// WithRegistry exposes collectors on reg instead of a private registry
func WithRegistry(reg *prometheus.Registry) ServerOption {
	return func(s *Server) { s.registry = reg }
}

// NewServer creates a new API server listening on port
func NewServer(port int, opts ...ServerOption) *Server {
	s := &Server{port: port, started: time.Now()}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg == nil {
		s.cfg = config.Get()
	}
	if s.port <= 0 {
		s.port = s.cfg.Server.Port
	}
	if s.logger == nil {
		logger, err := logging.New(logging.Config{
			Level:       logging.ParseLevel(s.cfg.Logging.Level),
			LogDir:      s.cfg.Logging.LogDir,
			EnableFile:  s.cfg.Logging.EnableFile,
			EnableJSON:  s.cfg.Logging.EnableJSON,
			EnableColor: s.cfg.Logging.EnableColor,
			MaxSizeMB:   s.cfg.Logging.MaxSizeMB,
			MaxBackups:  s.cfg.Logging.MaxBackups,
			MaxAgeDays:  s.cfg.Logging.MaxAgeDays,
			Compress:    s.cfg.Logging.Compress,
			Component:   "web",
			Version:     controller.Version,
		})
		if err != nil {
			logger = logging.GetDefault()
		} else {
			s.ownsLogger = true
		}
		s.logger = logger
	}
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
		s.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	s.metrics = metrics.New(s.registry)
	s.ctrl = controller.New(
		controller.WithConfig(s.cfg),
		controller.WithLogger(s.logger),
		controller.WithMetrics(s.metrics),
	)
	if s.cfg.Server.RateLimit > 0 {
		s.limiter = NewRateLimiter(s.cfg.Server.RateLimit, s.cfg.Server.RateBurst, 0)
		s.limiter.onReject = s.metrics.RateLimited.Inc
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID, s.logRequest, middleware.Recoverer, cors)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method "+r.Method+" not allowed")
	})

	r.Get("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}).ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/openapi.json", s.handleOpenAPI)

		r.Group(func(r chi.Router) {
			if s.limiter != nil {
				r.Use(s.limiter.Middleware)
			}
			r.Use(bearerAuth(s.cfg.Server.APIToken))

			r.Post("/parse", s.handleParse)
			r.Post("/parse/batch", s.handleParseBatch)
			r.Get("/templates", s.handleTemplates)
			r.Post("/templates/{id}/apply", s.handleApplyTemplate)
			r.Post("/assess", s.handleAssess)
			r.Post("/suggestions", s.handleSuggestions)
			r.Post("/combinations", s.handleCombinations)
		})
	})
	return r
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Controller returns the controller serving requests
func (s *Server) Controller() *controller.Controller {
	return s.ctrl
}

// Start serves until ctx is cancelled then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("Starting API at http://localhost%s", srv.Addr)

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down API server")
	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	<-errCh
	s.Close()
	return err
}

// Close releases the rate limiter and any logger the server created
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Close()
	}
	if s.ownsLogger {
		_ = s.logger.Close()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   controller.Version,
		Checks: map[string]string{
			"templates": fmt.Sprintf("%d loaded", len(s.ctrl.Templates())),
			"uptime":    time.Since(s.started).Round(time.Second).String(),
		},
	})
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(openAPISpec)
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req controller.ParseRequest
	if !s.decode(w, r, SchemaParse, &req) {
		return
	}
	result, err := s.ctrl.Parse(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleParseBatch(w http.ResponseWriter, r *http.Request) {
	var req controller.BatchRequest
	if !s.decode(w, r, SchemaBatch, &req) {
		return
	}
	resp, err := s.ctrl.ParseBatch(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Templates())
}

func (s *Server) handleApplyTemplate(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r, s.cfg.Server.MaxBodyBytes)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var overrides *domain.ExtractedParams
	if len(bytes.TrimSpace(body)) > 0 {
		overrides = &domain.ExtractedParams{}
		if err := DecodeBody("", body, overrides); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	params, err := s.ctrl.ApplyTemplate(r.Context(), chi.URLParam(r, "id"), overrides)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, params)
}

func (s *Server) handleAssess(w http.ResponseWriter, r *http.Request) {
	var req controller.AssessRequest
	if !s.decode(w, r, "", &req) {
		return
	}
	qa, err := s.ctrl.Assess(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, qa)
}

func (s *Server) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	var req controller.SuggestionsRequest
	if !s.decode(w, r, "", &req) {
		return
	}
	suggestions, err := s.ctrl.Suggestions(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, suggestions)
}

func (s *Server) handleCombinations(w http.ResponseWriter, r *http.Request) {
	var req controller.CombinationsRequest
	if !s.decode(w, r, SchemaCombinations, &req) {
		return
	}
	combos, err := s.ctrl.Combinations(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, combos)
}

// decode reads, validates and decodes the body, writing an error response on failure
func (s *Server) decode(w http.ResponseWriter, r *http.Request, schema string, dst any) bool {
	body, err := readBody(w, r, s.cfg.Server.MaxBodyBytes)
	if err == nil {
		err = DecodeBody(schema, body, dst)
	}
	if err != nil {
		s.fail(w, r, err)
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s failed: %v request_id=%s", r.Method, r.URL.Path, err, RequestID(r.Context()))
	} else {
		s.logger.Warn("%s %s rejected: %v request_id=%s", r.Method, r.URL.Path, err, RequestID(r.Context()))
	}
	writeError(w, status, err.Error())
}

// StatusFor maps a controller error onto an HTTP status code
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrBatchTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// client went away
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Success: false, Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
