package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jonathan/footwear-triage/internal/db"
	"github.com/jonathan/footwear-triage/internal/intake"
	"github.com/jonathan/footwear-triage/internal/metrics"
	"github.com/jonathan/footwear-triage/internal/server/middleware"
	"github.com/jonathan/footwear-triage/internal/server/ratelimit"
	"github.com/jonathan/footwear-triage/internal/training"
)

// Analyzer runs the intake flow. *intake.Service implements it.
type Analyzer interface {
	Analyze(ctx context.Context, req *intake.Request) (*intake.Response, error)
}

// TrainingAdmin is the training surface exposed to operators.
// *training.Orchestrator implements it.
type TrainingAdmin interface {
	TriggerAuto(ctx context.Context) (*training.TriggerDecision, error)
	ColdStart(ctx context.Context, actor string) (*db.TrainingRun, error)
	ListRuns(ctx context.Context, limit int) ([]db.TrainingRun, error)
	Approve(ctx context.Context, runID uuid.UUID, req training.ApproveRequest) (*db.ModelRegistryEntry, error)
	Reject(ctx context.Context, runID uuid.UUID, reason, actor string) (*db.TrainingRun, error)
	Launch(ctx context.Context, runID uuid.UUID)
}

// Pinger reports dependency health. *db.DB implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// denyAll refuses every admin credential.
type denyAll struct{}

func (denyAll) Verify(string) bool { return false }

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	analyzer    Analyzer
	training    TrainingAdmin
	health      Pinger
	rateLimiter *ratelimit.Limiter
	logger      *zap.Logger

	maxUploadBytes int64
	listLimit      int
}

// Config holds server configuration and dependencies
type Config struct {
	Port           int
	MaxUploadBytes int64
	RunListLimit   int

	Analyzer  Analyzer
	Training  TrainingAdmin
	Admin     middleware.TokenVerifier
	Health    Pinger
	RateLimit *ratelimit.Config
	Logger    *zap.Logger
}

// New creates a new server instance
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = intake.DefaultMaxUploadBytes
	}
	if cfg.RunListLimit <= 0 {
		cfg.RunListLimit = training.DefaultListLimit
	}

	s := &Server{
		analyzer:       cfg.Analyzer,
		training:       cfg.Training,
		health:         cfg.Health,
		rateLimiter:    ratelimit.NewLimiter(cfg.RateLimit),
		logger:         cfg.Logger,
		maxUploadBytes: cfg.MaxUploadBytes,
		listLimit:      cfg.RunListLimit,
	}

	verifier := cfg.Admin
	if verifier == nil {
		verifier = denyAll{}
	}
	admin := middleware.RequireAdmin(verifier, func(r *http.Request) {
		metrics.AdminDeniedCount.WithLabelValues(r.Pattern).Inc()
		s.logger.Warn("admin credential rejected",
			zap.String("path", r.URL.Path),
			zap.String("client", s.extractClientID(r)),
		)
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /analyze", s.handleAnalyze)

	// Training administration
	mux.Handle("POST /admin/training/trigger", admin(http.HandlerFunc(s.handleTrigger)))
	mux.Handle("POST /admin/training/cold-start", admin(http.HandlerFunc(s.handleColdStart)))
	mux.Handle("GET /admin/training/runs", admin(http.HandlerFunc(s.handleListRuns)))
	mux.Handle("POST /admin/training/runs/{id}/approve", admin(http.HandlerFunc(s.handleApproveRun)))
	mux.Handle("POST /admin/training/runs/{id}/reject", admin(http.HandlerFunc(s.handleRejectRun)))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(mux))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second, // model inference can be slow on CPU
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the root handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.rateLimiter.Stop()
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	defer s.rateLimiter.Stop()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+middleware.AdminTokenHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit rejects clients over their limit with 429
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response code for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withLogging logs one line per request
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote", r.RemoteAddr),
		)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("error encoding JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// writeError maps err to a status and body. Unexpected errors are logged and
// reported without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	s.jsonResponse(w, status, errorBody(err, status))
}

// extractClientID returns the client IP from RemoteAddr. Forwarded headers
// are not trusted.
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
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.Format(time.RFC3339)
	}

	if secs := int(info.RetryAfter.Seconds()); secs > 0 {
		response["retry_after"] = secs
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}

	s.logger.Warn("rate limit exceeded",
		zap.String("client", s.extractClientID(r)),
		zap.String("path", r.URL.Path),
		zap.Int("limit", info.Limit),
	)

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
