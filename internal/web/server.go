package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"voice-intel/internal/application"
	"voice-intel/internal/domain"
)

// Processor runs one clip through transcription and analysis.
type Processor interface {
	Process(ctx context.Context, clip domain.AudioClip, temperature float64) (*domain.Report, error)
}

// HTTPMetrics counts served requests by route and status code.
type HTTPMetrics interface {
	ObserveHTTP(route string, code int)
}

type Options struct {
	Addr               string
	MaxUploadBytes     int64
	RateLimit          int
	RateLimitBurst     int
	DefaultTemperature float64
	// TrustedProxies lists proxy addresses or CIDRs whose forwarding
	// headers identify the client for rate limiting.
	TrustedProxies []string
	// MetricsHandler is mounted on GET /metrics when set.
	MetricsHandler http.Handler
}

type Server struct {
	opts     Options
	pipeline Processor
	recorder application.Recorder
	metrics  HTTPMetrics
	logger   *slog.Logger
	limiter  *RateLimiter
	mux      *http.ServeMux

	mu      sync.Mutex
	server  *http.Server
	running bool
}

func NewServer(
	opts Options,
	pipeline Processor,
	recorder application.Recorder,
	metrics HTTPMetrics,
	logger *slog.Logger,
) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 25 << 20
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}

	s := &Server{
		opts:     opts,
		pipeline: pipeline,
		recorder: recorder,
		metrics:  metrics,
		logger:   logger,
		limiter:  NewRateLimiter(opts.RateLimit, opts.RateLimitBurst),
		mux:      http.NewServeMux(),
	}

	if err := s.limiter.TrustProxies(opts.TrustedProxies); err != nil {
		logger.Warn("ignoring trusted proxies", "error", err)
	}

	s.mux.HandleFunc("GET /{$}", s.observe("index", s.handleIndex))
	s.mux.HandleFunc("POST /analyze", s.observe("analyze", s.limiter.Middleware(s.handleAnalyzeForm)))
	s.mux.HandleFunc("POST /api/analyze", s.observe("api_analyze", s.limiter.Middleware(s.handleAnalyzeAPI)))
	s.mux.HandleFunc("GET /health", s.handleHealth)
	if opts.MetricsHandler != nil {
		s.mux.Handle("GET /metrics", opts.MetricsHandler)
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.server = &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		// Transcription plus analysis with retries can take minutes.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.Info("web server starting", "addr", s.opts.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("web server error", "error", err)
		}
	}()

	s.running = true
	return nil
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
		if err := s.server.Close(); err != nil {
			return fmt.Errorf("closing server: %w", err)
		}
	}

	s.running = false
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) observe(route string, next http.HandlerFunc) http.HandlerFunc {
	if s.metrics == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next(rec, r)
		s.metrics.ObserveHTTP(route, rec.code)
	}
}
