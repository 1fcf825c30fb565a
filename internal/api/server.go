package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/goodtune/pqoptimizer/internal/optimizer"
	"github.com/goodtune/pqoptimizer/internal/usage"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Config holds the API server configuration.
type Config struct {
	ListenAddr       string
	APIKey           string // only used to report a redacted preview
	StorageType      string
	RecordOnOptimize bool
	RateLimit        int
	RateLimitWindow  time.Duration
	AllowedOrigins   []string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	Location         *time.Location // calendar used for analytics
	UI               http.Handler   // optional embedded UI, mounted last
}

// Server represents the API HTTP server.
type Server struct {
	config      Config
	optimizer   *optimizer.Optimizer
	recorder    *usage.Recorder
	clock       usage.Clock
	rateLimiter *RateLimiter
	router      *mux.Router
	handler     http.Handler
	server      *http.Server
	listener    net.Listener // Optional pre-created listener (for systemd socket activation)
	logger      zerolog.Logger
}

// NewServer creates a new API server.
func NewServer(cfg Config, opt *optimizer.Optimizer, recorder *usage.Recorder, clock usage.Clock, logger zerolog.Logger) *Server {
	rateLimit := cfg.RateLimit
	if rateLimit == 0 {
		rateLimit = 60 // Default: 60 requests per minute
	}
	rateLimitWindow := cfg.RateLimitWindow
	if rateLimitWindow == 0 {
		rateLimitWindow = time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if clock == nil {
		clock = usage.RealClock{}
	}

	s := &Server{
		config:      cfg,
		optimizer:   opt,
		recorder:    recorder,
		clock:       clock,
		rateLimiter: NewRateLimiter(rateLimit, rateLimitWindow),
		router:      mux.NewRouter(),
		logger:      logger.With().Str("component", "api").Logger(),
	}

	s.setupRoutes()

	s.handler = s.router
	if len(cfg.AllowedOrigins) > 0 {
		s.handler = CORSMiddleware(cfg.AllowedOrigins)(s.router)
	}

	s.server = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Apply global middleware
	s.router.Use(LoggingMiddleware(s.logger))
	s.router.Use(MetricsMiddleware)
	s.router.Use(RateLimitMiddleware(s.rateLimiter))
	s.router.Use(LocaleMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Optimization
	for _, prefix := range []string{"", "/api"} {
		s.router.HandleFunc(prefix+"/optimize", s.handleOptimize).Methods("POST")
		s.router.HandleFunc(prefix+"/env-check", s.handleEnvCheck).Methods("GET")
	}
	s.router.HandleFunc("/api/detect-source", s.handleDetectSource).Methods("POST")

	// Usage store
	s.router.HandleFunc("/api/usage", s.handleGetUsage).Methods("GET")
	s.router.HandleFunc("/api/usage", s.handleResetUsage).Methods("DELETE")
	s.router.HandleFunc("/api/usage/sessions", s.handleRecordSession).Methods("POST")

	// Analytics
	s.router.HandleFunc("/api/analytics/summary", s.handleSummary).Methods("GET")
	s.router.HandleFunc("/api/analytics/advanced", s.handleAdvanced).Methods("GET")
	s.router.HandleFunc("/api/analytics/export.csv", s.handleExportCSV).Methods("GET")

	// Downloads
	s.router.HandleFunc("/api/export/code", s.handleExportCode).Methods("POST")

	// Catch-all for the UI - must be registered last
	if s.config.UI != nil {
		s.router.PathPrefix("/").Handler(s.config.UI)
	}
}

// Handler returns the root HTTP handler, including CORS handling.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info().Str("addr", s.config.ListenAddr).Msg("Starting API server")

	errCh := make(chan error, 1)
	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated API listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Stopping API server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	<-errCh
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
	})
}

// now returns the current time in the analytics calendar.
func (s *Server) now() time.Time {
	return s.clock.Now().In(s.config.Location)
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		http.Error(w, `{"error":"Failed to encode response"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(buf.Bytes())
}

// WriteError writes an error envelope.
func WriteError(w http.ResponseWriter, statusCode int, message, details string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error:   message,
		Details: details,
	})
}
