package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Optimize outcomes, used as the "outcome" label.
const (
	OutcomeSuccess       = "success"
	OutcomeValidation    = "validation"
	OutcomeConfiguration = "configuration"
	OutcomeAuth          = "auth"
	OutcomeModel         = "model"
	OutcomeQuota         = "quota"
	OutcomeResponse      = "response"
	OutcomeUnclassified  = "unclassified"
)

var (
	// Optimization metrics
	OptimizeRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pqopt_optimize_requests_total",
			Help: "Total optimization requests by outcome",
		},
		[]string{"outcome"},
	)

	OptimizeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pqopt_optimize_duration_seconds",
			Help:    "Optimization round trip duration in seconds",
			Buckets: []float64{.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		},
		[]string{"outcome"},
	)

	// Usage metrics
	SessionsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pqopt_sessions_recorded_total",
			Help: "Usage sessions recorded by detected source",
		},
		[]string{"source"},
	)

	StepsReduced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pqopt_steps_reduced_total",
			Help: "Sum of query steps removed across recorded sessions",
		},
	)

	UsageResets = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pqopt_usage_resets_total",
			Help: "Number of usage store resets",
		},
	)

	// HTTP metrics
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pqopt_http_requests_total",
			Help: "HTTP API requests by route and status",
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		OptimizeRequests,
		OptimizeDuration,
		SessionsRecorded,
		StepsReduced,
		UsageResets,
		HTTPRequests,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")

	errCh := make(chan error, 1)
	go func() {
		var err error
		if s.listener != nil {
			// Use systemd socket-activated listener
			s.logger.Debug().Msg("Using systemd socket-activated metrics listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Stopping metrics server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	<-errCh
	return nil
}
