package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/logging"
)

const (
	DefaultMetricsAddr = "127.0.0.1:9090"
	DefaultMetricsPath = "/metrics"

	// DefaultShutdownTimeout bounds the graceful shutdown of both HTTP servers.
	DefaultShutdownTimeout = 30 * time.Second

	metricsReadHeaderTimeout = 10 * time.Second
	metricsWriteTimeout      = 10 * time.Second
	metricsIdleTimeout       = 60 * time.Second
)

// MetricsServerConfig configures the Prometheus scrape endpoint.
type MetricsServerConfig struct {
	Addr string // DefaultMetricsAddr when empty
	Path string // DefaultMetricsPath when empty

	InstrumentationProvider *instrumentation.Provider
	Logger                  *slog.Logger
}

// MetricsServer exposes Prometheus metrics on their own listener so that the
// scrape endpoint never shares a port with the MCP endpoint.
type MetricsServer struct {
	srv    *http.Server
	logger *slog.Logger
}

// NewMetricsServer fails unless the provider is enabled and exports through
// Prometheus.
func NewMetricsServer(cfg MetricsServerConfig) (*MetricsServer, error) {
	p := cfg.InstrumentationProvider
	switch {
	case p == nil:
		return nil, errors.New("instrumentation provider is required for metrics server")
	case !p.Enabled():
		return nil, errors.New("instrumentation provider is not enabled")
	}

	handler := p.PrometheusHandler()
	if handler == nil {
		return nil, fmt.Errorf("metrics exporter is not %s", instrumentation.ExporterPrometheus)
	}

	if cfg.Addr == "" {
		cfg.Addr = DefaultMetricsAddr
	}
	if cfg.Path == "" {
		cfg.Path = DefaultMetricsPath
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	return &MetricsServer{
		logger: logging.OrDefault(cfg.Logger),
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           mux,
			ReadHeaderTimeout: metricsReadHeaderTimeout,
			WriteTimeout:      metricsWriteTimeout,
			IdleTimeout:       metricsIdleTimeout,
		},
	}, nil
}

func (s *MetricsServer) Handler() http.Handler { return s.srv.Handler }

func (s *MetricsServer) Addr() string { return s.srv.Addr }

// Start serves on the configured address until Shutdown, after which it
// returns http.ErrServerClosed.
func (s *MetricsServer) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.srv.Addr, err)
	}
	return s.Serve(ln)
}

func (s *MetricsServer) Serve(ln net.Listener) error {
	s.logger.Info("serving metrics", slog.String("addr", ln.Addr().String()))
	err := s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return fmt.Errorf("metrics server: %w", err)
}

func (s *MetricsServer) Shutdown(ctx context.Context) error {
	s.logger.Info("stopping metrics server")
	return s.srv.Shutdown(ctx)
}
