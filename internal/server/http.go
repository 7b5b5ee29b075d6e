package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/logging"
)

const (
	// DefaultHTTPAddr is the default listen address of the MCP HTTP transport.
	DefaultHTTPAddr = "127.0.0.1:8080"

	// MCPEndpointPath serves the streamable-HTTP MCP transport.
	MCPEndpointPath = "/mcp"
)

// HTTPServerConfig configures the MCP HTTP transport.
type HTTPServerConfig struct {
	Addr string

	// AllowRemote permits binding a non-loopback address.
	AllowRemote bool

	// TLSCertFile and TLSKeyFile enable HTTPS when both are set.
	TLSCertFile string
	TLSKeyFile  string

	Version string
}

// HTTPServer serves the MCP streamable-HTTP endpoint and health checks.
type HTTPServer struct {
	cfg        HTTPServerConfig
	handler    http.Handler
	health     *HealthChecker
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
	httpServer *http.Server
}

// NewHTTPServer validates cfg and prepares the handler tree. sc may be nil
// in tests; health checks then only report process state.
func NewHTTPServer(mcpServer *mcpserver.MCPServer, sc *ServerContext, cfg HTTPServerConfig) (*HTTPServer, error) {
	if cfg.Addr == "" {
		cfg.Addr = DefaultHTTPAddr
	}
	if err := validateListenAddr(cfg.Addr, cfg.AllowRemote); err != nil {
		return nil, err
	}
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return nil, errors.New("both a TLS certificate and a TLS key file are required to enable TLS")
	}

	s := &HTTPServer{
		cfg:    cfg,
		health: NewHealthChecker(sc, cfg.Version),
		logger: logging.Discard(),
	}
	if sc != nil {
		s.metrics = sc.Metrics()
		s.logger = sc.Logger()
	}

	mux := http.NewServeMux()
	mux.Handle(MCPEndpointPath, mcpserver.NewStreamableHTTPServer(mcpServer,
		mcpserver.WithEndpointPath(MCPEndpointPath),
	))
	s.health.RegisterHealthEndpoints(mux)
	s.handler = s.instrumentationMiddleware(mux)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// Handler returns the root handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

// Health returns the server's health checker.
func (s *HTTPServer) Health() *HealthChecker {
	return s.health
}

// Start listens on the configured address and serves until Shutdown.
func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on ln, with TLS when configured. It returns
// http.ErrServerClosed after a graceful shutdown.
func (s *HTTPServer) Serve(ln net.Listener) error {
	tls := s.cfg.TLSCertFile != ""
	s.logger.Info("serving MCP over HTTP",
		slog.String("addr", ln.Addr().String()),
		slog.String("endpoint", MCPEndpointPath),
		slog.Bool("tls", tls))

	if tls {
		return s.httpServer.ServeTLS(ln, s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown marks the server not ready and drains open requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	return s.httpServer.Shutdown(ctx)
}

// validateListenAddr rejects addresses reachable from other hosts unless
// allowRemote is set. An empty host binds every interface.
func validateListenAddr(addr string, allowRemote bool) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	if allowRemote || isLoopbackHost(host) {
		return nil
	}
	return fmt.Errorf("refusing to listen on %q: the server acts with your Google credentials; bind a loopback address or pass --allow-remote", addr)
}

func isLoopbackHost(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// responseWriter captures the status code written by a handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// instrumentationMiddleware records http_requests_total and
// http_request_duration_seconds.
func (s *HTTPServer) instrumentationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)
		s.metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	})
}
