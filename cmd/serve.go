package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/logging"
	"github.com/teemow/inboxbrief/internal/server"
)

const (
	transportStdio          = "stdio"
	transportStreamableHTTP = "streamable-http"
)

// serveOptions holds the serve flags.
type serveOptions struct {
	transport      string
	httpAddr       string
	allowRemote    bool
	tlsCertFile    string
	tlsKeyFile     string
	readOnly       bool
	metricsEnabled bool
	metricsAddr    string
	metricsPath    string
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	so := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server providing the calendar and
inbox tools to AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport on /mcp, with /healthz and /readyz

The HTTP transport binds loopback addresses only unless --allow-remote is set.
Give --tls-cert-file and --tls-key-file together to serve HTTPS.

Authorization:
  The first tool call opens the Google authorization flow in your browser when
  no token is stored. Run "inboxbrief auth login" beforehand for headless use,
  or pass --no-interactive-auth to fail instead.

Read-only mode:
  --read-only removes create_draft, leaving only tools that read.

Metrics:
  With the streamable-http transport, Prometheus metrics are served on
  --metrics-addr. Exporters are chosen with METRICS_EXPORTER and
  TRACING_EXPORTER.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadServeEnvVars(cmd, so); err != nil {
				return err
			}
			return runServe(cmd, opts, so)
		},
	}

	cmd.Flags().StringVar(&so.transport, "transport", transportStdio, "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&so.httpAddr, "http-addr", server.DefaultHTTPAddr, "HTTP server address (for streamable-http transport). Can also use MCP_HTTP_ADDR env var.")
	cmd.Flags().BoolVar(&so.allowRemote, "allow-remote", false, "WARNING: Allow binding non-loopback addresses. The MCP endpoint has no authentication of its own.")
	cmd.Flags().StringVar(&so.tlsCertFile, "tls-cert-file", "", "Path to TLS certificate file (PEM format). If provided with --tls-key-file, enables HTTPS. Can also use TLS_CERT_FILE env var.")
	cmd.Flags().StringVar(&so.tlsKeyFile, "tls-key-file", "", "Path to TLS private key file (PEM format). If provided with --tls-cert-file, enables HTTPS. Can also use TLS_KEY_FILE env var.")
	cmd.Flags().BoolVar(&so.readOnly, "read-only", false, "Do not register tools that create content (create_draft). Can also use INBOXBRIEF_READ_ONLY env var.")
	cmd.Flags().BoolVar(&so.metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port (streamable-http only). Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&so.metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// loadServeEnvVars fills in serve settings from environment variables.
// An environment variable only applies when its flag was not set explicitly.
func loadServeEnvVars(cmd *cobra.Command, so *serveOptions) error {
	strVars := []struct {
		flag, env string
		dst       *string
	}{
		{"http-addr", "MCP_HTTP_ADDR", &so.httpAddr},
		{"tls-cert-file", "TLS_CERT_FILE", &so.tlsCertFile},
		{"tls-key-file", "TLS_KEY_FILE", &so.tlsKeyFile},
		{"metrics-addr", "METRICS_ADDR", &so.metricsAddr},
	}
	for _, v := range strVars {
		if cmd.Flags().Changed(v.flag) {
			continue
		}
		if val := os.Getenv(v.env); val != "" {
			*v.dst = val
		}
	}

	boolVars := []struct {
		flag, env string
		dst       *bool
	}{
		{"read-only", "INBOXBRIEF_READ_ONLY", &so.readOnly},
		{"metrics-enabled", "METRICS_ENABLED", &so.metricsEnabled},
	}
	for _, v := range boolVars {
		if cmd.Flags().Changed(v.flag) {
			continue
		}
		val := os.Getenv(v.env)
		if val == "" {
			continue
		}
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", v.env, val, err)
		}
		*v.dst = b
	}

	return nil
}

func runServe(cmd *cobra.Command, opts *rootOptions, so *serveOptions) error {
	if so.transport != transportStdio && so.transport != transportStreamableHTTP {
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", so.transport)
	}

	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := opts.logger(cmd)

	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	so.metricsPath = instrConfig.PrometheusEndpoint
	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig, instrumentation.WithProviderLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		// shutdownCtx is already cancelled here
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	var metrics *instrumentation.Metrics
	if provider.Enabled() {
		metrics = provider.Metrics()
	}
	audit := instrumentation.NewAuditLoggerWithConfig(logger, instrConfig.AuditLogging)

	serverContext, err := server.NewServerContext(shutdownCtx, cfg,
		newAuthorizer(cmd, cfg, logger, metrics),
		server.WithLogger(logger),
		server.WithMetrics(metrics),
		server.WithAuditLogger(audit),
		server.WithReadOnly(so.readOnly),
	)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Warn("server context shutdown failed", logging.Err(err))
		}
	}()

	if err := serverContext.StartTokenWatcher(); err != nil {
		// tools still work, they just keep a stale client after an external re-login
		logger.Warn("token file watcher not started", logging.Err(err))
	}

	if !serverContext.HasToken() {
		if cfg.InteractiveAuth {
			logger.Info("no stored token; the first tool call will start the browser authorization flow",
				logging.Path(cfg.TokenPath))
		} else {
			logger.Warn("no stored token and interactive authorization is disabled; run `inboxbrief auth login`",
				logging.Path(cfg.TokenPath))
		}
	}

	mcpSrv := newMCPServer()
	if err := registerAllTools(mcpSrv, serverContext); err != nil {
		return err
	}

	logger.Info("starting MCP server",
		slog.String("transport", so.transport),
		slog.String("version", version),
		slog.Bool("read_only", so.readOnly))

	switch so.transport {
	case transportStreamableHTTP:
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, serverContext, so, provider, logger)
	default:
		return runStdioServer(shutdownCtx, mcpSrv, logger)
	}
}

func runStdioServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, logger *slog.Logger) error {
	stdio := mcpserver.NewStdioServer(mcpSrv)
	stdio.SetErrorLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))

	err := stdio.Listen(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, so *serveOptions, provider *instrumentation.Provider, logger *slog.Logger) error {
	httpServer, err := server.NewHTTPServer(mcpSrv, sc, server.HTTPServerConfig{
		Addr:        so.httpAddr,
		AllowRemote: so.allowRemote,
		TLSCertFile: so.tlsCertFile,
		TLSKeyFile:  so.tlsKeyFile,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	var metricsServer *server.MetricsServer
	if so.metricsEnabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    so.metricsAddr,
			Path:                    so.metricsPath,
			InstrumentationProvider: provider,
			Logger:                  logger,
		})
		if err != nil {
			// e.g. METRICS_EXPORTER=otlp pushes instead of being scraped
			logger.Info("metrics server disabled", logging.Err(err))
			metricsServer = nil
		}
	}

	serverDone := make(chan error, 2)
	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- fmt.Errorf("HTTP server stopped with error: %w", err)
			return
		}
		serverDone <- nil
	}()
	if metricsServer != nil {
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverDone <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
	case runErr = <-serverDone:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
	defer cancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown failed", logging.Err(err))
		}
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("error shutting down HTTP server: %w", err)
	}

	logger.Info("HTTP server gracefully stopped")
	return runErr
}
