// Package server holds the per-process state shared by the MCP tools and the
// HTTP surfaces around them.
//
// # Key Components
//
// ServerContext owns the session configuration and the Authorizer, and builds
// the Gmail and Calendar clients lazily on first use. Clients are cached until
// the token file changes on disk (see StartTokenWatcher), after which the
// next invocation re-reads the token.
//
// HTTPServer serves the streamable-HTTP MCP endpoint at /mcp together with
// the health endpoints, and records http_requests_total for every request.
// It refuses to bind a non-loopback address unless remote access is allowed
// explicitly, since the process acts with the user's Google credentials.
//
// HealthChecker implements /healthz, /readyz and /healthz/detailed.
// MetricsServer exposes Prometheus metrics on a dedicated address.
package server
