// Package instrumentation wires OpenTelemetry metrics and traces into
// inboxbrief and writes the per-tool audit log.
//
// Every tool call produces a "tool.<name>" server span, one
// mcp_tool_invocations_total sample and one audit record. Each Gmail or
// Calendar request beneath it produces a "google.<service>.<operation>"
// client span and a google_api_operations_total sample. Interactive logins
// and token refreshes are counted in oauth_auth_total and
// oauth_token_refresh_total. The streamable-http transport adds
// http_requests_total.
//
// Exporters are chosen from the environment (see DefaultConfig):
//
//	INSTRUMENTATION_ENABLED=false   no exporters, Metrics records nothing
//	METRICS_EXPORTER=prometheus     scraped from the metrics server (default)
//	METRICS_EXPORTER=otlp           pushed to OTEL_EXPORTER_OTLP_ENDPOINT
//	TRACING_EXPORTER=none|otlp|stdout
//
// The stdout exporters write to stderr because stdout carries MCP stdio
// traffic.
package instrumentation
