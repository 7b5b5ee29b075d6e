package instrumentation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrResult    = "result"
	attrTool      = "tool"
	attrErrorKind = "error_kind"
)

var (
	httpBuckets   = []float64{0.001, 0.01, 0.1, 0.5, 1, 2.5, 5, 10}
	remoteBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
)

// Metrics records what inboxbrief does: tool invocations, the Google API
// calls behind them, OAuth activity and HTTP transport requests.
//
// A nil *Metrics and a zero Metrics are both valid and record nothing, so
// callers never check whether instrumentation is enabled.
type Metrics struct {
	httpRequests        metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	apiOperations        metric.Int64Counter
	apiOperationDuration metric.Float64Histogram
	apiRateLimited       metric.Int64Counter

	oauthAuth    metric.Int64Counter
	oauthRefresh metric.Int64Counter

	toolInvocations metric.Int64Counter
	toolDuration    metric.Float64Histogram
}

// instruments collects creation errors so NewMetrics can report them once.
type instruments struct {
	meter metric.Meter
	errs  []error
}

func (in *instruments) counter(name, desc, unit string) metric.Int64Counter {
	c, err := in.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	if err != nil {
		in.errs = append(in.errs, fmt.Errorf("%s: %w", name, err))
	}
	return c
}

func (in *instruments) seconds(name, desc string, buckets []float64) metric.Float64Histogram {
	h, err := in.meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(buckets...),
	)
	if err != nil {
		in.errs = append(in.errs, fmt.Errorf("%s: %w", name, err))
	}
	return h
}

// NewMetrics creates every instrument on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	in := &instruments{meter: meter}

	m := &Metrics{
		httpRequests:        in.counter("http_requests_total", "HTTP requests served by the streamable-http transport", "{request}"),
		httpRequestDuration: in.seconds("http_request_duration_seconds", "HTTP request duration", httpBuckets),

		apiOperations:        in.counter("google_api_operations_total", "Calls made to the Gmail and Calendar APIs", "{operation}"),
		apiOperationDuration: in.seconds("google_api_operation_duration_seconds", "Gmail and Calendar API call duration", remoteBuckets),
		apiRateLimited:       in.counter("google_api_rate_limited_total", "HTTP 429 responses from Google APIs", "{response}"),

		oauthAuth:    in.counter("oauth_auth_total", "Interactive OAuth authorizations", "{attempt}"),
		oauthRefresh: in.counter("oauth_token_refresh_total", "OAuth access token refreshes", "{attempt}"),

		toolInvocations: in.counter("mcp_tool_invocations_total", "MCP tool invocations", "{invocation}"),
		toolDuration:    in.seconds("mcp_tool_duration_seconds", "MCP tool execution duration", remoteBuckets),
	}

	if err := errors.Join(in.errs...); err != nil {
		return nil, fmt.Errorf("failed to create instruments: %w", err)
	}
	return m, nil
}

// RecordHTTPRequest records one request to the HTTP transport. The path is
// normalized with NormalizePath to keep cardinality bounded.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequests == nil {
		return
	}
	set := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, NormalizePath(path)),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)
	m.httpRequests.Add(ctx, 1, set)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), set)
}

// RecordGoogleAPIOperation records one API call. service is ServiceGmail or
// ServiceCalendar, operation one of the Operation constants.
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.apiOperations == nil {
		return
	}
	set := metric.WithAttributes(
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)
	m.apiOperations.Add(ctx, 1, set)
	m.apiOperationDuration.Record(ctx, duration.Seconds(), set)
}

// RecordGoogleAPICall is RecordGoogleAPIOperation with the status derived from err.
func (m *Metrics) RecordGoogleAPICall(ctx context.Context, service, operation string, err error, duration time.Duration) {
	m.RecordGoogleAPIOperation(ctx, service, operation, StatusFromError(err), duration)
}

func (m *Metrics) RecordGoogleAPIRateLimited(ctx context.Context, service string) {
	if m == nil || m.apiRateLimited == nil {
		return
	}
	m.apiRateLimited.Add(ctx, 1, metric.WithAttributes(attribute.String(attrService, service)))
}

// RecordOAuthAuth counts an interactive login by OAuthResult value.
func (m *Metrics) RecordOAuthAuth(ctx context.Context, result string) {
	if m == nil || m.oauthAuth == nil {
		return
	}
	m.oauthAuth.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordOAuthTokenRefresh counts a refresh by OAuthResult value.
func (m *Metrics) RecordOAuthTokenRefresh(ctx context.Context, result string) {
	if m == nil || m.oauthRefresh == nil {
		return
	}
	m.oauthRefresh.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordToolInvocation records a tool call. errorKind is empty on success;
// it only labels the counter so the histogram keeps one series per status.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status, errorKind string, duration time.Duration) {
	if m == nil || m.toolInvocations == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if errorKind != "" {
		attrs = append(attrs, attribute.String(attrErrorKind, errorKind))
	}
	m.toolInvocations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// StatusFromError maps err to StatusSuccess or StatusError.
func StatusFromError(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}
