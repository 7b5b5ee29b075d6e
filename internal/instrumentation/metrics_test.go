package instrumentation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// collect creates Metrics on a manual reader and returns a function that
// sums every int64 counter by name.
func collect(t *testing.T) (*Metrics, func() map[string]int64) {
	t.Helper()
	ctx := context.Background()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(ctx) })

	m, err := NewMetrics(mp.Meter("test"))
	require.NoError(t, err)

	return m, func() map[string]int64 {
		var rm metricdata.ResourceMetrics
		require.NoError(t, reader.Collect(ctx, &rm))

		sums := map[string]int64{}
		for _, sm := range rm.ScopeMetrics {
			for _, metric := range sm.Metrics {
				if sum, ok := metric.Data.(metricdata.Sum[int64]); ok {
					for _, dp := range sum.DataPoints {
						sums[metric.Name] += dp.Value
					}
				}
			}
		}
		return sums
	}
}

func TestMetricsCounters(t *testing.T) {
	ctx := context.Background()
	m, sums := collect(t)

	m.RecordHTTPRequest(ctx, "POST", "/mcp", 200, time.Millisecond)
	m.RecordGoogleAPICall(ctx, ServiceCalendar, OperationList, nil, time.Millisecond)
	m.RecordGoogleAPICall(ctx, ServiceGmail, OperationGet, errors.New("boom"), time.Millisecond)
	m.RecordGoogleAPIRateLimited(ctx, ServiceGmail)
	m.RecordOAuthAuth(ctx, OAuthResultSuccess)
	m.RecordOAuthTokenRefresh(ctx, OAuthResultSuccess)
	m.RecordOAuthTokenRefresh(ctx, OAuthResultExpired)
	m.RecordToolInvocation(ctx, "list_upcoming_events", StatusSuccess, "", time.Millisecond)
	m.RecordToolInvocation(ctx, "get_message", StatusError, "not_found", time.Millisecond)

	got := sums()
	assert.Equal(t, int64(1), got["http_requests_total"])
	assert.Equal(t, int64(2), got["google_api_operations_total"])
	assert.Equal(t, int64(1), got["google_api_rate_limited_total"])
	assert.Equal(t, int64(1), got["oauth_auth_total"])
	assert.Equal(t, int64(2), got["oauth_token_refresh_total"])
	assert.Equal(t, int64(2), got["mcp_tool_invocations_total"])
}

func TestNilAndZeroMetricsRecordNothing(t *testing.T) {
	ctx := context.Background()

	for name, m := range map[string]*Metrics{"nil": nil, "zero": {}} {
		t.Run(name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				m.RecordHTTPRequest(ctx, "GET", "/mcp", 200, time.Millisecond)
				m.RecordGoogleAPICall(ctx, ServiceGmail, OperationList, nil, time.Millisecond)
				m.RecordGoogleAPIRateLimited(ctx, ServiceGmail)
				m.RecordOAuthAuth(ctx, OAuthResultFailure)
				m.RecordOAuthTokenRefresh(ctx, OAuthResultFailure)
				m.RecordToolInvocation(ctx, "create_draft", StatusError, "api", time.Millisecond)
			})
		})
	}
}

func TestStatusFromError(t *testing.T) {
	assert.Equal(t, StatusSuccess, StatusFromError(nil))
	assert.Equal(t, StatusError, StatusFromError(errors.New("x")))
}
