package common

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/teemow/inboxbrief/internal/apperrors"
	"github.com/teemow/inboxbrief/internal/config"
	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/logging"
	"github.com/teemow/inboxbrief/internal/server"
)

type stubAuthorizer struct{}

func (stubAuthorizer) HTTPClient(context.Context) (*http.Client, error) {
	return http.DefaultClient, nil
}

func (stubAuthorizer) HasToken() bool { return true }

func (stubAuthorizer) TokenPath() string { return "token.json" }

func newServerContext(t *testing.T, opts ...server.Option) *server.ServerContext {
	t.Helper()
	opts = append([]server.Option{server.WithLogger(logging.Discard())}, opts...)
	sc, err := server.NewServerContext(context.Background(), config.Default(), stubAuthorizer{}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func TestInstrumentedToolHandler_Success(t *testing.T) {
	var audit bytes.Buffer
	metrics, err := instrumentation.NewMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	sc := newServerContext(t,
		server.WithMetrics(metrics),
		server.WithAuditLogger(instrumentation.NewAuditLogger(logging.New(&audit, false))),
	)

	called := false
	wrapped := InstrumentedToolHandlerWithService("get_message", instrumentation.ServiceGmail, instrumentation.OperationGet, sc,
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			called = true
			AuditResource(ctx, "abc123")
			return mcp.NewToolResultText("ok"), nil
		})

	result, err := wrapped(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.True(t, called)
	assert.False(t, result.IsError)
	assert.Equal(t, "ok", resultText(t, result))

	logged := audit.String()
	assert.Contains(t, logged, "tool_executed")
	assert.Contains(t, logged, "get_message")
	assert.Contains(t, logged, "abc123")
}

func TestInstrumentedToolHandler_ErrorBecomesResult(t *testing.T) {
	var audit bytes.Buffer
	sc := newServerContext(t, server.WithAuditLogger(instrumentation.NewAuditLogger(logging.New(&audit, false))))

	wrapped := InstrumentedToolHandlerWithService("get_message", instrumentation.ServiceGmail, instrumentation.OperationGet, sc,
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return nil, apperrors.NewNotFoundError("message", "nope", nil)
		})

	result, err := wrapped(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err, "tool failures must not become protocol errors")
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "Not found: ")

	logged := audit.String()
	assert.Contains(t, logged, "tool_failed")
	assert.Contains(t, logged, string(apperrors.KindNotFound))
}

func TestInstrumentedToolHandler_PlainError(t *testing.T) {
	sc := newServerContext(t)

	wrapped := InstrumentedToolHandlerWithService("list_upcoming_events", instrumentation.ServiceCalendar, instrumentation.OperationList, sc,
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return nil, errors.New("boom")
		})

	result, err := wrapped(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Equal(t, "Error: boom", resultText(t, result))
}

func TestInstrumentedToolHandler_RecipientIsHashed(t *testing.T) {
	var audit bytes.Buffer
	sc := newServerContext(t, server.WithAuditLogger(instrumentation.NewAuditLogger(logging.New(&audit, false))))

	wrapped := InstrumentedToolHandlerWithService("create_draft", instrumentation.ServiceGmail, instrumentation.OperationCreateDraft, sc,
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			AuditRecipient(ctx, "alice@example.com")
			return mcp.NewToolResultText("done"), nil
		})

	_, err := wrapped(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.NotContains(t, audit.String(), "alice@example.com")
}

func TestAuditHelpers_OutsideHandler(t *testing.T) {
	assert.Nil(t, InvocationFromContext(context.Background()))
	assert.NotPanics(t, func() {
		AuditResource(context.Background(), "x")
		AuditRecipient(context.Background(), "y")
	})
}
