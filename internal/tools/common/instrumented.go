package common

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/codes"

	"github.com/teemow/inboxbrief/internal/apperrors"
	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/server"
)

type invocationKey struct{}

// InvocationFromContext returns the audit record of the running tool call,
// or nil outside an instrumented handler.
func InvocationFromContext(ctx context.Context) *instrumentation.ToolInvocation {
	inv, _ := ctx.Value(invocationKey{}).(*instrumentation.ToolInvocation)
	return inv
}

// AuditResource attaches the id of the resource a tool acts on to the audit record.
func AuditResource(ctx context.Context, id string) {
	if inv := InvocationFromContext(ctx); inv != nil {
		inv.SetResource(id)
	}
}

// AuditRecipient attaches a draft recipient to the audit record.
func AuditRecipient(ctx context.Context, address string) {
	if inv := InvocationFromContext(ctx); inv != nil {
		inv.SetRecipient(address)
	}
}

// ErrorResult renders err as an MCP error result prefixed with its category.
func ErrorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(apperrors.Describe(err))
}

// InstrumentedToolHandlerWithService wraps a tool handler with a tool.<name>
// span, tool metrics and an audit log line.
//
// A Go error from handler is returned to the client as an error result via
// ErrorResult; the wrapper itself never returns a protocol error, so a failed
// call never disturbs the MCP session.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandlerWithService("my_tool", "gmail", "list", sc, handler))
func InstrumentedToolHandlerWithService(
	toolName string,
	serviceName string,
	operation string,
	sc *server.ServerContext,
	handler func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error),
) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := instrumentation.StartToolSpan(ctx, toolName,
			instrumentation.ToolAttrs(serviceName, operation, sc.ReadOnly())...)
		defer span.End()

		invocation := instrumentation.NewToolInvocation(ctx, toolName, serviceName, operation)
		ctx = context.WithValue(ctx, invocationKey{}, invocation)

		result, err := handler(ctx, request)

		var errorKind string
		switch {
		case err != nil:
			errorKind = string(apperrors.KindOf(err))
			instrumentation.SetSpanError(span, err)
			result = ErrorResult(err)
		case result != nil && result.IsError:
			errorKind = string(apperrors.KindUnknown)
			span.SetStatus(codes.Error, "tool returned an error result")
		default:
			instrumentation.SetSpanSuccess(span)
		}
		invocation.Finish(errorKind, err)

		sc.Metrics().RecordToolInvocation(ctx, toolName, invocation.Status(), errorKind, invocation.Duration)
		sc.AuditLogger().LogToolInvocation(invocation)

		return result, nil
	}
}
