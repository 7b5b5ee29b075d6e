package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope of every inboxbrief span.
const TracerName = "github.com/teemow/inboxbrief"

// Span attribute keys.
const (
	SpanAttrTool         = "mcp.tool"
	SpanAttrReadOnly     = "mcp.read_only"
	SpanAttrService      = "google.service"
	SpanAttrOperation    = "google.operation"
	SpanAttrResourceType = "google.resource_type"
	SpanAttrResourceID   = "google.resource_id"
	SpanAttrLimit        = "inboxbrief.limit"
	SpanAttrResultCount  = "inboxbrief.result_count"
)

// ToolAttrs describes the Google operation behind a tool and whether the
// server runs read-only.
func ToolAttrs(service, operation string, readOnly bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(SpanAttrService, service),
		attribute.String(SpanAttrOperation, operation),
		attribute.Bool(SpanAttrReadOnly, readOnly),
	}
}

// ListAttrs describes a bounded listing of one label or calendar.
func ListAttrs(resourceType, resourceID string, limit int) []attribute.KeyValue {
	return append(ResourceAttrs(resourceType, resourceID), attribute.Int(SpanAttrLimit, limit))
}

// ResourceAttrs identifies a message, label or calendar. Empty values are
// omitted.
func ResourceAttrs(resourceType, resourceID string) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if resourceType != "" {
		attrs = append(attrs, attribute.String(SpanAttrResourceType, resourceType))
	}
	if resourceID != "" {
		attrs = append(attrs, attribute.String(SpanAttrResourceID, resourceID))
	}
	return attrs
}

func tracer() trace.Tracer {
	return otel.GetTracerProvider().Tracer(TracerName)
}

// StartToolSpan starts the server span "tool.<name>" for one MCP tool call.
func StartToolSpan(ctx context.Context, toolName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{attribute.String(SpanAttrTool, toolName)}, attrs...)
	return tracer().Start(ctx, "tool."+toolName,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartGoogleAPISpan starts the client span "google.<service>.<operation>".
func StartGoogleAPISpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append([]attribute.KeyValue{
		attribute.String(SpanAttrService, service),
		attribute.String(SpanAttrOperation, operation),
	}, attrs...)
	return tracer().Start(ctx, "google."+service+"."+operation,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanError marks span as failed. A nil err is ignored.
func SetSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// RecordResultCount annotates the span in ctx with the number of entries a
// listing returned.
func RecordResultCount(ctx context.Context, n int) {
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int(SpanAttrResultCount, n))
}
