package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/inboxbrief/internal/logging"
)

// ToolInvocation is the audit record of one MCP tool call.
//
// The only PII a call carries is a draft recipient, which is logged as a
// hash unless the audit logger is built with IncludePII.
type ToolInvocation struct {
	Tool      string
	Service   string
	Operation string

	ResourceID string // message id for get_message and replies
	Recipient  string

	Start     time.Time
	Duration  time.Duration
	ErrorKind string
	Error     string
	Failed    bool

	TraceID string
	SpanID  string
}

// NewToolInvocation starts the clock for a call and captures the trace
// context of the span in ctx, if any.
func NewToolInvocation(ctx context.Context, tool, service, operation string) *ToolInvocation {
	ti := &ToolInvocation{
		Tool:      tool,
		Service:   service,
		Operation: operation,
		Start:     time.Now(),
	}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		ti.TraceID = sc.TraceID().String()
		ti.SpanID = sc.SpanID().String()
	}
	return ti
}

func (ti *ToolInvocation) SetResource(id string) { ti.ResourceID = id }

func (ti *ToolInvocation) SetRecipient(address string) { ti.Recipient = address }

// Finish records the outcome. A call failed when errorKind is set; err adds
// the message and may be nil for error results produced without a Go error.
func (ti *ToolInvocation) Finish(errorKind string, err error) *ToolInvocation {
	ti.Duration = time.Since(ti.Start)
	ti.ErrorKind = errorKind
	ti.Failed = errorKind != ""
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// Status is StatusSuccess or StatusError.
func (ti *ToolInvocation) Status() string {
	if ti.Failed {
		return StatusError
	}
	return StatusSuccess
}

func (ti *ToolInvocation) logArgs(includePII bool) []any {
	args := []any{
		slog.String("tool", ti.Tool),
		slog.Duration("duration", ti.Duration),
		slog.String("status", ti.Status()),
	}

	optional := []struct{ key, value string }{
		{"service", ti.Service},
		{"operation", ti.Operation},
		{"resource_id", ti.ResourceID},
		{"trace_id", ti.TraceID},
		{"span_id", ti.SpanID},
		{"error_kind", ti.ErrorKind},
		{"error", ti.Error},
	}
	for _, o := range optional {
		if o.value != "" {
			args = append(args, slog.String(o.key, o.value))
		}
	}

	switch {
	case ti.Recipient == "":
	case includePII:
		args = append(args, slog.String("recipient", ti.Recipient))
	default:
		args = append(args, logging.UserHash(ti.Recipient))
	}
	return args
}

// AuditLogger writes one record per tool invocation: "tool_executed" at Info
// or "tool_failed" at Warn. A nil AuditLogger logs nothing.
type AuditLogger struct {
	logger *slog.Logger
	config AuditLoggingConfig
}

// NewAuditLogger returns an enabled audit logger that hashes recipients.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true})
}

func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	return &AuditLogger{logger: logging.OrDefault(logger), config: config}
}

func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.config.Enabled {
		return
	}
	if ti.Failed {
		al.logger.Warn("tool_failed", ti.logArgs(al.config.IncludePII)...)
		return
	}
	al.logger.Info("tool_executed", ti.logArgs(al.config.IncludePII)...)
}
