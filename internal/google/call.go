package google

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/logging"
)

// Caller paces, traces and measures the requests made to one Google API.
// A zero Caller (apart from Service) performs the call without pacing or
// metrics.
type Caller struct {
	Service string
	Limiter *RateLimiter
	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// Do runs fn inside a google.<service>.<operation> span once the rate limiter
// admits it. The error from fn is returned unchanged so the caller can
// classify it.
func (c *Caller) Do(ctx context.Context, operation string, fn func(ctx context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, c.Service, operation, attrs...)
	defer span.End()

	logger := logging.WithService(logging.OrDefault(c.Logger), c.Service)

	if err := c.Limiter.Wait(ctx); err != nil {
		err = fmt.Errorf("waiting for %s rate limit: %w", c.Service, err)
		instrumentation.SetSpanError(span, err)
		return err
	}

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)

	if c.Limiter.Observe(err) {
		c.Metrics.RecordGoogleAPIRateLimited(ctx, c.Service)
		logger.Warn("rate limited by Google", logging.Operation(operation))
	}
	c.Metrics.RecordGoogleAPICall(ctx, c.Service, operation, err, duration)

	if err != nil {
		instrumentation.SetSpanError(span, err)
		logger.Debug("google api call failed",
			logging.Operation(operation),
			slog.Duration(logging.KeyDuration, duration),
			logging.Err(err))
		return err
	}

	instrumentation.SetSpanSuccess(span)
	logger.Debug("google api call",
		logging.Operation(operation),
		slog.Duration(logging.KeyDuration, duration))
	return nil
}
