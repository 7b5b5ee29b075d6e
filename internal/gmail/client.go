package gmail

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/inboxbrief/internal/google"
	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/logging"
)

// user is the Gmail userId for the authorized account.
const user = "me"

// Client wraps the Gmail service
type Client struct {
	svc    *gmail.Service
	caller *google.Caller
	logger *slog.Logger
}

type clientOptions struct {
	limiter     *google.RateLimiter
	metrics     *instrumentation.Metrics
	logger      *slog.Logger
	serviceOpts []option.ClientOption
}

// Option configures a Client.
type Option func(*clientOptions)

// WithRateLimiter paces every API call through limiter.
func WithRateLimiter(limiter *google.RateLimiter) Option {
	return func(o *clientOptions) { o.limiter = limiter }
}

// WithMetrics records google_api_operations_total for every call.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(o *clientOptions) { o.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = logger }
}

// WithServiceOptions passes extra options to gmail.NewService.
func WithServiceOptions(opts ...option.ClientOption) Option {
	return func(o *clientOptions) { o.serviceOpts = append(o.serviceOpts, opts...) }
}

// NewClient creates a Gmail client that sends requests through httpClient,
// which must already authorize them.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...Option) (*Client, error) {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	svcOpts := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, o.serviceOpts...)
	svc, err := gmail.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	logger := logging.WithService(logging.OrDefault(o.logger), instrumentation.ServiceGmail)
	return &Client{
		svc: svc,
		caller: &google.Caller{
			Service: instrumentation.ServiceGmail,
			Limiter: o.limiter,
			Metrics: o.metrics,
			Logger:  logger,
		},
		logger: logger,
	}, nil
}
