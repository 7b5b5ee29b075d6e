package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/teemow/inboxbrief/internal/calendar"
	"github.com/teemow/inboxbrief/internal/config"
	"github.com/teemow/inboxbrief/internal/gmail"
	"github.com/teemow/inboxbrief/internal/google"
	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/logging"
)

// ErrShutdown is returned for client requests after Shutdown.
var ErrShutdown = errors.New("server is shutting down")

// Authorizer produces authorized HTTP clients. *google.Authorizer implements it.
type Authorizer interface {
	HTTPClient(ctx context.Context) (*http.Client, error)
	HasToken() bool
	TokenPath() string
}

// Option configures a ServerContext.
type Option func(*ServerContext)

// WithMetrics sets the metrics recorder passed to the API clients and tools.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(sc *ServerContext) { sc.metrics = m }
}

// WithAuditLogger sets the audit logger used by the tool handlers.
func WithAuditLogger(a *instrumentation.AuditLogger) Option {
	return func(sc *ServerContext) { sc.audit = a }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(sc *ServerContext) { sc.logger = logger }
}

// WithReadOnly disables tools that create content.
func WithReadOnly(readOnly bool) Option {
	return func(sc *ServerContext) { sc.readOnly = readOnly }
}

// WithGmailOptions appends options to every Gmail client the context builds.
func WithGmailOptions(opts ...gmail.Option) Option {
	return func(sc *ServerContext) { sc.gmailOpts = append(sc.gmailOpts, opts...) }
}

// WithCalendarOptions appends options to every Calendar client the context builds.
func WithCalendarOptions(opts ...calendar.Option) Option {
	return func(sc *ServerContext) { sc.calendarOpts = append(sc.calendarOpts, opts...) }
}

// ServerContext holds the context for the MCP server
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg        config.Config
	authorizer Authorizer

	gmailClient     *gmail.Client
	calendarClient  *calendar.Client
	gmailLimiter    *google.RateLimiter
	calendarLimiter *google.RateLimiter
	gmailOpts       []gmail.Option
	calendarOpts    []calendar.Option

	metrics  *instrumentation.Metrics
	audit    *instrumentation.AuditLogger
	logger   *slog.Logger
	readOnly bool

	authGroup singleflight.Group

	mu         sync.RWMutex
	shutdown   bool
	generation uint64 // bumped by InvalidateClients
}

// NewServerContext creates a new server context. No Google API is contacted
// until a client is first requested.
func NewServerContext(ctx context.Context, cfg config.Config, authorizer Authorizer, opts ...Option) (*ServerContext, error) {
	if authorizer == nil {
		return nil, errors.New("authorizer is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{
		ctx:             shutdownCtx,
		cancel:          cancel,
		cfg:             cfg,
		authorizer:      authorizer,
		gmailLimiter:    google.NewRateLimiter(cfg.RateLimits.GmailRPS, cfg.RateLimits.GmailBurst),
		calendarLimiter: google.NewRateLimiter(cfg.RateLimits.CalendarRPS, cfg.RateLimits.CalendarBurst),
	}
	for _, opt := range opts {
		opt(sc)
	}
	sc.logger = logging.OrDefault(sc.logger)

	return sc, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Config returns the session configuration.
func (sc *ServerContext) Config() config.Config {
	return sc.cfg
}

func (sc *ServerContext) Metrics() *instrumentation.Metrics { return sc.metrics }

func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger { return sc.audit }

func (sc *ServerContext) Logger() *slog.Logger { return sc.logger }

func (sc *ServerContext) ReadOnly() bool { return sc.readOnly }

// HasToken reports whether a token file is present.
func (sc *ServerContext) HasToken() bool {
	return sc.authorizer.HasToken()
}

// GmailClient returns the cached Gmail client, creating it on first use.
//
// The authorized HTTP client is bound to the server context rather than ctx:
// it outlives the request and refreshes the token on later calls.
func (sc *ServerContext) GmailClient(ctx context.Context) (*gmail.Client, error) {
	sc.mu.RLock()
	shutdown, cached, gen := sc.shutdown, sc.gmailClient, sc.generation
	sc.mu.RUnlock()

	if shutdown {
		return nil, ErrShutdown
	}
	if cached != nil {
		return cached, nil
	}

	httpClient, err := sc.authorizedHTTPClient()
	if err != nil {
		return nil, err
	}

	opts := append([]gmail.Option{
		gmail.WithRateLimiter(sc.gmailLimiter),
		gmail.WithMetrics(sc.metrics),
		gmail.WithLogger(sc.logger),
	}, sc.gmailOpts...)

	client, err := gmail.NewClient(ctx, httpClient, opts...)
	if err != nil {
		return nil, err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.shutdown {
		return nil, ErrShutdown
	}
	if sc.gmailClient != nil {
		return sc.gmailClient, nil
	}
	// A token change during authorization makes this client stale for later calls.
	if sc.generation == gen {
		sc.gmailClient = client
	}
	return client, nil
}

// CalendarClient returns the cached Calendar client, creating it on first use.
func (sc *ServerContext) CalendarClient(ctx context.Context) (*calendar.Client, error) {
	sc.mu.RLock()
	shutdown, cached, gen := sc.shutdown, sc.calendarClient, sc.generation
	sc.mu.RUnlock()

	if shutdown {
		return nil, ErrShutdown
	}
	if cached != nil {
		return cached, nil
	}

	httpClient, err := sc.authorizedHTTPClient()
	if err != nil {
		return nil, err
	}

	opts := append([]calendar.Option{
		calendar.WithRateLimiter(sc.calendarLimiter),
		calendar.WithMetrics(sc.metrics),
		calendar.WithLogger(sc.logger),
	}, sc.calendarOpts...)

	client, err := calendar.NewClient(ctx, httpClient, opts...)
	if err != nil {
		return nil, err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.shutdown {
		return nil, ErrShutdown
	}
	if sc.calendarClient != nil {
		return sc.calendarClient, nil
	}
	if sc.generation == gen {
		sc.calendarClient = client
	}
	return client, nil
}

// authorizedHTTPClient runs at most one authorization at a time, so
// concurrent first calls share a single browser login. It must not be called
// with sc.mu held: the login can wait minutes for the user.
func (sc *ServerContext) authorizedHTTPClient() (*http.Client, error) {
	v, err, _ := sc.authGroup.Do("authorize", func() (interface{}, error) {
		return sc.authorizer.HTTPClient(sc.ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*http.Client), nil
}

// InvalidateClients drops the cached clients so the next request re-reads
// the token file.
func (sc *ServerContext) InvalidateClients() {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.gmailClient != nil || sc.calendarClient != nil {
		sc.logger.Info("token file changed, dropping cached Google clients")
	}
	sc.gmailClient = nil
	sc.calendarClient = nil
	sc.generation++
}

// StartTokenWatcher invalidates the cached clients whenever the token file
// changes, until Shutdown.
func (sc *ServerContext) StartTokenWatcher() error {
	return google.WatchTokenFile(sc.ctx, sc.authorizer.TokenPath(), sc.logger, sc.InvalidateClients)
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.gmailClient = nil
	sc.calendarClient = nil
	sc.cancel()
	return nil
}
