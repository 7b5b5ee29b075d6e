package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/inboxbrief/internal/apperrors"
	"github.com/teemow/inboxbrief/internal/google"
	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/logging"
)

// Client wraps the Google Calendar service
type Client struct {
	svc    *calendar.Service
	caller *google.Caller
	logger *slog.Logger
	now    func() time.Time
}

type clientOptions struct {
	limiter     *google.RateLimiter
	metrics     *instrumentation.Metrics
	logger      *slog.Logger
	now         func() time.Time
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

// WithClock replaces time.Now as the reference for "upcoming".
func WithClock(now func() time.Time) Option {
	return func(o *clientOptions) { o.now = now }
}

// WithServiceOptions passes extra options to calendar.NewService, such as
// option.WithEndpoint in tests.
func WithServiceOptions(opts ...option.ClientOption) Option {
	return func(o *clientOptions) { o.serviceOpts = append(o.serviceOpts, opts...) }
}

// NewClient creates a Calendar client that sends requests through httpClient,
// which must already authorize them.
func NewClient(ctx context.Context, httpClient *http.Client, opts ...Option) (*Client, error) {
	o := clientOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	svcOpts := append([]option.ClientOption{option.WithHTTPClient(httpClient)}, o.serviceOpts...)
	svc, err := calendar.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	logger := logging.WithService(logging.OrDefault(o.logger), instrumentation.ServiceCalendar)
	return &Client{
		svc: svc,
		caller: &google.Caller{
			Service: instrumentation.ServiceCalendar,
			Limiter: o.limiter,
			Metrics: o.metrics,
			Logger:  logger,
		},
		logger: logger,
		now:    o.now,
	}, nil
}

// ListCalendars returns every entry of the user's calendar list, following
// all pages.
func (c *Client) ListCalendars(ctx context.Context) ([]CalendarInfo, error) {
	var (
		calendars []CalendarInfo
		pageToken string
	)

	for {
		var list *calendar.CalendarList
		err := c.caller.Do(ctx, instrumentation.OperationListCalendars, func(ctx context.Context) error {
			call := c.svc.CalendarList.List().Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			var err error
			list, err = call.Do()
			return err
		})
		if err != nil {
			return nil, apperrors.FromGoogleAPI(instrumentation.ServiceCalendar, instrumentation.OperationListCalendars, err)
		}

		for _, entry := range list.Items {
			calendars = append(calendars, toCalendarInfo(entry))
		}

		if list.NextPageToken == "" {
			return calendars, nil
		}
		pageToken = list.NextPageToken
	}
}

// ListUpcomingEvents returns at most limit events starting from now across
// all calendars, ordered by start time. Events starting at the same instant
// keep calendar-list order, then the order the API returned them in.
//
// A failure on any calendar fails the whole call.
func (c *Client) ListUpcomingEvents(ctx context.Context, limit int) ([]Event, error) {
	if limit < 1 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	calendars, err := c.ListCalendars(ctx)
	if err != nil {
		return nil, err
	}

	timeMin := c.now().UTC().Format(time.RFC3339)

	var events []Event
	for _, cal := range calendars {
		calEvents, err := c.listCalendarEvents(ctx, cal, timeMin, limit)
		if err != nil {
			return nil, err
		}
		events = append(events, calEvents...)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})

	if len(events) > limit {
		events = events[:limit]
	}

	c.logger.Debug("listed upcoming events",
		slog.Int("calendars", len(calendars)),
		logging.Count(len(events)))
	return events, nil
}

func (c *Client) listCalendarEvents(ctx context.Context, cal CalendarInfo, timeMin string, limit int) ([]Event, error) {
	var result *calendar.Events
	err := c.caller.Do(ctx, instrumentation.OperationList, func(ctx context.Context) error {
		var err error
		result, err = c.svc.Events.List(cal.ID).
			Context(ctx).
			TimeMin(timeMin).
			MaxResults(int64(limit)).
			SingleEvents(true).
			OrderBy("startTime").
			Do()
		return err
	}, instrumentation.ListAttrs("calendar", cal.ID, limit)...)
	if err != nil {
		return nil, apperrors.FromGoogleAPI(instrumentation.ServiceCalendar, instrumentation.OperationList,
			fmt.Errorf("calendar %s: %w", cal.ID, err))
	}

	loc := location(result.TimeZone, cal.TimeZone)

	events := make([]Event, 0, len(result.Items))
	for _, item := range result.Items {
		event, ok := toEvent(cal.ID, item, loc)
		if !ok {
			c.logger.Debug("skipping event without a usable start", slog.String("event_id", item.Id))
			continue
		}
		events = append(events, event)
	}
	return events, nil
}
