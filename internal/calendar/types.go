package calendar

import (
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

const (
	// NoTitle replaces an empty event summary.
	NoTitle = "(No title)"

	// UnknownCreator replaces a missing creator email.
	UnknownCreator = "Unknown"
)

// CalendarInfo is an entry of the user's calendar list.
type CalendarInfo struct {
	ID       string
	Summary  string
	TimeZone string
	Primary  bool
}

// Event is an upcoming event on one of the user's calendars.
type Event struct {
	ID         string
	CalendarID string

	// RawStart is the start as returned by the API: an RFC 3339 timestamp,
	// or a date for all-day events.
	RawStart string
	Start    time.Time
	AllDay   bool

	Summary string
	Creator string
}

func toCalendarInfo(entry *calendar.CalendarListEntry) CalendarInfo {
	if entry == nil {
		return CalendarInfo{}
	}
	return CalendarInfo{
		ID:       entry.Id,
		Summary:  entry.Summary,
		TimeZone: entry.TimeZone,
		Primary:  entry.Primary,
	}
}

// toEvent converts an API event. Date-only starts are placed at midnight in
// loc. The second result is false when the start cannot be parsed.
func toEvent(calendarID string, event *calendar.Event, loc *time.Location) (Event, bool) {
	if event == nil || event.Start == nil {
		return Event{}, false
	}

	e := Event{
		ID:         event.Id,
		CalendarID: calendarID,
		Summary:    event.Summary,
		Creator:    UnknownCreator,
	}
	if e.Summary == "" {
		e.Summary = NoTitle
	}
	if event.Creator != nil && event.Creator.Email != "" {
		e.Creator = event.Creator.Email
	}

	switch {
	case event.Start.DateTime != "":
		start, err := time.Parse(time.RFC3339, event.Start.DateTime)
		if err != nil {
			return Event{}, false
		}
		e.RawStart = event.Start.DateTime
		e.Start = start
	case event.Start.Date != "":
		start, err := time.ParseInLocation(time.DateOnly, event.Start.Date, loc)
		if err != nil {
			return Event{}, false
		}
		e.RawStart = event.Start.Date
		e.Start = start
		e.AllDay = true
	default:
		return Event{}, false
	}

	return e, true
}

// location resolves an IANA zone name, falling back to UTC.
func location(names ...string) *time.Location {
	for _, name := range names {
		if name == "" {
			continue
		}
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return time.UTC
}
