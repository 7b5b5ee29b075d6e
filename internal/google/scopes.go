package google

import (
	calendar "google.golang.org/api/calendar/v3"
	gmail "google.golang.org/api/gmail/v1"
)

// DefaultOAuthScopes are the scopes inboxbrief requests:
//   - Calendar: read-only, for listing upcoming events
//   - Gmail: read-only, for listing and reading messages
//   - Gmail: compose, for creating drafts
var DefaultOAuthScopes = []string{
	calendar.CalendarReadonlyScope,
	gmail.GmailReadonlyScope,
	gmail.GmailComposeScope,
}
