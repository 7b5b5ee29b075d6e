package calendar

import (
	"fmt"
	"strings"
	"time"
)

// FormatUpcoming renders events for the chat host, prefixed with the current
// time so the model can tell how far away each event is.
func FormatUpcoming(now time.Time, events []Event) string {
	if len(events) == 0 {
		return "No upcoming events found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Today is %s\n", now.UTC().Format(time.RFC3339))
	for _, e := range events {
		fmt.Fprintf(&b, "Start: %s, Summary: %s, Creator: %s\n", e.RawStart, e.Summary, e.Creator)
	}
	return b.String()
}
