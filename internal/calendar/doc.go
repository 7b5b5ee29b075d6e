// Package calendar reads upcoming events from every calendar in the user's
// Google Calendar list.
//
// Events from all calendars are merged into one list ordered by start time
// and rendered as plain text for a language model:
//
//	client, err := calendar.NewClient(ctx, httpClient)
//	if err != nil {
//	    return err
//	}
//	events, err := client.ListUpcomingEvents(ctx, 10)
//	if err != nil {
//	    return err
//	}
//	fmt.Print(calendar.FormatUpcoming(time.Now(), events))
package calendar
