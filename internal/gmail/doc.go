// Package gmail reads messages from the user's mailbox and creates drafts
// through the Gmail API.
//
// It covers three operations:
//   - listing the latest messages of a label (INBOX by default) with their
//     sender, subject, date, snippet and unread state
//   - reading one message, preferring its plain-text body
//   - creating a draft, optionally as a threaded reply to an existing message
//
// Drafts are never sent. Results are rendered as plain text by the Format
// functions for consumption by a language model.
//
// Example usage:
//
//	client, err := gmail.NewClient(ctx, httpClient)
//	if err != nil {
//	    return err
//	}
//	messages, err := client.ListMessages(ctx, 10, "")
//	if err != nil {
//	    return err
//	}
//	fmt.Print(gmail.FormatMessageList(messages))
package gmail
