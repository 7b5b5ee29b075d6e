package gmail

import (
	"regexp"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

const (
	// DefaultLabel is listed when no label is given.
	DefaultLabel = "INBOX"

	labelUnread = "UNREAD"
)

// messageIDPattern matches the identifiers Gmail hands out for messages.
var messageIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// MessageSummary is one entry of a message listing.
type MessageSummary struct {
	ID       string
	ThreadID string
	Date     string
	From     string
	Subject  string
	Snippet  string
	Unread   bool
}

// Message is a single message with its decoded body.
type Message struct {
	MessageSummary

	To      string
	ReplyTo string

	// MessageIDHeader and References carry the RFC 2822 threading headers.
	MessageIDHeader string
	References      string

	Labels []string

	// Body is the first text/plain part, else the first text/html part,
	// else the snippet.
	Body string
}

// DraftInput describes a draft to create. With ReplyToID set, the draft
// becomes a reply in the thread of that message and To and Subject default
// to values derived from it.
type DraftInput struct {
	To        string
	Subject   string
	Body      string
	ReplyToID string
}

// Draft is a created draft.
type Draft struct {
	ID        string
	MessageID string
	ThreadID  string
	To        string
	Subject   string
	ReplyToID string
}

// headerValue returns the first header named name, compared case-insensitively.
func headerValue(part *gmail.MessagePart, name string) string {
	if part == nil {
		return ""
	}
	for _, h := range part.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func hasLabel(labels []string, label string) bool {
	for _, l := range labels {
		if l == label {
			return true
		}
	}
	return false
}

func toSummary(msg *gmail.Message) MessageSummary {
	return MessageSummary{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Date:     headerValue(msg.Payload, "Date"),
		From:     headerValue(msg.Payload, "From"),
		Subject:  headerValue(msg.Payload, "Subject"),
		Snippet:  msg.Snippet,
		Unread:   hasLabel(msg.LabelIds, labelUnread),
	}
}
