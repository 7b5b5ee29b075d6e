package gmail

import (
	"fmt"
	"strings"
)

// FormatMessageList renders a listing with one line per message.
func FormatMessageList(messages []MessageSummary) string {
	if len(messages) == 0 {
		return "No messages found."
	}

	var b strings.Builder
	b.WriteString("Messages:\n")
	for _, m := range messages {
		fmt.Fprintf(&b, "ID: %s, Date: %s, From: %s, Subject: %s, Body: %s, Unread: %t\n",
			m.ID, m.Date, m.From, m.Subject, m.Snippet, m.Unread)
	}
	return b.String()
}

// FormatMessage renders a single message with its headers and body.
func FormatMessage(m *Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ID: %s\n", m.ID)
	fmt.Fprintf(&b, "Thread ID: %s\n", m.ThreadID)
	fmt.Fprintf(&b, "Date: %s\n", m.Date)
	fmt.Fprintf(&b, "From: %s\n", m.From)
	if m.To != "" {
		fmt.Fprintf(&b, "To: %s\n", m.To)
	}
	fmt.Fprintf(&b, "Subject: %s\n", m.Subject)
	fmt.Fprintf(&b, "Unread: %t\n", m.Unread)
	b.WriteString("\n")
	b.WriteString(m.Body)
	if !strings.HasSuffix(m.Body, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}

// FormatDraft confirms a created draft.
func FormatDraft(d *Draft) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Draft created. ID: %s, To: %s, Subject: %s", d.ID, d.To, d.Subject)
	if d.ReplyToID != "" {
		fmt.Fprintf(&b, ", In reply to: %s, Thread ID: %s", d.ReplyToID, d.ThreadID)
	}
	b.WriteString("\n")
	return b.String()
}
