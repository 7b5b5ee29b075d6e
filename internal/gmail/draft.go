package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/mail"
	"strings"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/inboxbrief/internal/apperrors"
	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/logging"
)

// CreateDraft stores a new draft. It is not sent.
func (c *Client) CreateDraft(ctx context.Context, input DraftInput) (*Draft, error) {
	if strings.TrimSpace(input.Body) == "" {
		return nil, errors.New("draft body is required")
	}

	msg := outgoingMessage{
		To:      input.To,
		Subject: input.Subject,
		Body:    input.Body,
	}

	var threadID string
	if input.ReplyToID != "" {
		original, err := c.getMessage(ctx, input.ReplyToID, "metadata",
			"From", "Reply-To", "Subject", "Message-ID", "References")
		if err != nil {
			return nil, err
		}
		threadID = original.ThreadId
		msg = replyTo(original.Payload, msg)
	}

	if strings.TrimSpace(msg.To) == "" {
		return nil, errors.New("a recipient is required unless replying to a message")
	}

	var created *gmail.Draft
	err := c.caller.Do(ctx, instrumentation.OperationCreateDraft, func(ctx context.Context) error {
		var err error
		created, err = c.svc.Users.Drafts.Create(user, &gmail.Draft{
			Message: &gmail.Message{
				Raw:      base64.URLEncoding.EncodeToString([]byte(msg.rfc2822())),
				ThreadId: threadID,
			},
		}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, apperrors.FromGoogleAPI(instrumentation.ServiceGmail, instrumentation.OperationCreateDraft, err)
	}

	draft := &Draft{
		ID:        created.Id,
		To:        msg.To,
		Subject:   msg.Subject,
		ReplyToID: input.ReplyToID,
		ThreadID:  threadID,
	}
	if created.Message != nil {
		draft.MessageID = created.Message.Id
		if created.Message.ThreadId != "" {
			draft.ThreadID = created.Message.ThreadId
		}
	}

	c.logger.Info("draft created",
		logging.Domain(msg.To),
		logging.Status(instrumentation.StatusSuccess))
	return draft, nil
}

// outgoingMessage is a plain-text RFC 2822 message.
type outgoingMessage struct {
	To         string
	Subject    string
	Body       string
	InReplyTo  string
	References string
}

// replyTo fills in the fields a reply derives from the original headers.
// Explicit To and Subject values win.
func replyTo(original *gmail.MessagePart, msg outgoingMessage) outgoingMessage {
	if msg.To == "" {
		msg.To = headerValue(original, "Reply-To")
	}
	if msg.To == "" {
		msg.To = headerValue(original, "From")
	}

	if msg.Subject == "" {
		msg.Subject = headerValue(original, "Subject")
	}
	msg.Subject = replySubject(msg.Subject)

	messageID := headerValue(original, "Message-ID")
	msg.InReplyTo = messageID
	msg.References = strings.TrimSpace(headerValue(original, "References") + " " + messageID)
	return msg
}

func replySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}

func (m outgoingMessage) rfc2822() string {
	var b strings.Builder

	writeHeader(&b, "To", encodeAddressList(m.To))
	writeHeader(&b, "Subject", encodeRFC2047(m.Subject))
	if m.InReplyTo != "" {
		writeHeader(&b, "In-Reply-To", m.InReplyTo)
	}
	if m.References != "" {
		writeHeader(&b, "References", m.References)
	}
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("\r\n")
	b.WriteString(m.Body)

	return b.String()
}

// writeHeader drops line breaks from value so it cannot start new headers.
func writeHeader(b *strings.Builder, name, value string) {
	value = strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
	fmt.Fprintf(b, "%s: %s\r\n", name, value)
}

// encodeRFC2047 encodes non-ASCII header text such as umlauts in subjects.
func encodeRFC2047(s string) string {
	for _, r := range s {
		if r > 127 {
			return mime.BEncoding.Encode("UTF-8", s)
		}
	}
	return s
}

// encodeAddressList rewrites display names such as "Jürgen <j@example.com>"
// as RFC 2047 encoded words. Lists that do not parse are written unchanged.
func encodeAddressList(s string) string {
	addrs, err := mail.ParseAddressList(s)
	if err != nil {
		return s
	}

	parts := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		if addr.Name == "" {
			parts = append(parts, addr.Address)
			continue
		}
		parts = append(parts, addr.String())
	}
	return strings.Join(parts, ", ")
}
