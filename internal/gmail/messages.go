package gmail

import (
	"context"
	"encoding/base64"
	"fmt"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/inboxbrief/internal/apperrors"
	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/logging"
)

const resourceMessage = "message"

// ListMessages returns the latest limit messages carrying labelID, newest
// first. An empty labelID lists the inbox. Spam and trash are excluded.
func (c *Client) ListMessages(ctx context.Context, limit int, labelID string) ([]MessageSummary, error) {
	if limit < 1 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	if labelID == "" {
		labelID = DefaultLabel
	}

	var list *gmail.ListMessagesResponse
	err := c.caller.Do(ctx, instrumentation.OperationList, func(ctx context.Context) error {
		var err error
		list, err = c.svc.Users.Messages.List(user).
			Context(ctx).
			MaxResults(int64(limit)).
			LabelIds(labelID).
			IncludeSpamTrash(false).
			Do()
		return err
	}, instrumentation.ListAttrs("label", labelID, limit)...)
	if err != nil {
		return nil, apperrors.FromGoogleAPI(instrumentation.ServiceGmail, instrumentation.OperationList, err)
	}

	summaries := make([]MessageSummary, 0, len(list.Messages))
	for _, ref := range list.Messages {
		if len(summaries) == limit {
			break
		}
		msg, err := c.getMessage(ctx, ref.Id, "metadata", "From", "Subject", "Date")
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, toSummary(msg))
	}

	c.logger.Debug("listed messages", logging.Count(len(summaries)))
	return summaries, nil
}

// GetMessage returns the message with the given id. Malformed and unknown
// ids yield a NotFoundError.
func (c *Client) GetMessage(ctx context.Context, id string) (*Message, error) {
	msg, err := c.getMessage(ctx, id, "full")
	if err != nil {
		return nil, err
	}

	m := &Message{
		MessageSummary:  toSummary(msg),
		To:              headerValue(msg.Payload, "To"),
		ReplyTo:         headerValue(msg.Payload, "Reply-To"),
		MessageIDHeader: headerValue(msg.Payload, "Message-ID"),
		References:      headerValue(msg.Payload, "References"),
		Labels:          msg.LabelIds,
	}
	m.Body = messageBody(msg)
	return m, nil
}

func (c *Client) getMessage(ctx context.Context, id, format string, headers ...string) (*gmail.Message, error) {
	if !messageIDPattern.MatchString(id) {
		return nil, apperrors.NewNotFoundError(resourceMessage, id, fmt.Errorf("malformed message id %q", id))
	}

	var msg *gmail.Message
	err := c.caller.Do(ctx, instrumentation.OperationGet, func(ctx context.Context) error {
		call := c.svc.Users.Messages.Get(user, id).Context(ctx).Format(format)
		if len(headers) > 0 {
			call = call.MetadataHeaders(headers...)
		}
		var err error
		msg, err = call.Do()
		return err
	}, instrumentation.ResourceAttrs(resourceMessage, id)...)
	if err != nil {
		return nil, apperrors.FromGoogleAPIForResource(instrumentation.ServiceGmail, instrumentation.OperationGet, resourceMessage, id, err)
	}
	return msg, nil
}

// messageBody picks the first text/plain part, then the first text/html
// part, then the snippet.
func messageBody(msg *gmail.Message) string {
	for _, mimeType := range []string{"text/plain", "text/html"} {
		if data, ok := findPart(msg.Payload, mimeType); ok {
			if body, err := decodeBody(data); err == nil {
				return body
			}
		}
	}
	return msg.Snippet
}

// findPart walks the part tree depth-first.
func findPart(part *gmail.MessagePart, mimeType string) (string, bool) {
	if part == nil {
		return "", false
	}
	if part.MimeType == mimeType && part.Body != nil && part.Body.Data != "" {
		return part.Body.Data, true
	}
	for _, sub := range part.Parts {
		if data, ok := findPart(sub, mimeType); ok {
			return data, true
		}
	}
	return "", false
}

// decodeBody decodes base64url part data, falling back to the unpadded and
// standard alphabets.
func decodeBody(data string) (string, error) {
	var firstErr error
	for _, enc := range []*base64.Encoding{base64.URLEncoding, base64.RawURLEncoding, base64.StdEncoding} {
		decoded, err := enc.DecodeString(data)
		if err == nil {
			return string(decoded), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return "", fmt.Errorf("failed to decode message body: %w", firstErr)
}
