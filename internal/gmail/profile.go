package gmail

import (
	"context"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/inboxbrief/internal/apperrors"
	"github.com/teemow/inboxbrief/internal/instrumentation"
)

// Profile describes the authorized mailbox.
type Profile struct {
	EmailAddress  string `json:"email"`
	MessagesTotal int64  `json:"messagesTotal"`
	ThreadsTotal  int64  `json:"threadsTotal"`
}

// GetProfile returns the address and size of the authorized mailbox.
func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	var p *gmail.Profile
	err := c.caller.Do(ctx, instrumentation.OperationGetProfile, func(ctx context.Context) error {
		var err error
		p, err = c.svc.Users.GetProfile(user).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, apperrors.FromGoogleAPI(instrumentation.ServiceGmail, instrumentation.OperationGetProfile, err)
	}

	return &Profile{
		EmailAddress:  p.EmailAddress,
		MessagesTotal: p.MessagesTotal,
		ThreadsTotal:  p.ThreadsTotal,
	}, nil
}
