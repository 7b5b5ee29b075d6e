package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxbrief/internal/tools/calendar_tools"
	"github.com/teemow/inboxbrief/internal/tools/common"
	"github.com/teemow/inboxbrief/internal/tools/gmail_tools"
)

// runTool opens a session, calls one tool and prints its output.
func runTool(cmd *cobra.Command, opts *rootOptions, name string, args map[string]interface{}) error {
	session, err := opts.openSession(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	out, err := session.callTool(cmd.Context(), name, args)
	if err != nil {
		return err
	}

	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), out)
	return err
}

func newEventsCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List upcoming calendar events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTool(cmd, opts, calendar_tools.ToolListUpcomingEvents, map[string]interface{}{
				"limit": float64(limit),
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", common.UseDefaultLimit, "Number of events to list (-1 for the configured default)")

	return cmd
}

func newEmailsCmd(opts *rootOptions) *cobra.Command {
	var (
		limit int
		label string
	)

	cmd := &cobra.Command{
		Use:   "emails",
		Short: "List the latest inbox messages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTool(cmd, opts, gmail_tools.ToolListInboxMessages, map[string]interface{}{
				"limit":    float64(limit),
				"label_id": label,
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", common.UseDefaultLimit, "Number of messages to list (-1 for the configured default)")
	cmd.Flags().StringVar(&label, "label", "", "Label to list instead of INBOX (e.g. UNREAD, STARRED)")

	return cmd
}

func newMessageCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "message <id>",
		Short: "Print one message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTool(cmd, opts, gmail_tools.ToolGetMessage, map[string]interface{}{
				"message_id": args[0],
			})
		},
	}
}

func newDraftCmd(opts *rootOptions) *cobra.Command {
	var to, subject, body, replyTo string

	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Create a draft or a draft reply",
		Long: `Create a Gmail draft. Nothing is sent.

With --reply-to the draft joins the thread of that message and is addressed
to its sender, with a "Re:" subject unless --to or --subject are given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTool(cmd, opts, gmail_tools.ToolCreateDraft, map[string]interface{}{
				"body":                body,
				"to":                  to,
				"subject":             subject,
				"reply_to_message_id": replyTo,
			})
		},
	}

	cmd.Flags().StringVar(&body, "body", "", "Plain text body")
	cmd.Flags().StringVar(&to, "to", "", "Recipient address (required unless --reply-to is set)")
	cmd.Flags().StringVar(&subject, "subject", "", "Subject line")
	cmd.Flags().StringVar(&replyTo, "reply-to", "", "ID of the message to reply to")
	_ = cmd.MarkFlagRequired("body")

	return cmd
}
