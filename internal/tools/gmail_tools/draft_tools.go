package gmail_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxbrief/internal/gmail"
	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/server"
	"github.com/teemow/inboxbrief/internal/tools/common"
)

// RegisterDraftTools registers create_draft.
func RegisterDraftTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	draftTool := mcp.NewTool(ToolCreateDraft,
		mcp.WithDescription("Create a Gmail draft. The draft is saved for the user to review and is never sent. "+
			"With reply_to_message_id the draft becomes a reply in that message's thread, addressed to its sender with a Re: subject."),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("Plain text body of the draft"),
		),
		mcp.WithString("to",
			mcp.Description("Recipient address. Required unless replying."),
		),
		mcp.WithString("subject",
			mcp.Description("Subject line. Defaults to the original subject when replying."),
		),
		mcp.WithString("reply_to_message_id",
			mcp.Description("ID of the message to reply to"),
		),
	)

	s.AddTool(draftTool, common.InstrumentedToolHandlerWithService(
		ToolCreateDraft, instrumentation.ServiceGmail, instrumentation.OperationCreateDraft, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCreateDraft(ctx, request, sc)
		}))

	return nil
}

func handleCreateDraft(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	body, ok := args["body"].(string)
	if !ok || body == "" {
		return mcp.NewToolResultError("'body' field is required"), nil
	}

	input := gmail.DraftInput{
		To:        common.StringArg(args, "to"),
		Subject:   common.StringArg(args, "subject"),
		Body:      body,
		ReplyToID: common.StringArg(args, "reply_to_message_id"),
	}
	if input.ReplyToID != "" {
		common.AuditResource(ctx, input.ReplyToID)
	}

	client, err := sc.GmailClient(ctx)
	if err != nil {
		return nil, err
	}

	draft, err := client.CreateDraft(ctx, input)
	if err != nil {
		return nil, err
	}
	common.AuditRecipient(ctx, draft.To)

	return mcp.NewToolResultText(gmail.FormatDraft(draft)), nil
}
