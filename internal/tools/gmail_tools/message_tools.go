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

// RegisterMessageTools registers the read-only message tools.
func RegisterMessageTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listTool := mcp.NewTool(ToolListInboxMessages,
		mcp.WithDescription("List the most recent messages in the user's Gmail inbox with sender, subject, date, a short snippet and whether each is unread. Use get_message to read a full message."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of messages to return (1-500). Omit or pass -1 for the configured default."),
		),
		mcp.WithString("label_id",
			mcp.Description("Gmail label to list instead of INBOX (e.g. UNREAD, STARRED, or a user label ID)"),
		),
	)

	s.AddTool(listTool, common.InstrumentedToolHandlerWithService(
		ToolListInboxMessages, instrumentation.ServiceGmail, instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListInboxMessages(ctx, request, sc)
		}))

	getTool := mcp.NewTool(ToolGetMessage,
		mcp.WithDescription("Get the full content of a Gmail message by its ID, as returned by list_inbox_messages."),
		mcp.WithString("message_id",
			mcp.Required(),
			mcp.Description("The ID of the message to retrieve"),
		),
	)

	s.AddTool(getTool, common.InstrumentedToolHandlerWithService(
		ToolGetMessage, instrumentation.ServiceGmail, instrumentation.OperationGet, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetMessage(ctx, request, sc)
		}))

	return nil
}

func handleListInboxMessages(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	limit, err := common.ParseLimit(args, "limit", sc.Config().DefaultEmailEntries)
	if err != nil {
		return nil, err
	}

	client, err := sc.GmailClient(ctx)
	if err != nil {
		return nil, err
	}

	messages, err := client.ListMessages(ctx, limit, common.StringArg(args, "label_id"))
	if err != nil {
		return nil, err
	}
	instrumentation.RecordResultCount(ctx, len(messages))

	return mcp.NewToolResultText(gmail.FormatMessageList(messages)), nil
}

func handleGetMessage(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	id, err := common.RequiredStringArg(request.GetArguments(), "message_id")
	if err != nil {
		return nil, err
	}
	common.AuditResource(ctx, id)

	client, err := sc.GmailClient(ctx)
	if err != nil {
		return nil, err
	}

	msg, err := client.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}

	return mcp.NewToolResultText(gmail.FormatMessage(msg)), nil
}
