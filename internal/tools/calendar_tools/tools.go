package calendar_tools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxbrief/internal/calendar"
	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/server"
	"github.com/teemow/inboxbrief/internal/tools/common"
)

// ToolListUpcomingEvents is the name of the upcoming events tool.
const ToolListUpcomingEvents = "list_upcoming_events"

// now is replaced in tests.
var now = time.Now

// RegisterCalendarTools registers all Calendar-related tools with the MCP server
func RegisterCalendarTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	listTool := mcp.NewTool(ToolListUpcomingEvents,
		mcp.WithDescription("List upcoming events from all of the user's Google calendars, ordered by start time. Use this to answer questions about the user's schedule."),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of events to return (1-500). Omit or pass -1 for the configured default."),
		),
	)

	s.AddTool(listTool, common.InstrumentedToolHandlerWithService(
		ToolListUpcomingEvents, instrumentation.ServiceCalendar, instrumentation.OperationList, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleListUpcomingEvents(ctx, request, sc)
		}))

	return nil
}

func handleListUpcomingEvents(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	limit, err := common.ParseLimit(request.GetArguments(), "limit", sc.Config().DefaultCalendarEntries)
	if err != nil {
		return nil, err
	}

	client, err := sc.CalendarClient(ctx)
	if err != nil {
		return nil, err
	}

	events, err := client.ListUpcomingEvents(ctx, limit)
	if err != nil {
		return nil, err
	}
	instrumentation.RecordResultCount(ctx, len(events))

	return mcp.NewToolResultText(calendar.FormatUpcoming(now(), events)), nil
}
