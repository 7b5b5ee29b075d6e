package gmail_tools

import (
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/inboxbrief/internal/server"
)

// Tool names.
const (
	ToolListInboxMessages = "list_inbox_messages"
	ToolGetMessage        = "get_message"
	ToolCreateDraft       = "create_draft"
)

// RegisterGmailTools registers all Gmail-related tools with the MCP server.
// create_draft is skipped when sc is read-only.
func RegisterGmailTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if err := RegisterMessageTools(s, sc); err != nil {
		return fmt.Errorf("failed to register message tools: %w", err)
	}

	if sc.ReadOnly() {
		sc.Logger().Info("read-only mode, draft tools not registered")
		return nil
	}

	if err := RegisterDraftTools(s, sc); err != nil {
		return fmt.Errorf("failed to register draft tools: %w", err)
	}

	return nil
}
