package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/inboxbrief/internal/config"
	"github.com/teemow/inboxbrief/internal/resources"
	"github.com/teemow/inboxbrief/internal/server"
	"github.com/teemow/inboxbrief/internal/tools/calendar_tools"
	"github.com/teemow/inboxbrief/internal/tools/gmail_tools"
)

func registerAllTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Gmail",
			register: func() error {
				return gmail_tools.RegisterGmailTools(mcpSrv, sc)
			},
		},
		{
			name: "Calendar",
			register: func() error {
				return calendar_tools.RegisterCalendarTools(mcpSrv, sc)
			},
		},
		{
			name: "user resources",
			register: func() error {
				return resources.RegisterUserResources(mcpSrv, sc)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}

	return nil
}

func newMCPServer() *mcpserver.MCPServer {
	return mcpserver.NewMCPServer("inboxbrief", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false),
	)
}

// cliSession runs MCP tools in-process for the CLI commands, so their output
// matches what an assistant receives.
type cliSession struct {
	cfg    config.Config
	logger *slog.Logger
	sc     *server.ServerContext
	mcp    *mcpserver.MCPServer
}

// sessionFactory builds the ServerContext for CLI commands. Tests replace it
// to point the clients at fake Google APIs.
var sessionFactory = func(ctx context.Context, cmd *cobra.Command, cfg config.Config, logger *slog.Logger) (*server.ServerContext, error) {
	return server.NewServerContext(ctx, cfg, newAuthorizer(cmd, cfg, logger, nil), server.WithLogger(logger))
}

func (o *rootOptions) openSession(cmd *cobra.Command) (*cliSession, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := o.logger(cmd)

	sc, err := sessionFactory(cmd.Context(), cmd, cfg, logger)
	if err != nil {
		return nil, err
	}

	s := newMCPServer()
	if err := registerAllTools(s, sc); err != nil {
		_ = sc.Shutdown()
		return nil, err
	}

	return &cliSession{cfg: cfg, logger: logger, sc: sc, mcp: s}, nil
}

func (s *cliSession) Close() error {
	return s.sc.Shutdown()
}

// callTool invokes a registered tool and returns its text. An error result
// becomes a Go error carrying the same text.
func (s *cliSession) callTool(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	tool, ok := s.mcp.ListTools()[name]
	if !ok {
		return "", fmt.Errorf("tool %s is not available", name)
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := tool.Handler(ctx, req)
	if err != nil {
		return "", err
	}

	text := resultText(result)
	if result.IsError {
		return "", errors.New(text)
	}
	return text, nil
}

func resultText(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	var out string
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			out += tc.Text
		}
	}
	return out
}
