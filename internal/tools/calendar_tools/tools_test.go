package calendar_tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/teemow/inboxbrief/internal/calendar"
	"github.com/teemow/inboxbrief/internal/config"
	"github.com/teemow/inboxbrief/internal/logging"
	"github.com/teemow/inboxbrief/internal/server"
)

type stubAuthorizer struct {
	err error
}

func (a stubAuthorizer) HTTPClient(context.Context) (*http.Client, error) {
	if a.err != nil {
		return nil, a.err
	}
	return http.DefaultClient, nil
}
func (stubAuthorizer) HasToken() bool    { return true }
func (stubAuthorizer) TokenPath() string { return "token.json" }

// fakeCalendar serves one primary calendar with three timed events.
func fakeCalendar(t *testing.T, maxResults *string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/users/me/calendarList", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"items": []interface{}{map[string]interface{}{"id": "primary", "summary": "Me", "primary": true, "timeZone": "UTC"}},
		})
	})
	mux.HandleFunc("/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		if maxResults != nil {
			*maxResults = r.URL.Query().Get("maxResults")
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"timeZone": "UTC",
			"items": []interface{}{
				map[string]interface{}{"id": "e1", "summary": "Standup", "start": map[string]interface{}{"dateTime": "2026-03-02T09:00:00Z"}, "creator": map[string]interface{}{"email": "lead@example.com"}},
				map[string]interface{}{"id": "e2", "summary": "Lunch", "start": map[string]interface{}{"dateTime": "2026-03-02T12:00:00Z"}},
				map[string]interface{}{"id": "e3", "start": map[string]interface{}{"date": "2026-03-03"}},
			},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, auth server.Authorizer, endpoint string) *mcpserver.MCPServer {
	t.Helper()
	sc, err := server.NewServerContext(context.Background(), config.Default(), auth,
		server.WithLogger(logging.Discard()),
		server.WithCalendarOptions(
			calendar.WithServiceOptions(option.WithEndpoint(endpoint+"/")),
			calendar.WithLogger(logging.Discard()),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithToolCapabilities(true))
	require.NoError(t, RegisterCalendarTools(s, sc))
	return s
}

func callTool(t *testing.T, s *mcpserver.MCPServer, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	tool, ok := s.ListTools()[ToolListUpcomingEvents]
	require.True(t, ok, "tool not registered")

	req := mcp.CallToolRequest{}
	req.Params.Name = ToolListUpcomingEvents
	req.Params.Arguments = args

	result, err := tool.Handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestListUpcomingEvents(t *testing.T) {
	fixed := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = time.Now })

	var maxResults string
	srv := fakeCalendar(t, &maxResults)
	s := newTestServer(t, stubAuthorizer{}, srv.URL)

	result := callTool(t, s, map[string]interface{}{"limit": float64(2)})
	require.False(t, result.IsError, text(t, result))

	out := text(t, result)
	assert.Equal(t, "2", maxResults)
	assert.Contains(t, out, "Today is 2026-03-02T08:00:00Z")
	assert.Contains(t, out, "Summary: Standup, Creator: lead@example.com")
	assert.Contains(t, out, "Summary: Lunch, Creator: Unknown")
	assert.NotContains(t, out, "(No title)")
}

func TestListUpcomingEvents_DefaultLimit(t *testing.T) {
	var maxResults string
	srv := fakeCalendar(t, &maxResults)
	s := newTestServer(t, stubAuthorizer{}, srv.URL)

	for _, args := range []map[string]interface{}{nil, {"limit": float64(-1)}} {
		result := callTool(t, s, args)
		require.False(t, result.IsError, text(t, result))
		assert.Equal(t, "10", maxResults)
	}
}

func TestListUpcomingEvents_InvalidLimit(t *testing.T) {
	srv := fakeCalendar(t, nil)
	s := newTestServer(t, stubAuthorizer{}, srv.URL)

	for _, limit := range []interface{}{float64(0), float64(501), "many"} {
		result := callTool(t, s, map[string]interface{}{"limit": limit})
		assert.True(t, result.IsError, "limit %v", limit)
	}
}

func TestListUpcomingEvents_AuthorizationFailure(t *testing.T) {
	srv := fakeCalendar(t, nil)
	s := newTestServer(t, stubAuthorizer{err: assert.AnError}, srv.URL)

	result := callTool(t, s, nil)
	assert.True(t, result.IsError)
	assert.Contains(t, text(t, result), assert.AnError.Error())
}
