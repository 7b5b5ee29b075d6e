package cmd

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"google.golang.org/api/option"

	"github.com/teemow/inboxbrief/internal/calendar"
	"github.com/teemow/inboxbrief/internal/config"
	"github.com/teemow/inboxbrief/internal/gmail"
	"github.com/teemow/inboxbrief/internal/server"
)

// isolateEnv points every config lookup at an empty temporary directory.
func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, key := range []string{
		config.EnvConfigPath,
		config.EnvCredentialsPath,
		config.EnvTokenPath,
		config.EnvDefaultCalendarEntries,
		config.EnvDefaultEmailEntries,
		config.EnvInteractiveAuth,
	} {
		t.Setenv(key, "")
	}
	return dir
}

// execute runs the command tree with args and returns what it printed.
func execute(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer

	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)

	err = root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

type stubAuthorizer struct{}

func (stubAuthorizer) HTTPClient(context.Context) (*http.Client, error) {
	return http.DefaultClient, nil
}

func (stubAuthorizer) HasToken() bool { return true }

func (stubAuthorizer) TokenPath() string { return "token.json" }

// fakeGoogle serves the Gmail and Calendar endpoints the tools use.
type fakeGoogle struct {
	mu     sync.Mutex
	drafts []string
}

func (f *fakeGoogle) handler() http.Handler {
	mux := http.NewServeMux()

	writeJSON := func(w http.ResponseWriter, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}

	mux.HandleFunc("/gmail/v1/users/me/messages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"messages": []map[string]string{{"id": "m1", "threadId": "t1"}}})
	})
	mux.HandleFunc("/gmail/v1/users/me/messages/", func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimPrefix(r.URL.Path, "/gmail/v1/users/me/messages/") != "m1" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"error": map[string]interface{}{"code": 404, "message": "Requested entity was not found."}})
			return
		}
		writeJSON(w, map[string]interface{}{
			"id": "m1", "threadId": "t1", "snippet": "Lunch tomorrow?",
			"labelIds": []string{"INBOX", "UNREAD"},
			"payload": map[string]interface{}{
				"mimeType": "text/plain",
				"headers": []map[string]string{
					{"name": "From", "value": "alice@example.com"},
					{"name": "Subject", "value": "Lunch"},
					{"name": "Message-ID", "value": "<m1@example.com>"},
				},
				"body": map[string]interface{}{"data": base64.URLEncoding.EncodeToString([]byte("Shall we meet at noon?"))},
			},
		})
	})
	mux.HandleFunc("/gmail/v1/users/me/drafts", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Message struct {
				Raw      string `json:"raw"`
				ThreadID string `json:"threadId"`
			} `json:"message"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		raw, _ := base64.URLEncoding.DecodeString(body.Message.Raw)
		f.mu.Lock()
		f.drafts = append(f.drafts, string(raw))
		f.mu.Unlock()
		writeJSON(w, map[string]interface{}{"id": "d1", "message": map[string]interface{}{"id": "dm1", "threadId": body.Message.ThreadID}})
	})
	mux.HandleFunc("/users/me/calendarList", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"items": []interface{}{map[string]interface{}{"id": "primary", "primary": true, "timeZone": "UTC"}}})
	})
	mux.HandleFunc("/calendars/primary/events", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"timeZone": "UTC",
			"items": []interface{}{map[string]interface{}{
				"id": "e1", "summary": "Standup",
				"start":   map[string]interface{}{"dateTime": "2030-01-07T09:00:00Z"},
				"creator": map[string]interface{}{"email": "lead@example.com"},
			}},
		})
	})

	return mux
}

func (f *fakeGoogle) Drafts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.drafts...)
}

// useFakeGoogle routes CLI sessions to a fake Google backend.
func useFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	fake := &fakeGoogle{}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	prev := sessionFactory
	sessionFactory = func(ctx context.Context, cmd *cobra.Command, cfg config.Config, logger *slog.Logger) (*server.ServerContext, error) {
		return server.NewServerContext(ctx, cfg, stubAuthorizer{},
			server.WithLogger(logger),
			server.WithGmailOptions(gmail.WithServiceOptions(option.WithEndpoint(srv.URL+"/"))),
			server.WithCalendarOptions(calendar.WithServiceOptions(option.WithEndpoint(srv.URL+"/"))),
		)
	}
	t.Cleanup(func() { sessionFactory = prev })

	return fake
}
