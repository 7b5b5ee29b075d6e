package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/teemow/inboxbrief/internal/apperrors"
	"github.com/teemow/inboxbrief/internal/logging"
)

const apiPrefix = "/gmail/v1/users/me/"

// fakeGmailAPI serves messages.list, messages.get and drafts.create.
type fakeGmailAPI struct {
	mu sync.Mutex

	messages map[string]map[string]interface{}
	order    []string

	// badRequestIDs answer with Gmail's 400 "Invalid id value".
	badRequestIDs map[string]bool

	listQueries []map[string][]string
	getQueries  []map[string][]string
	drafts      []map[string]interface{}
}

func newFakeGmailAPI() *fakeGmailAPI {
	return &fakeGmailAPI{messages: map[string]map[string]interface{}{}, badRequestIDs: map[string]bool{}}
}

func (f *fakeGmailAPI) add(msg map[string]interface{}) {
	id := msg["id"].(string)
	f.messages[id] = msg
	f.order = append(f.order, id)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{"code": status, "message": message},
	})
}

func (f *fakeGmailAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	path := strings.TrimPrefix(r.URL.Path, apiPrefix)

	switch {
	case r.Method == http.MethodGet && path == "messages":
		f.listQueries = append(f.listQueries, r.URL.Query())
		refs := []map[string]string{}
		for _, id := range f.order {
			refs = append(refs, map[string]string{"id": id, "threadId": "t-" + id})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"messages": refs})

	case r.Method == http.MethodGet && strings.HasPrefix(path, "messages/"):
		id := strings.TrimPrefix(path, "messages/")
		f.getQueries = append(f.getQueries, r.URL.Query())
		if f.badRequestIDs[id] {
			writeError(w, http.StatusBadRequest, "Invalid id value")
			return
		}
		msg, ok := f.messages[id]
		if !ok {
			writeError(w, http.StatusNotFound, "Requested entity was not found.")
			return
		}
		_ = json.NewEncoder(w).Encode(msg)

	case r.Method == http.MethodPost && path == "drafts":
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.drafts = append(f.drafts, body)
		threadID, _ := body["message"].(map[string]interface{})["threadId"].(string)
		if threadID == "" {
			threadID = "t-new"
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "draft-1",
			"message": map[string]interface{}{"id": "m-draft", "threadId": threadID},
		})

	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, api http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	client, err := NewClient(context.Background(), srv.Client(),
		WithServiceOptions(option.WithEndpoint(srv.URL+"/")),
		WithLogger(logging.Discard()))
	require.NoError(t, err)
	return client
}

func headers(kv ...string) []map[string]string {
	var out []map[string]string
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, map[string]string{"name": kv[i], "value": kv[i+1]})
	}
	return out
}

func encode(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func TestListMessages(t *testing.T) {
	api := newFakeGmailAPI()
	api.add(map[string]interface{}{
		"id": "m1", "threadId": "t1", "snippet": "Lunch tomorrow?",
		"labelIds": []string{"INBOX", "UNREAD"},
		"payload":  map[string]interface{}{"headers": headers("From", "alice@example.com", "Subject", "Lunch", "Date", "Mon, 2 Mar 2026 09:00:00 +0000")},
	})
	api.add(map[string]interface{}{
		"id": "m2", "threadId": "t2", "snippet": "Minutes attached",
		"labelIds": []string{"INBOX"},
		"payload":  map[string]interface{}{"headers": headers("from", "bob@example.com", "subject", "Minutes")},
	})
	client := newTestClient(t, api)

	messages, err := client.ListMessages(context.Background(), 5, "")
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, MessageSummary{
		ID: "m1", ThreadID: "t1", Date: "Mon, 2 Mar 2026 09:00:00 +0000",
		From: "alice@example.com", Subject: "Lunch", Snippet: "Lunch tomorrow?", Unread: true,
	}, messages[0])
	assert.False(t, messages[1].Unread)
	assert.Equal(t, "bob@example.com", messages[1].From)

	require.Len(t, api.listQueries, 1)
	q := api.listQueries[0]
	assert.Equal(t, []string{"INBOX"}, q["labelIds"])
	assert.Equal(t, []string{"5"}, q["maxResults"])
	assert.Equal(t, []string{"false"}, q["includeSpamTrash"])

	require.Len(t, api.getQueries, 2)
	assert.Equal(t, []string{"metadata"}, api.getQueries[0]["format"])
	assert.ElementsMatch(t, []string{"From", "Subject", "Date"}, api.getQueries[0]["metadataHeaders"])
}

func TestListMessages_LabelAndLimit(t *testing.T) {
	api := newFakeGmailAPI()
	for _, id := range []string{"a", "b", "c"} {
		api.add(map[string]interface{}{"id": id, "labelIds": []string{"UNREAD"}})
	}
	client := newTestClient(t, api)

	messages, err := client.ListMessages(context.Background(), 2, "UNREAD")
	require.NoError(t, err)
	assert.Len(t, messages, 2)
	assert.Equal(t, []string{"UNREAD"}, api.listQueries[0]["labelIds"])
}

func TestListMessages_Empty(t *testing.T) {
	client := newTestClient(t, newFakeGmailAPI())

	messages, err := client.ListMessages(context.Background(), 10, "")
	require.NoError(t, err)
	assert.Empty(t, messages)
	assert.Equal(t, "No messages found.", FormatMessageList(messages))
}

func TestGetMessage_Body(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]interface{}
		want    string
	}{
		{
			name: "plain text preferred over html",
			payload: map[string]interface{}{
				"mimeType": "multipart/alternative",
				"parts": []interface{}{
					map[string]interface{}{"mimeType": "text/html", "body": map[string]interface{}{"data": encode("<p>hi</p>")}},
					map[string]interface{}{"mimeType": "text/plain", "body": map[string]interface{}{"data": encode("hi")}},
				},
			},
			want: "hi",
		},
		{
			name: "nested html",
			payload: map[string]interface{}{
				"mimeType": "multipart/mixed",
				"parts": []interface{}{
					map[string]interface{}{
						"mimeType": "multipart/alternative",
						"parts": []interface{}{
							map[string]interface{}{"mimeType": "text/html", "body": map[string]interface{}{"data": encode("<b>bold</b>")}},
						},
					},
				},
			},
			want: "<b>bold</b>",
		},
		{
			name: "single part body",
			payload: map[string]interface{}{
				"mimeType": "text/plain",
				"body":     map[string]interface{}{"data": base64.RawURLEncoding.EncodeToString([]byte("unpadded?"))},
			},
			want: "unpadded?",
		},
		{
			name:    "snippet fallback",
			payload: map[string]interface{}{"mimeType": "multipart/mixed"},
			want:    "the snippet",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeGmailAPI()
			tt.payload["headers"] = headers("From", "alice@example.com", "To", "me@example.com", "Subject", "Hello")
			api.add(map[string]interface{}{
				"id": "m1", "threadId": "t1", "snippet": "the snippet",
				"labelIds": []string{"INBOX"}, "payload": tt.payload,
			})
			client := newTestClient(t, api)

			msg, err := client.GetMessage(context.Background(), "m1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, msg.Body)
			assert.Equal(t, "me@example.com", msg.To)
			assert.Equal(t, []string{"full"}, api.getQueries[0]["format"])
		})
	}
}

func TestGetMessage_NotFound(t *testing.T) {
	api := newFakeGmailAPI()
	api.badRequestIDs["deadbeef"] = true
	client := newTestClient(t, api)

	tests := []struct {
		name       string
		id         string
		wantCalled bool
	}{
		{name: "unknown id", id: "abc123", wantCalled: true},
		{name: "invalid id value", id: "deadbeef", wantCalled: true},
		{name: "malformed id", id: "../../etc/passwd"},
		{name: "empty id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(api.getQueries)

			_, err := client.GetMessage(context.Background(), tt.id)
			require.Error(t, err)
			assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
			assert.True(t, strings.HasPrefix(apperrors.Describe(err), "Not found: "))
			assert.Equal(t, tt.wantCalled, len(api.getQueries) > before)
		})
	}
}

func decodeDraft(t *testing.T, draft map[string]interface{}) (raw string, threadID string) {
	t.Helper()
	msg := draft["message"].(map[string]interface{})
	data, err := base64.URLEncoding.DecodeString(msg["raw"].(string))
	require.NoError(t, err)
	threadID, _ = msg["threadId"].(string)
	return string(data), threadID
}

func TestCreateDraft_New(t *testing.T) {
	api := newFakeGmailAPI()
	client := newTestClient(t, api)

	draft, err := client.CreateDraft(context.Background(), DraftInput{
		To:      "carol@example.com",
		Subject: "Grüße",
		Body:    "Hello Carol",
	})
	require.NoError(t, err)
	assert.Equal(t, "draft-1", draft.ID)
	assert.Equal(t, "m-draft", draft.MessageID)

	require.Len(t, api.drafts, 1)
	raw, threadID := decodeDraft(t, api.drafts[0])
	assert.Empty(t, threadID)
	assert.Contains(t, raw, "To: carol@example.com\r\n")
	assert.Contains(t, raw, "Subject: =?UTF-8?b?")
	assert.NotContains(t, raw, "In-Reply-To")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nHello Carol"))
}

func TestCreateDraft_Reply(t *testing.T) {
	api := newFakeGmailAPI()
	api.add(map[string]interface{}{
		"id": "orig", "threadId": "thread-9",
		"payload": map[string]interface{}{"headers": headers(
			"From", "Alice <alice@example.com>",
			"Reply-To", "list@example.com",
			"Subject", "RE: Budget",
			"Message-ID", "<m2@example.com>",
			"References", "<m1@example.com>",
		)},
	})
	client := newTestClient(t, api)

	draft, err := client.CreateDraft(context.Background(), DraftInput{Body: "Sounds good", ReplyToID: "orig"})
	require.NoError(t, err)
	assert.Equal(t, "list@example.com", draft.To)
	assert.Equal(t, "RE: Budget", draft.Subject)
	assert.Equal(t, "thread-9", draft.ThreadID)

	raw, threadID := decodeDraft(t, api.drafts[0])
	assert.Equal(t, "thread-9", threadID)
	assert.Contains(t, raw, "To: list@example.com\r\n")
	assert.Contains(t, raw, "Subject: RE: Budget\r\n")
	assert.Contains(t, raw, "In-Reply-To: <m2@example.com>\r\n")
	assert.Contains(t, raw, "References: <m1@example.com> <m2@example.com>\r\n")
}

func TestCreateDraft_ReplyFallsBackToFrom(t *testing.T) {
	api := newFakeGmailAPI()
	api.add(map[string]interface{}{
		"id": "orig", "threadId": "thread-1",
		"payload": map[string]interface{}{"headers": headers(
			"From", "Alice <alice@example.com>",
			"Subject", "Budget",
			"Message-ID", "<m1@example.com>",
		)},
	})
	client := newTestClient(t, api)

	draft, err := client.CreateDraft(context.Background(), DraftInput{Body: "ok", ReplyToID: "orig"})
	require.NoError(t, err)
	assert.Equal(t, "Alice <alice@example.com>", draft.To)
	assert.Equal(t, "Re: Budget", draft.Subject)

	raw, _ := decodeDraft(t, api.drafts[0])
	assert.Contains(t, raw, "References: <m1@example.com>\r\n")
}

func TestCreateDraft_ReplyEncodesDisplayName(t *testing.T) {
	api := newFakeGmailAPI()
	api.add(map[string]interface{}{
		"id": "orig", "threadId": "thread-1",
		"payload": map[string]interface{}{"headers": headers(
			"From", "Jürgen Groß <juergen@example.com>",
			"Subject", "Termin",
			"Message-ID", "<m1@example.com>",
		)},
	})
	client := newTestClient(t, api)

	draft, err := client.CreateDraft(context.Background(), DraftInput{Body: "ok", ReplyToID: "orig"})
	require.NoError(t, err)
	assert.Equal(t, "Jürgen Groß <juergen@example.com>", draft.To)

	raw, _ := decodeDraft(t, api.drafts[0])
	header, _, _ := strings.Cut(raw, "\r\n\r\n")
	for _, r := range header {
		require.LessOrEqual(t, r, rune(127), "non-ASCII byte in headers:\n%s", header)
	}
	assert.Contains(t, raw, "<juergen@example.com>\r\n")

	var to string
	for _, line := range strings.Split(header, "\r\n") {
		if v, ok := strings.CutPrefix(line, "To: "); ok {
			to = v
		}
	}
	decoded, err := mail.ParseAddress(to)
	require.NoError(t, err)
	assert.Equal(t, "Jürgen Groß", decoded.Name)
	assert.Equal(t, "juergen@example.com", decoded.Address)
}

func TestEncodeAddressList(t *testing.T) {
	assert.Equal(t, "carol@example.com", encodeAddressList("carol@example.com"))
	assert.Equal(t, "a@example.com, b@example.com", encodeAddressList("a@example.com, b@example.com"))
	assert.Equal(t, `"Alice" <alice@example.com>`, encodeAddressList("Alice <alice@example.com>"))

	injected := "a@example.com\r\nBcc: victim@example.com"
	assert.Equal(t, injected, encodeAddressList(injected))
}

func TestCreateDraft_Errors(t *testing.T) {
	api := newFakeGmailAPI()
	client := newTestClient(t, api)

	tests := []struct {
		name     string
		input    DraftInput
		wantKind apperrors.Kind
	}{
		{name: "missing body", input: DraftInput{To: "a@example.com"}, wantKind: apperrors.KindUnknown},
		{name: "missing recipient", input: DraftInput{Body: "hi"}, wantKind: apperrors.KindUnknown},
		{name: "unknown original", input: DraftInput{Body: "hi", ReplyToID: "missing"}, wantKind: apperrors.KindNotFound},
		{name: "malformed original", input: DraftInput{Body: "hi", ReplyToID: "a b"}, wantKind: apperrors.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.CreateDraft(context.Background(), tt.input)
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, apperrors.KindOf(err))
		})
	}
	assert.Empty(t, api.drafts)
}
