package google

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeTokenEndpoint is an OAuth token endpoint that records the forms it receives.
type fakeTokenEndpoint struct {
	mu       sync.Mutex
	requests []map[string]string
	status   int
	response map[string]interface{}
}

func (f *fakeTokenEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	form := map[string]string{}
	for k := range r.PostForm {
		form[k] = r.PostForm.Get(k)
	}

	f.mu.Lock()
	f.requests = append(f.requests, form)
	status, response := f.status, f.response
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}

func (f *fakeTokenEndpoint) calls() []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]string(nil), f.requests...)
}

// newTokenServer starts a fake token endpoint answering with response.
func newTokenServer(t *testing.T, status int, response map[string]interface{}) (*httptest.Server, *fakeTokenEndpoint) {
	t.Helper()
	endpoint := &fakeTokenEndpoint{status: status, response: response}
	srv := httptest.NewServer(endpoint)
	t.Cleanup(srv.Close)
	return srv, endpoint
}

// writeCredentials writes an installed-app client secret whose token URI
// points at tokenURL.
func writeCredentials(t *testing.T, dir, tokenURL string) string {
	t.Helper()
	content := map[string]interface{}{
		"installed": map[string]interface{}{
			"client_id":     "test-client.apps.googleusercontent.com",
			"client_secret": "test-secret",
			"auth_uri":      "https://accounts.example.com/o/oauth2/auth",
			"token_uri":     tokenURL,
			"redirect_uris": []string{"http://localhost"},
		},
	}
	data, err := json.Marshal(content)
	require.NoError(t, err)

	path := filepath.Join(dir, "credentials.json")
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}
