package google

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxbrief/internal/apperrors"
)

func TestLoadClientConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeCredentials(t, dir, "https://oauth2.example.com/token")

	conf, err := LoadClientConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "test-client.apps.googleusercontent.com", conf.ClientID)
	assert.Equal(t, "test-secret", conf.ClientSecret)
	assert.Equal(t, "https://oauth2.example.com/token", conf.Endpoint.TokenURL)
	assert.Equal(t, DefaultOAuthScopes, conf.Scopes)

	conf, err = LoadClientConfig(path, "https://www.googleapis.com/auth/gmail.readonly")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://www.googleapis.com/auth/gmail.readonly"}, conf.Scopes)
}

func TestLoadClientConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	invalid := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"something":"else"}`), 0600))

	tests := []struct {
		name string
		path string
	}{
		{"empty path", ""},
		{"missing file", filepath.Join(dir, "absent.json")},
		{"not a client secret", invalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadClientConfig(tt.path)
			require.Error(t, err)
			assert.Equal(t, apperrors.KindConfiguration, apperrors.KindOf(err))
		})
	}
}

func TestDefaultOAuthScopes(t *testing.T) {
	assert.ElementsMatch(t, []string{
		"https://www.googleapis.com/auth/calendar.readonly",
		"https://www.googleapis.com/auth/gmail.readonly",
		"https://www.googleapis.com/auth/gmail.compose",
	}, DefaultOAuthScopes)
}
