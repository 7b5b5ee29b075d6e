package google

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teemow/inboxbrief/internal/apperrors"
)

// LoadClientConfig reads the OAuth client secret JSON at path. Without
// explicit scopes, DefaultOAuthScopes are requested.
func LoadClientConfig(path string, scopes ...string) (*oauth2.Config, error) {
	if path == "" {
		return nil, apperrors.NewConfigurationError("no credentials file configured", nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NewConfigurationError(
				fmt.Sprintf("credentials file %s not found; download an OAuth client secret for a desktop app from the Google Cloud console", path), err)
		}
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("failed to read credentials file %s", path), err)
	}

	if len(scopes) == 0 {
		scopes = DefaultOAuthScopes
	}

	conf, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("invalid credentials file %s", path), err)
	}

	return conf, nil
}
