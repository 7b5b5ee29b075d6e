package google

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// ErrNoToken is returned by FileTokenStore.Load when no token file exists.
var ErrNoToken = errors.New("no stored token")

// FileTokenStore persists a single OAuth token as JSON.
//
// Load accepts two layouts: the oauth2.Token layout written by Save, and the
// authorized-user layout written by Google's Python client library
// ({"token": ..., "refresh_token": ..., "expiry": ...}).
type FileTokenStore struct {
	Path string
}

// NewFileTokenStore creates a store for the token file at path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{Path: path}
}

// storedToken covers both on-disk layouts.
type storedToken struct {
	AccessToken  string `json:"access_token,omitempty"`
	Token        string `json:"token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Expiry       string `json:"expiry,omitempty"`
}

// expiryLayouts are tried in order. The last one matches the naive UTC
// timestamps written by older versions of the Python client.
var expiryLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// Exists reports whether the token file is present.
func (s *FileTokenStore) Exists() bool {
	_, err := os.Stat(s.Path)
	return err == nil
}

// Load reads the stored token. It returns an error wrapping ErrNoToken when
// the file does not exist.
func (s *FileTokenStore) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrNoToken, s.Path)
		}
		return nil, fmt.Errorf("failed to read token file %s: %w", s.Path, err)
	}

	var st storedToken
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse token file %s: %w", s.Path, err)
	}

	tok := &oauth2.Token{
		AccessToken:  st.AccessToken,
		TokenType:    st.TokenType,
		RefreshToken: st.RefreshToken,
	}
	if tok.AccessToken == "" {
		tok.AccessToken = st.Token
	}
	if tok.TokenType == "" {
		tok.TokenType = "Bearer"
	}
	if tok.AccessToken == "" && tok.RefreshToken == "" {
		return nil, fmt.Errorf("token file %s holds neither an access token nor a refresh token", s.Path)
	}

	if st.Expiry != "" {
		expiry, err := parseExpiry(st.Expiry)
		if err != nil {
			return nil, fmt.Errorf("invalid expiry in token file %s: %w", s.Path, err)
		}
		tok.Expiry = expiry
	}

	return tok, nil
}

func parseExpiry(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	var firstErr error
	for _, layout := range expiryLayouts {
		t, err := time.Parse(layout, v)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// Save writes tok atomically with owner-only permissions. The parent
// directory is created when missing.
func (s *FileTokenStore) Save(tok *oauth2.Token) error {
	if tok == nil {
		return errors.New("cannot save a nil token")
	}

	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temporary token file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set token file permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	if err := os.Rename(tmpName, s.Path); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}

// Delete removes the token file. A missing file is not an error.
func (s *FileTokenStore) Delete() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete token file: %w", err)
	}
	return nil
}
