package google

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/teemow/inboxbrief/internal/logging"
)

func TestWatchTokenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token.json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 16)
	require.NoError(t, WatchTokenFile(ctx, path, logging.Discard(), func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}))

	// unrelated files in the same directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0600))
	select {
	case <-changed:
		t.Fatal("unexpected notification for an unrelated file")
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, NewFileTokenStore(path).Save(&oauth2.Token{AccessToken: "a"}))

	select {
	case <-changed:
	case <-time.After(2 * time.Second):
		t.Fatal("no notification after the token file was saved")
	}
}

func TestWatchTokenFile_MissingDirectory(t *testing.T) {
	err := WatchTokenFile(context.Background(), filepath.Join(t.TempDir(), "absent", "token.json"), nil, func() {})
	assert.Error(t, err)
}
