package google

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/teemow/inboxbrief/internal/apperrors"
	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/logging"
)

// DefaultLoginTimeout bounds how long Login waits for the browser redirect.
const DefaultLoginTimeout = 5 * time.Minute

// AuthorizerConfig configures an Authorizer.
type AuthorizerConfig struct {
	CredentialsPath string
	TokenPath       string

	// Interactive allows HTTPClient to start the browser flow when no token
	// is stored.
	Interactive bool

	// Scopes defaults to DefaultOAuthScopes.
	Scopes []string

	// Prompt receives the authorization instructions. Defaults to stderr.
	Prompt io.Writer

	// Browser replaces OpenBrowser when HTTPClient starts the interactive flow.
	Browser func(authURL string) error

	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// Authorizer produces authorized HTTP clients for the Google APIs.
type Authorizer struct {
	credentialsPath string
	store           *FileTokenStore
	interactive     bool
	scopes          []string
	prompt          io.Writer
	browser         func(authURL string) error
	metrics         *instrumentation.Metrics
	logger          *slog.Logger
}

// NewAuthorizer creates an Authorizer.
func NewAuthorizer(cfg AuthorizerConfig) *Authorizer {
	prompt := cfg.Prompt
	if prompt == nil {
		prompt = os.Stderr
	}
	return &Authorizer{
		credentialsPath: cfg.CredentialsPath,
		store:           NewFileTokenStore(cfg.TokenPath),
		interactive:     cfg.Interactive,
		scopes:          cfg.Scopes,
		prompt:          prompt,
		browser:         cfg.Browser,
		metrics:         cfg.Metrics,
		logger:          logging.OrDefault(cfg.Logger),
	}
}

// TokenPath returns the path of the token file.
func (a *Authorizer) TokenPath() string {
	return a.store.Path
}

// HasToken reports whether a token file is present.
func (a *Authorizer) HasToken() bool {
	return a.store.Exists()
}

// OAuthConfig loads the OAuth client configuration from the credentials file.
func (a *Authorizer) OAuthConfig() (*oauth2.Config, error) {
	return LoadClientConfig(a.credentialsPath, a.scopes...)
}

// HTTPClient returns an HTTP client that authorizes requests with the stored
// token, refreshing and persisting it as needed. The token file is read on
// every call.
//
// Without a stored token, the interactive flow runs when enabled; otherwise
// an AuthorizationError is returned.
func (a *Authorizer) HTTPClient(ctx context.Context) (*http.Client, error) {
	conf, err := a.OAuthConfig()
	if err != nil {
		return nil, err
	}

	tok, err := a.store.Load()
	switch {
	case errors.Is(err, ErrNoToken):
		if !a.interactive {
			return nil, apperrors.NewAuthorizationError(
				fmt.Sprintf("no stored token at %s; run `inboxbrief auth login` first", a.store.Path), err)
		}
		tok, err = a.login(ctx, conf, LoginOptions{OpenBrowser: true, Browser: a.browser})
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, apperrors.NewAuthorizationError("stored token is unreadable; run `inboxbrief auth login` to replace it", err)
	}

	ts := newPersistingTokenSource(ctx, conf, tok, a.store, a.metrics, a.logger)
	return newHTTPClient(ctx, ts), nil
}

// newHTTPClient wraps ts in an oauth2 client. The base transport is pinned
// to HTTP/1.1 unless the context supplies its own client via oauth2.HTTPClient.
func newHTTPClient(ctx context.Context, ts oauth2.TokenSource) *http.Client {
	client := oauth2.NewClient(ctx, ts)

	if ctx.Value(oauth2.HTTPClient) != nil {
		return client
	}
	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			ForceAttemptHTTP2:   false,
			TLSNextProto:        map[string]func(string, *tls.Conn) http.RoundTripper{},
			TLSHandshakeTimeout: 10 * time.Second,
			IdleConnTimeout:     90 * time.Second,
		}
	}
	return client
}

// LoginOptions tunes the interactive authorization flow.
type LoginOptions struct {
	// Port for the loopback redirect listener. 0 picks a free port.
	Port int

	// Timeout defaults to DefaultLoginTimeout.
	Timeout time.Duration

	// OpenBrowser attempts to open the authorization URL in the default browser.
	OpenBrowser bool

	// Browser replaces the default browser launcher.
	Browser func(authURL string) error
}

// Login runs the interactive authorization flow and stores the resulting
// token, replacing any previous one.
func (a *Authorizer) Login(ctx context.Context, opts LoginOptions) (*oauth2.Token, error) {
	conf, err := a.OAuthConfig()
	if err != nil {
		return nil, err
	}
	return a.login(ctx, conf, opts)
}

func (a *Authorizer) login(ctx context.Context, conf *oauth2.Config, opts LoginOptions) (*oauth2.Token, error) {
	tok, err := a.runLoginFlow(ctx, conf, opts)
	if err != nil {
		a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		a.logger.Warn("authorization failed", logging.Err(err))
		return nil, err
	}
	a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)
	a.logger.Info("authorization complete", logging.Path(a.store.Path))
	return tok, nil
}

func (a *Authorizer) runLoginFlow(ctx context.Context, conf *oauth2.Config, opts LoginOptions) (*oauth2.Token, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultLoginTimeout
	}

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()

	callback := NewCallbackServer(opts.Port, state)
	if err := callback.Start(); err != nil {
		return nil, apperrors.NewAuthorizationError("failed to start the local authorization listener", err)
	}
	defer func() { _ = callback.Stop() }()

	loginConf := *conf
	loginConf.RedirectURL = callback.RedirectURI()

	authURL := loginConf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("prompt", "consent"),
	)

	_, _ = fmt.Fprintf(a.prompt, "Open this URL in your browser to authorize inboxbrief:\n\n%s\n\n", authURL)

	browser := opts.Browser
	if browser == nil && opts.OpenBrowser {
		browser = OpenBrowser
	}
	if browser != nil {
		if err := browser(authURL); err != nil {
			a.logger.Debug("could not open browser", logging.Err(err))
		}
	}

	code, err := callback.WaitForCode(ctx, timeout)
	if err != nil {
		return nil, apperrors.NewAuthorizationError("authorization was not completed", err)
	}

	tok, err := loginConf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, apperrors.NewAuthorizationError("failed to exchange the authorization code", err)
	}
	if tok.RefreshToken == "" {
		a.logger.Warn("Google returned no refresh token; the stored token will stop working when it expires")
	}

	if err := a.store.Save(tok); err != nil {
		return nil, fmt.Errorf("failed to save token: %w", err)
	}

	return tok, nil
}

// Logout deletes the stored token.
func (a *Authorizer) Logout() error {
	return a.store.Delete()
}

// TokenStatus describes the stored token without exposing it.
type TokenStatus struct {
	Path            string
	Exists          bool
	Valid           bool
	HasRefreshToken bool
	Expiry          time.Time
	Err             error
}

// Status inspects the stored token.
func (a *Authorizer) Status() TokenStatus {
	st := TokenStatus{Path: a.store.Path}

	tok, err := a.store.Load()
	if err != nil {
		if !errors.Is(err, ErrNoToken) {
			st.Exists = true
			st.Err = err
		}
		return st
	}

	st.Exists = true
	st.Valid = tok.Valid()
	st.HasRefreshToken = tok.RefreshToken != ""
	st.Expiry = tok.Expiry
	return st
}
