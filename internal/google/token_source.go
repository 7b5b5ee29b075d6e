package google

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"

	"github.com/teemow/inboxbrief/internal/apperrors"
	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/logging"
)

// persistingTokenSource writes every refreshed token back to the store.
type persistingTokenSource struct {
	mu      sync.Mutex
	ctx     context.Context
	base    oauth2.TokenSource
	store   *FileTokenStore
	last    *oauth2.Token
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

func newPersistingTokenSource(ctx context.Context, conf *oauth2.Config, tok *oauth2.Token, store *FileTokenStore, metrics *instrumentation.Metrics, logger *slog.Logger) *persistingTokenSource {
	return &persistingTokenSource{
		ctx:     ctx,
		base:    conf.TokenSource(ctx, tok),
		store:   store,
		last:    tok,
		metrics: metrics,
		logger:  logger,
	}
}

// Token returns a valid access token, refreshing it when expired.
func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, err := s.base.Token()
	if err != nil {
		s.metrics.RecordOAuthTokenRefresh(s.ctx, instrumentation.OAuthResultFailure)
		s.logger.Warn("token refresh failed", logging.Path(s.store.Path), logging.Err(err))
		return nil, apperrors.NewAuthorizationError(
			"failed to refresh the stored token; it may have been revoked, run `inboxbrief auth login` to re-authorize", err)
	}

	if s.last != nil && tok.AccessToken == s.last.AccessToken {
		return tok, nil
	}

	s.metrics.RecordOAuthTokenRefresh(s.ctx, instrumentation.OAuthResultSuccess)

	if err := s.store.Save(tok); err != nil {
		// The refreshed token still works for this session.
		s.logger.Warn("failed to persist refreshed token", logging.Path(s.store.Path), logging.Err(err))
	} else {
		s.logger.Debug("refreshed token persisted",
			logging.Path(s.store.Path),
			slog.String("access_token", logging.SanitizeToken(tok.AccessToken)),
			slog.Time("expiry", tok.Expiry))
	}

	s.last = tok
	return tok, nil
}
