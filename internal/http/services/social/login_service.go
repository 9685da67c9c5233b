package social

import (
	"context"
	"net/url"

	"github.com/sgarciab/authbridge/internal/metrics"
	"github.com/sgarciab/authbridge/internal/oauth"
	"github.com/sgarciab/authbridge/internal/observability/logger"
	"github.com/sgarciab/authbridge/internal/session"
)

// RedirectParam is the query parameter carrying the requested post-login
// target on the login action.
const RedirectParam = "redirect"

// pendingRedirectKey is the session key holding the validated target between
// the login redirect and the provider callback.
const pendingRedirectKey = "login_redirect"

// LoginDeps contains dependencies for the login service.
type LoginDeps struct {
	Providers oauth.Registry
	Sessions  *session.Manager
}

// LoginService starts the handshake: it stages the post-login target on the
// session and hands back the provider's authorization URL.
type LoginService struct {
	providers oauth.Registry
	sessions  *session.Manager
}

// NewLoginService creates a LoginService.
func NewLoginService(d LoginDeps) *LoginService {
	return &LoginService{
		providers: d.Providers,
		sessions:  d.Sessions,
	}
}

// Start validates the provider, replaces any stale pending redirect with the
// request's target (when safe) and returns the authorization URL. An unsafe
// or absent target simply leaves no pending entry; the callback falls back
// to the configured default.
func (s *LoginService) Start(ctx context.Context, sessionID, providerName string, query url.Values) (string, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("social.login"))

	provider, ok := s.providers.Lookup(providerName)
	if !ok {
		return "", ErrUnknownProvider
	}

	// A previous aborted flow may have left a pending target behind; it must
	// never leak into this one.
	s.sessions.Delete(sessionID, pendingRedirectKey)

	if target, ok := SafeRedirect(query.Get(RedirectParam)); ok {
		s.sessions.Set(sessionID, pendingRedirectKey, []byte(target))
		log.Debug("pending redirect stored", logger.Redirect(target))
	}

	authURL, err := provider.AuthCodeURL(ctx)
	if err != nil {
		return "", err
	}

	metrics.LoginStarts.WithLabelValues(provider.Name()).Inc()
	log.Info("login started", logger.Provider(provider.Name()))
	return authURL, nil
}
