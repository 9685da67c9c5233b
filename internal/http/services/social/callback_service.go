package social

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/sgarciab/authbridge/internal/metrics"
	"github.com/sgarciab/authbridge/internal/oauth"
	"github.com/sgarciab/authbridge/internal/observability/logger"
	"github.com/sgarciab/authbridge/internal/session"
)

// User shapes for session serialization.
const (
	ShapeRecord = "record"
	ShapeMap    = "map"
)

// CallbackDeps contains dependencies for the callback service.
type CallbackDeps struct {
	Providers oauth.Registry
	Sessions  *session.Manager
	Profiles  *ProfileResolver
	Users     *UserResolver

	// SessionKey is the session entry the authenticated user is stored under.
	SessionKey string
	// UserShape is ShapeRecord or ShapeMap.
	UserShape string
	// PasswordField is removed from the serialized user in map shape.
	PasswordField string
	// DefaultRedirect is the post-login target when no pending one exists.
	DefaultRedirect string
}

// CallbackService finishes the handshake: it resolves profile and user and
// computes where the browser goes next.
type CallbackService struct {
	providers       oauth.Registry
	sessions        *session.Manager
	profiles        *ProfileResolver
	users           *UserResolver
	sessionKey      string
	userShape       string
	passwordField   string
	defaultRedirect string
}

// NewCallbackService creates a CallbackService.
func NewCallbackService(d CallbackDeps) *CallbackService {
	if d.SessionKey == "" {
		d.SessionKey = "user"
	}
	if d.UserShape == "" {
		d.UserShape = ShapeRecord
	}
	if d.PasswordField == "" {
		d.PasswordField = "password_hash"
	}
	if d.DefaultRedirect == "" {
		d.DefaultRedirect = "/"
	}
	return &CallbackService{
		providers:       d.Providers,
		sessions:        d.Sessions,
		profiles:        d.Profiles,
		users:           d.Users,
		sessionKey:      d.SessionKey,
		userShape:       d.UserShape,
		passwordField:   d.PasswordField,
		defaultRedirect: d.DefaultRedirect,
	}
}

// Callback processes the provider callback for the given session. On success
// the authenticated user is serialized into the session and the post-login
// target is returned, consuming the pending redirect if one was staged.
func (s *CallbackService) Callback(ctx context.Context, sessionID, providerName string, query url.Values) (string, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("social.callback"))
	start := time.Now()

	provider, ok := s.providers.Lookup(providerName)
	if !ok {
		return "", ErrUnknownProvider
	}

	result := "success"
	defer func() {
		metrics.CallbackResults.WithLabelValues(provider.Name(), result).Inc()
		metrics.CallbackLatency.Observe(float64(time.Since(start).Milliseconds()))
	}()

	profile, err := s.profiles.Resolve(ctx, provider, query)
	if err != nil {
		result = classify(err)
		return "", err
	}

	user, err := s.users.Resolve(ctx, profile)
	if err != nil {
		result = classify(err)
		return "", err
	}

	payload, err := s.serializeUser(user)
	if err != nil {
		result = "error"
		return "", fmt.Errorf("serialize user: %w", err)
	}
	s.sessions.Set(sessionID, s.sessionKey, payload)

	target := s.defaultRedirect
	if b, ok := s.sessions.Consume(sessionID, pendingRedirectKey); ok && len(b) > 0 {
		target = string(b)
	}

	log.Info("login completed",
		logger.Provider(provider.Name()),
		logger.UserID(user.ID),
		logger.Redirect(target),
	)
	return target, nil
}

// serializeUser renders the user for session storage. Record shape keeps the
// user's own JSON encoding (the password field is tagged omitempty and the
// resolver already cleared it). Map shape flattens every field to a string
// and drops the configured password field.
func (s *CallbackService) serializeUser(u any) ([]byte, error) {
	b, err := json.Marshal(u)
	if err != nil {
		return nil, err
	}
	if s.userShape == ShapeRecord {
		return b, nil
	}

	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, err
	}
	delete(fields, s.passwordField)
	flat := make(map[string]string, len(fields))
	for k, v := range fields {
		if v == nil {
			continue
		}
		flat[k] = fmt.Sprint(v)
	}
	return json.Marshal(flat)
}

func classify(err error) string {
	if fe, ok := AsFlowError(err); ok {
		return fe.Code
	}
	return "error"
}
