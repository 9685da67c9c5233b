package social

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	httperrors "github.com/sgarciab/authbridge/internal/http/errors"
	svc "github.com/sgarciab/authbridge/internal/http/services/social"
	"github.com/sgarciab/authbridge/internal/observability/logger"
	"github.com/sgarciab/authbridge/internal/session"
)

// LoginController handles the social login start endpoint.
type LoginController struct {
	service  *svc.LoginService
	sessions *session.Manager
	method   string
}

// NewLoginController creates a new LoginController.
func NewLoginController(service *svc.LoginService, sessions *session.Manager, method string) *LoginController {
	if method == "" {
		method = http.MethodPost
	}
	return &LoginController{service: service, sessions: sessions, method: method}
}

// Login handles {method} /auth/{provider}/login
func (c *LoginController) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("LoginController.Login"))

	// Method mismatch is rejected before the session is touched: no cookie
	// is issued and nothing is written.
	if r.Method != c.method {
		log.Warn("login method mismatch", logger.Method(r.Method))
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("login requires "+c.method))
		return
	}

	provider := chi.URLParam(r, "provider")
	if provider == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("missing provider"))
		return
	}

	sessionID := c.sessions.SessionID(w, r)

	authURL, err := c.service.Start(ctx, sessionID, provider, r.URL.Query())
	if err != nil {
		if errors.Is(err, svc.ErrUnknownProvider) {
			httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("provider "+provider))
			return
		}
		log.Error("login start failed", logger.Provider(provider), logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}

	http.Redirect(w, r, authURL, http.StatusSeeOther)
}
