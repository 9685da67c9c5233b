package social

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	httperrors "github.com/sgarciab/authbridge/internal/http/errors"
	svc "github.com/sgarciab/authbridge/internal/http/services/social"
	"github.com/sgarciab/authbridge/internal/observability/logger"
	"github.com/sgarciab/authbridge/internal/session"
)

// CallbackController handles the social login callback endpoint.
type CallbackController struct {
	service  *svc.CallbackService
	sessions *session.Manager
	loginURL string
}

// NewCallbackController creates a new CallbackController.
func NewCallbackController(service *svc.CallbackService, sessions *session.Manager, loginURL string) *CallbackController {
	if loginURL == "" {
		loginURL = "/login"
	}
	return &CallbackController{service: service, sessions: sessions, loginURL: loginURL}
}

// Callback handles GET /auth/{provider}/callback
func (c *CallbackController) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("CallbackController.Callback"))

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
		return
	}

	provider := chi.URLParam(r, "provider")
	if provider == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("missing provider"))
		return
	}

	sessionID := c.sessions.SessionID(w, r)

	target, err := c.service.Callback(ctx, sessionID, provider, r.URL.Query())
	if err != nil {
		if fe, ok := svc.AsFlowError(err); ok {
			log.Warn("login flow failed",
				logger.Provider(provider),
				logger.String("code", fe.Code),
				logger.Err(err),
			)
			http.Redirect(w, r, c.errorURL(fe.Code), http.StatusFound)
			return
		}
		if errors.Is(err, svc.ErrUnknownProvider) {
			httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("provider "+provider))
			return
		}
		log.Error("callback failed", logger.Provider(provider), logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}

// errorURL appends the failure code to the login page URL, preserving any
// query it already carries.
func (c *CallbackController) errorURL(code string) string {
	if u, err := url.Parse(c.loginURL); err == nil {
		q := u.Query()
		q.Set("error", code)
		u.RawQuery = q.Encode()
		return u.String()
	}
	sep := "?"
	if strings.Contains(c.loginURL, "?") {
		sep = "&"
	}
	return c.loginURL + sep + "error=" + url.QueryEscape(code)
}
