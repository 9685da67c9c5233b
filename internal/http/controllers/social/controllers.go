// Package social contains controllers for the social login endpoints.
package social

import (
	svc "github.com/sgarciab/authbridge/internal/http/services/social"
	"github.com/sgarciab/authbridge/internal/session"
)

// Services agrupa los services que consumen estos controllers.
type Services struct {
	Login    *svc.LoginService
	Callback *svc.CallbackService
}

// Options controla el comportamiento HTTP de los endpoints.
type Options struct {
	// LoginMethod is the only HTTP method the login action accepts.
	LoginMethod string
	// LoginURL receives flow-failure redirects with an error query param.
	LoginURL string
}

// Controllers agrupa todos los controllers del dominio social.
type Controllers struct {
	Login    *LoginController
	Callback *CallbackController
}

// NewControllers creates the social controllers aggregator.
func NewControllers(s Services, sessions *session.Manager, opts Options) *Controllers {
	return &Controllers{
		Login:    NewLoginController(s.Login, sessions, opts.LoginMethod),
		Callback: NewCallbackController(s.Callback, sessions, opts.LoginURL),
	}
}
