// Package app arma la aplicación completa a partir de la configuración:
// cache, storage, providers, sesiones, services, controllers y router.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sgarciab/authbridge/internal/cache"
	cachemem "github.com/sgarciab/authbridge/internal/cache/memory"
	cacheredis "github.com/sgarciab/authbridge/internal/cache/redis"
	"github.com/sgarciab/authbridge/internal/config"
	"github.com/sgarciab/authbridge/internal/domain/repository"
	"github.com/sgarciab/authbridge/internal/email"
	ctrl "github.com/sgarciab/authbridge/internal/http/controllers/social"
	"github.com/sgarciab/authbridge/internal/http/router"
	svc "github.com/sgarciab/authbridge/internal/http/services/social"
	"github.com/sgarciab/authbridge/internal/metrics"
	"github.com/sgarciab/authbridge/internal/oauth"
	"github.com/sgarciab/authbridge/internal/oauth/github"
	"github.com/sgarciab/authbridge/internal/oauth/google"
	"github.com/sgarciab/authbridge/internal/provision"
	"github.com/sgarciab/authbridge/internal/session"
	storemem "github.com/sgarciab/authbridge/internal/store/memory"
	storepg "github.com/sgarciab/authbridge/internal/store/pg"
)

// App agrupa las piezas vivas del servicio.
type App struct {
	Handler  http.Handler
	Sessions *session.Manager

	pg *storepg.Store
}

// New construye la aplicación. El contexto se usa solo para la conexión
// inicial a storage.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := metrics.RegisterLogin(nil); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	// Cache backend (sesiones).
	var backend cache.Cache
	switch cfg.Cache.Kind {
	case "redis":
		backend = cacheredis.New(cfg.Cache.Redis.Addr, cfg.Cache.Redis.DB, cfg.Cache.Redis.Prefix)
	default:
		ttl, _ := time.ParseDuration(cfg.Cache.Memory.DefaultTTL)
		backend = cachemem.New(ttl)
	}

	sessions := session.New(backend, session.Options{
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.SessionTTL(),
		Secure:     cfg.Session.Secure,
	})

	// Storage.
	var (
		profiles repository.ProfileRepository
		users    repository.UserRepository
		pgStore  *storepg.Store
	)
	switch cfg.Storage.Driver {
	case "postgres":
		lifetime, _ := time.ParseDuration(cfg.Storage.Postgres.ConnMaxLifetime)
		s, err := storepg.New(ctx, cfg.Storage.DSN, storepg.Options{
			MaxConns:        cfg.Storage.Postgres.MaxOpenConns,
			ConnMaxLifetime: lifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		pgStore = s
		profiles, users = s.Profiles, s.Users
	default:
		m := storemem.New()
		profiles, users = m, m
	}

	// Providers.
	signer := oauth.NewStateSigner(cfg.State.Secret, cfg.StateTTL())
	registry := oauth.Registry{}
	if p := cfg.Providers.Google; p.Enabled {
		registry.Register(google.New(p.ClientID, p.ClientSecret, p.RedirectURL, p.Scopes, signer))
	}
	if p := cfg.Providers.GitHub; p.Enabled {
		registry.Register(github.New(p.ClientID, p.ClientSecret, p.RedirectURL, p.Scopes, signer))
	}

	// Mailer para el provisioner.
	var mailer provision.Sender
	if cfg.SMTP.Enabled {
		mailer = email.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.Username, cfg.SMTP.Password)
	}

	profileResolver := svc.NewProfileResolver(svc.ProfileResolverDeps{
		Profiles:          profiles,
		LogProviderErrors: cfg.Login.LogProviderErrors,
	})
	userResolver := svc.NewUserResolver(svc.UserResolverDeps{
		Users:     users,
		Profiles:  profiles,
		Finder:    cfg.Login.Finder,
		Provision: provision.Default(provision.Deps{Users: users, Mailer: mailer}),
	})

	controllers := ctrl.NewControllers(ctrl.Services{
		Login: svc.NewLoginService(svc.LoginDeps{Providers: registry, Sessions: sessions}),
		Callback: svc.NewCallbackService(svc.CallbackDeps{
			Providers:       registry,
			Sessions:        sessions,
			Profiles:        profileResolver,
			Users:           userResolver,
			SessionKey:      cfg.Login.SessionKey,
			UserShape:       cfg.Login.UserShape,
			PasswordField:   cfg.Login.PasswordField,
			DefaultRedirect: cfg.Login.DefaultRedirect,
		}),
	}, sessions, ctrl.Options{
		LoginMethod: cfg.Login.Method,
		LoginURL:    cfg.Login.LoginURL,
	})

	return &App{
		Handler:  router.New(router.Deps{Social: controllers}),
		Sessions: sessions,
		pg:       pgStore,
	}, nil
}

// Close libera recursos (pool de Postgres si aplica).
func (a *App) Close() {
	if a.pg != nil {
		a.pg.Close()
	}
}
