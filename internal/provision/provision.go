// Package provision creates local users for social profiles that arrive
// without a linked account.
package provision

import (
	"context"
	"fmt"
	"strings"

	"github.com/sgarciab/authbridge/internal/domain/repository"
	svc "github.com/sgarciab/authbridge/internal/http/services/social"
	"github.com/sgarciab/authbridge/internal/observability/logger"
	"github.com/sgarciab/authbridge/internal/security/password"
)

// Sender is the subset of the email package this provisioner needs.
type Sender interface {
	Send(to, subject, htmlBody, textBody string) error
}

// Deps contains dependencies for the default provisioner.
type Deps struct {
	Users repository.UserRepository
	// Mailer sends the welcome email; nil disables it.
	Mailer Sender
}

// Default returns the stock provisioning strategy: create a user from the
// profile's mapped attributes with a random placeholder secret, then send a
// best-effort welcome email. Email sending never fails the login.
func Default(d Deps) svc.ProvisionFunc {
	return func(ctx context.Context, profile *repository.SocialProfile) (*repository.User, error) {
		log := logger.From(ctx).With(logger.Layer("service"), logger.Component("provision"))

		email := attrString(profile, "email")
		if email == "" {
			return nil, fmt.Errorf("provision: profile %s/%s has no email attribute", profile.Provider, profile.Identifier)
		}
		name := displayName(profile)

		// The account gets a random secret so it can never be entered via
		// password until the user explicitly sets one.
		hash, err := password.Hash(password.Default, password.RandomSecret(32))
		if err != nil {
			return nil, fmt.Errorf("provision: %w", err)
		}

		user, err := d.Users.Create(ctx, repository.CreateUserInput{
			Email:        email,
			Name:         name,
			PasswordHash: hash,
		})
		if err != nil {
			return nil, fmt.Errorf("provision: create user: %w", err)
		}

		if d.Mailer != nil {
			if err := d.Mailer.Send(email, "Welcome!", welcomeHTML(name), welcomeText(name)); err != nil {
				log.Warn("welcome email failed", logger.Email(email), logger.Err(err))
			}
		}

		return user, nil
	}
}

// displayName picks the best available name from the mapped attributes.
func displayName(p *repository.SocialProfile) string {
	if v := attrString(p, "full_name"); v != "" {
		return v
	}
	first, last := attrString(p, "first_name"), attrString(p, "last_name")
	if full := strings.TrimSpace(first + " " + last); full != "" {
		return full
	}
	if v := attrString(p, "login"); v != "" {
		return v
	}
	return attrString(p, "email")
}

func attrString(p *repository.SocialProfile, key string) string {
	if v, ok := p.Attributes[key]; ok {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func welcomeHTML(name string) string {
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf("<p>Hi %s,</p><p>Your account is ready. You signed in with a social provider; you can set a password from your account settings at any time.</p>", name)
}

func welcomeText(name string) string {
	if name == "" {
		name = "there"
	}
	return fmt.Sprintf("Hi %s,\n\nYour account is ready. You signed in with a social provider; you can set a password from your account settings at any time.\n", name)
}
