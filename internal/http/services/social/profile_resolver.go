package social

import (
	"context"
	"errors"
	"net/url"

	"github.com/sgarciab/authbridge/internal/domain/repository"
	"github.com/sgarciab/authbridge/internal/oauth"
	"github.com/sgarciab/authbridge/internal/observability/logger"
)

// ProfileResolverDeps contains dependencies for the profile resolver.
type ProfileResolverDeps struct {
	Profiles repository.ProfileRepository
	// LogProviderErrors emits provider handshake failures with request
	// context before they are classified.
	LogProviderErrors bool
}

// ProfileResolver drives the provider exchange and reconciles the external
// identity onto a persisted social profile.
type ProfileResolver struct {
	profiles          repository.ProfileRepository
	logProviderErrors bool
}

// NewProfileResolver creates a ProfileResolver.
func NewProfileResolver(d ProfileResolverDeps) *ProfileResolver {
	return &ProfileResolver{
		profiles:          d.Profiles,
		logProviderErrors: d.LogProviderErrors,
	}
}

// Resolve completes the provider handshake for the callback query and
// returns the up-to-date social profile. Handshake failures come back as a
// FlowError with code provider_failure; persistence failures are fatal and
// propagate unwrapped.
func (s *ProfileResolver) Resolve(ctx context.Context, provider oauth.Provider, query url.Values) (*repository.SocialProfile, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("social.profile"))

	token, identity, err := provider.Exchange(ctx, query)
	if err != nil {
		if s.logProviderErrors {
			log.Warn("provider exchange failed",
				logger.Provider(provider.Name()),
				logger.Err(err),
			)
		}
		return nil, NewProviderFailure(err)
	}

	existing, err := s.profiles.GetByProvider(ctx, provider.Name(), identity.ID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		profile := &repository.SocialProfile{
			Provider:   provider.Name(),
			Identifier: identity.ID,
			Attributes: MapAttributes(identity, token, nil),
		}
		if err := s.profiles.Save(ctx, profile); err != nil {
			return nil, err
		}
		log.Info("social profile created",
			logger.Provider(provider.Name()),
			logger.ProfileID(profile.ID),
			logger.Identifier(identity.ID),
		)
		return profile, nil
	case err != nil:
		return nil, err
	}

	// Patch the fresh attributes onto the stored set; attributes the
	// provider stopped sending stay put. Persist only when something
	// actually changed; access_token rotation counts.
	updated := existing.Clone()
	updated.Attributes = MapAttributes(identity, token, existing.Attributes)
	if updated.EqualData(existing) {
		return existing, nil
	}
	if err := s.profiles.Save(ctx, updated); err != nil {
		return nil, err
	}
	log.Info("social profile refreshed",
		logger.Provider(provider.Name()),
		logger.ProfileID(updated.ID),
	)
	return updated, nil
}
