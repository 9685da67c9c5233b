package social

import (
	"context"
	"errors"

	"github.com/sgarciab/authbridge/internal/domain/repository"
	"github.com/sgarciab/authbridge/internal/observability/logger"
)

// ProvisionFunc creates a local user for a social profile that is not yet
// linked to one. Implementations decide the account shape (email, name,
// placeholder secret); the resolver handles the link write-back.
type ProvisionFunc func(ctx context.Context, profile *repository.SocialProfile) (*repository.User, error)

// UserResolverDeps contains dependencies for the user resolver.
type UserResolverDeps struct {
	Users     repository.UserRepository
	Profiles  repository.ProfileRepository
	Finder    string // repository.FinderAll | repository.FinderActive
	Provision ProvisionFunc
}

// UserResolver resolves the local user behind a social profile, provisioning
// one when the profile is unlinked.
type UserResolver struct {
	users     repository.UserRepository
	profiles  repository.ProfileRepository
	finder    string
	provision ProvisionFunc
}

// NewUserResolver creates a UserResolver.
func NewUserResolver(d UserResolverDeps) *UserResolver {
	finder := d.Finder
	if finder == "" {
		finder = repository.FinderAll
	}
	return &UserResolver{
		users:     d.Users,
		profiles:  d.Profiles,
		finder:    finder,
		provision: d.Provision,
	}
}

// Resolve returns the user linked to the profile. A linked profile whose
// user the configured finder does not return is a FlowError with code
// finder_failure; provisioning is never attempted for linked profiles.
// Storage errors on the lookup are not classified and propagate unwrapped.
// For unlinked profiles the provision func runs and the new user ID is
// written back onto the profile before returning.
//
// The returned user carries the profile attached and its password field
// already stripped, so callers can serialize it as-is.
func (s *UserResolver) Resolve(ctx context.Context, profile *repository.SocialProfile) (*repository.User, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("social.user"))

	var user *repository.User
	if profile.UserID != "" {
		u, err := s.users.FindByID(ctx, s.finder, profile.UserID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			// The profile claims a link the finder cannot resolve: an
			// inconsistent state, never a reason to provision.
			log.Warn("linked user not found",
				logger.UserID(profile.UserID),
				logger.Finder(s.finder),
				logger.Err(err),
			)
			return nil, NewFinderFailure(err)
		case err != nil:
			return nil, err
		}
		user = u
	} else {
		u, err := s.provision(ctx, profile)
		if err != nil {
			return nil, err
		}
		profile.UserID = u.ID
		if err := s.profiles.Save(ctx, profile); err != nil {
			return nil, err
		}
		log.Info("user provisioned",
			logger.UserID(u.ID),
			logger.ProfileID(profile.ID),
		)
		user = u
	}

	user.PasswordHash = ""
	user.Profile = profile
	return user, nil
}
