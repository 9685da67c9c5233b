package social

import (
	"context"
	"errors"
	"testing"

	"github.com/sgarciab/authbridge/internal/domain/repository"
	"github.com/sgarciab/authbridge/internal/store/memory"
)

func seedProfile(t *testing.T, store *memory.Store, userID string) *repository.SocialProfile {
	t.Helper()
	p := &repository.SocialProfile{
		Provider:   "google",
		Identifier: "ext-42",
		UserID:     userID,
		Attributes: map[string]any{"email": "a@b.c", "access_token": "tok"},
	}
	if err := store.Save(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	return p
}

// failingUsers fails every lookup to exercise the fatal-storage path.
type failingUsers struct{ err error }

func (f *failingUsers) FindByID(ctx context.Context, finder, userID string) (*repository.User, error) {
	return nil, f.err
}

func (f *failingUsers) Create(ctx context.Context, input repository.CreateUserInput) (*repository.User, error) {
	return nil, f.err
}

func TestUserResolver_LinkedUser(t *testing.T) {
	store := memory.New()
	u, err := store.Create(context.Background(), repository.CreateUserInput{
		Email:        "a@b.c",
		Name:         "Ada",
		PasswordHash: "argon2id$secret",
	})
	if err != nil {
		t.Fatal(err)
	}
	profile := seedProfile(t, store, u.ID)

	r := NewUserResolver(UserResolverDeps{
		Users:    store,
		Profiles: store,
		Finder:   repository.FinderAll,
		Provision: func(ctx context.Context, p *repository.SocialProfile) (*repository.User, error) {
			t.Fatal("provision must not run for a linked profile")
			return nil, nil
		},
	})

	got, err := r.Resolve(context.Background(), profile)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("resolved wrong user: %q", got.ID)
	}
	if got.PasswordHash != "" {
		t.Fatal("password field not stripped")
	}
	if got.Profile == nil || got.Profile.Identifier != "ext-42" {
		t.Fatalf("profile not attached: %+v", got.Profile)
	}
}

func TestUserResolver_FinderFailureNeverProvisions(t *testing.T) {
	store := memory.New()
	profile := seedProfile(t, store, "missing-user")

	provisioned := false
	r := NewUserResolver(UserResolverDeps{
		Users:    store,
		Profiles: store,
		Finder:   repository.FinderAll,
		Provision: func(ctx context.Context, p *repository.SocialProfile) (*repository.User, error) {
			provisioned = true
			return nil, nil
		},
	})

	_, err := r.Resolve(context.Background(), profile)
	fe, ok := AsFlowError(err)
	if !ok || fe.Code != CodeFinderFailure {
		t.Fatalf("err = %v, want FlowError finder_failure", err)
	}
	if provisioned {
		t.Fatal("provision ran for a linked profile with a dangling user")
	}
}

func TestUserResolver_StorageErrorIsFatal(t *testing.T) {
	store := memory.New()
	profile := seedProfile(t, store, "some-user")

	lookupErr := errors.New("connection refused")
	r := NewUserResolver(UserResolverDeps{
		Users:    &failingUsers{err: lookupErr},
		Profiles: store,
		Provision: func(ctx context.Context, p *repository.SocialProfile) (*repository.User, error) {
			t.Fatal("provision must not run")
			return nil, nil
		},
	})

	_, err := r.Resolve(context.Background(), profile)
	if !errors.Is(err, lookupErr) {
		t.Fatalf("err = %v, want the raw lookup error", err)
	}
	if _, ok := AsFlowError(err); ok {
		t.Fatal("storage failure must not be classified as a flow error")
	}
}

func TestUserResolver_ActiveFinderExcludesDisabled(t *testing.T) {
	store := memory.New()
	u, err := store.Create(context.Background(), repository.CreateUserInput{Email: "a@b.c"})
	if err != nil {
		t.Fatal(err)
	}
	store.Disable(u.ID)
	profile := seedProfile(t, store, u.ID)

	r := NewUserResolver(UserResolverDeps{
		Users:    store,
		Profiles: store,
		Finder:   repository.FinderActive,
		Provision: func(ctx context.Context, p *repository.SocialProfile) (*repository.User, error) {
			t.Fatal("provision must not run")
			return nil, nil
		},
	})

	_, err = r.Resolve(context.Background(), profile)
	if fe, ok := AsFlowError(err); !ok || fe.Code != CodeFinderFailure {
		t.Fatalf("err = %v, want finder_failure for disabled user", err)
	}
}

func TestUserResolver_ProvisionsAndLinks(t *testing.T) {
	store := memory.New()
	profile := seedProfile(t, store, "")

	r := NewUserResolver(UserResolverDeps{
		Users:    store,
		Profiles: store,
		Finder:   repository.FinderAll,
		Provision: func(ctx context.Context, p *repository.SocialProfile) (*repository.User, error) {
			return store.Create(ctx, repository.CreateUserInput{
				Email:        "a@b.c",
				Name:         "Ada",
				PasswordHash: "placeholder",
			})
		},
	})

	got, err := r.Resolve(context.Background(), profile)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.ID == "" {
		t.Fatal("no user created")
	}
	if profile.UserID != got.ID {
		t.Fatalf("profile not linked: %q != %q", profile.UserID, got.ID)
	}
	if got.PasswordHash != "" {
		t.Fatal("password field not stripped")
	}

	// The link must have been persisted, not just mutated in memory.
	stored, err := store.GetByProvider(context.Background(), "google", "ext-42")
	if err != nil {
		t.Fatal(err)
	}
	if stored.UserID != got.ID {
		t.Fatalf("link not persisted: %q", stored.UserID)
	}
}

func TestUserResolver_ProvisionErrorIsFatal(t *testing.T) {
	store := memory.New()
	profile := seedProfile(t, store, "")

	provisionErr := errors.New("email taken")
	r := NewUserResolver(UserResolverDeps{
		Users:    store,
		Profiles: store,
		Provision: func(ctx context.Context, p *repository.SocialProfile) (*repository.User, error) {
			return nil, provisionErr
		},
	})

	_, err := r.Resolve(context.Background(), profile)
	if !errors.Is(err, provisionErr) {
		t.Fatalf("err = %v, want the raw provision error", err)
	}
	if _, ok := AsFlowError(err); ok {
		t.Fatal("provision failure must not be classified as a flow error")
	}
}
