package social

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/sgarciab/authbridge/internal/domain/repository"
	"github.com/sgarciab/authbridge/internal/oauth"
	"github.com/sgarciab/authbridge/internal/store/memory"
)

// fakeProvider answers Exchange from canned values.
type fakeProvider struct {
	name     string
	token    *oauth.Token
	identity *oauth.Identity
	err      error
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) AuthCodeURL(ctx context.Context) (string, error) {
	return "https://provider.example/authorize?client_id=x", nil
}

func (p *fakeProvider) Exchange(ctx context.Context, query url.Values) (*oauth.Token, *oauth.Identity, error) {
	if p.err != nil {
		return nil, nil, p.err
	}
	return p.token, p.identity, nil
}

// failingProfiles fails Save to exercise the fatal-persistence path.
type failingProfiles struct {
	saveErr error
}

func (f *failingProfiles) GetByProvider(ctx context.Context, provider, identifier string) (*repository.SocialProfile, error) {
	return nil, repository.ErrNotFound
}

func (f *failingProfiles) Save(ctx context.Context, p *repository.SocialProfile) error {
	return f.saveErr
}

func newFakeProvider(accessToken string) *fakeProvider {
	return &fakeProvider{
		name:  "google",
		token: &oauth.Token{AccessToken: accessToken},
		identity: &oauth.Identity{
			ID:         "ext-42",
			Attributes: map[string]any{"id": "ext-42", "email": "a@b.c", "firstname": "Ada"},
		},
	}
}

func TestProfileResolver_CreatesProfile(t *testing.T) {
	store := memory.New()
	r := NewProfileResolver(ProfileResolverDeps{Profiles: store})

	p, err := r.Resolve(context.Background(), newFakeProvider("tok-1"), url.Values{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if p.ID == "" || p.Provider != "google" || p.Identifier != "ext-42" {
		t.Fatalf("bad profile: %+v", p)
	}
	if p.Attributes["first_name"] != "Ada" {
		t.Fatalf("attributes not mapped: %v", p.Attributes)
	}
	if p.Attributes["access_token"] == "" {
		t.Fatal("access_token missing")
	}
}

func TestProfileResolver_ReusesWithoutRewrite(t *testing.T) {
	store := memory.New()
	r := NewProfileResolver(ProfileResolverDeps{Profiles: store})
	provider := newFakeProvider("tok-1")

	first, err := r.Resolve(context.Background(), provider, url.Values{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Resolve(context.Background(), provider, url.Values{})
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Fatalf("second login created a new profile: %q != %q", second.ID, first.ID)
	}
	if !second.UpdatedAt.Equal(first.UpdatedAt) {
		t.Fatalf("identical data was rewritten: %v != %v", second.UpdatedAt, first.UpdatedAt)
	}
}

func TestProfileResolver_RefreshesChangedToken(t *testing.T) {
	store := memory.New()
	r := NewProfileResolver(ProfileResolverDeps{Profiles: store})

	first, err := r.Resolve(context.Background(), newFakeProvider("tok-1"), url.Values{})
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Resolve(context.Background(), newFakeProvider("tok-2"), url.Values{})
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Fatalf("token refresh created a new profile")
	}
	if second.Attributes["access_token"] == first.Attributes["access_token"] {
		t.Fatal("access_token not refreshed")
	}
	stored, err := store.GetByProvider(context.Background(), "google", "ext-42")
	if err != nil {
		t.Fatal(err)
	}
	if stored.Attributes["access_token"] != second.Attributes["access_token"] {
		t.Fatal("refreshed token not persisted")
	}
}

func TestProfileResolver_RefreshRetainsOmittedAttributes(t *testing.T) {
	store := memory.New()
	r := NewProfileResolver(ProfileResolverDeps{Profiles: store})

	rich := &fakeProvider{
		name:  "google",
		token: &oauth.Token{AccessToken: "tok-1"},
		identity: &oauth.Identity{
			ID:         "ext-42",
			Attributes: map[string]any{"id": "ext-42", "email": "a@b.c", "locale": "en"},
		},
	}
	if _, err := r.Resolve(context.Background(), rich, url.Values{}); err != nil {
		t.Fatal(err)
	}

	// Second login: the provider stops sending locale. The stored value
	// must survive the refresh.
	lean := &fakeProvider{
		name:  "google",
		token: &oauth.Token{AccessToken: "tok-2"},
		identity: &oauth.Identity{
			ID:         "ext-42",
			Attributes: map[string]any{"id": "ext-42", "email": "a@b.c"},
		},
	}
	second, err := r.Resolve(context.Background(), lean, url.Values{})
	if err != nil {
		t.Fatal(err)
	}
	if second.Attributes["locale"] != "en" {
		t.Fatalf("omitted attribute dropped on refresh: %v", second.Attributes)
	}
	stored, err := store.GetByProvider(context.Background(), "google", "ext-42")
	if err != nil {
		t.Fatal(err)
	}
	if stored.Attributes["locale"] != "en" {
		t.Fatalf("omitted attribute not persisted: %v", stored.Attributes)
	}
}

func TestProfileResolver_ProviderFailure(t *testing.T) {
	store := memory.New()
	r := NewProfileResolver(ProfileResolverDeps{Profiles: store})
	provider := &fakeProvider{
		name: "google",
		err:  &oauth.Error{Provider: "google", Body: `{"error":"access_denied"}`, Err: errors.New("access_denied")},
	}

	_, err := r.Resolve(context.Background(), provider, url.Values{})
	fe, ok := AsFlowError(err)
	if !ok || fe.Code != CodeProviderFailure {
		t.Fatalf("err = %v, want FlowError provider_failure", err)
	}
	var perr *oauth.Error
	if !errors.As(err, &perr) {
		t.Fatalf("provider error not preserved in chain: %v", err)
	}
}

func TestProfileResolver_PersistFailureIsFatal(t *testing.T) {
	saveErr := errors.New("disk full")
	r := NewProfileResolver(ProfileResolverDeps{Profiles: &failingProfiles{saveErr: saveErr}})

	_, err := r.Resolve(context.Background(), newFakeProvider("tok-1"), url.Values{})
	if !errors.Is(err, saveErr) {
		t.Fatalf("err = %v, want the raw save error", err)
	}
	if _, ok := AsFlowError(err); ok {
		t.Fatal("persistence failure must not be classified as a flow error")
	}
}
