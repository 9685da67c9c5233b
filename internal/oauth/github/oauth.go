// Package github implements the GitHub OAuth 2.0 provider. Unlike Google
// OIDC there is no ID token; the identity comes from a separate API call.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sgarciab/authbridge/internal/oauth"
)

const (
	authEndpoint  = "https://github.com/login/oauth/authorize"
	tokenEndpoint = "https://github.com/login/oauth/access_token"
	userEndpoint  = "https://api.github.com/user"
	emailEndpoint = "https://api.github.com/user/emails"
)

// Provider is the GitHub OAuth 2.0 client. It satisfies oauth.Provider.
type Provider struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	signer *oauth.StateSigner
	http   *http.Client
}

// New creates a GitHub provider.
func New(clientID, clientSecret, redirectURL string, scopes []string, signer *oauth.StateSigner) *Provider {
	if len(scopes) == 0 {
		scopes = []string{"user:email", "read:user"}
	}
	return &Provider{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       scopes,
		signer:       signer,
		http:         &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *Provider) Name() string { return "github" }

// AuthCodeURL builds the GitHub authorization URL with a signed state.
// GitHub has no nonce parameter; the nonce lives inside the state token.
func (g *Provider) AuthCodeURL(ctx context.Context) (string, error) {
	state, _, err := g.signer.Sign(g.Name())
	if err != nil {
		return "", &oauth.Error{Provider: g.Name(), Err: err}
	}
	u, _ := url.Parse(authEndpoint)
	q := u.Query()
	q.Set("client_id", g.ClientID)
	q.Set("redirect_uri", g.RedirectURL)
	q.Set("scope", strings.Join(g.Scopes, " "))
	q.Set("state", state)
	q.Set("allow_signup", "true")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
	Error       string `json:"error,omitempty"`
	ErrorDesc   string `json:"error_description,omitempty"`
}

type userInfo struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
	Location  string `json:"location"`
	Company   string `json:"company"`
}

type emailInfo struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// Exchange completes the callback: state check, code-for-token exchange and
// identity fetch via the user API.
func (g *Provider) Exchange(ctx context.Context, query url.Values) (*oauth.Token, *oauth.Identity, error) {
	if idpErr := query.Get("error"); idpErr != "" {
		return nil, nil, &oauth.Error{
			Provider: g.Name(),
			Body:     idpErr + " " + query.Get("error_description"),
			Err:      errors.New("authorization denied by provider"),
		}
	}
	if _, err := g.signer.Verify(query.Get("state"), g.Name()); err != nil {
		return nil, nil, &oauth.Error{Provider: g.Name(), Err: err}
	}
	code := query.Get("code")
	if code == "" {
		return nil, nil, &oauth.Error{Provider: g.Name(), Err: errors.New("missing code")}
	}

	tr, err := g.exchangeCode(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	info, verified, err := g.fetchUser(ctx, tr.AccessToken)
	if err != nil {
		return nil, nil, err
	}

	token := &oauth.Token{
		AccessToken: tr.AccessToken,
		TokenType:   tr.TokenType,
	}
	id := strconv.FormatInt(info.ID, 10)
	identity := &oauth.Identity{
		ID: id,
		Attributes: map[string]any{
			"id":            id,
			"login":         info.Login,
			"emailVerified": verified,
		},
	}
	if info.Name != "" {
		identity.Attributes["fullname"] = info.Name
	}
	if info.Email != "" {
		identity.Attributes["email"] = info.Email
	}
	if info.AvatarURL != "" {
		identity.Attributes["picture"] = info.AvatarURL
	}
	if info.Location != "" {
		identity.Attributes["location"] = info.Location
	}
	return token, identity, nil
}

func (g *Provider) exchangeCode(ctx context.Context, code string) (*tokenResponse, error) {
	form := url.Values{}
	form.Set("client_id", g.ClientID)
	form.Set("client_secret", g.ClientSecret)
	form.Set("code", code)
	form.Set("redirect_uri", g.RedirectURL)

	req, _ := http.NewRequestWithContext(ctx, "POST", tokenEndpoint, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, &oauth.Error{Provider: g.Name(), Err: err}
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, &oauth.Error{Provider: g.Name(), Err: fmt.Errorf("decode token response: %w", err)}
	}
	if tr.Error != "" {
		return nil, &oauth.Error{
			Provider: g.Name(),
			Body:     tr.Error + " " + tr.ErrorDesc,
			Err:      errors.New("token exchange rejected"),
		}
	}
	if tr.AccessToken == "" {
		return nil, &oauth.Error{Provider: g.Name(), Err: errors.New("no access_token in response")}
	}
	return &tr, nil
}

// fetchUser obtiene el usuario y resuelve su email primario verificado.
// GitHub puede devolver email vacío en /user cuando el email es privado.
func (g *Provider) fetchUser(ctx context.Context, accessToken string) (*userInfo, bool, error) {
	var info userInfo
	if err := g.apiGet(ctx, userEndpoint, accessToken, &info); err != nil {
		return nil, false, err
	}

	verified := false
	if info.Email == "" {
		var emails []emailInfo
		if err := g.apiGet(ctx, emailEndpoint, accessToken, &emails); err != nil {
			return nil, false, err
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				info.Email = e.Email
				verified = true
				break
			}
		}
		if info.Email == "" {
			for _, e := range emails {
				if e.Verified {
					info.Email = e.Email
					verified = true
					break
				}
			}
		}
		if info.Email == "" && len(emails) > 0 {
			info.Email = emails[0].Email
		}
	}
	return &info, verified, nil
}

func (g *Provider) apiGet(ctx context.Context, endpoint, accessToken string, out any) error {
	req, _ := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return &oauth.Error{Provider: g.Name(), Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &oauth.Error{Provider: g.Name(), Err: fmt.Errorf("api %s: http %d", endpoint, resp.StatusCode)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &oauth.Error{Provider: g.Name(), Err: fmt.Errorf("decode api response: %w", err)}
	}
	return nil
}
