// Package google implements the Google OIDC provider: discovery, JWKS
// caching, code exchange and ID-token verification.
package google

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/sgarciab/authbridge/internal/oauth"
)

const discoveryURL = "https://accounts.google.com/.well-known/openid-configuration"

type discoveryDoc struct {
	Issuer        string `json:"issuer"`
	AuthEndpoint  string `json:"authorization_endpoint"`
	TokenEndpoint string `json:"token_endpoint"`
	JWKSURI       string `json:"jwks_uri"`
}

type jwk struct {
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"` // base64url
	E   string `json:"e"` // base64url
}

type jwks struct {
	Keys []jwk `json:"keys"`
}

// Provider is the Google OIDC client. It satisfies oauth.Provider.
type Provider struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	signer *oauth.StateSigner
	http   *http.Client

	// sf colapsa fetches concurrentes de discovery/JWKS en uno solo.
	sf singleflight.Group

	mu    sync.RWMutex
	disc  *discoveryDoc
	discU time.Time

	jwks     *jwks
	jwksAt   time.Time
	jwksETag string
}

// New creates a Google provider.
func New(clientID, clientSecret, redirectURL string, scopes []string, signer *oauth.StateSigner) *Provider {
	if len(scopes) == 0 {
		scopes = []string{"openid", "email", "profile"}
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

func (g *Provider) Name() string { return "google" }

func (g *Provider) discovery(ctx context.Context) (*discoveryDoc, error) {
	g.mu.RLock()
	disc := g.disc
	stale := time.Since(g.discU) > 24*time.Hour
	g.mu.RUnlock()
	if disc != nil && !stale {
		return disc, nil
	}
	v, err, _ := g.sf.Do("discovery", func() (any, error) {
		req, _ := http.NewRequestWithContext(ctx, "GET", discoveryURL, nil)
		resp, err := g.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		var dd discoveryDoc
		if err := json.NewDecoder(resp.Body).Decode(&dd); err != nil {
			return nil, err
		}
		g.mu.Lock()
		g.disc = &dd
		g.discU = time.Now()
		g.mu.Unlock()
		return &dd, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*discoveryDoc), nil
}

func (g *Provider) getJWKS(ctx context.Context, uri string) (*jwks, error) {
	g.mu.RLock()
	j := g.jwks
	age := time.Since(g.jwksAt)
	g.mu.RUnlock()
	if j != nil && age < 1*time.Hour {
		return j, nil
	}

	v, err, _ := g.sf.Do("jwks", func() (any, error) {
		req, _ := http.NewRequestWithContext(ctx, "GET", uri, nil)
		if g.jwksETag != "" {
			req.Header.Set("If-None-Match", g.jwksETag)
		}
		resp, err := g.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotModified {
			g.mu.Lock()
			out := g.jwks
			g.jwksAt = time.Now()
			g.mu.Unlock()
			return out, nil
		}

		if resp.StatusCode/100 != 2 {
			return nil, fmt.Errorf("jwks http %d", resp.StatusCode)
		}
		var jj jwks
		if err := json.NewDecoder(resp.Body).Decode(&jj); err != nil {
			return nil, err
		}

		g.mu.Lock()
		g.jwks = &jj
		g.jwksAt = time.Now()
		g.jwksETag = resp.Header.Get("ETag")
		g.mu.Unlock()
		return &jj, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*jwks), nil
}

func (g *Provider) rsaKeyForKid(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	disc, err := g.discovery(ctx)
	if err != nil {
		return nil, err
	}
	keys, err := g.getJWKS(ctx, disc.JWKSURI)
	if err != nil {
		return nil, err
	}
	for _, k := range keys.Keys {
		if k.Kid == kid && strings.EqualFold(k.Kty, "RSA") {
			nb, err := base64.RawURLEncoding.DecodeString(k.N)
			if err != nil {
				return nil, err
			}
			eb, err := base64.RawURLEncoding.DecodeString(k.E)
			if err != nil {
				return nil, err
			}
			n := new(big.Int).SetBytes(nb)
			e := 0
			for _, b := range eb {
				e = (e << 8) | int(b)
			}
			if e == 0 {
				e = 65537
			}
			return &rsa.PublicKey{N: n, E: e}, nil
		}
	}
	return nil, errors.New("kid not found")
}

// AuthCodeURL builds the Google authorization URL with a signed state.
func (g *Provider) AuthCodeURL(ctx context.Context) (string, error) {
	disc, err := g.discovery(ctx)
	if err != nil {
		return "", &oauth.Error{Provider: g.Name(), Err: err}
	}
	state, claims, err := g.signer.Sign(g.Name())
	if err != nil {
		return "", &oauth.Error{Provider: g.Name(), Err: err}
	}
	u, _ := url.Parse(disc.AuthEndpoint)
	q := u.Query()
	q.Set("response_type", "code")
	q.Set("client_id", g.ClientID)
	q.Set("redirect_uri", g.RedirectURL)
	q.Set("scope", strings.Join(g.Scopes, " "))
	q.Set("state", state)
	q.Set("nonce", claims.Nonce)
	q.Set("access_type", "offline")
	q.Set("include_granted_scopes", "true")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Exchange completes the callback: state check, code exchange, ID-token
// verification, identity extraction.
func (g *Provider) Exchange(ctx context.Context, query url.Values) (*oauth.Token, *oauth.Identity, error) {
	if idpErr := query.Get("error"); idpErr != "" {
		return nil, nil, &oauth.Error{
			Provider: g.Name(),
			Body:     idpErr + " " + query.Get("error_description"),
			Err:      errors.New("authorization denied by provider"),
		}
	}
	claims, err := g.signer.Verify(query.Get("state"), g.Name())
	if err != nil {
		return nil, nil, &oauth.Error{Provider: g.Name(), Err: err}
	}
	code := query.Get("code")
	if code == "" {
		return nil, nil, &oauth.Error{Provider: g.Name(), Err: errors.New("missing code")}
	}

	disc, err := g.discovery(ctx)
	if err != nil {
		return nil, nil, &oauth.Error{Provider: g.Name(), Err: err}
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", g.ClientID)
	form.Set("client_secret", g.ClientSecret)
	form.Set("redirect_uri", g.RedirectURL)

	req, _ := http.NewRequestWithContext(ctx, "POST", disc.TokenEndpoint, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := g.http.Do(req)
	if err != nil {
		return nil, nil, &oauth.Error{Provider: g.Name(), Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, nil, &oauth.Error{
			Provider: g.Name(),
			Body:     string(body),
			Err:      fmt.Errorf("token endpoint http %d", resp.StatusCode),
		}
	}
	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, nil, &oauth.Error{Provider: g.Name(), Err: err}
	}

	idClaims, err := g.verifyIDToken(ctx, tr.IDToken, claims.Nonce)
	if err != nil {
		return nil, nil, &oauth.Error{Provider: g.Name(), Err: err}
	}

	token := &oauth.Token{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		ExpiresIn:    tr.ExpiresIn,
	}
	identity := &oauth.Identity{
		ID: idClaims["sub"].(string),
		Attributes: map[string]any{
			"id": idClaims["sub"],
		},
	}
	// Provider-native attribute names; the identity mapper renames them.
	setIf(identity.Attributes, "email", idClaims["email"])
	setIf(identity.Attributes, "emailVerified", idClaims["email_verified"])
	setIf(identity.Attributes, "fullname", idClaims["name"])
	setIf(identity.Attributes, "firstname", idClaims["given_name"])
	setIf(identity.Attributes, "lastname", idClaims["family_name"])
	setIf(identity.Attributes, "picture", idClaims["picture"])
	setIf(identity.Attributes, "locale", idClaims["locale"])
	return token, identity, nil
}

func setIf(m map[string]any, key string, v any) {
	switch t := v.(type) {
	case nil:
		return
	case string:
		if t == "" {
			return
		}
	}
	m[key] = v
}

// verifyIDToken valida firma, iss, aud y nonce. Devuelve los claims crudos.
func (g *Provider) verifyIDToken(ctx context.Context, idToken, expectedNonce string) (jwtv5.MapClaims, error) {
	var header struct {
		Alg string `json:"alg"`
		Kid string `json:"kid"`
	}
	parts := strings.Split(idToken, ".")
	if len(parts) != 3 {
		return nil, errors.New("bad jwt format")
	}
	hb, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(hb, &header); err != nil {
		return nil, err
	}
	if header.Alg != "RS256" {
		return nil, fmt.Errorf("unexpected alg: %s", header.Alg)
	}

	key, err := g.rsaKeyForKid(ctx, header.Kid)
	if err != nil {
		return nil, err
	}
	tok, err := jwtv5.Parse(idToken, func(t *jwtv5.Token) (any, error) { return key, nil }, jwtv5.WithValidMethods([]string{"RS256"}))
	if err != nil || !tok.Valid {
		return nil, errors.New("invalid id_token")
	}
	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, errors.New("claims type")
	}

	iss, _ := claims["iss"].(string)
	if iss != "https://accounts.google.com" && iss != "accounts.google.com" {
		return nil, fmt.Errorf("bad iss: %s", iss)
	}
	audOK := false
	switch a := claims["aud"].(type) {
	case string:
		audOK = a == g.ClientID
	case []any:
		for _, v := range a {
			if s, _ := v.(string); s == g.ClientID {
				audOK = true
				break
			}
		}
	}
	if !audOK {
		return nil, errors.New("bad aud")
	}
	if expectedNonce != "" {
		if got, _ := claims["nonce"].(string); got != expectedNonce {
			return nil, errors.New("bad nonce")
		}
	}
	if expf, ok := claims["exp"].(float64); ok {
		if time.Unix(int64(expf), 0).Before(time.Now().Add(-30 * time.Second)) {
			return nil, errors.New("token expired")
		}
	}
	if _, ok := claims["sub"].(string); !ok {
		return nil, errors.New("missing sub")
	}
	return claims, nil
}
