// Package oauth defines the provider SDK surface the login coordinator
// consumes. Concrete providers live in subpackages (google, github); the
// coordinator only sees AuthCodeURL and Exchange.
package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Token is the opaque credential returned by a provider. The coordinator
// never parses it; it is serialized onto the social profile as-is.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

// Serialize returns the JSON form stored under the profile's access_token
// attribute. A nil token serializes to the empty string.
func (t *Token) Serialize() string {
	if t == nil {
		return ""
	}
	b, _ := json.Marshal(t)
	return string(b)
}

// Identity is the external identity a provider returns after a successful
// exchange. Attributes hold the provider's field set under provider-native
// names (id, firstname, emailVerified, ...); it lives only for the duration
// of one callback request.
type Identity struct {
	ID         string
	Attributes map[string]any
}

// Provider is the handshake SDK for one identity provider.
type Provider interface {
	// Name returns the provider's registry name ("google", "github").
	Name() string

	// AuthCodeURL builds the authorization URL the browser is redirected to.
	AuthCodeURL(ctx context.Context) (string, error)

	// Exchange consumes the callback's query parameters opaquely: it
	// validates state, exchanges the authorization code and fetches the
	// external identity. Any failure is a *Error.
	Exchange(ctx context.Context, query url.Values) (*Token, *Identity, error)
}

// Error wraps a provider-level handshake failure. Body carries the raw
// provider response when one was received, for diagnostic logging.
type Error struct {
	Provider string
	Body     string
	Err      error
}

func (e *Error) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("provider %s: %v (%s)", e.Provider, e.Err, e.Body)
	}
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Registry maps provider names to configured providers.
type Registry map[string]Provider

// Lookup resolves a provider by name, case-insensitively.
func (r Registry) Lookup(name string) (Provider, bool) {
	p, ok := r[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// Register adds a provider under its own name.
func (r Registry) Register(p Provider) {
	r[strings.ToLower(p.Name())] = p
}
