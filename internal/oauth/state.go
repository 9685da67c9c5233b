package oauth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// stateAudience is the expected audience for login state tokens.
const stateAudience = "login-state"

// Errors for state operations.
var (
	ErrStateInvalid  = errors.New("invalid state token")
	ErrStateExpired  = errors.New("state token expired")
	ErrStateProvider = errors.New("state provider mismatch")
)

// StateClaims is what a signed state token carries across the redirect.
type StateClaims struct {
	Provider string
	Nonce    string
}

// StateSigner signs and verifies the OAuth state parameter with HMAC.
// The nonce embedded in the state is reused as the OIDC nonce, so a provider
// can bind the callback to the auth request it issued.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
}

// NewStateSigner creates a signer. TTL bounds how long a pending login
// redirect remains exchangeable.
func NewStateSigner(secret string, ttl time.Duration) *StateSigner {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateSigner{secret: []byte(secret), ttl: ttl}
}

// Sign mints a state token for the given provider.
func (s *StateSigner) Sign(provider string) (state string, claims StateClaims, err error) {
	nonce, err := randomToken(16)
	if err != nil {
		return "", StateClaims{}, err
	}
	now := time.Now().UTC()
	tok := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, jwtv5.MapClaims{
		"aud":      stateAudience,
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"exp":      now.Add(s.ttl).Unix(),
		"provider": provider,
		"nonce":    nonce,
	})
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", StateClaims{}, err
	}
	return signed, StateClaims{Provider: provider, Nonce: nonce}, nil
}

// Verify parses a state token and checks it was minted for provider.
func (s *StateSigner) Verify(state, provider string) (*StateClaims, error) {
	tok, err := jwtv5.Parse(state,
		func(t *jwtv5.Token) (any, error) { return s.secret, nil },
		jwtv5.WithValidMethods([]string{"HS256"}),
	)
	if err != nil || !tok.Valid {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return nil, ErrStateExpired
		}
		return nil, ErrStateInvalid
	}
	mapClaims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, ErrStateInvalid
	}
	if aud, _ := mapClaims["aud"].(string); aud != stateAudience {
		return nil, ErrStateInvalid
	}
	claims := &StateClaims{
		Provider: strClaim(mapClaims, "provider"),
		Nonce:    strClaim(mapClaims, "nonce"),
	}
	if claims.Provider != provider {
		return nil, ErrStateProvider
	}
	return claims, nil
}

func strClaim(m jwtv5.MapClaims, k string) string {
	s, _ := m[k].(string)
	return s
}

// randomToken generates a random base64url-encoded string.
func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
