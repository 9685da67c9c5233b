// Package session implements the per-browser session store used by the
// login flow: a cookie carrying an opaque session ID plus a cache-backed
// key/value namespace scoped to that ID.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/sgarciab/authbridge/internal/cache"
)

// Manager issues session cookies and scopes cache entries per session.
type Manager struct {
	cache      cache.Cache
	cookieName string
	ttl        time.Duration
	secure     bool
}

// Options configures a Manager.
type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// New creates a session Manager over the given cache backend.
func New(c cache.Cache, opts Options) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = "authbridge_session"
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	return &Manager{
		cache:      c,
		cookieName: opts.CookieName,
		ttl:        opts.TTL,
		secure:     opts.Secure,
	}
}

// SessionID returns the request's session ID, issuing a new cookie when the
// request carries none. The same ID links the login and callback requests.
func (m *Manager) SessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(m.cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	id := newID()
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(m.ttl),
	})
	return id
}

// Set stores a value under the session-scoped key.
func (m *Manager) Set(sessionID, key string, value []byte) {
	m.cache.Set(m.key(sessionID, key), value, m.ttl)
}

// Get reads a value without removing it.
func (m *Manager) Get(sessionID, key string) ([]byte, bool) {
	return m.cache.Get(m.key(sessionID, key))
}

// Delete removes a value.
func (m *Manager) Delete(sessionID, key string) {
	m.cache.Delete(m.key(sessionID, key))
}

// Consume reads a value and deletes it in the same call. Used for the
// pending-redirect entry, which must survive exactly one callback.
func (m *Manager) Consume(sessionID, key string) ([]byte, bool) {
	k := m.key(sessionID, key)
	b, ok := m.cache.Get(k)
	if ok {
		m.cache.Delete(k)
	}
	return b, ok
}

func (m *Manager) key(sessionID, key string) string {
	return "sess:" + sessionID + ":" + key
}

// newID generates a random base64url session identifier.
func newID() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
