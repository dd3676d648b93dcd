package identity

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"

	"github.com/minka-latam/minka-sub002/internal/config"
)

const tokenKey = "access_token"

// CookieStore keeps the provider access token in a signed session cookie.
type CookieStore struct {
	store sessions.Store
	name  string
	opts  sessions.Options
}

// NewCookieStore creates a cookie store from configuration. An empty secret
// produces a random per-process key, which only suits development.
func NewCookieStore(cfg config.SessionConfig) (*CookieStore, error) {
	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("failed to generate session key: %w", err)
		}
	}
	return NewCookieStoreWith(sessions.NewCookieStore(secret), cfg), nil
}

// NewCookieStoreWith wraps an existing gorilla session store.
func NewCookieStoreWith(store sessions.Store, cfg config.SessionConfig) *CookieStore {
	name := cfg.CookieName
	if name == "" {
		name = "minka_session"
	}
	return &CookieStore{
		store: store,
		name:  name,
		opts: sessions.Options{
			Path:     "/",
			MaxAge:   cfg.MaxAge,
			HttpOnly: true,
			Secure:   cfg.Secure,
			SameSite: http.SameSiteLaxMode,
		},
	}
}

// Credential extracts the credential from the session cookie, falling back to
// an Authorization bearer header for API clients. A tampered or undecodable
// cookie yields an empty credential.
func (s *CookieStore) Credential(r *http.Request) Credential {
	if session, err := s.store.Get(r, s.name); err == nil {
		if token, ok := session.Values[tokenKey].(string); ok && strings.TrimSpace(token) != "" {
			return Credential{Token: strings.TrimSpace(token)}
		}
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return Credential{Token: strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))}
	}
	return Credential{}
}

// Save stores the token in the session cookie.
func (s *CookieStore) Save(w http.ResponseWriter, r *http.Request, token string) error {
	session, _ := s.store.Get(r, s.name)
	opts := s.opts
	opts.Secure = opts.Secure || r.TLS != nil
	session.Options = &opts
	session.Values[tokenKey] = token
	return session.Save(r, w)
}

// Clear expires the session cookie.
func (s *CookieStore) Clear(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.store.Get(r, s.name)
	opts := s.opts
	opts.MaxAge = -1
	session.Options = &opts
	delete(session.Values, tokenKey)
	return session.Save(r, w)
}
