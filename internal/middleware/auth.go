package middleware

import (
	"net/http"

	"github.com/minka-latam/minka-sub002/internal/authz"
	"github.com/minka-latam/minka-sub002/internal/identity"
)

// CredentialSource extracts the caller's credential from a request.
type CredentialSource interface {
	Credential(r *http.Request) identity.Credential
}

// AuthConfig holds authentication middleware configuration.
type AuthConfig struct {
	// Required is the minimum tier for the wrapped routes.
	Required authz.Tier
	// WithUnreadCount also loads the unread notification count.
	WithUnreadCount bool
	// Page makes denials redirect or render pages instead of returning JSON.
	Page bool
}

// Auth returns a middleware that resolves the caller and rejects requests
// whose decision is denied. The authz.Result is stored in the request context.
func Auth(resolver *authz.Resolver, shaper *authz.Shaper, creds CredentialSource, cfg AuthConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := resolver.Resolve(r.Context(), creds.Credential(r), authz.Options{
				Required:        cfg.Required,
				WithUnreadCount: cfg.WithUnreadCount,
			})
			if err != nil {
				fail(shaper, cfg.Page)(w, r, err)
				return
			}

			if err := res.Decision.Err(); err != nil {
				fail(shaper, cfg.Page)(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(authz.WithResult(r.Context(), res)))
		})
	}
}

// RequireTier returns a middleware that checks an already resolved caller
// against a higher tier. It must run after Auth.
func RequireTier(shaper *authz.Shaper, required authz.Tier, page bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := authz.FromContext(r.Context())
			if res == nil {
				fail(shaper, page)(w, r, authz.ErrUnauthenticated)
				return
			}

			d := authz.Authorize(res.Session, res.Profile, required)
			if err := d.Err(); err != nil {
				fail(shaper, page)(w, r, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func fail(shaper *authz.Shaper, page bool) func(http.ResponseWriter, *http.Request, error) {
	if page {
		return shaper.Page
	}
	return shaper.API
}

// GetUserID retrieves the resolved user ID from context.
func GetUserID(r *http.Request) string {
	if res := authz.FromContext(r.Context()); res.Authenticated() {
		return res.Session.UserID
	}
	return ""
}
