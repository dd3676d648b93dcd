package handler

import (
	"github.com/go-chi/chi/v5"

	"github.com/minka-latam/minka-sub002/internal/authz"
	"github.com/minka-latam/minka-sub002/internal/middleware"
)

// API bundles the handlers mounted under /api.
type API struct {
	Resolver      *authz.Resolver
	Shaper        *authz.Shaper
	Creds         CredentialStore
	Sessions      *SessionHandler
	Profiles      *ProfileHandler
	Notifications *NotificationHandler
}

// Routes returns a chi router with every API route and its access tier.
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()

	authed := middleware.Auth(a.Resolver, a.Shaper, a.Creds, middleware.AuthConfig{Required: authz.TierAnonymous})
	admin := middleware.Auth(a.Resolver, a.Shaper, a.Creds, middleware.AuthConfig{Required: authz.TierAdmin})

	// Session endpoints shape their own unauthenticated answers.
	r.Get("/session", a.Sessions.Session)
	r.Post("/auth/session", a.Sessions.Establish)
	r.Post("/auth/logout", a.Sessions.Logout)

	// Public profile lookups
	r.Post("/profile/batch", a.Profiles.Batch)

	r.Group(func(r chi.Router) {
		r.Use(authed)
		r.Get("/profile", a.Profiles.Get)
		r.Patch("/profile", a.Profiles.Update)
		r.Mount("/notifications", a.Notifications.Routes())
	})

	r.Route("/admin", func(r chi.Router) {
		r.Get("/auth", a.Sessions.AdminAuth)

		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.Get("/profiles", a.Profiles.List)
			r.Get("/profiles/lookup", a.Profiles.Lookup)
			r.Post("/notifications", a.Notifications.Create)
		})
	})

	return r
}
