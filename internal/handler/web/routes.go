// Package web provides HTTP handlers for the dashboard pages.
package web

import (
	"log/slog"
	"net/http"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/minka-latam/minka-sub002/internal/authz"
	"github.com/minka-latam/minka-sub002/internal/middleware"
	"github.com/minka-latam/minka-sub002/internal/service"
)

// WebHandler handles HTTP requests for the dashboard pages.
type WebHandler struct {
	resolver       *authz.Resolver
	shaper         *authz.Shaper
	creds          middleware.CredentialSource
	profileService service.ProfileService
	logger         *slog.Logger
}

// NewWebHandler creates a new WebHandler. Its shaper renders page errors
// with the handler's own error pages.
func NewWebHandler(
	resolver *authz.Resolver,
	shaper *authz.Shaper,
	creds middleware.CredentialSource,
	profileService service.ProfileService,
	logger *slog.Logger,
) *WebHandler {
	h := &WebHandler{
		resolver:       resolver,
		creds:          creds,
		profileService: profileService,
		logger:         logger,
	}
	h.shaper = shaper.WithPages(h)
	return h
}

// Routes returns the chi router with all page routes configured.
func (h *WebHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.Landing)
	r.Get("/sign-in", h.SignInPage)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(h.resolver, h.shaper, h.creds, middleware.AuthConfig{
			Required:        authz.TierAnonymous,
			WithUnreadCount: true,
			Page:            true,
		}))
		r.Get("/dashboard", h.Dashboard)

		r.With(middleware.RequireTier(h.shaper, authz.TierAdmin, true)).Get("/admin", h.Admin)
	})

	r.NotFound(h.NotFound)
	return r
}

// Landing sends signed-in users to the dashboard and everyone else to sign-in.
func (h *WebHandler) Landing(w http.ResponseWriter, r *http.Request) {
	session, err := h.resolver.ResolveSession(r.Context(), h.creds.Credential(r))
	if err == nil && session != nil {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/sign-in", http.StatusFound)
}

// SignInPage renders the sign-in page, or redirects when already signed in.
// Provider failures fall through to the page so users can retry.
func (h *WebHandler) SignInPage(w http.ResponseWriter, r *http.Request) {
	next := r.URL.Query().Get("next")

	session, err := h.resolver.ResolveSession(r.Context(), h.creds.Credential(r))
	if err != nil {
		h.logger.Warn("sign-in page could not check session", slog.String("error", err.Error()))
	}
	if session != nil {
		target := "/dashboard"
		if next != "" && next[0] == '/' && (len(next) == 1 || next[1] != '/') {
			target = next
		}
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	templ.Handler(SignIn(next)).ServeHTTP(w, r)
}

// Dashboard renders the admin or standard layout depending on the caller's tier.
func (h *WebHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	res := authz.FromContext(r.Context())
	viewer := NewViewer(res)

	component := Shell(res.Decision.Layout(), "Inicio", viewer, DashboardHome(viewer))
	templ.Handler(component).ServeHTTP(w, r)
}

// Admin renders the administration home with the newest profiles.
func (h *WebHandler) Admin(w http.ResponseWriter, r *http.Request) {
	res := authz.FromContext(r.Context())

	profiles, total, err := h.profileService.List(r.Context(), 1, 20)
	if err != nil {
		h.shaper.Page(w, r, err)
		return
	}

	component := Shell(authz.LayoutAdmin, "Administración", NewViewer(res), AdminHome(profiles, total))
	templ.Handler(component).ServeHTTP(w, r)
}

// Forbidden renders the 403 page.
func (h *WebHandler) Forbidden(w http.ResponseWriter, r *http.Request) {
	templ.Handler(
		ErrorPage(http.StatusForbidden, "Acceso denegado", "No tienes permiso para ver esta página."),
		templ.WithStatus(http.StatusForbidden),
	).ServeHTTP(w, r)
}

// NotFound renders the 404 page.
func (h *WebHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	templ.Handler(
		ErrorPage(http.StatusNotFound, "Página no encontrada", "La página que buscas no existe."),
		templ.WithStatus(http.StatusNotFound),
	).ServeHTTP(w, r)
}

// InternalError renders the 500 page.
func (h *WebHandler) InternalError(w http.ResponseWriter, r *http.Request) {
	templ.Handler(
		ErrorPage(http.StatusInternalServerError, "Algo salió mal", "Ocurrió un error interno. Intenta de nuevo más tarde."),
		templ.WithStatus(http.StatusInternalServerError),
	).ServeHTTP(w, r)
}

var _ authz.PageRenderer = (*WebHandler)(nil)
