package web

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/minka-latam/minka-sub002/internal/authz"
	"github.com/minka-latam/minka-sub002/internal/models"
)

// Viewer is the signed-in identity shown in the page chrome.
type Viewer struct {
	Name        string
	Email       string
	Picture     string
	UnreadCount int
	// ProfileComplete is false while registration is unfinished.
	ProfileComplete bool
}

// NewViewer builds the chrome identity from a resolved request. Without a
// profile it falls back to the provider's email and metadata.
func NewViewer(res *authz.Result) Viewer {
	v := Viewer{UnreadCount: res.UnreadCount}
	if res.Session != nil {
		v.Email = res.Session.Email
		if name, ok := res.Session.Claims["full_name"].(string); ok {
			v.Name = name
		}
	}
	if p := res.Profile; p != nil {
		v.ProfileComplete = true
		v.Name = p.DisplayName()
		if p.ProfilePicture != nil {
			v.Picture = *p.ProfilePicture
		}
	}
	if v.Name == "" {
		v.Name = v.Email
	}
	return v
}

type navItem struct {
	Label string
	Href  string
}

var standardNav = []navItem{
	{"Inicio", "/dashboard"},
	{"Mis campañas", "/dashboard/campaigns"},
	{"Donaciones", "/dashboard/donations"},
	{"Perfil", "/dashboard/profile"},
}

var adminNav = []navItem{
	{"Panel", "/admin"},
	{"Usuarios", "/admin"},
	{"Campañas", "/admin/campaigns"},
	{"Mi tablero", "/dashboard"},
}

// writef writes a formatted HTML fragment. Arguments must already be escaped.
func writef(out io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(out, format, args...)
	return err
}

func esc(s string) string {
	return templ.EscapeString(s)
}

// document wraps body in the HTML shell.
func document(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		if err := writef(out, `<!DOCTYPE html><html lang="es"><head><meta charset="utf-8">`+
			`<meta name="viewport" content="width=device-width, initial-scale=1">`+
			`<title>%s · Minka</title>`+
			`<script src="https://unpkg.com/htmx.org@1.9.12"></script></head><body>`, esc(title)); err != nil {
			return err
		}
		if err := body.Render(ctx, out); err != nil {
			return err
		}
		return writef(out, `</body></html>`)
	})
}

// Shell renders the dashboard chrome for the given layout around content.
func Shell(layout authz.Layout, title string, viewer Viewer, content templ.Component) templ.Component {
	nav := standardNav
	if layout == authz.LayoutAdmin {
		nav = adminNav
	}

	return document(title, templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		if err := writef(out, `<div class="layout layout-%s"><aside class="sidebar"><nav>`, layout); err != nil {
			return err
		}
		for _, item := range nav {
			if err := writef(out, `<a href="%s">%s</a>`, esc(item.Href), esc(item.Label)); err != nil {
				return err
			}
		}
		if err := writef(out, `</nav></aside><main><header class="topbar">`); err != nil {
			return err
		}
		if viewer.Picture != "" {
			if err := writef(out, `<img class="avatar" src="%s" alt="">`, esc(viewer.Picture)); err != nil {
				return err
			}
		}
		if err := writef(out, `<span class="viewer">%s</span>`+
			`<a class="bell" href="/dashboard/notifications" hx-get="/api/notifications/unread-count" hx-trigger="every 60s">`+
			`<span class="badge" data-count="%d">%d</span></a>`+
			`<button hx-post="/api/auth/logout" hx-on::after-request="window.location='/sign-in'">Cerrar sesión</button>`+
			`</header>`, esc(viewer.Name), viewer.UnreadCount, viewer.UnreadCount); err != nil {
			return err
		}
		if !viewer.ProfileComplete {
			if err := writef(out, `<div class="notice">Completa tu perfil para crear campañas.</div>`); err != nil {
				return err
			}
		}
		if err := content.Render(ctx, out); err != nil {
			return err
		}
		return writef(out, `</main></div>`)
	}))
}

// DashboardHome is the landing content of /dashboard.
func DashboardHome(viewer Viewer) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		return writef(out, `<section class="welcome"><h1>Hola, %s</h1>`+
			`<p>Tienes %d notificaciones sin leer.</p></section>`,
			esc(viewer.Name), viewer.UnreadCount)
	})
}

// AdminHome lists the most recent profiles for administrators.
func AdminHome(profiles []*models.Profile, total int64) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		if err := writef(out, `<section class="admin"><h1>Administración</h1>`+
			`<p class="total">%d usuarios registrados</p>`+
			`<table><thead><tr><th>Nombre</th><th>Email</th><th>Rol</th></tr></thead><tbody>`, total); err != nil {
			return err
		}
		for _, p := range profiles {
			if err := writef(out, `<tr><td>%s</td><td>%s</td><td>%s</td></tr>`,
				esc(p.Name), esc(p.Email), esc(string(p.Role))); err != nil {
				return err
			}
		}
		return writef(out, `</tbody></table></section>`)
	})
}

// SignIn is the sign-in placeholder. The identity provider's hosted form
// posts the resulting access token to /api/auth/session.
func SignIn(next string) templ.Component {
	return document("Iniciar sesión", templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
			next = "/dashboard"
		}
		return writef(out, `<main class="sign-in"><h1>Iniciar sesión</h1>`+
			`<p>Ingresa con tu cuenta de Minka para continuar.</p>`+
			`<div id="identity-widget" data-next="%s"></div></main>`, esc(next))
	}))
}

// ErrorPage renders a standalone error page.
func ErrorPage(status int, title, message string) templ.Component {
	return document(title, templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		return writef(out, `<main class="error error-%d"><h1>%s</h1><p>%s</p>`+
			`<a href="/dashboard">Volver al inicio</a></main>`, status, esc(title), esc(message))
	}))
}
