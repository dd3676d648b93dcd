package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minka-latam/minka-sub002/internal/authz"
	"github.com/minka-latam/minka-sub002/internal/identity"
	"github.com/minka-latam/minka-sub002/internal/models"
	"github.com/minka-latam/minka-sub002/internal/service"
)

type bearerCreds struct{}

func (bearerCreds) Credential(r *http.Request) identity.Credential {
	return identity.Credential{Token: strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")}
}

type fakeProvider struct {
	sessions map[string]*models.Session
	err      error
}

func (p *fakeProvider) GetSession(ctx context.Context, cred identity.Credential) (*models.Session, error) {
	if p.err != nil {
		return nil, p.err
	}
	if s, ok := p.sessions[cred.Token]; ok {
		return s, nil
	}
	return nil, identity.ErrNoSession
}

func (p *fakeProvider) SignOut(ctx context.Context, cred identity.Credential) error { return nil }

type fakeProfiles map[string]*models.Profile

func (f fakeProfiles) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	return f[id], nil
}

type fakeCounter int

func (c fakeCounter) CountUnread(ctx context.Context, userID string) (int, error) {
	return int(c), nil
}

// mockProfileService is a mock implementation of ProfileService for testing.
type mockProfileService struct {
	listFunc func(ctx context.Context, page, perPage int) ([]*models.Profile, int64, error)
}

func (m *mockProfileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	return nil, authz.ErrNotFound
}

func (m *mockProfileService) Update(ctx context.Context, userID string, req service.UpdateProfileRequest) (*models.Profile, error) {
	return nil, authz.ErrNotFound
}

func (m *mockProfileService) FindByEmail(ctx context.Context, email string) (*models.Profile, error) {
	return nil, authz.ErrNotFound
}

func (m *mockProfileService) Batch(ctx context.Context, ids []string) ([]models.PublicProfile, error) {
	return nil, nil
}

func (m *mockProfileService) List(ctx context.Context, page, perPage int) ([]*models.Profile, int64, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, page, perPage)
	}
	return nil, 0, nil
}

func newTestHandler(provider *fakeProvider, profileSvc service.ProfileService) http.Handler {
	exp := time.Now().Add(time.Hour)
	if provider.sessions == nil {
		provider.sessions = map[string]*models.Session{
			"admin":     {UserID: "admin-1", Email: "admin@minka.org", ExpiresAt: exp},
			"organizer": {UserID: "org-1", Email: "org@minka.org", ExpiresAt: exp},
			"newcomer":  {UserID: "new-1", Email: "new@minka.org", ExpiresAt: exp, Claims: map[string]any{"full_name": "Nueva <b>Persona</b>"}},
		}
	}
	profiles := fakeProfiles{
		"admin-1": {ID: "admin-1", Name: "Admin", Role: models.RoleAdmin},
		"org-1":   {ID: "org-1", Name: "Fundación Sol", Role: models.RoleOrganizer},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver := authz.NewResolver(provider, profiles, fakeCounter(3), logger)
	shaper := authz.NewShaper(logger, "/sign-in", nil)

	if profileSvc == nil {
		profileSvc = &mockProfileService{}
	}
	return NewWebHandler(resolver, shaper, bearerCreds{}, profileSvc, logger).Routes()
}

func get(h http.Handler, path, token string, htmx bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestPages_RedirectWithoutSession(t *testing.T) {
	h := newTestHandler(&fakeProvider{}, nil)

	for _, path := range []string{"/dashboard", "/admin"} {
		rr := get(h, path, "", false)
		assert.Equal(t, http.StatusFound, rr.Code, path)
		assert.True(t, strings.HasPrefix(rr.Header().Get("Location"), "/sign-in?next="), path)

		rr = get(h, path, "stale", true)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
		assert.NotEmpty(t, rr.Header().Get("HX-Redirect"), path)
	}
}

func TestDashboard_LayoutByTier(t *testing.T) {
	h := newTestHandler(&fakeProvider{}, nil)

	rr := get(h, "/dashboard", "admin", false)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `class="layout layout-admin"`)

	rr = get(h, "/dashboard", "organizer", false)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `class="layout layout-standard"`)
	assert.Contains(t, body, "Fundación Sol")
	assert.Contains(t, body, `data-count="3"`)
	assert.NotContains(t, body, "Completa tu perfil")
}

func TestDashboard_WithoutProfile(t *testing.T) {
	h := newTestHandler(&fakeProvider{}, nil)

	rr := get(h, "/dashboard", "newcomer", false)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `layout-standard`)
	assert.Contains(t, body, "Completa tu perfil")
	assert.Contains(t, body, "Nueva &lt;b&gt;Persona&lt;/b&gt;")
	assert.NotContains(t, body, "<b>Persona</b>")
}

func TestAdmin_Access(t *testing.T) {
	profileSvc := &mockProfileService{listFunc: func(ctx context.Context, page, perPage int) ([]*models.Profile, int64, error) {
		return []*models.Profile{{Name: "Ana", Email: "ana@example.com", Role: models.RoleRegular}}, 41, nil
	}}
	h := newTestHandler(&fakeProvider{}, profileSvc)

	rr := get(h, "/admin", "organizer", false)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "Acceso denegado")

	rr = get(h, "/admin", "newcomer", false)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = get(h, "/admin", "admin", false)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "41 usuarios registrados")
	assert.Contains(t, rr.Body.String(), "ana@example.com")
}

func TestAdmin_StoreFailure(t *testing.T) {
	profileSvc := &mockProfileService{listFunc: func(ctx context.Context, page, perPage int) ([]*models.Profile, int64, error) {
		return nil, 0, &authz.DataStoreError{Op: "list_profiles", Err: errors.New("pool closed")}
	}}
	h := newTestHandler(&fakeProvider{}, profileSvc)

	rr := get(h, "/admin", "admin", false)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "pool closed")
}

func TestPages_ProviderFailure(t *testing.T) {
	h := newTestHandler(&fakeProvider{err: errors.New("identity provider timeout")}, nil)

	rr := get(h, "/dashboard", "admin", false)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "Algo salió mal")
	assert.NotContains(t, rr.Body.String(), "timeout")

	rr = get(h, "/sign-in", "admin", false)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestSignInPage(t *testing.T) {
	h := newTestHandler(&fakeProvider{}, nil)

	rr := get(h, "/sign-in?next=/admin", "", false)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `data-next="/admin"`)

	rr = get(h, "/sign-in?next=//evil.example.com", "", false)
	assert.Contains(t, rr.Body.String(), `data-next="/dashboard"`)

	rr = get(h, "/sign-in?next=/admin", "admin", false)
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/admin", rr.Header().Get("Location"))

	rr = get(h, "/sign-in?next=//evil.example.com", "admin", false)
	assert.Equal(t, "/dashboard", rr.Header().Get("Location"))
}

func TestLanding(t *testing.T) {
	h := newTestHandler(&fakeProvider{}, nil)

	assert.Equal(t, "/sign-in", get(h, "/", "", false).Header().Get("Location"))
	assert.Equal(t, "/dashboard", get(h, "/", "organizer", false).Header().Get("Location"))
}

func TestNotFoundPage(t *testing.T) {
	h := newTestHandler(&fakeProvider{}, nil)

	rr := get(h, "/nope", "", false)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Página no encontrada")
}

func TestNewViewer(t *testing.T) {
	pic := "https://cdn.minka.org/a.png"
	v := NewViewer(&authz.Result{
		Session:     &models.Session{Email: "a@b.c"},
		Profile:     &models.Profile{Name: "", Email: "a@b.c", ProfilePicture: &pic},
		UnreadCount: 2,
	})
	assert.Equal(t, "a@b.c", v.Name)
	assert.Equal(t, pic, v.Picture)
	assert.True(t, v.ProfileComplete)
	assert.Equal(t, 2, v.UnreadCount)
}
