package authz

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/minka-latam/minka-sub002/internal/pkg/errors"
)

type fakePages struct {
	forbidden, notFound, internal int
}

func (p *fakePages) Forbidden(w http.ResponseWriter, r *http.Request) {
	p.forbidden++
	w.WriteHeader(http.StatusForbidden)
}

func (p *fakePages) NotFound(w http.ResponseWriter, r *http.Request) {
	p.notFound++
	w.WriteHeader(http.StatusNotFound)
}

func (p *fakePages) InternalError(w http.ResponseWriter, r *http.Request) {
	p.internal++
	w.WriteHeader(http.StatusInternalServerError)
}

func TestShaper_API(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"unauthenticated", ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
		{"unauthorized", ErrUnauthorized, http.StatusForbidden, "forbidden"},
		{"not found", fmt.Errorf("profile: %w", ErrNotFound), http.StatusNotFound, "not_found"},
		{"validation", &ValidationError{Field: "ids", Message: "ids is required"}, http.StatusBadRequest, "validation_error"},
		{"api error passthrough", apierrors.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{"provider", &ProviderError{Op: "get_session", Err: errors.New("boom")}, http.StatusInternalServerError, "internal_error"},
		{"data store", &DataStoreError{Op: "get_profile", Err: errors.New("boom")}, http.StatusInternalServerError, "internal_error"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewShaper(discardLogger(), "/sign-in", nil)
			req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
			rr := httptest.NewRecorder()

			s.API(rr, req, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body["code"])
		})
	}
}

func TestShaper_API_CollaboratorDetailOnlyInLogs(t *testing.T) {
	var logs bytes.Buffer
	s := NewShaper(slog.New(slog.NewJSONHandler(&logs, nil)), "/sign-in", nil)
	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	rr := httptest.NewRecorder()

	err := &ProviderError{
		Op:          "get_session",
		Fingerprint: "abcd1234abcd1234",
		Err:         errors.New("upstream said: invalid apikey sk_live_secret"),
	}
	s.API(rr, req, err)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"code":"internal_error","error":"An internal error occurred"}`, rr.Body.String())
	assert.NotContains(t, rr.Body.String(), "sk_live_secret")

	assert.Contains(t, logs.String(), "sk_live_secret")
	assert.Contains(t, logs.String(), `"token_fp":"abcd1234abcd1234"`)
	assert.Contains(t, logs.String(), `"collaborator":"identity_provider"`)
}

func TestShaper_APIDecision(t *testing.T) {
	s := NewShaper(discardLogger(), "", nil)

	rr := httptest.NewRecorder()
	assert.False(t, s.APIDecision(rr, httptest.NewRequest(http.MethodGet, "/", nil), Decision{Allowed: true}))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	assert.True(t, s.APIDecision(rr, httptest.NewRequest(http.MethodGet, "/", nil), Decision{Reason: ReasonNoSession}))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	assert.True(t, s.APIDecision(rr, httptest.NewRequest(http.MethodGet, "/", nil), Decision{Reason: ReasonInsufficientTier}))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestShaper_RedirectToSignIn(t *testing.T) {
	s := NewShaper(discardLogger(), "/sign-in", nil)

	t.Run("browser", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard?tab=donations", nil)
		rr := httptest.NewRecorder()

		s.RedirectToSignIn(rr, req)

		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/sign-in?next=%2Fdashboard%3Ftab%3Ddonations", rr.Header().Get("Location"))
	})

	t.Run("htmx", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req.Header.Set("HX-Request", "true")
		rr := httptest.NewRecorder()

		s.RedirectToSignIn(rr, req)

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "/sign-in?next=%2Fdashboard", rr.Header().Get("HX-Redirect"))
	})

	t.Run("post has no next", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/admin", nil)
		rr := httptest.NewRecorder()

		s.RedirectToSignIn(rr, req)

		assert.Equal(t, "/sign-in", rr.Header().Get("Location"))
	})
}

func TestShaper_Page(t *testing.T) {
	pages := &fakePages{}
	s := NewShaper(discardLogger(), "/sign-in", pages)
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)

	rr := httptest.NewRecorder()
	s.Page(rr, req, ErrUnauthenticated)
	assert.Equal(t, http.StatusFound, rr.Code)

	rr = httptest.NewRecorder()
	assert.True(t, s.PageDecision(rr, req, Decision{Tier: TierOrganizer, Reason: ReasonInsufficientTier}))
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, 1, pages.forbidden)

	rr = httptest.NewRecorder()
	s.Page(rr, req, ErrNotFound)
	assert.Equal(t, 1, pages.notFound)

	rr = httptest.NewRecorder()
	s.Page(rr, req, &DataStoreError{Op: "get_profile", Err: errors.New("boom")})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, 1, pages.internal)
}

func TestShaper_Page_PlainFallback(t *testing.T) {
	s := NewShaper(discardLogger(), "/sign-in", nil)
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)

	rr := httptest.NewRecorder()
	s.Page(rr, req, ErrUnauthorized)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	s.Page(rr, req, &ProviderError{Op: "get_session", Err: errors.New("secret detail")})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "secret detail")

	withPages := s.WithPages(&fakePages{})
	rr = httptest.NewRecorder()
	withPages.Page(rr, req, ErrNotFound)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
