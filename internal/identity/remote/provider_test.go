package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/minka-latam/minka-sub002/internal/identity"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*Provider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewProvider(Config{BaseURL: srv.URL + "/", APIKey: "anon-key", Timeout: time.Second}), srv
}

func TestGetSession_OK(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("irrelevant"))
	require.NoError(t, err)

	p, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/user", r.URL.Path)
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer "+token, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"user-1","email":"ana@example.com","user_metadata":{"full_name":"Ana"}}`))
	})

	session, err := p.GetSession(context.Background(), identity.Credential{Token: token})
	require.NoError(t, err)
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, "ana@example.com", session.Email)
	assert.Equal(t, "Ana", session.Claims["full_name"])
	assert.True(t, exp.Equal(session.ExpiresAt))
	assert.Equal(t, identity.Fingerprint(token), session.ID)
}

func TestGetSession_StatusMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		noSession bool
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, noSession: true},
		{name: "forbidden", status: http.StatusForbidden, noSession: true},
		{name: "user deleted", status: http.StatusNotFound, noSession: true},
		{name: "provider down", status: http.StatusBadGateway},
		{name: "malformed body", status: http.StatusOK, body: `{"id":`},
		{name: "missing id", status: http.StatusOK, body: `{"email":"x@example.com"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			session, err := p.GetSession(context.Background(), identity.Credential{Token: "tok"})
			assert.Nil(t, session)
			require.Error(t, err)
			if tt.noSession {
				assert.ErrorIs(t, err, identity.ErrNoSession)
			} else {
				assert.NotErrorIs(t, err, identity.ErrNoSession)
			}
		})
	}
}

func TestGetSession_EmptyCredentialSkipsCall(t *testing.T) {
	called := false
	p, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	_, err := p.GetSession(context.Background(), identity.Credential{})
	assert.ErrorIs(t, err, identity.ErrNoSession)
	assert.False(t, called)
}

func TestGetSession_Unreachable(t *testing.T) {
	p, srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := p.GetSession(context.Background(), identity.Credential{Token: "tok"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, identity.ErrNoSession)
}

func TestSignOut(t *testing.T) {
	calls := 0
	p, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/v1/logout", r.URL.Path)
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	})

	cred := identity.Credential{Token: "tok"}
	assert.NoError(t, p.SignOut(context.Background(), cred))
	assert.ErrorIs(t, p.SignOut(context.Background(), cred), identity.ErrNoSession)
}

func TestClientCredentialsAPIKey(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"service-key","token_type":"bearer","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	idSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		w.Write([]byte(`{"id":"user-1"}`))
	}))
	defer idSrv.Close()

	p := NewProvider(Config{
		BaseURL: idSrv.URL,
		ClientCredentials: &clientcredentials.Config{
			ClientID:     "minka-api",
			ClientSecret: "secret",
			TokenURL:     tokenSrv.URL,
		},
	})

	session, err := p.GetSession(context.Background(), identity.Credential{Token: "opaque"})
	require.NoError(t, err)
	assert.Equal(t, "user-1", session.UserID)
	assert.True(t, session.ExpiresAt.IsZero(), "opaque tokens carry no readable expiry")
}
