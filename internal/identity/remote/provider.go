// Package remote implements the identity provider by calling a hosted auth
// service (GoTrue-compatible /auth/v1 endpoints).
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/minka-latam/minka-sub002/internal/identity"
	"github.com/minka-latam/minka-sub002/internal/models"
)

// HTTPClient interface for making HTTP requests (allows mocking in tests).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config holds remote provider settings.
type Config struct {
	BaseURL string
	// APIKey is sent as the apikey header. Ignored when ClientCredentials is set.
	APIKey string
	// ClientCredentials, when set, obtains the apikey from an OAuth2 token endpoint.
	ClientCredentials *clientcredentials.Config
	Timeout           time.Duration
}

// Provider calls the hosted identity service.
type Provider struct {
	baseURL    string
	apiKey     oauth2.TokenSource
	httpClient HTTPClient
}

// NewProvider creates a remote identity provider.
func NewProvider(cfg Config) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return NewProviderWithClient(cfg, &http.Client{Timeout: timeout})
}

// NewProviderWithClient creates a remote identity provider with a custom HTTP client.
func NewProviderWithClient(cfg Config, client HTTPClient) *Provider {
	var ts oauth2.TokenSource
	if cfg.ClientCredentials != nil {
		ts = cfg.ClientCredentials.TokenSource(context.Background())
	} else {
		ts = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.APIKey})
	}
	return &Provider{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     ts,
		httpClient: client,
	}
}

type userResponse struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// GetSession resolves the access token through GET /auth/v1/user.
func (p *Provider) GetSession(ctx context.Context, cred identity.Credential) (*models.Session, error) {
	if cred.Empty() {
		return nil, identity.ErrNoSession
	}

	resp, err := p.do(ctx, http.MethodGet, "/auth/v1/user", cred)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if isRejected(resp.StatusCode) {
		return nil, identity.ErrNoSession
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}

	var user userResponse
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode identity provider user: %w", err)
	}
	if user.ID == "" {
		return nil, errors.New("identity provider returned a user without id")
	}

	return &models.Session{
		ID:        cred.Fingerprint(),
		UserID:    user.ID,
		Email:     user.Email,
		ExpiresAt: tokenExpiry(cred.Token),
		Claims:    user.UserMetadata,
	}, nil
}

// SignOut revokes the session through POST /auth/v1/logout.
func (p *Provider) SignOut(ctx context.Context, cred identity.Credential) error {
	if cred.Empty() {
		return identity.ErrNoSession
	}

	resp, err := p.do(ctx, http.MethodPost, "/auth/v1/logout", cred)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent:
		return nil
	case isRejected(resp.StatusCode):
		return identity.ErrNoSession
	default:
		return fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}
}

func (p *Provider) do(ctx context.Context, method, path string, cred identity.Credential) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build identity request: %w", err)
	}

	key, err := p.apiKey.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to obtain identity api key: %w", err)
	}
	if key.AccessToken != "" {
		req.Header.Set("apikey", key.AccessToken)
	}
	req.Header.Set("Authorization", "Bearer "+cred.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity request failed: %w", err)
	}
	return resp, nil
}

func isRejected(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden || status == http.StatusNotFound
}

// tokenExpiry reads exp without verifying the signature; the provider has
// already vouched for the token by returning its user.
func tokenExpiry(token string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

var _ identity.Provider = (*Provider)(nil)
