// Package jwtauth implements the identity provider for HS256-signed access
// tokens, with sign-out backed by a revocation list.
package jwtauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/minka-latam/minka-sub002/internal/identity"
	"github.com/minka-latam/minka-sub002/internal/models"
)

const revokedKeyPrefix = "identity:revoked:"

// RevocationStore records revoked token ids until they would have expired anyway.
type RevocationStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Exists(ctx context.Context, keys ...string) (int64, error)
}

// Config holds token verification settings.
type Config struct {
	Secret   []byte
	Issuer   string
	Audience string
	Now      func() time.Time
}

// Provider validates access tokens locally.
type Provider struct {
	cfg     Config
	revoked RevocationStore
}

// NewProvider creates a JWT identity provider.
func NewProvider(cfg Config, revoked RevocationStore) *Provider {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Provider{cfg: cfg, revoked: revoked}
}

type accessClaims struct {
	jwt.RegisteredClaims
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

// GetSession verifies the token and checks it has not been signed out.
func (p *Provider) GetSession(ctx context.Context, cred identity.Credential) (*models.Session, error) {
	claims, err := p.parse(cred)
	if err != nil {
		return nil, err
	}

	n, err := p.revoked.Exists(ctx, revocationKey(cred, claims))
	if err != nil {
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if n > 0 {
		return nil, identity.ErrNoSession
	}

	return &models.Session{
		ID:        sessionID(cred, claims),
		UserID:    claims.Subject,
		Email:     claims.Email,
		ExpiresAt: claims.ExpiresAt.Time,
		Claims:    claims.UserMetadata,
	}, nil
}

// SignOut revokes the token for the remainder of its lifetime. Signing out a
// token that is invalid, expired or already revoked returns ErrNoSession.
func (p *Provider) SignOut(ctx context.Context, cred identity.Credential) error {
	claims, err := p.parse(cred)
	if err != nil {
		return err
	}

	ttl := claims.ExpiresAt.Time.Sub(p.cfg.Now())
	if ttl <= 0 {
		return identity.ErrNoSession
	}

	set, err := p.revoked.SetNX(ctx, revocationKey(cred, claims), "1", ttl)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	if !set {
		return identity.ErrNoSession
	}
	return nil
}

// parse maps every verification failure to ErrNoSession: a bad token is the
// caller's problem, not a provider outage.
func (p *Provider) parse(cred identity.Credential) (*accessClaims, error) {
	if cred.Empty() {
		return nil, identity.ErrNoSession
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.cfg.Now),
	}
	if p.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.cfg.Issuer))
	}
	if p.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(p.cfg.Audience))
	}

	var claims accessClaims
	_, err := jwt.ParseWithClaims(cred.Token, &claims, func(*jwt.Token) (any, error) {
		return p.cfg.Secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", identity.ErrNoSession, tokenErrorReason(err))
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", identity.ErrNoSession)
	}
	return &claims, nil
}

func tokenErrorReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "token expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "invalid signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed token"
	default:
		return "invalid token"
	}
}

func sessionID(cred identity.Credential, claims *accessClaims) string {
	if claims.ID != "" {
		return claims.ID
	}
	return cred.Fingerprint()
}

func revocationKey(cred identity.Credential, claims *accessClaims) string {
	return revokedKeyPrefix + sessionID(cred, claims)
}

var _ identity.Provider = (*Provider)(nil)
