package service

import (
	"context"
	"errors"

	"github.com/minka-latam/minka-sub002/internal/authz"
	"github.com/minka-latam/minka-sub002/internal/identity"
	"github.com/minka-latam/minka-sub002/internal/models"
)

// SignOutResult tells whether sign-out ended a live session.
type SignOutResult int

const (
	SignedOut SignOutResult = iota
	AlreadySignedOut
)

// AuthService defines session establishment and termination.
type AuthService interface {
	Establish(ctx context.Context, accessToken string) (*models.Session, error)
	SignOut(ctx context.Context, cred identity.Credential) (SignOutResult, error)
}

type authService struct {
	provider identity.Provider
	resolver *authz.Resolver
}

// NewAuthService creates a new auth service.
func NewAuthService(provider identity.Provider, resolver *authz.Resolver) AuthService {
	return &authService{provider: provider, resolver: resolver}
}

// Establish validates an access token obtained from the identity provider.
// An invalid token yields authz.ErrUnauthenticated.
func (s *authService) Establish(ctx context.Context, accessToken string) (*models.Session, error) {
	session, err := s.resolver.ResolveSession(ctx, identity.Credential{Token: accessToken})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, authz.ErrUnauthenticated
	}
	return session, nil
}

// SignOut ends the session behind cred. Signing out without a live session
// succeeds with AlreadySignedOut so repeated calls are harmless.
func (s *authService) SignOut(ctx context.Context, cred identity.Credential) (SignOutResult, error) {
	if cred.Empty() {
		return AlreadySignedOut, nil
	}

	err := s.provider.SignOut(ctx, cred)
	switch {
	case err == nil:
		return SignedOut, nil
	case errors.Is(err, identity.ErrNoSession):
		return AlreadySignedOut, nil
	default:
		return SignedOut, &authz.ProviderError{Op: "sign_out", Fingerprint: cred.Fingerprint(), Err: err}
	}
}
