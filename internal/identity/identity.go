// Package identity defines the boundary to the external identity provider.
//
// The provider issues and validates opaque session tokens. This service only
// consumes two operations: resolving a token to a session and signing it out.
package identity

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/minka-latam/minka-sub002/internal/models"
)

// ErrNoSession is returned when the credential does not map to an active session.
// It is an expected outcome, not a provider failure.
var ErrNoSession = errors.New("identity: no active session")

// Credential is the caller's credential material extracted from a request.
type Credential struct {
	Token string
}

// Empty reports whether the credential carries no token.
func (c Credential) Empty() bool {
	return strings.TrimSpace(c.Token) == ""
}

// Fingerprint returns a short, non-reversible identifier for the token,
// suitable for logs and cache keys.
func (c Credential) Fingerprint() string {
	return Fingerprint(c.Token)
}

// Provider is the identity provider collaborator.
type Provider interface {
	// GetSession resolves the credential to an active session.
	// Returns ErrNoSession when there is none; any other error means the
	// provider itself failed.
	GetSession(ctx context.Context, cred Credential) (*models.Session, error)

	// SignOut invalidates the session behind the credential.
	// Returns ErrNoSession when the session was already gone.
	SignOut(ctx context.Context, cred Credential) error
}

// Fingerprint hashes a token with BLAKE2b-256 and returns the first 8 bytes hex-encoded.
func Fingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:8])
}
