package models

import (
	"time"
)

// Session is an authenticated session issued by the external identity provider.
// It is read-only from this service's perspective.
type Session struct {
	ID        string         `json:"-"`
	UserID    string         `json:"id"`
	Email     string         `json:"email,omitempty"`
	ExpiresAt time.Time      `json:"expires_at"`
	Claims    map[string]any `json:"user_metadata,omitempty"`
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(s.ExpiresAt)
}
