// Package authz resolves the session, profile and access tier behind a request
// and shapes the outcome into an API or page response.
package authz

import "github.com/minka-latam/minka-sub002/internal/models"

// Tier is an access classification. Tiers are totally ordered, so a caller
// holding tier t may access anything that requires a tier <= t.
type Tier int

const (
	TierUnauthenticated Tier = iota
	TierAnonymous
	TierOrganizer
	TierAdmin
)

// String returns the tier name used in logs and metrics.
func (t Tier) String() string {
	switch t {
	case TierUnauthenticated:
		return "unauthenticated"
	case TierAnonymous:
		return "anonymous"
	case TierOrganizer:
		return "organizer"
	case TierAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Satisfies reports whether t grants access to something that requires required.
func (t Tier) Satisfies(required Tier) bool {
	return t >= required
}

// TierForRole maps a persisted profile role to its tier. Matching is exact;
// any role not listed here gets TierAnonymous. New roles must be added
// explicitly to gain privileges.
func TierForRole(role models.Role) Tier {
	switch role {
	case models.RoleAdmin:
		return TierAdmin
	case models.RoleOrganizer, models.RoleRegular:
		return TierOrganizer
	default:
		return TierAnonymous
	}
}
