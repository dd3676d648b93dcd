package authz

import "github.com/minka-latam/minka-sub002/internal/models"

// Reason explains a Decision.
type Reason string

const (
	ReasonGranted          Reason = "granted"
	ReasonNoSession        Reason = "no_session"
	ReasonInsufficientTier Reason = "insufficient_tier"
	ReasonProfileMissing   Reason = "profile_missing"
)

// Layout selects the dashboard shell a page request renders.
type Layout int

const (
	LayoutStandard Layout = iota
	LayoutAdmin
)

func (l Layout) String() string {
	if l == LayoutAdmin {
		return "admin"
	}
	return "standard"
}

// Decision is the per-request authorization outcome. It is never cached.
type Decision struct {
	Allowed bool
	Tier    Tier
	Reason  Reason
}

// Layout returns the layout for the decision's tier.
func (d Decision) Layout() Layout {
	if d.Tier == TierAdmin {
		return LayoutAdmin
	}
	return LayoutStandard
}

// Err converts a denied decision into ErrUnauthenticated or ErrUnauthorized.
// It returns nil when the decision allows the request.
func (d Decision) Err() error {
	switch {
	case d.Allowed:
		return nil
	case d.Reason == ReasonNoSession:
		return ErrUnauthenticated
	default:
		return ErrUnauthorized
	}
}

// Authorize decides whether the holder of session and profile may access
// something that requires the given tier. A nil session is never allowed.
// A nil profile means the user is authenticated but has not completed
// registration, which classifies as TierAnonymous.
func Authorize(session *models.Session, profile *models.Profile, required Tier) Decision {
	if session == nil {
		return Decision{Tier: TierUnauthenticated, Reason: ReasonNoSession}
	}

	if profile == nil {
		if TierAnonymous.Satisfies(required) {
			return Decision{Allowed: true, Tier: TierAnonymous, Reason: ReasonGranted}
		}
		return Decision{Tier: TierAnonymous, Reason: ReasonProfileMissing}
	}

	tier := TierForRole(profile.Role)
	if !tier.Satisfies(required) {
		return Decision{Tier: tier, Reason: ReasonInsufficientTier}
	}
	return Decision{Allowed: true, Tier: tier, Reason: ReasonGranted}
}
