package authz

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/minka-latam/minka-sub002/internal/identity"
	"github.com/minka-latam/minka-sub002/internal/models"
)

// ProfileFinder looks up a profile by user id, returning nil, nil when none exists.
type ProfileFinder interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
}

// UnreadCounter counts a user's unread notifications.
type UnreadCounter interface {
	CountUnread(ctx context.Context, userID string) (int, error)
}

// Options tune a single Resolve call.
type Options struct {
	// Required is the minimum tier the request needs.
	Required Tier
	// WithUnreadCount also loads the unread notification count, concurrently
	// with the profile.
	WithUnreadCount bool
}

// Result is everything Resolve learned about a request's caller.
// Session and Profile may be nil; Decision is always set.
type Result struct {
	Session     *models.Session
	Profile     *models.Profile
	Decision    Decision
	UnreadCount int
}

// Authenticated reports whether the caller has a valid session.
func (r *Result) Authenticated() bool {
	return r != nil && r.Session != nil
}

// Resolver is the shared request resolution component injected into handlers.
// It holds no per-request state and is safe for concurrent use.
type Resolver struct {
	provider      identity.Provider
	profiles      ProfileFinder
	notifications UnreadCounter
	logger        *slog.Logger
	now           func() time.Time
}

// NewResolver creates a new resolver. notifications may be nil when no caller
// asks for unread counts.
func NewResolver(provider identity.Provider, profiles ProfileFinder, notifications UnreadCounter, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		provider:      provider,
		profiles:      profiles,
		notifications: notifications,
		logger:        logger,
		now:           time.Now,
	}
}

// ResolveSession asks the identity provider for the session behind cred.
// It returns nil, nil when there is no valid session and a *ProviderError
// only when the provider itself failed.
func (r *Resolver) ResolveSession(ctx context.Context, cred identity.Credential) (*models.Session, error) {
	if cred.Empty() {
		return nil, nil
	}

	session, err := r.provider.GetSession(ctx, cred)
	if errors.Is(err, identity.ErrNoSession) {
		return nil, nil
	}
	if err != nil {
		collaboratorErrorsTotal.WithLabelValues("identity_provider").Inc()
		return nil, &ProviderError{Op: "get_session", Fingerprint: cred.Fingerprint(), Err: err}
	}
	if session == nil || session.UserID == "" {
		collaboratorErrorsTotal.WithLabelValues("identity_provider").Inc()
		return nil, &ProviderError{Op: "get_session", Fingerprint: cred.Fingerprint(), Err: errors.New("empty session")}
	}
	if session.Expired(r.now()) {
		return nil, nil
	}
	return session, nil
}

// FetchProfile loads the profile bound to userID. A missing profile is
// nil, nil; store failures are returned as *DataStoreError.
func (r *Resolver) FetchProfile(ctx context.Context, userID string) (*models.Profile, error) {
	profile, err := r.profiles.GetByID(ctx, userID)
	if err != nil {
		collaboratorErrorsTotal.WithLabelValues("data_store").Inc()
		return nil, &DataStoreError{Op: "get_profile", Err: err}
	}
	return profile, nil
}

// UnreadCount counts the user's unread notifications.
func (r *Resolver) UnreadCount(ctx context.Context, userID string) (int, error) {
	if r.notifications == nil {
		return 0, nil
	}
	n, err := r.notifications.CountUnread(ctx, userID)
	if err != nil {
		collaboratorErrorsTotal.WithLabelValues("data_store").Inc()
		return 0, &DataStoreError{Op: "count_unread", Err: err}
	}
	return n, nil
}

// Resolve runs the full flow for one request: session, then profile (and
// optionally the unread count, concurrently), then the authorization decision.
// A missing session is not an error; the returned Result carries a denied
// Decision instead. Errors are always collaborator failures.
func (r *Resolver) Resolve(ctx context.Context, cred identity.Credential, opts Options) (*Result, error) {
	session, err := r.ResolveSession(ctx, cred)
	if err != nil {
		return nil, err
	}

	res := &Result{Session: session}
	if session == nil {
		res.Decision = Authorize(nil, nil, opts.Required)
		recordDecision(res.Decision)
		return res, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		profile, err := r.FetchProfile(gctx, session.UserID)
		res.Profile = profile
		return err
	})
	if opts.WithUnreadCount {
		g.Go(func() error {
			n, err := r.UnreadCount(gctx, session.UserID)
			res.UnreadCount = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res.Decision = Authorize(session, res.Profile, opts.Required)
	recordDecision(res.Decision)

	r.logger.Debug("request resolved",
		slog.String("user_id", session.UserID),
		slog.String("tier", res.Decision.Tier.String()),
		slog.String("reason", string(res.Decision.Reason)),
	)
	return res, nil
}

type resultKey struct{}

// WithResult returns a copy of ctx carrying res.
func WithResult(ctx context.Context, res *Result) context.Context {
	return context.WithValue(ctx, resultKey{}, res)
}

// FromContext returns the Result stored by WithResult, or nil.
func FromContext(ctx context.Context) *Result {
	res, _ := ctx.Value(resultKey{}).(*Result)
	return res
}
