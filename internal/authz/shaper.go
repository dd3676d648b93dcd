package authz

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	apierrors "github.com/minka-latam/minka-sub002/internal/pkg/errors"
	"github.com/minka-latam/minka-sub002/internal/pkg/response"
)

// PageRenderer renders the HTML pages the Shaper falls back to.
type PageRenderer interface {
	Forbidden(w http.ResponseWriter, r *http.Request)
	NotFound(w http.ResponseWriter, r *http.Request)
	InternalError(w http.ResponseWriter, r *http.Request)
}

// Shaper turns resolution outcomes into HTTP responses. API requests get JSON
// status codes; page requests get redirects or rendered error pages.
// Collaborator failures are logged in full and answered with a generic message.
type Shaper struct {
	logger     *slog.Logger
	signInPath string
	pages      PageRenderer
}

// NewShaper creates a new shaper. pages may be nil, in which case page errors
// are written as plain text.
func NewShaper(logger *slog.Logger, signInPath string, pages PageRenderer) *Shaper {
	if logger == nil {
		logger = slog.Default()
	}
	if signInPath == "" {
		signInPath = "/sign-in"
	}
	return &Shaper{logger: logger, signInPath: signInPath, pages: pages}
}

// WithPages returns a copy of the shaper that renders page errors with pages.
func (s *Shaper) WithPages(pages PageRenderer) *Shaper {
	c := *s
	c.pages = pages
	return &c
}

// API writes the JSON response for err.
func (s *Shaper) API(w http.ResponseWriter, r *http.Request, err error) {
	var verr *ValidationError
	var apiErr *apierrors.APIError

	switch {
	case errors.Is(err, ErrUnauthenticated):
		response.Error(w, apierrors.ErrUnauthenticated)
	case errors.Is(err, ErrUnauthorized):
		response.Error(w, apierrors.ErrForbidden)
	case errors.Is(err, ErrNotFound):
		response.Error(w, apierrors.ErrNotFound)
	case errors.As(err, &verr):
		response.ValidationError(w, verr.Field, verr.Message)
	case errors.As(err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError:
		response.Error(w, apiErr)
	default:
		s.logFailure(r, err)
		response.Error(w, apierrors.ErrInternal)
	}
}

// APIDecision writes 401 or 403 for a denied decision and reports whether it
// did. Allowed decisions write nothing.
func (s *Shaper) APIDecision(w http.ResponseWriter, r *http.Request, d Decision) bool {
	if err := d.Err(); err != nil {
		s.API(w, r, err)
		return true
	}
	return false
}

// Page writes the page-context response for err.
func (s *Shaper) Page(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		s.RedirectToSignIn(w, r)
	case errors.Is(err, ErrUnauthorized):
		if s.pages != nil {
			s.pages.Forbidden(w, r)
			return
		}
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
	case errors.Is(err, ErrNotFound):
		if s.pages != nil {
			s.pages.NotFound(w, r)
			return
		}
		http.NotFound(w, r)
	default:
		s.logFailure(r, err)
		if s.pages != nil {
			s.pages.InternalError(w, r)
			return
		}
		http.Error(w, apierrors.ErrInternal.Message, http.StatusInternalServerError)
	}
}

// PageDecision handles a denied decision for a page request and reports whether it did.
func (s *Shaper) PageDecision(w http.ResponseWriter, r *http.Request, d Decision) bool {
	if err := d.Err(); err != nil {
		s.Page(w, r, err)
		return true
	}
	return false
}

// RedirectToSignIn sends the browser to the sign-in page. HTMX requests get an
// HX-Redirect header with 401 so the client performs a full navigation.
func (s *Shaper) RedirectToSignIn(w http.ResponseWriter, r *http.Request) {
	target := s.signInPath
	if r.Method == http.MethodGet && r.URL.Path != s.signInPath {
		target += "?next=" + url.QueryEscape(r.URL.RequestURI())
	}

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Shaper) logFailure(r *http.Request, err error) {
	attrs := []any{
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", chimiddleware.GetReqID(r.Context())),
	}

	var pe *ProviderError
	var de *DataStoreError
	switch {
	case errors.As(err, &pe):
		attrs = append(attrs,
			slog.String("collaborator", "identity_provider"),
			slog.String("op", pe.Op),
			slog.String("token_fp", pe.Fingerprint),
		)
	case errors.As(err, &de):
		attrs = append(attrs,
			slog.String("collaborator", "data_store"),
			slog.String("op", de.Op),
		)
	case errors.Is(err, context.Canceled):
		s.logger.Debug("request canceled during resolution", attrs...)
		return
	}

	s.logger.Error("request failed", attrs...)
}
