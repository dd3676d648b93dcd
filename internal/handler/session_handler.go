package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/minka-latam/minka-sub002/internal/authz"
	"github.com/minka-latam/minka-sub002/internal/models"
	apierrors "github.com/minka-latam/minka-sub002/internal/pkg/errors"
	"github.com/minka-latam/minka-sub002/internal/pkg/response"
	"github.com/minka-latam/minka-sub002/internal/service"
)

// SessionHandler serves session status, admin checks, sign-in and sign-out.
type SessionHandler struct {
	resolver    *authz.Resolver
	shaper      *authz.Shaper
	creds       CredentialStore
	authService service.AuthService
	logger      *slog.Logger
	validate    *validator.Validate
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(resolver *authz.Resolver, shaper *authz.Shaper, creds CredentialStore, authService service.AuthService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		resolver:    resolver,
		shaper:      shaper,
		creds:       creds,
		authService: authService,
		logger:      logger,
		validate:    newValidator(),
	}
}

// SessionResponse is the body of GET /api/session.
type SessionResponse struct {
	Authenticated   bool            `json:"authenticated"`
	ProfileComplete bool            `json:"profileComplete"`
	User            *models.Session `json:"user"`
	Profile         *models.Profile `json:"profile,omitempty"`
}

// unauthenticatedResponse keeps the authenticated flag next to the standard error fields.
type unauthenticatedResponse struct {
	Authenticated bool   `json:"authenticated"`
	IsAdmin       *bool  `json:"isAdmin,omitempty"`
	Code          string `json:"code"`
	Error         string `json:"error"`
}

func writeUnauthenticated(w http.ResponseWriter, withAdminFlag bool) {
	body := unauthenticatedResponse{
		Code:  apierrors.ErrUnauthenticated.Code,
		Error: apierrors.ErrUnauthenticated.Message,
	}
	if withAdminFlag {
		body.IsAdmin = new(bool)
	}
	response.JSON(w, http.StatusUnauthorized, body)
}

// Session handles GET /api/session
func (h *SessionHandler) Session(w http.ResponseWriter, r *http.Request) {
	res, err := h.resolver.Resolve(r.Context(), h.creds.Credential(r), authz.Options{Required: authz.TierAnonymous})
	if err != nil {
		h.shaper.API(w, r, err)
		return
	}
	if !res.Authenticated() {
		writeUnauthenticated(w, false)
		return
	}

	// Without a profile the provider's user object is still returned.
	response.OK(w, SessionResponse{
		Authenticated:   true,
		ProfileComplete: res.Profile != nil,
		User:            res.Session,
		Profile:         res.Profile,
	})
}

// AdminAuthResponse is the body of GET /api/admin/auth.
type AdminAuthResponse struct {
	Authenticated bool            `json:"authenticated"`
	IsAdmin       bool            `json:"isAdmin"`
	User          *models.Session `json:"user,omitempty"`
}

// AdminAuth handles GET /api/admin/auth
func (h *SessionHandler) AdminAuth(w http.ResponseWriter, r *http.Request) {
	res, err := h.resolver.Resolve(r.Context(), h.creds.Credential(r), authz.Options{Required: authz.TierAdmin})
	if err != nil {
		h.shaper.API(w, r, err)
		return
	}
	if !res.Authenticated() {
		writeUnauthenticated(w, true)
		return
	}

	response.OK(w, AdminAuthResponse{
		Authenticated: true,
		IsAdmin:       res.Decision.Allowed && res.Decision.Tier == authz.TierAdmin,
		User:          res.Session,
	})
}

// EstablishRequest is the body of POST /api/auth/session.
type EstablishRequest struct {
	AccessToken string `json:"accessToken" validate:"required,max=8192"`
}

// Establish handles POST /api/auth/session
func (h *SessionHandler) Establish(w http.ResponseWriter, r *http.Request) {
	var req EstablishRequest
	if err := decodeAndValidate(r, h.validate, &req); err != nil {
		h.shaper.API(w, r, err)
		return
	}

	session, err := h.authService.Establish(r.Context(), req.AccessToken)
	if err != nil {
		h.shaper.API(w, r, err)
		return
	}

	if err := h.creds.Save(w, r, req.AccessToken); err != nil {
		h.shaper.API(w, r, err)
		return
	}

	response.OK(w, map[string]any{
		"authenticated": true,
		"user":          session,
	})
}

// MessageResponse carries a human-readable outcome.
type MessageResponse struct {
	Message string `json:"message"`
}

// Logout handles POST /api/auth/logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cred := h.creds.Credential(r)

	result, err := h.authService.SignOut(r.Context(), cred)
	if err != nil {
		h.shaper.API(w, r, err)
		return
	}

	if err := h.creds.Clear(w, r); err != nil {
		h.logger.Warn("failed to clear session cookie", slog.String("error", err.Error()))
	}

	if result == service.AlreadySignedOut {
		response.OK(w, MessageResponse{Message: "Already signed out"})
		return
	}
	response.OK(w, MessageResponse{Message: "Signed out successfully"})
}
