package handler

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/minka-latam/minka-sub002/internal/authz"
	"github.com/minka-latam/minka-sub002/internal/middleware"
	"github.com/minka-latam/minka-sub002/internal/models"
	"github.com/minka-latam/minka-sub002/internal/pkg/response"
	"github.com/minka-latam/minka-sub002/internal/service"
)

// ProfileHandler handles profile HTTP requests.
type ProfileHandler struct {
	profileService service.ProfileService
	shaper         *authz.Shaper
	validate       *validator.Validate
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(profileService service.ProfileService, shaper *authz.Shaper) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		shaper:         shaper,
		validate:       newValidator(),
	}
}

// Get handles GET /api/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if userID == "" {
		h.shaper.API(w, r, authz.ErrUnauthenticated)
		return
	}

	p, err := h.profileService.Get(r.Context(), userID)
	if err != nil {
		h.shaper.API(w, r, err)
		return
	}
	response.OK(w, p)
}

// Update handles PATCH /api/profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if userID == "" {
		h.shaper.API(w, r, authz.ErrUnauthenticated)
		return
	}

	var req service.UpdateProfileRequest
	if err := decodeAndValidate(r, h.validate, &req); err != nil {
		h.shaper.API(w, r, err)
		return
	}

	p, err := h.profileService.Update(r.Context(), userID, req)
	if err != nil {
		h.shaper.API(w, r, err)
		return
	}
	response.OK(w, p)
}

// BatchResponse is the body of POST /api/profile/batch.
type BatchResponse struct {
	Profiles []models.PublicProfile `json:"profiles"`
}

// Batch handles POST /api/profile/batch
func (h *ProfileHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req service.BatchProfilesRequest
	if err := decodeAndValidate(r, h.validate, &req); err != nil {
		h.shaper.API(w, r, err)
		return
	}

	profiles, err := h.profileService.Batch(r.Context(), req.IDs)
	if err != nil {
		h.shaper.API(w, r, err)
		return
	}
	response.OK(w, BatchResponse{Profiles: profiles})
}

// ListResponse is the body of GET /api/admin/profiles.
type ListResponse struct {
	Profiles []*models.Profile `json:"profiles"`
	Meta     *response.Meta    `json:"meta"`
}

// List handles GET /api/admin/profiles
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("perPage"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	profiles, total, err := h.profileService.List(r.Context(), page, perPage)
	if err != nil {
		h.shaper.API(w, r, err)
		return
	}
	response.OK(w, ListResponse{Profiles: profiles, Meta: response.NewMeta(page, perPage, total)})
}

// Lookup handles GET /api/admin/profiles/lookup?email=
func (h *ProfileHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	p, err := h.profileService.FindByEmail(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		h.shaper.API(w, r, err)
		return
	}
	response.OK(w, p)
}
