package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/minka-latam/minka-sub002/internal/authz"
	"github.com/minka-latam/minka-sub002/internal/middleware"
	"github.com/minka-latam/minka-sub002/internal/models"
	"github.com/minka-latam/minka-sub002/internal/pkg/response"
	"github.com/minka-latam/minka-sub002/internal/pkg/ulid"
	"github.com/minka-latam/minka-sub002/internal/service"
)

// NotificationHandler handles notification HTTP requests. All routes expect
// middleware.Auth to have resolved the caller.
type NotificationHandler struct {
	notificationService service.NotificationService
	shaper              *authz.Shaper
	validate            *validator.Validate
}

// NewNotificationHandler creates a new notification handler.
func NewNotificationHandler(notificationService service.NotificationService, shaper *authz.Shaper) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		shaper:              shaper,
		validate:            newValidator(),
	}
}

// Routes returns a chi router with the caller's notification routes.
func (h *NotificationHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/unread-count", h.UnreadCount)
	r.Post("/read-all", h.MarkAllRead)
	r.Post("/{id}/read", h.MarkRead)
	return r
}

// UnreadCountResponse is the body of GET /api/notifications/unread-count.
type UnreadCountResponse struct {
	UnreadCount int `json:"unreadCount"`
}

// UnreadCount handles GET /api/notifications/unread-count
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if userID == "" {
		h.shaper.API(w, r, authz.ErrUnauthenticated)
		return
	}

	n, err := h.notificationService.UnreadCount(r.Context(), userID)
	if err != nil {
		h.shaper.API(w, r, err)
		return
	}
	response.OK(w, UnreadCountResponse{UnreadCount: n})
}

// List handles GET /api/notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if userID == "" {
		h.shaper.API(w, r, authz.ErrUnauthenticated)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.notificationService.List(r.Context(), userID, limit)
	if err != nil {
		h.shaper.API(w, r, err)
		return
	}
	response.OK(w, map[string][]*models.Notification{"notifications": list})
}

// MarkRead handles POST /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if userID == "" {
		h.shaper.API(w, r, authz.ErrUnauthenticated)
		return
	}

	id := chi.URLParam(r, "id")
	if !ulid.IsValid(id) {
		h.shaper.API(w, r, authz.ErrNotFound)
		return
	}

	if err := h.notificationService.MarkRead(r.Context(), userID, id); err != nil {
		h.shaper.API(w, r, err)
		return
	}
	response.NoContent(w)
}

// MarkAllRead handles POST /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r)
	if userID == "" {
		h.shaper.API(w, r, authz.ErrUnauthenticated)
		return
	}

	n, err := h.notificationService.MarkAllRead(r.Context(), userID)
	if err != nil {
		h.shaper.API(w, r, err)
		return
	}
	response.OK(w, map[string]int64{"updated": n})
}

// Create handles POST /api/admin/notifications
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateNotificationRequest
	if err := decodeAndValidate(r, h.validate, &req); err != nil {
		h.shaper.API(w, r, err)
		return
	}

	n, err := h.notificationService.Create(r.Context(), req)
	if err != nil {
		h.shaper.API(w, r, err)
		return
	}
	response.Created(w, n)
}
