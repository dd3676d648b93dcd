package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/minka-latam/minka-sub002/internal/authz"
	"github.com/minka-latam/minka-sub002/internal/models"
	"github.com/minka-latam/minka-sub002/internal/repository"
)

// NotificationService defines the interface for notification operations.
type NotificationService interface {
	UnreadCount(ctx context.Context, userID string) (int, error)
	List(ctx context.Context, userID string, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Create(ctx context.Context, req CreateNotificationRequest) (*models.Notification, error)
}

// CreateNotificationRequest is an admin request to notify a user.
type CreateNotificationRequest struct {
	UserID  string                  `json:"userId" validate:"required,max=128"`
	Type    models.NotificationType `json:"type" validate:"required,oneof=donation campaign system"`
	Title   string                  `json:"title" validate:"required,min=1,max=200"`
	Message string                  `json:"message" validate:"max=2000"`
	Data    json.RawMessage         `json:"data,omitempty"`
}

type notificationService struct {
	notificationRepo repository.NotificationRepository
	profileRepo      repository.ProfileRepository
}

// NewNotificationService creates a new notification service.
func NewNotificationService(notificationRepo repository.NotificationRepository, profileRepo repository.ProfileRepository) NotificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		profileRepo:      profileRepo,
	}
}

// UnreadCount returns the number of unread notifications for the user.
func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	n, err := s.notificationRepo.CountUnread(ctx, userID)
	if err != nil {
		return 0, &authz.DataStoreError{Op: "count_unread", Err: err}
	}
	return n, nil
}

// List returns the user's latest notifications, newest first.
func (s *notificationService) List(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	list, err := s.notificationRepo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, &authz.DataStoreError{Op: "list_notifications", Err: err}
	}
	return list, nil
}

// MarkRead marks a notification as read. Notifications of other users are reported as not found.
func (s *notificationService) MarkRead(ctx context.Context, userID, id string) error {
	err := s.notificationRepo.MarkRead(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return authz.ErrNotFound
	}
	if err != nil {
		return &authz.DataStoreError{Op: "mark_read", Err: err}
	}
	return nil
}

// MarkAllRead marks all the user's notifications as read and returns how many changed.
func (s *notificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.notificationRepo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, &authz.DataStoreError{Op: "mark_all_read", Err: err}
	}
	return n, nil
}

// Create stores a notification for an existing user.
func (s *notificationService) Create(ctx context.Context, req CreateNotificationRequest) (*models.Notification, error) {
	if len(req.Data) > 0 && !json.Valid(req.Data) {
		return nil, &authz.ValidationError{Field: "data", Message: "data must be valid JSON"}
	}

	p, err := s.profileRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, &authz.DataStoreError{Op: "get_profile", Err: err}
	}
	if p == nil {
		return nil, authz.ErrNotFound
	}

	n := &models.Notification{
		UserID:  req.UserID,
		Type:    req.Type,
		Title:   req.Title,
		Message: req.Message,
		Data:    req.Data,
	}
	if err := s.notificationRepo.Create(ctx, n); err != nil {
		return nil, &authz.DataStoreError{Op: "create_notification", Err: err}
	}
	return n, nil
}
