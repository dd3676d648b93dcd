// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/minka-latam/minka-sub002/internal/authz"
	"github.com/minka-latam/minka-sub002/internal/models"
	"github.com/minka-latam/minka-sub002/internal/repository"
)

// MaxBatchIDs caps how many profiles one batch lookup may request.
const MaxBatchIDs = 100

// ProfileService defines the interface for profile operations.
type ProfileService interface {
	Get(ctx context.Context, userID string) (*models.Profile, error)
	Update(ctx context.Context, userID string, req UpdateProfileRequest) (*models.Profile, error)
	Batch(ctx context.Context, ids []string) ([]models.PublicProfile, error)
	List(ctx context.Context, page, perPage int) ([]*models.Profile, int64, error)
	FindByEmail(ctx context.Context, email string) (*models.Profile, error)
}

// UpdateProfileRequest holds the user-editable profile fields. Nil fields are left unchanged.
type UpdateProfileRequest struct {
	Name           *string `json:"name" validate:"omitempty,min=1,max=120"`
	Phone          *string `json:"phone" validate:"omitempty,max=32"`
	Address        *string `json:"address" validate:"omitempty,max=255"`
	ProfilePicture *string `json:"profilePicture" validate:"omitempty,url,max=2048"`
}

// BatchProfilesRequest is the body of a batch profile lookup.
type BatchProfilesRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=100,dive,required,max=128"`
}

type profileService struct {
	profileRepo repository.ProfileRepository
}

// NewProfileService creates a new profile service.
func NewProfileService(profileRepo repository.ProfileRepository) ProfileService {
	return &profileService{profileRepo: profileRepo}
}

// Get returns the caller's own profile.
func (s *profileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	p, err := s.profileRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, &authz.DataStoreError{Op: "get_profile", Err: err}
	}
	if p == nil {
		return nil, authz.ErrNotFound
	}
	return p, nil
}

// Update applies req to the caller's profile.
func (s *profileService) Update(ctx context.Context, userID string, req UpdateProfileRequest) (*models.Profile, error) {
	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil {
		p.Phone = optional(*req.Phone)
	}
	if req.Address != nil {
		p.Address = optional(*req.Address)
	}
	if req.ProfilePicture != nil {
		p.ProfilePicture = optional(*req.ProfilePicture)
	}

	if err := s.profileRepo.Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, authz.ErrNotFound
		}
		return nil, &authz.DataStoreError{Op: "update_profile", Err: err}
	}
	return p, nil
}

// Batch returns the public projection of every existing profile among ids.
// Unknown ids are omitted. An empty id list is rejected before the store is queried.
func (s *profileService) Batch(ctx context.Context, ids []string) ([]models.PublicProfile, error) {
	if len(ids) == 0 {
		return nil, &authz.ValidationError{Field: "ids", Message: "ids must be a non-empty array"}
	}
	if len(ids) > MaxBatchIDs {
		return nil, &authz.ValidationError{Field: "ids", Message: "too many ids"}
	}

	profiles, err := s.profileRepo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, &authz.DataStoreError{Op: "list_profiles", Err: err}
	}

	out := make([]models.PublicProfile, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p.Public())
	}
	return out, nil
}

// List returns one page of profiles and the total count.
func (s *profileService) List(ctx context.Context, page, perPage int) ([]*models.Profile, int64, error) {
	page, perPage = normalizePage(page, perPage)

	profiles, err := s.profileRepo.List(ctx, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, &authz.DataStoreError{Op: "list_profiles", Err: err}
	}
	total, err := s.profileRepo.Count(ctx)
	if err != nil {
		return nil, 0, &authz.DataStoreError{Op: "count_profiles", Err: err}
	}
	return profiles, total, nil
}

// FindByEmail looks a profile up by its email address.
func (s *profileService) FindByEmail(ctx context.Context, email string) (*models.Profile, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, &authz.ValidationError{Field: "email", Message: "email is required"}
	}

	p, err := s.profileRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, &authz.DataStoreError{Op: "get_profile_by_email", Err: err}
	}
	if p == nil {
		return nil, authz.ErrNotFound
	}
	return p, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}
