package resources

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openfellowship/commons/backend/internal/ident"
	"gorm.io/gorm"
)

var (
	ErrResourceNotFound = errors.New("resources: resource not found")
	ErrNotSubmitter     = errors.New("resources: requester did not submit this resource")
	ErrInvalidType      = errors.New("resources: unknown resource type")
	ErrEmptyFields      = errors.New("resources: title and url are required")
)

// ServiceConfig describes the resource library dependencies.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider ident.Provider
}

// Service owns the shared resource library.
type Service struct {
	db         *gorm.DB
	now        func() time.Time
	idProvider ident.Provider
}

// NewService constructs the resource library service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("resources: database connection required")
	}
	if cfg.IDProvider == nil {
		return nil, fmt.Errorf("resources: id provider required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{db: cfg.Database, now: clock, idProvider: cfg.IDProvider}, nil
}

// ResourceInput describes a new library submission.
type ResourceInput struct {
	SubmitterID  string
	Title        string
	Description  string
	URL          string
	ResourceType ResourceType
}

// Submit adds a resource awaiting admin approval.
func (s *Service) Submit(ctx context.Context, input ResourceInput) (SharedResource, error) {
	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.URL) == "" {
		return SharedResource{}, ErrEmptyFields
	}
	if !ValidResourceType(input.ResourceType) {
		return SharedResource{}, ErrInvalidType
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		return SharedResource{}, err
	}
	now := s.now().UTC()
	resource := SharedResource{
		ID:           id,
		SubmitterID:  input.SubmitterID,
		Title:        input.Title,
		Description:  input.Description,
		URL:          input.URL,
		ResourceType: input.ResourceType,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(&resource).Error; err != nil {
		return SharedResource{}, err
	}
	return resource, nil
}

// List returns library entries. Admin viewers see everything including
// pending submissions; everyone else sees approved entries plus their own.
func (s *Service) List(ctx context.Context, viewerID string, viewerIsAdmin bool, resourceType ResourceType) ([]SharedResource, error) {
	query := s.db.WithContext(ctx).Order("upvotes DESC, created_at DESC")
	if !viewerIsAdmin {
		if viewerID == "" {
			query = query.Where("is_approved = ?", true)
		} else {
			query = query.Where("is_approved = ? OR submitter_id = ?", true, viewerID)
		}
	}
	if resourceType != "" {
		query = query.Where("resource_type = ?", resourceType)
	}
	var entries []SharedResource
	err := query.Find(&entries).Error
	return entries, err
}

// Get loads one library entry by id.
func (s *Service) Get(ctx context.Context, resourceID string) (SharedResource, error) {
	var resource SharedResource
	err := s.db.WithContext(ctx).Where("id = ?", resourceID).Take(&resource).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return SharedResource{}, ErrResourceNotFound
	}
	return resource, err
}

// ResourceUpdate carries optional field changes; nil fields stay untouched.
type ResourceUpdate struct {
	Title       *string
	Description *string
	URL         *string
}

// Update edits a submission. Only the submitter may edit; edits to an
// approved entry send it back to the review queue.
func (s *Service) Update(ctx context.Context, resourceID, requesterID string, update ResourceUpdate) (SharedResource, error) {
	resource, err := s.Get(ctx, resourceID)
	if err != nil {
		return SharedResource{}, err
	}
	if resource.SubmitterID != requesterID {
		return SharedResource{}, ErrNotSubmitter
	}

	changed := false
	if update.Title != nil && *update.Title != resource.Title {
		if strings.TrimSpace(*update.Title) == "" {
			return SharedResource{}, ErrEmptyFields
		}
		resource.Title = *update.Title
		changed = true
	}
	if update.Description != nil && *update.Description != resource.Description {
		resource.Description = *update.Description
		changed = true
	}
	if update.URL != nil && *update.URL != resource.URL {
		if strings.TrimSpace(*update.URL) == "" {
			return SharedResource{}, ErrEmptyFields
		}
		resource.URL = *update.URL
		changed = true
	}
	if changed {
		resource.IsApproved = false
	}
	resource.UpdatedAt = s.now().UTC()
	if err := s.db.WithContext(ctx).Save(&resource).Error; err != nil {
		return SharedResource{}, err
	}
	return resource, nil
}

// Delete removes an entry; submitter or admin only.
func (s *Service) Delete(ctx context.Context, resourceID, requesterID string, requesterIsAdmin bool) error {
	resource, err := s.Get(ctx, resourceID)
	if err != nil {
		return err
	}
	if resource.SubmitterID != requesterID && !requesterIsAdmin {
		return ErrNotSubmitter
	}
	return s.db.WithContext(ctx).Delete(&SharedResource{}, "id = ?", resourceID).Error
}

// Upvote bumps the entry's vote counter atomically.
func (s *Service) Upvote(ctx context.Context, resourceID string) (SharedResource, error) {
	result := s.db.WithContext(ctx).Model(&SharedResource{}).
		Where("id = ?", resourceID).
		Update("upvotes", gorm.Expr("upvotes + 1"))
	if result.Error != nil {
		return SharedResource{}, result.Error
	}
	if result.RowsAffected == 0 {
		return SharedResource{}, ErrResourceNotFound
	}
	return s.Get(ctx, resourceID)
}

// Approve marks an entry visible to all members. Admin only, enforced by the
// HTTP layer.
func (s *Service) Approve(ctx context.Context, resourceID string) (SharedResource, error) {
	resource, err := s.Get(ctx, resourceID)
	if err != nil {
		return SharedResource{}, err
	}
	resource.IsApproved = true
	resource.UpdatedAt = s.now().UTC()
	if err := s.db.WithContext(ctx).Save(&resource).Error; err != nil {
		return SharedResource{}, err
	}
	return resource, nil
}
