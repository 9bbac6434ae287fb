package groups

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openfellowship/commons/backend/internal/ident"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrGroupNotFound   = errors.New("groups: group not found")
	ErrMemberNotFound  = errors.New("groups: member not found")
	ErrAlreadyMember   = errors.New("groups: user is already a member")
	ErrGroupFull       = errors.New("groups: group is at capacity")
	ErrNotPermitted    = errors.New("groups: requester lacks the required role")
	ErrNotCreator      = errors.New("groups: only the creator may delete the group")
	ErrSelfRoleChange  = errors.New("groups: members cannot change their own role")
	ErrInvalidRole     = errors.New("groups: unknown member role")
	ErrEmptyName       = errors.New("groups: name cannot be empty")
	ErrInvalidCapacity = errors.New("groups: max members must be positive")
)

// ServiceConfig describes the study group service dependencies.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider ident.Provider
}

// Service owns study groups and their membership rosters.
type Service struct {
	db         *gorm.DB
	now        func() time.Time
	idProvider ident.Provider
}

// NewService constructs the study group service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("groups: database connection required")
	}
	if cfg.IDProvider == nil {
		return nil, fmt.Errorf("groups: id provider required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{db: cfg.Database, now: clock, idProvider: cfg.IDProvider}, nil
}

// GroupInput describes a new study group.
type GroupInput struct {
	Name        string
	Description string
	CreatorID   string
	MaxMembers  int
	IsPrivate   bool
}

// CreateGroup creates a group and enrolls the creator as its admin member in
// the same transaction.
func (s *Service) CreateGroup(ctx context.Context, input GroupInput) (StudyGroup, error) {
	if strings.TrimSpace(input.Name) == "" {
		return StudyGroup{}, ErrEmptyName
	}
	if input.MaxMembers <= 0 {
		return StudyGroup{}, ErrInvalidCapacity
	}

	groupID, err := s.idProvider.NewID()
	if err != nil {
		return StudyGroup{}, err
	}
	memberID, err := s.idProvider.NewID()
	if err != nil {
		return StudyGroup{}, err
	}

	now := s.now().UTC()
	group := StudyGroup{
		ID:          groupID,
		Name:        input.Name,
		Description: input.Description,
		CreatorID:   input.CreatorID,
		MaxMembers:  input.MaxMembers,
		IsPrivate:   input.IsPrivate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	creator := Member{
		ID:       memberID,
		GroupID:  groupID,
		UserID:   input.CreatorID,
		Role:     RoleAdmin,
		JoinedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		return tx.Create(&creator).Error
	})
	if err != nil {
		return StudyGroup{}, err
	}
	return group, nil
}

// ListGroups returns public groups plus any private groups the viewer belongs
// to. An empty viewer id lists public groups only.
func (s *Service) ListGroups(ctx context.Context, viewerID string) ([]StudyGroup, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if viewerID == "" {
		query = query.Where("is_private = ?", false)
	} else {
		query = query.Where(
			"is_private = ? OR id IN (?)",
			false,
			s.db.Model(&Member{}).Select("group_id").Where("user_id = ?", viewerID),
		)
	}
	var groups []StudyGroup
	err := query.Find(&groups).Error
	return groups, err
}

// GetGroup loads one group by id.
func (s *Service) GetGroup(ctx context.Context, groupID string) (StudyGroup, error) {
	var group StudyGroup
	err := s.db.WithContext(ctx).Where("id = ?", groupID).Take(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return StudyGroup{}, ErrGroupNotFound
	}
	return group, err
}

// GroupUpdate carries optional field changes; nil fields stay untouched.
type GroupUpdate struct {
	Name        *string
	Description *string
	MaxMembers  *int
	IsPrivate   *bool
}

// UpdateGroup edits group settings. Only admin or moderator members may edit.
func (s *Service) UpdateGroup(ctx context.Context, groupID, requesterID string, update GroupUpdate) (StudyGroup, error) {
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return StudyGroup{}, err
	}
	role, err := s.memberRole(ctx, groupID, requesterID)
	if err != nil {
		return StudyGroup{}, err
	}
	if role != RoleAdmin && role != RoleModerator {
		return StudyGroup{}, ErrNotPermitted
	}

	if update.Name != nil {
		if strings.TrimSpace(*update.Name) == "" {
			return StudyGroup{}, ErrEmptyName
		}
		group.Name = *update.Name
	}
	if update.Description != nil {
		group.Description = *update.Description
	}
	if update.MaxMembers != nil {
		if *update.MaxMembers <= 0 {
			return StudyGroup{}, ErrInvalidCapacity
		}
		group.MaxMembers = *update.MaxMembers
	}
	if update.IsPrivate != nil {
		group.IsPrivate = *update.IsPrivate
	}
	group.UpdatedAt = s.now().UTC()
	if err := s.db.WithContext(ctx).Save(&group).Error; err != nil {
		return StudyGroup{}, err
	}
	return group, nil
}

// DeleteGroup removes the group and its roster. Only the creator may delete.
func (s *Service) DeleteGroup(ctx context.Context, groupID, requesterID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group StudyGroup
		if err := tx.Where("id = ?", groupID).Take(&group).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGroupNotFound
			}
			return err
		}
		if group.CreatorID != requesterID {
			return ErrNotCreator
		}
		if err := tx.Where("group_id = ?", groupID).Delete(&Member{}).Error; err != nil {
			return err
		}
		return tx.Delete(&StudyGroup{}, "id = ?", groupID).Error
	})
}

// Join enrolls a user as a plain member. The roster row count is checked
// under a row lock on the group so concurrent joins cannot exceed capacity.
func (s *Service) Join(ctx context.Context, groupID, userID string) (Member, error) {
	memberID, err := s.idProvider.NewID()
	if err != nil {
		return Member{}, err
	}

	member := Member{
		ID:       memberID,
		GroupID:  groupID,
		UserID:   userID,
		Role:     RoleMember,
		JoinedAt: s.now().UTC(),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var group StudyGroup
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", groupID).
			Take(&group).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGroupNotFound
			}
			return err
		}

		var existing int64
		if err := tx.Model(&Member{}).
			Where("group_id = ? AND user_id = ?", groupID, userID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyMember
		}

		var roster int64
		if err := tx.Model(&Member{}).Where("group_id = ?", groupID).Count(&roster).Error; err != nil {
			return err
		}
		if roster >= int64(group.MaxMembers) {
			return ErrGroupFull
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		return Member{}, err
	}
	return member, nil
}

// Members returns the roster for a group, admins first.
func (s *Service) Members(ctx context.Context, groupID string) ([]Member, error) {
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	var members []Member
	err := s.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("CASE role WHEN 'admin' THEN 0 WHEN 'moderator' THEN 1 ELSE 2 END, joined_at ASC").
		Find(&members).Error
	return members, err
}

// SetMemberRole changes a member's role. Only admin members may change roles,
// and never their own.
func (s *Service) SetMemberRole(ctx context.Context, groupID, requesterID, userID string, role MemberRole) (Member, error) {
	if !ValidRole(role) {
		return Member{}, ErrInvalidRole
	}
	if requesterID == userID {
		return Member{}, ErrSelfRoleChange
	}

	requesterRole, err := s.memberRole(ctx, groupID, requesterID)
	if err != nil {
		return Member{}, err
	}
	if requesterRole != RoleAdmin {
		return Member{}, ErrNotPermitted
	}

	var member Member
	err = s.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Take(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Member{}, ErrMemberNotFound
	}
	if err != nil {
		return Member{}, err
	}

	member.Role = role
	if err := s.db.WithContext(ctx).Save(&member).Error; err != nil {
		return Member{}, err
	}
	return member, nil
}

// RemoveMember drops a member from the roster. Members may leave on their
// own; removing someone else requires admin or moderator role.
func (s *Service) RemoveMember(ctx context.Context, groupID, requesterID, userID string) error {
	if requesterID != userID {
		requesterRole, err := s.memberRole(ctx, groupID, requesterID)
		if err != nil {
			return err
		}
		if requesterRole != RoleAdmin && requesterRole != RoleModerator {
			return ErrNotPermitted
		}
	}

	result := s.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&Member{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

func (s *Service) memberRole(ctx context.Context, groupID, userID string) (MemberRole, error) {
	var member Member
	err := s.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Take(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotPermitted
	}
	if err != nil {
		return "", err
	}
	return member.Role, nil
}
