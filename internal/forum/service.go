package forum

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
	ErrCategoryNotFound    = errors.New("forum: category not found")
	ErrThreadNotFound      = errors.New("forum: thread not found")
	ErrReplyNotFound       = errors.New("forum: reply not found")
	ErrParentReplyNotFound = errors.New("forum: parent reply not found")
	ErrNotAuthor           = errors.New("forum: requester is not the author")
	ErrInvalidVote         = errors.New("forum: vote type must be up or down")
	ErrEmptyContent        = errors.New("forum: content cannot be empty")
)

// ServiceConfig describes the forum service dependencies.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider ident.Provider
}

// Service owns forum categories, threads and replies.
type Service struct {
	db         *gorm.DB
	now        func() time.Time
	idProvider ident.Provider
}

// NewService constructs the forum service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, fmt.Errorf("forum: database connection required")
	}
	if cfg.IDProvider == nil {
		return nil, fmt.Errorf("forum: id provider required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{db: cfg.Database, now: clock, idProvider: cfg.IDProvider}, nil
}

// ListCategories returns every category ordered for the forum index.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	err := s.db.WithContext(ctx).Order("display_order ASC, created_at ASC").Find(&categories).Error
	return categories, err
}

// CreateCategory adds a forum category.
func (s *Service) CreateCategory(ctx context.Context, name, description string, displayOrder int) (Category, error) {
	if strings.TrimSpace(name) == "" {
		return Category{}, ErrEmptyContent
	}
	id, err := s.idProvider.NewID()
	if err != nil {
		return Category{}, err
	}
	category := Category{
		ID:           id,
		Name:         name,
		Description:  description,
		DisplayOrder: displayOrder,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&category).Error; err != nil {
		return Category{}, err
	}
	return category, nil
}

// DeleteCategory removes a category together with its threads and replies.
func (s *Service) DeleteCategory(ctx context.Context, categoryID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category Category
		if err := tx.Where("id = ?", categoryID).Take(&category).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCategoryNotFound
			}
			return err
		}

		var threadIDs []string
		if err := tx.Model(&Thread{}).Where("category_id = ?", categoryID).Pluck("id", &threadIDs).Error; err != nil {
			return err
		}
		if len(threadIDs) > 0 {
			if err := tx.Where("thread_id IN ?", threadIDs).Delete(&Reply{}).Error; err != nil {
				return err
			}
			if err := tx.Where("category_id = ?", categoryID).Delete(&Thread{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&Category{}, "id = ?", categoryID).Error
	})
}

// ListThreads returns every thread in a category, pinned first, newest next.
func (s *Service) ListThreads(ctx context.Context, categoryID string) ([]Thread, error) {
	var threads []Thread
	err := s.db.WithContext(ctx).
		Where("category_id = ?", categoryID).
		Order("is_pinned DESC, created_at DESC").
		Find(&threads).Error
	return threads, err
}

// ThreadInput describes a new discussion thread.
type ThreadInput struct {
	CategoryID string
	AuthorID   string
	Title      string
	Content    string
	IsPinned   bool
}

// CreateThread starts a discussion in an existing category.
func (s *Service) CreateThread(ctx context.Context, input ThreadInput) (Thread, error) {
	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Content) == "" {
		return Thread{}, ErrEmptyContent
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&Category{}).Where("id = ?", input.CategoryID).Count(&count).Error; err != nil {
		return Thread{}, err
	}
	if count == 0 {
		return Thread{}, ErrCategoryNotFound
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		return Thread{}, err
	}
	now := s.now().UTC()
	thread := Thread{
		ID:         id,
		CategoryID: input.CategoryID,
		AuthorID:   input.AuthorID,
		Title:      input.Title,
		Content:    input.Content,
		IsPinned:   input.IsPinned,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.db.WithContext(ctx).Create(&thread).Error; err != nil {
		return Thread{}, err
	}
	return thread, nil
}

// GetThread loads one thread by id.
func (s *Service) GetThread(ctx context.Context, threadID string) (Thread, error) {
	var thread Thread
	err := s.db.WithContext(ctx).Where("id = ?", threadID).Take(&thread).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Thread{}, ErrThreadNotFound
	}
	return thread, err
}

// UpdateThread edits title/content of the requester's own thread.
func (s *Service) UpdateThread(ctx context.Context, threadID, requesterID, title, content string) (Thread, error) {
	thread, err := s.GetThread(ctx, threadID)
	if err != nil {
		return Thread{}, err
	}
	if thread.AuthorID != requesterID {
		return Thread{}, ErrNotAuthor
	}
	if title != "" {
		thread.Title = title
	}
	if content != "" {
		thread.Content = content
	}
	thread.UpdatedAt = s.now().UTC()
	if err := s.db.WithContext(ctx).Save(&thread).Error; err != nil {
		return Thread{}, err
	}
	return thread, nil
}

// DeleteThread removes a thread and its replies; author or admin only.
func (s *Service) DeleteThread(ctx context.Context, threadID, requesterID string, requesterIsAdmin bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var thread Thread
		if err := tx.Where("id = ?", threadID).Take(&thread).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrThreadNotFound
			}
			return err
		}
		if thread.AuthorID != requesterID && !requesterIsAdmin {
			return ErrNotAuthor
		}
		if err := tx.Where("thread_id = ?", threadID).Delete(&Reply{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Thread{}, "id = ?", threadID).Error
	})
}

// ListReplies returns all replies for a thread, oldest first.
func (s *Service) ListReplies(ctx context.Context, threadID string) ([]Reply, error) {
	var replies []Reply
	err := s.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC").
		Find(&replies).Error
	return replies, err
}

// ReplyInput describes a new reply to a thread.
type ReplyInput struct {
	ThreadID      string
	AuthorID      string
	Content       string
	ParentReplyID *string
}

// CreateReply posts a reply, optionally nested under a parent reply.
func (s *Service) CreateReply(ctx context.Context, input ReplyInput) (Reply, error) {
	if strings.TrimSpace(input.Content) == "" {
		return Reply{}, ErrEmptyContent
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&Thread{}).Where("id = ?", input.ThreadID).Count(&count).Error; err != nil {
		return Reply{}, err
	}
	if count == 0 {
		return Reply{}, ErrThreadNotFound
	}

	if input.ParentReplyID != nil {
		var parentCount int64
		if err := s.db.WithContext(ctx).Model(&Reply{}).Where("id = ?", *input.ParentReplyID).Count(&parentCount).Error; err != nil {
			return Reply{}, err
		}
		if parentCount == 0 {
			return Reply{}, ErrParentReplyNotFound
		}
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		return Reply{}, err
	}
	reply := Reply{
		ID:            id,
		ThreadID:      input.ThreadID,
		AuthorID:      input.AuthorID,
		Content:       input.Content,
		ParentReplyID: input.ParentReplyID,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&reply).Error; err != nil {
		return Reply{}, err
	}
	return reply, nil
}

// DeleteReply removes the requester's own reply (admins may remove any).
func (s *Service) DeleteReply(ctx context.Context, replyID, requesterID string, requesterIsAdmin bool) error {
	var reply Reply
	err := s.db.WithContext(ctx).Where("id = ?", replyID).Take(&reply).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrReplyNotFound
	}
	if err != nil {
		return err
	}
	if reply.AuthorID != requesterID && !requesterIsAdmin {
		return ErrNotAuthor
	}
	return s.db.WithContext(ctx).Delete(&Reply{}, "id = ?", replyID).Error
}

// VoteThread records an up or down vote. Counters are bumped with an SQL
// expression so concurrent votes are not lost.
func (s *Service) VoteThread(ctx context.Context, threadID string, vote VoteType) (Thread, error) {
	if err := s.applyVote(ctx, &Thread{}, threadID, vote, ErrThreadNotFound); err != nil {
		return Thread{}, err
	}
	return s.GetThread(ctx, threadID)
}

// VoteReply records an up or down vote on a reply.
func (s *Service) VoteReply(ctx context.Context, replyID string, vote VoteType) (Reply, error) {
	if err := s.applyVote(ctx, &Reply{}, replyID, vote, ErrReplyNotFound); err != nil {
		return Reply{}, err
	}
	var reply Reply
	if err := s.db.WithContext(ctx).Where("id = ?", replyID).Take(&reply).Error; err != nil {
		return Reply{}, err
	}
	return reply, nil
}

func (s *Service) applyVote(ctx context.Context, model interface{}, id string, vote VoteType, notFound error) error {
	var column string
	switch vote {
	case VoteUp:
		column = "upvotes"
	case VoteDown:
		column = "downvotes"
	default:
		return ErrInvalidVote
	}

	result := s.db.WithContext(ctx).Model(model).
		Where("id = ?", id).
		Update(column, gorm.Expr(column+" + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound
	}
	return nil
}
