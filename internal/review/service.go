package review

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

const (
	opServiceNew       = "review.service.new"
	opListContent      = "review.list_content"
	opUpdateBlock      = "review.update_block"
	opBlockHistory     = "review.block_history"
	opCreateComment    = "review.create_comment"
	opListComments     = "review.list_comments"
	opDeleteComment    = "review.delete_comment"
	opResolveComment   = "review.resolve_comment"
	opCreateReply      = "review.create_reply"
	opCreateSuggestion = "review.create_suggestion"
	opListSuggestions  = "review.list_suggestions"
	opDeleteSuggestion = "review.delete_suggestion"
	opAcceptSuggestion = "review.accept_suggestion"
	opRejectSuggestion = "review.reject_suggestion"
	opPendingReview    = "review.pending_review"
)

// IDProvider issues identifiers for newly created rows.
type IDProvider interface {
	NewID() (string, error)
}

// NameResolver maps author identifiers to display usernames. Annotation
// payloads carry resolved names so the presentation layer never joins users
// itself.
type NameResolver interface {
	Usernames(ctx context.Context, userIDs []string) (map[string]string, error)
}

// ServiceConfig describes the dependencies of the review service.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Names      NameResolver
	Logger     *zap.Logger
}

// Service owns the annotation entities and the suggestion review workflow.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	names      NameResolver
	logger     *zap.Logger
}

// NewService validates the configuration and constructs the service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", KindInternal, errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", KindInternal, errMissingIDProvider)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:         cfg.Database,
		clock:      clock,
		idProvider: cfg.IDProvider,
		names:      cfg.Names,
		logger:     logger,
	}, nil
}

// resolveUsernames collects distinct author ids and asks the resolver for
// display names. Resolution is best effort: a failed lookup leaves names
// empty rather than failing the read.
func (s *Service) resolveUsernames(ctx context.Context, ids []string) map[string]string {
	if s.names == nil || len(ids) == 0 {
		return map[string]string{}
	}

	distinct := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		distinct = append(distinct, id)
	}

	names, err := s.names.Usernames(ctx, distinct)
	if err != nil {
		s.logger.Warn("username resolution failed", zap.Error(err))
		return map[string]string{}
	}
	return names
}

func (s *Service) newID(operation string) (string, error) {
	id, err := s.idProvider.NewID()
	if err != nil {
		s.logError(operation, "id_generation_failed", err)
		return "", newServiceError(operation, "id_generation_failed", KindInternal, err)
	}
	return id, nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("review service error", attrs...)
}

func commentAuthorIDs(comments []Comment, replies []CommentReply) []string {
	ids := make([]string, 0, len(comments)+len(replies))
	for _, comment := range comments {
		ids = append(ids, comment.AuthorID)
	}
	for _, reply := range replies {
		ids = append(ids, reply.AuthorID)
	}
	return ids
}

func suggestionAuthorIDs(suggestions []EditSuggestion) []string {
	ids := make([]string, 0, len(suggestions))
	for _, suggestion := range suggestions {
		ids = append(ids, suggestion.AuthorID)
	}
	return ids
}

// repliesByComment loads every reply for the given comment ids, oldest first,
// grouped by parent comment.
func (s *Service) repliesByComment(ctx context.Context, commentIDs []string) (map[string][]CommentReply, error) {
	grouped := make(map[string][]CommentReply, len(commentIDs))
	if len(commentIDs) == 0 {
		return grouped, nil
	}

	var replies []CommentReply
	if err := s.db.WithContext(ctx).
		Where("comment_id IN ?", commentIDs).
		Order("created_at ASC").
		Find(&replies).Error; err != nil {
		return nil, err
	}
	for _, reply := range replies {
		grouped[reply.CommentID] = append(grouped[reply.CommentID], reply)
	}
	return grouped, nil
}
