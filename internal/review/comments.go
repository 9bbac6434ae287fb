package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxCommentLength = 2000
	maxReplyLength   = 1000
)

// CommentInput describes a new comment on a text selection.
type CommentInput struct {
	BlockID      string
	StartOffset  int
	EndOffset    int
	SelectedText string
	Body         string
	AuthorID     string
}

// CreateComment anchors a comment to a plain-text range of a block.
func (s *Service) CreateComment(ctx context.Context, input CommentInput) (CommentView, error) {
	if input.EndOffset <= input.StartOffset {
		return CommentView{}, newServiceError(opCreateComment, "invalid_range", KindInvalidRange,
			fmt.Errorf("end offset %d must be greater than start offset %d", input.EndOffset, input.StartOffset))
	}
	if strings.TrimSpace(input.Body) == "" {
		return CommentView{}, newServiceError(opCreateComment, "empty_body", KindValidation,
			errors.New("comment content cannot be empty"))
	}
	if len([]rune(input.Body)) > maxCommentLength {
		return CommentView{}, newServiceError(opCreateComment, "body_too_long", KindValidation,
			fmt.Errorf("comment cannot exceed %d characters", maxCommentLength))
	}

	var block ContentBlock
	if err := s.db.WithContext(ctx).Where("id = ?", input.BlockID).Take(&block).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CommentView{}, newServiceError(opCreateComment, "block_not_found", KindNotFound, err)
		}
		s.logError(opCreateComment, "block_select_failed", err, zap.String("block_id", input.BlockID))
		return CommentView{}, newServiceError(opCreateComment, "block_select_failed", KindInternal, err)
	}

	id, err := s.newID(opCreateComment)
	if err != nil {
		return CommentView{}, err
	}

	now := s.clock().UTC()
	comment := Comment{
		ID:           id,
		BlockID:      input.BlockID,
		AuthorID:     input.AuthorID,
		StartOffset:  input.StartOffset,
		EndOffset:    input.EndOffset,
		SelectedText: input.SelectedText,
		Body:         input.Body,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.db.WithContext(ctx).Create(&comment).Error; err != nil {
		s.logError(opCreateComment, "insert_failed", err, zap.String("block_id", input.BlockID))
		return CommentView{}, newServiceError(opCreateComment, "insert_failed", KindInternal, err)
	}

	names := s.resolveUsernames(ctx, []string{comment.AuthorID})
	return commentView(comment, nil, names), nil
}

// ListComments returns comments, optionally scoped to one block. Anonymous
// viewers see none. Resolved comments are omitted for non-admin viewers
// unless explicitly requested.
func (s *Service) ListComments(ctx context.Context, viewer Viewer, blockID string, includeResolved bool) ([]CommentView, error) {
	if !viewer.Authenticated {
		return []CommentView{}, nil
	}

	query := s.db.WithContext(ctx).Model(&Comment{})
	if blockID != "" {
		query = query.Where("block_id = ?", blockID)
	}
	if !includeResolved && !viewer.IsAdmin {
		query = query.Where("is_resolved = ?", false)
	}

	var comments []Comment
	if err := query.Order("created_at DESC").Find(&comments).Error; err != nil {
		s.logError(opListComments, "query_failed", err)
		return nil, newServiceError(opListComments, "query_failed", KindInternal, err)
	}

	return s.commentViews(ctx, opListComments, comments)
}

// DeleteComment removes a comment and its replies; only the author or an
// admin may delete. Replies are removed in the same transaction.
func (s *Service) DeleteComment(ctx context.Context, commentID, requesterID string, requesterIsAdmin bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment Comment
		if err := tx.Where("id = ?", commentID).Take(&comment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newServiceError(opDeleteComment, "comment_not_found", KindNotFound, err)
			}
			s.logError(opDeleteComment, "comment_select_failed", err, zap.String("comment_id", commentID))
			return newServiceError(opDeleteComment, "comment_select_failed", KindInternal, err)
		}

		if comment.AuthorID != requesterID && !requesterIsAdmin {
			return newServiceError(opDeleteComment, "not_author", KindForbidden,
				errors.New("only the author or an admin may delete a comment"))
		}

		if err := tx.Where("comment_id = ?", commentID).Delete(&CommentReply{}).Error; err != nil {
			s.logError(opDeleteComment, "reply_delete_failed", err, zap.String("comment_id", commentID))
			return newServiceError(opDeleteComment, "reply_delete_failed", KindInternal, err)
		}
		if err := tx.Delete(&Comment{}, "id = ?", commentID).Error; err != nil {
			s.logError(opDeleteComment, "delete_failed", err, zap.String("comment_id", commentID))
			return newServiceError(opDeleteComment, "delete_failed", KindInternal, err)
		}
		return nil
	})
}

// ResolveComment marks a comment resolved on behalf of an admin. Resolving an
// already-resolved comment refreshes the resolver metadata without error.
func (s *Service) ResolveComment(ctx context.Context, commentID, resolverID string) (CommentView, error) {
	var comment Comment
	if err := s.db.WithContext(ctx).Where("id = ?", commentID).Take(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CommentView{}, newServiceError(opResolveComment, "comment_not_found", KindNotFound, err)
		}
		s.logError(opResolveComment, "comment_select_failed", err, zap.String("comment_id", commentID))
		return CommentView{}, newServiceError(opResolveComment, "comment_select_failed", KindInternal, err)
	}

	now := s.clock().UTC()
	comment.IsResolved = true
	comment.ResolvedBy = &resolverID
	comment.ResolvedAt = &now
	comment.UpdatedAt = now
	if err := s.db.WithContext(ctx).Save(&comment).Error; err != nil {
		s.logError(opResolveComment, "save_failed", err, zap.String("comment_id", commentID))
		return CommentView{}, newServiceError(opResolveComment, "save_failed", KindInternal, err)
	}

	views, err := s.commentViews(ctx, opResolveComment, []Comment{comment})
	if err != nil {
		return CommentView{}, err
	}
	return views[0], nil
}

// CreateReply appends a reply to an existing comment thread.
func (s *Service) CreateReply(ctx context.Context, commentID, body, authorID string) (ReplyView, error) {
	if strings.TrimSpace(body) == "" {
		return ReplyView{}, newServiceError(opCreateReply, "empty_body", KindValidation,
			errors.New("reply content cannot be empty"))
	}
	if len([]rune(body)) > maxReplyLength {
		return ReplyView{}, newServiceError(opCreateReply, "body_too_long", KindValidation,
			fmt.Errorf("reply cannot exceed %d characters", maxReplyLength))
	}

	var comment Comment
	if err := s.db.WithContext(ctx).Where("id = ?", commentID).Take(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ReplyView{}, newServiceError(opCreateReply, "comment_not_found", KindNotFound, err)
		}
		s.logError(opCreateReply, "comment_select_failed", err, zap.String("comment_id", commentID))
		return ReplyView{}, newServiceError(opCreateReply, "comment_select_failed", KindInternal, err)
	}

	id, err := s.newID(opCreateReply)
	if err != nil {
		return ReplyView{}, err
	}

	reply := CommentReply{
		ID:        id,
		CommentID: commentID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: s.clock().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&reply).Error; err != nil {
		s.logError(opCreateReply, "insert_failed", err, zap.String("comment_id", commentID))
		return ReplyView{}, newServiceError(opCreateReply, "insert_failed", KindInternal, err)
	}

	names := s.resolveUsernames(ctx, []string{reply.AuthorID})
	return replyView(reply, names), nil
}

func (s *Service) commentViews(ctx context.Context, operation string, comments []Comment) ([]CommentView, error) {
	commentIDs := make([]string, 0, len(comments))
	for _, comment := range comments {
		commentIDs = append(commentIDs, comment.ID)
	}
	replies, err := s.repliesByComment(ctx, commentIDs)
	if err != nil {
		s.logError(operation, "reply_query_failed", err)
		return nil, newServiceError(operation, "reply_query_failed", KindInternal, err)
	}

	allReplies := make([]CommentReply, 0)
	for _, group := range replies {
		allReplies = append(allReplies, group...)
	}
	names := s.resolveUsernames(ctx, commentAuthorIDs(comments, allReplies))

	views := make([]CommentView, 0, len(comments))
	for _, comment := range comments {
		views = append(views, commentView(comment, replies[comment.ID], names))
	}
	return views, nil
}
