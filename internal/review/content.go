package review

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BlockUpdate is a partial update of a content block; nil fields are left
// untouched.
type BlockUpdate struct {
	Content      *string
	DisplayOrder *int
	IsActive     *bool
}

// ListContent returns every active block in display order, annotated with
// the comments and suggestions the viewer is allowed to see.
func (s *Service) ListContent(ctx context.Context, viewer Viewer) (ContentPage, error) {
	var blocks []ContentBlock
	if err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("display_order ASC").
		Find(&blocks).Error; err != nil {
		s.logError(opListContent, "block_query_failed", err)
		return ContentPage{}, newServiceError(opListContent, "block_query_failed", KindInternal, err)
	}

	page := ContentPage{Blocks: make([]BlockView, 0, len(blocks)), CanEdit: viewer.CanEdit()}
	if len(blocks) == 0 {
		return page, nil
	}

	blockIDs := make([]string, 0, len(blocks))
	for _, block := range blocks {
		blockIDs = append(blockIDs, block.ID)
	}

	var comments []Comment
	if err := s.db.WithContext(ctx).
		Where("block_id IN ?", blockIDs).
		Order("created_at ASC").
		Find(&comments).Error; err != nil {
		s.logError(opListContent, "comment_query_failed", err)
		return ContentPage{}, newServiceError(opListContent, "comment_query_failed", KindInternal, err)
	}

	var suggestions []EditSuggestion
	if err := s.db.WithContext(ctx).
		Where("block_id IN ?", blockIDs).
		Order("created_at ASC").
		Find(&suggestions).Error; err != nil {
		s.logError(opListContent, "suggestion_query_failed", err)
		return ContentPage{}, newServiceError(opListContent, "suggestion_query_failed", KindInternal, err)
	}

	commentsByBlock := make(map[string][]Comment, len(blocks))
	commentIDs := make([]string, 0, len(comments))
	for _, comment := range comments {
		commentsByBlock[comment.BlockID] = append(commentsByBlock[comment.BlockID], comment)
		commentIDs = append(commentIDs, comment.ID)
	}
	suggestionsByBlock := make(map[string][]EditSuggestion, len(blocks))
	for _, suggestion := range suggestions {
		suggestionsByBlock[suggestion.BlockID] = append(suggestionsByBlock[suggestion.BlockID], suggestion)
	}

	replies, err := s.repliesByComment(ctx, commentIDs)
	if err != nil {
		s.logError(opListContent, "reply_query_failed", err)
		return ContentPage{}, newServiceError(opListContent, "reply_query_failed", KindInternal, err)
	}

	allReplies := make([]CommentReply, 0)
	for _, group := range replies {
		allReplies = append(allReplies, group...)
	}
	names := s.resolveUsernames(ctx, append(commentAuthorIDs(comments, allReplies), suggestionAuthorIDs(suggestions)...))

	for _, block := range blocks {
		visibleComments := VisibleComments(viewer, commentsByBlock[block.ID])
		visibleSuggestions := VisibleSuggestions(viewer, suggestionsByBlock[block.ID])

		view := BlockView{
			ID:            block.ID,
			BlockType:     block.BlockType,
			BlockKey:      block.BlockKey,
			DisplayOrder:  block.DisplayOrder,
			Content:       block.Content,
			ParentBlockID: block.ParentBlockID,
			IsActive:      block.IsActive,
			CreatedAt:     block.CreatedAt,
			UpdatedAt:     block.UpdatedAt,
			Comments:      make([]CommentView, 0, len(visibleComments)),
			Suggestions:   make([]SuggestionView, 0, len(visibleSuggestions)),
		}
		for _, comment := range visibleComments {
			view.Comments = append(view.Comments, commentView(comment, replies[comment.ID], names))
		}
		for _, suggestion := range visibleSuggestions {
			view.Suggestions = append(view.Suggestions, suggestionView(suggestion, names))
		}
		page.Blocks = append(page.Blocks, view)
	}

	return page, nil
}

// UpdateBlock applies a partial admin edit. A content change is a
// content-modifying event and therefore appends a direct_edit history row in
// the same transaction as the block write.
func (s *Service) UpdateBlock(ctx context.Context, blockID string, update BlockUpdate, adminID string) (ContentBlock, error) {
	var updated ContentBlock
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var block ContentBlock
		if err := tx.Where("id = ?", blockID).Take(&block).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newServiceError(opUpdateBlock, "block_not_found", KindNotFound, err)
			}
			s.logError(opUpdateBlock, "block_select_failed", err, zap.String("block_id", blockID))
			return newServiceError(opUpdateBlock, "block_select_failed", KindInternal, err)
		}

		now := s.clock().UTC()
		contentChanged := false
		oldContent := block.Content

		if update.Content != nil && *update.Content != block.Content {
			block.Content = *update.Content
			contentChanged = true
		}
		if update.DisplayOrder != nil {
			block.DisplayOrder = *update.DisplayOrder
		}
		if update.IsActive != nil {
			block.IsActive = *update.IsActive
		}
		block.UpdatedAt = now

		if err := tx.Save(&block).Error; err != nil {
			s.logError(opUpdateBlock, "block_save_failed", err, zap.String("block_id", blockID))
			return newServiceError(opUpdateBlock, "block_save_failed", KindInternal, err)
		}

		if contentChanged {
			historyID, err := s.newID(opUpdateBlock)
			if err != nil {
				return err
			}
			history := ContentHistory{
				ID:            historyID,
				BlockID:       &block.ID,
				BlockKey:      block.BlockKey,
				ChangeType:    ChangeTypeDirectEdit,
				ChangedBy:     &adminID,
				OriginalText:  oldContent,
				NewText:       block.Content,
				ContentBefore: oldContent,
				ContentAfter:  block.Content,
				CreatedAt:     now,
			}
			if err := tx.Create(&history).Error; err != nil {
				s.logError(opUpdateBlock, "history_insert_failed", err, zap.String("block_id", blockID))
				return newServiceError(opUpdateBlock, "history_insert_failed", KindInternal, err)
			}
		}

		updated = block
		return nil
	})
	if txErr != nil {
		return ContentBlock{}, txErr
	}
	return updated, nil
}

// BlockHistory lists the audit trail for one block, newest first.
func (s *Service) BlockHistory(ctx context.Context, blockID string) ([]ContentHistory, error) {
	var entries []ContentHistory
	if err := s.db.WithContext(ctx).
		Where("block_id = ?", blockID).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		s.logError(opBlockHistory, "query_failed", err, zap.String("block_id", blockID))
		return nil, newServiceError(opBlockHistory, "query_failed", KindInternal, err)
	}
	return entries, nil
}
