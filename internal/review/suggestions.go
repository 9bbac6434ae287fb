package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/openfellowship/commons/backend/internal/markup"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SuggestionInput describes a proposed edit to a block's plain-text range.
type SuggestionInput struct {
	BlockID       string
	StartOffset   int
	EndOffset     int
	OriginalText  string
	SuggestedText string
	AuthorID      string
}

// CreateSuggestion records a pending edit suggestion. At most one pending
// suggestion may cover any part of a block's range, so the overlap check and
// the insert happen in one transaction with the competing rows locked.
func (s *Service) CreateSuggestion(ctx context.Context, input SuggestionInput) (SuggestionView, error) {
	if input.EndOffset <= input.StartOffset {
		return SuggestionView{}, newServiceError(opCreateSuggestion, "invalid_range", KindValidation,
			fmt.Errorf("end offset %d must be greater than start offset %d", input.EndOffset, input.StartOffset))
	}
	if input.SuggestedText == input.OriginalText {
		return SuggestionView{}, newServiceError(opCreateSuggestion, "identical_text", KindValidation,
			errors.New("suggested text must differ from the original text"))
	}

	var created EditSuggestion
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var block ContentBlock
		if err := tx.Where("id = ?", input.BlockID).Take(&block).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newServiceError(opCreateSuggestion, "block_not_found", KindNotFound, err)
			}
			s.logError(opCreateSuggestion, "block_select_failed", err, zap.String("block_id", input.BlockID))
			return newServiceError(opCreateSuggestion, "block_select_failed", KindInternal, err)
		}

		// Half-open interval overlap: existing.start < new.end AND
		// existing.end > new.start. Locked so two concurrent creators
		// cannot both pass the check.
		var overlapping int64
		if err := tx.Model(&EditSuggestion{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("block_id = ? AND status = ? AND start_offset < ? AND end_offset > ?",
				input.BlockID, SuggestionStatusPending, input.EndOffset, input.StartOffset).
			Count(&overlapping).Error; err != nil {
			s.logError(opCreateSuggestion, "overlap_query_failed", err, zap.String("block_id", input.BlockID))
			return newServiceError(opCreateSuggestion, "overlap_query_failed", KindInternal, err)
		}
		if overlapping > 0 {
			return newServiceError(opCreateSuggestion, "overlap_conflict", KindConflict,
				errors.New("a pending suggestion already exists for this text range"))
		}

		id, err := s.newID(opCreateSuggestion)
		if err != nil {
			return err
		}
		created = EditSuggestion{
			ID:            id,
			BlockID:       input.BlockID,
			AuthorID:      input.AuthorID,
			StartOffset:   input.StartOffset,
			EndOffset:     input.EndOffset,
			OriginalText:  input.OriginalText,
			SuggestedText: input.SuggestedText,
			Status:        SuggestionStatusPending,
			CreatedAt:     s.clock().UTC(),
		}
		if err := tx.Create(&created).Error; err != nil {
			s.logError(opCreateSuggestion, "insert_failed", err, zap.String("block_id", input.BlockID))
			return newServiceError(opCreateSuggestion, "insert_failed", KindInternal, err)
		}
		return nil
	})
	if txErr != nil {
		return SuggestionView{}, txErr
	}

	names := s.resolveUsernames(ctx, []string{created.AuthorID})
	return suggestionView(created, names), nil
}

// ListSuggestions returns suggestions, optionally scoped to one block or one
// status. Anonymous viewers see none. Without an explicit status filter
// non-admin viewers only see pending suggestions.
func (s *Service) ListSuggestions(ctx context.Context, viewer Viewer, blockID string, status SuggestionStatus) ([]SuggestionView, error) {
	if !viewer.Authenticated {
		return []SuggestionView{}, nil
	}

	query := s.db.WithContext(ctx).Model(&EditSuggestion{})
	if blockID != "" {
		query = query.Where("block_id = ?", blockID)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	} else if !viewer.IsAdmin {
		query = query.Where("status = ?", SuggestionStatusPending)
	}

	var suggestions []EditSuggestion
	if err := query.Order("created_at DESC").Find(&suggestions).Error; err != nil {
		s.logError(opListSuggestions, "query_failed", err)
		return nil, newServiceError(opListSuggestions, "query_failed", KindInternal, err)
	}

	names := s.resolveUsernames(ctx, suggestionAuthorIDs(suggestions))
	views := make([]SuggestionView, 0, len(suggestions))
	for _, suggestion := range suggestions {
		views = append(views, suggestionView(suggestion, names))
	}
	return views, nil
}

// DeleteSuggestion removes a pending suggestion on behalf of its author.
func (s *Service) DeleteSuggestion(ctx context.Context, suggestionID, requesterID string) error {
	var suggestion EditSuggestion
	if err := s.db.WithContext(ctx).Where("id = ?", suggestionID).Take(&suggestion).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newServiceError(opDeleteSuggestion, "suggestion_not_found", KindNotFound, err)
		}
		s.logError(opDeleteSuggestion, "select_failed", err, zap.String("suggestion_id", suggestionID))
		return newServiceError(opDeleteSuggestion, "select_failed", KindInternal, err)
	}

	if suggestion.AuthorID != requesterID {
		return newServiceError(opDeleteSuggestion, "not_author", KindForbidden,
			errors.New("only the author may delete a suggestion"))
	}
	if suggestion.Status != SuggestionStatusPending {
		return newServiceError(opDeleteSuggestion, "not_pending", KindInvalidState,
			errors.New("only pending suggestions can be deleted"))
	}

	if err := s.db.WithContext(ctx).Delete(&EditSuggestion{}, "id = ?", suggestionID).Error; err != nil {
		s.logError(opDeleteSuggestion, "delete_failed", err, zap.String("suggestion_id", suggestionID))
		return newServiceError(opDeleteSuggestion, "delete_failed", KindInternal, err)
	}
	return nil
}

// AcceptSuggestion transitions a pending suggestion to accepted, applies the
// replacement to its block and appends a history record. The block write,
// history insert and status transition commit atomically: a concurrent
// accept observes the transition and fails with an invalid-state outcome.
func (s *Service) AcceptSuggestion(ctx context.Context, suggestionID, adminID, note string) (SuggestionView, error) {
	var reviewed EditSuggestion
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		suggestion, err := s.lockPendingSuggestion(tx, opAcceptSuggestion, suggestionID)
		if err != nil {
			return err
		}

		now := s.clock().UTC()

		// A hard-deleted block no longer exists to mutate; the decision is
		// still recorded so the reviewer's action is not lost.
		var block ContentBlock
		blockErr := tx.Where("id = ?", suggestion.BlockID).Take(&block).Error
		if blockErr != nil && !errors.Is(blockErr, gorm.ErrRecordNotFound) {
			s.logError(opAcceptSuggestion, "block_select_failed", blockErr, zap.String("suggestion_id", suggestionID))
			return newServiceError(opAcceptSuggestion, "block_select_failed", KindInternal, blockErr)
		}

		if blockErr == nil {
			oldContent := block.Content
			newContent := markup.ApplyReplacement(
				oldContent,
				suggestion.StartOffset,
				suggestion.EndOffset,
				suggestion.OriginalText,
				suggestion.SuggestedText,
			)
			block.Content = newContent
			block.UpdatedAt = now
			if err := tx.Save(&block).Error; err != nil {
				s.logError(opAcceptSuggestion, "block_save_failed", err, zap.String("block_id", block.ID))
				return newServiceError(opAcceptSuggestion, "block_save_failed", KindInternal, err)
			}

			historyID, err := s.newID(opAcceptSuggestion)
			if err != nil {
				return err
			}
			history := ContentHistory{
				ID:            historyID,
				BlockID:       &block.ID,
				BlockKey:      block.BlockKey,
				ChangeType:    ChangeTypeSuggestionAccepted,
				ChangedBy:     &adminID,
				SuggestionID:  &suggestion.ID,
				OriginalText:  suggestion.OriginalText,
				NewText:       suggestion.SuggestedText,
				ContentBefore: oldContent,
				ContentAfter:  newContent,
				CreatedAt:     now,
			}
			if note != "" {
				history.Note = &note
			}
			if err := tx.Create(&history).Error; err != nil {
				s.logError(opAcceptSuggestion, "history_insert_failed", err, zap.String("block_id", block.ID))
				return newServiceError(opAcceptSuggestion, "history_insert_failed", KindInternal, err)
			}
		}

		suggestion.Status = SuggestionStatusAccepted
		suggestion.ReviewedBy = &adminID
		suggestion.ReviewedAt = &now
		if note != "" {
			suggestion.ReviewNote = &note
		}
		if err := tx.Save(&suggestion).Error; err != nil {
			s.logError(opAcceptSuggestion, "suggestion_save_failed", err, zap.String("suggestion_id", suggestionID))
			return newServiceError(opAcceptSuggestion, "suggestion_save_failed", KindInternal, err)
		}

		reviewed = suggestion
		return nil
	})
	if txErr != nil {
		return SuggestionView{}, txErr
	}

	names := s.resolveUsernames(ctx, []string{reviewed.AuthorID})
	return suggestionView(reviewed, names), nil
}

// RejectSuggestion transitions a pending suggestion to rejected. Content and
// history are untouched.
func (s *Service) RejectSuggestion(ctx context.Context, suggestionID, adminID, note string) (SuggestionView, error) {
	var reviewed EditSuggestion
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		suggestion, err := s.lockPendingSuggestion(tx, opRejectSuggestion, suggestionID)
		if err != nil {
			return err
		}

		now := s.clock().UTC()
		suggestion.Status = SuggestionStatusRejected
		suggestion.ReviewedBy = &adminID
		suggestion.ReviewedAt = &now
		if note != "" {
			suggestion.ReviewNote = &note
		}
		if err := tx.Save(&suggestion).Error; err != nil {
			s.logError(opRejectSuggestion, "suggestion_save_failed", err, zap.String("suggestion_id", suggestionID))
			return newServiceError(opRejectSuggestion, "suggestion_save_failed", KindInternal, err)
		}

		reviewed = suggestion
		return nil
	})
	if txErr != nil {
		return SuggestionView{}, txErr
	}

	names := s.resolveUsernames(ctx, []string{reviewed.AuthorID})
	return suggestionView(reviewed, names), nil
}

// PendingReview gathers every unresolved comment and pending suggestion for
// the admin review queue.
func (s *Service) PendingReview(ctx context.Context) (PendingReviewPage, error) {
	var comments []Comment
	if err := s.db.WithContext(ctx).
		Where("is_resolved = ?", false).
		Order("created_at DESC").
		Find(&comments).Error; err != nil {
		s.logError(opPendingReview, "comment_query_failed", err)
		return PendingReviewPage{}, newServiceError(opPendingReview, "comment_query_failed", KindInternal, err)
	}

	var suggestions []EditSuggestion
	if err := s.db.WithContext(ctx).
		Where("status = ?", SuggestionStatusPending).
		Order("created_at DESC").
		Find(&suggestions).Error; err != nil {
		s.logError(opPendingReview, "suggestion_query_failed", err)
		return PendingReviewPage{}, newServiceError(opPendingReview, "suggestion_query_failed", KindInternal, err)
	}

	commentViews, err := s.commentViews(ctx, opPendingReview, comments)
	if err != nil {
		return PendingReviewPage{}, err
	}

	names := s.resolveUsernames(ctx, suggestionAuthorIDs(suggestions))
	suggestionViews := make([]SuggestionView, 0, len(suggestions))
	for _, suggestion := range suggestions {
		suggestionViews = append(suggestionViews, suggestionView(suggestion, names))
	}

	return PendingReviewPage{
		Comments:     commentViews,
		Suggestions:  suggestionViews,
		TotalPending: len(commentViews) + len(suggestionViews),
	}, nil
}

// lockPendingSuggestion loads and row-locks a suggestion, enforcing that it
// is still pending. Serializes concurrent accept/reject attempts: the loser
// of the race sees the terminal status and gets an invalid-state error.
func (s *Service) lockPendingSuggestion(tx *gorm.DB, operation, suggestionID string) (EditSuggestion, error) {
	var suggestion EditSuggestion
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", suggestionID).
		Take(&suggestion).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return EditSuggestion{}, newServiceError(operation, "suggestion_not_found", KindNotFound, err)
	}
	if err != nil {
		s.logError(operation, "suggestion_select_failed", err, zap.String("suggestion_id", suggestionID))
		return EditSuggestion{}, newServiceError(operation, "suggestion_select_failed", KindInternal, err)
	}
	if suggestion.Status != SuggestionStatusPending {
		return EditSuggestion{}, newServiceError(operation, "not_pending", KindInvalidState,
			fmt.Errorf("suggestion status is %s", suggestion.Status))
	}
	return suggestion, nil
}
